package backup

import (
	"path/filepath"

	"github.com/gofrs/flock"

	"knbackup/pkg/errors"
)

// LockFileName is created in the output directory for the duration of a run
const LockFileName = ".knbackup.lock"

// acquireLock takes an exclusive lock on the output directory so two runs do
// not write the same files
func acquireLock(outputDir string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(outputDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.General(err, "failed to lock %s", outputDir)
	}
	if !locked {
		return nil, errors.New(errors.ErrorTypeGeneral, "another backup is already writing to %s", outputDir)
	}
	return lock, nil
}
