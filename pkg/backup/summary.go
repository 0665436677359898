package backup

import (
	"time"

	"knbackup/internal/downloader"
)

// ChildError records why a child's backup stopped
type ChildError struct {
	Child string
	Err   string
}

// Summary counts what a run did
type Summary struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	DryRun   bool

	Children          int
	ChildrenSucceeded int
	ChildrenFailed    int

	Reports        int
	TextsWritten   int
	RendersWritten int
	RenderFailures int

	ImagesFetched int
	ImagesSkipped int
	ImagesFailed  int
	ImagesPlanned int

	FilesWritten int
	BytesWritten int64

	Errors []ChildError
}

// AddReport folds one report's result into the totals
func (s *Summary) AddReport(r downloader.ReportResult) {
	s.Reports++
	if r.TextWritten {
		s.TextsWritten++
	}
	if r.ImageWritten {
		s.RendersWritten++
	}
	s.RenderFailures += r.RenderErrors
	s.ImagesFetched += r.Count(downloader.Fetched)
	s.ImagesSkipped += r.Count(downloader.Skipped)
	s.ImagesFailed += r.Count(downloader.Failed)
	s.ImagesPlanned += r.Count(downloader.DryRun)
}

// ChildFailed records a child whose feed could not be completed
func (s *Summary) ChildFailed(name string, err error) {
	s.ChildrenFailed++
	s.Errors = append(s.Errors, ChildError{Child: name, Err: err.Error()})
}

// AllChildrenFailed reports whether there were children and none succeeded
func (s *Summary) AllChildrenFailed() bool {
	return s.Children > 0 && s.ChildrenSucceeded == 0
}
