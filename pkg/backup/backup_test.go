package backup

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"knbackup/pkg/config"
	"knbackup/pkg/errors"
	"knbackup/pkg/kidsnote"
	"knbackup/pkg/logger"
	"knbackup/pkg/profile"
	"knbackup/pkg/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenJSON = `{"token_type":"Bearer","access_token":"acc","scope":"read write","expires_in":3600,"refresh_token":"ref2"}`

// fakeKidsnote serves the token, account, report and image endpoints
type fakeKidsnote struct {
	server *httptest.Server

	tokenRequests  int32
	reportRequests int32
	badImageHits   int32

	mu     sync.Mutex
	grants []string
}

// grantsSeen returns the grant types posted to the token endpoint so far
func (f *fakeKidsnote) grantsSeen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.grants...)
}

const meInfoJSON = `{
	"user": {"id": 7, "username": "mom"},
	"children": [{
		"id": 11, "name": "Minji",
		"enrollment": [{"center_id": 5, "center_name": "Acorn Center", "class_name": "Stars"}]
	}]
}`

func newFakeKidsnote(t *testing.T) *fakeKidsnote {
	return newFakeKidsnoteWith(t, meInfoJSON)
}

func newFakeKidsnoteWith(t *testing.T, meInfo string) *fakeKidsnote {
	t.Helper()
	f := &fakeKidsnote{}
	mux := http.NewServeMux()

	mux.HandleFunc(kidsnote.TokenEndpoint, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenRequests, 1)
		r.ParseForm()
		f.mu.Lock()
		f.grants = append(f.grants, r.PostForm.Get("grant_type"))
		f.mu.Unlock()
		if r.PostForm.Get("refresh_token") == "expired" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(tokenJSON))
	})

	mux.HandleFunc(kidsnote.MeInfoEndpoint, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(meInfo))
	})

	mux.HandleFunc("/v1_2/children/11/reports/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.reportRequests, 1)
		host := f.server.URL

		switch r.URL.Query().Get("page") {
		case "":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"next": "page2",
				"results": []map[string]interface{}{
					entry(100, "2024-03-04T09:30:00+09:00", "first day", image(1, "a.jpg", 3, host+"/img/ok1")),
					entry(101, "2024-03-05T09:30:00+09:00", "", image(2, "b.jpg", 3, host+"/img/bad")),
				},
			})
		case "page2":
			// entries may carry no child name of their own
			second := entry(102, "2024-03-06T09:30:00+09:00", "second day", image(3, "c.png", 4, host+"/img/ok2"))
			delete(second, "child_name")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"next":    nil,
				"results": []map[string]interface{}{second},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	mux.HandleFunc("/img/ok1", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("abc")) })
	mux.HandleFunc("/img/ok2", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("wxyz")) })
	mux.HandleFunc("/img/bad", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.badImageHits, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func entry(id int, created, content string, images ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"id":              id,
		"created":         created,
		"author_name":     "Teacher Lee",
		"center":          5,
		"child":           11,
		"child_name":      "Minji",
		"content":         content,
		"attached_images": images,
	}
}

func image(id int, name string, size int, url string) map[string]interface{} {
	return map[string]interface{}{
		"id":                 id,
		"original_file_name": name,
		"file_size":          size,
		"original":           url,
	}
}

func testConfig(t *testing.T, host string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Kidsnote.Host = host
	cfg.Download.OutputDir = t.TempDir()
	cfg.Download.PageDelay = 0
	cfg.Download.ImageDelay = 0
	cfg.Download.RetryDelay = 0
	cfg.Download.ImageTimeout = 2 * time.Second
	return cfg
}

func newTestBackup(t *testing.T, cfg *config.Config, store profile.Store) (*Backup, *logger.TestLogger) {
	log := logger.NewTestLogger()
	client := kidsnote.NewClient(nil, cfg.Kidsnote, log)
	return New(cfg, client, store, log), log
}

func listFiles(t *testing.T, root string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestRunEndToEnd(t *testing.T) {
	fake := newFakeKidsnote(t)
	cfg := testConfig(t, fake.server.URL)
	store := profile.NewMemoryStore(nil)
	b, log := newTestBackup(t, cfg, store)

	summary, err := b.Run(context.Background(), Credentials{UserID: "mom", Password: "pw"}, report.DateFilter{})
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 1, summary.Children)
	assert.Equal(t, 1, summary.ChildrenSucceeded)
	assert.False(t, summary.AllChildrenFailed())
	assert.Equal(t, 3, summary.Reports)
	assert.Equal(t, 2, summary.ImagesFetched)
	assert.Equal(t, 1, summary.ImagesFailed)
	assert.Equal(t, 2, summary.TextsWritten)

	assert.EqualValues(t, 2, atomic.LoadInt32(&fake.reportRequests))
	assert.EqualValues(t, 3, atomic.LoadInt32(&fake.badImageHits))

	files := listFiles(t, cfg.Download.OutputDir)
	var texts []string
	for name, body := range files {
		if strings.HasSuffix(name, ".txt") {
			texts = append(texts, body)
		}
	}
	require.Len(t, texts, 2)
	for _, body := range texts {
		assert.Contains(t, body, "원 : Acorn Center")
		assert.Contains(t, body, "작성자 : Teacher Lee")
	}

	assert.Contains(t, files, "키즈노트 Minji/알림장/2024-03/20240304_Minji_알림장_100_1.jpg")
	assert.Contains(t, files, "키즈노트 Minji/알림장/2024-03/20240306_Minji_알림장_102_3.png")
	assert.NotContains(t, files, "키즈노트 Minji/알림장/2024-03/20240305_Minji_알림장_101_2.jpg")

	p, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "mom", p.UserID)
	assert.Equal(t, "ref2", p.RefreshToken)

	assert.True(t, log.HasMessage("backup finished"))
	assert.True(t, log.HasMessage("image download failed"))
}

func TestRunSecondPassSkipsExistingImages(t *testing.T) {
	fake := newFakeKidsnote(t)
	cfg := testConfig(t, fake.server.URL)
	b, _ := newTestBackup(t, cfg, profile.NewMemoryStore(nil))

	_, err := b.Run(context.Background(), Credentials{UserID: "mom", Password: "pw"}, report.DateFilter{})
	require.NoError(t, err)

	summary, err := b.Run(context.Background(), Credentials{}, report.DateFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ImagesSkipped)
	assert.Equal(t, 0, summary.ImagesFetched)
	assert.Equal(t, []string{"password", "refresh_token"}, fake.grantsSeen())
}

func TestRunDryRunWritesNothing(t *testing.T) {
	fake := newFakeKidsnote(t)
	cfg := testConfig(t, fake.server.URL)
	cfg.Download.DryRun = true
	b, _ := newTestBackup(t, cfg, profile.NewMemoryStore(nil))

	summary, err := b.Run(context.Background(), Credentials{RefreshToken: "r"}, report.DateFilter{})
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 3, summary.ImagesPlanned)
	assert.Equal(t, 0, summary.FilesWritten)
	assert.Empty(t, listFiles(t, cfg.Download.OutputDir))
}

func TestRunRejectsBadFilterBeforeLogin(t *testing.T) {
	fake := newFakeKidsnote(t)
	cfg := testConfig(t, fake.server.URL)
	b, _ := newTestBackup(t, cfg, profile.NewMemoryStore(nil))

	_, err := b.Run(context.Background(), Credentials{RefreshToken: "r"}, report.DateFilter{Start: "2024-05-01", End: "2024-04-01"})
	assert.ErrorIs(t, err, errors.ErrInvalidArgs)
	assert.EqualValues(t, 0, atomic.LoadInt32(&fake.tokenRequests))
}

func TestRunChildFailureIsRecorded(t *testing.T) {
	// the feed of the first child is not served
	fake := newFakeKidsnoteWith(t, `{
		"user": {"username": "mom"},
		"children": [
			{"id": 12, "name": "Jisoo"},
			{"id": 11, "name": "Minji", "enrollment": [{"center_id": 5, "center_name": "Acorn Center"}]}
		]
	}`)
	cfg := testConfig(t, fake.server.URL)
	b, log := newTestBackup(t, cfg, profile.NewMemoryStore(nil))

	summary, err := b.Run(context.Background(), Credentials{RefreshToken: "r"}, report.DateFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Children)
	assert.Equal(t, 1, summary.ChildrenSucceeded)
	assert.Equal(t, 1, summary.ChildrenFailed)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "Jisoo", summary.Errors[0].Child)
	assert.True(t, log.HasMessage("child backup failed"))
}

func TestRunCancelled(t *testing.T) {
	fake := newFakeKidsnote(t)
	cfg := testConfig(t, fake.server.URL)
	b, _ := newTestBackup(t, cfg, profile.NewMemoryStore(nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := b.Run(ctx, Credentials{RefreshToken: "r"}, report.DateFilter{})
	require.Error(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 0, summary.Reports)
}

func TestRunLockContention(t *testing.T) {
	fake := newFakeKidsnote(t)
	cfg := testConfig(t, fake.server.URL)
	b, _ := newTestBackup(t, cfg, profile.NewMemoryStore(nil))

	held, err := acquireLock(cfg.Download.OutputDir)
	require.NoError(t, err)
	defer held.Unlock()

	_, err = b.Run(context.Background(), Credentials{RefreshToken: "r"}, report.DateFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another backup is already writing")
	assert.EqualValues(t, 0, atomic.LoadInt32(&fake.reportRequests))
}

func TestAuthenticatePrecedence(t *testing.T) {
	tests := []struct {
		name      string
		stored    *profile.Profile
		creds     Credentials
		wantGrant string
		wantErr   bool
	}{
		{
			name:      "given refresh token",
			creds:     Credentials{RefreshToken: "r1", UserID: "mom", Password: "pw"},
			wantGrant: "refresh_token",
		},
		{
			name:      "stored refresh token beats password",
			stored:    &profile.Profile{UserID: "mom", RefreshToken: "r0"},
			creds:     Credentials{Password: "pw"},
			wantGrant: "refresh_token",
		},
		{
			name:      "password when nothing stored",
			creds:     Credentials{UserID: "mom", Password: "pw"},
			wantGrant: "password",
		},
		{
			name:      "stored user id with given password",
			stored:    &profile.Profile{UserID: "mom"},
			creds:     Credentials{Password: "pw"},
			wantGrant: "password",
		},
		{
			name:      "failed refresh does not fall back to password",
			creds:     Credentials{RefreshToken: "expired", UserID: "mom", Password: "pw"},
			wantGrant: "refresh_token",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeKidsnote(t)
			cfg := testConfig(t, fake.server.URL)
			b, _ := newTestBackup(t, cfg, profile.NewMemoryStore(tt.stored))

			_, err := b.Authenticate(context.Background(), tt.creds)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrorTypeUnauthorized))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, []string{tt.wantGrant}, fake.grantsSeen())
		})
	}
}

func TestAuthenticateWithoutCredentials(t *testing.T) {
	fake := newFakeKidsnote(t)
	cfg := testConfig(t, fake.server.URL)
	b, _ := newTestBackup(t, cfg, profile.NewMemoryStore(nil))

	_, err := b.Authenticate(context.Background(), Credentials{UserID: "mom"})
	assert.ErrorIs(t, err, errors.ErrInvalidArgs)
	assert.EqualValues(t, 0, atomic.LoadInt32(&fake.tokenRequests))
}

func TestLoginSaveFailureIsOnlyWarned(t *testing.T) {
	fake := newFakeKidsnote(t)
	cfg := testConfig(t, fake.server.URL)
	store := profile.NewMemoryStore(nil)
	store.SaveError = os.ErrPermission
	b, log := newTestBackup(t, cfg, store)

	info, err := b.Login(context.Background(), Credentials{UserID: "mom", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "mom", info.User.Username)
	assert.True(t, log.HasMessage("failed to save profile"))
}

func TestLoginProfileReadFailure(t *testing.T) {
	fake := newFakeKidsnote(t)
	cfg := testConfig(t, fake.server.URL)
	store := profile.NewMemoryStore(nil)
	store.LoadError = os.ErrPermission
	b, _ := newTestBackup(t, cfg, store)

	_, err := b.Login(context.Background(), Credentials{RefreshToken: "r"})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrPermission)
}
