package export

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/foomo/contentexport/service/vo"
	"github.com/foomo/contentexport/wiki"
)

const pdfBytes = "%PDF-1.4 fake"

// fakeConfluence serves the export flow under /wiki and a separate object
// storage server for the final download.
type fakeConfluence struct {
	t *testing.T

	mu         sync.Mutex
	token      string
	taskID     string
	progress   []http.HandlerFunc
	polls      int
	submits    int
	linkBody   string
	storageCT  string
	storageHit int

	wiki    *httptest.Server
	storage *httptest.Server
}

func newFakeConfluence(t *testing.T, progress ...http.HandlerFunc) *fakeConfluence {
	t.Helper()
	f := &fakeConfluence{
		t:         t,
		token:     "tok-1",
		taskID:    "task-7",
		progress:  progress,
		storageCT: "application/pdf",
	}

	f.storage = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.storageHit++
		ct := f.storageCT
		f.mu.Unlock()
		assert.Empty(t, r.Header.Get("Authorization"), "download must not carry credentials")
		w.Header().Set("Content-Type", ct)
		_, _ = w.Write([]byte(pdfBytes))
	}))
	t.Cleanup(f.storage.Close)
	f.linkBody = f.storage.URL + "/bucket/export.pdf?signature=abc"

	mux := http.NewServeMux()
	mux.HandleFunc("/wiki/pages/viewpage.action", func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "123", r.URL.Query().Get("pageId"))
		f.mu.Lock()
		token := f.token
		f.mu.Unlock()
		fmt.Fprintf(w, `<html><head><meta name="atlassian-token" content="%s"></head><body></body></html>`, token)
	})
	mux.HandleFunc("/wiki/spaces/flyingpdf/pdfpageexport.action", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.submits++
		token, taskID := f.token, f.taskID
		f.mu.Unlock()
		assert.Equal(t, "123", r.URL.Query().Get("pageId"))
		assert.Equal(t, token, r.URL.Query().Get("atl_token"))
		assert.Equal(t, "true", r.URL.Query().Get("unmatched-route"))
		fmt.Fprintf(w, `<html><head><meta name="ajs-taskId" content="%s"></head><body>exporting</body></html>`, taskID)
	})
	mux.HandleFunc("/wiki/services/api/v1/task/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		i := f.polls
		f.polls++
		taskID, handlers := f.taskID, f.progress
		f.mu.Unlock()
		assert.Equal(t, "/wiki/services/api/v1/task/"+taskID+"/progress", r.URL.Path)
		if i >= len(handlers) {
			i = len(handlers) - 1
		}
		handlers[i](w, r)
	})
	mux.HandleFunc("/wiki/rest/api/link/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		body := f.linkBody
		f.mu.Unlock()
		_, _ = w.Write([]byte("  " + body + "\n"))
	})
	f.wiki = httptest.NewServer(mux)
	t.Cleanup(f.wiki.Close)
	return f
}

func (f *fakeConfluence) update(fn func(f *fakeConfluence)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeConfluence) get(n *int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *n
}

func (f *fakeConfluence) driver(t *testing.T, cfg Config, opts ...Option) *Driver {
	t.Helper()
	client, err := wiki.NewClient(wiki.Config{
		BaseURL:  f.wiki.URL + "/wiki",
		Username: "user",
		Password: "pass",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	if cfg.OutputDir == "" {
		cfg.OutputDir = t.TempDir()
	}
	if cfg.MaxPollAttempts == 0 {
		cfg.MaxPollAttempts = 5
	}
	return NewDriver(client, cfg, zaptest.NewLogger(t), opts...)
}

func progress(progress int, state, result string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"progress": %d, "state": %q, "result": %q, "message": "msg"}`, progress, state, result)
	}
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(code), code)
	}
}

var page = vo.PageRef{ID: "123", Title: "A/B: Report?"}

func TestExportContinuesWhileRunningAtFullProgress(t *testing.T) {
	f := newFakeConfluence(t,
		progress(30, "RUNNING", ""),
		progress(100, "RUNNING", ""),
		progress(100, "COMPLETE", "/wiki/rest/api/link/1"),
	)
	var seen []vo.ExportJob
	d := f.driver(t, Config{}, WithProgress(func(p vo.PageRef, job vo.ExportJob) {
		assert.Equal(t, page, p)
		seen = append(seen, job)
	}))

	path, err := d.Export(context.Background(), page)
	require.NoError(t, err)

	assert.Equal(t, 3, f.get(&f.polls))
	require.Len(t, seen, 3)
	assert.Equal(t, vo.JobStateRunning, seen[1].State)
	assert.Equal(t, 100, seen[1].Progress)
	assert.Equal(t, vo.JobStateComplete, seen[2].State)
	assert.Equal(t, "task-7", seen[2].TaskID)

	assert.Equal(t, "A_B_Report.pdf", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, string(data))
	assert.Equal(t, 1, f.get(&f.storageHit))
}

func TestExportStopsOnFailedState(t *testing.T) {
	f := newFakeConfluence(t,
		progress(10, "RUNNING", ""),
		progress(40, "FAILED", ""),
		progress(100, "COMPLETE", "/wiki/rest/api/link/1"),
	)
	_, err := f.driver(t, Config{}).Export(context.Background(), page)
	require.ErrorIs(t, err, ErrJobFailed)
	assert.Equal(t, 2, f.get(&f.polls))
	assert.Equal(t, 0, f.get(&f.storageHit))
}

func TestExportTimesOut(t *testing.T) {
	f := newFakeConfluence(t, progress(50, "RUNNING", ""))
	_, err := f.driver(t, Config{MaxPollAttempts: 3}).Export(context.Background(), page)
	require.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrJobFailed)
	assert.Equal(t, 3, f.get(&f.polls))
}

func TestExportRetriesTransientPollErrors(t *testing.T) {
	f := newFakeConfluence(t,
		status(http.StatusBadGateway),
		status(http.StatusInternalServerError),
		progress(100, "COMPLETE", "/wiki/rest/api/link/1"),
	)
	_, err := f.driver(t, Config{}).Export(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, 3, f.get(&f.polls))
}

func TestExportTransientErrorsConsumeAttempts(t *testing.T) {
	f := newFakeConfluence(t, status(http.StatusServiceUnavailable))
	_, err := f.driver(t, Config{MaxPollAttempts: 2}).Export(context.Background(), page)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 2, f.get(&f.polls))
}

func TestExportNotFoundDuringPollingIsTerminal(t *testing.T) {
	f := newFakeConfluence(t, status(http.StatusNotFound))
	_, err := f.driver(t, Config{}).Export(context.Background(), page)
	require.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 1, f.get(&f.polls))
}

func TestExportMalformedProgressIsTerminal(t *testing.T) {
	f := newFakeConfluence(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	})
	_, err := f.driver(t, Config{}).Export(context.Background(), page)
	require.ErrorIs(t, err, ErrParse)
	assert.Equal(t, 1, f.get(&f.polls))
}

func TestExportCompletedWithoutResult(t *testing.T) {
	f := newFakeConfluence(t, progress(100, "COMPLETE", ""))
	_, err := f.driver(t, Config{}).Export(context.Background(), page)
	require.ErrorIs(t, err, ErrParse)
}

func TestExportMissingToken(t *testing.T) {
	f := newFakeConfluence(t, progress(100, "COMPLETE", "/wiki/rest/api/link/1"))
	f.update(func(f *fakeConfluence) { f.token = "" })
	_, err := f.driver(t, Config{}).Export(context.Background(), page)
	require.ErrorIs(t, err, ErrParse)
	assert.Equal(t, 0, f.get(&f.submits))
}

func TestExportMissingTaskID(t *testing.T) {
	f := newFakeConfluence(t, progress(100, "COMPLETE", "/wiki/rest/api/link/1"))
	f.update(func(f *fakeConfluence) { f.taskID = "" })
	_, err := f.driver(t, Config{}).Export(context.Background(), page)
	require.ErrorIs(t, err, ErrParse)
	assert.Equal(t, 0, f.get(&f.polls))
}

func TestExportInvalidFinalURL(t *testing.T) {
	f := newFakeConfluence(t, progress(100, "COMPLETE", "/wiki/rest/api/link/1"))
	f.update(func(f *fakeConfluence) { f.linkBody = "<html>login</html>" })
	_, err := f.driver(t, Config{}).Export(context.Background(), page)
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, f.get(&f.storageHit))
}

func TestExportRejectsNonPDFContentType(t *testing.T) {
	f := newFakeConfluence(t, progress(100, "COMPLETE", "/wiki/rest/api/link/1"))
	f.update(func(f *fakeConfluence) { f.storageCT = "text/html; charset=utf-8" })
	dir := t.TempDir()
	_, err := f.driver(t, Config{OutputDir: dir}).Export(context.Background(), page)
	require.ErrorIs(t, err, ErrValidation)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExportAcceptsOctetStream(t *testing.T) {
	f := newFakeConfluence(t, progress(100, "COMPLETE", "/wiki/rest/api/link/1"))
	f.update(func(f *fakeConfluence) { f.storageCT = "Application/Octet-Stream" })
	_, err := f.driver(t, Config{}).Export(context.Background(), page)
	require.NoError(t, err)
}

func TestExportVerifyPDFRejectsGarbage(t *testing.T) {
	f := newFakeConfluence(t, progress(100, "COMPLETE", "/wiki/rest/api/link/1"))
	dir := t.TempDir()
	_, err := f.driver(t, Config{OutputDir: dir, VerifyPDF: true}).Export(context.Background(), page)
	require.ErrorIs(t, err, ErrValidation)
	_, statErr := os.Stat(filepath.Join(dir, "A_B_Report.pdf"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExportAbsoluteResult(t *testing.T) {
	f := newFakeConfluence(t)
	f.update(func(f *fakeConfluence) {
		f.progress = []http.HandlerFunc{progress(100, "COMPLETE", f.wiki.URL+"/wiki/rest/api/link/2")}
	})
	_, err := f.driver(t, Config{}).Export(context.Background(), page)
	require.NoError(t, err)
}

func TestResolveResult(t *testing.T) {
	client, err := wiki.NewClient(wiki.Config{BaseURL: "https://x.atlassian.net:8443/wiki"}, nil)
	require.NoError(t, err)
	d := NewDriver(client, Config{}, nil)

	assert.Equal(t, "https://s3.example.com/a.pdf", d.ResolveResult("https://s3.example.com/a.pdf"))
	assert.Equal(t, "https://x.atlassian.net:8443/wiki/services/api/v1/download/1", d.ResolveResult("/wiki/services/api/v1/download/1"))
	assert.Equal(t, "https://x.atlassian.net:8443/download/1", d.ResolveResult("download/1"))
}
