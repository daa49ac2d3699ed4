// Package export drives the asynchronous PDF export of a single page:
// token, job submission, polling, link resolution and download.
package export

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/foomo/contentexport/scrape"
	"github.com/foomo/contentexport/service/vo"
	"github.com/foomo/contentexport/wiki"
	"go.uber.org/zap"
)

const (
	DefaultPollInterval    = 10 * time.Second
	DefaultMaxPollAttempts = 30
	DefaultDownloadTimeout = 2 * wiki.DefaultRequestTimeout
	DefaultChunkSize       = 8192
)

const acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"

type Config struct {
	OutputDir       string
	PollInterval    time.Duration
	MaxPollAttempts uint
	DownloadTimeout time.Duration
	ChunkSize       int
	// VerifyPDF parses every downloaded file and rejects broken documents.
	VerifyPDF          bool
	InsecureSkipVerify bool
}

func (c *Config) defaults() {
	if c.PollInterval < 0 {
		c.PollInterval = 0
	}
	if c.MaxPollAttempts == 0 {
		c.MaxPollAttempts = DefaultMaxPollAttempts
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = DefaultDownloadTimeout
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
}

type Option func(*Driver)

// WithProgress registers a callback invoked after every poll response.
func WithProgress(fn func(page vo.PageRef, job vo.ExportJob)) Option {
	return func(d *Driver) { d.progress = fn }
}

// Driver exports pages one at a time. It is not safe for concurrent use.
type Driver struct {
	client         *wiki.Client
	downloadClient *http.Client
	cfg            Config
	logger         *zap.Logger
	progress       func(page vo.PageRef, job vo.ExportJob)
}

func NewDriver(client *wiki.Client, cfg Config, logger *zap.Logger, opts ...Option) *Driver {
	cfg.defaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Driver{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.downloadClient = newDownloadClient(cfg)
	return d
}

// Export runs the whole export for page and returns the written file path.
func (d *Driver) Export(ctx context.Context, page vo.PageRef) (string, error) {
	logger := d.logger.With(zap.String("pageID", page.ID), zap.String("title", page.Title))
	job := vo.ExportJob{PageID: page.ID, State: vo.JobStateQueued}

	viewURL := d.client.BaseURL() + "/pages/viewpage.action?pageId=" + url.QueryEscape(page.ID)
	token, err := d.acquireToken(ctx, viewURL)
	if err != nil {
		logger.Error("failed to acquire token", zap.String("url", viewURL), zap.Error(err))
		return "", err
	}
	logger.Debug("token acquired")

	progressPageURL, err := d.submitJob(ctx, &job, token, viewURL)
	if err != nil {
		logger.Error("failed to submit export job", zap.Error(err))
		return "", err
	}
	logger.Info("export job submitted", zap.String("taskID", job.TaskID))

	progressURL := d.client.BaseURL() + "/services/api/v1/task/" + url.PathEscape(job.TaskID) + "/progress"
	if err := d.poll(ctx, page, &job, progressURL, progressPageURL); err != nil {
		logger.Error("export job did not complete",
			zap.String("taskID", job.TaskID),
			zap.String("url", progressURL),
			zap.Error(err),
		)
		return "", err
	}
	logger.Info("export job completed", zap.String("taskID", job.TaskID), zap.String("result", job.ResultURL))

	linkURL := d.ResolveResult(job.ResultURL)
	downloadURL, err := d.finalURL(ctx, linkURL, progressURL)
	if err != nil {
		logger.Error("failed to resolve download url", zap.String("url", linkURL), zap.Error(err))
		return "", err
	}

	path := filepath.Join(d.cfg.OutputDir, SanitizeFilename(page.Title)+".pdf")
	if err := d.download(ctx, downloadURL, path); err != nil {
		logger.Error("failed to download pdf", zap.String("url", downloadURL), zap.Error(err))
		return "", err
	}
	logger.Info("pdf downloaded", zap.String("path", path))
	return path, nil
}

func (d *Driver) acquireToken(ctx context.Context, viewURL string) (string, error) {
	doc, _, err := d.client.GetHTML(ctx, viewURL, nil, http.Header{"Referer": {viewURL}})
	if err != nil {
		return "", classify(err)
	}
	token := doc.Meta(scrape.MetaAtlassianToken)
	if token == "" {
		return "", fmt.Errorf("%w: meta %q not found at %s", ErrParse, scrape.MetaAtlassianToken, viewURL)
	}
	return token, nil
}

// submitJob triggers the export and returns the url of the progress page.
func (d *Driver) submitJob(ctx context.Context, job *vo.ExportJob, token, viewURL string) (string, error) {
	exportURL := d.client.BaseURL() + "/spaces/flyingpdf/pdfpageexport.action"
	params := url.Values{
		"pageId":          {job.PageID},
		"atl_token":       {token},
		"unmatched-route": {"true"},
	}
	header := http.Header{
		"Referer": {viewURL},
		"Accept":  {acceptHTML},
	}
	doc, finalURL, err := d.client.GetHTML(ctx, exportURL, params, header)
	if err != nil {
		return "", classify(err)
	}
	taskID := doc.Meta(scrape.MetaTaskID)
	if taskID == "" {
		return "", fmt.Errorf("%w: meta %q not found on progress page %s", ErrParse, scrape.MetaTaskID, finalURL)
	}
	job.TaskID = taskID
	return finalURL, nil
}

// ResolveResult turns the job result into an absolute url. Relative results
// are resolved against the origin of the base url, ignoring its sub path.
func (d *Driver) ResolveResult(result string) string {
	if strings.HasPrefix(result, "http") {
		return result
	}
	if !strings.HasPrefix(result, "/") {
		result = "/" + result
	}
	return d.client.Origin() + result
}

func (d *Driver) finalURL(ctx context.Context, linkURL, referer string) (string, error) {
	body, err := d.client.GetText(ctx, linkURL, http.Header{
		"Accept":  {"text/plain, */*"},
		"Referer": {referer},
	})
	if err != nil {
		return "", classify(err)
	}
	if body == "" || !strings.HasPrefix(body, "http") {
		return "", fmt.Errorf("%w: no download url from %s, got %q", ErrValidation, linkURL, truncate(body, 200))
	}
	return body, nil
}

func classify(err error) error {
	if errors.Is(err, wiki.ErrDecode) {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
