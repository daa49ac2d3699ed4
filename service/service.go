// Package service runs the recursive export: resolve the root pages, walk the
// hierarchy, export every discovered page and report what happened.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/foomo/contentexport/metrics"
	"github.com/foomo/contentexport/service/vo"
	"github.com/foomo/contentexport/wiki"
	"go.uber.org/zap"
)

// ErrNoPages is returned when no root page could be resolved.
var ErrNoPages = errors.New("no pages found")

type PageSource interface {
	Page(ctx context.Context, id string) (vo.PageRef, error)
	SpacePages(ctx context.Context, spaceKey string) ([]vo.PageRef, error)
}

type Walker interface {
	Walk(ctx context.Context, roots []vo.PageRef, onVisit func(vo.Visit)) *wiki.WalkResult
}

// Exporter writes one page as pdf and returns the file path.
type Exporter interface {
	Export(ctx context.Context, page vo.PageRef) (string, error)
}

type Settings struct {
	SpaceKey string
	// ParentPageID limits the run to one subtree. Empty means all pages of
	// the space.
	ParentPageID string
	OutputDir    string
	// LogFile is pointed to in the summary when exports failed.
	LogFile string
}

type Failure struct {
	Page vo.PageRef
	Err  error
}

type Report struct {
	Visits    []vo.Visit
	Pages     []vo.PageRef
	Exported  map[string]string
	Failures  []Failure
	Succeeded int
}

func (r *Report) Failed() int {
	return len(r.Failures)
}

type Option func(*Service)

func WithOutput(w io.Writer) Option {
	return func(s *Service) { s.out = w }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

type Service struct {
	pages    PageSource
	walker   Walker
	exporter Exporter
	settings Settings
	logger   *zap.Logger
	metrics  *metrics.Metrics
	out      io.Writer
}

func NewService(pages PageSource, walker Walker, exporter Exporter, settings Settings, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		pages:    pages,
		walker:   walker,
		exporter: exporter,
		settings: settings,
		logger:   logger,
		out:      os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run exports every page below the configured roots exactly once, in the
// order the walk discovered them. Failing pages are tallied and never abort
// the run.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	p := newPrinter(s.out)
	p.header(s.settings)

	roots, err := s.roots(ctx)
	if err != nil {
		p.problem(err.Error())
		return nil, err
	}

	p.section(s.listingContext())
	result := s.walker.Walk(ctx, roots, p.visit)
	report := &Report{
		Visits:   result.Visits,
		Pages:    result.Summary.Pages(),
		Exported: map[string]string{},
	}
	s.metrics.AddDiscovered(len(report.Pages))
	s.logger.Info("hierarchy walked",
		zap.Int("visits", len(report.Visits)),
		zap.Int("pages", len(report.Pages)),
		zap.Int("expanded", result.Expanded),
	)

	p.section("PDF export")
	if len(report.Pages) == 0 {
		p.line("No pages identified for PDF export.")
		p.listing(report.Pages)
		return report, nil
	}
	if err := os.MkdirAll(s.settings.OutputDir, 0o755); err != nil {
		return report, fmt.Errorf("create output directory %s: %w", s.settings.OutputDir, err)
	}
	p.line(fmt.Sprintf("Saving %d unique pages to %s", len(report.Pages), s.settings.OutputDir))

	for i, page := range report.Pages {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		p.progress(page, i+1, len(report.Pages))
		path, err := s.exporter.Export(ctx, page)
		s.metrics.ObserveExport(err)
		if err != nil {
			s.logger.Error("page export failed",
				zap.String("pageID", page.ID),
				zap.String("title", page.Title),
				zap.Error(err),
			)
			report.Failures = append(report.Failures, Failure{Page: page, Err: err})
			p.failed(page)
			continue
		}
		report.Succeeded++
		report.Exported[page.ID] = path
		p.saved(path)
	}

	p.totals(report, s.settings.LogFile)
	p.listing(report.Pages)
	return report, nil
}

func (s *Service) roots(ctx context.Context) ([]vo.PageRef, error) {
	return resolveRoots(ctx, s.pages, s.settings.SpaceKey, s.settings.ParentPageID, s.logger)
}

// resolveRoots returns the parent page when one is given, else all pages of
// the space.
func resolveRoots(ctx context.Context, pages PageSource, spaceKey, parentPageID string, logger *zap.Logger) ([]vo.PageRef, error) {
	if parentPageID != "" {
		page, err := pages.Page(ctx, parentPageID)
		if err != nil {
			logger.Error("failed to fetch parent page", zap.String("pageID", parentPageID), zap.Error(err))
			return nil, fmt.Errorf("%w: parent page %s: %w", ErrNoPages, parentPageID, err)
		}
		return []vo.PageRef{page}, nil
	}

	roots, err := pages.SpacePages(ctx, spaceKey)
	if err != nil {
		logger.Error("failed to list pages of space", zap.String("space", spaceKey), zap.Error(err))
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("%w: no top level pages in space %s", ErrNoPages, spaceKey)
	}
	return roots, nil
}

func (s *Service) listingContext() string {
	if s.settings.ParentPageID != "" {
		return fmt.Sprintf("Pages below parent page %s (recursive)", s.settings.ParentPageID)
	}
	return fmt.Sprintf("Pages of space %s (recursive)", s.settings.SpaceKey)
}
