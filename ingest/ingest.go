// Package ingest loads the files of a folder into a store collection.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/foomo/contentexport/metrics"
	"github.com/foomo/contentexport/scrape"
	"github.com/foomo/contentexport/service/vo"
	"github.com/foomo/contentexport/store"
	"go.uber.org/zap"
)

// Collection is the part of store.Collection ingestion needs.
type Collection interface {
	Get(ctx context.Context, opts store.GetOptions) (*store.GetResult, error)
	Add(ctx context.Context, ids, documents []string, metadatas []map[string]string) (int, error)
	Count(ctx context.Context) (int, error)
}

// PDFText returns the text of every page of a pdf file.
type PDFText func(path string) ([]string, error)

type Report struct {
	Folder string
	// Created is set when the folder did not exist and was created empty.
	Created bool
	// Found counts files of a supported type.
	Found   int
	Skipped int
	Empty   int
	Failed  int
	Added   int
	Total   int
}

type Option func(*Ingester)

func WithPDFText(fn PDFText) Option {
	return func(i *Ingester) { i.pdfText = fn }
}

func WithOutput(w io.Writer) Option {
	return func(i *Ingester) { i.out = w }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Ingester) { i.metrics = m }
}

type Ingester struct {
	collection Collection
	logger     *zap.Logger
	out        io.Writer
	pdfText    PDFText
	metrics    *metrics.Metrics
}

func New(collection Collection, logger *zap.Logger, opts ...Option) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	i := &Ingester{
		collection: collection,
		logger:     logger,
		out:        io.Discard,
		pdfText:    ReadPDFText,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// FileTypeOf classifies a file by its extension. ok is false for unsupported
// files.
func FileTypeOf(name string) (vo.FileType, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt":
		return vo.FileTypeTXT, true
	case ".pdf":
		return vo.FileTypePDF, true
	case ".md", ".markdown":
		return vo.FileTypeMarkdown, true
	case ".html", ".htm":
		return vo.FileTypeHTML, true
	default:
		return "", false
	}
}

// Run adds every supported file directly inside folder that is not in the
// collection yet. Sub folders are ignored. Files that cannot be read are
// reported and skipped.
func (i *Ingester) Run(ctx context.Context, folder string) (*Report, error) {
	report := &Report{Folder: folder}

	entries, err := os.ReadDir(folder)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(folder, 0o755); err != nil {
			return nil, fmt.Errorf("create documents folder %s: %w", folder, err)
		}
		report.Created = true
		i.logger.Info("documents folder created", zap.String("folder", folder))
		fmt.Fprintf(i.out, "Folder %q created. Add .txt, .pdf, .md or .html files to it.\n", folder)
	} else if err != nil {
		return nil, fmt.Errorf("read documents folder %s: %w", folder, err)
	}

	type candidate struct {
		name, path string
		fileType   vo.FileType
	}
	var (
		candidates []candidate
		ids        []string
	)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		fileType, ok := FileTypeOf(entry.Name())
		if !ok {
			continue
		}
		path := filepath.Join(folder, entry.Name())
		candidates = append(candidates, candidate{name: entry.Name(), path: path, fileType: fileType})
		ids = append(ids, vo.DocumentID(path))
	}
	report.Found = len(candidates)

	existing, err := i.existing(ctx, ids)
	if err != nil {
		return nil, err
	}

	var docs []vo.Document
	for _, c := range candidates {
		doc := vo.Document{
			ID:       vo.DocumentID(c.path),
			Metadata: vo.DocumentMetadata{SourceFile: c.name, FileType: c.fileType},
		}
		if _, ok := existing[doc.ID]; ok {
			report.Skipped++
			fmt.Fprintf(i.out, "  - %s already ingested (ID: %s), skipping\n", c.name, doc.ID)
			continue
		}
		text, err := i.extract(c.path, c.fileType)
		if err != nil {
			report.Failed++
			i.logger.Error("failed to read document", zap.String("path", c.path), zap.Error(err))
			fmt.Fprintf(i.out, "  - error reading %s: %v\n", c.name, err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			report.Empty++
			fmt.Fprintf(i.out, "  - %s (%s) has no extractable text, skipping\n", c.name, c.fileType)
			continue
		}
		doc.Text = text
		docs = append(docs, doc)
		fmt.Fprintf(i.out, "  - %s read (ID: %s)\n", c.name, doc.ID)
	}

	if report.Found == 0 {
		fmt.Fprintf(i.out, "No supported files found in %q.\n", folder)
	}
	if len(docs) > 0 {
		added, err := i.add(ctx, docs)
		if err != nil {
			return nil, err
		}
		report.Added = added
		fmt.Fprintf(i.out, "%d new documents added.\n", added)
	} else if report.Found > 0 {
		fmt.Fprintln(i.out, "No new documents to add.")
	}
	i.metrics.AddIngested(report.Added, report.Skipped)

	if report.Total, err = i.collection.Count(ctx); err != nil {
		return nil, err
	}
	i.logger.Info("ingestion finished",
		zap.String("folder", folder),
		zap.Int("found", report.Found),
		zap.Int("added", report.Added),
		zap.Int("skipped", report.Skipped),
		zap.Int("total", report.Total),
	)
	return report, nil
}

func (i *Ingester) existing(ctx context.Context, ids []string) (map[string]struct{}, error) {
	seen := map[string]struct{}{}
	if len(ids) == 0 {
		return seen, nil
	}
	got, err := i.collection.Get(ctx, store.GetOptions{IDs: ids, Include: []store.Include{store.IncludeMetadatas}})
	if err != nil {
		return nil, fmt.Errorf("look up ingested documents: %w", err)
	}
	for _, id := range got.IDs {
		seen[id] = struct{}{}
	}
	return seen, nil
}

func (i *Ingester) add(ctx context.Context, docs []vo.Document) (int, error) {
	ids := make([]string, len(docs))
	texts := make([]string, len(docs))
	metas := make([]map[string]string, len(docs))
	for n, doc := range docs {
		ids[n] = doc.ID
		texts[n] = doc.Text
		metas[n] = doc.Metadata.Map()
	}
	added, err := i.collection.Add(ctx, ids, texts, metas)
	if err != nil {
		return 0, fmt.Errorf("add documents: %w", err)
	}
	return added, nil
}

func (i *Ingester) extract(path string, fileType vo.FileType) (string, error) {
	switch fileType {
	case vo.FileTypePDF:
		pages, err := i.pdfText(path)
		if err != nil {
			return "", err
		}
		var nonEmpty []string
		for _, p := range pages {
			if p != "" {
				nonEmpty = append(nonEmpty, p)
			}
		}
		return strings.Join(nonEmpty, "\n"), nil
	case vo.FileTypeHTML:
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		title, markdown, err := scrape.Markdown(f)
		if err != nil {
			return "", err
		}
		if title != "" && strings.TrimSpace(markdown) != "" && !strings.Contains(markdown, title) {
			markdown = "# " + title + "\n\n" + markdown
		}
		return markdown, nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
