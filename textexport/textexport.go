// Package textexport writes the documents of a collection to one flat text
// file.
package textexport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/foomo/contentexport/store"
	"go.uber.org/zap"
)

const missingContent = "Content not available"

// Source is the part of store.Collection the export reads.
type Source interface {
	Get(ctx context.Context, opts store.GetOptions) (*store.GetResult, error)
	Count(ctx context.Context) (int, error)
}

// WriteFile exports name into path, replacing the file. It returns the number
// of documents written.
func WriteFile(ctx context.Context, src Source, name, path string, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := Write(ctx, f, src, name)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, err
	}
	logger.Info("collection exported", zap.String("collection", name), zap.String("path", path), zap.Int("documents", n))
	return n, nil
}

// Write formats every document of src in insertion order. An empty
// collection yields a single placeholder line.
func Write(ctx context.Context, w io.Writer, src Source, name string) (int, error) {
	count, err := src.Count(ctx)
	if err != nil {
		return 0, err
	}
	bw := bufio.NewWriter(w)
	if count == 0 {
		fmt.Fprintf(bw, "Collection %q contains no documents.\n", name)
		return 0, bw.Flush()
	}

	data, err := src.Get(ctx, store.GetOptions{Include: []store.Include{store.IncludeDocuments, store.IncludeMetadatas}})
	if err != nil {
		return 0, fmt.Errorf("read collection %s: %w", name, err)
	}
	for i, id := range data.IDs {
		text := data.Documents[i]
		if text == "" {
			text = missingContent
		}
		fmt.Fprintf(bw, "--- Begin Document (ID: %s) ---\n", id)
		if source := sourceLine(data.Metadatas[i]); source != "" {
			fmt.Fprintln(bw, source)
		}
		fmt.Fprintln(bw, "Content:")
		fmt.Fprint(bw, text)
		fmt.Fprint(bw, "\n--- End Document ---\n\n")
	}
	return len(data.IDs), bw.Flush()
}

func sourceLine(meta map[string]string) string {
	source := meta["source_file"]
	if source == "" {
		return ""
	}
	line := "Original source: " + source
	if fileType := meta["file_type"]; fileType != "" {
		line += " (Type: " + fileType + ")"
	}
	return line
}
