package ingest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/foomo/contentexport/embed"
	"github.com/foomo/contentexport/metrics"
	"github.com/foomo/contentexport/service/vo"
	"github.com/foomo/contentexport/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newCollection(t *testing.T) *store.Collection {
	t.Helper()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	c, err := s.GetOrCreateCollection(context.Background(), "shared", embed.NewHashing(32))
	require.NoError(t, err)
	return c
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func fakePDF(pages map[string][]string) PDFText {
	return func(path string) ([]string, error) {
		p, ok := pages[filepath.Base(path)]
		if !ok {
			return nil, errors.New("broken pdf")
		}
		return p, nil
	}
}

func TestRunIngestsSupportedFilesOnce(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "plain text")
	writeFile(t, dir, "b.pdf", "ignored by fake")
	writeFile(t, dir, "c.md", "# Heading\n\nbody")
	writeFile(t, dir, "d.html", `<html><head><title>Guide</title></head><body><p>Hello <script>alert(1)</script><b>world</b></p></body></html>`)
	writeFile(t, dir, "e.jpg", "binary")
	writeFile(t, dir, "empty.txt", "  \n ")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.txt"), 0o755))

	c := newCollection(t)
	m := metrics.New()
	var out bytes.Buffer
	ing := New(c, zaptest.NewLogger(t),
		WithPDFText(fakePDF(map[string][]string{"b.pdf": {"page one", "", "page three"}})),
		WithOutput(&out),
		WithMetrics(m),
	)

	report, err := ing.Run(ctx, dir)
	require.NoError(t, err)
	assert.False(t, report.Created)
	assert.Equal(t, 5, report.Found)
	assert.Equal(t, 4, report.Added)
	assert.Equal(t, 1, report.Empty)
	assert.Equal(t, 4, report.Total)

	got, err := c.Get(ctx, store.GetOptions{})
	require.NoError(t, err)
	require.Len(t, got.IDs, 4)
	assert.Equal(t, vo.DocumentID(filepath.Join(dir, "a.txt")), got.IDs[0])
	assert.Equal(t, map[string]string{"source_file": "a.txt", "file_type": "txt"}, got.Metadatas[0])
	assert.Equal(t, "page one\npage three", got.Documents[1])
	assert.Equal(t, "md", got.Metadatas[2]["file_type"])
	assert.Contains(t, got.Documents[3], "Guide")
	assert.Contains(t, got.Documents[3], "**world**")
	assert.NotContains(t, got.Documents[3], "alert")

	report, err = ing.Run(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Added)
	assert.Equal(t, 4, report.Skipped)
	assert.Equal(t, 4, report.Total)
	assert.Contains(t, out.String(), "No new documents to add.")
}

func TestRunCreatesMissingFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shared")
	var out bytes.Buffer
	report, err := New(newCollection(t), nil, WithOutput(&out)).Run(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, report.Created)
	assert.Zero(t, report.Found)
	assert.DirExists(t, dir)
	assert.Contains(t, out.String(), "created")
}

func TestRunSkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.pdf", "not a pdf")
	writeFile(t, dir, "ok.txt", "fine")

	report, err := New(newCollection(t), zaptest.NewLogger(t), WithPDFText(fakePDF(nil))).Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Added)
}

func TestFileTypeOf(t *testing.T) {
	tests := map[string]vo.FileType{
		"a.TXT":      vo.FileTypeTXT,
		"b.pdf":      vo.FileTypePDF,
		"c.markdown": vo.FileTypeMarkdown,
		"d.htm":      vo.FileTypeHTML,
	}
	for name, want := range tests {
		got, ok := FileTypeOf(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := FileTypeOf("e.docx")
	assert.False(t, ok)
}

func TestReadPDFTextRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.pdf", "definitely not a pdf")
	_, err := ReadPDFText(filepath.Join(dir, "broken.pdf"))
	require.Error(t, err)
}
