// Package scrape parses HTML returned by the content service. It only knows
// how to read named meta tags and how to turn a page into markdown.
package scrape

import (
	"bytes"
	"fmt"
	"io"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

const (
	// MetaAtlassianToken carries the CSRF token on a page view.
	MetaAtlassianToken = "atlassian-token"
	// MetaTaskID carries the export task id on the export progress page.
	MetaTaskID = "ajs-taskId"
)

type Document struct {
	root *html.Node
}

func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{root: root}, nil
}

// Meta returns the content of the named meta tag or an empty string.
func (d *Document) Meta(name string) string {
	return findMeta(d.root, name)
}

func (d *Document) Title() string {
	return extractTitle(d.root)
}

// Markdown converts the document body into markdown.
func (d *Document) Markdown() (string, error) {
	node := findNodeByTag(d.root, "body")
	if node == nil {
		node = d.root
	}
	markdownBytes, err := htmltomarkdown.ConvertNode(node)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	return string(markdownBytes), nil
}

// Markdown sanitizes untrusted HTML and converts it into markdown.
func Markdown(r io.Reader) (title, markdown string, err error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", "", fmt.Errorf("failed to read HTML: %w", err)
	}
	// title lives in <head>, which the UGC policy strips
	original, err := Parse(bytes.NewReader(raw))
	if err != nil {
		return "", "", err
	}
	sanitized := bluemonday.UGCPolicy().SanitizeBytes(raw)
	doc, err := Parse(bytes.NewReader(sanitized))
	if err != nil {
		return "", "", err
	}
	markdown, err = doc.Markdown()
	if err != nil {
		return "", "", err
	}
	return original.Title(), markdown, nil
}
