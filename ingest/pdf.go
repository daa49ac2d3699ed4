package ingest

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ReadPDFText extracts the plain text of each page. Pages without a content
// stream yield an empty string.
func ReadPDFText(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for n := 1; n <= r.NumPage(); n++ {
		page := r.Page(n)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d of %s: %w", n, path, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
