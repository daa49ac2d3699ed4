package export

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"
)

var pdfContentTypes = []string{"application/pdf", "application/octet-stream"}

// newDownloadClient builds a client without credentials. The final url is a
// pre-signed object storage link which rejects extra auth headers.
func newDownloadClient(cfg Config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return &http.Client{Timeout: cfg.DownloadTimeout, Transport: transport}
}

func isPDFContentType(contentType string) bool {
	contentType = strings.ToLower(contentType)
	for _, t := range pdfContentTypes {
		if strings.Contains(contentType, t) {
			return true
		}
	}
	return false
}

// download streams rawURL into path. An existing file at path is overwritten.
func (d *Driver) download(ctx context.Context, rawURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: invalid download url: %w", ErrValidation, err)
	}
	resp, err := d.downloadClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrTransport, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: download failed with status: %d", ErrTransport, resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if !isPDFContentType(contentType) {
		return fmt.Errorf("%w: unexpected content type %q", ErrValidation, contentType)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	// plain wrappers keep io.CopyBuffer from bypassing the fixed chunk size
	written, err := io.CopyBuffer(struct{ io.Writer }{f}, struct{ io.Reader }{resp.Body}, make([]byte, d.cfg.ChunkSize))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("%w: write %s: %w", ErrTransport, path, err)
	}
	d.logger.Debug("download written", zap.String("path", path), zap.Int64("bytes", written))

	if d.cfg.VerifyPDF {
		if err := api.ValidateFile(path, model.NewDefaultConfiguration()); err != nil {
			_ = os.Remove(path)
			return fmt.Errorf("%w: %s is not a valid pdf: %w", ErrValidation, path, err)
		}
	}
	return nil
}
