// Package fetch retrieves a foreign archive over HTTP so the builder can
// accept URLs as well as local paths. One blocking GET per archive; no
// retries, no resume.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	npkerrors "github.com/nasforge/npk/pkg/npk/errors"
)

// newClient builds the HTTP client: a generous timeout for large archives
// and a hard redirect cap.
func newClient() *http.Client {
	return &http.Client{
		Timeout: 5 * time.Minute,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
}

// IsURL reports whether the argument is an http(s) URL rather than a local
// path.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Archive downloads rawURL into destDir and returns the local file path.
// Any non-2xx status or empty body is a hard failure.
func Archive(ctx context.Context, rawURL, destDir string, logger hclog.Logger) (string, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger.Info("🌐 fetching archive", "url", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", npkerrors.Resolution("fetch archive", err)
	}

	resp, err := newClient().Do(req)
	if err != nil {
		return "", npkerrors.Resolution("fetch archive", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", npkerrors.Resolution("fetch archive",
			fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	name := path.Base(resp.Request.URL.Path)
	if name == "" || name == "/" || name == "." {
		name = "archive"
	}
	filePath := filepath.Join(destDir, name)

	file, err := os.Create(filePath)
	if err != nil {
		return "", npkerrors.Resolution("fetch archive", err)
	}

	written, err := io.Copy(file, resp.Body)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(filePath)
		return "", npkerrors.Resolution("fetch archive", err)
	}
	if written == 0 {
		os.Remove(filePath)
		return "", npkerrors.Resolution("fetch archive", fmt.Errorf("empty response body"))
	}

	logger.Info("⬇️ archive fetched", "file", filePath, "bytes", written)
	return filePath, nil
}
