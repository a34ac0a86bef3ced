package gateways

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	uerrors "github.com/ochairo/unipkg/internal/domain/errors"
	"github.com/ochairo/unipkg/internal/domain/interfaces"
)

const userAgent = "unipkg/1.0"

// Downloader fetches remote inputs over HTTP(S)
type Downloader struct {
	httpClient *http.Client
	progress   io.Writer
	logger     interfaces.Logger
}

// NewDownloader creates a downloader. When progress is non-nil a byte
// progress bar is drawn on it during transfers.
func NewDownloader(progress io.Writer, logger interfaces.Logger) *Downloader {
	return &Downloader{
		httpClient: &http.Client{
			Timeout: 30 * time.Minute, // Long timeout for large application images
		},
		progress: progress,
		logger:   interfaces.OrNoOp(logger).Named("download"),
	}
}

// ParseRemoteURL validates an http(s) descriptor
func ParseRemoteURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, uerrors.Wrap(err, uerrors.KindInvalidURL, "invalid URL %q", rawURL)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, uerrors.New(uerrors.KindInvalidURL, "invalid URL %q: scheme must be http or https", rawURL)
	}
	if u.Host == "" {
		return nil, uerrors.New(uerrors.KindInvalidURL, "invalid URL %q: missing host", rawURL)
	}
	return u, nil
}

// RemoteFileName derives the local file name for a remote input: the last
// path segment, or "download" plus the path's extension when there is none.
func RemoteFileName(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "download" + path.Ext(strings.TrimSuffix(u.Path, "/"))
	}
	return name
}

// Fetch downloads rawURL into destDir and returns the local file path.
// A partially written file is removed on failure.
func (d *Downloader) Fetch(ctx context.Context, rawURL, destDir string) (string, error) {
	u, err := ParseRemoteURL(rawURL)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(destDir, RemoteFileName(u))
	d.logger.Info("downloading", interfaces.F("url", u.Redacted()), interfaces.F("dest", dest))

	written, err := d.downloadFile(ctx, u.String(), dest)
	if err != nil {
		_ = os.Remove(dest)
		return "", uerrors.Wrap(err, uerrors.KindDownloadFailed, "download of %s failed", u.Redacted())
	}

	d.logger.Debug("download complete", interfaces.F("file", filepath.Base(dest)), interfaces.F("bytes", written))
	return dest, nil
}

// downloadFile downloads a file from URL to destination
func (d *Downloader) downloadFile(ctx context.Context, rawURL, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	//nolint:gosec // G304: dest is built from a sanitized path segment inside destDir
	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	//nolint:errcheck // Defer close on file being written
	defer out.Close()

	var w io.Writer = out
	if d.progress != nil {
		bar := progressbar.NewOptions64(
			resp.ContentLength,
			progressbar.OptionSetWriter(d.progress),
			progressbar.OptionSetDescription(filepath.Base(dest)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(25),
			progressbar.OptionClearOnFinish(),
		)
		//nolint:errcheck // progress rendering is advisory
		defer bar.Finish()
		w = io.MultiWriter(out, bar)
	}

	written, err := io.Copy(w, resp.Body)
	if err != nil {
		return written, fmt.Errorf("failed to write file: %w", err)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		return written, fmt.Errorf("short body: got %d of %d bytes", written, resp.ContentLength)
	}
	return written, nil
}
