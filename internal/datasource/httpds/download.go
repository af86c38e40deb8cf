package httpds

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// nameCleaner replaces runs of characters unsafe in file names with "_".
var nameCleaner = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// HashString returns a stable SHA1 hex digest of s.
func HashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

// LocalName derives a file-system safe name for a downloaded URL. The last
// path segment is kept (its extension selects the reader); URLs without one
// fall back to a hash of the whole URL.
func LocalName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return HashString(rawURL)
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return HashString(rawURL)
	}
	clean := strings.Trim(nameCleaner.ReplaceAllString(base, "_"), "_")
	if clean == "" || strings.HasPrefix(clean, ".") {
		return HashString(rawURL) + clean
	}
	return clean
}

// Download fetches rawURL into dir and returns the local path. Non-2xx
// responses are errors. A partially written file is removed.
func (c *Client) Download(ctx context.Context, rawURL, dir string) (string, error) {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("httpds: GET %s: status %d", rawURL, resp.StatusCode)
	}

	dst := filepath.Join(dir, LocalName(rawURL))
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("httpds: create %s: %w", dst, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("httpds: download %s: %w", rawURL, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("httpds: close %s: %w", dst, err)
	}
	return dst, nil
}

// IsRemote reports whether src is an http or https URL.
func IsRemote(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
