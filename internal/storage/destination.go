package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"etlcore/internal/format"
)

// ArtifactName is the file name synthesized for directory destinations.
func ArtifactName(f format.Format, now time.Time) string {
	return fmt.Sprintf("processed_data_%s.%s", now.Format("20060102_150405"), f)
}

// IsS3 reports whether dest is an s3://bucket/key URL.
func IsS3(dest string) bool { return strings.HasPrefix(dest, "s3://") }

// ResolveDestination turns a configured destination into a file path. A
// destination ending in a separator, or naming an existing directory, gets
// ArtifactName appended. Parent directories are created. s3:// destinations
// follow the same naming rule but touch no local directories.
func ResolveDestination(dest string, f format.Format, now time.Time) (string, error) {
	if strings.TrimSpace(dest) == "" {
		return "", fmt.Errorf("storage: empty destination")
	}
	if IsS3(dest) {
		if strings.HasSuffix(dest, "/") {
			return dest + ArtifactName(f, now), nil
		}
		return dest, nil
	}

	out := dest
	if isDirLike(dest) {
		out = filepath.Join(dest, ArtifactName(f, now))
	}
	if dir := filepath.Dir(out); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("storage: create %s: %w", dir, err)
		}
	}
	return out, nil
}

func isDirLike(p string) bool {
	if strings.HasSuffix(p, "/") || strings.HasSuffix(p, string(os.PathSeparator)) {
		return true
	}
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}
