// Package format names the file formats the pipeline reads and writes and
// the error returned for anything else.
package format

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Format is a tabular file format.
type Format string

const (
	CSV     Format = "csv"
	XLSX    Format = "xlsx"
	XLS     Format = "xls"
	JSON    Format = "json"
	Parquet Format = "parquet"
)

// UnsupportedFormatError reports an input extension or output format the
// pipeline cannot handle.
type UnsupportedFormatError struct {
	Op    string // "read" or "write"
	Value string // offending path or format name
}

func (e *UnsupportedFormatError) Error() string {
	if e.Op == "read" {
		return fmt.Sprintf("unsupported file format: %s", e.Value)
	}
	return fmt.Sprintf("unsupported output format: %s", e.Value)
}

// FromPath selects the input format from a file path or URL extension.
// There is no content sniffing.
func FromPath(p string) (Format, error) {
	switch strings.ToLower(path.Ext(localPath(p))) {
	case ".csv":
		return CSV, nil
	case ".xlsx":
		return XLSX, nil
	case ".xls":
		return XLS, nil
	case ".json":
		return JSON, nil
	case ".parquet":
		return Parquet, nil
	}
	return "", &UnsupportedFormatError{Op: "read", Value: p}
}

// Stem returns the base name of a file path or URL path without its
// extension. Query strings and fragments are ignored.
func Stem(p string) string {
	base := path.Base(localPath(p))
	return strings.TrimSuffix(base, path.Ext(base))
}

// localPath strips a URL down to its path and uses forward slashes.
func localPath(p string) string {
	name := p
	if u, err := url.Parse(p); err == nil && u.Scheme != "" && u.Path != "" && len(u.Scheme) > 1 {
		name = u.Path
	}
	return strings.ReplaceAll(name, `\`, "/")
}

// ParseOutput validates a configured output format name.
func ParseOutput(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, JSON, Parquet:
		return f, nil
	}
	return "", &UnsupportedFormatError{Op: "write", Value: s}
}
