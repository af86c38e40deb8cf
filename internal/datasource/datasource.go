// Package datasource turns an input reference into a local file the readers
// can open. References are local paths or http(s) URLs; remote inputs are
// downloaded first.
package datasource

import (
	"context"
	"fmt"
	"io"
	"os"

	"etlcore/internal/datasource/file"
	"etlcore/internal/datasource/httpds"
)

// Source is an input available on the local filesystem.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Path() string
	Size() (int64, error)
}

// Resolver maps references to Sources. The zero value handles local paths
// only; remote references need Client.
type Resolver struct {
	Client *httpds.Client
	// Dir receives downloads. When empty a fresh temp dir is created per
	// download and removed by the returned cleanup.
	Dir string
}

// Resolve returns a Source for ref and a cleanup func that is always non-nil.
func (r Resolver) Resolve(ctx context.Context, ref string) (Source, func(), error) {
	noop := func() {}
	if !httpds.IsRemote(ref) {
		return file.NewLocal(ref), noop, nil
	}
	if r.Client == nil {
		return nil, noop, fmt.Errorf("datasource: remote input %s: no http client configured", ref)
	}

	dir, cleanup := r.Dir, noop
	if dir == "" {
		tmp, err := os.MkdirTemp("", "etl-input-*")
		if err != nil {
			return nil, noop, fmt.Errorf("datasource: temp dir: %w", err)
		}
		dir, cleanup = tmp, func() { _ = os.RemoveAll(tmp) }
	}
	p, err := r.Client.Download(ctx, ref, dir)
	if err != nil {
		cleanup()
		return nil, noop, err
	}
	return file.NewLocal(p), cleanup, nil
}
