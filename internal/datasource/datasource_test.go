package datasource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etlcore/internal/datasource/httpds"
)

func TestResolve_Local(t *testing.T) {
	t.Parallel()

	src, cleanup, err := Resolver{}.Resolve(context.Background(), "data/in.csv")
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, "data/in.csv", src.Path())
}

func TestResolve_RemoteWithoutClient(t *testing.T) {
	t.Parallel()

	_, cleanup, err := Resolver{}.Resolve(context.Background(), "https://example.com/a.csv")
	require.Error(t, err)
	require.NotNil(t, cleanup)
}

func TestResolve_RemoteDownloadsAndCleansUp(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("id\n1\n"))
	}))
	defer srv.Close()

	r := Resolver{Client: httpds.NewClient(httpds.Config{})}
	src, cleanup, err := r.Resolve(context.Background(), srv.URL+"/files/in.csv")
	require.NoError(t, err)

	assert.Equal(t, "in.csv", filepath.Base(src.Path()))
	n, err := src.Size()
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	cleanup()
	_, err = os.Stat(src.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestResolve_RemoteIntoDir(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"a":1}]`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	r := Resolver{Client: httpds.NewClient(httpds.Config{}), Dir: dir}
	src, cleanup, err := r.Resolve(context.Background(), srv.URL+"/x.json")
	require.NoError(t, err)
	cleanup()

	assert.Equal(t, filepath.Join(dir, "x.json"), src.Path())
	_, err = os.Stat(src.Path())
	assert.NoError(t, err)
}
