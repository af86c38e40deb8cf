package httpds

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func fastClient(retries int) *Client {
	return NewClient(Config{
		MaxRetries:     retries,
		Timeout:        2 * time.Second,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{InsecureSkipVerify: true})
	if c.httpClient.Timeout <= 0 || c.initialBackoff <= 0 || c.maxBackoff <= 0 {
		t.Fatalf("defaults not applied: %+v", c)
	}
	if c.maxRetries != 0 {
		t.Fatalf("maxRetries=%d, want 0", c.maxRetries)
	}
	tp, ok := c.httpClient.Transport.(*http.Transport)
	if !ok || tp.TLSClientConfig == nil || !tp.TLSClientConfig.InsecureSkipVerify {
		t.Fatalf("expected insecure *http.Transport, got %T", c.httpClient.Transport)
	}
}

func TestGet_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resp, err := fastClient(3).Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("attempts=%d, want 3", got)
	}
}

func TestGet_StopsAfterMaxRetries(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := fastClient(2).Get(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("attempts=%d, want 3", got)
	}
}

func TestGet_NonRetryableStatus(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	resp, err := fastClient(5).Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound || atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("status=%d hits=%d, want 404 after one attempt", resp.StatusCode, hits)
	}
}

func TestGet_SendsHeaders(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer x" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{Headers: http.Header{"Authorization": {"Bearer x"}}})
	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}
}

func TestBackoffDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		initial time.Duration
		attempt int
		max     time.Duration
		want    time.Duration
	}{
		{100 * time.Millisecond, 0, time.Second, 100 * time.Millisecond},
		{100 * time.Millisecond, 1, time.Second, 200 * time.Millisecond},
		{100 * time.Millisecond, 2, time.Second, 400 * time.Millisecond},
		{600 * time.Millisecond, 1, time.Second, time.Second},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.initial.String()+"/attempt="+strconv.Itoa(tt.attempt), func(t *testing.T) {
			t.Parallel()
			if got := backoffDuration(tt.initial, tt.attempt, tt.max); got != tt.want {
				t.Fatalf("backoffDuration(%v, %d, %v) = %v, want %v", tt.initial, tt.attempt, tt.max, got, tt.want)
			}
		})
	}
}

func TestIsRetryableStatus(t *testing.T) {
	t.Parallel()

	for code, want := range map[int]bool{429: true, 500: true, 503: true, 200: false, 400: false, 404: false} {
		if got := isRetryableStatus(code); got != want {
			t.Fatalf("isRetryableStatus(%d)=%v, want %v", code, got, want)
		}
	}
}

func TestSleepWithContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepWithContext(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDownload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("a,b\n1,2\n"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := fastClient(0)

	p, err := c.Download(context.Background(), srv.URL+"/exports/data.csv?token=1", dir)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if filepath.Base(p) != "data.csv" {
		t.Fatalf("local name=%q, want data.csv", filepath.Base(p))
	}
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "a,b\n1,2\n" {
		t.Fatalf("content=%q err=%v", b, err)
	}

	if _, err := c.Download(context.Background(), srv.URL+"/missing.csv", dir); err == nil {
		t.Fatalf("expected error for 404")
	}
}

func TestLocalName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://example.com/a/b/report 2024.xlsx": "report_2024.xlsx",
		"https://example.com/data.parquet?x=1":     "data.parquet",
	}
	for in, want := range cases {
		if got := LocalName(in); got != want {
			t.Fatalf("LocalName(%q)=%q, want %q", in, got, want)
		}
	}
	if got := LocalName("https://example.com/"); got != HashString("https://example.com/") {
		t.Fatalf("expected hash fallback, got %q", got)
	}
	if HashString("x") != HashString("x") {
		t.Fatalf("HashString not stable")
	}
}

func TestIsRemote(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]bool{
		"http://h/x.csv":  true,
		"https://h/x.csv": true,
		"s3://b/k.csv":    false,
		"/tmp/x.csv":      false,
		`C:\x.csv`:        false,
	} {
		if got := IsRemote(in); got != want {
			t.Fatalf("IsRemote(%q)=%v, want %v", in, got, want)
		}
	}
}
