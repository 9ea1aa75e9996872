package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/config"
	errs "github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/errors"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/logger"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/retry"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	return NewClient(&config.SiteConfig{
		UserAgent:      "test-agent",
		CookieHeader:   "session=abc",
		RequestTimeout: 5 * time.Second,
	}, nil, logger.NewNopLogger())
}

func fastPolicy(attempts int) *retry.Policy {
	return retry.NewPolicy(attempts, time.Millisecond, 5*time.Millisecond, 0)
}

func TestDoAppliesIdentity(t *testing.T) {
	var gotUA, gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCookie = r.Header.Get("Cookie")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	resp, err := testClient(t).Do(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if gotUA != "test-agent" {
		t.Errorf("user agent = %q, want test-agent", gotUA)
	}
	if gotCookie != "session=abc" {
		t.Errorf("cookie = %q, want session=abc", gotCookie)
	}
}

func TestDoClassifiesStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantType errs.ErrorType
	}{
		{"not found is fatal", http.StatusNotFound, errs.ErrorTypeFatal},
		{"forbidden is fatal", http.StatusForbidden, errs.ErrorTypeFatal},
		{"too many requests is transient", http.StatusTooManyRequests, errs.ErrorTypeTransient},
		{"bad gateway is transient", http.StatusBadGateway, errs.ErrorTypeTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := testClient(t).Do(context.Background(), server.URL)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errs.TypeOf(err); got != tt.wantType {
				t.Errorf("error type = %v, want %v", got, tt.wantType)
			}
		})
	}
}

func TestFetchPageRetriesTransient(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("<html>page</html>"))
	}))
	defer server.Close()

	body, err := testClient(t).FetchPage(context.Background(), server.URL, fastPolicy(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "<html>page</html>" {
		t.Errorf("body = %q", body)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestFetchPageFatalNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testClient(t).FetchPage(context.Background(), server.URL, fastPolicy(5))
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 for a fatal status", calls)
	}
}

func TestFetchPageExhaustsBudget(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := testClient(t).FetchPage(context.Background(), server.URL, fastPolicy(3))
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}

	var ce *errs.Error
	if !errors.As(err, &ce) {
		t.Fatalf("expected classified error inside %v", err)
	}
	if ce.Type != errs.ErrorTypeTransient {
		t.Errorf("wrapped type = %v, want transient", ce.Type)
	}
}

func TestDownloadAssetAtomic(t *testing.T) {
	content := []byte("binary-asset-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "assets", "design.png")
	err := testClient(t).DownloadAsset(context.Background(), server.URL, dest, fastPolicy(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: %q", got)
	}

	// No temp residue next to the destination.
	entries, err := os.ReadDir(filepath.Dir(dest))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the final file, found %d entries", len(entries))
	}
}

func TestDownloadAssetFailureLeavesNoFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "design.png")
	err := testClient(t).DownloadAsset(context.Background(), server.URL, dest, fastPolicy(2))
	if err == nil {
		t.Fatal("expected error")
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("failed download must not leave a visible file")
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := testClient(t).Do(ctx, server.URL)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
