// Package catalog provides the HTTP executor every crawl operation goes
// through. It owns the immutable request identity (user agent, session
// cookie), the shared rate limiter and the transient/fatal classification of
// failures; retry scheduling is delegated to the policy each call site passes
// in.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/config"
	errs "github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/errors"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/logger"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/ratelimit"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/retry"
)

// Client executes catalog requests with a fixed identity. Headers and the
// session cookie are set once at construction and applied to every request;
// call sites cannot mutate them.
type Client struct {
	httpClient   *http.Client
	userAgent    string
	cookieHeader string
	limiter      ratelimit.Limiter
	logger       logger.Logger
}

// NewClient builds an executor from the site configuration. A nil limiter
// disables pacing, which only tests should do.
func NewClient(cfg *config.SiteConfig, limiter ratelimit.Limiter, log logger.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		userAgent:    cfg.UserAgent,
		cookieHeader: cfg.CookieHeader,
		limiter:      limiter,
		logger:       log,
	}
}

// Do performs a single GET attempt against url. The response is classified:
// a non-nil error is always a *errors.Error carrying transient or fatal, and
// a nil error guarantees a 2xx response whose body the caller must close.
func (c *Client) Do(ctx context.Context, url string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Fatal(0, "building request for %s: %v", url, err)
	}
	c.applyIdentity(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithField("url", url).WithError(err).Debug("HTTP request failed")
		return nil, errs.ClassifyNetworkError(err)
	}

	logger.LogRequest(http.MethodGet, url, resp.StatusCode, float64(time.Since(start).Milliseconds()))

	if cerr := errs.ClassifyStatusCode(resp.StatusCode); cerr != nil {
		resp.Body.Close()
		return nil, cerr
	}
	return resp, nil
}

// FetchPage retrieves url as a page body under the supplied retry policy
func (c *Client) FetchPage(ctx context.Context, url string, policy *retry.Policy) (string, error) {
	return retry.DoWithResult(func() (string, error) {
		resp, err := c.Do(ctx, url)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", errs.ClassifyNetworkError(err)
		}
		return string(body), nil
	}, policy.WithContext(ctx))
}

// DownloadAsset streams url into destPath under the supplied retry policy.
// The file appears atomically: a partial download never leaves a visible
// file behind, so existence of destPath always means a complete asset.
func (c *Client) DownloadAsset(ctx context.Context, url, destPath string, policy *retry.Policy) error {
	return retry.Do(func() error {
		resp, err := c.Do(ctx, url)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		return writeAtomic(destPath, resp.Body)
	}, policy.WithContext(ctx))
}

func (c *Client) applyIdentity(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.cookieHeader != "" {
		req.Header.Set("Cookie", c.cookieHeader)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}

// writeAtomic saves body to path via a temp file in the same directory,
// fsyncs, then renames into place.
func writeAtomic(path string, body io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Fatal(0, "creating directory %s: %v", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return errs.Fatal(0, "creating temp file in %s: %v", dir, err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := io.Copy(tmp, body); err != nil {
		cleanup()
		return errs.ClassifyNetworkError(err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return errs.Fatal(0, "syncing %s: %v", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errs.Fatal(0, "closing %s: %v", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming %s to %s: %w", tmpName, path, err)
	}
	return nil
}
