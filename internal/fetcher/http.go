package fetcher

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPOptions configures the HTTP downloader.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	Limiter    *rate.Limiter // optional; shared across downloads
}

// HTTPFetcher downloads input datasets over HTTP(S) with bounded retries.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions
}

// NewHTTPFetcher creates an HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "ls4sm/1.0"
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

// Download fetches the URL and returns the response body. Retries with
// linear backoff on 5xx and transport errors; 4xx fails immediately.
func (f *HTTPFetcher) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	var lastErr error

	for attempt := 0; attempt <= f.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			zap.L().Debug("http: retrying download",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, eris.Wrap(ctx.Err(), "http: cancelled during backoff")
			}
		}

		if f.opts.Limiter != nil {
			if err := f.opts.Limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "http: rate limiter")
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, eris.Wrapf(err, "http: build request for %s", url)
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = eris.Wrapf(err, "http: GET %s", url)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return resp.Body, nil
		case resp.StatusCode >= 500:
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http: GET %s: status %d", url, resp.StatusCode)
		default:
			_ = resp.Body.Close()
			return nil, eris.Errorf("http: GET %s: status %d", url, resp.StatusCode)
		}
	}

	return nil, lastErr
}

// DownloadToFile fetches the URL and writes it to path. Returns bytes written.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, url, path string) (int64, error) {
	body, err := f.Download(ctx, url)
	if err != nil {
		return 0, err
	}
	defer func() { _ = body.Close() }()

	out, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "http: create %s", path)
	}
	defer func() { _ = out.Close() }()

	n, err := io.Copy(out, body)
	if err != nil {
		return n, eris.Wrapf(err, "http: write %s", path)
	}
	return n, nil
}
