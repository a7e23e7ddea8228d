// Package remote fetches the versioned allowlist document over HTTPS.
// The endpoint is public and unauthenticated; the client's only jobs are
// bounded timeouts, cheap staleness checks via ETag, and honest
// classification of failures into retryable and terminal.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/havengate/havengate/internal/haven/common/log"
	"github.com/havengate/havengate/internal/haven/repos/allowlist"
)

// DefaultTimeout bounds one fetch attempt end to end.
const DefaultTimeout = 5 * time.Second

// maxResponseBytes caps how much of the response body is read.
const maxResponseBytes = 1 << 20

// Fetcher implements allowlist.Fetcher over HTTP.
type Fetcher struct {
	url     string
	timeout time.Duration
	client  *http.Client
	logger  log.Logger
}

// Options configures a Fetcher. URL is required.
type Options struct {
	URL     string
	Timeout time.Duration
	// Client overrides the HTTP client. Tests only.
	Client *http.Client
	Logger log.Logger
}

// NewFetcher creates an allowlist fetcher for the given endpoint.
func NewFetcher(opts Options) (*Fetcher, error) {
	if opts.URL == "" {
		return nil, errors.New("allowlist endpoint URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Fetcher{
		url:     opts.URL,
		timeout: opts.Timeout,
		client:  opts.Client,
		logger:  opts.Logger,
	}, nil
}

// Fetch retrieves and validates the allowlist document. A matching ETag
// yields allowlist.ErrNotModified. Network faults, 5xx, and 429 come
// back retryable; any other non-2xx status and any schema failure is
// terminal.
func (f *Fetcher) Fetch(ctx context.Context, etag string) (*allowlist.Document, string, error) {
	ctx, cancel := f.ensureContextDeadline(ctx)
	if cancel != nil {
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, "", &allowlist.RefreshError{Op: "request", Retryable: false, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", &allowlist.RefreshError{Op: "fetch", Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return nil, etag, allowlist.ErrNotModified
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, "", &allowlist.RefreshError{Op: "fetch", Retryable: true,
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	default:
		return nil, "", &allowlist.RefreshError{Op: "fetch", Retryable: false,
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, "", &allowlist.RefreshError{Op: "read", Retryable: true, Err: err}
	}
	if len(body) > maxResponseBytes {
		return nil, "", &allowlist.RefreshError{Op: "read", Retryable: false,
			Err: fmt.Errorf("response exceeds %d bytes", maxResponseBytes)}
	}

	doc, err := allowlist.DecodeDocument(body)
	if err != nil {
		return nil, "", &allowlist.RefreshError{Op: "decode", Retryable: false, Err: err}
	}

	f.logger.Debug(map[string]any{
		"version": doc.Version,
		"entries": len(doc.Entries),
	}, "allowlist document fetched")
	return doc, resp.Header.Get("ETag"), nil
}

// ensureContextDeadline adds the fetcher's default timeout when the
// caller did not set a deadline of its own.
func (f *Fetcher) ensureContextDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); !ok {
		return context.WithTimeout(ctx, f.timeout)
	}
	return ctx, nil
}

var _ allowlist.Fetcher = (*Fetcher)(nil)
