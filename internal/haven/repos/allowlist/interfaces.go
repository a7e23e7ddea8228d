package allowlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/havengate/havengate/internal/haven/domain"
)

// ErrNotModified is returned by a Fetcher when the remote document has
// not changed since the provided ETag. The source treats it as a
// successful freshness confirmation, not a failure.
var ErrNotModified = errors.New("allowlist not modified")

// RefreshError wraps a refresh failure with its retry classification.
// Network faults and 5xx responses are retryable; a 404 or auth failure
// is terminal and retrying it only wastes latency.
type RefreshError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("allowlist refresh %s: %v", e.Op, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a refresh failure worth retrying.
func IsRetryable(err error) bool {
	var re *RefreshError
	return errors.As(err, &re) && re.Retryable
}

// Fetcher retrieves the remote allowlist document. etag is the value
// from the previous fetch ("" for none); implementations return the new
// ETag alongside the document, or ErrNotModified.
type Fetcher interface {
	Fetch(ctx context.Context, etag string) (*Document, string, error)
}

// Store persists the most recent fetched snapshot so it survives process
// restart. Implementations must never be consulted on the decision hot
// path; the source reads them only at startup and after a fetch.
type Store interface {
	// Save persists snap and its ETag, replacing any previous snapshot.
	Save(snap *domain.AllowlistSnapshot, etag string) error
	// Load returns the persisted snapshot and ETag, or (nil, "", nil)
	// when nothing has been persisted yet.
	Load() (*domain.AllowlistSnapshot, string, error)
	Close() error
}
