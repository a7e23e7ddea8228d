// Package allowlist owns the versioned allowlist data set: the bundled
// baseline, the persisted copy of the last successful fetch, and the
// refresh logic that ties them together. Its one promise is that
// Snapshot never fails and never blocks: the fallback chain is fresh
// cached, then stale cached, then bundled, and the bundled baseline is
// compiled in.
package allowlist

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/havengate/havengate/internal/haven/common/clock"
	"github.com/havengate/havengate/internal/haven/common/log"
	"github.com/havengate/havengate/internal/haven/domain"
)

const (
	// DefaultTTL is how long a fetched snapshot counts as fresh.
	DefaultTTL = 24 * time.Hour
	// maxRefreshRetries bounds retry attempts after the initial fetch.
	maxRefreshRetries = 2
	// defaultBackoffBase is the first retry delay; doubles per attempt.
	defaultBackoffBase = 500 * time.Millisecond
)

// Source serves the snapshot currently in effect and orchestrates
// refresh. Snapshot is one atomic pointer load; Refresh runs on its own
// schedule and never holds a lock the read path needs.
type Source struct {
	store   Store
	fetcher Fetcher
	clk     clock.Clock
	logger  log.Logger
	ttl     time.Duration
	backoff time.Duration

	current atomic.Pointer[domain.AllowlistSnapshot]

	refreshMu sync.Mutex
	etag      string // guarded by refreshMu
}

// Options configures a Source. Store and Fetcher are optional: without a
// store nothing persists across restarts, and without a fetcher Refresh
// is a no-op and the engine serves bundled/cached data only.
type Options struct {
	Store   Store
	Fetcher Fetcher
	Clock   clock.Clock
	Logger  log.Logger
	TTL     time.Duration

	// BackoffBase overrides the first retry delay. Tests only.
	BackoffBase time.Duration
}

// NewSource hydrates a Source: the persisted snapshot when one exists
// and decodes cleanly, the bundled baseline otherwise. It cannot fail;
// a broken store degrades to bundled with a warning.
func NewSource(opts Options) *Source {
	s := &Source{
		store:   opts.Store,
		fetcher: opts.Fetcher,
		clk:     opts.Clock,
		logger:  opts.Logger,
		ttl:     opts.TTL,
		backoff: opts.BackoffBase,
	}
	if s.clk == nil {
		s.clk = clock.RealClock{}
	}
	if s.logger == nil {
		s.logger = log.NewNoopLogger()
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.backoff <= 0 {
		s.backoff = defaultBackoffBase
	}

	snap := MustBundled()
	if s.store != nil {
		cached, etag, err := s.store.Load()
		switch {
		case err != nil:
			s.logger.Warn(map[string]any{"error": err.Error()}, "persisted allowlist unusable, starting from bundled")
		case cached != nil:
			// A cached snapshot older than the bundled baseline means the
			// binary was upgraded since the last fetch; the baseline wins.
			if CompareVersions(cached.Version, snap.Version) >= 0 {
				snap = cached
				s.etag = etag
			} else {
				s.logger.Info(map[string]any{
					"cached_version":  cached.Version,
					"bundled_version": snap.Version,
				}, "bundled allowlist newer than persisted snapshot")
			}
		}
	}
	s.current.Store(snap)

	s.logger.Info(map[string]any{
		"version": snap.Version,
		"source":  snap.Source.String(),
		"entries": snap.Len(),
		"stale":   snap.Stale(s.clk.Now(), s.ttl),
	}, "allowlist source hydrated")
	return s
}

// Snapshot returns the snapshot currently in effect. Non-blocking,
// never nil.
func (s *Source) Snapshot() *domain.AllowlistSnapshot {
	return s.current.Load()
}

// Stale reports whether the current snapshot has outlived its TTL.
// Staleness affects refresh urgency only; a stale snapshot still serves.
func (s *Source) Stale() bool {
	return s.Snapshot().Stale(s.clk.Now(), s.ttl)
}

// Refresh fetches a newer document, validates it, persists it, and
// atomically swaps it in. Every failure is contained here: the previous
// snapshot keeps serving and the error is returned for logging only.
// Retryable failures get bounded exponential backoff; terminal ones
// (404, auth, invalid document) return immediately.
func (s *Source) Refresh(ctx context.Context) error {
	if s.fetcher == nil {
		return nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	doc, newEtag, err := s.fetchWithRetry(ctx)
	if errors.Is(err, ErrNotModified) {
		return s.confirmFresh()
	}
	if err != nil {
		s.logger.Warn(map[string]any{"error": err.Error()}, "allowlist refresh failed, previous snapshot keeps serving")
		return err
	}

	cur := s.current.Load()
	if CompareVersions(doc.Version, cur.Version) < 0 {
		err := &RefreshError{Op: "validate", Retryable: false,
			Err: errors.New("remote version " + doc.Version + " older than current " + cur.Version)}
		s.logger.Warn(map[string]any{"remote": doc.Version, "current": cur.Version}, "rejected non-monotonic allowlist version")
		return err
	}

	snap, err := doc.Snapshot(domain.SourceRemote, s.clk.Now())
	if err != nil {
		return &RefreshError{Op: "validate", Retryable: false, Err: err}
	}

	if s.store != nil {
		if err := s.store.Save(snap, newEtag); err != nil {
			// The in-memory swap still proceeds: persistence failing only
			// costs durability across restart, not correctness now.
			s.logger.Warn(map[string]any{"error": err.Error()}, "failed to persist allowlist snapshot")
		}
	}

	s.current.Store(snap)
	s.etag = newEtag
	s.logger.Info(map[string]any{
		"version": snap.Version,
		"entries": snap.Len(),
	}, "allowlist refreshed")
	return nil
}

// fetchWithRetry runs the fetcher with bounded exponential backoff,
// retrying only failures classified as retryable.
func (s *Source) fetchWithRetry(ctx context.Context) (*Document, string, error) {
	delay := s.backoff
	var lastErr error
	for attempt := 0; attempt <= maxRefreshRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, "", &RefreshError{Op: "fetch", Retryable: false, Err: ctx.Err()}
			case <-time.After(delay):
			}
			delay *= 2
		}
		doc, etag, err := s.fetcher.Fetch(ctx, s.etag)
		if err == nil || errors.Is(err, ErrNotModified) {
			return doc, etag, err
		}
		lastErr = err
		if !IsRetryable(err) {
			return nil, "", err
		}
	}
	return nil, "", lastErr
}

// confirmFresh handles a 304: the server vouched for the current data,
// so the snapshot's fetch time moves forward and the TTL restarts.
func (s *Source) confirmFresh() error {
	cur := s.current.Load()
	refreshed := *cur
	refreshed.FetchedAt = s.clk.Now()
	if refreshed.Source == domain.SourceBundled {
		refreshed.Source = domain.SourceRemote
	}
	if s.store != nil {
		if err := s.store.Save(&refreshed, s.etag); err != nil {
			s.logger.Warn(map[string]any{"error": err.Error()}, "failed to persist refreshed snapshot metadata")
		}
	}
	s.current.Store(&refreshed)
	s.logger.Debug(map[string]any{"version": refreshed.Version}, "allowlist confirmed unchanged")
	return nil
}
