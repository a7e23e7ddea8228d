package domain

import (
	"fmt"
	"strings"
	"time"
)

// SnapshotSource records where a snapshot came from.
type SnapshotSource uint8

const (
	// SourceBundled is the baseline compiled into the binary.
	SourceBundled SnapshotSource = iota
	// SourceCached is a previously fetched snapshot restored from disk.
	SourceCached
	// SourceRemote is a snapshot freshly fetched over the network.
	SourceRemote
)

// String returns a stable string representation of the snapshot source.
func (s SnapshotSource) String() string {
	switch s {
	case SourceBundled:
		return "bundled"
	case SourceCached:
		return "cached"
	case SourceRemote:
		return "remote"
	default:
		return fmt.Sprintf("SnapshotSource(%d)", s)
	}
}

// ParseSnapshotSource converts a string into a SnapshotSource.
func ParseSnapshotSource(s string) (SnapshotSource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bundled":
		return SourceBundled, nil
	case "cached":
		return SourceCached, nil
	case "remote":
		return SourceRemote, nil
	default:
		return 0, fmt.Errorf("unsupported SnapshotSource: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SnapshotSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SnapshotSource) UnmarshalText(b []byte) error {
	v, err := ParseSnapshotSource(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// AllowlistSnapshot is one immutable, versioned collection of entries.
// Snapshots are swapped wholesale; the entry slice must never be mutated
// after construction.
type AllowlistSnapshot struct {
	Version   string           `json:"version"`
	Source    SnapshotSource   `json:"source"`
	FetchedAt time.Time        `json:"fetched_at"`
	Entries   []AllowlistEntry `json:"entries"`
}

// NewAllowlistSnapshot validates every entry and returns an immutable
// snapshot. The entry slice is copied so the caller cannot alias it.
func NewAllowlistSnapshot(version string, source SnapshotSource, fetchedAt time.Time, entries []AllowlistEntry) (*AllowlistSnapshot, error) {
	if strings.TrimSpace(version) == "" {
		return nil, fmt.Errorf("snapshot version must not be empty")
	}
	out := make([]AllowlistEntry, len(entries))
	copy(out, entries)
	for i, e := range out {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return &AllowlistSnapshot{
		Version:   version,
		Source:    source,
		FetchedAt: fetchedAt,
		Entries:   out,
	}, nil
}

// Len returns the number of entries.
func (s *AllowlistSnapshot) Len() int { return len(s.Entries) }

// Age reports how long ago the snapshot was fetched. Bundled snapshots
// have no fetch time and report zero.
func (s *AllowlistSnapshot) Age(now time.Time) time.Duration {
	if s.FetchedAt.IsZero() {
		return 0
	}
	return now.Sub(s.FetchedAt)
}

// Stale reports whether the snapshot has outlived ttl. Bundled snapshots
// are never considered stale: they are the floor, not a cache.
func (s *AllowlistSnapshot) Stale(now time.Time, ttl time.Duration) bool {
	if s.Source == SourceBundled {
		return false
	}
	return s.Age(now) > ttl
}
