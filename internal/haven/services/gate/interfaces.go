package gate

import "github.com/havengate/havengate/internal/haven/domain"

// SnapshotProvider hands the gate the allowlist snapshot currently in
// effect. Implementations must be non-blocking and must never return nil
// under normal operation; the bundled baseline is the floor.
type SnapshotProvider interface {
	Snapshot() *domain.AllowlistSnapshot
}

// DecisionCache caches match results by normalized host. Every entry is
// tagged with the epoch of the index that computed it and Get must treat
// an epoch mismatch as a miss: the gate purges on snapshot swap, but an
// Evaluate in flight during the swap can still write a result computed
// from the old snapshot after the purge, and that entry must never be
// served against the new one.
type DecisionCache interface {
	Get(host string, epoch uint64) (domain.MatchResult, bool)
	Put(host string, epoch uint64, r domain.MatchResult)
	Len() int
	Purge()
	Stats() (hits, misses, evictions uint64)
}

// TelemetrySink receives fuzzy-match observations. Record must be
// non-blocking: it enqueues and returns, and any downstream failure is
// invisible to the gate.
type TelemetrySink interface {
	Record(inputDomain, matchedDomain string, distance uint8)
}

// NopSink discards all observations. Used when telemetry is disabled.
type NopSink struct{}

func (NopSink) Record(string, string, uint8) {}

var _ TelemetrySink = NopSink{}
