// Package gate implements the protection decision: the single synchronous
// entry point a capture pipeline must call, and must honor, before it
// creates any monitoring artifact for a visited URL.
package gate

import (
	"sync"
	"sync/atomic"

	"github.com/havengate/havengate/internal/haven/common/log"
	"github.com/havengate/havengate/internal/haven/common/urlnorm"
	"github.com/havengate/havengate/internal/haven/domain"
)

// Gate sequences normalization, exact/wildcard lookup, and fuzzy lookup
// against the current allowlist snapshot. Evaluate is purely in-memory:
// the snapshot arrives through one atomic pointer load and the compiled
// index is memoized per snapshot, so the hot path never blocks on disk
// or network. Safe for concurrent use.
type Gate struct {
	source    SnapshotProvider
	cache     DecisionCache
	telemetry TelemetrySink
	logger    log.Logger

	idx     atomic.Pointer[snapshotIndex]
	buildMu sync.Mutex
	epoch   uint64 // guarded by buildMu
}

// Options configures a Gate. Source is required; nil Cache disables
// caching and nil Telemetry disables fuzzy-match reporting.
type Options struct {
	Source    SnapshotProvider
	Cache     DecisionCache
	Telemetry TelemetrySink
	Logger    log.Logger
}

// New constructs a Gate.
func New(opts Options) *Gate {
	g := &Gate{
		source:    opts.Source,
		cache:     opts.Cache,
		telemetry: opts.Telemetry,
		logger:    opts.Logger,
	}
	if g.cache == nil {
		g.cache = nopCache{}
	}
	if g.telemetry == nil {
		g.telemetry = NopSink{}
	}
	if g.logger == nil {
		g.logger = log.NewNoopLogger()
	}
	return g
}

// Evaluate decides whether rawURL points at a protected crisis resource.
// It always returns a usable MatchResult and never panics or blocks on
// I/O; the caller may act on the result immediately.
//
// Policy note: a normalization failure (malformed URL, IP literal) maps
// to not-protected, because malformed input cannot be a recognizable
// crisis-resource domain. An internal lookup fault maps the other way,
// to protected, so uncertainty never costs a missed skip.
func (g *Gate) Evaluate(rawURL string) domain.MatchResult {
	nd, err := urlnorm.Normalize(rawURL)
	if err != nil {
		return domain.Miss()
	}

	snap := g.source.Snapshot()
	if snap == nil {
		// Structurally impossible with the bundled floor in place, but if
		// it ever happens the fail-safe direction is protected.
		g.logger.Error(map[string]any{"host": nd.Host}, "allowlist snapshot unavailable, failing safe")
		return domain.ProtectedFallback()
	}
	idx := g.index(snap)

	if res, ok := g.cache.Get(nd.Host, idx.epoch); ok {
		return res
	}

	res, matched := idx.lookupExact(nd)
	if !matched {
		res, matched = idx.lookupFuzzy(nd)
		if matched {
			// Fire-and-forget: Record enqueues and returns.
			g.telemetry.Record(nd.Registrable, res.Entry.PrimaryDomain, res.Distance)
		}
	}
	if !matched {
		res = domain.Miss()
	}

	g.cache.Put(nd.Host, idx.epoch, res)
	return res
}

// index returns the compiled index for snap, rebuilding it if the
// snapshot was swapped since the last call. Rebuilds are serialized; the
// losing goroutine re-reads the winner's index. Each rebuild advances the
// cache epoch and purges the decision cache; the epoch tag is what makes
// this safe, since an Evaluate still running against the old index can
// complete its Put after the purge, and that write must die with its
// epoch rather than serve against the new snapshot.
func (g *Gate) index(snap *domain.AllowlistSnapshot) *snapshotIndex {
	if idx := g.idx.Load(); idx != nil && idx.snapshot == snap {
		return idx
	}

	g.buildMu.Lock()
	defer g.buildMu.Unlock()
	if idx := g.idx.Load(); idx != nil && idx.snapshot == snap {
		return idx
	}

	idx := buildIndex(snap)
	g.epoch++
	idx.epoch = g.epoch
	g.cache.Purge()
	g.idx.Store(idx)
	g.logger.Info(map[string]any{
		"version": snap.Version,
		"source":  snap.Source.String(),
		"entries": snap.Len(),
	}, "allowlist index rebuilt")
	return idx
}

// nopCache backs a Gate constructed without a DecisionCache.
type nopCache struct{}

func (nopCache) Get(string, uint64) (domain.MatchResult, bool) { return domain.MatchResult{}, false }
func (nopCache) Put(string, uint64, domain.MatchResult)        {}
func (nopCache) Len() int                                      { return 0 }
func (nopCache) Purge()                                        {}
func (nopCache) Stats() (uint64, uint64, uint64)               { return 0, 0, 0 }

var _ DecisionCache = nopCache{}
