package gate

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havengate/havengate/internal/haven/domain"
)

// fakeSource serves a swappable snapshot.
type fakeSource struct {
	mu   sync.Mutex
	snap *domain.AllowlistSnapshot
}

func (f *fakeSource) Snapshot() *domain.AllowlistSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSource) swap(s *domain.AllowlistSnapshot) {
	f.mu.Lock()
	f.snap = s
	f.mu.Unlock()
}

// fakeSink records telemetry calls.
type fakeSink struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeSink) Record(input, matched string, distance uint8) {
	f.mu.Lock()
	f.calls = append(f.calls, fmt.Sprintf("%s->%s@%d", input, matched, distance))
	f.mu.Unlock()
}

func (f *fakeSink) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// epochCache is a map-backed DecisionCache honoring the epoch contract.
type epochCache struct {
	mu      sync.Mutex
	entries map[string]epochEntry
	lastPut uint64
}

type epochEntry struct {
	epoch uint64
	res   domain.MatchResult
}

func newEpochCache() *epochCache {
	return &epochCache{entries: make(map[string]epochEntry)}
}

func (c *epochCache) Get(host string, epoch uint64) (domain.MatchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[host]
	if !ok || e.epoch != epoch {
		return domain.MatchResult{}, false
	}
	return e.res, true
}

func (c *epochCache) Put(host string, epoch uint64, r domain.MatchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[host] = epochEntry{epoch: epoch, res: r}
	c.lastPut = epoch
}

func (c *epochCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *epochCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func (c *epochCache) Stats() (uint64, uint64, uint64) { return 0, 0, 0 }

func (c *epochCache) lastPutEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPut
}

func testSnapshot(t *testing.T, version string) *domain.AllowlistSnapshot {
	t.Helper()
	entries := []domain.AllowlistEntry{
		{
			PrimaryDomain:     "988lifeline.org",
			Aliases:           []string{"suicidepreventionlifeline.org"},
			SubdomainPatterns: []string{"*.988lifeline.org"},
			Category:          domain.CategorySuicidePrevention,
		},
		{
			PrimaryDomain:     "thetrevorproject.org",
			SubdomainPatterns: []string{"*.thetrevorproject.org"},
			Category:          domain.CategorySuicidePrevention,
		},
		{
			PrimaryDomain: "crisistextline.org",
			Category:      domain.CategoryCrisisText,
		},
		{
			PrimaryDomain: "rainn.org",
			Category:      domain.CategorySexualAssault,
		},
	}
	snap, err := domain.NewAllowlistSnapshot(version, domain.SourceBundled, time.Time{}, entries)
	require.NoError(t, err)
	return snap
}

func newTestGate(t *testing.T, snap *domain.AllowlistSnapshot) (*Gate, *fakeSource, *fakeSink) {
	t.Helper()
	src := &fakeSource{snap: snap}
	sink := &fakeSink{}
	g := New(Options{Source: src, Telemetry: sink})
	return g, src, sink
}

func TestEvaluate_ExactDeterminism(t *testing.T) {
	snap := testSnapshot(t, "1")
	g, _, _ := newTestGate(t, snap)

	// every primary domain and every alias must hit exactly
	for _, e := range snap.Entries {
		for _, d := range e.ExactDomains() {
			res := g.Evaluate("https://" + d + "/some/page?q=1")
			assert.True(t, res.Protected, d)
			assert.Equal(t, domain.MatchExact, res.Kind, d)
			require.NotNil(t, res.Entry, d)
			assert.Equal(t, e.PrimaryDomain, res.Entry.PrimaryDomain, d)
		}
	}
}

func TestEvaluate_WildcardCoverage(t *testing.T) {
	g, _, _ := newTestGate(t, testSnapshot(t, "1"))

	res := g.Evaluate("https://help.thetrevorproject.org/page")
	assert.True(t, res.Protected)
	assert.Equal(t, domain.MatchWildcard, res.Kind)

	res = g.Evaluate("https://chat.crisis.988lifeline.org")
	assert.True(t, res.Protected)
	assert.Equal(t, domain.MatchWildcard, res.Kind)

	// no pattern registered for crisistextline.org subdomains
	res = g.Evaluate("https://blog.crisistextline.org")
	assert.False(t, res.Protected)
}

func TestEvaluate_UnregisteredSubdomainStaysMiss(t *testing.T) {
	g, _, sink := newTestGate(t, testSnapshot(t, "1"))

	// crisistextline.org registered no subdomain patterns, so a subdomain
	// miss on the wildcard path must not resurface as a distance-0 fuzzy
	// hit on the entry's own base label.
	res := g.Evaluate("https://blog.crisistextline.org")
	assert.False(t, res.Protected)
	assert.Equal(t, domain.MatchNone, res.Kind)
	assert.Empty(t, sink.recorded(), "a non-typo must not emit telemetry")
}

func TestEvaluate_TypoTolerance(t *testing.T) {
	g, _, sink := newTestGate(t, testSnapshot(t, "1"))

	res := g.Evaluate("https://988lifline.org")
	assert.True(t, res.Protected)
	assert.Equal(t, domain.MatchFuzzy, res.Kind)
	assert.Equal(t, uint8(1), res.Distance)
	require.NotNil(t, res.Entry)
	assert.Equal(t, "988lifeline.org", res.Entry.PrimaryDomain)

	assert.Equal(t, []string{"988lifline.org->988lifeline.org@1"}, sink.recorded())
}

func TestEvaluate_NoFalsePositivesOnCommonDomains(t *testing.T) {
	g, _, sink := newTestGate(t, testSnapshot(t, "1"))

	unrelated := []string{
		"https://google.com/search?q=x",
		"https://www.youtube.com/watch?v=abc",
		"https://facebook.com",
		"https://instagram.com",
		"https://en.wikipedia.org/wiki/Crisis",
		"https://reddit.com/r/casualconversation",
		"https://twitch.tv",
		"https://duckduckgo.com",
		"https://craigslist.org",
	}
	for _, u := range unrelated {
		res := g.Evaluate(u)
		assert.False(t, res.Protected, u)
		assert.Equal(t, domain.MatchNone, res.Kind, u)
	}
	assert.Empty(t, sink.recorded())
}

func TestEvaluate_ShortDomainsAreExactOnly(t *testing.T) {
	g, _, _ := newTestGate(t, testSnapshot(t, "1"))

	// "raind" is distance 1 from "rainn", but a 5-char base label is far
	// below the fuzzy minimum
	res := g.Evaluate("https://raind.org")
	assert.False(t, res.Protected)

	// the real domain still hits exactly
	res = g.Evaluate("https://rainn.org")
	assert.True(t, res.Protected)
	assert.Equal(t, domain.MatchExact, res.Kind)
}

func TestEvaluate_CrossTLDNeverFuzzy(t *testing.T) {
	g, _, _ := newTestGate(t, testSnapshot(t, "1"))

	// identical base label, different TLD
	res := g.Evaluate("https://988lifeline.com")
	assert.False(t, res.Protected)
}

func TestEvaluate_MalformedInputIsNotProtected(t *testing.T) {
	g, _, _ := newTestGate(t, testSnapshot(t, "1"))

	for _, u := range []string{"", "   ", "http://192.168.0.1/x", "https://", "https://localhost/x"} {
		res := g.Evaluate(u)
		assert.False(t, res.Protected, "%q", u)
		assert.Equal(t, domain.MatchNone, res.Kind)
	}
}

func TestEvaluate_NilSnapshotFailsSafe(t *testing.T) {
	g, _, _ := newTestGate(t, nil)

	res := g.Evaluate("https://example.org")
	assert.True(t, res.Protected, "lookup fault must fail toward protected")
	assert.Equal(t, domain.MatchNone, res.Kind)
}

func TestEvaluate_Idempotence(t *testing.T) {
	g, _, _ := newTestGate(t, testSnapshot(t, "1"))

	first := g.Evaluate("https://988lifline.org")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, g.Evaluate("https://988lifline.org"))
	}
}

func TestEvaluate_SnapshotSwapRebuildsIndex(t *testing.T) {
	snap1 := testSnapshot(t, "1")
	g, src, _ := newTestGate(t, snap1)

	res := g.Evaluate("https://crisistextline.org")
	assert.True(t, res.Protected)

	// new snapshot without crisistextline.org
	entries := []domain.AllowlistEntry{{PrimaryDomain: "thehotline.org"}}
	snap2, err := domain.NewAllowlistSnapshot("2", domain.SourceRemote, time.Now(), entries)
	require.NoError(t, err)
	src.swap(snap2)

	assert.False(t, g.Evaluate("https://crisistextline.org").Protected)
	assert.True(t, g.Evaluate("https://thehotline.org").Protected)
}

func TestEvaluate_StaleCacheWriteAfterSwapIsNotServed(t *testing.T) {
	snap1 := testSnapshot(t, "1") // does not protect thehotline.org
	cache := newEpochCache()
	src := &fakeSource{snap: snap1}
	g := New(Options{Source: src, Cache: cache})

	res := g.Evaluate("https://thehotline.org")
	assert.False(t, res.Protected)
	staleEpoch := cache.lastPutEpoch()

	// Swap to a snapshot that protects the domain; the next Evaluate
	// rebuilds the index, advances the epoch, and purges the cache.
	entries := []domain.AllowlistEntry{{PrimaryDomain: "thehotline.org"}}
	snap2, err := domain.NewAllowlistSnapshot("2", domain.SourceRemote, time.Now(), entries)
	require.NoError(t, err)
	src.swap(snap2)
	require.True(t, g.Evaluate("https://thehotline.org").Protected)

	// An Evaluate that began before the swap lands its write only now,
	// carrying the miss it computed from the retired snapshot.
	cache.Put("thehotline.org", staleEpoch, domain.Miss())

	res = g.Evaluate("https://thehotline.org")
	assert.True(t, res.Protected, "a cached result must never outlive its snapshot")
	assert.Equal(t, domain.MatchExact, res.Kind)
}

func TestEvaluate_ConcurrentWithSwap(t *testing.T) {
	snap1 := testSnapshot(t, "1")
	snap2 := testSnapshot(t, "2")
	g, src, _ := newTestGate(t, snap1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				res := g.Evaluate("https://988lifeline.org")
				assert.True(t, res.Protected)
			}
		}()
	}
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			src.swap(snap2)
		} else {
			src.swap(snap1)
		}
	}
	wg.Wait()
}

func TestEvaluate_AdversarialLongInput(t *testing.T) {
	g, _, _ := newTestGate(t, testSnapshot(t, "1"))

	long := strings.Repeat("a", 300) + ".org"
	res := g.Evaluate("https://" + long)
	assert.False(t, res.Protected)
}

func BenchmarkEvaluate(b *testing.B) {
	entries := []domain.AllowlistEntry{
		{PrimaryDomain: "988lifeline.org", SubdomainPatterns: []string{"*.988lifeline.org"}},
		{PrimaryDomain: "thetrevorproject.org"},
		{PrimaryDomain: "crisistextline.org"},
		{PrimaryDomain: "veteranscrisisline.net"},
		{PrimaryDomain: "nationaleatingdisorders.org"},
	}
	snap, err := domain.NewAllowlistSnapshot("bench", domain.SourceBundled, time.Time{}, entries)
	if err != nil {
		b.Fatal(err)
	}
	g := New(Options{Source: &fakeSource{snap: snap}})

	inputs := []string{
		"https://988lifeline.org/chat",
		"https://help.988lifeline.org",
		"https://988lifline.org",
		"https://example.com/completely/unrelated",
		"https://" + strings.Repeat("x", 250) + ".org/adversarial",
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.Evaluate(inputs[i%len(inputs)])
	}
}
