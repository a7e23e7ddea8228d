package gate

import (
	"strings"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"
	"golang.org/x/net/publicsuffix"

	"github.com/havengate/havengate/internal/haven/domain"
)

// prefilterFPRate is the target false-positive rate for the per-snapshot
// Bloom prefilter. A false positive only costs the real map lookups it
// was meant to skip, so the rate trades memory for hot-path speed only.
const prefilterFPRate = 0.001

// fuzzyTarget is one precomputed comparison target for the fuzzy matcher:
// the TLD-stripped base label of an entry's primary domain or alias.
// Computed once per snapshot so the hot path never touches publicsuffix.
type fuzzyTarget struct {
	base  string
	tld   string
	entry *domain.AllowlistEntry
}

// snapshotIndex is the compiled lookup structure for one snapshot. It is
// immutable after build and rebuilt wholesale on snapshot swap. epoch is
// assigned by the gate per rebuild and tags every decision-cache entry
// this index produces.
type snapshotIndex struct {
	snapshot      *domain.AllowlistSnapshot
	epoch         uint64
	exact         map[string]*domain.AllowlistEntry
	wildcardBases map[string]*domain.AllowlistEntry
	prefilter     *bitsbloom.BloomFilter
	fuzzyTargets  []fuzzyTarget
}

// buildIndex compiles a snapshot into its lookup structure. First
// registration wins on duplicate domains, keeping matches deterministic
// regardless of how a snapshot was assembled.
func buildIndex(snap *domain.AllowlistSnapshot) *snapshotIndex {
	idx := &snapshotIndex{
		snapshot:      snap,
		exact:         make(map[string]*domain.AllowlistEntry),
		wildcardBases: make(map[string]*domain.AllowlistEntry),
	}

	for i := range snap.Entries {
		e := &snap.Entries[i]
		for _, d := range e.ExactDomains() {
			if _, dup := idx.exact[d]; !dup {
				idx.exact[d] = e
			}
			if t, ok := splitTarget(d, e); ok {
				idx.fuzzyTargets = append(idx.fuzzyTargets, t)
			}
		}
		for _, p := range e.SubdomainPatterns {
			base := strings.TrimPrefix(p, "*.")
			if _, dup := idx.wildcardBases[base]; !dup {
				idx.wildcardBases[base] = e
			}
		}
	}

	keys := uint(len(idx.exact) + len(idx.wildcardBases))
	if keys == 0 {
		keys = 1
	}
	idx.prefilter = bitsbloom.NewWithEstimates(keys, prefilterFPRate)
	for d := range idx.exact {
		idx.prefilter.AddString(d)
	}
	for b := range idx.wildcardBases {
		idx.prefilter.AddString(b)
	}

	return idx
}

// splitTarget derives the fuzzy comparison target from a full domain.
// Domains the public-suffix list cannot split are exact-match-only.
func splitTarget(name string, e *domain.AllowlistEntry) (fuzzyTarget, bool) {
	registrable, err := publicsuffix.EffectiveTLDPlusOne(name)
	if err != nil {
		return fuzzyTarget{}, false
	}
	suffix, _ := publicsuffix.PublicSuffix(name)
	base := strings.TrimSuffix(registrable, "."+suffix)
	if base == "" || base == registrable {
		return fuzzyTarget{}, false
	}
	return fuzzyTarget{base: base, tld: suffix, entry: e}, true
}

// mightContain runs the Bloom prefilter over the host and every parent
// suffix. False means a definite exact/wildcard miss; true means the
// authoritative maps must be consulted.
func (idx *snapshotIndex) mightContain(host string) bool {
	for s := host; s != ""; {
		if idx.prefilter.TestString(s) {
			return true
		}
		i := strings.IndexByte(s, '.')
		if i < 0 {
			break
		}
		s = s[i+1:]
	}
	return false
}

// lookupExact checks the host against primary domains and aliases, then
// walks parent suffixes against wildcard pattern bases (apex-inclusive,
// most-specific first). Zero false positives by construction.
func (idx *snapshotIndex) lookupExact(nd domain.NormalizedDomain) (domain.MatchResult, bool) {
	if !idx.mightContain(nd.Host) {
		return domain.MatchResult{}, false
	}
	if e, ok := idx.exact[nd.Host]; ok {
		return domain.ExactMatch(e), true
	}
	for s := nd.Host; s != ""; {
		if e, ok := idx.wildcardBases[s]; ok {
			return domain.WildcardMatch(e), true
		}
		i := strings.IndexByte(s, '.')
		if i < 0 {
			break
		}
		s = s[i+1:]
	}
	return domain.MatchResult{}, false
}
