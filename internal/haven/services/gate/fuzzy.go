package gate

import "github.com/havengate/havengate/internal/haven/domain"

// Fuzzy-match guard constants. Every guard must pass before the edit
// distance is even computed; the chain is ordered cheapest-first so the
// O(m*n) table only runs on plausible candidates.
const (
	// maxFuzzyDistance is the largest edit distance accepted as a match.
	maxFuzzyDistance = 2
	// minFuzzyBaseLen is the shortest candidate base label eligible for
	// fuzzy matching; shorter domains are exact-match-only.
	minFuzzyBaseLen = 10
	// maxFuzzyLabelLen caps label length on both sides, bounding
	// worst-case CPU regardless of attacker-supplied input.
	maxFuzzyLabelLen = 256
	// minLengthRatio rejects wildly different-length pairs before the
	// distance computation: min(la,lb)/max(la,lb) must reach this.
	minLengthRatio = 0.7
)

// lookupFuzzy scans the precomputed targets for the entry closest to the
// candidate's base label, subject to the full guard chain. Ties on
// distance go to the first-registered entry. Targets with the candidate's
// own base label are skipped: identity is not a typo, so a host the
// exact/wildcard path declined (an unregistered subdomain of an entry)
// stays a miss instead of resurfacing as a distance-0 fuzzy hit.
func (idx *snapshotIndex) lookupFuzzy(nd domain.NormalizedDomain) (domain.MatchResult, bool) {
	if len(nd.Base) < minFuzzyBaseLen || len(nd.Base) > maxFuzzyLabelLen {
		return domain.MatchResult{}, false
	}
	if fuzzyBlocklisted(nd.Registrable) {
		return domain.MatchResult{}, false
	}

	var (
		best     *domain.AllowlistEntry
		bestDist = maxFuzzyDistance + 1
	)
	for i := range idx.fuzzyTargets {
		t := &idx.fuzzyTargets[i]
		if t.tld != nd.TLD {
			continue
		}
		if t.base == nd.Base {
			continue
		}
		if len(t.base) > maxFuzzyLabelLen {
			continue
		}
		if !lengthsComparable(len(nd.Base), len(t.base)) {
			continue
		}
		d := boundedLevenshtein(nd.Base, t.base, maxFuzzyDistance)
		if d < bestDist {
			bestDist = d
			best = t.entry
			if d == 1 {
				break
			}
		}
	}

	if best == nil || bestDist > maxFuzzyDistance {
		return domain.MatchResult{}, false
	}
	return domain.FuzzyMatch(best, uint8(bestDist)), true
}

// lengthsComparable applies the length-ratio guard: the shorter label
// must be at least minLengthRatio of the longer one.
func lengthsComparable(la, lb int) bool {
	mn, mx := la, lb
	if mn > mx {
		mn, mx = mx, mn
	}
	return float64(mn) >= minLengthRatio*float64(mx)
}
