package domain

// MatchResult is the outcome of evaluating one URL. It is the only value
// that ever leaves the engine.
//
// Invariants:
// - Protected is true whenever Kind != MatchNone.
// - Distance is set if and only if Kind == MatchFuzzy.
// - Entry is nil if and only if Kind == MatchNone.
type MatchResult struct {
	Protected bool            `json:"protected"`
	Kind      MatchKind       `json:"match_kind"`
	Entry     *AllowlistEntry `json:"matched_entry,omitempty"`
	Distance  uint8           `json:"distance,omitempty"`
}

// Miss returns the not-protected result for a completed negative lookup.
// It is the only constructor for an unprotected outcome: error branches
// must use ProtectedFallback instead.
func Miss() MatchResult {
	return MatchResult{Protected: false, Kind: MatchNone}
}

// ExactMatch returns a protected result for a primary/alias hit.
func ExactMatch(entry *AllowlistEntry) MatchResult {
	return MatchResult{Protected: true, Kind: MatchExact, Entry: entry}
}

// WildcardMatch returns a protected result for a subdomain-pattern hit.
func WildcardMatch(entry *AllowlistEntry) MatchResult {
	return MatchResult{Protected: true, Kind: MatchWildcard, Entry: entry}
}

// FuzzyMatch returns a protected result for an edit-distance hit.
func FuzzyMatch(entry *AllowlistEntry, distance uint8) MatchResult {
	return MatchResult{Protected: true, Kind: MatchFuzzy, Entry: entry, Distance: distance}
}

// ProtectedFallback is the fail-safe result for an internal lookup fault:
// when the allowlist cannot be consulted at all, the visit is treated as
// protected so no monitoring artifact is created.
func ProtectedFallback() MatchResult {
	return MatchResult{Protected: true, Kind: MatchNone}
}

// IsProtected is a convenience accessor.
func (r MatchResult) IsProtected() bool { return r.Protected }
