package domain

import (
	"fmt"
	"strings"
)

// MatchKind describes how a domain matched the allowlist.
//
// exact    - the full host equaled an entry's primary domain or alias
// wildcard - the host matched a registered subdomain pattern
// fuzzy    - the host's base label was within edit distance of an entry
// none     - no match
type MatchKind uint8

const (
	// MatchNone means no allowlist entry matched.
	MatchNone MatchKind = iota
	// MatchExact means the host equaled a primary domain or alias.
	MatchExact
	// MatchWildcard means the host matched a subdomain pattern.
	MatchWildcard
	// MatchFuzzy means the host matched within the edit-distance threshold.
	MatchFuzzy
)

// String returns a stable string representation of the match kind.
func (k MatchKind) String() string {
	switch k {
	case MatchNone:
		return "none"
	case MatchExact:
		return "exact"
	case MatchWildcard:
		return "wildcard"
	case MatchFuzzy:
		return "fuzzy"
	default:
		return fmt.Sprintf("MatchKind(%d)", k)
	}
}

// ParseMatchKind converts a string into a MatchKind.
// Accepts: "none", "exact", "wildcard", "fuzzy" (case-insensitive).
func ParseMatchKind(s string) (MatchKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return MatchNone, nil
	case "exact":
		return MatchExact, nil
	case "wildcard":
		return MatchWildcard, nil
	case "fuzzy":
		return MatchFuzzy, nil
	default:
		return 0, fmt.Errorf("unsupported MatchKind: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler for JSON payloads.
func (k MatchKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *MatchKind) UnmarshalText(b []byte) error {
	v, err := ParseMatchKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
