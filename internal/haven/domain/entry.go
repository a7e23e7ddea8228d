package domain

import (
	"fmt"
	"strings"
)

// MinDomainLength is the shortest domain (including TLD) an allowlist
// entry may register. Enforced at publish/load time, not at match time.
const MinDomainLength = 5

// AllowlistEntry is one protected crisis resource. Entries are immutable
// once loaded into a snapshot; edits arrive as a new snapshot version.
//
// Notes:
// - PrimaryDomain and Aliases are canonical full domains ("988lifeline.org").
// - SubdomainPatterns are wildcard patterns ("*.988lifeline.org").
// - Category is informational only and never affects the decision.
type AllowlistEntry struct {
	PrimaryDomain     string   `json:"primary_domain" validate:"required,min=5"`
	Aliases           []string `json:"aliases,omitempty" validate:"omitempty,dive,min=5"`
	SubdomainPatterns []string `json:"subdomain_patterns,omitempty" validate:"omitempty,dive,min=7"`
	Category          Category `json:"category"`
}

// NewAllowlistEntry constructs an entry, canonicalizes its fields, and
// validates it.
func NewAllowlistEntry(primary string, aliases, patterns []string, category Category) (AllowlistEntry, error) {
	e := AllowlistEntry{
		PrimaryDomain:     CanonicalDomainName(primary),
		Aliases:           canonicalAll(aliases),
		SubdomainPatterns: canonicalAll(patterns),
		Category:          category,
	}
	if err := e.Validate(); err != nil {
		return AllowlistEntry{}, err
	}
	return e, nil
}

// Validate checks the entry against the publish-time invariants: every
// domain is syntactically valid with a real-looking TLD and at least
// MinDomainLength characters, and every pattern is a "*." wildcard over
// a valid base domain.
func (e AllowlistEntry) Validate() error {
	if err := ValidateDomainName(e.PrimaryDomain); err != nil {
		return fmt.Errorf("primary_domain: %w", err)
	}
	for _, a := range e.Aliases {
		if err := ValidateDomainName(a); err != nil {
			return fmt.Errorf("alias %q: %w", a, err)
		}
	}
	for _, p := range e.SubdomainPatterns {
		base, ok := strings.CutPrefix(p, "*.")
		if !ok {
			return fmt.Errorf("pattern %q: must start with \"*.\"", p)
		}
		if err := ValidateDomainName(base); err != nil {
			return fmt.Errorf("pattern %q: %w", p, err)
		}
	}
	return nil
}

// ExactDomains returns the union of the primary domain and all aliases.
func (e AllowlistEntry) ExactDomains() []string {
	out := make([]string, 0, 1+len(e.Aliases))
	out = append(out, e.PrimaryDomain)
	out = append(out, e.Aliases...)
	return out
}

// CanonicalDomainName returns a domain in canonical form: trimmed,
// lowercased, with any trailing dots removed.
func CanonicalDomainName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}

// ValidateDomainName applies the syntactic invariants required of every
// allowlisted domain: minimum overall length, at least two labels, label
// charset [a-z0-9-] (no leading/trailing hyphen), and an alphabetic TLD
// of 2+ characters.
func ValidateDomainName(name string) error {
	if name == "" {
		return fmt.Errorf("domain must not be empty")
	}
	if len(name) < MinDomainLength {
		return fmt.Errorf("domain %q shorter than %d characters", name, MinDomainLength)
	}
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return fmt.Errorf("domain %q has no TLD", name)
	}
	for _, label := range labels {
		if err := validateLabel(label); err != nil {
			return fmt.Errorf("domain %q: %w", name, err)
		}
	}
	tld := labels[len(labels)-1]
	if len(tld) < 2 || !isAlpha(tld) {
		return fmt.Errorf("domain %q has invalid TLD %q", name, tld)
	}
	return nil
}

func validateLabel(label string) error {
	if label == "" {
		return fmt.Errorf("empty label")
	}
	if len(label) > 63 {
		return fmt.Errorf("label %q exceeds 63 characters", label)
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return fmt.Errorf("label %q has leading or trailing hyphen", label)
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
			continue
		}
		return fmt.Errorf("label %q contains invalid character %q", label, c)
	}
	return nil
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}

func canonicalAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, CanonicalDomainName(s))
	}
	return out
}
