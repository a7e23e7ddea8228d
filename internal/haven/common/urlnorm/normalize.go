// Package urlnorm extracts a canonical base domain from an arbitrary URL
// string. It is the first stage of every protection decision: pure,
// allocation-light, and strict about what counts as a recognizable domain.
package urlnorm

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"github.com/havengate/havengate/internal/haven/domain"
)

// Normalization failures. Per policy these all mean "not a recognizable
// protected domain", never a system fault.
var (
	ErrEmptyInput    = errors.New("empty input")
	ErrMalformedURL  = errors.New("malformed url")
	ErrEmptyHost     = errors.New("url has no host")
	ErrIPLiteral     = errors.New("ip-literal host")
	ErrNotRegistered = errors.New("host has no registrable domain")
)

// Normalize extracts the canonical domain from a raw URL or bare host.
// Scheme, userinfo, port, path, query, and fragment are stripped; the
// host is lowercased and punycode-normalized. IP literals are rejected:
// they can never match a domain-based allowlist entry.
func Normalize(raw string) (domain.NormalizedDomain, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.NormalizedDomain{}, ErrEmptyInput
	}

	host, err := extractHost(raw)
	if err != nil {
		return domain.NormalizedDomain{}, err
	}

	host = domain.CanonicalDomainName(host)
	if host == "" {
		return domain.NormalizedDomain{}, ErrEmptyHost
	}

	if ip := net.ParseIP(host); ip != nil {
		return domain.NormalizedDomain{}, fmt.Errorf("%w: %s", ErrIPLiteral, host)
	}

	// Punycode-normalize internationalized hosts. Lookup profile enforces
	// STD3 rules, which also rejects hosts with garbage characters.
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return domain.NormalizedDomain{}, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	host = ascii

	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return domain.NormalizedDomain{}, fmt.Errorf("%w: %s", ErrNotRegistered, host)
	}
	suffix, _ := publicsuffix.PublicSuffix(host)
	base := strings.TrimSuffix(registrable, "."+suffix)

	return domain.NormalizedDomain{
		Host:        host,
		Registrable: registrable,
		Base:        base,
		TLD:         suffix,
	}, nil
}

// extractHost pulls the host out of a full URL or a bare host string,
// dropping userinfo, port, and brackets along the way.
func extractHost(raw string) (string, error) {
	candidate := raw
	if !strings.Contains(candidate, "://") {
		// Bare hosts ("988lifeline.org/chat") parse as opaque paths, so
		// give them a scheme before handing them to net/url.
		candidate = "https://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", ErrEmptyHost
	}
	return host, nil
}

// IsNormalizeError reports whether err came from this package's taxonomy.
// The gate uses it to distinguish a malformed input (NotProtected by
// policy) from an internal lookup fault (Protected by policy).
func IsNormalizeError(err error) bool {
	return errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrMalformedURL) ||
		errors.Is(err, ErrEmptyHost) ||
		errors.Is(err, ErrIPLiteral) ||
		errors.Is(err, ErrNotRegistered)
}
