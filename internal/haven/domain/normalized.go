package domain

// NormalizedDomain is the canonical form of a URL's host, produced by the
// normalizer. All fields are lowercase ASCII (punycode for IDNs).
//
// For "https://help.988lifeline.org/chat":
//
//	Host        = "help.988lifeline.org"
//	Registrable = "988lifeline.org"
//	Base        = "988lifeline"
//	TLD         = "org"
type NormalizedDomain struct {
	Host        string // full host, subdomains included
	Registrable string // eTLD+1
	Base        string // registrable domain with its public suffix stripped
	TLD         string // public suffix ("org", "co.uk")
}
