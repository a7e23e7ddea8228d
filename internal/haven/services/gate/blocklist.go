package gate

// fuzzyBlocklist is the fixed set of very common, high-traffic registrable
// domains that are never eligible for fuzzy matching, even at distance <= 2.
// A visit to one of these is overwhelmingly more likely to be exactly what
// it says than a typo of a crisis resource; exact and wildcard matching
// still apply normally.
var fuzzyBlocklist = map[string]struct{}{
	"google.com":     {},
	"youtube.com":    {},
	"facebook.com":   {},
	"instagram.com":  {},
	"twitter.com":    {},
	"x.com":          {},
	"tiktok.com":     {},
	"snapchat.com":   {},
	"reddit.com":     {},
	"wikipedia.org":  {},
	"amazon.com":     {},
	"netflix.com":    {},
	"yahoo.com":      {},
	"bing.com":       {},
	"duckduckgo.com": {},
	"pinterest.com":  {},
	"twitch.tv":      {},
	"discord.com":    {},
	"roblox.com":     {},
	"minecraft.net":  {},
	"microsoft.com":  {},
	"apple.com":      {},
	"linkedin.com":   {},
	"whatsapp.com":   {},
	"messenger.com":  {},
	"telegram.org":   {},
	"spotify.com":    {},
	"github.com":     {},
	"ebay.com":       {},
	"craigslist.org": {},
}

// fuzzyBlocklisted reports whether a registrable domain sits on the
// static blocklist.
func fuzzyBlocklisted(registrable string) bool {
	_, ok := fuzzyBlocklist[registrable]
	return ok
}
