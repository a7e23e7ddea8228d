package allowlist

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/havengate/havengate/internal/haven/domain"
)

// The compiled-in baseline. The engine must never operate with zero
// snapshot, so this data set is the floor of the fallback chain.
//
//go:embed bundled_allowlist.json
var bundledJSON []byte

// MustBundled decodes the compiled-in baseline snapshot. It can only
// fail on a corrupt build ("the binary shipped with bad data"), which is
// the one situation where refusing to start is the right call; a test
// keeps that from ever reaching a release.
func MustBundled() *domain.AllowlistSnapshot {
	doc, err := DecodeDocument(bundledJSON)
	if err != nil {
		panic(fmt.Sprintf("bundled allowlist is invalid: %v", err))
	}
	snap, err := doc.Snapshot(domain.SourceBundled, time.Time{})
	if err != nil {
		panic(fmt.Sprintf("bundled allowlist is invalid: %v", err))
	}
	return snap
}
