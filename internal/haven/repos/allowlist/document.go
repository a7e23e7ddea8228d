package allowlist

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/havengate/havengate/internal/haven/domain"
)

// maxDocumentBytes caps how much of a remote response is read and
// decoded. The realistic document is a few kilobytes.
const maxDocumentBytes = 1 << 20

// Document is the wire format of an allowlist data set: the bundled
// baseline and the remote endpoint both use it.
type Document struct {
	Version string                  `json:"version" validate:"required"`
	Entries []domain.AllowlistEntry `json:"entries" validate:"required,min=1"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeDocument parses and validates a JSON allowlist document. Schema
// problems and entry-invariant violations both reject the whole
// document: a partially valid data set is not trusted.
func DecodeDocument(data []byte) (*Document, error) {
	if len(data) > maxDocumentBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", maxDocumentBytes)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed allowlist document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the document schema and every entry's invariants.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("allowlist document schema: %w", err)
	}
	for i := range d.Entries {
		d.Entries[i].PrimaryDomain = domain.CanonicalDomainName(d.Entries[i].PrimaryDomain)
		for j, a := range d.Entries[i].Aliases {
			d.Entries[i].Aliases[j] = domain.CanonicalDomainName(a)
		}
		for j, p := range d.Entries[i].SubdomainPatterns {
			d.Entries[i].SubdomainPatterns[j] = domain.CanonicalDomainName(p)
		}
		if err := d.Entries[i].Validate(); err != nil {
			return fmt.Errorf("allowlist entry %d: %w", i, err)
		}
	}
	return nil
}

// Snapshot materializes the document as an immutable snapshot.
func (d *Document) Snapshot(source domain.SnapshotSource, fetchedAt time.Time) (*domain.AllowlistSnapshot, error) {
	return domain.NewAllowlistSnapshot(d.Version, source, fetchedAt, d.Entries)
}

// CompareVersions orders two version strings. Dotted segments are
// compared numerically when both sides are numeric ("1.10" > "1.9",
// "20260115" > "20251203") and lexically otherwise. Returns -1, 0, or 1.
func CompareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var sa, sb string
		if i < len(as) {
			sa = as[i]
		}
		if i < len(bs) {
			sb = bs[i]
		}
		if sa == sb {
			continue
		}
		na, errA := strconv.ParseUint(sa, 10, 64)
		nb, errB := strconv.ParseUint(sb, 10, 64)
		if errA == nil && errB == nil {
			if na < nb {
				return -1
			}
			if na > nb {
				return 1
			}
			continue
		}
		if sa < sb {
			return -1
		}
		return 1
	}
	return 0
}
