package domain

import (
	"time"

	"github.com/google/uuid"
)

// FuzzyMatchReport is one fuzzy-match observation queued for the
// allowlist improvement pipeline.
//
// Privacy invariant: this struct must never grow a field that is, or can
// be joined into, a family, child, account, device, or network identity.
// The raw input domain is acceptable precisely because nothing links it
// to who typed it. Enforced by schema inspection in tests.
type FuzzyMatchReport struct {
	ID            uuid.UUID  `json:"id"`
	InputDomain   string     `json:"input_domain"`
	MatchedDomain string     `json:"matched_domain"`
	Distance      uint8      `json:"distance"`
	DeviceType    DeviceType `json:"device_type"`
	RecordedAt    time.Time  `json:"recorded_at"`
}

// NewFuzzyMatchReport assigns a fresh ID and timestamps the observation.
func NewFuzzyMatchReport(input, matched string, distance uint8, device DeviceType, now time.Time) FuzzyMatchReport {
	return FuzzyMatchReport{
		ID:            uuid.New(),
		InputDomain:   input,
		MatchedDomain: matched,
		Distance:      distance,
		DeviceType:    device,
		RecordedAt:    now,
	}
}
