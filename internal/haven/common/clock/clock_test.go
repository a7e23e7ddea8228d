package clock

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}

	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) {
		t.Errorf("Clock time %v is before measurement time %v", now, before)
	}
	if now.After(after) {
		t.Errorf("Clock time %v is after measurement time %v", now, after)
	}
}

func TestMockClock_Now(t *testing.T) {
	fixedTime := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(fixedTime)

	if !clock.Now().Equal(fixedTime) {
		t.Errorf("Expected %v, got %v", fixedTime, clock.Now())
	}
	if !clock.Now().Equal(clock.Now()) {
		t.Error("Mock clock must return consistent time across calls")
	}
}

func TestMockClock_Advance(t *testing.T) {
	initialTime := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(initialTime)

	testCases := []struct {
		name     string
		duration time.Duration
		expected time.Time
	}{
		{
			name:     "advance by 1 hour",
			duration: 1 * time.Hour,
			expected: initialTime.Add(1 * time.Hour),
		},
		{
			name:     "advance by 30 minutes more",
			duration: 30 * time.Minute,
			expected: initialTime.Add(1*time.Hour + 30*time.Minute),
		},
		{
			name:     "advance by zero",
			duration: 0,
			expected: initialTime.Add(1*time.Hour + 30*time.Minute),
		},
		{
			name:     "advance backwards",
			duration: -30 * time.Minute,
			expected: initialTime.Add(1 * time.Hour),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clock.Advance(tc.duration)
			if now := clock.Now(); !now.Equal(tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, now)
			}
		})
	}
}

func TestMockClock_TTLSimulation(t *testing.T) {
	// Simulate a fetched allowlist snapshot aging past its TTL.
	startTime := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ttl := 24 * time.Hour

	testPoints := []struct {
		name    string
		advance time.Duration
		stale   bool
	}{
		{"immediately", 0, false},
		{"halfway through TTL", 12 * time.Hour, false},
		{"just before expiry", 24*time.Hour - time.Second, false},
		{"after expiry", 24*time.Hour + time.Second, true},
		{"long after expiry", 72 * time.Hour, true},
	}

	for _, tp := range testPoints {
		t.Run(tp.name, func(t *testing.T) {
			clock := NewMockClock(startTime)
			clock.Advance(tp.advance)

			isStale := clock.Now().Sub(startTime) > ttl
			if isStale != tp.stale {
				t.Errorf("At advance %v, expected stale=%v, got stale=%v", tp.advance, tp.stale, isStale)
			}
		})
	}
}
