package gate

import "testing"

func TestBoundedLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		max  int
		want int
	}{
		{"", "", 2, 0},
		{"abc", "abc", 2, 0},
		{"", "ab", 2, 2},
		{"ab", "", 2, 2},
		{"988lifeline", "988lifline", 2, 1},   // deletion
		{"988lifeline", "988lifelone", 2, 1},  // substitution
		{"988lifeline", "988lifeliine", 2, 1}, // insertion
		{"988lifeline", "988lifelnie", 2, 2},  // transposition costs 2
		{"crisistextline", "crisistextlin", 2, 1},
		{"abcdefghij", "jihgfedcba", 2, 3}, // early abort: reported as max+1
		{"short", "muchlongerstring", 2, 3},
		{"kitten", "sitting", 5, 3},
	}
	for _, tt := range tests {
		got := boundedLevenshtein(tt.a, tt.b, tt.max)
		if got != tt.want {
			t.Errorf("boundedLevenshtein(%q, %q, %d) = %d; want %d", tt.a, tt.b, tt.max, got, tt.want)
		}
	}
}

func TestBoundedLevenshtein_LengthGapShortCircuit(t *testing.T) {
	// The DP table must not run when lengths alone exceed the bound.
	long := make([]byte, 10_000)
	for i := range long {
		long[i] = 'a'
	}
	if got := boundedLevenshtein("abc", string(long), 2); got != 3 {
		t.Fatalf("expected max+1, got %d", got)
	}
}
