package domain

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFuzzyMatchReport(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	rec := NewFuzzyMatchReport("988lifline.org", "988lifeline.org", 1, DeviceDesktop, now)

	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.Equal(t, "988lifline.org", rec.InputDomain)
	assert.Equal(t, "988lifeline.org", rec.MatchedDomain)
	assert.Equal(t, uint8(1), rec.Distance)
	assert.Equal(t, DeviceDesktop, rec.DeviceType)
	assert.Equal(t, now, rec.RecordedAt)
}

// TestFuzzyMatchReport_SchemaHasNoIdentityFields pins the zero-linkage
// invariant at the schema level: the struct may only ever carry the six
// known fields, and none of them may be an identity of any kind. Growing
// the struct means consciously editing this test.
func TestFuzzyMatchReport_SchemaHasNoIdentityFields(t *testing.T) {
	typ := reflect.TypeOf(FuzzyMatchReport{})

	allowed := map[string]bool{
		"ID":            true,
		"InputDomain":   true,
		"MatchedDomain": true,
		"Distance":      true,
		"DeviceType":    true,
		"RecordedAt":    true,
	}
	require.Equal(t, len(allowed), typ.NumField(), "FuzzyMatchReport grew a field; re-verify the zero-linkage invariant")

	banned := []string{"user", "family", "child", "account", "household", "parent", "email", "phone", "session", "deviceid", "address"}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		assert.True(t, allowed[f.Name], "unexpected field %s", f.Name)

		lower := strings.ToLower(f.Name + " " + f.Tag.Get("json"))
		for _, b := range banned {
			assert.NotContains(t, lower, b, "field %s smells like an identity", f.Name)
		}
	}
}

func TestDeviceType_RoundTrip(t *testing.T) {
	for _, d := range []DeviceType{DeviceUnknown, DeviceDesktop, DeviceMobile, DeviceTablet} {
		parsed, err := ParseDeviceType(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, parsed)
	}
	_, err := ParseDeviceType("toaster")
	assert.Error(t, err)
}
