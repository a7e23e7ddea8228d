package domain

import (
	"fmt"
	"strings"
)

// DeviceType identifies the class of device a decision ran on. It is the
// only environmental detail telemetry is allowed to carry.
type DeviceType uint8

const (
	// DeviceUnknown is the zero value for unrecognized platforms.
	DeviceUnknown DeviceType = iota
	// DeviceDesktop covers desktop and laptop agents.
	DeviceDesktop
	// DeviceMobile covers phone agents.
	DeviceMobile
	// DeviceTablet covers tablet agents.
	DeviceTablet
)

// String returns a stable string representation of the device type.
func (d DeviceType) String() string {
	switch d {
	case DeviceUnknown:
		return "unknown"
	case DeviceDesktop:
		return "desktop"
	case DeviceMobile:
		return "mobile"
	case DeviceTablet:
		return "tablet"
	default:
		return fmt.Sprintf("DeviceType(%d)", d)
	}
}

// ParseDeviceType converts a string into a DeviceType (case-insensitive).
func ParseDeviceType(s string) (DeviceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unknown", "":
		return DeviceUnknown, nil
	case "desktop":
		return DeviceDesktop, nil
	case "mobile":
		return DeviceMobile, nil
	case "tablet":
		return DeviceTablet, nil
	default:
		return DeviceUnknown, fmt.Errorf("unsupported DeviceType: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d DeviceType) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DeviceType) UnmarshalText(b []byte) error {
	v, err := ParseDeviceType(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
