package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// CacheSize is the capacity of the per-snapshot decision cache.
	CacheSize uint `koanf:"cache_size" validate:"required,gte=1"`

	// DBPath is the bbolt file that persists fetched allowlist snapshots
	// across restarts.
	DBPath string `koanf:"db_path" validate:"required"`

	// AllowlistURL is the remote allowlist document endpoint. Empty
	// disables remote refresh and the engine serves bundled/cached only.
	AllowlistURL string `koanf:"allowlist_url" validate:"omitempty,url"`

	// TelemetryURL is the fuzzy-match telemetry ingestion endpoint.
	// Empty disables telemetry submission.
	TelemetryURL string `koanf:"telemetry_url" validate:"omitempty,url"`

	// RefreshInterval is how often the background refresher runs.
	RefreshInterval time.Duration `koanf:"refresh_interval" validate:"required,min=1m"`

	// SnapshotTTL is how long a fetched snapshot is considered fresh.
	SnapshotTTL time.Duration `koanf:"snapshot_ttl" validate:"required,min=1h"`

	// DeviceType labels telemetry records: "unknown", "desktop", "mobile",
	// or "tablet". It describes a platform class, never a device identity.
	DeviceType string `koanf:"device_type" validate:"required,oneof=unknown desktop mobile tablet"`

	// ListenAddr, when set, exposes the local evaluate API ("127.0.0.1:7877").
	// Empty disables the HTTP transport.
	ListenAddr string `koanf:"listen_addr" validate:"omitempty,hostname_port"`
}

// envLoader loads environment variables with the prefix "HAVEN_",
// lowercasing keys and stripping the prefix. Replaceable in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "HAVEN_",
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, "HAVEN_")), value
		},
	}), nil)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	// Defaults via the structs provider.
	k.Load(structs.Provider(AppConfig{
		Env:             "prod",
		LogLevel:        "info",
		CacheSize:       2048,
		DBPath:          "havengate.db",
		RefreshInterval: 6 * time.Hour,
		SnapshotTTL:     24 * time.Hour,
		DeviceType:      "unknown",
	}, "koanf"), nil)

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
