// Package config loads MEP process configuration from a TOML file via
// spf13/viper, the same configuration library the teacher repository uses
// for its node configuration.
package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// MepConfig holds everything a mepctl serve process needs at startup.
type MepConfig struct {
	// MaxSlots is loaded from the file but nothing reads it: the slot table
	// size is the compile-time mep.MaxSlotID+1 and cannot be changed here.
	MaxSlots int `mapstructure:"max_slots"`
	// TraceEnabled mirrors Tracer.SetActive/EnableTool at startup.
	TraceEnabled bool `mapstructure:"trace_enabled"`
	// GatewayAddr is loaded from the file but no command reads it; there is
	// no real GatewayClient, and mepctl simulate always uses the in-memory
	// Fake.
	GatewayAddr string `mapstructure:"gateway_addr"`
	// DebugListenAddr is where internal/debugserver binds, empty disables
	// it.
	DebugListenAddr string `mapstructure:"debug_listen_addr"`
	// MetricsNamespace is loaded from the file but no command reads it;
	// mepctl builds its endpoints with mep.NopMetrics.
	MetricsNamespace string `mapstructure:"metrics_namespace"`
}

// DefaultConfig returns the configuration mepctl uses when no config file
// is supplied.
func DefaultConfig() *MepConfig {
	return &MepConfig{
		MaxSlots:         9,
		TraceEnabled:     false,
		GatewayAddr:      "",
		DebugListenAddr:  "127.0.0.1:26670",
		MetricsNamespace: "mep",
	}
}

// Load reads a TOML file at path into a MepConfig seeded with
// DefaultConfig's values, so a partial file only overrides what it names.
func Load(path string) (*MepConfig, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	return cfg, nil
}
