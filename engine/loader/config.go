package loader

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config tunes one Loader instance. Durations are expressed in milliseconds
// so the TOML shape stays plain integers.
type Config struct {
	// MaxParallel bounds the in-flight set.
	MaxParallel int `toml:"max_parallel"`
	// BaseURL is informational: adapters resolve URLs, the loader only logs
	// it. Kept in config so one TOML file can configure loader and adapter.
	BaseURL string `toml:"base_url"`
	// FetchTimeoutMS is handed to the transport adapter by the callers that
	// construct both from one config.
	FetchTimeoutMS int `toml:"fetch_timeout_ms"`
	// StallGraceMS is how long a stalled run may sit before force-finishing.
	StallGraceMS int `toml:"stall_grace_ms"`
	LogLevel     string `toml:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		MaxParallel:    4,
		FetchTimeoutMS: 30000,
		StallGraceMS:   500,
		LogLevel:       "info",
	}
}

// LoadConfig reads a TOML file over the defaults. Missing keys keep their
// default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.normalized(), nil
}

func (c Config) normalized() Config {
	if c.MaxParallel <= 0 {
		c.MaxParallel = DefaultConfig().MaxParallel
	}
	if c.StallGraceMS <= 0 {
		c.StallGraceMS = DefaultConfig().StallGraceMS
	}
	return c
}

func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

func (c Config) StallGrace() time.Duration {
	return time.Duration(c.StallGraceMS) * time.Millisecond
}
