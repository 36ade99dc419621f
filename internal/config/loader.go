package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Unknown fields are rejected so typos fail loudly instead of silently
// falling back to defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Finance.Currency == "" {
		cfg.Finance.Currency = "EUR"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.ShutdownGrace < 0 {
		errs = append(errs, errors.New("server.shutdown_grace must not be negative"))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	if cfg.Finance.DefaultTaxRate < 0 || cfg.Finance.DefaultTaxRate > 100 {
		errs = append(errs, fmt.Errorf("finance.default_tax_rate %.2f is out of range [0, 100]", cfg.Finance.DefaultTaxRate))
	}
	if len(cfg.Finance.Currency) != 3 {
		errs = append(errs, fmt.Errorf("finance.currency %q is not a three-letter ISO 4217 code", cfg.Finance.Currency))
	}

	if cfg.Voice.Enabled {
		if cfg.Voice.Endpoint == "" {
			errs = append(errs, errors.New("voice.endpoint is required when voice is enabled"))
		} else if !strings.HasPrefix(cfg.Voice.Endpoint, "ws://") && !strings.HasPrefix(cfg.Voice.Endpoint, "wss://") {
			errs = append(errs, fmt.Errorf("voice.endpoint %q must be a ws:// or wss:// URL", cfg.Voice.Endpoint))
		}
		if cfg.Voice.APIKey == "" {
			slog.Warn("voice.api_key is empty; the agent service may reject the session")
		}
	}

	if cfg.Database.PostgresDSN == "" {
		slog.Warn("database.postgres_dsn is empty; running on the in-memory store, data will not survive a restart")
	}
	if cfg.LLM.APIKey == "" && cfg.LLM.BaseURL == "" {
		slog.Warn("llm.api_key is empty and no base_url override is set; text chat will be unavailable")
	}

	return errors.Join(errs...)
}
