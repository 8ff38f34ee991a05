// Package config loads access-dashboard configuration.
//
// Values are resolved in order: built-in defaults, then the YAML file named
// by --config or DCM_CONFIG (optional), then DCM_* environment variables.
// Command-line flags in cmd/ are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration written as a Go duration string in YAML
// ("250ms", "2s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`

	// LogMode selects the zap encoder: "dev" or "prod".
	LogMode string `yaml:"log_mode"`

	Catalog   CatalogConfig   `yaml:"catalog"`
	Selection SelectionConfig `yaml:"selection"`
	Flow      FlowConfig      `yaml:"flow"`
	Matching  MatchingConfig  `yaml:"matching"`
	Report    ReportConfig    `yaml:"report"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type CatalogConfig struct {
	// DBPath is a SQLite catalog seeded by catalog-import. Empty serves the
	// embedded fixture catalog.
	DBPath string `yaml:"db_path"`

	// FixturePath overrides the embedded fixture with a YAML file. Ignored
	// when DBPath is set.
	FixturePath string `yaml:"fixture_path"`
}

type SelectionConfig struct {
	// RedisAddr enables the shared Redis selection store. Empty keeps
	// selections in memory.
	RedisAddr string   `yaml:"redis_addr"`
	TTL       Duration `yaml:"ttl"`
}

type FlowConfig struct {
	RecomputeDelay Duration `yaml:"recompute_delay"`
	SubmitLatency  Duration `yaml:"submit_latency"`
	ActionLatency  Duration `yaml:"action_latency"`
	SessionIdle    Duration `yaml:"session_idle"`
	SweepInterval  Duration `yaml:"sweep_interval"`
}

type MatchingConfig struct {
	// CacheSize bounds the match memo. Zero disables it.
	CacheSize int `yaml:"cache_size"`
}

type ReportConfig struct {
	ChromePath string `yaml:"chrome_path"`
	StylePath  string `yaml:"style_path"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	Environment  string  `yaml:"environment"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	Insecure     bool    `yaml:"insecure"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

func Default() *Config {
	return &Config{
		Addr:    ":8080",
		LogMode: "dev",
		Selection: SelectionConfig{
			TTL: Duration{24 * time.Hour},
		},
		Flow: FlowConfig{
			RecomputeDelay: Duration{300 * time.Millisecond},
			SubmitLatency:  Duration{1500 * time.Millisecond},
			ActionLatency:  Duration{500 * time.Millisecond},
			SessionIdle:    Duration{30 * time.Minute},
			SweepInterval:  Duration{time.Minute},
		},
		Matching: MatchingConfig{CacheSize: 256},
		Telemetry: TelemetryConfig{
			ServiceName: "access-dashboard",
			Environment: "development",
			SampleRatio: 0.1,
		},
	}
}

// Load resolves configuration from path (or DCM_CONFIG when path is empty)
// and the process environment. A missing path is not an error.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = os.Getenv("DCM_CONFIG")
	}
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML file over the defaults without consulting the
// environment.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from DCM_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	dur := func(key string, dst *Duration) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		dst.Duration = d
		return nil
	}

	str("DCM_ADDR", &c.Addr)
	str("DCM_LOG_MODE", &c.LogMode)
	str("DCM_CATALOG_DB", &c.Catalog.DBPath)
	str("DCM_CATALOG_FIXTURE", &c.Catalog.FixturePath)
	str("DCM_REDIS_ADDR", &c.Selection.RedisAddr)
	str("DCM_CHROME_PATH", &c.Report.ChromePath)
	str("DCM_REPORT_STYLE", &c.Report.StylePath)
	str("DCM_OTLP_ENDPOINT", &c.Telemetry.OTLPEndpoint)

	var errs []error
	errs = append(errs,
		dur("DCM_SELECTION_TTL", &c.Selection.TTL),
		dur("DCM_RECOMPUTE_DELAY", &c.Flow.RecomputeDelay),
		dur("DCM_SUBMIT_LATENCY", &c.Flow.SubmitLatency),
		dur("DCM_ACTION_LATENCY", &c.Flow.ActionLatency),
		dur("DCM_SESSION_IDLE", &c.Flow.SessionIdle),
		dur("DCM_SWEEP_INTERVAL", &c.Flow.SweepInterval),
	)
	if v, ok := lookup("DCM_CACHE_SIZE"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("DCM_CACHE_SIZE: %w", err))
		} else {
			c.Matching.CacheSize = n
		}
	}
	if v, ok := lookup("DCM_OTEL_ENABLED"); ok && strings.TrimSpace(v) != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			c.Telemetry.Enabled = true
		default:
			c.Telemetry.Enabled = false
		}
	}
	return errors.Join(errs...)
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	switch c.LogMode {
	case "dev", "prod":
	default:
		errs = append(errs, fmt.Errorf("log_mode must be dev or prod, got %q", c.LogMode))
	}
	for name, d := range map[string]Duration{
		"selection.ttl":        c.Selection.TTL,
		"flow.recompute_delay": c.Flow.RecomputeDelay,
		"flow.submit_latency":  c.Flow.SubmitLatency,
		"flow.action_latency":  c.Flow.ActionLatency,
		"flow.session_idle":    c.Flow.SessionIdle,
		"flow.sweep_interval":  c.Flow.SweepInterval,
	} {
		if d.Duration < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if c.Matching.CacheSize < 0 {
		errs = append(errs, errors.New("matching.cache_size must not be negative"))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, errors.New("telemetry.sample_ratio must be within [0, 1]"))
	}
	return errors.Join(errs...)
}
