package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/portlogistics/portplan/infra/monitoring"
	"github.com/portlogistics/portplan/infra/mqtt"
	"github.com/portlogistics/portplan/infra/solver"
)

// SentryConfig is re-exported for configuration files.
type SentryConfig = monitoring.SentryConfig

type Config struct {
	Server    ServerConfig    `json:"server"`
	Solver    solver.Config   `json:"solver"`
	Conflicts ConflictsConfig `json:"conflicts"`
	Rebalance RebalanceConfig `json:"rebalance"`
	Store     StoreConfig     `json:"store"`
	Audit     AuditConfig     `json:"audit"`
	Directory DirectoryConfig `json:"directory"`
	Metrics   MetricsConfig   `json:"metrics"`
	MQTT      mqtt.Config     `json:"mqtt"`
	Sentry    SentryConfig    `json:"sentry"`
	Logging   LoggingConfig   `json:"logging"`
}

// Load reads a YAML or JSON file, applies K_ environment overrides
// (K_SERVER__ADDRESS sets server.address), fills defaults and validates.
// An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Solver.SetDefaults()
	c.Store.SetDefaults()
	c.Audit.SetDefaults()
	c.Metrics.SetDefaults()
	if c.MQTT.Enabled() {
		c.MQTT.SetDefaults()
	}
	c.Logging.SetDefaults()
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	check := func(section string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}
	check("server", c.Server.Validate())
	check("solver", c.Solver.Validate())
	check("conflicts", c.Conflicts.Validate())
	check("rebalance", c.Rebalance.Validate())
	check("store", c.Store.Validate())
	check("audit", c.Audit.Validate())
	check("metrics", c.Metrics.Validate())
	check("mqtt", c.MQTT.Validate())
	check("logging", c.Logging.Validate())
	return errors.Join(errs...)
}
