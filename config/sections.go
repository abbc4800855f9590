package config

import (
	"fmt"
	"time"

	"github.com/portlogistics/portplan/core/conflict"
	"github.com/portlogistics/portplan/core/factory"
)

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address             string `json:"address"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.ReadTimeoutSeconds <= 0 {
		c.ReadTimeoutSeconds = 30
	}
	// comparisons wait for up to three solver calls of five minutes each
	if c.WriteTimeoutSeconds <= 0 {
		c.WriteTimeoutSeconds = 360
	}
}

func (c ServerConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}
	return nil
}

func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// ConflictsConfig overrides the severity of conflict codes.
type ConflictsConfig struct {
	Severity map[string]string `json:"severity"`
}

// Policy builds the severity policy from the defaults and the overrides.
func (c ConflictsConfig) Policy() (conflict.SeverityPolicy, error) {
	return conflict.NewSeverityPolicy(c.Severity)
}

func (c ConflictsConfig) Validate() error {
	_, err := c.Policy()
	return err
}

// RebalanceConfig bounds the greedy rebalancer. A zero budget allows one
// accepted move per VVN of the day.
type RebalanceConfig struct {
	Budget int `json:"budget"`
}

func (c RebalanceConfig) Validate() error {
	if c.Budget < 0 {
		return fmt.Errorf("budget must not be negative")
	}
	return nil
}

// StoreConfig selects where operation plans are persisted.
type StoreConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `json:"backend"`
	Path    string `json:"path"`
}

func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Backend == "sqlite" && c.Path == "" {
		c.Path = "plans.db"
	}
}

func (c StoreConfig) Validate() error {
	if c.Backend != "memory" && c.Backend != "sqlite" {
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	return nil
}

// DirectoryConfig points at the seed file of docks, vessels, staff and VVNs.
type DirectoryConfig struct {
	Path string `json:"path"`
	// StaffQualifications filters the staff pool used by the base schedule.
	StaffQualifications []string `json:"staff_qualifications"`
}

// MetricsConfig lists the metrics sinks and the Prometheus listen address.
type MetricsConfig struct {
	Sinks       []factory.ModuleConfig `json:"sinks"`
	PromAddress string                 `json:"prom_address"`
}

func (c *MetricsConfig) SetDefaults() {
	if c.PromAddress == "" && c.HasSink("prometheus") {
		c.PromAddress = ":9090"
	}
}

// HasSink reports whether a sink of the given type is configured.
func (c MetricsConfig) HasSink(name string) bool {
	for _, s := range c.Sinks {
		if s.Type == name {
			return true
		}
	}
	return false
}

func (c MetricsConfig) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("sink %d has no type", i)
		}
	}
	return nil
}
