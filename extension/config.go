package extension

import (
	"time"

	membership "github.com/xraph/membership"
	"github.com/xraph/membership/store/driver"
)

// Config holds the Membership extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.membership" or "membership" keys).
type Config struct {
	// DisableRoutes prevents the HTTP API handler from being registered.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for membership routes (default: "/membership").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// Collection is the construction-time configuration of the collection.
	Collection membership.Config `json:"collection" mapstructure:"collection" yaml:"collection"`

	// Store selects the backend when no store was passed with WithStore
	// (default: memory).
	Store driver.Config `json:"store" mapstructure:"store" yaml:"store"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:      "/membership",
		Collection:    membership.DefaultConfig(),
		Store:         driver.Config{Driver: driver.Memory},
		PluginTimeout: 5 * time.Second,
	}
}
