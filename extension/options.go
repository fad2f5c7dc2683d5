package extension

import (
	"time"

	membership "github.com/xraph/membership"
	"github.com/xraph/membership/plugin"
	"github.com/xraph/membership/store"
)

// Option configures the Membership Forge extension.
type Option func(*Extension)

// WithStore sets the store for the membership engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a membership.Option through to the underlying engine.
func WithEngineOption(opt membership.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a membership plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, membership.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithCollection sets the collection configuration.
func WithCollection(cfg membership.Config) Option {
	return func(e *Extension) { e.config.Collection = cfg }
}

// WithStoreDriver selects the store backend by driver name and DSN.
func WithStoreDriver(name, dsn string) Option {
	return func(e *Extension) {
		e.config.Store.Driver = name
		e.config.Store.DSN = dsn
	}
}

// WithDisableRoutes prevents HTTP route registration.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for membership routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
