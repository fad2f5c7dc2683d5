// Package extension provides the Forge extension adapter for Membership.
//
// It implements the forge.Extension interface to integrate a membership
// collection into a Forge application with DI registration and lifecycle
// management. The engine and, unless routes are disabled, its HTTP API
// handler are provided to the container.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.membership" or
// "membership" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	membership "github.com/xraph/membership"
	"github.com/xraph/membership/api"
	"github.com/xraph/membership/store"
	"github.com/xraph/membership/store/driver"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "membership"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Time-limited membership tokens"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Membership as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *membership.Engine
	handler    *api.Handler
	store      store.Store
	engineOpts []membership.Option

	// openStore opens the configured backend when no store was supplied.
	openStore func(context.Context, driver.Config, *slog.Logger) (store.Store, error)
}

// New creates a new Membership Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
		openStore:     driver.Open,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying membership engine.
// This is nil until Register is called.
func (e *Extension) Engine() *membership.Engine { return e.engine }

// Handler returns the HTTP API handler, or nil when routes are disabled.
func (e *Extension) Handler() *api.Handler { return e.handler }

// Register implements [forge.Extension]. It loads configuration,
// builds the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.buildEngine(context.Background()); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*membership.Engine, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}

	if e.config.DisableRoutes {
		return nil
	}

	e.handler = api.New(e.engine, e.config.BasePath)
	return vessel.Provide(fapp.Container(), func() (*api.Handler, error) {
		return e.handler, nil
	})
}

// buildEngine opens the configured store unless one was supplied and
// constructs the engine on it. A store opened here is closed again if the
// engine cannot be built; a caller-supplied store is left alone.
func (e *Extension) buildEngine(ctx context.Context) error {
	opened := false
	if e.store == nil {
		s, err := e.openStore(ctx, e.config.Store, nil)
		if err != nil {
			return fmt.Errorf("membership: open store: %w", err)
		}
		e.store = s
		opened = true
	}

	eng, err := membership.New(e.config.Collection, e.store, e.buildEngineOpts()...)
	if err != nil {
		if opened {
			err = errors.Join(err, e.store.Close())
			e.store = nil
		}
		return err
	}
	e.engine = eng
	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("membership: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("membership: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs membership.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []membership.Option {
	opts := make([]membership.Option, 0, len(e.engineOpts)+2)

	if e.config.PluginTimeout > 0 {
		opts = append(opts, membership.WithPluginTimeout(e.config.PluginTimeout))
	}
	if e.config.DisableMigrate {
		opts = append(opts, membership.WithoutMigrate())
	}

	// Pass-through options last so they win.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("membership: configuration is required but not found in config files; " +
				"ensure 'extensions.membership' or 'membership' key exists in your config")
		}

		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("membership: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("name", e.config.Collection.Name),
		forge.F("symbol", e.config.Collection.Symbol),
		forge.F("max_supply", e.config.Collection.MaxSupply),
		forge.F("store_driver", e.config.Store.Name()),
		forge.F("plugin_timeout", e.config.PluginTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.membership", "membership"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("membership: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("membership: loaded config from file",
			forge.F("key", key),
		)
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.Collection.MaxSupply == 0 {
		cfg.Collection.MaxSupply = defaults.Collection.MaxSupply
	}
	if cfg.Collection.Currency == "" {
		cfg.Collection.Currency = defaults.Collection.Currency
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = defaults.Store.Driver
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	yamlConfig.BasePath = firstNonEmpty(yamlConfig.BasePath, programmaticConfig.BasePath)

	yc, pc := &yamlConfig.Collection, programmaticConfig.Collection
	yc.Name = firstNonEmpty(yc.Name, pc.Name)
	yc.Symbol = firstNonEmpty(yc.Symbol, pc.Symbol)
	yc.BaseURI = firstNonEmpty(yc.BaseURI, pc.BaseURI)
	yc.Admin = firstNonEmpty(yc.Admin, pc.Admin)
	yc.Currency = firstNonEmpty(yc.Currency, pc.Currency)
	if yc.MaxSupply == 0 {
		yc.MaxSupply = pc.MaxSupply
	}

	ys, ps := &yamlConfig.Store, programmaticConfig.Store
	ys.Driver = firstNonEmpty(ys.Driver, ps.Driver)
	ys.DSN = firstNonEmpty(ys.DSN, ps.DSN)
	ys.Database = firstNonEmpty(ys.Database, ps.Database)

	if yamlConfig.PluginTimeout == 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	return mergeWithDefaults(yamlConfig)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
