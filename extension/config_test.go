package extension

import (
	"testing"
	"time"

	membership "github.com/xraph/membership"
	"github.com/xraph/membership/store/driver"
)

func TestMergeWithDefaults(t *testing.T) {
	cfg := mergeWithDefaults(Config{
		Collection: membership.Config{Name: "Altura Pass", Symbol: "ALT"},
	})

	if cfg.BasePath != "/membership" {
		t.Errorf("BasePath = %q", cfg.BasePath)
	}
	if cfg.Collection.MaxSupply != 100 || cfg.Collection.Currency != "wei" {
		t.Errorf("Collection = %+v", cfg.Collection)
	}
	if cfg.Store.Driver != driver.Memory {
		t.Errorf("Store.Driver = %q", cfg.Store.Driver)
	}
	if cfg.PluginTimeout != 5*time.Second {
		t.Errorf("PluginTimeout = %v", cfg.PluginTimeout)
	}
}

func TestMergeConfigurations(t *testing.T) {
	yaml := Config{
		BasePath: "/members",
		Collection: membership.Config{
			Name:      "From File",
			MaxSupply: 500,
		},
		Store: driver.Config{Driver: "sqlite"},
	}
	programmatic := Config{
		DisableRoutes: true,
		BasePath:      "/ignored",
		Collection: membership.Config{
			Name:      "From Code",
			Symbol:    "CODE",
			Admin:     "0xad01",
			MaxSupply: 10,
		},
		Store:         driver.Config{Driver: "postgres", DSN: "membership.db"},
		PluginTimeout: time.Second,
	}

	got := mergeConfigurations(yaml, programmatic)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"DisableRoutes", got.DisableRoutes, true},
		{"DisableMigrate", got.DisableMigrate, false},
		{"BasePath", got.BasePath, "/members"},
		{"Name", got.Collection.Name, "From File"},
		{"Symbol", got.Collection.Symbol, "CODE"},
		{"Admin", got.Collection.Admin, "0xad01"},
		{"MaxSupply", got.Collection.MaxSupply, uint64(500)},
		{"Currency", got.Collection.Currency, "wei"},
		{"Driver", got.Store.Driver, "sqlite"},
		{"DSN", got.Store.DSN, "membership.db"},
		{"PluginTimeout", got.PluginTimeout, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestBuildEngineOpts(t *testing.T) {
	e := New(WithDisableMigrate(), WithPluginTimeout(time.Second), WithEngineOption(membership.WithoutMigrate()))
	e.config = mergeWithDefaults(e.config)

	// timeout, disable-migrate, then the pass-through option
	if got := len(e.buildEngineOpts()); got != 3 {
		t.Errorf("len(opts) = %d, want 3", got)
	}
}

func TestOptions(t *testing.T) {
	e := New(
		WithCollection(membership.Config{Name: "Altura Pass"}),
		WithStoreDriver("file", "/tmp/membership.cbor"),
		WithBasePath("/m"),
		WithRequireConfig(true),
	)

	if e.config.Collection.Name != "Altura Pass" {
		t.Errorf("Collection.Name = %q", e.config.Collection.Name)
	}
	if e.config.Store.Driver != "file" || e.config.Store.DSN != "/tmp/membership.cbor" {
		t.Errorf("Store = %+v", e.config.Store)
	}
	if e.config.BasePath != "/m" || !e.config.RequireConfig {
		t.Errorf("config = %+v", e.config)
	}
	if e.Engine() != nil || e.Handler() != nil {
		t.Error("engine and handler must be nil before Register")
	}
}
