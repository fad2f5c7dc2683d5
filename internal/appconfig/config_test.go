package appconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Listen != ":8080" {
		t.Errorf("expected listen=:8080, got %s", cfg.Listen)
	}
	if cfg.Collection.MaxSupply != 100 {
		t.Errorf("expected max_supply=100, got %d", cfg.Collection.MaxSupply)
	}
	if cfg.Store.Name() != "memory" {
		t.Errorf("expected memory store, got %s", cfg.Store.Name())
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv(ConfigEnv, "")
	t.Setenv("MEMBERSHIP_NAME", "")
	t.Setenv("MEMBERSHIP_MAX_SUPPLY", "")

	path := filepath.Join(t.TempDir(), "membership.yaml")
	content := `
listen: ":9090"
shutdown_timeout: 3s
log:
  level: debug
  format: text
collection:
  name: Altura Pass
  symbol: ALT
  base_uri: ipfs://cid/
  max_supply: 250
  admin: "0xAD01"
store:
  driver: sqlite
  dsn: /var/lib/membership/state.db
publish:
  kafka:
    brokers: [kafka-1:9092, kafka-2:9092]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Listen != ":9090" || cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("listen/shutdown = %s/%v", cfg.Listen, cfg.ShutdownTimeout)
	}
	if cfg.Collection.Name != "Altura Pass" || cfg.Collection.MaxSupply != 250 {
		t.Errorf("collection = %+v", cfg.Collection)
	}
	if cfg.Collection.Currency != "wei" {
		t.Errorf("expected default currency to survive, got %q", cfg.Collection.Currency)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.DSN != "/var/lib/membership/state.db" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if len(cfg.Publish.Kafka.Brokers) != 2 || cfg.Publish.Kafka.Topic != "membership.events" {
		t.Errorf("kafka = %+v", cfg.Publish.Kafka)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"MEMBERSHIP_NAME":          "Altura Pass",
		"MEMBERSHIP_SYMBOL":        "ALT",
		"MEMBERSHIP_BASEURI":       "ipfs://cid/",
		"MEMBERSHIP_MAX_SUPPLY":    "7",
		"MEMBERSHIP_ADMIN":         "0xad01",
		"MEMBERSHIP_STORE_DRIVER":  "file",
		"MEMBERSHIP_STORE_DSN":     "/tmp/state.cbor",
		"MEMBERSHIP_KAFKA_BROKERS": "a:9092,b:9092",
		"MEMBERSHIP_LISTEN":        "",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}

	if cfg.Collection.Name != "Altura Pass" || cfg.Collection.Symbol != "ALT" || cfg.Collection.MaxSupply != 7 {
		t.Errorf("collection = %+v", cfg.Collection)
	}
	if cfg.Store.Driver != "file" || cfg.Store.DSN != "/tmp/state.cbor" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if len(cfg.Publish.Kafka.Brokers) != 2 {
		t.Errorf("brokers = %v", cfg.Publish.Kafka.Brokers)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("empty variable must not override, got listen=%q", cfg.Listen)
	}
}

func TestApplyEnvBadSupply(t *testing.T) {
	cfg := Default()
	if err := cfg.ApplyEnv(env(map[string]string{"MEMBERSHIP_MAX_SUPPLY": "lots"})); err == nil {
		t.Fatal("expected error for non-numeric max supply")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Collection.Name = "Altura Pass"
		cfg.Collection.Symbol = "ALT"
		cfg.Collection.Admin = "0xad01"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing name", func(c *Config) { c.Collection.Name = "" }, "name"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad driver", func(c *Config) { c.Store.Driver = "redis" }, "store.driver"},
		{"kafka without topic", func(c *Config) {
			c.Publish.Kafka.Brokers = []string{"a:9092"}
			c.Publish.Kafka.Topic = ""
		}, "publish.kafka.topic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Log = LogConfig{Level: "warn", Format: "text"}

	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "token_id", 1)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered: %s", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "token_id=1") {
		t.Errorf("unexpected output: %s", out)
	}
}
