package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
)

func setEnv(t *testing.T, statePath string) {
	t.Helper()
	t.Setenv("MEMBERSHIP_CONFIG", "")
	t.Setenv("MEMBERSHIP_NAME", "Altura Pass")
	t.Setenv("MEMBERSHIP_SYMBOL", "ALT")
	t.Setenv("MEMBERSHIP_BASEURI", "ipfs://cid/")
	t.Setenv("MEMBERSHIP_MAX_SUPPLY", "100")
	t.Setenv("MEMBERSHIP_ADMIN", "0xad0000000000000000000000000000000000ad01")
	t.Setenv("MEMBERSHIP_STORE_DRIVER", "file")
	t.Setenv("MEMBERSHIP_STORE_DSN", statePath)
	t.Setenv("MEMBERSHIP_LOG_LEVEL", "error")
}

func deployOnce(t *testing.T, args ...string) summary {
	t.Helper()
	var out bytes.Buffer
	if err := run(args, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	var s summary
	if err := json.Unmarshal(out.Bytes(), &s); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out.String())
	}
	return s
}

func TestDeploySeedsOnce(t *testing.T) {
	setEnv(t, filepath.Join(t.TempDir(), "state.cbor"))
	t.Setenv("MEMBERSHIP_PRICE", "")
	t.Setenv("MEMBERSHIP_PRICE_WEI", "10000000000000000")
	t.Setenv("MEMBERSHIP_DURATION_SECS", "604800")

	first := deployOnce(t)
	if first.SeededTier == nil || *first.SeededTier != 0 || first.Tiers != 1 {
		t.Fatalf("first deploy = %+v", first)
	}
	if first.Name != "Altura Pass" || first.BaseURI != "ipfs://cid/" {
		t.Errorf("first deploy = %+v", first)
	}

	second := deployOnce(t)
	if second.SeededTier != nil || second.Tiers != 1 {
		t.Errorf("second deploy must not seed again: %+v", second)
	}
}

func TestDeploySetBaseURI(t *testing.T) {
	setEnv(t, filepath.Join(t.TempDir(), "state.cbor"))
	t.Setenv("MEMBERSHIP_PRICE", "")
	t.Setenv("MEMBERSHIP_PRICE_WEI", "")
	t.Setenv("MEMBERSHIP_DURATION_SECS", "")

	deployOnce(t)
	s := deployOnce(t, "--set-base-uri", "https://meta.example/")
	if s.BaseURI != "https://meta.example/" || s.Tiers != 0 {
		t.Errorf("summary = %+v", s)
	}
}

func TestSeedFromEnv(t *testing.T) {
	tests := []struct {
		name      string
		price     string
		priceWei  string
		duration  string
		wantPrice uint64
		wantSeed  bool
		wantErr   bool
	}{
		{"unset", "", "", "", 0, false, false},
		{"both", "100", "", "60", 100, true, false},
		{"price only", "100", "", "", 0, false, true},
		{"bad price", "-1", "", "60", 0, false, true},
		{"zero duration", "100", "", "0", 0, false, true},
		{"wei alias", "", "10000000000000000", "604800", 10000000000000000, true, false},
		{"alias agrees", "250", "250", "60", 250, true, false},
		{"alias disagrees", "250", "300", "60", 0, false, true},
		{"alias without duration", "", "250", "", 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MEMBERSHIP_PRICE", tt.price)
			t.Setenv("MEMBERSHIP_PRICE_WEI", tt.priceWei)
			t.Setenv("MEMBERSHIP_DURATION_SECS", tt.duration)

			seed, err := seedFromEnv()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if (seed != nil) != tt.wantSeed {
				t.Fatalf("seed = %+v, wantSeed %v", seed, tt.wantSeed)
			}
			if seed != nil && seed.price != tt.wantPrice {
				t.Errorf("price = %d, want %d", seed.price, tt.wantPrice)
			}
		})
	}
}
