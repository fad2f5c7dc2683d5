package metadata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestTokenURI(t *testing.T) {
	tests := []struct {
		base string
		id   uint64
		want string
	}{
		{"ipfs://cid/", 0, "ipfs://cid/0"},
		{"https://example.com/meta/", 42, "https://example.com/meta/42"},
		{"", 7, "7"},
	}
	for _, tt := range tests {
		if got := (Resolver{}).TokenURI(tt.base, tt.id); got != tt.want {
			t.Errorf("TokenURI(%q, %d) = %q, want %q", tt.base, tt.id, got, tt.want)
		}
	}
}

func TestGeneratorWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "metadata")
	g := Generator{
		Name:        "Altura Pass",
		Description: "Altura membership",
		ImageURI:    "ipfs://image",
		First:       1,
		Count:       3,
	}

	n, err := g.Write(dir)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 3 {
		t.Errorf("wrote %d files, want 3", n)
	}

	data, err := os.ReadFile(filepath.Join(dir, "3.json"))
	if err != nil {
		t.Fatal(err)
	}
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		t.Fatal(err)
	}
	if d.Name != "Altura Pass #3" || d.Image != "ipfs://image" {
		t.Errorf("descriptor = %+v", d)
	}
	if len(d.Attributes) != 1 || d.Attributes[0].TraitType != DefaultTraitType || d.Attributes[0].Value != "Altura Pass" {
		t.Errorf("attributes = %+v", d.Attributes)
	}

	if _, err := os.Stat(filepath.Join(dir, "0.json")); !os.IsNotExist(err) {
		t.Error("id 0 is outside the requested range")
	}
}

func TestGeneratorRequiresName(t *testing.T) {
	if _, err := (Generator{Count: 1}).Write(t.TempDir()); err == nil {
		t.Error("expected error for missing name")
	}
}
