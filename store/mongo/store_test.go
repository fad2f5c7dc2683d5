package mongo_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	mstore "github.com/xraph/membership/store"
	"github.com/xraph/membership/store/mongo"
	"github.com/xraph/membership/store/storetest"
)

// The suite needs a replica set; each subtest uses its own database.
func TestStore(t *testing.T) {
	uri := os.Getenv("MEMBERSHIP_MONGO_URI")
	if uri == "" {
		t.Skip("MEMBERSHIP_MONGO_URI not set")
	}

	n := 0
	storetest.Run(t, func(t *testing.T) mstore.Store {
		n++
		name := fmt.Sprintf("membership_test_%d_%s", n, strings.ToLower(strings.ReplaceAll(t.Name(), "/", "_")))
		if len(name) > 60 {
			name = name[:60]
		}
		s, err := mongo.Open(context.Background(), uri, name)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() {
			_ = s.Database().Drop(context.Background())
			_ = s.Close()
		})
		return s
	})
}
