package sqlite_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	mstore "github.com/xraph/membership/store"
	"github.com/xraph/membership/store/sqlite"
	"github.com/xraph/membership/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) mstore.Store {
		name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
		dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
		s, err := sqlite.Open(context.Background(), dsn)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
