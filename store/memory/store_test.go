package memory_test

import (
	"testing"

	mstore "github.com/xraph/membership/store"
	"github.com/xraph/membership/store/memory"
	"github.com/xraph/membership/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) mstore.Store { return memory.New() })
}
