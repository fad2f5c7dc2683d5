package membership

import "github.com/xraph/membership/types"

// Re-export common types for convenience so users don't have to import types package.

// Money is re-exported from types package.
type Money = types.Money

// Address is re-exported from types package.
type Address = types.Address

// NoAddress is the zero address.
const NoAddress = types.NoAddress

// Re-export constructors
var (
	Wei        = types.Wei
	Units      = types.Units
	Zero       = types.Zero
	NewAddress = types.NewAddress
)
