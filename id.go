package membership

import "github.com/xraph/membership/id"

// ID is the identifier type for events, transactions and payment receipts.
type ID = id.ID

// Prefix identifies the record type encoded in a TypeID.
type Prefix = id.Prefix
