// Package metadata composes token descriptor locations and generates the
// offline descriptor files they point at.
package metadata

import "strconv"

// Resolver joins a base URI and a token id. It holds no state and performs
// no lookups; callers check that the token exists.
type Resolver struct{}

// TokenURI returns baseURI followed by the decimal token id. No separator
// is inserted, so base URIs normally end in "/".
func (Resolver) TokenURI(baseURI string, tokenID uint64) string {
	return baseURI + strconv.FormatUint(tokenID, 10)
}
