// Package access holds the authorization predicates guarding admin and
// renewal operations.
package access

import (
	"fmt"

	"github.com/xraph/membership/types"
)

// Delegates answers whether a caller may act on a token.
type Delegates interface {
	IsApprovedOrOwner(id uint64, caller types.Address) (bool, error)
}

// Controller checks callers against the admin fixed at construction.
type Controller struct {
	admin types.Address
}

// NewController returns a Controller for admin. The admin cannot be changed
// afterwards.
func NewController(admin types.Address) (*Controller, error) {
	if admin.IsZero() {
		return nil, fmt.Errorf("%w: admin address is required", types.ErrInvalidInput)
	}
	return &Controller{admin: admin.Normalize()}, nil
}

// Admin returns the admin identity.
func (c *Controller) Admin() types.Address { return c.admin }

// IsAdmin reports whether caller is the admin.
func (c *Controller) IsAdmin(caller types.Address) bool {
	return c.admin.Equal(caller)
}

// RequireAdmin fails with ErrUnauthorized unless caller is the admin.
func (c *Controller) RequireAdmin(caller types.Address) error {
	if !c.IsAdmin(caller) {
		return fmt.Errorf("%w: %s is not the admin", types.ErrUnauthorized, displayAddress(caller))
	}
	return nil
}

// RequireOwnerOrApproved fails with ErrUnauthorized unless caller owns the
// token or is its approved operator. Unknown tokens yield the lookup error.
func (c *Controller) RequireOwnerOrApproved(tokens Delegates, tokenID uint64, caller types.Address) error {
	ok, err := tokens.IsApprovedOrOwner(tokenID, caller)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s is neither owner nor approved for token %d",
			types.ErrUnauthorized, displayAddress(caller), tokenID)
	}
	return nil
}

func displayAddress(a types.Address) string {
	if a.IsZero() {
		return "anonymous caller"
	}
	return a.Normalize().String()
}
