package membership

import (
	"strings"

	"github.com/xraph/membership/types"
)

// Config is the construction-time configuration of a membership
// collection. It is immutable once the engine has committed its first
// transaction; BaseURI is only the initial value and can be changed by
// the admin afterwards.
type Config struct {
	// Name is the collection name, e.g. "Altura Pass".
	Name string `json:"name" mapstructure:"name" yaml:"name"`

	// Symbol is the short ticker of the collection.
	Symbol string `json:"symbol" mapstructure:"symbol" yaml:"symbol"`

	// BaseURI is the initial prefix for token descriptor locations.
	BaseURI string `json:"base_uri" mapstructure:"base_uri" yaml:"base_uri"`

	// MaxSupply caps the number of tokens that can ever be minted.
	MaxSupply uint64 `json:"max_supply" mapstructure:"max_supply" yaml:"max_supply"`

	// Admin is the identity allowed to manage tiers and the base URI.
	Admin string `json:"admin" mapstructure:"admin" yaml:"admin"`

	// Currency is the denomination of tier prices and payments
	// (default: "wei"). Amounts are unsigned 64-bit, so in wei no price or
	// payment can exceed 2^64-1 (about 18.44 ETH); pick a coarser unit such
	// as gwei for larger prices.
	Currency string `json:"currency" mapstructure:"currency" yaml:"currency"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxSupply: 100,
		Currency:  types.DefaultCurrency,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ValidationError{Field: "name", Message: "is required"}
	}
	if strings.TrimSpace(c.Symbol) == "" {
		return ValidationError{Field: "symbol", Message: "is required"}
	}
	if c.MaxSupply == 0 {
		return ValidationError{Field: "max_supply", Message: "must be positive"}
	}
	if types.NewAddress(c.Admin).IsZero() {
		return ValidationError{Field: "admin", Message: "is required"}
	}
	return nil
}

func (c Config) currency() string {
	return types.Zero(c.Currency).Currency
}
