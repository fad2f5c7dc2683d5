package audithook

// Action constants for audit events.
const (
	// Tier actions
	ActionTierCreated     = "tier.created"
	ActionTierUpdated     = "tier.updated"
	ActionTierDeactivated = "tier.deactivated"

	// Token actions
	ActionTokenPurchased = "token.purchased"
	ActionTokenRenewed   = "token.renewed"
	ActionTokenApproval  = "token.approval"
	ActionTokenTransfer  = "token.transfer"

	// Settings actions
	ActionBaseURIUpdated = "settings.base_uri_updated"

	// Rejections
	ActionTransactionRejected = "transaction.rejected"
)

// Resource constants for audit events.
const (
	ResourceTier     = "tier"
	ResourceToken    = "token"
	ResourceSettings = "settings"
)

// Category constants for audit events.
const (
	CategoryCatalog = "catalog"
	CategoryPayment = "payment"
	CategoryAccess  = "access"
	CategoryConfig  = "config"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
