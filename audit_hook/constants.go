package audithook

// Action constants for audit events.
const (
	// Subscription actions
	ActionSubscriptionCreated  = "subscription.created"
	ActionTierChanged          = "subscription.tier_changed"
	ActionSubscriptionCanceled = "subscription.canceled"
	ActionSubscriptionRenewed  = "subscription.renewed"

	// Usage actions
	ActionUsageRecorded = "usage.recorded"
	ActionQuotaExceeded = "quota.exceeded"

	// Affiliate actions
	ActionLinkCreated        = "affiliate.link.created"
	ActionClickRecorded      = "affiliate.click.recorded"
	ActionConversionRecorded = "affiliate.conversion.recorded"
	ActionConversionSettled  = "affiliate.conversion.settled"

	// Payout actions
	ActionPayoutRequested = "payout.requested"
	ActionPayoutDecided   = "payout.decided"
)

// Resource constants for audit events.
const (
	ResourceSubscription = "subscription"
	ResourceUsage        = "usage"
	ResourceLink         = "link"
	ResourceConversion   = "conversion"
	ResourcePayout       = "payout"
)

// Category constants for audit events.
const (
	CategorySubscription = "subscription"
	CategoryUsage        = "usage"
	CategoryAffiliate    = "affiliate"
	CategoryPayment      = "payment"
	CategoryAccess       = "access"
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
	OutcomePartial = "partial"
)
