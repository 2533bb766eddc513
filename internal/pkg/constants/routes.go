package constants

// Static route constants
const (
	StripeWebhookRoute       = "/api/webhooks/stripe"
	BillingPortalReturnRoute = "/billing/portal/return"
	APIRoute                 = "/api"
	APIv1Route               = "/api/v1"
	AdminAPIRoute            = "/api/admin"
	HealthRoute              = "/healthz"
)
