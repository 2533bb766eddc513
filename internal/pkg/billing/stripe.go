package billing

import (
	"context"
	"strings"

	"github.com/OrbitDeskHQ/OrbitDesk/internal/pkg/env"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"
)

// SignatureVerifier authenticates a raw webhook payload against its
// signature header. Verification is the endpoint's only authentication.
type SignatureVerifier interface {
	Verify(payload []byte, signatureHeader string) (stripe.Event, error)
}

// SubscriptionFetcher pulls the current provider subscription state - the
// authoritative source used by reconciliation and by checkout completion.
type SubscriptionFetcher interface {
	FetchSubscription(ctx context.Context, providerSubscriptionID string) (*SubscriptionSnapshot, error)
}

// StripeProvider implements both provider interfaces on top of the Stripe
// SDK.
type StripeProvider struct {
	webhookSecret string
}

// NewStripeProviderFromEnv configures the SDK key from the environment.
func NewStripeProviderFromEnv() *StripeProvider {
	stripe.Key = strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", ""))
	return &StripeProvider{
		webhookSecret: strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
	}
}

func (p *StripeProvider) Verify(payload []byte, signatureHeader string) (stripe.Event, error) {
	// Webhook payloads follow the API version pinned on the Stripe account;
	// the mismatch check would reject perfectly valid older payloads.
	return webhook.ConstructEventWithOptions(payload, signatureHeader, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

func (p *StripeProvider) FetchSubscription(ctx context.Context, providerSubscriptionID string) (*SubscriptionSnapshot, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := subscription.Get(providerSubscriptionID, params)
	if err != nil {
		return nil, err
	}

	snap := &SubscriptionSnapshot{
		ID:     sub.ID,
		Status: string(sub.Status),
	}
	if sub.Customer != nil {
		snap.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		snap.CurrentPeriodEnd = item.CurrentPeriodEnd
		if item.Price != nil {
			snap.PriceID = item.Price.ID
		}
	}
	return snap, nil
}
