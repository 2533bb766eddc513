package billing

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
)

// Envelope is the normalized view of a provider event used by the
// orchestrator: identity, causal timestamp and routing info, nothing else.
type Envelope struct {
	EventID                string
	Type                   string
	CreatedAt              time.Time
	OrganizationID         uint
	ProviderSubscriptionID string
}

// HasSubscription reports whether the event is bound to a provider
// subscription and therefore participates in ordering checks.
func (e Envelope) HasSubscription() bool {
	return e.ProviderSubscriptionID != ""
}

const metadataOrganizationKey = "organization_id"

// Payload shapes are decoded with local structs instead of SDK types: webhook
// payloads follow the API version pinned on the Stripe account, which may be
// older than the SDK's.
type checkoutSessionPayload struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription json.RawMessage   `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

type subscriptionPayload struct {
	ID               string            `json:"id"`
	Customer         string            `json:"customer"`
	Status           string            `json:"status"`
	CurrentPeriodEnd int64             `json:"current_period_end"`
	Metadata         map[string]string `json:"metadata"`
	Items            struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
			Price            struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// ExtractEnvelope normalizes a verified provider event. It is pure: no I/O,
// no persistence. Unknown event types yield an envelope without organization
// or subscription, which the orchestrator guards through the ledger only.
func ExtractEnvelope(event stripe.Event) (Envelope, error) {
	env := Envelope{
		EventID:   event.ID,
		Type:      string(event.Type),
		CreatedAt: time.Unix(event.Created, 0).UTC(),
	}

	switch event.Type {
	case "checkout.session.completed":
		var session checkoutSessionPayload
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return env, err
		}
		env.OrganizationID = organizationIDFromMetadata(session.Metadata)
		// The session's subscription field is only usable when delivered as
		// a plain id string; expanded objects are left to the pull path.
		env.ProviderSubscriptionID = stringFromRaw(session.Subscription)
	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
		var sub subscriptionPayload
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return env, err
		}
		env.OrganizationID = organizationIDFromMetadata(sub.Metadata)
		env.ProviderSubscriptionID = sub.ID
	}

	return env, nil
}

func organizationIDFromMetadata(metadata map[string]string) uint {
	raw := strings.TrimSpace(metadata[metadataOrganizationKey])
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0
	}
	return uint(id)
}

func stringFromRaw(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
