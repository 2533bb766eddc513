package billing

import "github.com/OrbitDeskHQ/OrbitDesk/app/models"

// Fixed precedence ranking for event types that can race within the same
// millisecond. When two events carry identical timestamps, the higher-ranked
// type is the more authoritative one and is applied last.
var eventPrecedence = map[string]int{
	"checkout.session.completed":    10,
	"customer.subscription.created": 20,
	"customer.subscription.updated": 30,
	"customer.subscription.deleted": 40,
	"invoice.payment_succeeded":     50,
	"invoice.payment_failed":        60,
}

func precedenceOf(eventType string) int {
	return eventPrecedence[eventType]
}

// ShouldIgnore decides whether an incoming event is stale relative to the
// subscription's ordering cursor. No cursor means the first event for the
// subscription and is never ignored.
func ShouldIgnore(cursor *models.OrderingCursor, incoming Envelope) bool {
	if cursor == nil {
		return false
	}
	if incoming.CreatedAt.Before(cursor.LastEventCreatedAt) {
		return true
	}
	if incoming.CreatedAt.After(cursor.LastEventCreatedAt) {
		return false
	}
	return precedenceOf(incoming.Type) < precedenceOf(cursor.LastEventType)
}
