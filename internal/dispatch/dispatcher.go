package dispatch

import (
	"context"
	"encoding/json"

	"github.com/showring/notify/internal/domain"
)

// Target is one delivery destination: the recipient's opaque endpoint and
// encryption keys, plus the subscription id for last-used bookkeeping.
type Target struct {
	SubscriptionID string
	Endpoint       string
	Keys           json.RawMessage
}

// TargetFor builds a Target from a subscription.
func TargetFor(s *domain.Subscription) Target {
	return Target{
		SubscriptionID: s.ID,
		Endpoint:       s.Endpoint,
		Keys:           s.EndpointKeys,
	}
}

// Dispatcher performs one delivery attempt against the push transport.
// A nil error means the gateway acknowledged the notification (2xx); any
// other outcome is an error. Dispatchers never retry inline — retry policy
// belongs to the queue.
//
// Mocking this interface in tests gives full control over transport
// behaviour without making real HTTP calls.
type Dispatcher interface {
	Send(ctx context.Context, target Target, ev *domain.Event) error
}
