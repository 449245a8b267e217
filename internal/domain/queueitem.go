package domain

import (
	"encoding/json"
	"time"
)

// Status tracks the retry lifecycle of a queued delivery.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRetrying  Status = "retrying"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// MaxDeliveryAttempts bounds the retry horizon. The attempt that brings the
// retry count to this value is the last one; the item is then dead-lettered.
const MaxDeliveryAttempts = 5

// backoffDelays maps the 0-indexed attempt number to the delay before the
// next attempt. Attempts past the end of the table reuse the last entry.
var backoffDelays = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	1 * time.Hour,
	6 * time.Hour,
}

// BackoffDelay returns the delay to wait after the failed attempt with the
// given 0-indexed retry count.
func BackoffDelay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount >= len(backoffDelays) {
		retryCount = len(backoffDelays) - 1
	}
	return backoffDelays[retryCount]
}

// DeliveryPayload is the serialized content of a queue item: everything
// needed to re-attempt the delivery without consulting the subscription
// store. Gateway secrets are deliberately absent; they are read at send time
// so rotation applies to queued retries.
type DeliveryPayload struct {
	SubscriptionID string          `json:"subscription_id"`
	Endpoint       string          `json:"endpoint"`
	EndpointKeys   json.RawMessage `json:"endpoint_keys,omitempty"`
	Event          Event           `json:"event"`
}

// QueueItem is one pending or retrying delivery attempt.
//
// State machine: pending -> retrying -> {succeeded | pending (retry_count+1)
// | dead-lettered}. A processor claims an item by flipping pending to
// retrying; the flip is exclusive, so two concurrent runs never double-send.
type QueueItem struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"tenant_id"`
	Category       Category        `json:"category"`
	Payload        json.RawMessage `json:"payload"`
	RetryCount     int             `json:"retry_count"`
	MaxRetries     int             `json:"max_retries"`
	NextRetryAt    time.Time       `json:"next_retry_at"`
	Status         Status          `json:"status"`
	LastError      *string         `json:"last_error,omitempty"`
	LastErrorAt    *time.Time      `json:"last_error_at,omitempty"`
	EntryID        *string         `json:"entry_id,omitempty"`
	AnnouncementID *string         `json:"announcement_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Exhausted reports whether the item has used up its retry budget.
func (q *QueueItem) Exhausted() bool {
	return q.RetryCount >= q.MaxRetries
}

// DeadLetterItem is a terminally failed delivery held for operator review.
// It is created by moving a queue item on retry exhaustion and mutated only
// by acknowledgment.
type DeadLetterItem struct {
	ID          string          `json:"id"`
	QueueItemID string          `json:"queue_item_id"`
	TenantID    string          `json:"tenant_id"`
	Category    Category        `json:"category"`
	Payload     json.RawMessage `json:"payload"`
	RetryCount  int             `json:"retry_count"`
	FinalError  string          `json:"final_error"`
	FailedAt    time.Time       `json:"failed_at"`
	AckedBy     *string         `json:"acked_by,omitempty"`
	AckedAt     *time.Time      `json:"acked_at,omitempty"`
}

// Acked reports whether an operator has acknowledged the item.
func (d *DeadLetterItem) Acked() bool {
	return d.AckedAt != nil
}

// GatewaySecrets is the rotate-able credential pair for the push gateway.
// The shared secret authenticates this service to the gateway alongside the
// gateway key; the two rotate independently.
type GatewaySecrets struct {
	SharedSecret string    `json:"-"`
	GatewayKey   string    `json:"-"`
	UpdatedAt    time.Time `json:"updated_at"`
	UpdatedBy    string    `json:"updated_by"`
}

// SecretPlaceholder is the value seeded by the initial migration. A secret
// that is empty or still the placeholder must never be sent to the gateway.
const SecretPlaceholder = "changeme"

// Usable reports whether the secrets are real, rotated-in values.
func (s *GatewaySecrets) Usable() bool {
	return s.SharedSecret != "" && s.SharedSecret != SecretPlaceholder &&
		s.GatewayKey != "" && s.GatewayKey != SecretPlaceholder
}
