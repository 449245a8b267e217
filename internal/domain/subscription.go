package domain

import (
	"encoding/json"
	"time"
)

// Threshold bounds for up-soon alerts: "notify me when my dog is within N
// positions of the ring".
const (
	UpSoonThresholdDefault = 3
	UpSoonThresholdMin     = 1
	UpSoonThresholdMax     = 5
)

// Preferences holds a recipient's per-category opt-ins, the up-soon distance
// threshold, and the set of favorited entries. Stored as a jsonb column.
type Preferences struct {
	Announcements   bool     `json:"announcements"`
	GateCalls       bool     `json:"gate_calls"`
	ClassStarts     bool     `json:"class_starts"`
	UpSoon          bool     `json:"up_soon"`
	UpSoonThreshold int      `json:"up_soon_threshold"`
	Favorites       []string `json:"favorites,omitempty"`
}

// EffectiveThreshold clamps the configured threshold into the allowed range,
// falling back to the default when unset.
func (p Preferences) EffectiveThreshold() int {
	t := p.UpSoonThreshold
	if t == 0 {
		return UpSoonThresholdDefault
	}
	if t < UpSoonThresholdMin {
		return UpSoonThresholdMin
	}
	if t > UpSoonThresholdMax {
		return UpSoonThresholdMax
	}
	return t
}

// HasFavorite reports whether the given entry is in the favorites set.
func (p Preferences) HasFavorite(entryID string) bool {
	for _, f := range p.Favorites {
		if f == entryID {
			return true
		}
	}
	return false
}

// Subscription is one recipient's registered delivery target plus preferences.
// The endpoint and its encryption keys are opaque to this service; they are
// forwarded verbatim to the push gateway.
type Subscription struct {
	ID           string          `json:"id"`
	TenantID     string          `json:"tenant_id"`
	RecipientID  string          `json:"recipient_id"`
	Role         string          `json:"role"`
	Endpoint     string          `json:"endpoint"`
	EndpointKeys json.RawMessage `json:"endpoint_keys,omitempty"`
	Prefs        Preferences     `json:"prefs"`
	Active       bool            `json:"active"`
	LastUsedAt   *time.Time      `json:"last_used_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CreateSubscriptionRequest is the inbound payload for a recipient opt-in.
type CreateSubscriptionRequest struct {
	TenantID     string          `json:"tenant_id"`
	RecipientID  string          `json:"recipient_id"`
	Role         string          `json:"role"`
	Endpoint     string          `json:"endpoint"`
	EndpointKeys json.RawMessage `json:"endpoint_keys,omitempty"`
	Prefs        Preferences     `json:"prefs"`
}

func (r *CreateSubscriptionRequest) Validate() error {
	if r.TenantID == "" || r.RecipientID == "" {
		return ErrInvalidSubscription
	}
	if r.Endpoint == "" {
		return ErrInvalidSubscription
	}
	if t := r.Prefs.UpSoonThreshold; t != 0 && (t < UpSoonThresholdMin || t > UpSoonThresholdMax) {
		return ErrInvalidThreshold
	}
	return nil
}
