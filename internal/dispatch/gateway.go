package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/showring/notify/internal/domain"
	"github.com/showring/notify/internal/repository"
)

// pushRequest is the JSON body posted to the push gateway.
type pushRequest struct {
	Type          string          `json:"type"`
	TenantID      string          `json:"tenant_id"`
	Title         string          `json:"title"`
	Body          string          `json:"body"`
	URL           string          `json:"url,omitempty"`
	Armband       int             `json:"armband,omitempty"`
	ClassName     string          `json:"class_name,omitempty"`
	PositionsAway int             `json:"positions_away,omitempty"`
	Endpoint      string          `json:"endpoint"`
	Keys          json.RawMessage `json:"keys,omitempty"`
}

// GatewayDispatcher delivers notifications by POSTing to the external push
// gateway. Credentials are read from the secrets store on every send so that
// rotation applies immediately, including to queued retries.
type GatewayDispatcher struct {
	gatewayURL string
	secrets    repository.SecretsRepository
	httpClient *http.Client
}

func NewGatewayDispatcher(gatewayURL string, secrets repository.SecretsRepository, timeout time.Duration) *GatewayDispatcher {
	return &GatewayDispatcher{
		gatewayURL: gatewayURL,
		secrets:    secrets,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send posts one notification to the gateway. A missing or placeholder
// secret returns domain.ErrSecretUnset: the caller must treat that as a hard
// stop for the attempt, not a retryable failure.
func (d *GatewayDispatcher) Send(ctx context.Context, target Target, ev *domain.Event) error {
	secrets, err := d.secrets.Get(ctx)
	if err != nil {
		return fmt.Errorf("read gateway secrets: %w", err)
	}
	if !secrets.Usable() {
		return domain.ErrSecretUnset
	}

	body, err := json.Marshal(pushRequest{
		Type:          string(ev.Category),
		TenantID:      ev.TenantID,
		Title:         ev.Title,
		Body:          ev.Body,
		URL:           ev.URL,
		Armband:       ev.Armband,
		ClassName:     ev.ClassName,
		PositionsAway: ev.PositionsAway,
		Endpoint:      target.Endpoint,
		Keys:          target.Keys,
	})
	if err != nil {
		return fmt.Errorf("marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+secrets.GatewayKey)
	// The shared secret authenticates us without depending on expiring
	// tokens; it rotates independently of the gateway key.
	req.Header.Set("X-Gateway-Secret", secrets.SharedSecret)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send push request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected gateway status: %d", resp.StatusCode)
	}
	return nil
}

// compile-time check that GatewayDispatcher implements Dispatcher
var _ Dispatcher = (*GatewayDispatcher)(nil)
