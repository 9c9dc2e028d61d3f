package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WebhookCoordinator forwards randomness requests to an external oracle over
// HTTP. The oracle answers later by posting a signed Fulfillment back to the
// ledger's fulfillment endpoint.
type WebhookCoordinator struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewWebhookCoordinator constructs a coordinator posting to endpoint. A
// non-empty token is sent as a bearer credential.
func NewWebhookCoordinator(endpoint, token string, timeout time.Duration) (*WebhookCoordinator, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("oracle: webhook endpoint required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookCoordinator{
		endpoint: endpoint,
		token:    strings.TrimSpace(token),
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// RequestRandomness posts the request as JSON and expects a 2xx answer.
func (w *WebhookCoordinator) RequestRandomness(ctx context.Context, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("oracle: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("oracle: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if w.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+w.token)
	}
	resp, err := w.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("oracle: post request %d: %w", req.RequestID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("oracle: request %d rejected: %s: %s", req.RequestID, resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}
