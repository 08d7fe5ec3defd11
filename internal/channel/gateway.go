// Package channel implements the notification capabilities the dispatcher
// fans out to: HTTP gateway clients for email and SMS, and a Kafka producer
// for push. Recipient resolution (addresses, phone numbers, device tokens)
// belongs to the providers, keyed by user id; this service never stores
// contact details.
package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// gatewayClient posts JSON payloads to a notification gateway. The send
// context carries the per-channel timeout set by the dispatcher.
type gatewayClient struct {
	token      string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

func newGatewayClient(baseURL, token string, logger *slog.Logger) *gatewayClient {
	return &gatewayClient{
		token:      token,
		httpClient: &http.Client{},
		baseURL:    baseURL,
		logger:     logger,
	}
}

func (c *gatewayClient) post(ctx context.Context, name string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s gateway request: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s gateway error: status %d: %s", name, resp.StatusCode, respBody)
	}
	return nil
}
