package channel

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/storm-alert-service/internal/alerting"
)

// Email delivers alerts through an HTTP email gateway.
type Email struct {
	client *gatewayClient
}

// NewEmail creates the email channel against the given gateway URL.
func NewEmail(gatewayURL, token string, logger *slog.Logger) *Email {
	return &Email{client: newGatewayClient(gatewayURL, token, logger)}
}

func (e *Email) Name() string { return alerting.ChannelEmail }

// emailPayload is the gateway request body. The gateway resolves the
// recipient address from the user id.
type emailPayload struct {
	DeliveryID string `json:"delivery_id"`
	UserID     int64  `json:"user_id"`
	Territory  string `json:"territory"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}

func (e *Email) Send(ctx context.Context, rcpt alerting.Recipient, msg alerting.Message) error {
	return e.client.post(ctx, "email", emailPayload{
		DeliveryID: msg.DeliveryID,
		UserID:     rcpt.UserID,
		Territory:  rcpt.TerritoryName,
		Subject:    msg.Subject,
		Body:       msg.Body,
	})
}
