package channel

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/storm-alert-service/internal/alerting"
)

// SMS delivers alerts through an HTTP SMS gateway.
type SMS struct {
	client *gatewayClient
}

// NewSMS creates the SMS channel against the given gateway URL.
func NewSMS(gatewayURL, token string, logger *slog.Logger) *SMS {
	return &SMS{client: newGatewayClient(gatewayURL, token, logger)}
}

func (s *SMS) Name() string { return alerting.ChannelSMS }

// smsPayload is the gateway request body. SMS has no subject line; the
// rendered body already carries the territory name.
type smsPayload struct {
	DeliveryID string `json:"delivery_id"`
	UserID     int64  `json:"user_id"`
	Body       string `json:"body"`
}

func (s *SMS) Send(ctx context.Context, rcpt alerting.Recipient, msg alerting.Message) error {
	return s.client.post(ctx, "sms", smsPayload{
		DeliveryID: msg.DeliveryID,
		UserID:     rcpt.UserID,
		Body:       msg.Body,
	})
}
