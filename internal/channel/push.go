package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/storm-alert-service/internal/alerting"
	"github.com/couchcryptid/storm-alert-service/internal/config"
)

// Push publishes alerts to the push notification topic. A downstream
// delivery worker owns the actual device fan-out.
type Push struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPush creates a Kafka producer for the configured push topic.
func NewPush(cfg *config.Config, logger *slog.Logger) *Push {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaPushTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Push{writer: w, logger: logger}
}

func (p *Push) Name() string { return alerting.ChannelPush }

// pushPayload is the message published for the delivery worker.
type pushPayload struct {
	DeliveryID  string `json:"delivery_id"`
	UserID      int64  `json:"user_id"`
	TerritoryID int64  `json:"territory_id"`
	Territory   string `json:"territory"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	AlertType   string `json:"alert_type"`
	EventID     string `json:"event_id"`
}

func (p *Push) Send(ctx context.Context, rcpt alerting.Recipient, msg alerting.Message) error {
	kafkaMsg, err := serializeToMessage(rcpt, msg)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafkaMsg)
}

// Close flushes and shuts down the producer.
func (p *Push) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals one delivery into a Kafka message keyed by
// user id so one user's notifications stay ordered on a partition.
func serializeToMessage(rcpt alerting.Recipient, msg alerting.Message) (kafkago.Message, error) {
	data, err := json.Marshal(pushPayload{
		DeliveryID:  msg.DeliveryID,
		UserID:      rcpt.UserID,
		TerritoryID: rcpt.TerritoryID,
		Territory:   rcpt.TerritoryName,
		Title:       msg.Subject,
		Body:        msg.Body,
		AlertType:   string(msg.AlertType),
		EventID:     msg.EventID,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize push payload: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(fmt.Sprintf("%d", rcpt.UserID)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "alert_type", Value: []byte(msg.AlertType)},
			{Key: "event_id", Value: []byte(msg.EventID)},
		},
	}, nil
}
