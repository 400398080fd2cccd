// Package notify publishes recipient notifications to a RabbitMQ topic exchange.
// Delivery (email, SMS) is done by downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"signapi/internal/config"
	"signapi/internal/model"
)

const (
	RoutingKeyRecipientTurn = "recipient.turn"
	RoutingKeyTwoFactorCode = "recipient.two_factor_code"
)

// Publisher is the subset of *amqp.Channel used by Notifier.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RecipientTurnMessage asks a consumer to invite r to sign.
type RecipientTurnMessage struct {
	EnvelopeID    string              `json:"envelope_id"`
	EnvelopeTitle string              `json:"envelope_title"`
	RecipientID   int64               `json:"recipient_id"`
	Email         string              `json:"email"`
	Name          string              `json:"name"`
	Role          model.RecipientRole `json:"role"`
	SigningURL    string              `json:"signing_url"`
}

// TwoFactorCodeMessage carries a plaintext code to its recipient.
type TwoFactorCodeMessage struct {
	EnvelopeID  string    `json:"envelope_id"`
	RecipientID int64     `json:"recipient_id"`
	Email       string    `json:"email"`
	Code        string    `json:"code"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Notifier implements service.Notifier over AMQP.
type Notifier struct {
	pub      Publisher
	exchange string
	log      *zap.Logger
	now      func() time.Time
}

func NewNotifier(pub Publisher, exchange string, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{pub: pub, exchange: exchange, log: log, now: time.Now}
}

// NotifyRecipient publishes a RecipientTurnMessage. Envelopes distributed
// outside the platform are skipped.
func (n *Notifier) NotifyRecipient(ctx context.Context, env *model.Envelope, r *model.Recipient) error {
	if env.DocumentMeta.DistributionMethod == model.DistributionMethodNone {
		n.log.Debug("notification skipped", zap.String("envelope_id", env.ID), zap.Int64("recipient_id", r.ID))
		return nil
	}
	return n.publish(ctx, RoutingKeyRecipientTurn, RecipientTurnMessage{
		EnvelopeID:    env.ID,
		EnvelopeTitle: env.Title,
		RecipientID:   r.ID,
		Email:         r.Email,
		Name:          r.Name,
		Role:          r.Role,
		SigningURL:    "/sign/" + r.Token,
	})
}

func (n *Notifier) SendTwoFactorCode(ctx context.Context, r *model.Recipient, code string, expiresAt time.Time) error {
	return n.publish(ctx, RoutingKeyTwoFactorCode, TwoFactorCodeMessage{
		EnvelopeID:  r.EnvelopeID,
		RecipientID: r.ID,
		Email:       r.Email,
		Code:        code,
		ExpiresAt:   expiresAt,
	})
}

func (n *Notifier) publish(ctx context.Context, key string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", key, err)
	}
	id := ulid.Make().String()
	err = n.pub.PublishWithContext(ctx, n.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		MessageId:    id,
		DeliveryMode: amqp.Persistent,
		Timestamp:    n.now(),
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	n.log.Debug("notification published", zap.String("routing_key", key), zap.String("message_id", id))
	return nil
}

// Connection owns the AMQP connection and channel behind a Notifier.
type Connection struct {
	conn    *amqp.Connection
	Channel *amqp.Channel
}

// Dial connects to c.URL and declares c.Exchange as a durable topic exchange.
func Dial(c config.AMQPConfig) (*Connection, error) {
	conn, err := amqp.Dial(c.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(c.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", c.Exchange, err)
	}
	return &Connection{conn: conn, Channel: ch}, nil
}

func (c *Connection) Close() error {
	if err := c.Channel.Close(); err != nil {
		_ = c.conn.Close()
		return err
	}
	return c.conn.Close()
}
