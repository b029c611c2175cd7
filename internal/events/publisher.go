package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/config"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type EventType string

const (
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderStatusChanged EventType = "order.status_changed"
	EventTypeCouponRedeemed     EventType = "coupon.redeemed"
)

type Event struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	Key           string          `json:"key"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// Publisher emits checkout events after the owning transaction has committed.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	PublishOrderStatusChanged(ctx context.Context, order *models.Order, previous models.OrderStatus) error
	PublishCouponRedeemed(ctx context.Context, redemption *models.CouponRedemption, orderID uuid.UUID) error
	Close() error
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer      MessageWriter
	ordersTopic string
	couponTopic string
	now         func() time.Time
}

// NewPublisher returns a no-op publisher when no brokers are configured.
func NewPublisher(cfg config.Kafka) Publisher {
	if len(cfg.Brokers) == 0 {
		slog.Info("Kafka brokers not configured, events are disabled")
		return NoopPublisher{}
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		WriteTimeout:           10 * time.Second,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	return NewKafkaPublisher(writer, cfg.OrdersTopic, cfg.CouponTopic)
}

func NewKafkaPublisher(writer MessageWriter, ordersTopic, couponTopic string) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, ordersTopic: ordersTopic, couponTopic: couponTopic, now: time.Now}
}

func (p *KafkaPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	return p.publish(ctx, p.ordersTopic, EventTypeOrderCreated, order.ID.String(), order)
}

func (p *KafkaPublisher) PublishOrderStatusChanged(ctx context.Context, order *models.Order, previous models.OrderStatus) error {
	payload := struct {
		OrderID        uuid.UUID          `json:"order_id"`
		PreviousStatus models.OrderStatus `json:"previous_status"`
		NewStatus      models.OrderStatus `json:"new_status"`
	}{order.ID, previous, order.Status}

	return p.publish(ctx, p.ordersTopic, EventTypeOrderStatusChanged, order.ID.String(), payload)
}

// PublishCouponRedeemed is keyed by coupon code so redemptions of one coupon stay ordered.
func (p *KafkaPublisher) PublishCouponRedeemed(ctx context.Context, redemption *models.CouponRedemption, orderID uuid.UUID) error {
	payload := struct {
		*models.CouponRedemption
		OrderID uuid.UUID `json:"order_id"`
	}{redemption, orderID}

	return p.publish(ctx, p.couponTopic, EventTypeCouponRedeemed, redemption.Code, payload)
}

func (p *KafkaPublisher) publish(ctx context.Context, topic string, eventType EventType, key string, payload any) error {
	logger := middleware.LoggerFromContext(ctx)

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	event := Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Key:           key,
		Data:          data,
		Timestamp:     p.now().UTC(),
		CorrelationID: middleware.RequestIDFromContext(ctx),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Error("Failed to publish event", slog.String("event_type", string(eventType)), slog.String("key", key), slog.Any("error", err))
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}

	logger.Debug("Event published", slog.String("event_id", event.ID), slog.String("event_type", string(eventType)))

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type NoopPublisher struct{}

func (NoopPublisher) PublishOrderCreated(context.Context, *models.Order) error { return nil }

func (NoopPublisher) PublishOrderStatusChanged(context.Context, *models.Order, models.OrderStatus) error {
	return nil
}

func (NoopPublisher) PublishCouponRedeemed(context.Context, *models.CouponRedemption, uuid.UUID) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
