package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/config"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/events"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func decodeEvent(t *testing.T, msg kafka.Message) events.Event {
	t.Helper()

	var event events.Event
	require.NoError(t, json.Unmarshal(msg.Value, &event))

	return event
}

func TestPublishOrderCreated(t *testing.T) {
	writer := &fakeWriter{}
	publisher := events.NewKafkaPublisher(writer, "orders", "coupons")

	order := &models.Order{ID: uuid.New(), Status: models.OrderStatusPending, Pricing: models.OrderPricing{TotalPrice: 650000, CouponCode: "SPRING10"}}
	ctx := context.WithValue(t.Context(), middleware.RequestIDKey, "req-9")

	require.NoError(t, publisher.PublishOrderCreated(ctx, order))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "orders", msg.Topic)
	assert.Equal(t, order.ID.String(), string(msg.Key))

	event := decodeEvent(t, msg)
	assert.Equal(t, events.EventTypeOrderCreated, event.Type)
	assert.Equal(t, "req-9", event.CorrelationID)

	var payload models.Order
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, int64(650000), payload.Pricing.TotalPrice)
}

func TestPublishCouponRedeemed(t *testing.T) {
	writer := &fakeWriter{}
	publisher := events.NewKafkaPublisher(writer, "orders", "coupons")
	orderID := uuid.New()

	require.NoError(t, publisher.PublishCouponRedeemed(t.Context(), &models.CouponRedemption{Code: "SPRING10", UsedCount: 4}, orderID))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "coupons", msg.Topic)
	assert.Equal(t, "SPRING10", string(msg.Key))

	var payload struct {
		Code      string    `json:"code"`
		UsedCount int       `json:"used_count"`
		OrderID   uuid.UUID `json:"order_id"`
	}
	require.NoError(t, json.Unmarshal(decodeEvent(t, msg).Data, &payload))
	assert.Equal(t, 4, payload.UsedCount)
	assert.Equal(t, orderID, payload.OrderID)
}

func TestPublishStatusChanged(t *testing.T) {
	writer := &fakeWriter{}
	publisher := events.NewKafkaPublisher(writer, "orders", "coupons")

	order := &models.Order{ID: uuid.New(), Status: models.OrderStatusConfirmed}
	require.NoError(t, publisher.PublishOrderStatusChanged(t.Context(), order, models.OrderStatusPending))

	event := decodeEvent(t, writer.messages[0])
	assert.Equal(t, events.EventTypeOrderStatusChanged, event.Type)
	assert.JSONEq(t, `{"order_id":"`+order.ID.String()+`","previous_status":"pending","new_status":"confirmed"}`, string(event.Data))
}

func TestPublishWriterError(t *testing.T) {
	writerErr := errors.New("leader not available")
	publisher := events.NewKafkaPublisher(&fakeWriter{err: writerErr}, "orders", "coupons")

	err := publisher.PublishOrderCreated(t.Context(), &models.Order{ID: uuid.New()})

	assert.ErrorIs(t, err, writerErr)
}

func TestNewPublisherWithoutBrokers(t *testing.T) {
	publisher := events.NewPublisher(config.Kafka{})

	assert.IsType(t, events.NoopPublisher{}, publisher)
	assert.NoError(t, publisher.PublishOrderCreated(t.Context(), &models.Order{}))
	assert.NoError(t, publisher.Close())
}

func TestClose(t *testing.T) {
	writer := &fakeWriter{}

	require.NoError(t, events.NewKafkaPublisher(writer, "o", "c").Close())
	assert.True(t, writer.closed)
}
