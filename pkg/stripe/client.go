package stripe

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/refund"
	"github.com/stripe/stripe-go/v81/webhook"
)

type Event = stripe.Event

type PaymentIntent = stripe.PaymentIntent

var ErrWebhookSecretMissing = errors.New("webhook secret not configured")

// Client is the subset of the Stripe API used for checkout payments.
type Client interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency, description string, metadata map[string]string) (*PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
	RefundPayment(ctx context.Context, paymentIntentID string, amount int64) (*stripe.Refund, error)
	VerifyWebhookSignature(payload []byte, signature string) (Event, error)
}

type stripeClient struct {
	webhookSecret string
}

func NewStripeClient(apiKey string, webhookSecret string) Client {
	stripe.Key = apiKey

	return &stripeClient{webhookSecret: webhookSecret}
}

// CreatePaymentIntent charges amount in the currency's smallest unit. VND has no minor
// unit, so đồng are passed through unchanged.
func (s *stripeClient) CreatePaymentIntent(ctx context.Context, amount int64, currency, description string, metadata map[string]string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Params:      stripe.Params{Context: ctx},
		Amount:      stripe.Int64(amount),
		Currency:    stripe.String(currency),
		Description: stripe.String(description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}

	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	return paymentintent.New(params)
}

func (s *stripeClient) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	return paymentintent.Get(id, &stripe.PaymentIntentParams{Params: stripe.Params{Context: ctx}})
}

// Reusable reports whether intent can still be confirmed by the buyer.
func Reusable(intent *PaymentIntent) bool {
	switch intent.Status {
	case stripe.PaymentIntentStatusRequiresPaymentMethod,
		stripe.PaymentIntentStatusRequiresConfirmation,
		stripe.PaymentIntentStatusRequiresAction:
		return true
	}
	return false
}

// Settling reports whether intent already took the buyer's money or is about to.
func Settling(intent *PaymentIntent) bool {
	return intent.Status == stripe.PaymentIntentStatusProcessing || intent.Status == stripe.PaymentIntentStatusSucceeded
}

// RefundPayment refunds the whole intent when amount is 0.
func (s *stripeClient) RefundPayment(ctx context.Context, paymentIntentID string, amount int64) (*stripe.Refund, error) {
	params := &stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(paymentIntentID),
	}

	if amount > 0 {
		params.Amount = stripe.Int64(amount)
	}

	return refund.New(params)
}

func (s *stripeClient) VerifyWebhookSignature(payload []byte, signature string) (Event, error) {
	if s.webhookSecret == "" {
		return Event{}, ErrWebhookSecretMissing
	}

	return webhook.ConstructEvent(payload, signature, s.webhookSecret)
}
