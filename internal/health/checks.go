package health

import (
	"context"
	"fmt"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/config"
	"github.com/hellofresh/health-go/v5"
	"github.com/hellofresh/health-go/v5/checks/postgres"
	healthRedis "github.com/hellofresh/health-go/v5/checks/redis"
	"github.com/segmentio/kafka-go"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/balance"
)

const Version = "1.0.0"

// NewHealthHandler registers the hard dependencies (postgres, redis) and, when configured,
// the soft ones (kafka, stripe) whose failure degrades but does not fail the check.
func NewHealthHandler(cfg *config.Config) (*health.Health, error) {
	checks := []health.Config{
		{
			Name:    "database",
			Timeout: 3 * time.Second,
			Check:   postgres.New(postgres.Config{DSN: cfg.Database.GetDSN()}),
		},
		{
			Name:    "redis",
			Timeout: 2 * time.Second,
			Check:   healthRedis.New(healthRedis.Config{DSN: cfg.RedisConnect.GetDSN()}),
		},
	}

	if len(cfg.Kafka.Brokers) > 0 {
		checks = append(checks, health.Config{
			Name:      "kafka",
			Timeout:   3 * time.Second,
			SkipOnErr: true,
			Check:     kafkaCheck(cfg.Kafka.Brokers),
		})
	}

	if cfg.Stripe.APIKey != "" {
		checks = append(checks, health.Config{
			Name:      "stripe",
			Timeout:   5 * time.Second,
			SkipOnErr: true,
			Check:     stripeCheck,
		})
	}

	h, err := health.New(
		health.WithComponent(health.Component{Name: cfg.Otel.ServiceName, Version: Version}),
		health.WithSystemInfo(),
		health.WithChecks(checks...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create health instance: %w", err)
	}

	return h, nil
}

func kafkaCheck(brokers []string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
		if err != nil {
			return fmt.Errorf("failed to dial kafka: %w", err)
		}
		defer conn.Close()

		if _, err := conn.Brokers(); err != nil {
			return fmt.Errorf("failed to read kafka metadata: %w", err)
		}

		return nil
	}
}

func stripeCheck(ctx context.Context) error {
	if _, err := balance.Get(&stripe.BalanceParams{Params: stripe.Params{Context: ctx}}); err != nil {
		return fmt.Errorf("failed to connect to stripe: %w", err)
	}

	return nil
}
