package telemetry_test

import (
	"testing"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/config"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracerWithoutExporter(t *testing.T) {
	shutdown, err := telemetry.InitTracer(t.Context(), config.Otel{ServiceName: "storefront-checkout", SamplerRatio: 1}, "test")
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(t.Context(), "quote")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, shutdown(t.Context()))
}
