package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("404", http.MethodGet, "GET /api/v1/orders/{id}"))

	rr := httptest.NewRecorder()
	Middleware(mux).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/orders/123", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("404", http.MethodGet, "GET /api/v1/orders/{id}")))
	assert.Zero(t, testutil.ToFloat64(httpRequestsInFlight))
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(couponValidations.WithLabelValues("COUPON_EXPIRED"))
	ObserveCouponValidation("COUPON_EXPIRED")
	assert.Equal(t, before+1, testutil.ToFloat64(couponValidations.WithLabelValues("COUPON_EXPIRED")))

	beforeRedeemed := testutil.ToFloat64(couponRedemptions.WithLabelValues("ok"))
	ObserveCouponRedemption("ok")
	assert.Equal(t, beforeRedeemed+1, testutil.ToFloat64(couponRedemptions.WithLabelValues("ok")))

	beforeDiscount := testutil.ToFloat64(discountGranted)
	ObserveOrderCreated(true, 60000)
	ObserveOrderCreated(false, 0)
	assert.Equal(t, beforeDiscount+60000, testutil.ToFloat64(discountGranted))
}

func TestHandlerExposesCounters(t *testing.T) {
	ObserveCouponValidation("ok")

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "coupon_validations_total"))
}
