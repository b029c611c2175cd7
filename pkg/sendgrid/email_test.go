package sendgrid_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/pkg/sendgrid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sendgridPayload struct {
	Personalizations []struct {
		To      []map[string]string `json:"to"`
		Cc      []map[string]string `json:"cc,omitempty"`
		Subject string              `json:"subject"`
	} `json:"personalizations"`
	From       map[string]string `json:"from"`
	Categories []string          `json:"categories,omitempty"`
	CustomArgs map[string]string `json:"custom_args,omitempty"`
	Content    []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

func newService(t *testing.T, status int) (sendgrid.EmailService, *sendgridPayload) {
	t.Helper()

	captured := &sendgridPayload{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer SG.test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	service := sendgrid.NewEmailService("SG.test", "orders@storefront.vn", "Storefront")
	service.GetSendGridClient().Request.BaseURL = server.URL

	return service, captured
}

func TestSend(t *testing.T) {
	t.Run("Plain and HTML", func(t *testing.T) {
		service, payload := newService(t, http.StatusAccepted)

		err := service.Send(t.Context(), &models.EmailNotificationRequest{
			To:          "buyer@example.com",
			CC:          []string{"ops@storefront.vn"},
			Subject:     "Order confirmed",
			Content:     "Total: 650.000 ₫",
			HTMLContent: "<p>Total: 650.000 ₫</p>",
			Categories:  []string{"order-confirmation"},
			CustomArgs:  map[string]string{"order_id": "7f1c"},
		})

		require.NoError(t, err)
		require.Len(t, payload.Personalizations, 1)
		assert.Equal(t, "buyer@example.com", payload.Personalizations[0].To[0]["email"])
		assert.Equal(t, "ops@storefront.vn", payload.Personalizations[0].Cc[0]["email"])
		assert.Equal(t, "Order confirmed", payload.Personalizations[0].Subject)
		assert.Equal(t, "Storefront", payload.From["name"])
		require.Len(t, payload.Content, 2)
		assert.Equal(t, "text/plain", payload.Content[0].Type)
		assert.Equal(t, "text/html", payload.Content[1].Type)
		assert.Equal(t, []string{"order-confirmation"}, payload.Categories)
		assert.Equal(t, "7f1c", payload.CustomArgs["order_id"])
	})

	t.Run("Plain only", func(t *testing.T) {
		service, payload := newService(t, http.StatusAccepted)

		err := service.Send(t.Context(), &models.EmailNotificationRequest{To: "buyer@example.com", Subject: "s", Content: "c"})

		require.NoError(t, err)
		assert.Len(t, payload.Content, 1)
	})

	t.Run("API rejection", func(t *testing.T) {
		service, _ := newService(t, http.StatusBadRequest)

		err := service.Send(t.Context(), &models.EmailNotificationRequest{To: "bad@example.com", Subject: "s", Content: "c"})

		assert.EqualError(t, err, "failed to send email, status code: 400")
	})
}
