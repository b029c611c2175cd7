package service

import (
	"context"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/pkg/sendgrid"
)

type NotificationService interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order, email string) error
}

type notificationService struct {
	emailService sendgrid.EmailService
}

func NewNotificationService(emailService sendgrid.EmailService) NotificationService {
	return &notificationService{emailService: emailService}
}

// FormatDong renders an amount with dot thousands separators, e.g. 1.250.000 ₫.
func FormatDong(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)

	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}

	return sign + b.String() + " ₫"
}

var confirmationHTML = template.Must(template.New("confirmation").Funcs(template.FuncMap{
	"dong": FormatDong,
	"line": func(item models.OrderItem) int64 { return item.UnitPrice * int64(item.Quantity) },
}).Parse(`<h2>Thank you for your order</h2>
<p>Order <strong>{{.ID}}</strong></p>
<table>
{{range .Items}}<tr><td>{{.ProductID}}{{if .VariantID}} ({{.VariantID}}){{end}}</td><td>{{.Quantity}} × {{dong .UnitPrice}}</td><td>{{dong (line .)}}</td></tr>
{{end}}</table>
<p>Items: {{dong .Pricing.ItemsPrice}}<br>
Shipping: {{dong .Pricing.ShippingPrice}}<br>
Tax: {{dong .Pricing.TaxPrice}}<br>
{{if .Pricing.CouponCode}}Discount ({{.Pricing.CouponCode}}): -{{dong .Pricing.DiscountAmount}}<br>
{{end}}<strong>Total: {{dong .Pricing.TotalPrice}}</strong></p>`))

func confirmationText(order *models.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Thank you for your order %s\n\n", order.ID)

	for _, item := range order.Items {
		name := item.ProductID.String()
		if item.VariantID != "" {
			name += " (" + item.VariantID + ")"
		}
		fmt.Fprintf(&b, "%s  %d x %s = %s\n", name, item.Quantity, FormatDong(item.UnitPrice), FormatDong(item.UnitPrice*int64(item.Quantity)))
	}

	p := order.Pricing
	fmt.Fprintf(&b, "\nItems: %s\nShipping: %s\nTax: %s\n", FormatDong(p.ItemsPrice), FormatDong(p.ShippingPrice), FormatDong(p.TaxPrice))

	if p.CouponCode != "" {
		fmt.Fprintf(&b, "Discount (%s): -%s\n", p.CouponCode, FormatDong(p.DiscountAmount))
	}

	fmt.Fprintf(&b, "Total: %s\n", FormatDong(p.TotalPrice))

	return b.String()
}

// SendOrderConfirmation implements NotificationService.
func (n *notificationService) SendOrderConfirmation(ctx context.Context, order *models.Order, email string) error {
	if email == "" {
		return errors.BadRequestError("Recipient email is required")
	}

	var html strings.Builder
	if err := confirmationHTML.Execute(&html, order); err != nil {
		return errors.InternalError("Failed to render confirmation email").WithError(err)
	}

	req := &models.EmailNotificationRequest{
		To:          email,
		Subject:     fmt.Sprintf("Order confirmation %s", order.ID),
		Content:     confirmationText(order),
		HTMLContent: html.String(),
		Categories:  []string{"order-confirmation"},
		CustomArgs:  map[string]string{"order_id": order.ID.String()},
	}

	if err := n.emailService.Send(ctx, req); err != nil {
		return errors.ThirdPartyError("Failed to send confirmation email").WithError(err)
	}

	return nil
}
