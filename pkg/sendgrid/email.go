package sendgrid

import (
	"context"
	"fmt"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	sg "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type EmailService interface {
	Send(ctx context.Context, req *models.EmailNotificationRequest) error
	GetSendGridClient() *sg.Client
}

type emailService struct {
	client *sg.Client
	from   *mail.Email
}

func NewEmailService(apiKey string, fromEmail string, fromName string) EmailService {
	return &emailService{client: sg.NewSendClient(apiKey), from: mail.NewEmail(fromName, fromEmail)}
}

func addresses(list []string) []*mail.Email {
	out := make([]*mail.Email, 0, len(list))
	for _, addr := range list {
		out = append(out, mail.NewEmail("", addr))
	}
	return out
}

func (e *emailService) buildMessage(req *models.EmailNotificationRequest) *mail.SGMailV3 {
	p := mail.NewPersonalization()
	p.Subject = req.Subject
	p.AddTos(mail.NewEmail("", req.To))
	p.AddCCs(addresses(req.CC)...)
	p.AddBCCs(addresses(req.BCC)...)

	msg := mail.NewV3Mail()
	msg.SetFrom(e.from)
	msg.AddPersonalizations(p)

	// text/plain must precede text/html, and empty blocks are rejected.
	msg.AddContent(mail.NewContent("text/plain", req.Content))
	if req.HTMLContent != "" {
		msg.AddContent(mail.NewContent("text/html", req.HTMLContent))
	}

	msg.AddCategories(req.Categories...)
	for k, v := range req.CustomArgs {
		msg.SetCustomArg(k, v)
	}

	return msg
}

func (e *emailService) Send(ctx context.Context, req *models.EmailNotificationRequest) error {
	resp, err := e.client.SendWithContext(ctx, e.buildMessage(req))
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("failed to send email, status code: %d", resp.StatusCode)
	}

	return nil
}

// GetSendGridClient exposes the underlying client so tests can point it at a fake server.
func (e *emailService) GetSendGridClient() *sg.Client {
	return e.client
}
