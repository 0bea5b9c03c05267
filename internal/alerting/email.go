package alerting

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailConfig configures alert emails sent through SendGrid.
type EmailConfig struct {
	APIKey      string
	To          string
	FromAddress string
	FromName    string
}

func (c EmailConfig) Enabled() bool {
	return c.APIKey != "" && c.To != "" && c.FromAddress != ""
}

// EmailSender delivers an HTML alert email.
type EmailSender interface {
	Send(ctx context.Context, subject, htmlBody string) error
}

type sendgridSender struct {
	cfg    EmailConfig
	client *sendgrid.Client
}

func NewSendgridSender(cfg EmailConfig) EmailSender {
	return &sendgridSender{cfg: cfg, client: sendgrid.NewSendClient(cfg.APIKey)}
}

func (s *sendgridSender) Send(ctx context.Context, subject, htmlBody string) error {
	from := mail.NewEmail(s.cfg.FromName, s.cfg.FromAddress)
	to := mail.NewEmail("", s.cfg.To)
	message := mail.NewSingleEmail(from, subject, to, htmlBody, htmlBody)
	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: %d %s", resp.StatusCode, resp.Body)
	}
	return nil
}
