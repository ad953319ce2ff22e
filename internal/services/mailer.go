package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Mailer delivers a single HTML message.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// ErrMailerNotConfigured is returned when no mail transport credentials are set.
var ErrMailerNotConfigured = errors.New("mail transport not configured")

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridMailer sends mail through the SendGrid v3 API.
type SendGridMailer struct {
	client sendClient
	from   *mail.Email
	logger *zap.Logger
}

func NewSendGridMailer(apiKey, senderName, senderAddress string, logger *zap.Logger) *SendGridMailer {
	var client sendClient
	if apiKey != "" {
		client = sendgrid.NewSendClient(apiKey)
	}
	return &SendGridMailer{
		client: client,
		from:   mail.NewEmail(senderName, senderAddress),
		logger: logger,
	}
}

func (m *SendGridMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.client == nil {
		return ErrMailerNotConfigured
	}

	message := mail.NewSingleEmail(m.from, subject, mail.NewEmail("", to), "", htmlBody)

	m.logger.Info("sending email", zap.String("to", to), zap.String("subject", subject))
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		m.logger.Error("failed to send email", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		m.logger.Error("email rejected",
			zap.String("to", to),
			zap.Int("status", resp.StatusCode),
			zap.String("body", resp.Body),
		)
		return fmt.Errorf("sendgrid: unexpected status %d", resp.StatusCode)
	}

	m.logger.Info("email sent", zap.String("to", to), zap.Int("status", resp.StatusCode))
	return nil
}
