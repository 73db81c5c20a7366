// services/email_service.go
package services

import (
	"context"
	"fmt"

	"memorybox/config"
	"memorybox/utils"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// EmailProvider is the provider-adapter seam the dispatcher sends email
// through. The SendGrid implementation is the only production one; tests
// substitute fakes.
type EmailProvider interface {
	Send(ctx context.Context, to, subject, text, html string) (providerMessageID string, err error)
}

// SendGridEmailService is the SendGrid-backed EmailProvider.
type SendGridEmailService struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewSendGridEmailService(cfg *config.MessagingConfig) *SendGridEmailService {
	return &SendGridEmailService{
		client:    sendgrid.NewSendClient(cfg.SendGridAPIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}
}

func (es *SendGridEmailService) Send(ctx context.Context, to, subject, text, html string) (string, error) {
	from := mail.NewEmail(es.fromName, es.fromEmail)
	recipient := mail.NewEmail("", to)

	message := mail.NewSingleEmail(from, subject, recipient, text, html)

	response, err := es.client.SendWithContext(ctx, message)
	if err != nil {
		return "", utils.NewProviderError("sendgrid", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		logrus.Errorf("SendGrid rejected email to %s: %d %s", to, response.StatusCode, response.Body)
		return "", utils.NewProviderError("sendgrid",
			fmt.Errorf("sendgrid returned %d: %s", response.StatusCode, response.Body))
	}

	messageID := response.Headers["X-Message-Id"]
	providerMessageID := ""
	if len(messageID) > 0 {
		providerMessageID = messageID[0]
	}

	logrus.Infof("Email accepted by SendGrid for %s (message id %s)", to, providerMessageID)
	return providerMessageID, nil
}
