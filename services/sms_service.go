// services/sms_service.go
package services

import (
	"context"
	"strings"

	"memorybox/config"
	"memorybox/utils"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSProvider is the provider-adapter seam the dispatcher sends SMS through.
type SMSProvider interface {
	Send(ctx context.Context, to, body string) (providerMessageID string, err error)
}

// TwilioSMSService is the Twilio-backed SMSProvider. When a status callback
// URL is configured it is registered per message, so Twilio reports delivery
// transitions to our webhook out-of-band.
type TwilioSMSService struct {
	client         *twilio.RestClient
	fromNumber     string
	statusCallback string
}

func NewTwilioSMSService(cfg *config.MessagingConfig) *TwilioSMSService {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})

	return &TwilioSMSService{
		client:         client,
		fromNumber:     cfg.TwilioPhoneNumber,
		statusCallback: cfg.SMSStatusCallback,
	}
}

func (ss *TwilioSMSService) Send(ctx context.Context, to, body string) (string, error) {
	to = NormalizePhoneNumber(to)

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(ss.fromNumber)
	params.SetBody(body)
	if ss.statusCallback != "" {
		params.SetStatusCallback(ss.statusCallback)
	}

	resp, err := ss.client.Api.CreateMessage(params)
	if err != nil {
		return "", utils.NewProviderError("twilio", err)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}

	status := ""
	if resp.Status != nil {
		status = *resp.Status
	}

	logrus.Infof("SMS accepted by Twilio for %s (SID %s, status %s)", to, sid, status)
	return sid, nil
}

// NormalizePhoneNumber strips formatting characters so numbers compare and
// dial consistently. International format is required upstream.
func NormalizePhoneNumber(phone string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	return replacer.Replace(phone)
}
