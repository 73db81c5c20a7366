// config/messaging_config.go
package config

import (
	"fmt"
	"time"
)

// MessagingConfig holds every process-wide setting the messaging subsystem
// reads: channel flags, provider credentials, rate ceilings, retry policy,
// tracking endpoints and the default template variables merged into every
// render. It is constructed once at startup and handed to each component's
// constructor.
type MessagingConfig struct {
	// Channel enable flags
	EmailEnabled bool
	SMSEnabled   bool
	InAppEnabled bool

	// Email provider (SendGrid)
	SendGridAPIKey string
	FromEmail      string
	FromName       string

	// SMS provider (Twilio)
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	// Firebase (in-app push)
	FirebaseCredentialsPath string
	FirebaseProjectID       string

	// Per-channel rate ceilings, enforced by the dispatcher
	RateLimits map[string]RateLimit

	// Retry policy for explicitly-invoked retries
	Retry RetryPolicy

	// Tracking
	OpenTrackingEnabled bool
	TrackingBaseURL     string // pixel and click redirect base
	SMSStatusCallback   string // Twilio delivery-status webhook URL

	// Default template variables merged into every render
	DefaultVariables map[string]string
}

// RateLimit is a channel's send ceiling per window.
type RateLimit struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

// RetryPolicy is exponential backoff with a cap.
type RetryPolicy struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// Delay returns the backoff delay before the given attempt (1-based).
func (rp RetryPolicy) Delay(attempt int) time.Duration {
	delay := rp.BaseDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * rp.BackoffMultiplier)
		if delay >= rp.MaxDelay {
			return rp.MaxDelay
		}
	}
	if delay > rp.MaxDelay {
		return rp.MaxDelay
	}
	return delay
}

// LoadMessagingConfig loads messaging configuration from environment
func LoadMessagingConfig(baseURL string) *MessagingConfig {
	return &MessagingConfig{
		EmailEnabled: getEnvAsBool("EMAIL_ENABLED", true),
		SMSEnabled:   getEnvAsBool("SMS_ENABLED", false),
		InAppEnabled: getEnvAsBool("IN_APP_ENABLED", true),

		// Email settings
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		FromEmail:      getEnv("FROM_EMAIL", "noreply@memorybox.app"),
		FromName:       getEnv("FROM_NAME", "Memory Box"),

		// SMS settings
		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),

		// Firebase settings
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),

		RateLimits: map[string]RateLimit{
			"email": {
				PerMinute: getEnvAsInt("EMAIL_RATE_PER_MINUTE", 100),
				PerHour:   getEnvAsInt("EMAIL_RATE_PER_HOUR", 2000),
				PerDay:    getEnvAsInt("EMAIL_RATE_PER_DAY", 20000),
			},
			"sms": {
				PerMinute: getEnvAsInt("SMS_RATE_PER_MINUTE", 30),
				PerHour:   getEnvAsInt("SMS_RATE_PER_HOUR", 500),
				PerDay:    getEnvAsInt("SMS_RATE_PER_DAY", 2000),
			},
			"in_app": {
				PerMinute: getEnvAsInt("IN_APP_RATE_PER_MINUTE", 300),
				PerHour:   getEnvAsInt("IN_APP_RATE_PER_HOUR", 10000),
				PerDay:    getEnvAsInt("IN_APP_RATE_PER_DAY", 100000),
			},
		},

		Retry: RetryPolicy{
			MaxAttempts:       getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			BaseDelay:         time.Duration(getEnvAsInt("RETRY_BASE_DELAY_MS", 1000)) * time.Millisecond,
			MaxDelay:          time.Duration(getEnvAsInt("RETRY_MAX_DELAY_MS", 30000)) * time.Millisecond,
			BackoffMultiplier: 2.0,
		},

		OpenTrackingEnabled: getEnvAsBool("OPEN_TRACKING_ENABLED", true),
		TrackingBaseURL:     getEnv("TRACKING_BASE_URL", baseURL),
		SMSStatusCallback:   getEnv("SMS_STATUS_CALLBACK", baseURL+"/webhooks/twilio/status"),

		DefaultVariables: map[string]string{
			"appName":        getEnv("APP_NAME", "Memory Box"),
			"supportEmail":   getEnv("SUPPORT_EMAIL", "support@memorybox.app"),
			"websiteUrl":     getEnv("WEBSITE_URL", "https://memorybox.app"),
			"unsubscribeUrl": getEnv("UNSUBSCRIBE_URL", "https://memorybox.app/unsubscribe"),
		},
	}
}

// Validate cross-checks channel flags against provider credentials. Enabling a
// channel without the credentials its adapter needs is a configuration error.
func (mc *MessagingConfig) Validate() []error {
	var errs []error

	if mc.EmailEnabled && mc.SendGridAPIKey == "" {
		errs = append(errs, fmt.Errorf("email channel enabled but SENDGRID_API_KEY is not set"))
	}
	if mc.EmailEnabled && mc.FromEmail == "" {
		errs = append(errs, fmt.Errorf("email channel enabled but FROM_EMAIL is not set"))
	}
	if mc.SMSEnabled && (mc.TwilioAccountSID == "" || mc.TwilioAuthToken == "") {
		errs = append(errs, fmt.Errorf("sms channel enabled but Twilio credentials are not set"))
	}
	if mc.SMSEnabled && mc.TwilioPhoneNumber == "" {
		errs = append(errs, fmt.Errorf("sms channel enabled but TWILIO_PHONE_NUMBER is not set"))
	}

	return errs
}
