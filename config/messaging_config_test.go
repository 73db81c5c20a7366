package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidatePassesWithCompleteConfig(t *testing.T) {
	cfg := &MessagingConfig{
		EmailEnabled:      true,
		SendGridAPIKey:    "SG.key",
		FromEmail:         "noreply@memorybox.app",
		SMSEnabled:        true,
		TwilioAccountSID:  "ACtest",
		TwilioAuthToken:   "token",
		TwilioPhoneNumber: "+15550100",
		InAppEnabled:      true,
	}

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Validate() = %v, want no errors", errs)
	}
}

func TestValidateEmailEnabledWithoutCredentials(t *testing.T) {
	cfg := &MessagingConfig{
		EmailEnabled: true,
		FromEmail:    "noreply@memorybox.app",
	}

	errs := cfg.Validate()
	if len(errs) != 1 {
		t.Fatalf("Validate() = %v, want one error", errs)
	}
	if !strings.Contains(errs[0].Error(), "SENDGRID_API_KEY") {
		t.Errorf("error = %q, want it to name the missing setting", errs[0])
	}
}

func TestValidateSMSEnabledWithoutCredentials(t *testing.T) {
	cfg := &MessagingConfig{
		SMSEnabled: true,
	}

	errs := cfg.Validate()
	if len(errs) != 2 {
		t.Fatalf("Validate() = %v, want credential and phone-number errors", errs)
	}
}

func TestValidateDisabledChannelsNeedNoCredentials(t *testing.T) {
	cfg := &MessagingConfig{InAppEnabled: true}

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Validate() = %v, want none with all provider channels disabled", errs)
	}
}

func TestRetryPolicyDelayBacksOffExponentially(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:       5,
		BaseDelay:         time.Second,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
	}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second}, // capped
		{6, 10 * time.Second},
	}
	for _, tc := range cases {
		if got := policy.Delay(tc.attempt); got != tc.want {
			t.Errorf("Delay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestLoadMessagingConfigDefaults(t *testing.T) {
	cfg := LoadMessagingConfig("https://api.memorybox.app")

	if !cfg.EmailEnabled {
		t.Error("EmailEnabled = false by default, want true")
	}
	if cfg.SMSEnabled {
		t.Error("SMSEnabled = true by default, want false")
	}
	if cfg.FromEmail == "" {
		t.Error("FromEmail empty, want a default sender")
	}
	if cfg.TrackingBaseURL != "https://api.memorybox.app" {
		t.Errorf("TrackingBaseURL = %q, want the base URL", cfg.TrackingBaseURL)
	}
	if cfg.DefaultVariables["appName"] == "" {
		t.Error("DefaultVariables missing appName")
	}
	if limit := cfg.RateLimits["email"]; limit.PerMinute <= 0 {
		t.Errorf("email PerMinute = %d, want a positive default", limit.PerMinute)
	}
}
