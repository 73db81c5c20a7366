// services/sms_service_test.go
package services

import "testing"

func TestNormalizePhoneNumber(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+1 (555) 010-0123", "+15550100123"},
		{"+44 7700 900123", "+447700900123"},
		{"+15550100123", "+15550100123"},
	}
	for _, tc := range cases {
		if got := NormalizePhoneNumber(tc.in); got != tc.want {
			t.Errorf("NormalizePhoneNumber(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
