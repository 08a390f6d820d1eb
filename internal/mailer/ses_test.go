package mailer

import (
	"net/http"
	"testing"
	"time"

	"github.com/threesixtyvue/outreach/internal/config"
)

func TestNewSESSenderAppliesConfiguredTimeout(t *testing.T) {
	// An ambient AWS_CA_BUNDLE makes LoadDefaultConfig reject the plain
	// *http.Client; clear it so the test is isolated from the host env.
	t.Setenv("AWS_CA_BUNDLE", "")

	s, err := NewSESSender(config.SESConfig{
		Region:         "us-east-1",
		FromName:       "Outreach",
		FromEmail:      "hello@example.com",
		TimeoutSeconds: 7,
	})
	if err != nil {
		t.Fatalf("NewSESSender: %v", err)
	}

	hc, ok := s.client.Options().HTTPClient.(*http.Client)
	if !ok {
		t.Fatalf("expected *http.Client transport, got %T", s.client.Options().HTTPClient)
	}
	if hc.Timeout != 7*time.Second {
		t.Fatalf("expected 7s request timeout, got %s", hc.Timeout)
	}
}
