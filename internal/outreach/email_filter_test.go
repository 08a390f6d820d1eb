package outreach

import "testing"

func TestFilterEmail(t *testing.T) {
	tests := []struct {
		email        string
		shouldImport bool
		reason       string
	}{
		{"dana@acmedental.com", true, ""},
		{"Dana.Reyes@AcmeDental.com", true, ""},
		{"", false, "Invalid email format"},
		{"not-an-email", false, "Invalid email format"},
		{"two@@signs.com", false, "Invalid email format"},
		{"logo.png@site.com", false, "Not an email address (file extension detected)"},
		{"info@acmedental.com", false, "Role-based email (not personal)"},
		{"office@acmedental.com", false, "Role-based email (not personal)"},
		{"dana@mailinator.com", false, "Disposable/temporary email domain"},
		{"test123@acmedental.com", false, "Suspicious email pattern"},
		{"dana+tag@acmedental.com", false, "Suspicious email pattern"},
		{"ab@acmedental.com", false, "Suspicious email pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			got := FilterEmail(tt.email)
			if got.ShouldImport != tt.shouldImport {
				t.Errorf("ShouldImport = %v, want %v", got.ShouldImport, tt.shouldImport)
			}
			if got.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.reason)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Dana@Acme.COM "); got != "dana@acme.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}
