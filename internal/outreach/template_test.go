package outreach

import "testing"

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		tpl  string
		vars map[string]string
		want string
	}{
		{
			name: "substitutes known variables",
			tpl:  "Hi {{firstname}}, greetings from {{company}}.",
			vars: map[string]string{"firstname": "Dana", "company": "Acme"},
			want: "Hi Dana, greetings from Acme.",
		},
		{
			name: "unknown variable renders empty",
			tpl:  "Book via {{scheduler}} or {{mystery}}.",
			vars: map[string]string{"scheduler": "Calendly"},
			want: "Book via Calendly or .",
		},
		{
			name: "malformed token left intact",
			tpl:  "{{first name}} and {{company}",
			vars: map[string]string{"company": "Acme"},
			want: "{{first name}} and {{company}",
		},
		{
			name: "empty value still substitutes",
			tpl:  "Hello {{firstname}}!",
			vars: map[string]string{"firstname": ""},
			want: "Hello !",
		},
		{
			name: "repeated variable",
			tpl:  "{{company}} and {{company}}",
			vars: map[string]string{"company": "Acme"},
			want: "Acme and Acme",
		},
		{
			name: "no placeholders",
			tpl:  "plain text",
			vars: map[string]string{"firstname": "Dana"},
			want: "plain text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.tpl, tt.vars); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFirstName(t *testing.T) {
	tests := []struct {
		contact string
		want    string
	}{
		{"Dana Reyes", "Dana"},
		{"Dana", "Dana"},
		{"  Dana  Reyes ", "Dana"},
		{"", "there"},
		{"   ", "there"},
	}
	for _, tt := range tests {
		if got := FirstName(tt.contact); got != tt.want {
			t.Errorf("FirstName(%q) = %q, want %q", tt.contact, got, tt.want)
		}
	}
}
