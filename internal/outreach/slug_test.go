package outreach

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Dental Spring 2026", "dental-spring-2026"},
		{"  Voice AI -- Dentists  ", "voice-ai-dentists"},
		{"Already-Slugged", "already-slugged"},
		{"!!!", ""},
		{"Café & Co", "caf-co"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
