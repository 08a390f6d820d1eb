package aigen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/threesixtyvue/outreach/internal/config"
)

func newTestGenerator(url string) *Generator {
	return NewGenerator(config.OpenAIConfig{
		APIKey:         "test-key",
		Model:          "gpt-4o",
		BaseURL:        url,
		TimeoutSeconds: 5,
	})
}

func completionWith(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

const draftJSON = `{"name":"Dental Outreach","steps":[{"dayOffset":0,"subject":"Hi {{firstname}}","bodyHtml":"<p>Hello</p>"}]}`

func TestGenerateParsesPlainJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		fmt.Fprint(w, completionWith(draftJSON))
	}))
	defer srv.Close()

	draft, err := newTestGenerator(srv.URL).Generate(context.Background(), Request{
		Goal: "book demos", EmailCount: 1, TargetAudience: "dental clinics",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if draft.Name != "Dental Outreach" {
		t.Errorf("expected campaign name, got %q", draft.Name)
	}
	if len(draft.Steps) != 1 || draft.Steps[0].Subject != "Hi {{firstname}}" {
		t.Errorf("unexpected steps: %+v", draft.Steps)
	}
}

func TestGenerateStripsMarkdownFences(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"json fence", "```json\n" + draftJSON + "\n```"},
		{"bare fence", "```\n" + draftJSON + "\n```"},
		{"padded", "  \n```json\n" + draftJSON + "\n```\n  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, completionWith(tt.content))
			}))
			defer srv.Close()

			draft, err := newTestGenerator(srv.URL).Generate(context.Background(), Request{
				Goal: "g", EmailCount: 1, TargetAudience: "t",
			})
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			if draft.Name != "Dental Outreach" {
				t.Errorf("expected parsed draft, got %+v", draft)
			}
		})
	}
}

func TestGenerateBadJSONIsDistinctError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionWith("Sure! Here is a campaign idea for you."))
	}))
	defer srv.Close()

	_, err := newTestGenerator(srv.URL).Generate(context.Background(), Request{
		Goal: "g", EmailCount: 1, TargetAudience: "t",
	})
	if !errors.Is(err, ErrBadModelJSON) {
		t.Fatalf("expected ErrBadModelJSON, got %v", err)
	}
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	g := NewGenerator(config.OpenAIConfig{BaseURL: "http://localhost:0", TimeoutSeconds: 1})
	if _, err := g.Generate(context.Background(), Request{Goal: "g", EmailCount: 1, TargetAudience: "t"}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestParseDraftRejectsEmptySteps(t *testing.T) {
	_, err := parseDraft(`{"name":"Empty","steps":[]}`)
	if !errors.Is(err, ErrBadModelJSON) {
		t.Fatalf("expected ErrBadModelJSON, got %v", err)
	}
}
