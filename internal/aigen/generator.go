// Package aigen drafts campaign sequences with the OpenAI chat completions
// API. The model is asked for strict JSON; responses wrapped in markdown
// code fences are unwrapped before parsing.
package aigen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/threesixtyvue/outreach/internal/config"
	"github.com/threesixtyvue/outreach/internal/pkg/httpretry"
)

// ErrBadModelJSON marks a completion that came back but was not parseable
// as a campaign. Handlers report it distinctly from transport failures.
var ErrBadModelJSON = errors.New("ai response is not valid campaign JSON")

// Request describes the campaign to draft.
type Request struct {
	Goal           string `json:"goal"`
	EmailCount     int    `json:"emailCount"`
	TargetAudience string `json:"targetAudience"`
	BusinessType   string `json:"businessType"`
}

// Draft is the model's campaign proposal.
type Draft struct {
	Name  string      `json:"name"`
	Steps []DraftStep `json:"steps"`
}

// DraftStep is one proposed sequence step.
type DraftStep struct {
	DayOffset int    `json:"dayOffset"`
	Subject   string `json:"subject"`
	BodyHTML  string `json:"bodyHtml"`
}

// Generator calls the chat completions endpoint.
type Generator struct {
	apiKey  string
	model   string
	baseURL string
	http    httpretry.HTTPDoer
}

// NewGenerator creates a generator from config.
func NewGenerator(cfg config.OpenAIConfig) *Generator {
	return &Generator{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpretry.NewRetryClient(&http.Client{Timeout: cfg.Timeout()}, 2),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

const systemPrompt = "You are an expert cold email copywriter specializing in Voice AI outreach campaigns. " +
	"Create high-converting email sequences that focus on converting missed calls to appointments."

func buildPrompt(req Request) string {
	businessType := req.BusinessType
	if businessType == "" {
		businessType = "Voice AI services"
	}
	return fmt.Sprintf(`Create %d cold email sequences for a Voice AI outreach campaign targeting %s.

Business type: %s
Campaign goal: %s

Requirements:
- %d emails total (initial + follow-ups)
- Day offsets: Start with day 0, then space out follow-ups (2-3 days apart)
- Professional tone focused on Voice AI benefits
- Include variables: {{firstname}}, {{company}}, {{website}}, {{sender}}, {{unsub}}
- Each email should be concise and action-oriented
- Focus on converting after-hours calls to appointments
- Reference missed call opportunities and booking automation

Return ONLY valid JSON in this exact format:
{
  "name": "Campaign Name",
  "steps": [
    {
      "dayOffset": 0,
      "subject": "Email subject with variables",
      "bodyHtml": "HTML email body with <br/> tags and variables"
    }
  ]
}`, req.EmailCount, req.TargetAudience, businessType, req.Goal, req.EmailCount)
}

// Generate asks the model for a campaign draft.
func (g *Generator) Generate(ctx context.Context, req Request) (*Draft, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured")
	}

	payload, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(req)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var completion chatResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, fmt.Errorf("openai decode: %w", err)
	}
	if completion.Error != nil {
		return nil, fmt.Errorf("openai error: %s", completion.Error.Message)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("openai returned no content")
	}

	return parseDraft(completion.Choices[0].Message.Content)
}

// parseDraft unwraps markdown code fences and parses the campaign JSON.
func parseDraft(content string) (*Draft, error) {
	content = strings.TrimSpace(content)

	// Handle markdown code blocks
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	var draft Draft
	if err := json.Unmarshal([]byte(content), &draft); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadModelJSON, err)
	}
	if draft.Name == "" || len(draft.Steps) == 0 {
		return nil, fmt.Errorf("%w: missing name or steps", ErrBadModelJSON)
	}
	return &draft, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
