// Package verify wraps the ZeroBounce email verification API.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/threesixtyvue/outreach/internal/outreach"
	"github.com/threesixtyvue/outreach/internal/pkg/httpretry"
	"github.com/threesixtyvue/outreach/internal/pkg/logger"
)

// bulkDelay spaces out per-email calls in batch mode to stay under the
// provider's rate limit.
const bulkDelay = 100 * time.Millisecond

// Result is the provider verdict for one address.
type Result struct {
	Email   string                           `json:"email"`
	Status  outreach.EmailVerificationStatus `json:"status"`
	IsValid bool                             `json:"isValid"`
}

// Client calls the ZeroBounce v2 API.
type Client struct {
	apiKey  string
	baseURL string
	http    httpretry.HTTPDoer
}

// NewClient creates a ZeroBounce client. timeout bounds each HTTP call.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpretry.NewRetryClient(&http.Client{Timeout: timeout}, 3),
	}
}

type validateResponse struct {
	Address   string `json:"address"`
	Status    string `json:"status"`
	SubStatus string `json:"sub_status"`
}

// Validate checks a single address and maps the provider status onto the
// lead verification statuses.
func (c *Client) Validate(ctx context.Context, email string) (*Result, error) {
	endpoint := fmt.Sprintf("%s/validate?api_key=%s&email=%s&ip_address=",
		c.baseURL, url.QueryEscape(c.apiKey), url.QueryEscape(email))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zerobounce validate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("zerobounce validate: status %d", resp.StatusCode)
	}

	var body validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("zerobounce validate decode: %w", err)
	}

	status := mapStatus(body.Status)
	return &Result{
		Email:   email,
		Status:  status,
		IsValid: status == outreach.EmailValid,
	}, nil
}

// ValidateBatch checks addresses one by one with a short delay between
// calls. A per-address failure maps to UNKNOWN and the batch continues.
func (c *Client) ValidateBatch(ctx context.Context, emails []string) ([]Result, error) {
	results := make([]Result, 0, len(emails))
	for i, email := range emails {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := c.Validate(ctx, email)
		if err != nil {
			logger.Warn("email verification failed", "email", email, "error", err.Error())
			results = append(results, Result{Email: email, Status: outreach.EmailUnknown})
		} else {
			results = append(results, *res)
		}
		if i < len(emails)-1 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(bulkDelay):
			}
		}
	}
	return results, nil
}

// Credits comes back as a JSON string ("-1" on auth failure).
type creditsResponse struct {
	Credits json.RawMessage `json:"Credits"`
}

// Credits returns the remaining verification credits on the account.
func (c *Client) Credits(ctx context.Context) (int64, error) {
	endpoint := fmt.Sprintf("%s/getcredits?api_key=%s", c.baseURL, url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("zerobounce credits: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("zerobounce credits: status %d", resp.StatusCode)
	}

	var body creditsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("zerobounce credits decode: %w", err)
	}
	n, err := strconv.ParseInt(strings.Trim(string(body.Credits), `"`), 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func mapStatus(status string) outreach.EmailVerificationStatus {
	switch strings.ToLower(status) {
	case "valid":
		return outreach.EmailValid
	case "invalid":
		return outreach.EmailInvalid
	case "catch-all":
		return outreach.EmailCatchAll
	case "spamtrap":
		return outreach.EmailSpamtrap
	case "abuse":
		return outreach.EmailAbuse
	case "do_not_mail":
		return outreach.EmailDoNotMail
	default:
		return outreach.EmailUnknown
	}
}
