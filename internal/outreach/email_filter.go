package outreach

import (
	"regexp"
	"strings"
)

// FilterResult is the outcome of pre-import email screening.
type FilterResult struct {
	IsValid      bool
	Reason       string
	ShouldImport bool
}

// Role-based local parts that never reach a real decision maker.
var roleBasedPrefixes = map[string]struct{}{
	"info": {}, "contact": {}, "support": {}, "help": {}, "sales": {},
	"admin": {}, "administrator": {}, "webmaster": {}, "postmaster": {},
	"abuse": {}, "noreply": {}, "no-reply": {}, "donotreply": {},
	"marketing": {}, "team": {}, "hello": {}, "hi": {}, "general": {},
	"office": {}, "reception": {}, "inquiry": {}, "inquiries": {},
	"service": {}, "services": {}, "customerservice": {}, "customer-service": {},
	"billing": {}, "accounts": {}, "hr": {}, "humanresources": {},
	"jobs": {}, "careers": {}, "press": {}, "media": {}, "legal": {},
	"compliance": {}, "privacy": {}, "user": {}, "username": {},
	"email": {}, "mail": {}, "example": {}, "test": {}, "demo": {},
}

var disposableDomains = map[string]struct{}{
	"10minutemail.com": {}, "guerrillamail.com": {}, "mailinator.com": {},
	"tempmail.org": {}, "throwaway.email": {}, "7days-a-week.com": {},
	"yopmail.com": {}, "temp-mail.org": {}, "getairmail.com": {},
	"emailondeck.com": {}, "fakeinbox.com": {},
}

var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^test\d*@`),
	regexp.MustCompile(`(?i)^demo\d*@`),
	regexp.MustCompile(`(?i)^sample\d*@`),
	regexp.MustCompile(`(?i)^example\d*@`),
	regexp.MustCompile(`(?i)^fake\d*@`),
	regexp.MustCompile(`(?i)^spam\d*@`),
	regexp.MustCompile(`\+.*@`),    // plus addressing
	regexp.MustCompile(`^.{1,2}@`), // very short local parts
}

var emailFormatRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Scrapers occasionally harvest asset paths that look like addresses.
var fileExtensions = []string{".jpg", ".png", ".gif", ".pdf", ".doc", ".txt", ".html", ".css", ".js"}

// FilterEmail screens an address before import. It rejects malformed
// addresses and flags role-based, disposable, and suspicious addresses as
// valid-but-unimportable with a human-readable reason.
func FilterEmail(email string) FilterResult {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" || !emailFormatRe.MatchString(normalized) {
		return FilterResult{Reason: "Invalid email format"}
	}

	for _, ext := range fileExtensions {
		if strings.Contains(normalized, ext) {
			return FilterResult{Reason: "Not an email address (file extension detected)"}
		}
	}

	at := strings.Index(normalized, "@")
	local, domain := normalized[:at], normalized[at+1:]

	if _, ok := roleBasedPrefixes[local]; ok {
		return FilterResult{IsValid: true, Reason: "Role-based email (not personal)"}
	}
	if _, ok := disposableDomains[domain]; ok {
		return FilterResult{IsValid: true, Reason: "Disposable/temporary email domain"}
	}
	for _, pat := range suspiciousPatterns {
		if pat.MatchString(normalized) {
			return FilterResult{IsValid: true, Reason: "Suspicious email pattern"}
		}
	}

	return FilterResult{IsValid: true, ShouldImport: true}
}

// NormalizeEmail lowercases and trims an address for storage and
// case-insensitive duplicate checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
