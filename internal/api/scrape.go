package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/threesixtyvue/outreach/internal/outreach"
	"github.com/threesixtyvue/outreach/internal/pkg/httputil"
	"github.com/threesixtyvue/outreach/internal/pkg/logger"
	"github.com/threesixtyvue/outreach/internal/scraper"
)

type scrapeRequest struct {
	Query    string `json:"query"`
	Location string `json:"location"`
	Limit    int    `json:"limit"`
}

// Scrape runs the scraper synchronously and imports its results.
func (h *Handlers) Scrape(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "Scraping is not configured")
		return
	}

	var req scrapeRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Query == "" || req.Location == "" {
		httputil.BadRequest(w, "query and location are required")
		return
	}

	ctx := r.Context()
	records, err := h.runner.Run(ctx, scraper.Params{Query: req.Query, Location: req.Location, Limit: req.Limit})
	if err != nil {
		logger.Error("scrape failed", "query", req.Query, "location", req.Location, "error", err.Error())
		httputil.InternalError(w, err)
		return
	}

	imported, skipped := h.importScraped(ctx, records, req.Query)
	httputil.OK(w, map[string]any{
		"success":  true,
		"message":  fmt.Sprintf("Scraped %d businesses, imported %d leads", len(records), len(imported)),
		"leads":    imported,
		"skipped":  skipped,
		"query":    req.Query,
		"location": req.Location,
	})
}

// importScraped persists scraped records, tagging each lead with the
// search query as its company industry.
func (h *Handlers) importScraped(ctx context.Context, records []outreach.ImportRecord, query string) ([]*outreach.Lead, []outreach.SkippedRecord) {
	var imported []*outreach.Lead
	var skipped []outreach.SkippedRecord

	for _, rec := range records {
		filter := outreach.FilterEmail(rec.Email)
		if !filter.ShouldImport {
			skipped = append(skipped, outreach.SkippedRecord{Email: rec.Email, Reason: filter.Reason})
			continue
		}

		email := outreach.NormalizeEmail(rec.Email)
		exists, err := h.store.LeadExistsByEmail(ctx, email)
		if err != nil {
			logger.Error("scrape import duplicate check failed", "email", email, "error", err.Error())
			continue
		}
		if exists {
			skipped = append(skipped, outreach.SkippedRecord{Email: email, Reason: "Duplicate email"})
			continue
		}

		companyID, err := h.store.UpsertCompany(ctx, rec, query)
		if err != nil {
			logger.Error("scrape import company upsert failed", "company", rec.Company, "error", err.Error())
			continue
		}
		lead := &outreach.Lead{
			CompanyID:   companyID,
			Email:       email,
			ContactName: rec.ContactName,
			Source:      "SCRAPER",
		}
		if err := h.store.CreateLead(ctx, lead); err != nil {
			logger.Error("scrape import lead create failed", "email", email, "error", err.Error())
			continue
		}
		imported = append(imported, lead)
	}
	return imported, skipped
}

// ScrapeStream runs the scraper while relaying its output over
// server-sent events, then imports the results before the final event.
func (h *Handlers) ScrapeStream(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "Scraping is not configured")
		return
	}

	var req scrapeRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Query == "" || req.Location == "" {
		httputil.BadRequest(w, "query and location are required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.InternalError(w, fmt.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var mu sync.Mutex
	var outputFile string
	emit := func(payload any) {
		mu.Lock()
		defer mu.Unlock()
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	ctx := r.Context()
	err := h.runner.RunStream(ctx, scraper.Params{Query: req.Query, Location: req.Location, Limit: req.Limit}, func(ev scraper.Event) {
		if ev.Type == "complete" {
			mu.Lock()
			outputFile = ev.OutputFile
			mu.Unlock()
		}
		emit(ev)
	})
	if err != nil {
		logger.Error("scrape stream failed", "query", req.Query, "error", err.Error())
		return
	}

	records, err := h.runner.Results(outputFile)
	if err != nil {
		emit(map[string]any{"type": "failed", "message": err.Error()})
		return
	}
	imported, skipped := h.importScraped(ctx, records, req.Query)
	emit(map[string]any{
		"type":     "imported",
		"imported": len(imported),
		"skipped":  len(skipped),
		"scraped":  len(records),
	})
}
