package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/threesixtyvue/outreach/internal/outreach"
	"github.com/threesixtyvue/outreach/internal/pkg/httputil"
	"github.com/threesixtyvue/outreach/internal/pkg/logger"
)

// ListLeads returns leads with company info for the dashboard.
func (h *Handlers) ListLeads(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	leads, err := h.store.ListLeads(r.Context(), limit, offset)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if leads == nil {
		leads = []*outreach.Lead{}
	}
	httputil.OK(w, leads)
}

type importRequest struct {
	Records []outreach.ImportRecord `json:"records"`
}

type importResponse struct {
	OK      bool                     `json:"ok"`
	Count   int                      `json:"count"`
	Skipped []outreach.SkippedRecord `json:"skipped,omitempty"`
}

// ImportLeads bulk-imports records with email-quality filtering. A bad
// record is skipped with a reason; the batch always continues.
func (h *Handlers) ImportLeads(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	resp := importResponse{OK: true}
	for _, rec := range req.Records {
		filter := outreach.FilterEmail(rec.Email)
		if !filter.ShouldImport {
			resp.Skipped = append(resp.Skipped, outreach.SkippedRecord{Email: rec.Email, Reason: filter.Reason})
			continue
		}

		email := outreach.NormalizeEmail(rec.Email)
		exists, err := h.store.LeadExistsByEmail(ctx, email)
		if err != nil {
			resp.Skipped = append(resp.Skipped, outreach.SkippedRecord{Email: email, Reason: "Lookup failed"})
			logger.Error("import duplicate check failed", "email", email, "error", err.Error())
			continue
		}
		if exists {
			resp.Skipped = append(resp.Skipped, outreach.SkippedRecord{Email: email, Reason: "Duplicate email"})
			continue
		}

		// A record without a company name still imports; the address
		// domain stands in for the organization.
		if strings.TrimSpace(rec.Company) == "" {
			rec.Company = email[strings.Index(email, "@")+1:]
		}
		companyID, err := h.store.UpsertCompany(ctx, rec, "")
		if err != nil {
			resp.Skipped = append(resp.Skipped, outreach.SkippedRecord{Email: email, Reason: "Company upsert failed"})
			logger.Error("import company upsert failed", "company", rec.Company, "error", err.Error())
			continue
		}

		source := rec.Source
		if source == "" {
			source = "import"
		}
		lead := &outreach.Lead{
			CompanyID:   companyID,
			Email:       email,
			ContactName: rec.ContactName,
			Source:      source,
		}
		if err := h.store.CreateLead(ctx, lead); err != nil {
			resp.Skipped = append(resp.Skipped, outreach.SkippedRecord{Email: email, Reason: "Create failed"})
			logger.Error("import lead create failed", "email", email, "error", err.Error())
			continue
		}
		resp.Count++
	}

	logger.Info("lead import finished", "created", resp.Count, "skipped", len(resp.Skipped))
	httputil.OK(w, resp)
}

type bulkDeleteRequest struct {
	LeadIDs []uuid.UUID `json:"leadIds"`
}

// BulkDeleteLeads deletes leads by ID.
func (h *Handlers) BulkDeleteLeads(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.LeadIDs) == 0 {
		httputil.BadRequest(w, "leadIds array is required")
		return
	}

	n, err := h.store.DeleteLeads(r.Context(), req.LeadIDs)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"message":      "Successfully deleted " + strconv.FormatInt(n, 10) + " leads",
		"deletedCount": n,
	})
}

var cleanupStatuses = []outreach.EmailVerificationStatus{outreach.EmailInvalid, outreach.EmailDoNotMail}

// CleanupPreview reports how many leads a cleanup would delete.
func (h *Handlers) CleanupPreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	invalid, err := h.store.CountLeadsByEmailStatus(ctx, outreach.EmailInvalid)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	doNotMail, err := h.store.CountLeadsByEmailStatus(ctx, outreach.EmailDoNotMail)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"ok": true,
		"preview": map[string]int{
			"invalid":   invalid,
			"doNotMail": doNotMail,
			"total":     invalid + doNotMail,
		},
	})
}

// CleanupExecute deletes INVALID and DO_NOT_MAIL leads, then removes
// companies left with no leads.
func (h *Handlers) CleanupExecute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	doomed, err := h.store.ListLeadsByEmailStatus(ctx, cleanupStatuses)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if len(doomed) == 0 {
		httputil.OK(w, map[string]any{
			"ok":      true,
			"message": "No invalid or do-not-mail leads found to delete",
			"deleted": 0,
		})
		return
	}

	deleted, err := h.store.DeleteLeadsByEmailStatus(ctx, cleanupStatuses)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	companiesDeleted, err := h.store.DeleteOrphanCompanies(ctx)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	logger.Info("cleanup finished", "leads_deleted", deleted, "companies_deleted", companiesDeleted)
	httputil.OK(w, map[string]any{
		"ok":               true,
		"message":          "Successfully deleted " + strconv.FormatInt(deleted, 10) + " invalid/do-not-mail leads",
		"deleted":          deleted,
		"companiesDeleted": companiesDeleted,
		"deletedLeads":     doomed,
	})
}

type verifyEmailRequest struct {
	LeadID *uuid.UUID `json:"leadId"`
	Email  string     `json:"email"`
}

// VerifyEmail verifies one address, updating the lead when one is named.
func (h *Handlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	if h.verifier == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "Email verification is not configured")
		return
	}

	var req verifyEmailRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.LeadID == nil && req.Email == "" {
		httputil.BadRequest(w, "Either leadId or email is required")
		return
	}

	ctx := r.Context()
	email := req.Email
	if req.LeadID != nil {
		lead, err := h.store.GetLead(ctx, *req.LeadID)
		if err != nil {
			httputil.InternalError(w, err)
			return
		}
		if lead == nil {
			httputil.NotFound(w, "lead not found")
			return
		}
		email = lead.Email
	}

	result, err := h.verifier.Validate(ctx, email)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	if req.LeadID != nil {
		if err := h.store.UpdateLeadVerification(ctx, *req.LeadID, result.Status, nil); err != nil {
			httputil.InternalError(w, err)
			return
		}
	}
	httputil.OK(w, map[string]any{"success": true, "verification": result})
}

// VerificationCredits reports the remaining provider credits.
func (h *Handlers) VerificationCredits(w http.ResponseWriter, r *http.Request) {
	if h.verifier == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "Email verification is not configured")
		return
	}
	credits, err := h.verifier.Credits(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"success": true, "credits": credits})
}

type verifyBulkRequest struct {
	LeadIDs []uuid.UUID `json:"leadIds"`
}

// VerifyEmailsBulk verifies every still-unverified lead in the given set
// and records each verdict.
func (h *Handlers) VerifyEmailsBulk(w http.ResponseWriter, r *http.Request) {
	if h.verifier == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "Email verification is not configured")
		return
	}

	var req verifyBulkRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.LeadIDs) == 0 {
		httputil.BadRequest(w, "leadIds array is required")
		return
	}

	ctx := r.Context()
	leads, err := h.store.ListUnverifiedLeads(ctx, req.LeadIDs)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	emails := make([]string, len(leads))
	for i, lead := range leads {
		emails[i] = lead.Email
	}
	results, err := h.verifier.ValidateBatch(ctx, emails)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	updated := 0
	for i, res := range results {
		if err := h.store.UpdateLeadVerification(ctx, leads[i].ID, res.Status, nil); err != nil {
			logger.Error("bulk verify update failed", "lead_id", leads[i].ID.String(), "error", err.Error())
			continue
		}
		updated++
	}
	httputil.OK(w, map[string]any{"success": true, "verified": updated, "results": results})
}
