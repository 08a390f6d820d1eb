// Package tracking serves the open-pixel and unsubscribe endpoints baked
// into outgoing emails. Both are unauthenticated GETs that mutate state;
// they are tolerable only because the mutations are idempotent.
package tracking

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/threesixtyvue/outreach/internal/outreach"
	"github.com/threesixtyvue/outreach/internal/pkg/httputil"
	"github.com/threesixtyvue/outreach/internal/pkg/logger"
)

// 1x1 transparent GIF
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x2c,
	0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02,
	0x02, 0x44, 0x01, 0x00, 0x3b,
}

type Handler struct {
	store *outreach.Store
}

func NewHandler(store *outreach.Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/open", h.HandleOpen)
	r.Get("/unsub", h.HandleUnsubscribe)
	return r
}

// HandleOpen records an email open by tracking token. The pixel is served
// no matter what: a remote loader must never learn whether the token
// matched anything.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	tid := r.URL.Query().Get("tid")
	if tid != "" {
		matched, err := h.store.MarkOpenedByTrackID(r.Context(), tid)
		if err != nil {
			logger.Error("open tracking update failed", "error", err.Error())
		} else if matched {
			logger.Debug("email opened", "track_id", tid)
		}
	}
	h.servePixel(w)
}

// HandleUnsubscribe flags every lead with the given address. Repeated
// calls are harmless.
func (h *Handler) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("e")
	if email != "" {
		n, err := h.store.UnsubscribeByEmail(r.Context(), email)
		if err != nil {
			logger.Error("unsubscribe failed", "email", email, "error", err.Error())
			httputil.InternalError(w, err)
			return
		}
		logger.Info("unsubscribed", "email", email, "leads", n)
	}
	httputil.OK(w, map[string]any{"ok": true, "message": "You are unsubscribed."})
}

func (h *Handler) servePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(pixelGIF)
}
