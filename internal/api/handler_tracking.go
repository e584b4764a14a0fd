package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// trackingPixel is a 1x1 transparent GIF served on lure opens.
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// trackOpen records a lure-email open and serves the pixel. Unknown tokens
// get the pixel too: the response never reveals whether a token is live.
func (h *Handler) trackOpen(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	_ = h.tracking.RecordOpen(r.Context(), token, r.UserAgent())

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(trackingPixel)
}

// trackClick records a lure-link click and redirects to the campaign's
// landing page. Unknown tokens 404.
func (h *Handler) trackClick(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	lureURL, err := h.tracking.RecordClick(r.Context(), token, r.UserAgent())
	if err != nil {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, lureURL, http.StatusFound)
}

// trackReport records that the recipient reported the lure as phishing.
func (h *Handler) trackReport(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if err := h.tracking.RecordReport(r.Context(), token, r.UserAgent()); err != nil {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
