package handler

import "net/http"

// GET /admin/health
func (h *AdminHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
