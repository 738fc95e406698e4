package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"train-chat/internal/general/logger"
	"train-chat/internal/ports"

	"github.com/google/uuid"
)

// AdminHTTPHandler adapts HTTP requests to the AdminService.
type AdminHTTPHandler struct {
	svc    ports.AdminService
	logger *logger.Logger
}

func NewAdminHTTPHandler(svc ports.AdminService, logger *logger.Logger) *AdminHTTPHandler {
	return &AdminHTTPHandler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the read-only dashboard endpoints.
func (h *AdminHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/health", h.handleHealth)
	mux.HandleFunc("GET /admin/rooms", h.handleRooms)
	mux.HandleFunc("GET /admin/rooms/{room_id}/events", h.handleRoomEvents)
}

func (h *AdminHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	buf, err := json.Marshal(data)
	if err != nil {
		h.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

func (h *AdminHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	switch {
	case status >= 500:
		action = "http_internal_error"
	case status == http.StatusBadRequest:
		action = "validation_failed"
	}
	h.logger.Error(ctx, action, msg, err, nil)

	h.jsonResponse(ctx, w, status, struct {
		Error string `json:"error"`
	}{Error: msg})
}

// withReqID takes X-Request-ID from the request or makes one up.
func (h *AdminHTTPHandler) withReqID(r *http.Request) context.Context {
	reqID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
	if reqID == "" {
		reqID = uuid.NewString()
	}
	return h.logger.WithRequestID(r.Context(), reqID)
}
