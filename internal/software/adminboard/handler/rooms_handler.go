package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"train-chat/internal/domain/presence"
	"train-chat/internal/software/adminboard/service"

	"github.com/jackc/pgx/v5/pgconn"
)

const requestTimeout = 5 * time.Second

// GET /admin/rooms
func (h *AdminHTTPHandler) handleRooms(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(h.withReqID(r), requestTimeout)
	defer cancel()

	res, err := h.svc.ListRooms(ctx)
	if err != nil {
		h.httpError(ctx, w, http.StatusInternalServerError, "failed to list rooms", err)
		return
	}
	h.jsonResponse(ctx, w, http.StatusOK, res)
}

// GET /admin/rooms/{room_id}/events?limit=N
func (h *AdminHTTPHandler) handleRoomEvents(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(h.withReqID(r), requestTimeout)
	defer cancel()

	res, err := h.svc.RoomEvents(ctx, r.PathValue("room_id"), r.URL.Query().Get("limit"))
	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.Is(err, service.ErrInvalidLimit), errors.Is(err, presence.ErrEmptyRoomID):
			h.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
		case errors.As(err, &pgErr):
			h.httpError(ctx, w, http.StatusInternalServerError, "database error", err)
		default:
			h.httpError(ctx, w, http.StatusInternalServerError, "failed to fetch room events", err)
		}
		return
	}
	h.jsonResponse(ctx, w, http.StatusOK, res)
}
