package rescuer

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"stayalive/pkg/e"
)

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, e.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, e.ErrNoCandidates):
		status = http.StatusNotFound
	case errors.Is(err, e.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, e.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, e.ErrInvalidInput), errors.Is(err, e.ErrInvalidCoordinates):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}
	h.writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  e.Reason(err),
	})
}

func (h *Handler) log(r *http.Request) *slog.Logger {
	reqID := chimw.GetReqID(r.Context())
	if reqID == "" {
		return h.logger
	}
	return h.logger.With(slog.String("request_id", reqID))
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("json encode failed", slog.Any("error", err))
	}
}
