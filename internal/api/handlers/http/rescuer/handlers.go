package rescuer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"stayalive/internal/domain"
	"stayalive/internal/middleware"
	"stayalive/internal/service"
	"stayalive/internal/ws"
	"stayalive/pkg/validator"
)

type Handler struct {
	logger       *slog.Logger
	emergencies  service.EmergencyService
	positions    service.PositionService
	manager      *ws.Manager
	feedInterval time.Duration
}

func NewHandler(
	logger *slog.Logger,
	emergencies service.EmergencyService,
	positions service.PositionService,
	manager *ws.Manager,
	feedInterval time.Duration,
) *Handler {
	if feedInterval <= 0 {
		feedInterval = time.Second
	}
	return &Handler{
		logger:       logger,
		emergencies:  emergencies,
		positions:    positions,
		manager:      manager,
		feedInterval: feedInterval,
	}
}

func (h *Handler) AcceptEmergency(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.emergencies.Accept, "emergency accepted")
}

func (h *Handler) RefuseEmergency(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.emergencies.Refuse, "emergency refused")
}

func (h *Handler) TerminateEmergency(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.emergencies.Terminate, "emergency terminated")
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	rescuerID, ok := middleware.AccountID(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	resp, err := h.emergencies.History(r.Context(), rescuerID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetPosition(w http.ResponseWriter, r *http.Request) {
	rescuerID, ok := middleware.AccountID(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	resp, err := h.positions.Get(r.Context(), rescuerID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SetPosition(w http.ResponseWriter, r *http.Request) {
	rescuerID, ok := middleware.AccountID(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	req, ok := h.decodePosition(w, r)
	if !ok {
		return
	}
	resp, err := h.positions.Set(r.Context(), rescuerID, req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) DeletePosition(w http.ResponseWriter, r *http.Request) {
	rescuerID, ok := middleware.AccountID(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	if err := h.positions.Delete(r.Context(), rescuerID); err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, domain.SuccessMessage{Message: "position deleted"})
}

func (h *Handler) AllPositions(w http.ResponseWriter, r *http.Request) {
	resp, err := h.positions.All(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) NearestPosition(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodePosition(w, r)
	if !ok {
		return
	}
	resp, err := h.positions.Nearest(r.Context(), req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// PositionFeed streams the caller's own live position as server-sent events
// at a fixed interval. A missing position yields an empty data object, not
// an error; the stream runs until the client goes away.
func (h *Handler) PositionFeed(w http.ResponseWriter, r *http.Request) {
	rescuerID, ok := middleware.AccountID(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	// the server write timeout would cut the stream otherwise
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.log(r).Warn("clear write deadline failed", slog.Any("error", err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.feedInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := h.writeFeedEvent(w, r, rescuerID); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) writeFeedEvent(w http.ResponseWriter, r *http.Request, rescuerID uuid.UUID) error {
	payload := []byte("{}")
	pos, err := h.positions.Get(r.Context(), rescuerID)
	if err == nil {
		if b, merr := json.Marshal(pos); merr == nil {
			payload = b
		}
	}
	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n\n"))
	return err
}

// Websocket registers the rescuer's live session. Offers and directed
// dispatch notifications arrive here; the rescuer may also push position
// updates over the same socket.
func (h *Handler) Websocket(w http.ResponseWriter, r *http.Request) {
	rescuerID, ok := middleware.AccountID(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log(r).Error("websocket accept failed", slog.Any("error", err))
		return
	}
	client := ws.NewClient(rescuerID, domain.RoleRescuer, conn, h.manager)
	h.manager.HandleNewConnection(client)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, rescuerID, emergencyID uuid.UUID) error, message string) {
	rescuerID, ok := middleware.AccountID(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	emergencyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid emergency id"})
		return
	}

	if err := fn(r.Context(), rescuerID, emergencyID); err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, domain.SuccessMessage{Message: message})
}

func (h *Handler) decodePosition(w http.ResponseWriter, r *http.Request) (domain.PositionRequest, bool) {
	var req domain.PositionRequest

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return req, false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return req, false
	}
	if err := validator.ValidateStruct(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return req, false
	}
	return req, true
}
