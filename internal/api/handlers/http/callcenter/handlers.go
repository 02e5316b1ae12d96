package callcenter

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

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
	logger      *slog.Logger
	emergencies service.EmergencyService
	stats       service.StatsService
	manager     *ws.Manager
}

func NewHandler(logger *slog.Logger, emergencies service.EmergencyService, stats service.StatsService, manager *ws.Manager) *Handler {
	return &Handler{
		logger:      logger,
		emergencies: emergencies,
		stats:       stats,
		manager:     manager,
	}
}

func (h *Handler) CreateEmergency(w http.ResponseWriter, r *http.Request) {
	callCenterID, ok := middleware.AccountID(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req domain.CreateEmergencyRequest

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	resp, err := h.emergencies.Create(r.Context(), callCenterID, req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) ListEmergencies(w http.ResponseWriter, r *http.Request) {
	callCenterID, ok := middleware.AccountID(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	resp, err := h.emergencies.ListByCallCenter(r.Context(), callCenterID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) AskAssign(w http.ResponseWriter, r *http.Request) {
	callCenterID, ok := middleware.AccountID(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	emergencyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid emergency id"})
		return
	}

	rescuer, err := h.emergencies.AskAssign(r.Context(), callCenterID, emergencyID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rescuer)
}

func (h *Handler) CancelEmergency(w http.ResponseWriter, r *http.Request) {
	callCenterID, ok := middleware.AccountID(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	emergencyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid emergency id"})
		return
	}

	if err := h.emergencies.Cancel(r.Context(), callCenterID, emergencyID); err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, domain.SuccessMessage{Message: "emergency canceled"})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	callCenterID, ok := middleware.AccountID(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	resp, err := h.stats.ByCallCenter(r.Context(), callCenterID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Websocket registers the call center's live session used for dispatch
// notifications.
func (h *Handler) Websocket(w http.ResponseWriter, r *http.Request) {
	callCenterID, ok := middleware.AccountID(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log(r).Error("websocket accept failed", slog.Any("error", err))
		return
	}
	client := ws.NewClient(callCenterID, domain.RoleCallCenter, conn, h.manager)
	h.manager.HandleNewConnection(client)
}
