package rescuer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"stayalive/internal/api/handlers/http/rescuer"
	"stayalive/internal/domain"
	"stayalive/internal/middleware"
	"stayalive/pkg/e"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), &slog.HandlerOptions{Level: slog.LevelError}))
}

func addChiURLParam(r *http.Request, key, val string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func asAccount(r *http.Request, id uuid.UUID) *http.Request {
	return r.WithContext(middleware.WithAccountID(r.Context(), id))
}

func decodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json response: %v, body=%s", err, rr.Body.String())
	}
	return out
}

type stubEmergencies struct {
	accept    func(ctx context.Context, rescuerID, emergencyID uuid.UUID) error
	refuse    func(ctx context.Context, rescuerID, emergencyID uuid.UUID) error
	terminate func(ctx context.Context, rescuerID, emergencyID uuid.UUID) error
	history   func(ctx context.Context, rescuerID uuid.UUID) ([]domain.EmergencyHistoryEntry, error)
}

func (s *stubEmergencies) Create(context.Context, uuid.UUID, domain.CreateEmergencyRequest) (*domain.EmergencyInfoResponse, error) {
	return nil, nil
}
func (s *stubEmergencies) Accept(ctx context.Context, rescuerID, emergencyID uuid.UUID) error {
	return s.accept(ctx, rescuerID, emergencyID)
}
func (s *stubEmergencies) Refuse(ctx context.Context, rescuerID, emergencyID uuid.UUID) error {
	return s.refuse(ctx, rescuerID, emergencyID)
}
func (s *stubEmergencies) Terminate(ctx context.Context, rescuerID, emergencyID uuid.UUID) error {
	return s.terminate(ctx, rescuerID, emergencyID)
}
func (s *stubEmergencies) Cancel(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (s *stubEmergencies) AskAssign(context.Context, uuid.UUID, uuid.UUID) (*domain.Rescuer, error) {
	return nil, nil
}
func (s *stubEmergencies) History(ctx context.Context, rescuerID uuid.UUID) ([]domain.EmergencyHistoryEntry, error) {
	return s.history(ctx, rescuerID)
}
func (s *stubEmergencies) ListByCallCenter(context.Context, uuid.UUID) ([]domain.EmergencyInfoResponse, error) {
	return nil, nil
}

type stubPositions struct {
	get     func(ctx context.Context, rescuerID uuid.UUID) (*domain.PositionResponse, error)
	set     func(ctx context.Context, rescuerID uuid.UUID, req domain.PositionRequest) (*domain.PositionResponse, error)
	del     func(ctx context.Context, rescuerID uuid.UUID) error
	all     func(ctx context.Context) ([]domain.PositionWithIDResponse, error)
	nearest func(ctx context.Context, req domain.PositionRequest) (*domain.PositionWithIDResponse, error)
}

func (s *stubPositions) Get(ctx context.Context, rescuerID uuid.UUID) (*domain.PositionResponse, error) {
	return s.get(ctx, rescuerID)
}
func (s *stubPositions) Set(ctx context.Context, rescuerID uuid.UUID, req domain.PositionRequest) (*domain.PositionResponse, error) {
	return s.set(ctx, rescuerID, req)
}
func (s *stubPositions) Delete(ctx context.Context, rescuerID uuid.UUID) error {
	return s.del(ctx, rescuerID)
}
func (s *stubPositions) All(ctx context.Context) ([]domain.PositionWithIDResponse, error) {
	return s.all(ctx)
}
func (s *stubPositions) Nearest(ctx context.Context, req domain.PositionRequest) (*domain.PositionWithIDResponse, error) {
	return s.nearest(ctx, req)
}

func newHandler(emergencies *stubEmergencies, positions *stubPositions) *rescuer.Handler {
	return rescuer.NewHandler(newTestLogger(), emergencies, positions, nil, 10*time.Millisecond)
}

func TestAcceptEmergency_OK(t *testing.T) {
	t.Parallel()

	rescuerID := uuid.New()
	emergencyID := uuid.New()
	svc := &stubEmergencies{
		accept: func(_ context.Context, gotRescuer, gotEmergency uuid.UUID) error {
			if gotRescuer != rescuerID || gotEmergency != emergencyID {
				t.Fatalf("wrong ids: rescuer=%s emergency=%s", gotRescuer, gotEmergency)
			}
			return nil
		},
	}
	h := newHandler(svc, &stubPositions{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rescuer/emergency/x/accept", nil)
	req = asAccount(req, rescuerID)
	req = addChiURLParam(req, "id", emergencyID.String())
	rr := httptest.NewRecorder()

	h.AcceptEmergency(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d got %d, body=%s", http.StatusOK, rr.Code, rr.Body.String())
	}
}

func TestAcceptEmergency_AlreadyAssigned_409(t *testing.T) {
	t.Parallel()

	svc := &stubEmergencies{
		accept: func(context.Context, uuid.UUID, uuid.UUID) error {
			return e.ErrAlreadyAssigned
		},
	}
	h := newHandler(svc, &stubPositions{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rescuer/emergency/x/accept", nil)
	req = asAccount(req, uuid.New())
	req = addChiURLParam(req, "id", uuid.New().String())
	rr := httptest.NewRecorder()

	h.AcceptEmergency(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected %d got %d, body=%s", http.StatusConflict, rr.Code, rr.Body.String())
	}
	got := decodeJSON[map[string]string](t, rr)
	if got["code"] != "already_assigned" {
		t.Fatalf("expected code=already_assigned got=%s", got["code"])
	}
}

func TestTerminateEmergency_Forbidden_403(t *testing.T) {
	t.Parallel()

	svc := &stubEmergencies{
		terminate: func(context.Context, uuid.UUID, uuid.UUID) error {
			return e.ErrForbidden
		},
	}
	h := newHandler(svc, &stubPositions{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rescuer/emergency/x/terminate", nil)
	req = asAccount(req, uuid.New())
	req = addChiURLParam(req, "id", uuid.New().String())
	rr := httptest.NewRecorder()

	h.TerminateEmergency(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected %d got %d, body=%s", http.StatusForbidden, rr.Code, rr.Body.String())
	}
}

func TestRefuseEmergency_BadID_400(t *testing.T) {
	t.Parallel()

	h := newHandler(&stubEmergencies{}, &stubPositions{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rescuer/emergency/nope/refuse", nil)
	req = asAccount(req, uuid.New())
	req = addChiURLParam(req, "id", "nope")
	rr := httptest.NewRecorder()

	h.RefuseEmergency(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected %d got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestHistory_OK(t *testing.T) {
	t.Parallel()

	svc := &stubEmergencies{
		history: func(context.Context, uuid.UUID) ([]domain.EmergencyHistoryEntry, error) {
			return []domain.EmergencyHistoryEntry{
				{ID: uuid.New(), Status: domain.EmergencyResolved, Info: "done"},
			}, nil
		},
	}
	h := newHandler(svc, &stubPositions{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rescuer/emergency", nil)
	req = asAccount(req, uuid.New())
	rr := httptest.NewRecorder()

	h.History(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d got %d", http.StatusOK, rr.Code)
	}
	got := decodeJSON[[]domain.EmergencyHistoryEntry](t, rr)
	if len(got) != 1 || got[0].Info != "done" {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestSetPosition_OK(t *testing.T) {
	t.Parallel()

	positions := &stubPositions{
		set: func(_ context.Context, _ uuid.UUID, req domain.PositionRequest) (*domain.PositionResponse, error) {
			return &domain.PositionResponse{Latitude: req.Latitude, Longitude: req.Longitude}, nil
		},
	}
	h := newHandler(&stubEmergencies{}, positions)

	reqBody := `{"latitude":45.76,"longitude":4.84}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rescuer/position/", bytes.NewBufferString(reqBody))
	req = asAccount(req, uuid.New())
	rr := httptest.NewRecorder()

	h.SetPosition(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d got %d, body=%s", http.StatusOK, rr.Code, rr.Body.String())
	}
	got := decodeJSON[domain.PositionResponse](t, rr)
	if got.Latitude != 45.76 {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestSetPosition_OutOfRange_400(t *testing.T) {
	t.Parallel()

	h := newHandler(&stubEmergencies{}, &stubPositions{})

	reqBody := `{"latitude":91.0,"longitude":4.84}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rescuer/position/", bytes.NewBufferString(reqBody))
	req = asAccount(req, uuid.New())
	rr := httptest.NewRecorder()

	h.SetPosition(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected %d got %d, body=%s", http.StatusBadRequest, rr.Code, rr.Body.String())
	}
}

func TestGetPosition_NotFound_404(t *testing.T) {
	t.Parallel()

	positions := &stubPositions{
		get: func(context.Context, uuid.UUID) (*domain.PositionResponse, error) {
			return nil, e.ErrNotFound
		},
	}
	h := newHandler(&stubEmergencies{}, positions)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rescuer/position/", nil)
	req = asAccount(req, uuid.New())
	rr := httptest.NewRecorder()

	h.GetPosition(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected %d got %d", http.StatusNotFound, rr.Code)
	}
}

func TestNearestPosition_NoCandidates_404(t *testing.T) {
	t.Parallel()

	positions := &stubPositions{
		nearest: func(context.Context, domain.PositionRequest) (*domain.PositionWithIDResponse, error) {
			return nil, e.ErrNoCandidates
		},
	}
	h := newHandler(&stubEmergencies{}, positions)

	reqBody := `{"latitude":45.76,"longitude":4.84}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rescuer/position/nearest", bytes.NewBufferString(reqBody))
	req = asAccount(req, uuid.New())
	rr := httptest.NewRecorder()

	h.NearestPosition(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected %d got %d", http.StatusNotFound, rr.Code)
	}
}

func TestPositionFeed_StreamsEvents(t *testing.T) {
	t.Parallel()

	positions := &stubPositions{
		get: func(context.Context, uuid.UUID) (*domain.PositionResponse, error) {
			return &domain.PositionResponse{Latitude: 45.76, Longitude: 4.84}, nil
		},
	}
	h := newHandler(&stubEmergencies{}, positions)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rescuer/position/feed", nil).WithContext(ctx)
	req = asAccount(req, uuid.New())
	rr := httptest.NewRecorder()

	h.PositionFeed(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d got %d", http.StatusOK, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event-stream content type, got %q", ct)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "data: ") || !strings.Contains(body, "45.76") {
		t.Fatalf("expected streamed position events, got %q", body)
	}
}

func TestPositionFeed_MissingPositionYieldsEmptyEvent(t *testing.T) {
	t.Parallel()

	positions := &stubPositions{
		get: func(context.Context, uuid.UUID) (*domain.PositionResponse, error) {
			return nil, e.ErrNotFound
		},
	}
	h := newHandler(&stubEmergencies{}, positions)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rescuer/position/feed", nil).WithContext(ctx)
	req = asAccount(req, uuid.New())
	rr := httptest.NewRecorder()

	h.PositionFeed(rr, req)

	if !strings.Contains(rr.Body.String(), "data: {}") {
		t.Fatalf("expected empty data event, got %q", rr.Body.String())
	}
}
