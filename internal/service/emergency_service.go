package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stayalive/internal/domain"
	"stayalive/internal/events"
	"stayalive/internal/geo"
	"stayalive/internal/metrics"
	"stayalive/pkg/e"
)

// emergencyService owns the emergency state machine:
//
//	PENDING -> ASSIGNED -> RESOLVED
//	PENDING -> CANCELED
//
// RESOLVED and CANCELED are terminal. Guards run against the latest
// persisted state and the actual transition is a conditional write, so
// concurrent callers on the same emergency serialize in the store and
// exactly one wins. Events go out only after the durable write succeeded.
type emergencyService struct {
	repo      EmergencyRepository
	accounts  AccountDirectory
	positions PositionStore
	bus       EventPublisher
	logger    *slog.Logger
	metrics   *metrics.Collector
}

func NewEmergencyService(
	repo EmergencyRepository,
	accounts AccountDirectory,
	positions PositionStore,
	bus EventPublisher,
	logger *slog.Logger,
	collector *metrics.Collector,
) EmergencyService {
	return &emergencyService{
		repo:      repo,
		accounts:  accounts,
		positions: positions,
		bus:       bus,
		logger:    logger,
		metrics:   collector,
	}
}

func (s *emergencyService) Create(ctx context.Context, callCenterID uuid.UUID, req domain.CreateEmergencyRequest) (resp *domain.EmergencyInfoResponse, err error) {
	defer func() { s.metrics.RecordTransition("create", err) }()

	em := &domain.Emergency{
		ID:           uuid.New(),
		Info:         req.Info,
		Position:     req.Position,
		CallCenterID: callCenterID,
		Status:       domain.EmergencyPending,
		CreatedAt:    time.Now().UTC(),
	}
	if err = s.repo.Create(ctx, em); err != nil {
		return nil, err
	}

	s.logger.Info("emergency created",
		slog.String("emergency_id", em.ID.String()),
		slog.String("call_center_id", callCenterID.String()),
	)
	s.publish(ctx, events.EmergencyCreated, em, nil)
	return &domain.EmergencyInfoResponse{ID: em.ID, Status: em.Status}, nil
}

func (s *emergencyService) Accept(ctx context.Context, rescuerID, emergencyID uuid.UUID) (err error) {
	defer func() { s.metrics.RecordTransition("accept", err) }()

	em, err := s.repo.Get(ctx, emergencyID)
	if err != nil {
		return err
	}
	if err = acceptGuard(em.Status); err != nil {
		return err
	}

	updated, err := s.repo.Assign(ctx, emergencyID, rescuerID)
	if err != nil {
		return err
	}
	if updated == nil {
		// Lost the swap: somebody transitioned the emergency since the
		// read above. Re-read so the caller gets the precise reason.
		return s.staleAcceptError(ctx, emergencyID)
	}

	s.logger.Info("emergency assigned",
		slog.String("emergency_id", emergencyID.String()),
		slog.String("rescuer_id", rescuerID.String()),
	)
	rescuer, err := s.accounts.Rescuer(ctx, rescuerID)
	if err != nil {
		return err
	}
	s.publish(ctx, events.EmergencyAssigned, updated, rescuer)
	return nil
}

func (s *emergencyService) staleAcceptError(ctx context.Context, emergencyID uuid.UUID) error {
	em, err := s.repo.Get(ctx, emergencyID)
	if err != nil {
		return err
	}
	if err := acceptGuard(em.Status); err != nil {
		return err
	}
	return e.ErrInternal
}

func acceptGuard(status domain.EmergencyStatus) error {
	switch status {
	case domain.EmergencyAssigned:
		return e.ErrAlreadyAssigned
	case domain.EmergencyResolved:
		return e.ErrAlreadyResolved
	case domain.EmergencyCanceled:
		return e.ErrAlreadyCanceled
	}
	return nil
}

func (s *emergencyService) Refuse(ctx context.Context, rescuerID, emergencyID uuid.UUID) (err error) {
	defer func() { s.metrics.RecordTransition("refuse", err) }()

	em, err := s.repo.Get(ctx, emergencyID)
	if err != nil {
		return err
	}
	switch em.Status {
	case domain.EmergencyResolved:
		return e.ErrAlreadyResolved
	case domain.EmergencyCanceled:
		return e.ErrAlreadyCanceled
	}

	// Idempotent: refusing twice records the rescuer once.
	if err = s.repo.AddHidden(ctx, emergencyID, rescuerID); err != nil {
		return err
	}
	em, err = s.repo.Get(ctx, emergencyID)
	if err != nil {
		return err
	}

	s.logger.Info("emergency refused",
		slog.String("emergency_id", emergencyID.String()),
		slog.String("rescuer_id", rescuerID.String()),
	)
	rescuer, err := s.accounts.Rescuer(ctx, rescuerID)
	if err != nil {
		return err
	}
	// Re-broadcast so the remaining eligible rescuers get another offer.
	s.publish(ctx, events.EmergencyRefused, em, rescuer)
	return nil
}

func (s *emergencyService) Terminate(ctx context.Context, rescuerID, emergencyID uuid.UUID) (err error) {
	defer func() { s.metrics.RecordTransition("terminate", err) }()

	em, err := s.repo.Get(ctx, emergencyID)
	if err != nil {
		return err
	}
	if err = terminateGuard(em, rescuerID); err != nil {
		return err
	}

	updated, err := s.repo.Resolve(ctx, emergencyID, rescuerID)
	if err != nil {
		return err
	}
	if updated == nil {
		em, err = s.repo.Get(ctx, emergencyID)
		if err != nil {
			return err
		}
		if err = terminateGuard(em, rescuerID); err != nil {
			return err
		}
		return e.ErrInternal
	}

	s.logger.Info("emergency terminated",
		slog.String("emergency_id", emergencyID.String()),
		slog.String("rescuer_id", rescuerID.String()),
	)
	rescuer, err := s.accounts.Rescuer(ctx, rescuerID)
	if err != nil {
		return err
	}
	s.publish(ctx, events.EmergencyTerminated, updated, rescuer)
	return nil
}

func terminateGuard(em *domain.Emergency, rescuerID uuid.UUID) error {
	switch em.Status {
	case domain.EmergencyPending:
		return e.ErrNotAssigned
	case domain.EmergencyResolved:
		return e.ErrAlreadyResolved
	case domain.EmergencyCanceled:
		return e.ErrAlreadyCanceled
	}
	if em.RescuerAssigned == nil || *em.RescuerAssigned != rescuerID {
		return e.ErrForbidden
	}
	return nil
}

func (s *emergencyService) Cancel(ctx context.Context, callCenterID, emergencyID uuid.UUID) (err error) {
	defer func() { s.metrics.RecordTransition("cancel", err) }()

	em, err := s.repo.Get(ctx, emergencyID)
	if err != nil {
		return err
	}
	if em.CallCenterID != callCenterID {
		return e.ErrForbidden
	}
	if err = cancelGuard(em.Status); err != nil {
		return err
	}

	updated, err := s.repo.Cancel(ctx, emergencyID, callCenterID)
	if err != nil {
		return err
	}
	if updated == nil {
		em, err = s.repo.Get(ctx, emergencyID)
		if err != nil {
			return err
		}
		if err = cancelGuard(em.Status); err != nil {
			return err
		}
		return e.ErrInternal
	}

	s.logger.Info("emergency canceled", slog.String("emergency_id", emergencyID.String()))
	s.publish(ctx, events.EmergencyCanceled, updated, nil)
	return nil
}

func cancelGuard(status domain.EmergencyStatus) error {
	switch status {
	case domain.EmergencyAssigned:
		return e.ErrAlreadyAssigned
	case domain.EmergencyResolved:
		return e.ErrAlreadyResolved
	case domain.EmergencyCanceled:
		return e.ErrAlreadyCanceled
	}
	return nil
}

// AskAssign offers the emergency to the nearest eligible rescuer with a live
// position. The declined set is excluded; an empty candidate set surfaces as
// ErrNoCandidates.
func (s *emergencyService) AskAssign(ctx context.Context, callCenterID, emergencyID uuid.UUID) (*domain.Rescuer, error) {
	em, err := s.repo.Get(ctx, emergencyID)
	if err != nil {
		return nil, err
	}
	if em.CallCenterID != callCenterID {
		return nil, e.ErrForbidden
	}
	if err := cancelGuard(em.Status); err != nil {
		return nil, err
	}

	all, err := s.positions.All(ctx)
	if err != nil {
		return nil, err
	}
	eligible := all[:0:0]
	for _, pos := range all {
		if !em.HiddenFor(pos.RescuerID) {
			eligible = append(eligible, pos)
		}
	}
	match, err := geo.Nearest(em.Position.Lat, em.Position.Long, eligible)
	if err != nil {
		return nil, err
	}

	rescuer, err := s.accounts.Rescuer(ctx, match.RescuerID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ask assign",
		slog.String("emergency_id", emergencyID.String()),
		slog.String("rescuer_id", rescuer.ID.String()),
	)
	s.publish(ctx, events.EmergencyAskAssign, em, rescuer)
	return rescuer, nil
}

func (s *emergencyService) History(ctx context.Context, rescuerID uuid.UUID) ([]domain.EmergencyHistoryEntry, error) {
	list, err := s.repo.ListByRescuer(ctx, rescuerID)
	if err != nil {
		return nil, err
	}
	res := make([]domain.EmergencyHistoryEntry, 0, len(list))
	for _, em := range list {
		res = append(res, domain.EmergencyHistoryEntry{
			ID:     em.ID,
			Status: em.Status,
			Info:   em.Info,
		})
	}
	return res, nil
}

func (s *emergencyService) ListByCallCenter(ctx context.Context, callCenterID uuid.UUID) ([]domain.EmergencyInfoResponse, error) {
	list, err := s.repo.ListByCallCenter(ctx, callCenterID)
	if err != nil {
		return nil, err
	}
	res := make([]domain.EmergencyInfoResponse, 0, len(list))
	for _, em := range list {
		res = append(res, domain.EmergencyInfoResponse{ID: em.ID, Status: em.Status})
	}
	return res, nil
}

// publish resolves the call-center snapshot and puts the event on the bus.
// The lifecycle write already succeeded at this point; a directory miss is
// logged and the notification skipped rather than failing the request.
func (s *emergencyService) publish(ctx context.Context, ty events.Type, em *domain.Emergency, rescuer *domain.Rescuer) {
	callCenter, err := s.accounts.CallCenter(ctx, em.CallCenterID)
	if err != nil {
		s.logger.Error("call center lookup failed, event dropped",
			slog.String("emergency_id", em.ID.String()),
			slog.Any("error", err),
		)
		return
	}
	s.bus.Publish(events.Event{
		Type:       ty,
		Emergency:  *em,
		CallCenter: *callCenter,
		Rescuer:    rescuer,
	})
}
