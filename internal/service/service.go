package service

import (
	"context"

	"github.com/google/uuid"

	"stayalive/internal/domain"
	"stayalive/internal/events"
)

// EmergencyService is the lifecycle manager contract exposed to handlers.
type EmergencyService interface {
	Create(ctx context.Context, callCenterID uuid.UUID, req domain.CreateEmergencyRequest) (*domain.EmergencyInfoResponse, error)
	Accept(ctx context.Context, rescuerID, emergencyID uuid.UUID) error
	Refuse(ctx context.Context, rescuerID, emergencyID uuid.UUID) error
	Terminate(ctx context.Context, rescuerID, emergencyID uuid.UUID) error
	Cancel(ctx context.Context, callCenterID, emergencyID uuid.UUID) error
	AskAssign(ctx context.Context, callCenterID, emergencyID uuid.UUID) (*domain.Rescuer, error)
	History(ctx context.Context, rescuerID uuid.UUID) ([]domain.EmergencyHistoryEntry, error)
	ListByCallCenter(ctx context.Context, callCenterID uuid.UUID) ([]domain.EmergencyInfoResponse, error)
}

type PositionService interface {
	Get(ctx context.Context, rescuerID uuid.UUID) (*domain.PositionResponse, error)
	Set(ctx context.Context, rescuerID uuid.UUID, req domain.PositionRequest) (*domain.PositionResponse, error)
	Delete(ctx context.Context, rescuerID uuid.UUID) error
	All(ctx context.Context) ([]domain.PositionWithIDResponse, error)
	Nearest(ctx context.Context, req domain.PositionRequest) (*domain.PositionWithIDResponse, error)
}

type StatsService interface {
	ByCallCenter(ctx context.Context, callCenterID uuid.UUID) (*domain.EmergencyStats, error)
}

// EmergencyRepository is the durable store behind the lifecycle manager.
// Assign/Resolve/Cancel are compare-and-swap operations: they return the
// updated record when the swap won and nil when the guard no longer held.
type EmergencyRepository interface {
	Create(ctx context.Context, em *domain.Emergency) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Emergency, error)
	Assign(ctx context.Context, id, rescuerID uuid.UUID) (*domain.Emergency, error)
	Resolve(ctx context.Context, id, rescuerID uuid.UUID) (*domain.Emergency, error)
	Cancel(ctx context.Context, id, callCenterID uuid.UUID) (*domain.Emergency, error)
	AddHidden(ctx context.Context, id, rescuerID uuid.UUID) error
	ListByRescuer(ctx context.Context, rescuerID uuid.UUID) ([]*domain.Emergency, error)
	ListByCallCenter(ctx context.Context, callCenterID uuid.UUID) ([]*domain.Emergency, error)
}

// AccountDirectory supplies read-only profile snapshots for notifications.
type AccountDirectory interface {
	Rescuer(ctx context.Context, id uuid.UUID) (*domain.Rescuer, error)
	CallCenter(ctx context.Context, id uuid.UUID) (*domain.CallCenter, error)
}

// PositionStore is the keyed live-location cache.
type PositionStore interface {
	Set(ctx context.Context, pos domain.RescuerPosition) error
	Get(ctx context.Context, rescuerID uuid.UUID) (*domain.RescuerPosition, error)
	Delete(ctx context.Context, rescuerID uuid.UUID) error
	All(ctx context.Context) ([]domain.RescuerPosition, error)
}

type EventPublisher interface {
	Publish(ev events.Event)
}

type StatsRepository interface {
	ByCallCenter(ctx context.Context, callCenterID uuid.UUID) (*domain.EmergencyStats, error)
}

type Service struct {
	EmergencyService EmergencyService
	PositionService  PositionService
	StatsService     StatsService
}

func NewService(
	emergencyService EmergencyService,
	positionService PositionService,
	statsService StatsService,
) *Service {
	return &Service{
		EmergencyService: emergencyService,
		PositionService:  positionService,
		StatsService:     statsService,
	}
}
