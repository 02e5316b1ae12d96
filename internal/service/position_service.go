package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"stayalive/internal/domain"
	"stayalive/internal/geo"
	"stayalive/pkg/e"
)

type positionService struct {
	store  PositionStore
	logger *slog.Logger
}

func NewPositionService(store PositionStore, logger *slog.Logger) PositionService {
	return &positionService{store: store, logger: logger}
}

func (s *positionService) Get(ctx context.Context, rescuerID uuid.UUID) (*domain.PositionResponse, error) {
	pos, err := s.store.Get(ctx, rescuerID)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return nil, e.ErrNotFound
	}
	return &domain.PositionResponse{Latitude: pos.Lat, Longitude: pos.Lng}, nil
}

func (s *positionService) Set(ctx context.Context, rescuerID uuid.UUID, req domain.PositionRequest) (*domain.PositionResponse, error) {
	err := s.store.Set(ctx, domain.RescuerPosition{
		RescuerID: rescuerID,
		Lat:       req.Latitude,
		Lng:       req.Longitude,
	})
	if err != nil {
		return nil, err
	}
	return &domain.PositionResponse{Latitude: req.Latitude, Longitude: req.Longitude}, nil
}

func (s *positionService) Delete(ctx context.Context, rescuerID uuid.UUID) error {
	return s.store.Delete(ctx, rescuerID)
}

func (s *positionService) All(ctx context.Context) ([]domain.PositionWithIDResponse, error) {
	positions, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]domain.PositionWithIDResponse, 0, len(positions))
	for _, pos := range positions {
		res = append(res, domain.PositionWithIDResponse{
			ID:        pos.RescuerID,
			Latitude:  pos.Lat,
			Longitude: pos.Lng,
		})
	}
	return res, nil
}

func (s *positionService) Nearest(ctx context.Context, req domain.PositionRequest) (*domain.PositionWithIDResponse, error) {
	positions, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	match, err := geo.Nearest(req.Latitude, req.Longitude, positions)
	if err != nil {
		return nil, err
	}
	return &domain.PositionWithIDResponse{
		ID:        match.RescuerID,
		Latitude:  match.Lat,
		Longitude: match.Lng,
	}, nil
}
