package service

import (
	"context"

	"github.com/google/uuid"

	"stayalive/internal/domain"
)

type statsService struct {
	repo StatsRepository
}

func NewStatsService(repo StatsRepository) StatsService {
	return &statsService{repo: repo}
}

func (s *statsService) ByCallCenter(ctx context.Context, callCenterID uuid.UUID) (*domain.EmergencyStats, error) {
	return s.repo.ByCallCenter(ctx, callCenterID)
}
