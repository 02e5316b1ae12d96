package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"stayalive/internal/domain"
	"stayalive/pkg/e"
)

type StatsRepo struct {
	pool *pgxpool.Pool
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool}
}

func (r *StatsRepo) ByCallCenter(ctx context.Context, callCenterID uuid.UUID) (*domain.EmergencyStats, error) {
	const op = "postgres.Stats.ByCallCenter"

	const query = `
SELECT
  COUNT(*),
  COUNT(*) FILTER (WHERE status = 'PENDING'),
  COUNT(*) FILTER (WHERE status = 'ASSIGNED'),
  COUNT(*) FILTER (WHERE status = 'RESOLVED'),
  COUNT(*) FILTER (WHERE status = 'CANCELED'),
  COUNT(*) FILTER (WHERE created_at > now() - interval '1 hour')
FROM emergencies
WHERE call_center_id = $1
`

	var s domain.EmergencyStats
	err := r.pool.QueryRow(ctx, query, callCenterID).Scan(
		&s.Total, &s.Pending, &s.Assigned, &s.Resolved, &s.Canceled, &s.CreatedLastHour,
	)
	if err != nil {
		return nil, e.WrapError(ctx, op, err)
	}
	return &s, nil
}
