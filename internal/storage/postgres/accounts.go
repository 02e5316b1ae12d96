package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"stayalive/internal/domain"
	"stayalive/pkg/e"
)

// AccountRepo reads the rescuer and call-center directories. The dispatch
// core never writes these tables; account management lives elsewhere.
type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func (r *AccountRepo) Rescuer(ctx context.Context, id uuid.UUID) (*domain.Rescuer, error) {
	const op = "postgres.Account.Rescuer"

	const query = `SELECT id, firstname, lastname, email, phone FROM rescuers WHERE id = $1`

	var res domain.Rescuer
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&res.ID, &res.Firstname, &res.Lastname, &res.Email, &res.Phone)
	if err != nil {
		return nil, e.WrapError(ctx, op, err)
	}
	return &res, nil
}

func (r *AccountRepo) CallCenter(ctx context.Context, id uuid.UUID) (*domain.CallCenter, error) {
	const op = "postgres.Account.CallCenter"

	const query = `SELECT id, name FROM call_centers WHERE id = $1`

	var res domain.CallCenter
	err := r.pool.QueryRow(ctx, query, id).Scan(&res.ID, &res.Name)
	if err != nil {
		return nil, e.WrapError(ctx, op, err)
	}
	return &res, nil
}
