package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stayalive/internal/domain"
	"stayalive/pkg/e"
)

// EmergencyRepo owns the durable emergency record. State transitions are
// conditional UPDATEs keyed on the expected current status, so concurrent
// callers racing on the same row resolve to exactly one winner.
type EmergencyRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewEmergencyRepo(pool *pgxpool.Pool, logger *slog.Logger) *EmergencyRepo {
	return &EmergencyRepo{pool: pool, logger: logger}
}

const emergencyColumns = `id, info, lat, long, call_center_id, status, rescuer_assigned, created_at`

func (r *EmergencyRepo) Create(ctx context.Context, em *domain.Emergency) error {
	const op = "postgres.Emergency.Create"

	const query = `
INSERT INTO emergencies (id, info, lat, long, call_center_id, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	_, err := r.pool.Exec(ctx, query,
		em.ID, em.Info, em.Position.Lat, em.Position.Long,
		em.CallCenterID, em.Status, em.CreatedAt,
	)
	if err != nil {
		r.logger.Error("db exec failed", slog.String("op", op), slog.Any("error", err))
		return e.WrapError(ctx, op, err)
	}
	return nil
}

func (r *EmergencyRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Emergency, error) {
	const op = "postgres.Emergency.Get"

	row := r.pool.QueryRow(ctx, `SELECT `+emergencyColumns+` FROM emergencies WHERE id = $1`, id)
	em, err := scanEmergency(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.WrapError(ctx, op, err)
		}
		r.logger.Error("row scan failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	em.RescuerHidden, err = r.hiddenFor(ctx, id)
	if err != nil {
		return nil, e.WrapError(ctx, op, err)
	}
	return em, nil
}

// Assign is the compare-and-swap behind Accept: it only succeeds while the
// emergency is still PENDING. Returns the updated row, or nil when the swap
// lost (the caller re-reads to find out why).
func (r *EmergencyRepo) Assign(ctx context.Context, id, rescuerID uuid.UUID) (*domain.Emergency, error) {
	const op = "postgres.Emergency.Assign"

	const query = `
UPDATE emergencies
SET status = $3, rescuer_assigned = $2
WHERE id = $1 AND status = $4
RETURNING ` + emergencyColumns

	row := r.pool.QueryRow(ctx, query, id, rescuerID, domain.EmergencyAssigned, domain.EmergencyPending)
	em, err := scanEmergency(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("db exec failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	em.RescuerHidden, err = r.hiddenFor(ctx, id)
	if err != nil {
		return nil, e.WrapError(ctx, op, err)
	}
	return em, nil
}

// Resolve moves an ASSIGNED emergency to RESOLVED, but only for the rescuer
// currently assigned to it. Returns nil when the swap lost.
func (r *EmergencyRepo) Resolve(ctx context.Context, id, rescuerID uuid.UUID) (*domain.Emergency, error) {
	const op = "postgres.Emergency.Resolve"

	const query = `
UPDATE emergencies
SET status = $3
WHERE id = $1 AND status = $4 AND rescuer_assigned = $2
RETURNING ` + emergencyColumns

	row := r.pool.QueryRow(ctx, query, id, rescuerID, domain.EmergencyResolved, domain.EmergencyAssigned)
	em, err := scanEmergency(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("db exec failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	return em, nil
}

// Cancel moves a PENDING emergency to CANCELED, owner-scoped. Returns nil
// when the swap lost.
func (r *EmergencyRepo) Cancel(ctx context.Context, id, callCenterID uuid.UUID) (*domain.Emergency, error) {
	const op = "postgres.Emergency.Cancel"

	const query = `
UPDATE emergencies
SET status = $3
WHERE id = $1 AND status = $4 AND call_center_id = $2
RETURNING ` + emergencyColumns

	row := r.pool.QueryRow(ctx, query, id, callCenterID, domain.EmergencyCanceled, domain.EmergencyPending)
	em, err := scanEmergency(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("db exec failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	return em, nil
}

// AddHidden records a refusal. Inserting the same (emergency, rescuer) pair
// twice is a no-op.
func (r *EmergencyRepo) AddHidden(ctx context.Context, id, rescuerID uuid.UUID) error {
	const op = "postgres.Emergency.AddHidden"

	const query = `
INSERT INTO emergency_refusals (emergency_id, rescuer_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`
	if _, err := r.pool.Exec(ctx, query, id, rescuerID); err != nil {
		r.logger.Error("db exec failed", slog.String("op", op), slog.Any("error", err))
		return e.WrapError(ctx, op, err)
	}
	return nil
}

func (r *EmergencyRepo) ListByRescuer(ctx context.Context, rescuerID uuid.UUID) ([]*domain.Emergency, error) {
	const op = "postgres.Emergency.ListByRescuer"
	return r.list(ctx, op, `rescuer_assigned = $1`, rescuerID)
}

func (r *EmergencyRepo) ListByCallCenter(ctx context.Context, callCenterID uuid.UUID) ([]*domain.Emergency, error) {
	const op = "postgres.Emergency.ListByCallCenter"
	return r.list(ctx, op, `call_center_id = $1`, callCenterID)
}

func (r *EmergencyRepo) list(ctx context.Context, op, where string, arg any) ([]*domain.Emergency, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+emergencyColumns+` FROM emergencies WHERE `+where+` ORDER BY created_at`, arg)
	if err != nil {
		r.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	defer rows.Close()

	res := make([]*domain.Emergency, 0, 8)
	for rows.Next() {
		em, err := scanEmergency(rows)
		if err != nil {
			r.logger.Error("row scan failed", slog.String("op", op), slog.Any("error", err))
			return nil, e.WrapError(ctx, op, err)
		}
		res = append(res, em)
	}
	if err := rows.Err(); err != nil {
		return nil, e.WrapError(ctx, op, err)
	}
	return res, nil
}

func (r *EmergencyRepo) hiddenFor(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT rescuer_id FROM emergency_refusals WHERE emergency_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hidden []uuid.UUID
	for rows.Next() {
		var rid uuid.UUID
		if err := rows.Scan(&rid); err != nil {
			return nil, err
		}
		hidden = append(hidden, rid)
	}
	return hidden, rows.Err()
}

func scanEmergency(row pgx.Row) (*domain.Emergency, error) {
	var em domain.Emergency
	err := row.Scan(
		&em.ID, &em.Info, &em.Position.Lat, &em.Position.Long,
		&em.CallCenterID, &em.Status, &em.RescuerAssigned, &em.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &em, nil
}
