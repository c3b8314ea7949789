package health

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seniorcare/seniorcare/internal/platform/db"
)

type healthRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &healthRepoPG{pool: pool}
}

const recordCols = `id, user_id, record_type, systolic, diastolic, value, unit, notes,
	recorded_at, is_deleted, created_at, updated_at`

func (r *healthRepoPG) scan(row pgx.Row) (*HealthRecord, error) {
	var h HealthRecord
	err := row.Scan(&h.ID, &h.UserID, &h.RecordType, &h.Systolic, &h.Diastolic, &h.Value,
		&h.Unit, &h.Notes, &h.RecordedAt, &h.IsDeleted, &h.CreatedAt, &h.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return &h, err
}

func (r *healthRepoPG) Create(ctx context.Context, h *HealthRecord) error {
	h.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO health_records (id, user_id, record_type, systolic, diastolic, value, unit, notes, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		h.ID, h.UserID, h.RecordType, h.Systolic, h.Diastolic, h.Value, h.Unit, h.Notes, h.RecordedAt,
	).Scan(&h.CreatedAt, &h.UpdatedAt)
}

func (r *healthRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*HealthRecord, error) {
	return r.scan(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+recordCols+` FROM health_records WHERE id = $1 AND NOT is_deleted`, id))
}

func (r *healthRepoPG) Update(ctx context.Context, h *HealthRecord) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE health_records SET systolic=$2, diastolic=$3, value=$4, unit=$5, notes=$6,
			recorded_at=$7, updated_at=NOW()
		WHERE id = $1 AND NOT is_deleted
		RETURNING updated_at`,
		h.ID, h.Systolic, h.Diastolic, h.Value, h.Unit, h.Notes, h.RecordedAt,
	).Scan(&h.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	return err
}

func (r *healthRepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE health_records SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND NOT is_deleted`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *healthRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, f ListFilter, limit, offset int) ([]*HealthRecord, int, error) {
	where := ` WHERE user_id = $1 AND NOT is_deleted`
	args := []interface{}{userID}
	idx := 2

	if f.RecordType != "" {
		where += fmt.Sprintf(` AND record_type = $%d`, idx)
		args = append(args, f.RecordType)
		idx++
	}
	if f.Since != nil {
		where += fmt.Sprintf(` AND recorded_at >= $%d`, idx)
		args = append(args, *f.Since)
		idx++
	}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM health_records`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + recordCols + ` FROM health_records` + where +
		fmt.Sprintf(` ORDER BY recorded_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	items, err := r.query(ctx, query, args...)
	return items, total, err
}

func (r *healthRepoPG) AllByUser(ctx context.Context, userID uuid.UUID) ([]*HealthRecord, error) {
	return r.query(ctx, `SELECT `+recordCols+` FROM health_records
		WHERE user_id = $1 AND NOT is_deleted ORDER BY recorded_at DESC`, userID)
}

func (r *healthRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*HealthRecord, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*HealthRecord
	for rows.Next() {
		h, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, rows.Err()
}

func (r *healthRepoPG) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM health_records WHERE user_id = $1`, userID)
	return err
}
