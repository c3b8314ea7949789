package device

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seniorcare/seniorcare/internal/platform/db"
)

type deviceRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &deviceRepoPG{pool: pool}
}

const deviceCols = `id, user_id, token, platform, created_at, last_seen_at`

func (r *deviceRepoPG) scan(row pgx.Row) (*DeviceToken, error) {
	var d DeviceToken
	err := row.Scan(&d.ID, &d.UserID, &d.Token, &d.Platform, &d.CreatedAt, &d.LastSeenAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return &d, err
}

func (r *deviceRepoPG) Upsert(ctx context.Context, d *DeviceToken) error {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO device_tokens (id, user_id, token, platform)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token) DO UPDATE
			SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform, last_seen_at = NOW()
		RETURNING `+deviceCols,
		uuid.New(), d.UserID, d.Token, d.Platform)
	saved, err := r.scan(row)
	if err != nil {
		return err
	}
	*d = *saved
	return nil
}

func (r *deviceRepoPG) DeleteByToken(ctx context.Context, token string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM device_tokens WHERE token = $1`, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *deviceRepoPG) ListByUser(ctx context.Context, userID uuid.UUID) ([]*DeviceToken, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+deviceCols+` FROM device_tokens WHERE user_id = $1 ORDER BY last_seen_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DeviceToken
	for rows.Next() {
		d, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *deviceRepoPG) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM device_tokens WHERE user_id = $1`, userID)
	return err
}

func (r *deviceRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM device_tokens`).Scan(&n)
	return n, err
}
