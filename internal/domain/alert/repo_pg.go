package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seniorcare/seniorcare/internal/platform/db"
)

type alertRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &alertRepoPG{pool: pool}
}

const alertCols = `id, user_id, message, latitude, longitude, location_text, status,
	recipient_count, sent_count, created_at`

func (r *alertRepoPG) scan(row pgx.Row) (*EmergencyAlert, error) {
	var a EmergencyAlert
	err := row.Scan(&a.ID, &a.UserID, &a.Message, &a.Latitude, &a.Longitude, &a.LocationText,
		&a.Status, &a.RecipientCount, &a.SentCount, &a.CreatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return &a, err
}

func (r *alertRepoPG) Create(ctx context.Context, a *EmergencyAlert) error {
	a.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO emergency_alerts (id, user_id, message, latitude, longitude, location_text,
			status, recipient_count, sent_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at`,
		a.ID, a.UserID, a.Message, a.Latitude, a.Longitude, a.LocationText,
		a.Status, a.RecipientCount, a.SentCount,
	).Scan(&a.CreatedAt)
}

func (r *alertRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*EmergencyAlert, error) {
	return r.scan(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+alertCols+` FROM emergency_alerts WHERE id = $1`, id))
}

func (r *alertRepoPG) list(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*EmergencyAlert, int, error) {
	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM emergency_alerts`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + alertCols + ` FROM emergency_alerts` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := conn.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*EmergencyAlert
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *alertRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*EmergencyAlert, int, error) {
	return r.list(ctx, ` WHERE user_id = $1`, []interface{}{userID}, limit, offset)
}

func (r *alertRepoPG) ListRecent(ctx context.Context, limit, offset int) ([]*EmergencyAlert, int, error) {
	return r.list(ctx, "", nil, limit, offset)
}

func (r *alertRepoPG) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM emergency_alerts WHERE created_at >= $1`, since).Scan(&n)
	return n, err
}

func (r *alertRepoPG) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM emergency_alerts WHERE user_id = $1`, userID)
	return err
}
