package contact

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seniorcare/seniorcare/internal/platform/db"
)

type contactRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &contactRepoPG{pool: pool}
}

const contactCols = `id, user_id, name, relationship, phone_number, email, is_primary, priority,
	notify_by_sms, is_active, created_at, updated_at`

func (r *contactRepoPG) scan(row pgx.Row) (*EmergencyContact, error) {
	var c EmergencyContact
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Relationship, &c.PhoneNumber, &c.Email,
		&c.IsPrimary, &c.Priority, &c.NotifyBySMS, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return &c, err
}

func (r *contactRepoPG) Create(ctx context.Context, c *EmergencyContact) error {
	c.ID = uuid.New()
	c.IsActive = true
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO emergency_contacts (id, user_id, name, relationship, phone_number, email,
			is_primary, priority, notify_by_sms, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		c.ID, c.UserID, c.Name, c.Relationship, c.PhoneNumber, c.Email,
		c.IsPrimary, c.Priority, c.NotifyBySMS, c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *contactRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*EmergencyContact, error) {
	return r.scan(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+contactCols+` FROM emergency_contacts WHERE id = $1 AND is_active`, id))
}

func (r *contactRepoPG) Update(ctx context.Context, c *EmergencyContact) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE emergency_contacts SET name=$2, relationship=$3, phone_number=$4, email=$5,
			priority=$6, notify_by_sms=$7, updated_at=NOW()
		WHERE id = $1 AND is_active
		RETURNING updated_at`,
		c.ID, c.Name, c.Relationship, c.PhoneNumber, c.Email, c.Priority, c.NotifyBySMS,
	).Scan(&c.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	return err
}

func (r *contactRepoPG) SetPrimary(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE emergency_contacts SET is_primary = (id = $2), updated_at = NOW()
		WHERE user_id = $1 AND is_active`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *contactRepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE emergency_contacts SET is_active = FALSE, is_primary = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_active`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *contactRepoPG) ListByUser(ctx context.Context, userID uuid.UUID) ([]*EmergencyContact, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+contactCols+` FROM emergency_contacts
		WHERE user_id = $1 AND is_active
		ORDER BY is_primary DESC, priority ASC, created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*EmergencyContact
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *contactRepoPG) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM emergency_contacts WHERE user_id = $1`, userID)
	return err
}
