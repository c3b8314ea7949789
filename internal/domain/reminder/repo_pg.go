package reminder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seniorcare/seniorcare/internal/platform/db"
)

type reminderRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &reminderRepoPG{pool: pool}
}

const reminderCols = `id, user_id, title, message, reminder_type, source_id, start_at, recurrence,
	custom_interval_days, end_at, next_trigger_at, last_triggered_at, is_active, created_at, updated_at`

func (r *reminderRepoPG) scan(row pgx.Row) (*Reminder, error) {
	var m Reminder
	err := row.Scan(&m.ID, &m.UserID, &m.Title, &m.Message, &m.ReminderType, &m.SourceID,
		&m.StartAt, &m.Recurrence, &m.CustomIntervalDays, &m.EndAt, &m.NextTriggerAt,
		&m.LastTriggeredAt, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return &m, err
}

func (r *reminderRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Reminder, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Reminder
	for rows.Next() {
		m, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *reminderRepoPG) exec(ctx context.Context, sql string, args ...interface{}) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *reminderRepoPG) Create(ctx context.Context, m *Reminder) error {
	m.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO reminders (id, user_id, title, message, reminder_type, source_id, start_at,
			recurrence, custom_interval_days, end_at, next_trigger_at, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		m.ID, m.UserID, m.Title, m.Message, m.ReminderType, m.SourceID, m.StartAt,
		m.Recurrence, m.CustomIntervalDays, m.EndAt, m.NextTriggerAt, m.IsActive,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
}

func (r *reminderRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Reminder, error) {
	return r.scan(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+reminderCols+` FROM reminders WHERE id = $1`, id))
}

func (r *reminderRepoPG) Update(ctx context.Context, m *Reminder) error {
	return r.exec(ctx, `
		UPDATE reminders SET title=$2, message=$3, reminder_type=$4, start_at=$5, recurrence=$6,
			custom_interval_days=$7, end_at=$8, next_trigger_at=$9, is_active=$10, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.Title, m.Message, m.ReminderType, m.StartAt, m.Recurrence,
		m.CustomIntervalDays, m.EndAt, m.NextTriggerAt, m.IsActive)
}

func (r *reminderRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, `DELETE FROM reminders WHERE id = $1`, id)
}

func (r *reminderRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool, limit, offset int) ([]*Reminder, int, error) {
	where := ` WHERE user_id = $1`
	if activeOnly {
		where += ` AND is_active`
	}
	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM reminders`+where, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	items, err := r.query(ctx, `SELECT `+reminderCols+` FROM reminders`+where+
		` ORDER BY next_trigger_at ASC NULLS LAST, created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	return items, total, err
}

func (r *reminderRepoPG) ListDue(ctx context.Context, now time.Time, limit int) ([]*Reminder, error) {
	return r.query(ctx, `SELECT `+reminderCols+` FROM reminders
		WHERE is_active AND next_trigger_at IS NOT NULL AND next_trigger_at <= $1
		ORDER BY next_trigger_at ASC LIMIT $2`, now, limit)
}

func (r *reminderRepoPG) ListActive(ctx context.Context) ([]*Reminder, error) {
	return r.query(ctx, `SELECT `+reminderCols+` FROM reminders WHERE is_active`)
}

func (r *reminderRepoPG) MarkTriggered(ctx context.Context, id uuid.UUID, at time.Time, next *time.Time, active bool) error {
	return r.exec(ctx, `UPDATE reminders SET last_triggered_at=$2, next_trigger_at=$3, is_active=$4, updated_at=NOW()
		WHERE id = $1`, id, at, next, active)
}

func (r *reminderRepoPG) SetNextTrigger(ctx context.Context, id uuid.UUID, next *time.Time, active bool) error {
	return r.exec(ctx, `UPDATE reminders SET next_trigger_at=$2, is_active=$3, updated_at=NOW() WHERE id = $1`,
		id, next, active)
}

func (r *reminderRepoPG) DeactivateBySource(ctx context.Context, sourceID uuid.UUID) (int, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE reminders SET is_active=FALSE, next_trigger_at=NULL,
		updated_at=NOW() WHERE source_id = $1 AND is_active`, sourceID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *reminderRepoPG) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM reminders WHERE user_id = $1`, userID)
	return err
}

func (r *reminderRepoPG) CountActive(ctx context.Context) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM reminders WHERE is_active`).Scan(&n)
	return n, err
}
