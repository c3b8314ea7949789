package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seniorcare/seniorcare/internal/platform/db"
)

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &appointmentRepoPG{pool: pool}
}

const apptCols = `id, user_id, title, doctor_name, specialty, facility, address, scheduled_at,
	duration_minutes, notes, status, reminder_minutes_before, is_deleted, created_at, updated_at`

func (r *appointmentRepoPG) scan(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.UserID, &a.Title, &a.DoctorName, &a.Specialty, &a.Facility,
		&a.Address, &a.ScheduledAt, &a.DurationMinutes, &a.Notes, &a.Status,
		&a.ReminderMinutesBefore, &a.IsDeleted, &a.CreatedAt, &a.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return &a, err
}

func (r *appointmentRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Appointment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) exec(ctx context.Context, sql string, args ...interface{}) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO appointments (id, user_id, title, doctor_name, specialty, facility, address,
			scheduled_at, duration_minutes, notes, status, reminder_minutes_before)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		a.ID, a.UserID, a.Title, a.DoctorName, a.Specialty, a.Facility, a.Address,
		a.ScheduledAt, a.DurationMinutes, a.Notes, a.Status, a.ReminderMinutesBefore,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scan(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1 AND NOT is_deleted`, id))
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	return r.exec(ctx, `
		UPDATE appointments SET title=$2, doctor_name=$3, specialty=$4, facility=$5, address=$6,
			scheduled_at=$7, duration_minutes=$8, notes=$9, status=$10, reminder_minutes_before=$11,
			updated_at=NOW()
		WHERE id = $1 AND NOT is_deleted`,
		a.ID, a.Title, a.DoctorName, a.Specialty, a.Facility, a.Address, a.ScheduledAt,
		a.DurationMinutes, a.Notes, a.Status, a.ReminderMinutesBefore)
}

func (r *appointmentRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.exec(ctx, `UPDATE appointments SET status=$2, updated_at=NOW() WHERE id = $1 AND NOT is_deleted`, id, status)
}

func (r *appointmentRepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, `UPDATE appointments SET is_deleted=TRUE, updated_at=NOW() WHERE id = $1 AND NOT is_deleted`, id)
}

func (r *appointmentRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	where := ` WHERE user_id = $1 AND NOT is_deleted`
	args := []interface{}{userID}
	idx := 2
	if f.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM appointments`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + apptCols + ` FROM appointments` + where +
		fmt.Sprintf(` ORDER BY scheduled_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)
	items, err := r.query(ctx, query, args...)
	return items, total, err
}

func (r *appointmentRepoPG) ListUpcoming(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*Appointment, error) {
	return r.query(ctx, `SELECT `+apptCols+` FROM appointments
		WHERE user_id = $1 AND NOT is_deleted AND status = 'scheduled' AND scheduled_at > $2
		ORDER BY scheduled_at ASC LIMIT $3`, userID, now, limit)
}

func (r *appointmentRepoPG) MarkMissed(ctx context.Context, now time.Time) ([]*Appointment, error) {
	return r.query(ctx, `UPDATE appointments SET status = 'missed', updated_at = NOW()
		WHERE status = 'scheduled' AND NOT is_deleted
			AND scheduled_at + make_interval(mins => duration_minutes) < $1
		RETURNING `+apptCols, now)
}

func (r *appointmentRepoPG) CountUpcoming(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM appointments
		WHERE NOT is_deleted AND status = 'scheduled' AND scheduled_at > $1`, now).Scan(&n)
	return n, err
}

func (r *appointmentRepoPG) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM appointments WHERE user_id = $1`, userID)
	return err
}
