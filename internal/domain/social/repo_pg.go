package social

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seniorcare/seniorcare/internal/platform/db"
)

type socialRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &socialRepoPG{pool: pool}
}

const featureCols = `id, title, description, feature_type, location, starts_at, ends_at, organizer_id,
	max_participants, participant_count, is_active, created_at, updated_at`

const serviceCols = `id, name, category, description, contact_number, email, address, city,
	operating_hours, website, is_active, created_at, updated_at`

func (r *socialRepoPG) scanFeature(row pgx.Row) (*SocialFeature, error) {
	var f SocialFeature
	err := row.Scan(&f.ID, &f.Title, &f.Description, &f.FeatureType, &f.Location, &f.StartsAt,
		&f.EndsAt, &f.OrganizerID, &f.MaxParticipants, &f.ParticipantCount, &f.IsActive,
		&f.CreatedAt, &f.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return &f, err
}

func (r *socialRepoPG) scanService(row pgx.Row) (*SocialService, error) {
	var s SocialService
	err := row.Scan(&s.ID, &s.Name, &s.Category, &s.Description, &s.ContactNumber, &s.Email,
		&s.Address, &s.City, &s.OperatingHours, &s.Website, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrServiceNotFound
	}
	return &s, err
}

func (r *socialRepoPG) CreateFeature(ctx context.Context, f *SocialFeature) error {
	f.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO social_features (id, title, description, feature_type, location, starts_at,
			ends_at, organizer_id, max_participants, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		f.ID, f.Title, f.Description, f.FeatureType, f.Location, f.StartsAt, f.EndsAt,
		f.OrganizerID, f.MaxParticipants, f.IsActive,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
}

func (r *socialRepoPG) GetFeature(ctx context.Context, id uuid.UUID) (*SocialFeature, error) {
	return r.scanFeature(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+featureCols+` FROM social_features WHERE id = $1`, id))
}

func (r *socialRepoPG) UpdateFeature(ctx context.Context, f *SocialFeature) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE social_features SET title=$2, description=$3, feature_type=$4, location=$5,
			starts_at=$6, ends_at=$7, max_participants=$8, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		f.ID, f.Title, f.Description, f.FeatureType, f.Location, f.StartsAt, f.EndsAt, f.MaxParticipants,
	).Scan(&f.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	return err
}

func (r *socialRepoPG) SetFeatureActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE social_features SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *socialRepoPG) queryFeatures(ctx context.Context, sql string, args ...interface{}) ([]*SocialFeature, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*SocialFeature
	for rows.Next() {
		f, err := r.scanFeature(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

func (r *socialRepoPG) ListFeatures(ctx context.Context, featureType string, limit, offset int) ([]*SocialFeature, int, error) {
	where := ` WHERE is_active`
	var args []interface{}
	if featureType != "" {
		args = append(args, featureType)
		where += ` AND feature_type = $1`
	}
	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM social_features`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + featureCols + ` FROM social_features` + where +
		fmt.Sprintf(` ORDER BY starts_at NULLS LAST, title LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	items, err := r.queryFeatures(ctx, query, args...)
	return items, total, err
}

func (r *socialRepoPG) ListUpcomingFeatures(ctx context.Context, now time.Time, limit int) ([]*SocialFeature, error) {
	return r.queryFeatures(ctx, `SELECT `+featureCols+` FROM social_features
		WHERE is_active AND starts_at > $1 ORDER BY starts_at LIMIT $2`, now, limit)
}

func (r *socialRepoPG) AddParticipant(ctx context.Context, featureID, userID uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		conn := db.Conn(ctx, r.pool)
		_, err := conn.Exec(ctx,
			`INSERT INTO social_feature_participants (feature_id, user_id) VALUES ($1, $2)`, featureID, userID)
		if db.IsUniqueViolation(err) {
			return ErrAlreadyJoined
		}
		if err != nil {
			return err
		}
		tag, err := conn.Exec(ctx, `
			UPDATE social_features SET participant_count = participant_count + 1, updated_at = NOW()
			WHERE id = $1 AND (max_participants = 0 OR participant_count < max_participants)`, featureID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrFull
		}
		return nil
	})
}

func (r *socialRepoPG) RemoveParticipant(ctx context.Context, featureID, userID uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		conn := db.Conn(ctx, r.pool)
		tag, err := conn.Exec(ctx,
			`DELETE FROM social_feature_participants WHERE feature_id = $1 AND user_id = $2`, featureID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotJoined
		}
		_, err = conn.Exec(ctx, `
			UPDATE social_features SET participant_count = GREATEST(participant_count - 1, 0), updated_at = NOW()
			WHERE id = $1`, featureID)
		return err
	})
}

func (r *socialRepoPG) ListParticipants(ctx context.Context, featureID uuid.UUID) ([]*Participant, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT feature_id, user_id, joined_at
		FROM social_feature_participants WHERE feature_id = $1 ORDER BY joined_at`, featureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.FeatureID, &p.UserID, &p.JoinedAt); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, rows.Err()
}

func (r *socialRepoPG) DeleteParticipantsByUser(ctx context.Context, userID uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		conn := db.Conn(ctx, r.pool)
		if _, err := conn.Exec(ctx, `
			UPDATE social_features SET participant_count = GREATEST(participant_count - 1, 0)
			WHERE id IN (SELECT feature_id FROM social_feature_participants WHERE user_id = $1)`, userID); err != nil {
			return err
		}
		_, err := conn.Exec(ctx, `DELETE FROM social_feature_participants WHERE user_id = $1`, userID)
		return err
	})
}

func (r *socialRepoPG) CreateService(ctx context.Context, s *SocialService) error {
	s.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO social_services (id, name, category, description, contact_number, email, address,
			city, operating_hours, website, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.Category, s.Description, s.ContactNumber, s.Email, s.Address, s.City,
		s.OperatingHours, s.Website, s.IsActive,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *socialRepoPG) GetService(ctx context.Context, id uuid.UUID) (*SocialService, error) {
	return r.scanService(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+serviceCols+` FROM social_services WHERE id = $1`, id))
}

func (r *socialRepoPG) UpdateService(ctx context.Context, s *SocialService) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE social_services SET name=$2, category=$3, description=$4, contact_number=$5, email=$6,
			address=$7, city=$8, operating_hours=$9, website=$10, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		s.ID, s.Name, s.Category, s.Description, s.ContactNumber, s.Email, s.Address, s.City,
		s.OperatingHours, s.Website,
	).Scan(&s.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrServiceNotFound
	}
	return err
}

func (r *socialRepoPG) SetServiceActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE social_services SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}

func (r *socialRepoPG) SearchServices(ctx context.Context, f ServiceFilter, limit, offset int) ([]*SocialService, int, error) {
	where := ` WHERE is_active`
	var args []interface{}
	idx := 1

	if f.Category != "" {
		where += fmt.Sprintf(` AND category = $%d`, idx)
		args = append(args, f.Category)
		idx++
	}
	if f.City != "" {
		where += fmt.Sprintf(` AND city ILIKE $%d`, idx)
		args = append(args, f.City)
		idx++
	}
	if f.Query != "" {
		where += fmt.Sprintf(` AND (name ILIKE $%d OR description ILIKE $%d)`, idx, idx)
		args = append(args, "%"+f.Query+"%")
		idx++
	}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM social_services`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + serviceCols + ` FROM social_services` + where +
		fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*SocialService
	for rows.Next() {
		s, err := r.scanService(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}
