package benefits

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seniorcare/seniorcare/internal/platform/db"
)

type benefitsRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &benefitsRepoPG{pool: pool}
}

const benefitCols = `id, title, description, category, agency, eligibility, requirements, amount,
	minimum_age, application_url, contact_info, is_active, created_at, updated_at`

const claimCols = `id, user_id, benefit_id, status, reference_number, notes, claimed_at,
	reviewed_at, updated_at`

func (r *benefitsRepoPG) scanBenefit(row pgx.Row) (*Benefit, error) {
	var b Benefit
	err := row.Scan(&b.ID, &b.Title, &b.Description, &b.Category, &b.Agency, &b.Eligibility,
		&b.Requirements, &b.Amount, &b.MinimumAge, &b.ApplicationURL, &b.ContactInfo,
		&b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return &b, err
}

func (r *benefitsRepoPG) scanClaim(row pgx.Row) (*ClaimedBenefit, error) {
	var c ClaimedBenefit
	err := row.Scan(&c.ID, &c.UserID, &c.BenefitID, &c.Status, &c.ReferenceNumber, &c.Notes,
		&c.ClaimedAt, &c.ReviewedAt, &c.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrClaimNotFound
	}
	return &c, err
}

func (r *benefitsRepoPG) CreateBenefit(ctx context.Context, b *Benefit) error {
	b.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO benefits (id, title, description, category, agency, eligibility, requirements,
			amount, minimum_age, application_url, contact_info, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		b.ID, b.Title, b.Description, b.Category, b.Agency, b.Eligibility, b.Requirements,
		b.Amount, b.MinimumAge, b.ApplicationURL, b.ContactInfo, b.IsActive,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
}

func (r *benefitsRepoPG) GetBenefit(ctx context.Context, id uuid.UUID) (*Benefit, error) {
	return r.scanBenefit(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+benefitCols+` FROM benefits WHERE id = $1`, id))
}

func (r *benefitsRepoPG) GetBenefitByTitle(ctx context.Context, title string) (*Benefit, error) {
	return r.scanBenefit(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+benefitCols+` FROM benefits WHERE LOWER(title) = LOWER($1) LIMIT 1`, title))
}

func (r *benefitsRepoPG) UpdateBenefit(ctx context.Context, b *Benefit) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE benefits SET title=$2, description=$3, category=$4, agency=$5, eligibility=$6,
			requirements=$7, amount=$8, minimum_age=$9, application_url=$10, contact_info=$11,
			updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		b.ID, b.Title, b.Description, b.Category, b.Agency, b.Eligibility, b.Requirements,
		b.Amount, b.MinimumAge, b.ApplicationURL, b.ContactInfo,
	).Scan(&b.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	return err
}

func (r *benefitsRepoPG) SetBenefitActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE benefits SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *benefitsRepoPG) ListBenefits(ctx context.Context, category string, activeOnly bool) ([]*Benefit, error) {
	query := `SELECT ` + benefitCols + ` FROM benefits WHERE TRUE`
	var args []interface{}
	if category != "" {
		args = append(args, category)
		query += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY title`

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Benefit
	for rows.Next() {
		b, err := r.scanBenefit(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

func (r *benefitsRepoPG) CountActiveBenefits(ctx context.Context) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM benefits WHERE is_active`).Scan(&n)
	return n, err
}

// openClaimIndex enforces one pending or approved claim per user and benefit.
const openClaimIndex = "uq_claimed_benefits_open"

func (r *benefitsRepoPG) CreateClaim(ctx context.Context, c *ClaimedBenefit) error {
	c.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO claimed_benefits (id, user_id, benefit_id, status, reference_number, notes, claimed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING updated_at`,
		c.ID, c.UserID, c.BenefitID, c.Status, c.ReferenceNumber, c.Notes, c.ClaimedAt,
	).Scan(&c.UpdatedAt)
	if name, ok := db.UniqueConstraint(err); ok && name == openClaimIndex {
		return ErrAlreadyClaimed
	}
	return err
}

func (r *benefitsRepoPG) GetClaim(ctx context.Context, id uuid.UUID) (*ClaimedBenefit, error) {
	return r.scanClaim(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+claimCols+` FROM claimed_benefits WHERE id = $1`, id))
}

func (r *benefitsRepoPG) UpdateClaimStatus(ctx context.Context, c *ClaimedBenefit) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE claimed_benefits SET status=$2, notes=$3, reviewed_at=$4, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.Status, c.Notes, c.ReviewedAt,
	).Scan(&c.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrClaimNotFound
	}
	return err
}

func (r *benefitsRepoPG) FindOpenClaim(ctx context.Context, userID, benefitID uuid.UUID) (*ClaimedBenefit, error) {
	return r.scanClaim(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+claimCols+` FROM claimed_benefits
		WHERE user_id = $1 AND benefit_id = $2 AND status IN ('pending', 'approved')
		ORDER BY claimed_at DESC LIMIT 1`, userID, benefitID))
}

func (r *benefitsRepoPG) queryClaims(ctx context.Context, sql string, args ...interface{}) ([]*ClaimedBenefit, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ClaimedBenefit
	for rows.Next() {
		c, err := r.scanClaim(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *benefitsRepoPG) ListClaimsByUser(ctx context.Context, userID uuid.UUID) ([]*ClaimedBenefit, error) {
	return r.queryClaims(ctx, `SELECT `+claimCols+` FROM claimed_benefits
		WHERE user_id = $1 ORDER BY claimed_at DESC`, userID)
}

func (r *benefitsRepoPG) ListClaims(ctx context.Context, status string, limit, offset int) ([]*ClaimedBenefit, int, error) {
	where := ` WHERE TRUE`
	var args []interface{}
	if status != "" {
		args = append(args, status)
		where += ` AND status = $1`
	}
	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM claimed_benefits`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + claimCols + ` FROM claimed_benefits` + where +
		fmt.Sprintf(` ORDER BY claimed_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	items, err := r.queryClaims(ctx, query, args...)
	return items, total, err
}

func (r *benefitsRepoPG) CountClaims(ctx context.Context, status string) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM claimed_benefits WHERE $1 = '' OR status = $1`, status).Scan(&n)
	return n, err
}

func (r *benefitsRepoPG) DeleteClaimsByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM claimed_benefits WHERE user_id = $1`, userID)
	return err
}
