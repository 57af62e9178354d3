package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-api/internal/models"
)

// AcademicRepository handles academic years and terms.
type AcademicRepository struct {
	db *sqlx.DB
}

// NewAcademicRepository constructs the repository.
func NewAcademicRepository(db *sqlx.DB) *AcademicRepository {
	return &AcademicRepository{db: db}
}

const yearColumns = `id, school_id, name, starts_on, ends_on, is_active, created_at`

// CreateYear persists a new academic year (inactive by default).
func (r *AcademicRepository) CreateYear(ctx context.Context, year *models.AcademicYear) error {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	if year.CreatedAt.IsZero() {
		year.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO academic_years (id, school_id, name, starts_on, ends_on, is_active, created_at)
VALUES (:id, :school_id, :name, :starts_on, :ends_on, :is_active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("create academic year: %w", err)
	}
	return nil
}

// FindYearByID returns a year scoped to a school.
func (r *AcademicRepository) FindYearByID(ctx context.Context, id, schoolID string) (*models.AcademicYear, error) {
	query := fmt.Sprintf(`SELECT %s FROM academic_years WHERE id = $1 AND school_id = $2`, yearColumns)
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, id, schoolID); err != nil {
		return nil, err
	}
	return &year, nil
}

// ListYears returns all years of a school, newest first.
func (r *AcademicRepository) ListYears(ctx context.Context, schoolID string) ([]models.AcademicYear, error) {
	query := fmt.Sprintf(`SELECT %s FROM academic_years WHERE school_id = $1 ORDER BY starts_on DESC`, yearColumns)
	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, query, schoolID); err != nil {
		return nil, fmt.Errorf("list academic years: %w", err)
	}
	return years, nil
}

// FindActiveYear returns the school's single active year.
func (r *AcademicRepository) FindActiveYear(ctx context.Context, schoolID string) (*models.AcademicYear, error) {
	query := fmt.Sprintf(`SELECT %s FROM academic_years WHERE school_id = $1 AND is_active = TRUE`, yearColumns)
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, schoolID); err != nil {
		return nil, err
	}
	return &year, nil
}

// ActivateYear activates one year and deactivates every other year of
// the school in the same transaction, keeping exactly one active year.
func (r *AcademicRepository) ActivateYear(ctx context.Context, id, schoolID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate year: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const deactivateQuery = `UPDATE academic_years SET is_active = FALSE WHERE school_id = $1 AND id <> $2 AND is_active = TRUE`
	if _, err = tx.ExecContext(ctx, deactivateQuery, schoolID, id); err != nil {
		return fmt.Errorf("deactivate other years: %w", err)
	}

	const activateQuery = `UPDATE academic_years SET is_active = TRUE WHERE id = $1 AND school_id = $2`
	res, err := tx.ExecContext(ctx, activateQuery, id, schoolID)
	if err != nil {
		return fmt.Errorf("activate year: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("activate year affected: %w", err)
	}
	if affected == 0 {
		err = fmt.Errorf("academic year %s not found in school %s", id, schoolID)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit activate year: %w", err)
	}
	return nil
}

const termColumns = `id, school_id, academic_year_id, name, starts_on, ends_on, created_at`

// CreateTerm persists a new term.
func (r *AcademicRepository) CreateTerm(ctx context.Context, term *models.Term) error {
	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	if term.CreatedAt.IsZero() {
		term.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO terms (id, school_id, academic_year_id, name, starts_on, ends_on, created_at)
VALUES (:id, :school_id, :academic_year_id, :name, :starts_on, :ends_on, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		return fmt.Errorf("create term: %w", err)
	}
	return nil
}

// FindTermByID returns a term scoped to a school.
func (r *AcademicRepository) FindTermByID(ctx context.Context, id, schoolID string) (*models.Term, error) {
	query := fmt.Sprintf(`SELECT %s FROM terms WHERE id = $1 AND school_id = $2`, termColumns)
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, id, schoolID); err != nil {
		return nil, err
	}
	return &term, nil
}

// ListTermsByYear returns the terms of one academic year.
func (r *AcademicRepository) ListTermsByYear(ctx context.Context, academicYearID string) ([]models.Term, error) {
	query := fmt.Sprintf(`SELECT %s FROM terms WHERE academic_year_id = $1 ORDER BY starts_on ASC`, termColumns)
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query, academicYearID); err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	return terms, nil
}
