package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-api/internal/models"
)

// SchoolRepository handles persistence of schools (tenants).
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs the repository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

const schoolColumns = `id, name, motto, logo_url, enrollment_open, student_applications_enabled, parent_applications_enabled, staff_applications_enabled, created_at, updated_at`

// FindByID returns a school by its ID.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	query := fmt.Sprintf(`SELECT %s FROM schools WHERE id = $1`, schoolColumns)
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		return nil, err
	}
	return &school, nil
}

// ListOpenForApplications returns schools currently accepting any
// self-service application type. This is the only listing not scoped
// to an actor's tenant: applicants are not yet tenant-bound.
func (r *SchoolRepository) ListOpenForApplications(ctx context.Context) ([]models.School, error) {
	query := fmt.Sprintf(`SELECT %s FROM schools
WHERE enrollment_open = TRUE
  AND (student_applications_enabled = TRUE OR parent_applications_enabled = TRUE OR staff_applications_enabled = TRUE)
ORDER BY name ASC`, schoolColumns)
	var schools []models.School
	if err := r.db.SelectContext(ctx, &schools, query); err != nil {
		return nil, fmt.Errorf("list open schools: %w", err)
	}
	return schools, nil
}

// Create persists a new school.
func (r *SchoolRepository) Create(ctx context.Context, school *models.School) error {
	now := time.Now().UTC()
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	if school.CreatedAt.IsZero() {
		school.CreatedAt = now
	}
	school.UpdatedAt = now
	const query = `INSERT INTO schools (id, name, motto, logo_url, enrollment_open, student_applications_enabled, parent_applications_enabled, staff_applications_enabled, created_at, updated_at)
VALUES (:id, :name, :motto, :logo_url, :enrollment_open, :student_applications_enabled, :parent_applications_enabled, :staff_applications_enabled, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, school); err != nil {
		return fmt.Errorf("create school: %w", err)
	}
	return nil
}

// SchoolSettings carries the tenant's self-service flags.
type SchoolSettings struct {
	EnrollmentOpen             bool `db:"enrollment_open"`
	StudentApplicationsEnabled bool `db:"student_applications_enabled"`
	ParentApplicationsEnabled  bool `db:"parent_applications_enabled"`
	StaffApplicationsEnabled   bool `db:"staff_applications_enabled"`
}

// UpdateSettings replaces the application flags of a school.
func (r *SchoolRepository) UpdateSettings(ctx context.Context, id string, settings SchoolSettings) error {
	const query = `UPDATE schools
SET enrollment_open = $2, student_applications_enabled = $3, parent_applications_enabled = $4, staff_applications_enabled = $5, updated_at = $6
WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, settings.EnrollmentOpen, settings.StudentApplicationsEnabled, settings.ParentApplicationsEnabled, settings.StaffApplicationsEnabled, time.Now().UTC()); err != nil {
		return fmt.Errorf("update school settings: %w", err)
	}
	return nil
}
