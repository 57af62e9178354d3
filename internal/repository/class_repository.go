package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-api/internal/models"
)

// ClassRepository handles classes and their sections.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = `id, school_id, name, grade_level, created_at`

// Create persists a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.SchoolClass) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if class.CreatedAt.IsZero() {
		class.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO classes (id, school_id, name, grade_level, created_at)
VALUES (:id, :school_id, :name, :grade_level, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// FindByID returns a class scoped to a school.
func (r *ClassRepository) FindByID(ctx context.Context, id, schoolID string) (*models.SchoolClass, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE id = $1 AND school_id = $2`, classColumns)
	var class models.SchoolClass
	if err := r.db.GetContext(ctx, &class, query, id, schoolID); err != nil {
		return nil, err
	}
	return &class, nil
}

// List returns the classes of a school ordered by grade level.
func (r *ClassRepository) List(ctx context.Context, schoolID string) ([]models.SchoolClass, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE school_id = $1 ORDER BY grade_level ASC, name ASC`, classColumns)
	var classes []models.SchoolClass
	if err := r.db.SelectContext(ctx, &classes, query, schoolID); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindByGradeLevel returns the class at a given grade level.
func (r *ClassRepository) FindByGradeLevel(ctx context.Context, schoolID string, gradeLevel int) (*models.SchoolClass, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE school_id = $1 AND grade_level = $2 ORDER BY created_at ASC LIMIT 1`, classColumns)
	var class models.SchoolClass
	if err := r.db.GetContext(ctx, &class, query, schoolID, gradeLevel); err != nil {
		return nil, err
	}
	return &class, nil
}

// FindByName returns a class by its display name.
func (r *ClassRepository) FindByName(ctx context.Context, schoolID, name string) (*models.SchoolClass, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE school_id = $1 AND name = $2`, classColumns)
	var class models.SchoolClass
	if err := r.db.GetContext(ctx, &class, query, schoolID, name); err != nil {
		return nil, err
	}
	return &class, nil
}

const sectionColumns = `id, school_id, class_id, name, created_at`

// CreateSection persists a new section under a class.
func (r *ClassRepository) CreateSection(ctx context.Context, section *models.ClassSection) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	if section.CreatedAt.IsZero() {
		section.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO class_sections (id, school_id, class_id, name, created_at)
VALUES (:id, :school_id, :class_id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// FindSectionByID returns a section scoped to a school.
func (r *ClassRepository) FindSectionByID(ctx context.Context, id, schoolID string) (*models.ClassSection, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_sections WHERE id = $1 AND school_id = $2`, sectionColumns)
	var section models.ClassSection
	if err := r.db.GetContext(ctx, &section, query, id, schoolID); err != nil {
		return nil, err
	}
	return &section, nil
}

// ListSections returns the sections under a class.
func (r *ClassRepository) ListSections(ctx context.Context, classID string) ([]models.ClassSection, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_sections WHERE class_id = $1 ORDER BY name ASC`, sectionColumns)
	var sections []models.ClassSection
	if err := r.db.SelectContext(ctx, &sections, query, classID); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// FindSectionByName returns a class's section by display name.
func (r *ClassRepository) FindSectionByName(ctx context.Context, classID, name string) (*models.ClassSection, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_sections WHERE class_id = $1 AND name = $2`, sectionColumns)
	var section models.ClassSection
	if err := r.db.GetContext(ctx, &section, query, classID, name); err != nil {
		return nil, err
	}
	return &section, nil
}
