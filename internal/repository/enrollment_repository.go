package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-api/internal/models"
)

// EnrollmentRepository handles persistence of student enrollments,
// including the transactional promotion and auto-enroll writes.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, school_id, student_id, academic_year_id, class_id, section_id, status, joined_at, left_at`

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.StudentEnrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.JoinedAt.IsZero() {
		enrollment.JoinedAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	const query = `INSERT INTO student_enrollments (id, school_id, student_id, academic_year_id, class_id, section_id, status, joined_at, left_at)
VALUES (:id, :school_id, :student_id, :academic_year_id, :class_id, :section_id, :status, :joined_at, :left_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// FindByID returns an enrollment scoped to a school.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id, schoolID string) (*models.StudentEnrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_enrollments WHERE id = $1 AND school_id = $2`, enrollmentColumns)
	var enrollment models.StudentEnrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id, schoolID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// List returns enrollment details filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM student_enrollments e
JOIN users u ON u.id = e.student_id
JOIN classes c ON c.id = e.class_id
JOIN academic_years y ON y.id = e.academic_year_id
LEFT JOIN class_sections cs ON cs.id = e.section_id`
	conditions := []string{"e.school_id = $1"}
	args := []interface{}{filter.SchoolID}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("e.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.AcademicYearID != "" {
		conditions = append(conditions, fmt.Sprintf("e.academic_year_id = $%d", len(args)+1))
		args = append(args, filter.AcademicYearID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	clause := " WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.school_id, e.student_id, e.academic_year_id, e.class_id, e.section_id, e.status, e.joined_at, e.left_at,
u.full_name AS student_name, c.name AS class_name, c.grade_level, cs.name AS section_name, y.name AS year_name
%s%s ORDER BY u.full_name ASC LIMIT %d OFFSET %d`, base, clause, size, offset)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// ListActiveByYear returns active enrollment details for a school year,
// including each student's current grade level for promotion.
func (r *EnrollmentRepository) ListActiveByYear(ctx context.Context, schoolID, academicYearID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.school_id, e.student_id, e.academic_year_id, e.class_id, e.section_id, e.status, e.joined_at, e.left_at,
u.full_name AS student_name, c.name AS class_name, c.grade_level, cs.name AS section_name, y.name AS year_name
FROM student_enrollments e
JOIN users u ON u.id = e.student_id
JOIN classes c ON c.id = e.class_id
JOIN academic_years y ON y.id = e.academic_year_id
LEFT JOIN class_sections cs ON cs.id = e.section_id
WHERE e.school_id = $1 AND e.academic_year_id = $2 AND e.status = $3
ORDER BY c.grade_level ASC, u.full_name ASC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, schoolID, academicYearID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list active enrollments: %w", err)
	}
	return enrollments, nil
}

// ExistsForYear reports whether the student already has an enrollment
// in the given year, regardless of status.
func (r *EnrollmentRepository) ExistsForYear(ctx context.Context, studentID, academicYearID string) (bool, error) {
	const query = `SELECT 1 FROM student_enrollments WHERE student_id = $1 AND academic_year_id = $2 LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, studentID, academicYearID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment for year: %w", err)
	}
	return true, nil
}

// IsActiveInClass reports whether the student holds an ACTIVE
// enrollment in the given class.
func (r *EnrollmentRepository) IsActiveInClass(ctx context.Context, studentID, classID string) (bool, error) {
	const query = `SELECT 1 FROM student_enrollments WHERE student_id = $1 AND class_id = $2 AND status = $3 LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, studentID, classID, models.EnrollmentStatusActive); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check class enrollment: %w", err)
	}
	return true, nil
}

// PromoteParams carries the writes of one student's promotion.
type PromoteParams struct {
	OldEnrollmentID string
	NewEnrollment   models.StudentEnrollment
	GradeLevel      int
	SectionName     *string
}

// Promote moves one student to the target year's class in a single
// transaction: insert the new enrollment, mark the old one promoted
// and refresh the user's denormalized placement.
func (r *EnrollmentRepository) Promote(ctx context.Context, params PromoteParams) (newEnrollmentID string, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin promote: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	enrollment := params.NewEnrollment
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.JoinedAt.IsZero() {
		enrollment.JoinedAt = time.Now().UTC()
	}
	enrollment.Status = models.EnrollmentStatusActive

	const insertQuery = `INSERT INTO student_enrollments (id, school_id, student_id, academic_year_id, class_id, section_id, status, joined_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err = tx.ExecContext(ctx, insertQuery, enrollment.ID, enrollment.SchoolID, enrollment.StudentID, enrollment.AcademicYearID, enrollment.ClassID, enrollment.SectionID, enrollment.Status, enrollment.JoinedAt); err != nil {
		return "", fmt.Errorf("insert promoted enrollment: %w", err)
	}

	now := time.Now().UTC()
	const closeQuery = `UPDATE student_enrollments SET status = $2, left_at = $3 WHERE id = $1 AND status = $4`
	res, err := tx.ExecContext(ctx, closeQuery, params.OldEnrollmentID, models.EnrollmentStatusPromoted, now, models.EnrollmentStatusActive)
	if err != nil {
		return "", fmt.Errorf("close old enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("close old enrollment affected: %w", err)
	}
	if affected == 0 {
		err = fmt.Errorf("enrollment %s is no longer active", params.OldEnrollmentID)
		return "", err
	}

	const placementQuery = `UPDATE users SET grade_level = $2, class_section = $3, updated_at = $4 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, placementQuery, enrollment.StudentID, params.GradeLevel, params.SectionName, now); err != nil {
		return "", fmt.Errorf("update student placement: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit promote: %w", err)
	}
	return enrollment.ID, nil
}

// Graduate closes a graduating student's enrollment and clears the
// user's placement in one transaction.
func (r *EnrollmentRepository) Graduate(ctx context.Context, enrollmentID, studentID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin graduate: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const closeQuery = `UPDATE student_enrollments SET status = $2, left_at = $3 WHERE id = $1 AND status = $4`
	res, err := tx.ExecContext(ctx, closeQuery, enrollmentID, models.EnrollmentStatusGraduated, now, models.EnrollmentStatusActive)
	if err != nil {
		return fmt.Errorf("graduate enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("graduate enrollment affected: %w", err)
	}
	if affected == 0 {
		err = fmt.Errorf("enrollment %s is no longer active", enrollmentID)
		return err
	}

	const placementQuery = `UPDATE users SET grade_level = NULL, class_section = NULL, updated_at = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, placementQuery, studentID, now); err != nil {
		return fmt.Errorf("clear student placement: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit graduate: %w", err)
	}
	return nil
}

// EnrollWithPlacement creates an enrollment and refreshes the user's
// denormalized placement in one transaction. Used by application
// approval and auto-enroll.
func (r *EnrollmentRepository) EnrollWithPlacement(ctx context.Context, enrollment *models.StudentEnrollment, gradeLevel int, sectionName *string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enroll: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.JoinedAt.IsZero() {
		enrollment.JoinedAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}

	const insertQuery = `INSERT INTO student_enrollments (id, school_id, student_id, academic_year_id, class_id, section_id, status, joined_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err = tx.ExecContext(ctx, insertQuery, enrollment.ID, enrollment.SchoolID, enrollment.StudentID, enrollment.AcademicYearID, enrollment.ClassID, enrollment.SectionID, enrollment.Status, enrollment.JoinedAt); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}

	const placementQuery = `UPDATE users SET school_id = $2, grade_level = $3, class_section = $4, updated_at = $5 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, placementQuery, enrollment.StudentID, enrollment.SchoolID, gradeLevel, sectionName, time.Now().UTC()); err != nil {
		return fmt.Errorf("update placement: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit enroll: %w", err)
	}
	return nil
}
