package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-api/internal/models"
)

// AssignmentRepository handles assignments and student submissions.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `id, school_id, academic_year_id, term_id, class_id, section_id, subject, title, description, due_at, max_score, status, created_by, created_at, updated_at`

// Create persists a new draft assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	now := time.Now().UTC()
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.Status == "" {
		assignment.Status = models.AssignmentStatusDraft
	}
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	const query = `INSERT INTO assignments (id, school_id, academic_year_id, term_id, class_id, section_id, subject, title, description, due_at, max_score, status, created_by, created_at, updated_at)
VALUES (:id, :school_id, :academic_year_id, :term_id, :class_id, :section_id, :subject, :title, :description, :due_at, :max_score, :status, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// FindByID returns an assignment scoped to a school.
func (r *AssignmentRepository) FindByID(ctx context.Context, id, schoolID string) (*models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE id = $1 AND school_id = $2`, assignmentColumns)
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id, schoolID); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// List returns assignments filtered by the provided criteria.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	conditions := []string{"school_id = $1"}
	args := []interface{}{filter.SchoolID}

	if filter.AcademicYearID != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year_id = $%d", len(args)+1))
		args = append(args, filter.AcademicYearID)
	}
	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.ExcludeDrafts {
		conditions = append(conditions, fmt.Sprintf("status <> $%d", len(args)+1))
		args = append(args, models.AssignmentStatusDraft)
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

	query := fmt.Sprintf(`SELECT %s FROM assignments%s ORDER BY due_at DESC LIMIT %d OFFSET %d`, assignmentColumns, clause, size, offset)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM assignments" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}
	return assignments, total, nil
}

// Transition moves an assignment between lifecycle states with a
// conditional update; returns false when the current state differs.
func (r *AssignmentRepository) Transition(ctx context.Context, id string, from, to models.AssignmentStatus) (bool, error) {
	const query = `UPDATE assignments SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id, to, time.Now().UTC(), from)
	if err != nil {
		return false, fmt.Errorf("transition assignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition assignment affected: %w", err)
	}
	return affected > 0, nil
}

const submissionColumns = `id, assignment_id, student_id, content, submitted_at, score, feedback, reviewed_by, reviewed_at`

// UpsertSubmission records a student's work, overwriting a previous
// submission for the same (assignment, student) pair.
func (r *AssignmentRepository) UpsertSubmission(ctx context.Context, submission *models.AssignmentSubmission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now().UTC()
	}
	// New content invalidates any earlier review.
	const query = `INSERT INTO assignment_submissions (id, assignment_id, student_id, content, submitted_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (assignment_id, student_id)
DO UPDATE SET content = EXCLUDED.content, submitted_at = EXCLUDED.submitted_at, score = NULL, feedback = NULL, reviewed_by = NULL, reviewed_at = NULL
RETURNING ` + submissionColumns
	var stored models.AssignmentSubmission
	if err := r.db.GetContext(ctx, &stored, query, submission.ID, submission.AssignmentID, submission.StudentID, submission.Content, submission.SubmittedAt); err != nil {
		return fmt.Errorf("upsert submission: %w", err)
	}
	*submission = stored
	return nil
}

// FindSubmissionByID returns a submission by its ID.
func (r *AssignmentRepository) FindSubmissionByID(ctx context.Context, id string) (*models.AssignmentSubmission, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignment_submissions WHERE id = $1`, submissionColumns)
	var submission models.AssignmentSubmission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// FindSubmission returns a student's submission for an assignment.
func (r *AssignmentRepository) FindSubmission(ctx context.Context, assignmentID, studentID string) (*models.AssignmentSubmission, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignment_submissions WHERE assignment_id = $1 AND student_id = $2`, submissionColumns)
	var submission models.AssignmentSubmission
	if err := r.db.GetContext(ctx, &submission, query, assignmentID, studentID); err != nil {
		return nil, err
	}
	return &submission, nil
}

// ListSubmissions returns all submissions of an assignment with
// student names.
func (r *AssignmentRepository) ListSubmissions(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error) {
	const query = `SELECT s.id, s.assignment_id, s.student_id, s.content, s.submitted_at, s.score, s.feedback, s.reviewed_by, s.reviewed_at, u.full_name AS student_name
FROM assignment_submissions s
JOIN users u ON u.id = s.student_id
WHERE s.assignment_id = $1
ORDER BY u.full_name ASC`
	var submissions []models.SubmissionDetail
	if err := r.db.SelectContext(ctx, &submissions, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// ReviewSubmission stores score and feedback and stamps the reviewer.
func (r *AssignmentRepository) ReviewSubmission(ctx context.Context, id string, score float64, feedback *string, reviewerID string) error {
	const query = `UPDATE assignment_submissions SET score = $2, feedback = $3, reviewed_by = $4, reviewed_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, score, feedback, reviewerID, time.Now().UTC()); err != nil {
		return fmt.Errorf("review submission: %w", err)
	}
	return nil
}
