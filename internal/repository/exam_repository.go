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

// ExamRepository handles exams and per-subject marks.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs the repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

const examColumns = `id, school_id, academic_year_id, term_id, name, starts_on, ends_on, status, published_at, created_by, created_at, updated_at`

// Create persists a new scheduled exam.
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	now := time.Now().UTC()
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	if exam.Status == "" {
		exam.Status = models.ExamStatusScheduled
	}
	exam.CreatedAt = now
	exam.UpdatedAt = now
	const query = `INSERT INTO exams (id, school_id, academic_year_id, term_id, name, starts_on, ends_on, status, created_by, created_at, updated_at)
VALUES (:id, :school_id, :academic_year_id, :term_id, :name, :starts_on, :ends_on, :status, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("create exam: %w", err)
	}
	return nil
}

// FindByID returns an exam scoped to a school.
func (r *ExamRepository) FindByID(ctx context.Context, id, schoolID string) (*models.Exam, error) {
	query := fmt.Sprintf(`SELECT %s FROM exams WHERE id = $1 AND school_id = $2`, examColumns)
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id, schoolID); err != nil {
		return nil, err
	}
	return &exam, nil
}

// List returns exams filtered by the provided criteria.
func (r *ExamRepository) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error) {
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
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
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

	query := fmt.Sprintf(`SELECT %s FROM exams%s ORDER BY starts_on DESC LIMIT %d OFFSET %d`, examColumns, clause, size, offset)
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list exams: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM exams" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count exams: %w", err)
	}
	return exams, total, nil
}

// Publish transitions an exam to PUBLISHED with a conditional update;
// marks become read-only afterwards. Returns false when not scheduled.
func (r *ExamRepository) Publish(ctx context.Context, id string) (bool, error) {
	now := time.Now().UTC()
	const query = `UPDATE exams SET status = $2, published_at = $3, updated_at = $3 WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id, models.ExamStatusPublished, now, models.ExamStatusScheduled)
	if err != nil {
		return false, fmt.Errorf("publish exam: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("publish exam affected: %w", err)
	}
	return affected > 0, nil
}

// UpsertMarks inserts or updates marks keyed by (exam, student,
// subject) in one transaction.
func (r *ExamRepository) UpsertMarks(ctx context.Context, examID, actorID string, marks []models.ExamMark) (err error) {
	if len(marks) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert marks: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO exam_marks (id, exam_id, student_id, subject, marks_obtained, total_marks, remarks, entered_by, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (exam_id, student_id, subject)
DO UPDATE SET marks_obtained = EXCLUDED.marks_obtained, total_marks = EXCLUDED.total_marks, remarks = EXCLUDED.remarks, entered_by = EXCLUDED.entered_by, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for i := range marks {
		mark := &marks[i]
		if mark.ID == "" {
			mark.ID = uuid.NewString()
		}
		mark.ExamID = examID
		mark.EnteredBy = actorID
		if _, err = tx.ExecContext(ctx, query, mark.ID, mark.ExamID, mark.StudentID, mark.Subject, mark.MarksObtained, mark.TotalMarks, mark.Remarks, mark.EnteredBy, now); err != nil {
			return fmt.Errorf("upsert mark for student %s subject %s: %w", mark.StudentID, mark.Subject, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert marks: %w", err)
	}
	return nil
}

// ListMarks returns the marks of an exam with student names.
func (r *ExamRepository) ListMarks(ctx context.Context, examID string) ([]models.ExamMarkDetail, error) {
	const query = `SELECT m.id, m.exam_id, m.student_id, m.subject, m.marks_obtained, m.total_marks, m.remarks, m.entered_by, m.updated_at, u.full_name AS student_name
FROM exam_marks m
JOIN users u ON u.id = m.student_id
WHERE m.exam_id = $1
ORDER BY u.full_name ASC, m.subject ASC`
	var marks []models.ExamMarkDetail
	if err := r.db.SelectContext(ctx, &marks, query, examID); err != nil {
		return nil, fmt.Errorf("list marks: %w", err)
	}
	return marks, nil
}

// ListMarksForStudent returns one student's marks in an exam.
func (r *ExamRepository) ListMarksForStudent(ctx context.Context, examID, studentID string) ([]models.ExamMark, error) {
	const query = `SELECT id, exam_id, student_id, subject, marks_obtained, total_marks, remarks, entered_by, updated_at
FROM exam_marks WHERE exam_id = $1 AND student_id = $2 ORDER BY subject ASC`
	var marks []models.ExamMark
	if err := r.db.SelectContext(ctx, &marks, query, examID, studentID); err != nil {
		return nil, fmt.Errorf("list student marks: %w", err)
	}
	return marks, nil
}
