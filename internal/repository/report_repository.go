package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-api/internal/models"
)

// ReportRepository runs the aggregation queries behind the report
// compiler. Only LOCKED attendance sessions count; grade averages are
// percentages of the row's total marks.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// StudentAttendanceSummary counts a student's locked entries within a
// term. Percent is computed by the caller.
func (r *ReportRepository) StudentAttendanceSummary(ctx context.Context, studentID, termID string) (*models.AttendanceSummary, error) {
	const query = `SELECT
	COUNT(*) FILTER (WHERE e.status = 'PRESENT') AS present,
	COUNT(*) FILTER (WHERE e.status = 'ABSENT') AS absent,
	COUNT(*) FILTER (WHERE e.status = 'LATE') AS late,
	COUNT(*) FILTER (WHERE e.status = 'EXCUSED') AS excused,
	COUNT(*) AS total
FROM attendance_entries e
JOIN attendance_sessions s ON s.id = e.session_id
WHERE e.student_id = $1 AND s.term_id = $2 AND s.status = 'LOCKED'`
	var summary models.AttendanceSummary
	if err := r.db.GetContext(ctx, &summary, query, studentID, termID); err != nil {
		return nil, fmt.Errorf("student attendance summary: %w", err)
	}
	return &summary, nil
}

// ClassAttendanceRows summarises every active student of a class for a
// term, from locked sessions only. Students with no entries still get
// a zero row.
func (r *ReportRepository) ClassAttendanceRows(ctx context.Context, classID, termID string) ([]models.ClassAttendanceRow, error) {
	const query = `SELECT
	u.id AS student_id,
	u.full_name AS student_name,
	COUNT(e.id) FILTER (WHERE e.status = 'PRESENT') AS present,
	COUNT(e.id) FILTER (WHERE e.status = 'ABSENT') AS absent,
	COUNT(e.id) FILTER (WHERE e.status = 'LATE') AS late,
	COUNT(e.id) FILTER (WHERE e.status = 'EXCUSED') AS excused,
	COUNT(e.id) AS total
FROM student_enrollments en
JOIN users u ON u.id = en.student_id
LEFT JOIN attendance_sessions s ON s.class_id = en.class_id AND s.term_id = $2 AND s.status = 'LOCKED'
LEFT JOIN attendance_entries e ON e.session_id = s.id AND e.student_id = u.id
WHERE en.class_id = $1 AND en.status = 'ACTIVE'
GROUP BY u.id, u.full_name
ORDER BY u.full_name ASC`
	var rows []models.ClassAttendanceRow
	if err := r.db.SelectContext(ctx, &rows, query, classID, termID); err != nil {
		return nil, fmt.Errorf("class attendance rows: %w", err)
	}
	return rows, nil
}

// ClassGradeRows aggregates reviewed assignment scores and entered
// exam marks per active student of a class within a term. Averages
// are percentages so assignments and exams are comparable.
func (r *ReportRepository) ClassGradeRows(ctx context.Context, classID, termID string) ([]models.GradeReportRow, error) {
	const query = `SELECT
	u.id AS student_id,
	u.full_name AS student_name,
	agg_sub.assignment_average,
	COALESCE(agg_sub.submission_count, 0) AS submission_count,
	agg_mark.exam_average,
	COALESCE(agg_mark.mark_count, 0) AS mark_count
FROM student_enrollments en
JOIN users u ON u.id = en.student_id
LEFT JOIN (
	SELECT sub.student_id,
		AVG(sub.score * 100.0 / NULLIF(a.max_score, 0)) AS assignment_average,
		COUNT(*) AS submission_count
	FROM assignment_submissions sub
	JOIN assignments a ON a.id = sub.assignment_id
	WHERE a.class_id = $1 AND a.term_id = $2 AND sub.score IS NOT NULL
	GROUP BY sub.student_id
) agg_sub ON agg_sub.student_id = u.id
LEFT JOIN (
	SELECT m.student_id,
		AVG(m.marks_obtained * 100.0 / NULLIF(m.total_marks, 0)) AS exam_average,
		COUNT(*) AS mark_count
	FROM exam_marks m
	JOIN exams x ON x.id = m.exam_id
	WHERE x.term_id = $2 AND m.marks_obtained IS NOT NULL
	GROUP BY m.student_id
) agg_mark ON agg_mark.student_id = u.id
WHERE en.class_id = $1 AND en.status = 'ACTIVE'
ORDER BY u.full_name ASC`
	var rows []models.GradeReportRow
	if err := r.db.SelectContext(ctx, &rows, query, classID, termID); err != nil {
		return nil, fmt.Errorf("class grade rows: %w", err)
	}
	return rows, nil
}
