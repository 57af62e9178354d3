package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-api/internal/models"
)

// AttendanceRepository handles attendance sessions, entries and the
// append-only audit log. All lifecycle writes are transactional with
// their audit rows.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const sessionColumns = `id, school_id, academic_year_id, term_id, class_id, section_id, subject, date, status, created_by, submitted_by, submitted_at, locked_by, locked_at, created_at, updated_at`

// CreateOrFetchSession inserts a draft session for the roster tuple or
// returns the existing one. Uniqueness over (school, year, term, class,
// section, subject, date) is enforced by a storage-level index so
// concurrent creates cannot race into duplicates. The created flag
// reports whether a new row was inserted.
func (r *AttendanceRepository) CreateOrFetchSession(ctx context.Context, session *models.AttendanceSession) (result *models.AttendanceSession, created bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin create session: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.Status = models.SessionStatusDraft
	session.CreatedAt = now
	session.UpdatedAt = now

	const insertQuery = `INSERT INTO attendance_sessions (id, school_id, academic_year_id, term_id, class_id, section_id, subject, date, status, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (school_id, academic_year_id, term_id, class_id, COALESCE(section_id, ''), COALESCE(subject, ''), date) DO NOTHING
RETURNING id`
	var insertedID string
	err = tx.QueryRowxContext(ctx, insertQuery,
		session.ID, session.SchoolID, session.AcademicYearID, session.TermID,
		session.ClassID, session.SectionID, session.Subject, session.Date,
		session.Status, session.CreatedBy, session.CreatedAt, session.UpdatedAt,
	).Scan(&insertedID)
	if err != nil && err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("insert session: %w", err)
	}

	if err == sql.ErrNoRows {
		// Tuple already has a session; fetch and return it unchanged.
		query := fmt.Sprintf(`SELECT %s FROM attendance_sessions
WHERE school_id = $1 AND academic_year_id = $2 AND term_id = $3 AND class_id = $4
  AND COALESCE(section_id, '') = COALESCE($5, '') AND COALESCE(subject, '') = COALESCE($6, '') AND date = $7`, sessionColumns)
		var existing models.AttendanceSession
		if err = tx.GetContext(ctx, &existing, query,
			session.SchoolID, session.AcademicYearID, session.TermID, session.ClassID,
			session.SectionID, session.Subject, session.Date,
		); err != nil {
			return nil, false, fmt.Errorf("fetch existing session: %w", err)
		}
		if err = tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("commit fetch session: %w", err)
		}
		return &existing, false, nil
	}

	if err = r.appendAudit(ctx, tx, session.ID, models.AuditSessionCreated, session.CreatedBy, nil); err != nil {
		return nil, false, err
	}

	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit create session: %w", err)
	}
	return session, true, nil
}

// FindSessionByID returns a session scoped to a school.
func (r *AttendanceRepository) FindSessionByID(ctx context.Context, id, schoolID string) (*models.AttendanceSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_sessions WHERE id = $1 AND school_id = $2`, sessionColumns)
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, id, schoolID); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions returns sessions filtered by the provided criteria.
func (r *AttendanceRepository) ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.AttendanceSession, int, error) {
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
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
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

	query := fmt.Sprintf(`SELECT %s FROM attendance_sessions%s ORDER BY date DESC LIMIT %d OFFSET %d`, sessionColumns, clause, size, offset)
	var sessions []models.AttendanceSession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM attendance_sessions" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return sessions, total, nil
}

// Roster resolves the students of a session: active enrollments for
// the session's (school, year, class, section-or-any) ordered by name.
func (r *AttendanceRepository) Roster(ctx context.Context, schoolID, academicYearID, classID string, sectionID *string) ([]models.RosterStudent, error) {
	query := `SELECT u.id AS student_id, u.full_name, e.id AS enrollment_id
FROM student_enrollments e
JOIN users u ON u.id = e.student_id
WHERE e.school_id = $1 AND e.academic_year_id = $2 AND e.class_id = $3 AND e.status = $4`
	args := []interface{}{schoolID, academicYearID, classID, models.EnrollmentStatusActive}
	if sectionID != nil {
		query += fmt.Sprintf(" AND e.section_id = $%d", len(args)+1)
		args = append(args, *sectionID)
	}
	query += " ORDER BY u.full_name ASC"

	var roster []models.RosterStudent
	if err := r.db.SelectContext(ctx, &roster, query, args...); err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	return roster, nil
}

// UpsertEntries inserts or updates entries keyed by (session, student)
// and appends one audit row for the whole batch, all in one
// transaction.
func (r *AttendanceRepository) UpsertEntries(ctx context.Context, sessionID, actorID string, entries []models.AttendanceEntry) (err error) {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert entries: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO attendance_entries (id, session_id, student_id, status, note, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (session_id, student_id)
DO UPDATE SET status = EXCLUDED.status, note = EXCLUDED.note, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.SessionID = sessionID
		if _, err = tx.ExecContext(ctx, query, entry.ID, entry.SessionID, entry.StudentID, entry.Status, entry.Note, now, now); err != nil {
			return fmt.Errorf("upsert entry for student %s: %w", entry.StudentID, err)
		}
	}

	metadata, _ := json.Marshal(map[string]interface{}{"count": len(entries)})
	if err = r.appendAudit(ctx, tx, sessionID, models.AuditEntriesUpserted, actorID, metadata); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert entries: %w", err)
	}
	return nil
}

// ListEntries returns the entries of a session.
func (r *AttendanceRepository) ListEntries(ctx context.Context, sessionID string) ([]models.AttendanceEntry, error) {
	const query = `SELECT id, session_id, student_id, status, note, created_at, updated_at FROM attendance_entries WHERE session_id = $1 ORDER BY created_at ASC`
	var entries []models.AttendanceEntry
	if err := r.db.SelectContext(ctx, &entries, query, sessionID); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// TransitionSession moves a session from one status to the next with a
// conditional update, so two concurrent transitions cannot both
// succeed. Returns false when the session was not in the expected
// state. The audit row commits atomically with the transition.
func (r *AttendanceRepository) TransitionSession(ctx context.Context, sessionID, actorID string, from, to models.SessionStatus, action models.AuditAction) (ok bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transition: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	var query string
	switch to {
	case models.SessionStatusSubmitted:
		query = `UPDATE attendance_sessions SET status = $2, submitted_by = $3, submitted_at = $4, updated_at = $4 WHERE id = $1 AND status = $5`
	case models.SessionStatusLocked:
		query = `UPDATE attendance_sessions SET status = $2, locked_by = $3, locked_at = $4, updated_at = $4 WHERE id = $1 AND status = $5`
	default:
		return false, fmt.Errorf("unsupported transition target %s", to)
	}

	res, err := tx.ExecContext(ctx, query, sessionID, to, actorID, now, from)
	if err != nil {
		return false, fmt.Errorf("transition session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition affected: %w", err)
	}
	if affected == 0 {
		if err = tx.Commit(); err != nil {
			return false, fmt.Errorf("commit no-op transition: %w", err)
		}
		return false, nil
	}

	if err = r.appendAudit(ctx, tx, sessionID, action, actorID, nil); err != nil {
		return false, err
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit transition: %w", err)
	}
	return true, nil
}

// ListAudit returns the audit trail of a session, oldest first.
func (r *AttendanceRepository) ListAudit(ctx context.Context, sessionID string) ([]models.AttendanceAuditLog, error) {
	const query = `SELECT id, session_id, action, actor_id, metadata, created_at FROM attendance_audit_logs WHERE session_id = $1 ORDER BY created_at ASC`
	var logs []models.AttendanceAuditLog
	if err := r.db.SelectContext(ctx, &logs, query, sessionID); err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	return logs, nil
}

// ListLockedEntriesForStudent returns a student's entries from locked
// sessions only. In-progress marking stays invisible to the student.
func (r *AttendanceRepository) ListLockedEntriesForStudent(ctx context.Context, studentID string, from, to *time.Time) ([]models.StudentAttendanceRow, error) {
	query := `SELECT s.id AS session_id, s.date, s.subject, e.status, e.note
FROM attendance_entries e
JOIN attendance_sessions s ON s.id = e.session_id
WHERE e.student_id = $1 AND s.status = $2`
	args := []interface{}{studentID, models.SessionStatusLocked}
	if from != nil {
		query += fmt.Sprintf(" AND s.date >= $%d", len(args)+1)
		args = append(args, *from)
	}
	if to != nil {
		query += fmt.Sprintf(" AND s.date <= $%d", len(args)+1)
		args = append(args, *to)
	}
	query += " ORDER BY s.date DESC"

	var rows []models.StudentAttendanceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list locked entries: %w", err)
	}
	return rows, nil
}

func (r *AttendanceRepository) appendAudit(ctx context.Context, tx *sqlx.Tx, sessionID string, action models.AuditAction, actorID string, metadata json.RawMessage) error {
	const query = `INSERT INTO attendance_audit_logs (id, session_id, action, actor_id, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, query, uuid.NewString(), sessionID, action, actorID, metadata, time.Now().UTC()); err != nil {
		return fmt.Errorf("append audit %s: %w", action, err)
	}
	return nil
}
