package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-api/internal/models"
)

func newAttendanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceRepositoryTransitionSession(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance_sessions SET status = $2, submitted_by = $3, submitted_at = $4, updated_at = $4 WHERE id = $1 AND status = $5")).
		WithArgs("sess-1", models.SessionStatusSubmitted, "teacher-1", sqlmock.AnyArg(), models.SessionStatusDraft).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_audit_logs (id, session_id, action, actor_id, metadata, created_at)")).
		WithArgs(sqlmock.AnyArg(), "sess-1", models.AuditSessionSubmitted, "teacher-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.TransitionSession(context.Background(), "sess-1", "teacher-1",
		models.SessionStatusDraft, models.SessionStatusSubmitted, models.AuditSessionSubmitted)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryTransitionSessionNoOp(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	// A session no longer in the expected state updates zero rows and
	// writes no audit entry.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance_sessions SET status = $2, locked_by = $3, locked_at = $4, updated_at = $4 WHERE id = $1 AND status = $5")).
		WithArgs("sess-1", models.SessionStatusLocked, "teacher-1", sqlmock.AnyArg(), models.SessionStatusSubmitted).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err := repo.TransitionSession(context.Background(), "sess-1", "teacher-1",
		models.SessionStatusSubmitted, models.SessionStatusLocked, models.AuditSessionLocked)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertEntries(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_entries (id, session_id, student_id, status, note, created_at, updated_at)")).
		WithArgs(sqlmock.AnyArg(), "sess-1", "stu-1", models.AttendancePresent, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_audit_logs (id, session_id, action, actor_id, metadata, created_at)")).
		WithArgs(sqlmock.AnyArg(), "sess-1", models.AuditEntriesUpserted, "teacher-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entries := []models.AttendanceEntry{{StudentID: "stu-1", Status: models.AttendancePresent}}
	err := repo.UpsertEntries(context.Background(), "sess-1", "teacher-1", entries)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListLockedEntriesForStudent(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"session_id", "date", "subject", "status", "note"}).
		AddRow("sess-1", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), nil, models.AttendancePresent, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.student_id = $1 AND s.status = $2 AND s.date >= $3")).
		WithArgs("stu-1", models.SessionStatusLocked, from).
		WillReturnRows(rows)

	history, err := repo.ListLockedEntriesForStudent(context.Background(), "stu-1", &from, nil)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
