package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-api/internal/models"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
)

const (
	testStudentA = "11111111-1111-1111-1111-111111111111"
	testStudentB = "22222222-2222-2222-2222-222222222222"
)

type attendanceRepoStub struct {
	session     *models.AttendanceSession
	entries     []models.AttendanceEntry
	roster      []models.RosterStudent
	audit       []models.AttendanceAuditLog
	transitions []models.SessionStatus
	upserted    []models.AttendanceEntry
}

func (s *attendanceRepoStub) CreateOrFetchSession(ctx context.Context, session *models.AttendanceSession) (*models.AttendanceSession, bool, error) {
	if s.session != nil {
		return s.session, false, nil
	}
	session.ID = "sess-1"
	session.Status = models.SessionStatusDraft
	s.session = session
	return session, true, nil
}

func (s *attendanceRepoStub) FindSessionByID(ctx context.Context, id, schoolID string) (*models.AttendanceSession, error) {
	if s.session == nil || s.session.ID != id || s.session.SchoolID != schoolID {
		return nil, sql.ErrNoRows
	}
	copied := *s.session
	return &copied, nil
}

func (s *attendanceRepoStub) ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.AttendanceSession, int, error) {
	if s.session == nil {
		return nil, 0, nil
	}
	return []models.AttendanceSession{*s.session}, 1, nil
}

func (s *attendanceRepoStub) Roster(ctx context.Context, schoolID, academicYearID, classID string, sectionID *string) ([]models.RosterStudent, error) {
	return s.roster, nil
}

func (s *attendanceRepoStub) UpsertEntries(ctx context.Context, sessionID, actorID string, entries []models.AttendanceEntry) error {
	s.upserted = entries
	s.entries = entries
	return nil
}

func (s *attendanceRepoStub) ListEntries(ctx context.Context, sessionID string) ([]models.AttendanceEntry, error) {
	return s.entries, nil
}

func (s *attendanceRepoStub) TransitionSession(ctx context.Context, sessionID, actorID string, from, to models.SessionStatus, action models.AuditAction) (bool, error) {
	if s.session == nil || s.session.Status != from {
		return false, nil
	}
	s.session.Status = to
	s.transitions = append(s.transitions, to)
	return true, nil
}

func (s *attendanceRepoStub) ListAudit(ctx context.Context, sessionID string) ([]models.AttendanceAuditLog, error) {
	return s.audit, nil
}

func (s *attendanceRepoStub) ListLockedEntriesForStudent(ctx context.Context, studentID string, from, to *time.Time) ([]models.StudentAttendanceRow, error) {
	return []models.StudentAttendanceRow{{SessionID: "sess-1", Status: models.AttendancePresent}}, nil
}

type parentCheckerStub struct {
	linked map[string]string
}

func (s parentCheckerStub) IsParentOf(ctx context.Context, parentUserID, childUserID string) (bool, error) {
	return s.linked[parentUserID] == childUserID, nil
}

func draftSession() *models.AttendanceSession {
	return &models.AttendanceSession{
		ID:             "sess-1",
		SchoolID:       "sch-1",
		AcademicYearID: "year-1",
		TermID:         "term-1",
		ClassID:        "class-1",
		Date:           time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		Status:         models.SessionStatusDraft,
		CreatedBy:      "teacher-1",
	}
}

func TestRecordEntriesRejectsNonDraft(t *testing.T) {
	repo := &attendanceRepoStub{session: draftSession()}
	repo.session.Status = models.SessionStatusSubmitted
	svc := NewAttendanceService(repo, parentCheckerStub{}, nil, nil)

	_, err := svc.RecordEntries(context.Background(), "sess-1", "sch-1", "teacher-1", RecordEntriesRequest{
		Entries: []EntryInput{{StudentID: testStudentA, Status: models.AttendancePresent}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestRecordEntriesRejectsStudentOffRoster(t *testing.T) {
	repo := &attendanceRepoStub{
		session: draftSession(),
		roster:  []models.RosterStudent{{StudentID: testStudentA}},
	}
	svc := NewAttendanceService(repo, parentCheckerStub{}, nil, nil)

	_, err := svc.RecordEntries(context.Background(), "sess-1", "sch-1", "teacher-1", RecordEntriesRequest{
		Entries: []EntryInput{{StudentID: testStudentB, Status: models.AttendancePresent}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.upserted)
}

func TestRecordEntriesRejectsUnknownStatus(t *testing.T) {
	repo := &attendanceRepoStub{session: draftSession()}
	svc := NewAttendanceService(repo, parentCheckerStub{}, nil, nil)

	_, err := svc.RecordEntries(context.Background(), "sess-1", "sch-1", "teacher-1", RecordEntriesRequest{
		Entries: []EntryInput{{StudentID: testStudentA, Status: "MAYBE"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSessionLifecycle(t *testing.T) {
	repo := &attendanceRepoStub{
		session: draftSession(),
		roster:  []models.RosterStudent{{StudentID: testStudentA}, {StudentID: testStudentB}},
	}
	svc := NewAttendanceService(repo, parentCheckerStub{}, nil, nil)
	ctx := context.Background()

	entries, err := svc.RecordEntries(ctx, "sess-1", "sch-1", "teacher-1", RecordEntriesRequest{
		Entries: []EntryInput{
			{StudentID: testStudentA, Status: models.AttendancePresent},
			{StudentID: testStudentB, Status: models.AttendanceLate},
		},
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	session, err := svc.SubmitSession(ctx, "sess-1", "sch-1", "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusSubmitted, session.Status)

	session, err = svc.LockSession(ctx, "sess-1", "sch-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusLocked, session.Status)

	// Locked sessions accept no further transitions.
	_, err = svc.SubmitSession(ctx, "sess-1", "sch-1", "teacher-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestSubmitSessionRequiresEntries(t *testing.T) {
	repo := &attendanceRepoStub{session: draftSession()}
	svc := NewAttendanceService(repo, parentCheckerStub{}, nil, nil)

	_, err := svc.SubmitSession(context.Background(), "sess-1", "sch-1", "teacher-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.SessionStatusDraft, repo.session.Status)
}

func TestLockSessionRequiresSubmitted(t *testing.T) {
	repo := &attendanceRepoStub{session: draftSession()}
	svc := NewAttendanceService(repo, parentCheckerStub{}, nil, nil)

	_, err := svc.LockSession(context.Background(), "sess-1", "sch-1", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentHistoryOwnership(t *testing.T) {
	repo := &attendanceRepoStub{}
	svc := NewAttendanceService(repo, parentCheckerStub{linked: map[string]string{"parent-1": "stu-1"}}, nil, nil)
	ctx := context.Background()

	_, err := svc.StudentHistory(ctx, &models.JWTClaims{UserID: "stu-2", Role: models.RoleStudent}, "stu-1", nil, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	rows, err := svc.StudentHistory(ctx, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}, "stu-1", nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, err = svc.StudentHistory(ctx, &models.JWTClaims{UserID: "parent-2", Role: models.RoleParent}, "stu-1", nil, nil)
	require.Error(t, err)

	rows, err = svc.StudentHistory(ctx, &models.JWTClaims{UserID: "parent-1", Role: models.RoleParent}, "stu-1", nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestCreateOrFetchSessionIdempotent(t *testing.T) {
	repo := &attendanceRepoStub{}
	svc := NewAttendanceService(repo, parentCheckerStub{}, nil, nil)
	ctx := context.Background()

	req := CreateSessionRequest{
		AcademicYearID: "33333333-3333-3333-3333-333333333333",
		TermID:         "44444444-4444-4444-4444-444444444444",
		ClassID:        "55555555-5555-5555-5555-555555555555",
		Date:           time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
	}

	first, err := svc.CreateOrFetchSession(ctx, "sch-1", "teacher-1", req)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, models.SessionStatusDraft, first.Session.Status)

	second, err := svc.CreateOrFetchSession(ctx, "sch-1", "teacher-1", req)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Session.ID, second.Session.ID)
}

func TestCreateOrFetchSessionRejectsBadTuple(t *testing.T) {
	repo := &attendanceRepoStub{}
	svc := NewAttendanceService(repo, parentCheckerStub{}, nil, nil)

	_, err := svc.CreateOrFetchSession(context.Background(), "sch-1", "teacher-1", CreateSessionRequest{
		AcademicYearID: "not-a-uuid",
		TermID:         "44444444-4444-4444-4444-444444444444",
		ClassID:        "55555555-5555-5555-5555-555555555555",
		Date:           time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
