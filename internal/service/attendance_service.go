package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-api/internal/models"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
)

type attendanceRepository interface {
	CreateOrFetchSession(ctx context.Context, session *models.AttendanceSession) (*models.AttendanceSession, bool, error)
	FindSessionByID(ctx context.Context, id, schoolID string) (*models.AttendanceSession, error)
	ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.AttendanceSession, int, error)
	Roster(ctx context.Context, schoolID, academicYearID, classID string, sectionID *string) ([]models.RosterStudent, error)
	UpsertEntries(ctx context.Context, sessionID, actorID string, entries []models.AttendanceEntry) error
	ListEntries(ctx context.Context, sessionID string) ([]models.AttendanceEntry, error)
	TransitionSession(ctx context.Context, sessionID, actorID string, from, to models.SessionStatus, action models.AuditAction) (bool, error)
	ListAudit(ctx context.Context, sessionID string) ([]models.AttendanceAuditLog, error)
	ListLockedEntriesForStudent(ctx context.Context, studentID string, from, to *time.Time) ([]models.StudentAttendanceRow, error)
}

type attendanceParentChecker interface {
	IsParentOf(ctx context.Context, parentUserID, childUserID string) (bool, error)
}

// AttendanceService drives the session lifecycle: DRAFT sessions accept
// entry upserts, SUBMITTED sessions await lock, LOCKED sessions are
// immutable and become visible to students and parents.
type AttendanceService struct {
	repo      attendanceRepository
	parents   attendanceParentChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs an AttendanceService instance.
func NewAttendanceService(repo attendanceRepository, parents attendanceParentChecker, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{repo: repo, parents: parents, validator: validate, logger: logger}
}

// CreateSessionRequest identifies the attendance-taking unit. The same
// tuple always resolves to the same session.
type CreateSessionRequest struct {
	AcademicYearID string    `json:"academic_year_id" validate:"required,uuid"`
	TermID         string    `json:"term_id" validate:"required,uuid"`
	ClassID        string    `json:"class_id" validate:"required,uuid"`
	SectionID      *string   `json:"section_id,omitempty" validate:"omitempty,uuid"`
	Subject        *string   `json:"subject,omitempty"`
	Date           time.Time `json:"date" validate:"required"`
}

// SessionResult pairs a session with whether this call created it.
type SessionResult struct {
	Session *models.AttendanceSession `json:"session"`
	Created bool                      `json:"created"`
}

// CreateOrFetchSession returns the session for the given tuple,
// creating a DRAFT one when none exists yet.
func (s *AttendanceService) CreateOrFetchSession(ctx context.Context, schoolID, actorID string, req CreateSessionRequest) (*SessionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	session := &models.AttendanceSession{
		SchoolID:       schoolID,
		AcademicYearID: req.AcademicYearID,
		TermID:         req.TermID,
		ClassID:        req.ClassID,
		SectionID:      req.SectionID,
		Subject:        req.Subject,
		Date:           req.Date,
		CreatedBy:      actorID,
	}
	result, created, err := s.repo.CreateOrFetchSession(ctx, session)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	return &SessionResult{Session: result, Created: created}, nil
}

// GetSession returns a session with its entries.
func (s *AttendanceService) GetSession(ctx context.Context, id, schoolID string) (*models.AttendanceSession, []models.AttendanceEntry, error) {
	session, err := s.repo.FindSessionByID(ctx, id, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	entries, err := s.repo.ListEntries(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entries")
	}
	return session, entries, nil
}

// ListSessions returns sessions matching the filter.
func (s *AttendanceService) ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.AttendanceSession, int, error) {
	sessions, total, err := s.repo.ListSessions(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, total, nil
}

// Roster returns the active students a session covers.
func (s *AttendanceService) Roster(ctx context.Context, sessionID, schoolID string) ([]models.RosterStudent, error) {
	session, err := s.repo.FindSessionByID(ctx, sessionID, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	roster, err := s.repo.Roster(ctx, session.SchoolID, session.AcademicYearID, session.ClassID, session.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return roster, nil
}

// EntryInput is one student's mark in a record request.
type EntryInput struct {
	StudentID string                  `json:"student_id" validate:"required,uuid"`
	Status    models.AttendanceStatus `json:"status" validate:"required"`
	Note      *string                 `json:"note,omitempty"`
}

// RecordEntriesRequest upserts marks into a DRAFT session.
type RecordEntriesRequest struct {
	Entries []EntryInput `json:"entries" validate:"required,min=1,dive"`
}

// RecordEntries upserts attendance marks. Only DRAFT sessions accept
// entries; every student must be on the session's roster.
func (s *AttendanceService) RecordEntries(ctx context.Context, sessionID, schoolID, actorID string, req RecordEntriesRequest) ([]models.AttendanceEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid entries payload")
	}
	for _, entry := range req.Entries {
		if !entry.Status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status")
		}
	}

	session, err := s.repo.FindSessionByID(ctx, sessionID, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.Status != models.SessionStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "entries can only be recorded on a draft session")
	}

	roster, err := s.repo.Roster(ctx, session.SchoolID, session.AcademicYearID, session.ClassID, session.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	onRoster := make(map[string]struct{}, len(roster))
	for _, student := range roster {
		onRoster[student.StudentID] = struct{}{}
	}

	entries := make([]models.AttendanceEntry, 0, len(req.Entries))
	for _, input := range req.Entries {
		if _, ok := onRoster[input.StudentID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student is not on the session roster")
		}
		entries = append(entries, models.AttendanceEntry{
			SessionID: sessionID,
			StudentID: input.StudentID,
			Status:    input.Status,
			Note:      input.Note,
		})
	}

	if err := s.repo.UpsertEntries(ctx, sessionID, actorID, entries); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record entries")
	}

	stored, err := s.repo.ListEntries(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload entries")
	}
	return stored, nil
}

// SubmitSession moves DRAFT to SUBMITTED. A session without any entry
// cannot be submitted.
func (s *AttendanceService) SubmitSession(ctx context.Context, sessionID, schoolID, actorID string) (*models.AttendanceSession, error) {
	if _, err := s.repo.FindSessionByID(ctx, sessionID, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	entries, err := s.repo.ListEntries(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entries")
	}
	if len(entries) == 0 {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "cannot submit a session with no entries")
	}

	ok, err := s.repo.TransitionSession(ctx, sessionID, actorID, models.SessionStatusDraft, models.SessionStatusSubmitted, models.AuditSessionSubmitted)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit session")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "session is not in draft state")
	}
	return s.reload(ctx, sessionID, schoolID)
}

// LockSession moves SUBMITTED to LOCKED. Locked sessions are immutable.
func (s *AttendanceService) LockSession(ctx context.Context, sessionID, schoolID, actorID string) (*models.AttendanceSession, error) {
	if _, err := s.repo.FindSessionByID(ctx, sessionID, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	ok, err := s.repo.TransitionSession(ctx, sessionID, actorID, models.SessionStatusSubmitted, models.SessionStatusLocked, models.AuditSessionLocked)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock session")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "session is not in submitted state")
	}
	return s.reload(ctx, sessionID, schoolID)
}

// AuditTrail returns the append-only history of a session.
func (s *AttendanceService) AuditTrail(ctx context.Context, sessionID, schoolID string) ([]models.AttendanceAuditLog, error) {
	if _, err := s.repo.FindSessionByID(ctx, sessionID, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	audit, err := s.repo.ListAudit(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit trail")
	}
	return audit, nil
}

// StudentHistory returns a student's locked entries. Students see only
// their own history; parents see linked children only.
func (s *AttendanceService) StudentHistory(ctx context.Context, claims *models.JWTClaims, studentID string, from, to *time.Time) ([]models.StudentAttendanceRow, error) {
	switch claims.Role {
	case models.RoleStudent:
		if claims.UserID != studentID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only view their own attendance")
		}
	case models.RoleParent:
		linked, err := s.parents.IsParentOf(ctx, claims.UserID, studentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check parent link")
		}
		if !linked {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "student is not linked to this parent")
		}
	case models.RoleAdmin, models.RoleEmployee:
		// staff access is checked by route middleware
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "forbidden")
	}

	rows, err := s.repo.ListLockedEntriesForStudent(ctx, studentID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance history")
	}
	return rows, nil
}

func (s *AttendanceService) reload(ctx context.Context, sessionID, schoolID string) (*models.AttendanceSession, error) {
	session, err := s.repo.FindSessionByID(ctx, sessionID, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload session")
	}
	return session, nil
}
