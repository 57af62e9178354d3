package models

import (
	"encoding/json"
	"time"
)

// SessionStatus is the attendance session lifecycle state.
type SessionStatus string

// Sessions progress draft -> submitted -> locked, never backwards.
const (
	SessionStatusDraft     SessionStatus = "DRAFT"
	SessionStatusSubmitted SessionStatus = "SUBMITTED"
	SessionStatusLocked    SessionStatus = "LOCKED"
)

// AttendanceStatus is the per-student mark within a session.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
	AttendanceLate    AttendanceStatus = "LATE"
	AttendanceExcused AttendanceStatus = "EXCUSED"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	default:
		return false
	}
}

// AttendanceSession is one class/date/subject attendance-taking unit.
// The (school, year, term, class, section, subject, date) tuple is
// unique at the storage layer; creation is create-or-fetch.
type AttendanceSession struct {
	ID             string        `db:"id" json:"id"`
	SchoolID       string        `db:"school_id" json:"school_id"`
	AcademicYearID string        `db:"academic_year_id" json:"academic_year_id"`
	TermID         string        `db:"term_id" json:"term_id"`
	ClassID        string        `db:"class_id" json:"class_id"`
	SectionID      *string       `db:"section_id" json:"section_id,omitempty"`
	Subject        *string       `db:"subject" json:"subject,omitempty"`
	Date           time.Time     `db:"date" json:"date"`
	Status         SessionStatus `db:"status" json:"status"`
	CreatedBy      string        `db:"created_by" json:"created_by"`
	SubmittedBy    *string       `db:"submitted_by" json:"submitted_by,omitempty"`
	SubmittedAt    *time.Time    `db:"submitted_at" json:"submitted_at,omitempty"`
	LockedBy       *string       `db:"locked_by" json:"locked_by,omitempty"`
	LockedAt       *time.Time    `db:"locked_at" json:"locked_at,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// AttendanceEntry is the mark for one student in one session, unique
// per (session, student) and upserted in place.
type AttendanceEntry struct {
	ID        string           `db:"id" json:"id"`
	SessionID string           `db:"session_id" json:"session_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Note      *string          `db:"note" json:"note,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AuditAction enumerates attendance session lifecycle actions.
type AuditAction string

const (
	AuditSessionCreated  AuditAction = "session_created"
	AuditEntriesUpserted AuditAction = "entries_upserted"
	AuditSessionSubmitted AuditAction = "session_submitted"
	AuditSessionLocked   AuditAction = "session_locked"
)

// AttendanceAuditLog is append-only; rows are never mutated or deleted.
type AttendanceAuditLog struct {
	ID        string          `db:"id" json:"id"`
	SessionID string          `db:"session_id" json:"session_id"`
	Action    AuditAction     `db:"action" json:"action"`
	ActorID   string          `db:"actor_id" json:"actor_id"`
	Metadata  json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// SessionFilter scopes session listing queries.
type SessionFilter struct {
	SchoolID       string
	AcademicYearID string
	TermID         string
	ClassID        string
	Status         SessionStatus
	DateFrom       *time.Time
	DateTo         *time.Time
	Page           int
	PageSize       int
}

// RosterStudent is one student on a session's roster.
type RosterStudent struct {
	StudentID   string `db:"student_id" json:"student_id"`
	FullName    string `db:"full_name" json:"full_name"`
	EnrollmentID string `db:"enrollment_id" json:"enrollment_id"`
}

// StudentAttendanceRow is one locked entry visible to the subject
// student or a linked parent.
type StudentAttendanceRow struct {
	SessionID string           `db:"session_id" json:"session_id"`
	Date      time.Time        `db:"date" json:"date"`
	Subject   *string          `db:"subject" json:"subject,omitempty"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Note      *string          `db:"note" json:"note,omitempty"`
}
