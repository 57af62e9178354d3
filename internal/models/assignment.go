package models

import "time"

// AssignmentStatus is the assignment lifecycle state.
type AssignmentStatus string

// Assignments progress draft -> published -> closed.
const (
	AssignmentStatusDraft     AssignmentStatus = "DRAFT"
	AssignmentStatusPublished AssignmentStatus = "PUBLISHED"
	AssignmentStatusClosed    AssignmentStatus = "CLOSED"
)

// Assignment is staff-authored coursework scoped to a class.
type Assignment struct {
	ID             string           `db:"id" json:"id"`
	SchoolID       string           `db:"school_id" json:"school_id"`
	AcademicYearID string           `db:"academic_year_id" json:"academic_year_id"`
	TermID         string           `db:"term_id" json:"term_id"`
	ClassID        string           `db:"class_id" json:"class_id"`
	SectionID      *string          `db:"section_id" json:"section_id,omitempty"`
	Subject        string           `db:"subject" json:"subject"`
	Title          string           `db:"title" json:"title"`
	Description    *string          `db:"description" json:"description,omitempty"`
	DueAt          time.Time        `db:"due_at" json:"due_at"`
	MaxScore       float64          `db:"max_score" json:"max_score"`
	Status         AssignmentStatus `db:"status" json:"status"`
	CreatedBy      string           `db:"created_by" json:"created_by"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// AssignmentSubmission is one student's work, unique per
// (assignment, student). Resubmission overwrites while the assignment
// stays PUBLISHED.
type AssignmentSubmission struct {
	ID           string     `db:"id" json:"id"`
	AssignmentID string     `db:"assignment_id" json:"assignment_id"`
	StudentID    string     `db:"student_id" json:"student_id"`
	Content      string     `db:"content" json:"content"`
	SubmittedAt  time.Time  `db:"submitted_at" json:"submitted_at"`
	Score        *float64   `db:"score" json:"score,omitempty"`
	Feedback     *string    `db:"feedback" json:"feedback,omitempty"`
	ReviewedBy   *string    `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
}

// SubmissionDetail enriches a submission with the student's name.
type SubmissionDetail struct {
	AssignmentSubmission
	StudentName string `db:"student_name" json:"student_name"`
}

// AssignmentFilter scopes assignment listing. ExcludeDrafts keeps
// unpublished assignments out of both the page and the total count.
type AssignmentFilter struct {
	SchoolID       string
	AcademicYearID string
	TermID         string
	ClassID        string
	Status         AssignmentStatus
	ExcludeDrafts  bool
	Page           int
	PageSize       int
}
