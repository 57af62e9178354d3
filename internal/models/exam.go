package models

import "time"

// ExamStatus is the exam lifecycle state. Marks are editable until the
// exam is published, then read-only.
type ExamStatus string

const (
	ExamStatusScheduled ExamStatus = "SCHEDULED"
	ExamStatusPublished ExamStatus = "PUBLISHED"
)

// Exam groups marks within a school year and term.
type Exam struct {
	ID             string     `db:"id" json:"id"`
	SchoolID       string     `db:"school_id" json:"school_id"`
	AcademicYearID string     `db:"academic_year_id" json:"academic_year_id"`
	TermID         string     `db:"term_id" json:"term_id"`
	Name           string     `db:"name" json:"name"`
	StartsOn       time.Time  `db:"starts_on" json:"starts_on"`
	EndsOn         time.Time  `db:"ends_on" json:"ends_on"`
	Status         ExamStatus `db:"status" json:"status"`
	PublishedAt    *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedBy      string     `db:"created_by" json:"created_by"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// ExamMark is one student's score in one subject, unique per
// (exam, student, subject). MarksObtained stays nil until graded.
type ExamMark struct {
	ID            string    `db:"id" json:"id"`
	ExamID        string    `db:"exam_id" json:"exam_id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	Subject       string    `db:"subject" json:"subject"`
	MarksObtained *float64  `db:"marks_obtained" json:"marks_obtained,omitempty"`
	TotalMarks    float64   `db:"total_marks" json:"total_marks"`
	Remarks       *string   `db:"remarks" json:"remarks,omitempty"`
	EnteredBy     string    `db:"entered_by" json:"entered_by"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ExamMarkDetail enriches a mark with the student's name.
type ExamMarkDetail struct {
	ExamMark
	StudentName string `db:"student_name" json:"student_name"`
}

// ExamFilter scopes exam listing.
type ExamFilter struct {
	SchoolID       string
	AcademicYearID string
	TermID         string
	Status         ExamStatus
	Page           int
	PageSize       int
}
