package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive      EnrollmentStatus = "ACTIVE"
	EnrollmentStatusPending     EnrollmentStatus = "PENDING"
	EnrollmentStatusPromoted    EnrollmentStatus = "PROMOTED"
	EnrollmentStatusGraduated   EnrollmentStatus = "GRADUATED"
	EnrollmentStatusTransferred EnrollmentStatus = "TRANSFERRED"
)

// StudentEnrollment binds a student to a class/section within an
// academic year. A student typically holds one ACTIVE row per year.
type StudentEnrollment struct {
	ID             string           `db:"id" json:"id"`
	SchoolID       string           `db:"school_id" json:"school_id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	AcademicYearID string           `db:"academic_year_id" json:"academic_year_id"`
	ClassID        string           `db:"class_id" json:"class_id"`
	SectionID      *string          `db:"section_id" json:"section_id,omitempty"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	JoinedAt       time.Time        `db:"joined_at" json:"joined_at"`
	LeftAt         *time.Time       `db:"left_at" json:"left_at,omitempty"`
}

// EnrollmentDetail enriches StudentEnrollment with display info.
type EnrollmentDetail struct {
	StudentEnrollment
	StudentName string  `db:"student_name" json:"student_name"`
	ClassName   string  `db:"class_name" json:"class_name"`
	GradeLevel  int     `db:"grade_level" json:"grade_level"`
	SectionName *string `db:"section_name" json:"section_name,omitempty"`
	YearName    string  `db:"year_name" json:"year_name"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	SchoolID       string
	StudentID      string
	ClassID        string
	AcademicYearID string
	Status         EnrollmentStatus
	Page           int
	PageSize       int
}

// PromotionItemStatus classifies a per-student promotion outcome.
type PromotionItemStatus string

const (
	PromotionItemPromoted  PromotionItemStatus = "promoted"
	PromotionItemGraduated PromotionItemStatus = "graduated"
	PromotionItemError     PromotionItemStatus = "error"
)

// PromotionResult reports one student's outcome in a promotion batch.
type PromotionResult struct {
	StudentID       string              `json:"student_id"`
	StudentName     string              `json:"student_name,omitempty"`
	Status          PromotionItemStatus `json:"status"`
	Message         string              `json:"message,omitempty"`
	NewEnrollmentID string              `json:"new_enrollment_id,omitempty"`
}

// PromotionSummary aggregates a promotion batch.
type PromotionSummary struct {
	Promoted  int               `json:"promoted"`
	Graduated int               `json:"graduated"`
	Failed    int               `json:"failed"`
	Results   []PromotionResult `json:"results"`
}

// AutoEnrollResult reports one orphaned student's outcome.
type AutoEnrollResult struct {
	StudentID    string `json:"student_id"`
	StudentName  string `json:"student_name,omitempty"`
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
	EnrollmentID string `json:"enrollment_id,omitempty"`
}

// AutoEnrollSummary aggregates an auto-enroll batch.
type AutoEnrollSummary struct {
	Enrolled int                `json:"enrolled"`
	Skipped  int                `json:"skipped"`
	Failed   int                `json:"failed"`
	Results  []AutoEnrollResult `json:"results"`
}
