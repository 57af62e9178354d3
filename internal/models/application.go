package models

import "time"

// ApplicationType discriminates the enrollment application variants.
type ApplicationType string

const (
	ApplicationTypeStudentSelf   ApplicationType = "STUDENT_SELF"
	ApplicationTypeParentStudent ApplicationType = "PARENT_STUDENT"
	ApplicationTypeEmployee      ApplicationType = "EMPLOYEE"
)

// Valid returns true when the type is a supported value.
func (t ApplicationType) Valid() bool {
	switch t {
	case ApplicationTypeStudentSelf, ApplicationTypeParentStudent, ApplicationTypeEmployee:
		return true
	default:
		return false
	}
}

// ApplicationStatus is the review lifecycle of an application.
type ApplicationStatus string

const (
	ApplicationStatusSubmitted   ApplicationStatus = "SUBMITTED"
	ApplicationStatusUnderReview ApplicationStatus = "UNDER_REVIEW"
	ApplicationStatusApproved    ApplicationStatus = "APPROVED"
	ApplicationStatusRejected    ApplicationStatus = "REJECTED"
)

// Reviewable reports whether the application can still be decided.
func (s ApplicationStatus) Reviewable() bool {
	return s == ApplicationStatusSubmitted || s == ApplicationStatusUnderReview
}

// StudentSelfDetails carries the fields of a STUDENT_SELF application.
type StudentSelfDetails struct {
	ClassID   string  `json:"class_id"`
	SectionID *string `json:"section_id,omitempty"`
}

// ParentStudentDetails carries the fields of a PARENT_STUDENT
// application. Exactly one of PendingProfileID or ChildUserID is set.
type ParentStudentDetails struct {
	PendingProfileID *string `json:"pending_profile_id,omitempty"`
	ChildUserID      *string `json:"child_user_id,omitempty"`
	ClassID          string  `json:"class_id"`
	SectionID        *string `json:"section_id,omitempty"`
}

// EmployeeDetails carries the fields of an EMPLOYEE application. When
// SubRoleKey is empty, CustomSubRoleName names a sub-role to create.
type EmployeeDetails struct {
	SubRoleKey        *string `json:"sub_role_key,omitempty"`
	CustomSubRoleName *string `json:"custom_sub_role_name,omitempty"`
}

// EnrollmentApplication is a tagged union over the three intake
// variants; exactly one detail pointer is non-nil, matching Type.
type EnrollmentApplication struct {
	ID              string            `db:"id" json:"id"`
	SchoolID        string            `db:"school_id" json:"school_id"`
	Type            ApplicationType   `db:"type" json:"type"`
	Status          ApplicationStatus `db:"status" json:"status"`
	ApplicantUserID string            `db:"applicant_user_id" json:"applicant_user_id"`
	ReviewNotes     *string           `db:"review_notes" json:"review_notes,omitempty"`
	ReviewedBy      *string           `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time        `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`

	StudentSelf   *StudentSelfDetails   `db:"-" json:"student_self,omitempty"`
	ParentStudent *ParentStudentDetails `db:"-" json:"parent_student,omitempty"`
	Employee      *EmployeeDetails      `db:"-" json:"employee,omitempty"`
}

// ApplicationFilter scopes the admin review queue.
type ApplicationFilter struct {
	SchoolID string
	Type     ApplicationType
	Status   ApplicationStatus
	Page     int
	PageSize int
}

// PendingStudentProfile is a parent-registered child not yet linked to
// a user account. Conversion is one-time; the row is kept with
// ConvertedAt stamped rather than deleted.
type PendingStudentProfile struct {
	ID              string     `db:"id" json:"id"`
	ParentUserID    string     `db:"parent_user_id" json:"parent_user_id"`
	FullName        string     `db:"full_name" json:"full_name"`
	DateOfBirth     *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	ConvertedAt     *time.Time `db:"converted_at" json:"converted_at,omitempty"`
	ConvertedUserID *string    `db:"converted_user_id" json:"converted_user_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}
