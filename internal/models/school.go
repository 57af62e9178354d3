package models

import "time"

// School is the tenant: the isolation boundary for all school-scoped data.
type School struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Motto   *string `db:"motto" json:"motto,omitempty"`
	LogoURL *string `db:"logo_url" json:"logo_url,omitempty"`

	EnrollmentOpen             bool `db:"enrollment_open" json:"enrollment_open"`
	StudentApplicationsEnabled bool `db:"student_applications_enabled" json:"student_applications_enabled"`
	ParentApplicationsEnabled  bool `db:"parent_applications_enabled" json:"parent_applications_enabled"`
	StaffApplicationsEnabled   bool `db:"staff_applications_enabled" json:"staff_applications_enabled"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AcceptsApplication reports whether self-service intake of the given
// type is currently open at this school.
func (s *School) AcceptsApplication(t ApplicationType) bool {
	if s == nil || !s.EnrollmentOpen {
		return false
	}
	switch t {
	case ApplicationTypeStudentSelf:
		return s.StudentApplicationsEnabled
	case ApplicationTypeParentStudent:
		return s.ParentApplicationsEnabled
	case ApplicationTypeEmployee:
		return s.StaffApplicationsEnabled
	default:
		return false
	}
}

// SubRole is a school-defined specialization of the EMPLOYEE role.
type SubRole struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	Key       string    `db:"key" json:"key"`
	Name      string    `db:"name" json:"name"`
	IsSystem  bool      `db:"is_system" json:"is_system"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Permission is a global catalog entry available for granting to sub-roles.
type Permission struct {
	Key         string `db:"key" json:"key"`
	Label       string `db:"label" json:"label"`
	Description string `db:"description" json:"description"`
}

// SubRolePermissionGrant links a sub-role to a permission within one school.
type SubRolePermissionGrant struct {
	ID            string    `db:"id" json:"id"`
	SchoolID      string    `db:"school_id" json:"school_id"`
	SubRoleKey    string    `db:"sub_role_key" json:"sub_role_key"`
	PermissionKey string    `db:"permission_key" json:"permission_key"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
