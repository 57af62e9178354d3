package models

import "time"

// UserRole represents the available roles for authorization decisions.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleEmployee UserRole = "EMPLOYEE"
	RoleStudent  UserRole = "STUDENT"
	RoleParent   UserRole = "PARENT"
)

// Valid returns true when the role is a supported value.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployee, RoleStudent, RoleParent:
		return true
	default:
		return false
	}
}

// Staff reports whether the role belongs to school staff.
func (r UserRole) Staff() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// User represents an application user stored in the users table.
// SchoolID is nil only before enrollment or staff assignment; every
// school-scoped operation requires it to be set.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	SubRole      *string    `db:"sub_role" json:"sub_role,omitempty"`
	SchoolID     *string    `db:"school_id" json:"school_id,omitempty"`
	GradeLevel   *int       `db:"grade_level" json:"grade_level,omitempty"`
	ClassSection *string    `db:"class_section" json:"class_section,omitempty"`
	Active       bool       `db:"active" json:"active"`
	Verified     bool       `db:"verified" json:"verified"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	SchoolID  string
	Role      *UserRole
	SubRole   string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ParentChild links a parent account to a student account.
type ParentChild struct {
	ID          string    `db:"id" json:"id"`
	ParentUserID string   `db:"parent_user_id" json:"parent_user_id"`
	ChildUserID string    `db:"child_user_id" json:"child_user_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
