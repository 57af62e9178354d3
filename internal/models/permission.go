package models

// Canonical permission keys recognised by the catalog. The catalog is
// seeded insert-missing at startup so re-seeding never clobbers rows.
const (
	PermManageAttendance       = "manage_attendance"
	PermLockAttendance         = "lock_attendance"
	PermManageAssignments      = "manage_assignments"
	PermReviewSubmissions      = "review_submissions"
	PermManageExams            = "manage_exams"
	PermManageEnrollment       = "manage_enrollment"
	PermReviewApplications     = "review_applications"
	PermManageFinance          = "manage_finance"
	PermViewReports            = "view_reports"
	PermManageSocialFeed       = "manage_social_feed"
	PermViewSocialFeed         = "view_social_feed"
	PermManageUsers            = "manage_users"
	PermManageAcademicStructure = "manage_academic_structure"
	PermViewOwnAttendance      = "view_own_attendance"
	PermViewOwnGrades          = "view_own_grades"
	PermSubmitAssignment       = "submit_assignment"
	PermViewChildAttendance    = "view_child_attendance"
)

// PermissionCatalog is the canonical seed list.
var PermissionCatalog = []Permission{
	{Key: PermManageAttendance, Label: "Manage attendance", Description: "Create attendance sessions and record entries"},
	{Key: PermLockAttendance, Label: "Lock attendance", Description: "Finalize submitted attendance sessions"},
	{Key: PermManageAssignments, Label: "Manage assignments", Description: "Create, publish and close assignments"},
	{Key: PermReviewSubmissions, Label: "Review submissions", Description: "Score and give feedback on student submissions"},
	{Key: PermManageExams, Label: "Manage exams", Description: "Create exams and enter marks"},
	{Key: PermManageEnrollment, Label: "Manage enrollment", Description: "Create and correct student enrollments"},
	{Key: PermReviewApplications, Label: "Review applications", Description: "Approve or reject enrollment applications"},
	{Key: PermManageFinance, Label: "Manage finance", Description: "Record invoices, payments and expenses"},
	{Key: PermViewReports, Label: "View reports", Description: "Access attendance and grade reports"},
	{Key: PermManageSocialFeed, Label: "Manage social feed", Description: "Post and remove feed entries"},
	{Key: PermViewSocialFeed, Label: "View social feed", Description: "Read the school feed"},
	{Key: PermManageUsers, Label: "Manage users", Description: "Administer user accounts in the school"},
	{Key: PermManageAcademicStructure, Label: "Manage academic structure", Description: "Maintain years, terms, classes and sections"},
}

// DefaultSubRoles are seeded per school with insert-missing semantics.
var DefaultSubRoles = []SubRole{
	{Key: "teacher", Name: "Teacher", IsSystem: true},
	{Key: "principal", Name: "Principal", IsSystem: true},
	{Key: "accountant", Name: "Accountant", IsSystem: true},
	{Key: "librarian", Name: "Librarian", IsSystem: true},
	{Key: "counselor", Name: "Counselor", IsSystem: true},
}

// roleAllowances are the fixed permission sets for non-staff roles.
// Employees consult sub-role grants instead; admins bypass checks.
var roleAllowances = map[UserRole]map[string]struct{}{
	RoleStudent: {
		PermViewSocialFeed:    {},
		PermViewOwnAttendance: {},
		PermViewOwnGrades:     {},
		PermSubmitAssignment:  {},
	},
	RoleParent: {
		PermViewSocialFeed:      {},
		PermViewChildAttendance: {},
		PermViewOwnGrades:       {},
	},
}

// RoleAllows reports whether a non-staff role carries the permission by
// default. Returns false for ADMIN and EMPLOYEE; they are resolved
// elsewhere.
func RoleAllows(role UserRole, permissionKey string) bool {
	allowed, ok := roleAllowances[role]
	if !ok {
		return false
	}
	_, ok = allowed[permissionKey]
	return ok
}
