package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-api/internal/middleware"
	"github.com/noah-isme/campus-api/internal/models"
	"github.com/noah-isme/campus-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth         *AuthHandler
	Users        *UserHandler
	Schools      *SchoolHandler
	Permissions  *PermissionHandler
	Academics    *AcademicHandler
	Attendance   *AttendanceHandler
	Assignments  *AssignmentHandler
	Exams        *ExamHandler
	Applications *ApplicationHandler
	Enrollments  *EnrollmentHandler
	Reports      *ReportHandler
	Feed         *FeedHandler
	Metrics      *MetricsHandler
}

// RegisterRoutes mounts the API surface on the engine. Authenticated
// routes run behind JWT; school-scoped routes additionally run behind
// the tenant guard so a token can only touch its own school.
func RegisterRoutes(r *gin.Engine, h Handlers, auth *service.AuthService, permissions *service.PermissionService) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group("/api/v1")

	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)

	authed := api.Group("")
	authed.Use(middleware.JWT(auth))

	authed.POST("/auth/logout", h.Auth.Logout)
	authed.POST("/auth/change-password", h.Auth.ChangePassword)
	authed.GET("/me", h.Users.Me)
	authed.GET("/me/children", h.Users.Children)

	// Pre-admission surface: applicants have no tenant yet.
	authed.GET("/schools", h.Schools.ListOpen)
	authed.POST("/schools", middleware.RequireRoles(models.RoleAdmin), h.Schools.Create)
	authed.GET("/permissions", h.Permissions.Catalog)

	applications := authed.Group("/applications")
	applications.POST("/children", middleware.RequireRoles(models.RoleParent), h.Applications.RegisterChild)
	applications.GET("/children", middleware.RequireRoles(models.RoleParent), h.Applications.ListChildren)
	applications.POST("/student", h.Applications.SubmitStudentSelf)
	applications.POST("/parent-student", h.Applications.SubmitParentStudent)
	applications.POST("/employee", h.Applications.SubmitEmployee)
	applications.GET("/mine", h.Applications.ListMine)

	school := authed.Group("/schools/:schoolId")
	school.Use(middleware.TenantGuard())

	school.GET("", h.Schools.Get)
	school.PATCH("/settings", middleware.RequireRoles(models.RoleAdmin), h.Schools.UpdateSettings)

	school.GET("/sub-roles", middleware.RequireRoles(models.RoleAdmin), h.Permissions.ListSubRoles)
	school.POST("/sub-roles", middleware.RequireRoles(models.RoleAdmin), h.Permissions.CreateSubRole)
	school.GET("/sub-roles/:key/grants", middleware.RequireRoles(models.RoleAdmin), h.Permissions.ListGrants)
	school.PUT("/sub-roles/:key/grants", middleware.RequireRoles(models.RoleAdmin), h.Permissions.UpdateGrants)

	school.GET("/users", middleware.RequirePermission(permissions, models.PermManageUsers), h.Users.List)
	school.GET("/users/:id", middleware.RequirePermission(permissions, models.PermManageUsers), h.Users.Get)
	school.PATCH("/users/:id/active", middleware.RequireRoles(models.RoleAdmin), h.Users.SetActive)

	academics := school.Group("")
	academics.Use(middleware.RequirePermission(permissions, models.PermManageAcademicStructure))
	academics.POST("/academic-years", h.Academics.CreateYear)
	academics.POST("/academic-years/:id/activate", h.Academics.ActivateYear)
	academics.POST("/terms", h.Academics.CreateTerm)
	academics.POST("/classes", h.Academics.CreateClass)
	academics.POST("/sections", h.Academics.CreateSection)

	school.GET("/academic-years", h.Academics.ListYears)
	school.GET("/academic-years/active", h.Academics.ActiveYear)
	school.GET("/terms", h.Academics.ListTerms)
	school.GET("/classes", h.Academics.ListClasses)
	school.GET("/sections", h.Academics.ListSections)

	attendance := school.Group("/attendance")
	attendance.POST("/sessions", middleware.RequirePermission(permissions, models.PermManageAttendance), h.Attendance.CreateSession)
	attendance.GET("/sessions", middleware.RequirePermission(permissions, models.PermManageAttendance), h.Attendance.ListSessions)
	attendance.GET("/sessions/:id", middleware.RequirePermission(permissions, models.PermManageAttendance), h.Attendance.GetSession)
	attendance.GET("/sessions/:id/roster", middleware.RequirePermission(permissions, models.PermManageAttendance), h.Attendance.Roster)
	attendance.PUT("/sessions/:id/entries", middleware.RequirePermission(permissions, models.PermManageAttendance), h.Attendance.RecordEntries)
	attendance.POST("/sessions/:id/submit", middleware.RequirePermission(permissions, models.PermManageAttendance), h.Attendance.Submit)
	// Locking is reserved for admins regardless of sub-role grants.
	attendance.POST("/sessions/:id/lock", middleware.RequireRoles(models.RoleAdmin), h.Attendance.Lock)
	attendance.GET("/sessions/:id/audit", middleware.RequireRoles(models.RoleAdmin), h.Attendance.AuditTrail)
	// Students and parents read their own history; the service enforces ownership.
	attendance.GET("/students/:studentId", h.Attendance.StudentHistory)

	assignments := school.Group("/assignments")
	assignments.POST("", middleware.RequirePermission(permissions, models.PermManageAssignments), h.Assignments.Create)
	assignments.GET("", h.Assignments.List)
	assignments.GET("/:id", h.Assignments.Get)
	assignments.POST("/:id/publish", middleware.RequirePermission(permissions, models.PermManageAssignments), h.Assignments.Publish)
	assignments.POST("/:id/close", middleware.RequirePermission(permissions, models.PermManageAssignments), h.Assignments.Close)
	assignments.POST("/:id/submissions", middleware.RequireRoles(models.RoleStudent), h.Assignments.Submit)
	assignments.GET("/:id/submissions", middleware.RequirePermission(permissions, models.PermReviewSubmissions), h.Assignments.ListSubmissions)
	assignments.GET("/:id/submissions/me", middleware.RequireRoles(models.RoleStudent), h.Assignments.MySubmission)
	assignments.POST("/:id/submissions/:submissionId/review", middleware.RequirePermission(permissions, models.PermReviewSubmissions), h.Assignments.Review)

	exams := school.Group("/exams")
	exams.POST("", middleware.RequirePermission(permissions, models.PermManageExams), h.Exams.Create)
	exams.GET("", h.Exams.List)
	exams.GET("/:id", h.Exams.Get)
	exams.PUT("/:id/marks", middleware.RequirePermission(permissions, models.PermManageExams), h.Exams.EnterMarks)
	exams.GET("/:id/marks", middleware.RequirePermission(permissions, models.PermManageExams), h.Exams.Marks)
	exams.POST("/:id/publish", middleware.RequirePermission(permissions, models.PermManageExams), h.Exams.Publish)
	exams.GET("/:id/results/:studentId", h.Exams.StudentResults)

	review := school.Group("/applications")
	review.Use(middleware.RequirePermission(permissions, models.PermReviewApplications))
	review.GET("", h.Applications.List)
	review.GET("/:id", h.Applications.Get)
	review.POST("/:id/review", h.Applications.StartReview)
	review.POST("/:id/approve", h.Applications.Approve)
	review.POST("/:id/reject", h.Applications.Reject)

	enrollments := school.Group("/enrollments")
	enrollments.POST("", middleware.RequirePermission(permissions, models.PermManageEnrollment), h.Enrollments.Enroll)
	enrollments.GET("", middleware.RequirePermission(permissions, models.PermManageEnrollment), h.Enrollments.List)
	enrollments.GET("/:id", middleware.RequirePermission(permissions, models.PermManageEnrollment), h.Enrollments.Get)
	enrollments.POST("/promote", middleware.RequireRoles(models.RoleAdmin), h.Enrollments.Promote)
	enrollments.POST("/auto-enroll", middleware.RequireRoles(models.RoleAdmin), h.Enrollments.AutoEnroll)

	reports := school.Group("/reports")
	// Per-student reports are role-gated inside the service.
	reports.GET("/attendance/students/:studentId", h.Reports.StudentAttendance)
	reports.GET("/attendance/students/:studentId/export", h.Reports.ExportStudentAttendance)
	reports.GET("/attendance/classes/:classId", middleware.RequirePermission(permissions, models.PermViewReports), h.Reports.ClassAttendance)
	reports.GET("/attendance/classes/:classId/export", middleware.RequirePermission(permissions, models.PermViewReports), h.Reports.ExportClassAttendance)
	reports.GET("/grades/classes/:classId", middleware.RequirePermission(permissions, models.PermViewReports), h.Reports.ClassGrades)
	reports.GET("/grades/classes/:classId/export", middleware.RequirePermission(permissions, models.PermViewReports), h.Reports.ExportClassGrades)

	// The feed surface is optional; deployments disable it by not wiring
	// the handler.
	if h.Feed != nil {
		feed := school.Group("/feed")
		feed.GET("", middleware.RequirePermission(permissions, models.PermViewSocialFeed), h.Feed.List)
		feed.POST("", middleware.RequirePermission(permissions, models.PermManageSocialFeed), h.Feed.Create)
		feed.POST("/:id/pin", middleware.RequirePermission(permissions, models.PermManageSocialFeed), h.Feed.Pin)
		feed.DELETE("/:id", h.Feed.Delete)
	}
}
