package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-api/internal/models"
	"github.com/noah-isme/campus-api/internal/repository"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
)

type applicationRepository interface {
	Create(ctx context.Context, app *models.EnrollmentApplication) error
	FindByID(ctx context.Context, id, schoolID string) (*models.EnrollmentApplication, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.EnrollmentApplication, int, error)
	ListByApplicant(ctx context.Context, applicantUserID string) ([]models.EnrollmentApplication, error)
	HasOpenApplication(ctx context.Context, applicantUserID, schoolID string) (bool, error)
	MarkUnderReview(ctx context.Context, id, reviewerID string) (bool, error)
	MarkRejected(ctx context.Context, id, reviewerID string, notes *string) (bool, error)
	ApproveStudentSelf(ctx context.Context, params repository.StudentSelfApprovalParams) (bool, error)
	ApproveParentStudent(ctx context.Context, params repository.ParentStudentApprovalParams) (bool, error)
	ApproveEmployee(ctx context.Context, params repository.EmployeeApprovalParams) (bool, error)
	CreatePendingProfile(ctx context.Context, profile *models.PendingStudentProfile) error
	FindPendingProfile(ctx context.Context, id string) (*models.PendingStudentProfile, error)
	ListPendingByParent(ctx context.Context, parentUserID string) ([]models.PendingStudentProfile, error)
}

type applicationSchoolRepository interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

type applicationClassRepository interface {
	FindByID(ctx context.Context, id, schoolID string) (*models.SchoolClass, error)
	FindSectionByID(ctx context.Context, id, schoolID string) (*models.ClassSection, error)
}

type applicationUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	IsParentOf(ctx context.Context, parentUserID, childUserID string) (bool, error)
}

type applicationYearRepository interface {
	FindActiveYear(ctx context.Context, schoolID string) (*models.AcademicYear, error)
}

type applicationSubRoleRepository interface {
	FindSubRoleByKey(ctx context.Context, schoolID, key string) (*models.SubRole, error)
}

type applicationEnrollmentChecker interface {
	ExistsForYear(ctx context.Context, studentID, academicYearID string) (bool, error)
}

// ApplicationService handles enrollment application intake and review.
// Approval side effects are transactional: the status flip, account
// and sub-role creation, parent links and enrollment all commit or
// roll back together, so an application can never be approved twice.
type ApplicationService struct {
	repo        applicationRepository
	schools     applicationSchoolRepository
	classes     applicationClassRepository
	users       applicationUserRepository
	years       applicationYearRepository
	subRoles    applicationSubRoleRepository
	enrollments applicationEnrollmentChecker
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewApplicationService constructs an ApplicationService instance.
func NewApplicationService(
	repo applicationRepository,
	schools applicationSchoolRepository,
	classes applicationClassRepository,
	users applicationUserRepository,
	years applicationYearRepository,
	subRoles applicationSubRoleRepository,
	enrollments applicationEnrollmentChecker,
	validate *validator.Validate,
	logger *zap.Logger,
) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ApplicationService{
		repo:        repo,
		schools:     schools,
		classes:     classes,
		users:       users,
		years:       years,
		subRoles:    subRoles,
		enrollments: enrollments,
		validator:   validate,
		logger:      logger,
	}
}

// RegisterChildRequest registers a child without an account yet.
type RegisterChildRequest struct {
	FullName    string     `json:"full_name" validate:"required"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
}

// RegisterChild creates a pending student profile for a parent.
func (s *ApplicationService) RegisterChild(ctx context.Context, parentUserID string, req RegisterChildRequest) (*models.PendingStudentProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid child payload")
	}

	profile := &models.PendingStudentProfile{
		ParentUserID: parentUserID,
		FullName:     req.FullName,
		DateOfBirth:  req.DateOfBirth,
	}
	if err := s.repo.CreatePendingProfile(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create pending profile")
	}
	return profile, nil
}

// ListChildren returns the pending profiles of a parent.
func (s *ApplicationService) ListChildren(ctx context.Context, parentUserID string) ([]models.PendingStudentProfile, error) {
	profiles, err := s.repo.ListPendingByParent(ctx, parentUserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending profiles")
	}
	return profiles, nil
}

// SubmitStudentSelfRequest is the STUDENT_SELF intake payload.
type SubmitStudentSelfRequest struct {
	SchoolID  string  `json:"school_id" validate:"required,uuid"`
	ClassID   string  `json:"class_id" validate:"required,uuid"`
	SectionID *string `json:"section_id,omitempty" validate:"omitempty,uuid"`
}

// SubmitStudentSelf files an application by an unattached student.
func (s *ApplicationService) SubmitStudentSelf(ctx context.Context, claims *models.JWTClaims, req SubmitStudentSelfRequest) (*models.EnrollmentApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	if claims.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students may file this application type")
	}
	if claims.HasSchool() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "account is already attached to a school")
	}

	if err := s.checkIntake(ctx, req.SchoolID, models.ApplicationTypeStudentSelf, claims.UserID); err != nil {
		return nil, err
	}
	if err := s.checkPlacement(ctx, req.SchoolID, req.ClassID, req.SectionID); err != nil {
		return nil, err
	}

	app := &models.EnrollmentApplication{
		SchoolID:        req.SchoolID,
		Type:            models.ApplicationTypeStudentSelf,
		ApplicantUserID: claims.UserID,
		StudentSelf: &models.StudentSelfDetails{
			ClassID:   req.ClassID,
			SectionID: req.SectionID,
		},
	}
	if err := s.repo.Create(ctx, app); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}
	return app, nil
}

// SubmitParentStudentRequest is the PARENT_STUDENT intake payload.
// Exactly one of PendingProfileID or ChildUserID must be set.
type SubmitParentStudentRequest struct {
	SchoolID         string  `json:"school_id" validate:"required,uuid"`
	PendingProfileID *string `json:"pending_profile_id,omitempty" validate:"omitempty,uuid"`
	ChildUserID      *string `json:"child_user_id,omitempty" validate:"omitempty,uuid"`
	ClassID          string  `json:"class_id" validate:"required,uuid"`
	SectionID        *string `json:"section_id,omitempty" validate:"omitempty,uuid"`
}

// SubmitParentStudent files an application by a parent on behalf of a
// child, either a pending profile or an existing linked student.
func (s *ApplicationService) SubmitParentStudent(ctx context.Context, claims *models.JWTClaims, req SubmitParentStudentRequest) (*models.EnrollmentApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	if claims.Role != models.RoleParent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only parents may file this application type")
	}
	if (req.PendingProfileID == nil) == (req.ChildUserID == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exactly one of pending_profile_id or child_user_id is required")
	}

	if err := s.checkIntake(ctx, req.SchoolID, models.ApplicationTypeParentStudent, claims.UserID); err != nil {
		return nil, err
	}
	if err := s.checkPlacement(ctx, req.SchoolID, req.ClassID, req.SectionID); err != nil {
		return nil, err
	}

	if req.PendingProfileID != nil {
		profile, err := s.repo.FindPendingProfile(ctx, *req.PendingProfileID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "pending profile not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending profile")
		}
		if profile.ParentUserID != claims.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "pending profile belongs to another parent")
		}
		if profile.ConvertedAt != nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "pending profile is already converted")
		}
	} else {
		linked, err := s.users.IsParentOf(ctx, claims.UserID, *req.ChildUserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check parent link")
		}
		if !linked {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "child is not linked to this parent")
		}
	}

	app := &models.EnrollmentApplication{
		SchoolID:        req.SchoolID,
		Type:            models.ApplicationTypeParentStudent,
		ApplicantUserID: claims.UserID,
		ParentStudent: &models.ParentStudentDetails{
			PendingProfileID: req.PendingProfileID,
			ChildUserID:      req.ChildUserID,
			ClassID:          req.ClassID,
			SectionID:        req.SectionID,
		},
	}
	if err := s.repo.Create(ctx, app); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}
	return app, nil
}

// SubmitEmployeeRequest is the EMPLOYEE intake payload. SubRoleKey
// names an existing sub-role; CustomSubRoleName proposes a new one.
type SubmitEmployeeRequest struct {
	SchoolID          string  `json:"school_id" validate:"required,uuid"`
	SubRoleKey        *string `json:"sub_role_key,omitempty"`
	CustomSubRoleName *string `json:"custom_sub_role_name,omitempty"`
}

// SubmitEmployee files a staff application by an unattached account.
func (s *ApplicationService) SubmitEmployee(ctx context.Context, claims *models.JWTClaims, req SubmitEmployeeRequest) (*models.EnrollmentApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	if claims.HasSchool() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "account is already attached to a school")
	}
	if (req.SubRoleKey == nil) == (req.CustomSubRoleName == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exactly one of sub_role_key or custom_sub_role_name is required")
	}

	if err := s.checkIntake(ctx, req.SchoolID, models.ApplicationTypeEmployee, claims.UserID); err != nil {
		return nil, err
	}

	if req.SubRoleKey != nil {
		if _, err := s.subRoles.FindSubRoleByKey(ctx, req.SchoolID, *req.SubRoleKey); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "sub-role not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sub-role")
		}
	}

	app := &models.EnrollmentApplication{
		SchoolID:        req.SchoolID,
		Type:            models.ApplicationTypeEmployee,
		ApplicantUserID: claims.UserID,
		Employee: &models.EmployeeDetails{
			SubRoleKey:        req.SubRoleKey,
			CustomSubRoleName: req.CustomSubRoleName,
		},
	}
	if err := s.repo.Create(ctx, app); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}
	return app, nil
}

// ListMine returns the caller's own applications.
func (s *ApplicationService) ListMine(ctx context.Context, applicantUserID string) ([]models.EnrollmentApplication, error) {
	apps, err := s.repo.ListByApplicant(ctx, applicantUserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return apps, nil
}

// List returns the review queue for staff.
func (s *ApplicationService) List(ctx context.Context, filter models.ApplicationFilter) ([]models.EnrollmentApplication, int, error) {
	apps, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return apps, total, nil
}

// Get returns one application scoped to a school.
func (s *ApplicationService) Get(ctx context.Context, id, schoolID string) (*models.EnrollmentApplication, error) {
	app, err := s.repo.FindByID(ctx, id, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return app, nil
}

// StartReview moves SUBMITTED to UNDER_REVIEW.
func (s *ApplicationService) StartReview(ctx context.Context, id, schoolID, reviewerID string) (*models.EnrollmentApplication, error) {
	if _, err := s.Get(ctx, id, schoolID); err != nil {
		return nil, err
	}
	ok, err := s.repo.MarkUnderReview(ctx, id, reviewerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start review")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "application is not in submitted state")
	}
	return s.Get(ctx, id, schoolID)
}

// ReviewDecisionRequest carries the reviewer decision notes.
type ReviewDecisionRequest struct {
	Notes *string `json:"notes,omitempty"`
}

// Reject closes a reviewable application as REJECTED.
func (s *ApplicationService) Reject(ctx context.Context, id, schoolID, reviewerID string, req ReviewDecisionRequest) (*models.EnrollmentApplication, error) {
	if _, err := s.Get(ctx, id, schoolID); err != nil {
		return nil, err
	}
	ok, err := s.repo.MarkRejected(ctx, id, reviewerID, req.Notes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject application")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "application is already decided")
	}
	return s.Get(ctx, id, schoolID)
}

// Approve applies the type-specific side effects and closes the
// application as APPROVED in one transaction.
func (s *ApplicationService) Approve(ctx context.Context, id, schoolID, reviewerID string, req ReviewDecisionRequest) (*models.EnrollmentApplication, error) {
	app, err := s.Get(ctx, id, schoolID)
	if err != nil {
		return nil, err
	}
	if !app.Status.Reviewable() {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "application is already decided")
	}

	var ok bool
	switch app.Type {
	case models.ApplicationTypeStudentSelf:
		ok, err = s.approveStudentSelf(ctx, app, reviewerID, req.Notes)
	case models.ApplicationTypeParentStudent:
		ok, err = s.approveParentStudent(ctx, app, reviewerID, req.Notes)
	case models.ApplicationTypeEmployee:
		ok, err = s.approveEmployee(ctx, app, reviewerID, req.Notes)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown application type")
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "application was decided by another reviewer")
	}
	return s.Get(ctx, id, schoolID)
}

func (s *ApplicationService) approveStudentSelf(ctx context.Context, app *models.EnrollmentApplication, reviewerID string, notes *string) (bool, error) {
	details := app.StudentSelf
	if details == nil {
		return false, appErrors.Clone(appErrors.ErrInternal, "application is missing student details")
	}

	year, class, sectionName, err := s.resolvePlacement(ctx, app.SchoolID, details.ClassID, details.SectionID)
	if err != nil {
		return false, err
	}

	params := repository.StudentSelfApprovalParams{
		ApplicationID: app.ID,
		ReviewerID:    reviewerID,
		ReviewNotes:   notes,
		StudentID:     app.ApplicantUserID,
		SchoolID:      app.SchoolID,
		GradeLevel:    class.GradeLevel,
		SectionName:   sectionName,
	}

	// Without an active year the student is still attached and placed;
	// the enrollment row is created later by auto-enroll.
	if year != nil {
		already, err := s.enrollments.ExistsForYear(ctx, app.ApplicantUserID, year.ID)
		if err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if already {
			return false, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in the active year")
		}
		params.Enrollment = &models.StudentEnrollment{
			SchoolID:       app.SchoolID,
			StudentID:      app.ApplicantUserID,
			AcademicYearID: year.ID,
			ClassID:        class.ID,
			SectionID:      details.SectionID,
		}
	}

	ok, err := s.repo.ApproveStudentSelf(ctx, params)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve application")
	}
	return ok, nil
}

func (s *ApplicationService) approveParentStudent(ctx context.Context, app *models.EnrollmentApplication, reviewerID string, notes *string) (bool, error) {
	details := app.ParentStudent
	if details == nil {
		return false, appErrors.Clone(appErrors.ErrInternal, "application is missing parent-student details")
	}

	year, class, sectionName, err := s.resolvePlacement(ctx, app.SchoolID, details.ClassID, details.SectionID)
	if err != nil {
		return false, err
	}
	// Converting a pending profile must produce an enrollment row, so
	// this variant cannot be approved without an active year.
	if year == nil {
		return false, appErrors.Clone(appErrors.ErrStateConflict, "school has no active academic year")
	}

	params := repository.ParentStudentApprovalParams{
		ApplicationID:    app.ID,
		ReviewerID:       reviewerID,
		ReviewNotes:      notes,
		ParentUserID:     app.ApplicantUserID,
		PendingProfileID: details.PendingProfileID,
		GradeLevel:       class.GradeLevel,
		SectionName:      sectionName,
	}

	var studentID string
	if details.ChildUserID != nil {
		studentID = *details.ChildUserID
	} else {
		profile, err := s.repo.FindPendingProfile(ctx, *details.PendingProfileID)
		if err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending profile")
		}
		if profile.ConvertedAt != nil {
			return false, appErrors.Clone(appErrors.ErrConflict, "pending profile is already converted")
		}
		newUser, err := s.provisionChildAccount(profile)
		if err != nil {
			return false, err
		}
		params.NewChildUser = newUser
		studentID = newUser.ID
	}

	already, err := s.enrollments.ExistsForYear(ctx, studentID, year.ID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if already {
		return false, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in the active year")
	}

	params.Enrollment = &models.StudentEnrollment{
		SchoolID:       app.SchoolID,
		StudentID:      studentID,
		AcademicYearID: year.ID,
		ClassID:        class.ID,
		SectionID:      details.SectionID,
	}

	ok, err := s.repo.ApproveParentStudent(ctx, params)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve application")
	}
	return ok, nil
}

func (s *ApplicationService) approveEmployee(ctx context.Context, app *models.EnrollmentApplication, reviewerID string, notes *string) (bool, error) {
	details := app.Employee
	if details == nil {
		return false, appErrors.Clone(appErrors.ErrInternal, "application is missing employee details")
	}

	params := repository.EmployeeApprovalParams{
		ApplicationID: app.ID,
		ReviewerID:    reviewerID,
		ReviewNotes:   notes,
		ApplicantID:   app.ApplicantUserID,
		SchoolID:      app.SchoolID,
	}

	switch {
	case details.SubRoleKey != nil:
		subRole, err := s.subRoles.FindSubRoleByKey(ctx, app.SchoolID, *details.SubRoleKey)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, appErrors.Clone(appErrors.ErrNotFound, "sub-role not found")
			}
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sub-role")
		}
		params.SubRoleKey = subRole.Key
	case details.CustomSubRoleName != nil:
		key := slugifySubRoleKey(*details.CustomSubRoleName)
		if existing, err := s.subRoles.FindSubRoleByKey(ctx, app.SchoolID, key); err == nil {
			params.SubRoleKey = existing.Key
		} else if errors.Is(err, sql.ErrNoRows) {
			params.SubRoleKey = key
			params.NewSubRole = &models.SubRole{
				ID:       uuid.NewString(),
				SchoolID: app.SchoolID,
				Key:      key,
				Name:     *details.CustomSubRoleName,
			}
		} else {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check sub-role")
		}
	default:
		return false, appErrors.Clone(appErrors.ErrInternal, "application names no sub-role")
	}

	ok, err := s.repo.ApproveEmployee(ctx, params)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve application")
	}
	return ok, nil
}

func (s *ApplicationService) checkIntake(ctx context.Context, schoolID string, appType models.ApplicationType, applicantID string) error {
	school, err := s.schools.FindByID(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	if !school.AcceptsApplication(appType) {
		return appErrors.Clone(appErrors.ErrForbidden, "school is not accepting this application type")
	}

	open, err := s.repo.HasOpenApplication(ctx, applicantID, schoolID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check open applications")
	}
	if open {
		return appErrors.Clone(appErrors.ErrConflict, "an application is already pending at this school")
	}
	return nil
}

func (s *ApplicationService) checkPlacement(ctx context.Context, schoolID, classID string, sectionID *string) error {
	if _, err := s.classes.FindByID(ctx, classID, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if sectionID != nil {
		section, err := s.classes.FindSectionByID(ctx, *sectionID, schoolID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "section not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
		}
		if section.ClassID != classID {
			return appErrors.Clone(appErrors.ErrValidation, "section does not belong to the class")
		}
	}
	return nil
}

// resolvePlacement loads the class and section of an approval. The
// returned year is nil when the school has no active academic year;
// callers decide whether that blocks the approval.
func (s *ApplicationService) resolvePlacement(ctx context.Context, schoolID, classID string, sectionID *string) (*models.AcademicYear, *models.SchoolClass, *string, error) {
	year, err := s.years.FindActiveYear(ctx, schoolID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active year")
		}
		year = nil
	}

	class, err := s.classes.FindByID(ctx, classID, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	var sectionName *string
	if sectionID != nil {
		section, err := s.classes.FindSectionByID(ctx, *sectionID, schoolID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
			}
			return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
		}
		sectionName = &section.Name
	}
	return year, class, sectionName, nil
}

// provisionChildAccount builds the student account for a converted
// pending profile. The placeholder credentials are unusable until an
// admin resets them.
func (s *ApplicationService) provisionChildAccount(profile *models.PendingStudentProfile) (*models.User, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate credentials")
	}
	hash, err := bcrypt.GenerateFromPassword(buf, bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash credentials")
	}

	id := uuid.NewString()
	return &models.User{
		ID:           id,
		Email:        fmt.Sprintf("student-%s@accounts.campus.local", hex.EncodeToString(buf[:4])),
		PasswordHash: string(hash),
		FullName:     profile.FullName,
		Role:         models.RoleStudent,
		Active:       true,
	}, nil
}

func slugifySubRoleKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.Join(strings.Fields(key), "_")
	return key
}
