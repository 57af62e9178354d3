package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-api/internal/models"
	"github.com/noah-isme/campus-api/internal/repository"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
)

const (
	testSchoolID  = "6a1f2b3c-4d5e-4f60-8a7b-9c0d1e2f3a4b"
	testClassID   = "7b2a3c4d-5e6f-4a70-9b8c-0d1e2f3a4b5c"
	testProfileID = "8c3b4d5e-6f70-4b81-8c9d-1e2f3a4b5c6d"
	testChildID   = "9d4c5e6f-7081-4c92-9dae-2f3a4b5c6e7f"
)

type applicationRepoStub struct {
	apps     map[string]*models.EnrollmentApplication
	profiles map[string]*models.PendingStudentProfile
	open     bool
	decided  bool

	created []models.ApplicationType

	studentSelfParams   *repository.StudentSelfApprovalParams
	parentStudentParams *repository.ParentStudentApprovalParams
	employeeParams      *repository.EmployeeApprovalParams
}

func newApplicationRepoStub() *applicationRepoStub {
	return &applicationRepoStub{
		apps:     map[string]*models.EnrollmentApplication{},
		profiles: map[string]*models.PendingStudentProfile{},
	}
}

func (s *applicationRepoStub) Create(ctx context.Context, app *models.EnrollmentApplication) error {
	app.ID = "app-new"
	app.Status = models.ApplicationStatusSubmitted
	s.apps[app.ID] = app
	s.created = append(s.created, app.Type)
	return nil
}

func (s *applicationRepoStub) FindByID(ctx context.Context, id, schoolID string) (*models.EnrollmentApplication, error) {
	app, ok := s.apps[id]
	if !ok || app.SchoolID != schoolID {
		return nil, sql.ErrNoRows
	}
	copied := *app
	return &copied, nil
}

func (s *applicationRepoStub) List(ctx context.Context, filter models.ApplicationFilter) ([]models.EnrollmentApplication, int, error) {
	return nil, 0, nil
}

func (s *applicationRepoStub) ListByApplicant(ctx context.Context, applicantUserID string) ([]models.EnrollmentApplication, error) {
	return nil, nil
}

func (s *applicationRepoStub) HasOpenApplication(ctx context.Context, applicantUserID, schoolID string) (bool, error) {
	return s.open, nil
}

func (s *applicationRepoStub) MarkUnderReview(ctx context.Context, id, reviewerID string) (bool, error) {
	app := s.apps[id]
	if app.Status != models.ApplicationStatusSubmitted {
		return false, nil
	}
	app.Status = models.ApplicationStatusUnderReview
	return true, nil
}

func (s *applicationRepoStub) MarkRejected(ctx context.Context, id, reviewerID string, notes *string) (bool, error) {
	app := s.apps[id]
	if !app.Status.Reviewable() {
		return false, nil
	}
	app.Status = models.ApplicationStatusRejected
	app.ReviewNotes = notes
	return true, nil
}

func (s *applicationRepoStub) ApproveStudentSelf(ctx context.Context, params repository.StudentSelfApprovalParams) (bool, error) {
	if s.decided {
		return false, nil
	}
	s.studentSelfParams = &params
	s.apps[params.ApplicationID].Status = models.ApplicationStatusApproved
	return true, nil
}

func (s *applicationRepoStub) ApproveParentStudent(ctx context.Context, params repository.ParentStudentApprovalParams) (bool, error) {
	if s.decided {
		return false, nil
	}
	s.parentStudentParams = &params
	s.apps[params.ApplicationID].Status = models.ApplicationStatusApproved
	return true, nil
}

func (s *applicationRepoStub) ApproveEmployee(ctx context.Context, params repository.EmployeeApprovalParams) (bool, error) {
	if s.decided {
		return false, nil
	}
	s.employeeParams = &params
	s.apps[params.ApplicationID].Status = models.ApplicationStatusApproved
	return true, nil
}

func (s *applicationRepoStub) CreatePendingProfile(ctx context.Context, profile *models.PendingStudentProfile) error {
	profile.ID = testProfileID
	s.profiles[profile.ID] = profile
	return nil
}

func (s *applicationRepoStub) FindPendingProfile(ctx context.Context, id string) (*models.PendingStudentProfile, error) {
	profile, ok := s.profiles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *profile
	return &copied, nil
}

func (s *applicationRepoStub) ListPendingByParent(ctx context.Context, parentUserID string) ([]models.PendingStudentProfile, error) {
	var out []models.PendingStudentProfile
	for _, p := range s.profiles {
		if p.ParentUserID == parentUserID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type appSchoolStub struct {
	school *models.School
}

func (s appSchoolStub) FindByID(ctx context.Context, id string) (*models.School, error) {
	if s.school == nil || s.school.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.school, nil
}

type appClassStub struct {
	classes  map[string]*models.SchoolClass
	sections map[string]*models.ClassSection
}

func (s appClassStub) FindByID(ctx context.Context, id, schoolID string) (*models.SchoolClass, error) {
	class, ok := s.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return class, nil
}

func (s appClassStub) FindSectionByID(ctx context.Context, id, schoolID string) (*models.ClassSection, error) {
	section, ok := s.sections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return section, nil
}

type appUserStub struct {
	linked map[string]string
}

func (s appUserStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	return &models.User{ID: id}, nil
}

func (s appUserStub) IsParentOf(ctx context.Context, parentUserID, childUserID string) (bool, error) {
	return s.linked[parentUserID] == childUserID, nil
}

type appYearStub struct {
	year *models.AcademicYear
}

func (s appYearStub) FindActiveYear(ctx context.Context, schoolID string) (*models.AcademicYear, error) {
	if s.year == nil {
		return nil, sql.ErrNoRows
	}
	return s.year, nil
}

type appSubRoleStub struct {
	subRoles map[string]*models.SubRole
}

func (s appSubRoleStub) FindSubRoleByKey(ctx context.Context, schoolID, key string) (*models.SubRole, error) {
	sr, ok := s.subRoles[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return sr, nil
}

type appEnrollmentStub struct {
	enrolled bool
}

func (s appEnrollmentStub) ExistsForYear(ctx context.Context, studentID, academicYearID string) (bool, error) {
	return s.enrolled, nil
}

type applicationFixture struct {
	repo        *applicationRepoStub
	school      *models.School
	enrollments *appEnrollmentStub
	svc         *ApplicationService
}

func newApplicationFixture() *applicationFixture {
	return newApplicationFixtureWithYear(&models.AcademicYear{ID: "year-1", SchoolID: testSchoolID, IsActive: true})
}

func newApplicationFixtureWithYear(year *models.AcademicYear) *applicationFixture {
	repo := newApplicationRepoStub()
	school := &models.School{
		ID:                         testSchoolID,
		Name:                       "Northside Academy",
		EnrollmentOpen:             true,
		StudentApplicationsEnabled: true,
		ParentApplicationsEnabled:  true,
		StaffApplicationsEnabled:   true,
	}
	enrollments := &appEnrollmentStub{}
	svc := NewApplicationService(
		repo,
		appSchoolStub{school: school},
		appClassStub{
			classes:  map[string]*models.SchoolClass{testClassID: {ID: testClassID, SchoolID: testSchoolID, Name: "Grade 7", GradeLevel: 7}},
			sections: map[string]*models.ClassSection{},
		},
		appUserStub{linked: map[string]string{"parent-1": testChildID}},
		appYearStub{year: year},
		appSubRoleStub{subRoles: map[string]*models.SubRole{"teacher": {Key: "teacher", Name: "Teacher", SchoolID: testSchoolID}}},
		enrollments,
		nil, nil,
	)
	return &applicationFixture{repo: repo, school: school, enrollments: enrollments, svc: svc}
}

func strPtr(s string) *string { return &s }

func TestSubmitStudentSelfGuards(t *testing.T) {
	fx := newApplicationFixture()
	ctx := context.Background()
	req := SubmitStudentSelfRequest{SchoolID: testSchoolID, ClassID: testClassID}

	_, err := fx.svc.SubmitStudentSelf(ctx, &models.JWTClaims{UserID: "par-1", Role: models.RoleParent}, req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = fx.svc.SubmitStudentSelf(ctx, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent, SchoolID: testSchoolID}, req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	fx.school.EnrollmentOpen = false
	_, err = fx.svc.SubmitStudentSelf(ctx, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}, req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	fx.school.EnrollmentOpen = true

	fx.repo.open = true
	_, err = fx.svc.SubmitStudentSelf(ctx, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}, req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	fx.repo.open = false

	app, err := fx.svc.SubmitStudentSelf(ctx, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}, req)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusSubmitted, app.Status)
	require.NotNil(t, app.StudentSelf)
	assert.Equal(t, testClassID, app.StudentSelf.ClassID)
}

func TestSubmitParentStudentExactlyOneChildRef(t *testing.T) {
	fx := newApplicationFixture()
	ctx := context.Background()
	claims := &models.JWTClaims{UserID: "parent-1", Role: models.RoleParent}

	_, err := fx.svc.SubmitParentStudent(ctx, claims, SubmitParentStudentRequest{
		SchoolID: testSchoolID,
		ClassID:  testClassID,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = fx.svc.SubmitParentStudent(ctx, claims, SubmitParentStudentRequest{
		SchoolID:         testSchoolID,
		ClassID:          testClassID,
		PendingProfileID: strPtr(testProfileID),
		ChildUserID:      strPtr(testChildID),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fx.repo.created)
}

func TestSubmitParentStudentOwnershipChecks(t *testing.T) {
	fx := newApplicationFixture()
	ctx := context.Background()
	fx.repo.profiles[testProfileID] = &models.PendingStudentProfile{
		ID:           testProfileID,
		ParentUserID: "parent-2",
		FullName:     "Sam Doe",
	}

	_, err := fx.svc.SubmitParentStudent(ctx, &models.JWTClaims{UserID: "parent-1", Role: models.RoleParent}, SubmitParentStudentRequest{
		SchoolID:         testSchoolID,
		ClassID:          testClassID,
		PendingProfileID: strPtr(testProfileID),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = fx.svc.SubmitParentStudent(ctx, &models.JWTClaims{UserID: "parent-2", Role: models.RoleParent}, SubmitParentStudentRequest{
		SchoolID:    testSchoolID,
		ClassID:     testClassID,
		ChildUserID: strPtr(testChildID),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	app, err := fx.svc.SubmitParentStudent(ctx, &models.JWTClaims{UserID: "parent-1", Role: models.RoleParent}, SubmitParentStudentRequest{
		SchoolID:    testSchoolID,
		ClassID:     testClassID,
		ChildUserID: strPtr(testChildID),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationTypeParentStudent, app.Type)
}

func TestSubmitEmployeeSubRoleResolution(t *testing.T) {
	fx := newApplicationFixture()
	ctx := context.Background()
	claims := &models.JWTClaims{UserID: "emp-1", Role: models.RoleEmployee}

	_, err := fx.svc.SubmitEmployee(ctx, claims, SubmitEmployeeRequest{SchoolID: testSchoolID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = fx.svc.SubmitEmployee(ctx, claims, SubmitEmployeeRequest{
		SchoolID:   testSchoolID,
		SubRoleKey: strPtr("janitor"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	app, err := fx.svc.SubmitEmployee(ctx, claims, SubmitEmployeeRequest{
		SchoolID:   testSchoolID,
		SubRoleKey: strPtr("teacher"),
	})
	require.NoError(t, err)
	require.NotNil(t, app.Employee)
	assert.Equal(t, "teacher", *app.Employee.SubRoleKey)
}

func TestApproveStudentSelfEnrolls(t *testing.T) {
	fx := newApplicationFixture()
	ctx := context.Background()
	fx.repo.apps["app-1"] = &models.EnrollmentApplication{
		ID:              "app-1",
		SchoolID:        testSchoolID,
		Type:            models.ApplicationTypeStudentSelf,
		Status:          models.ApplicationStatusUnderReview,
		ApplicantUserID: "stu-1",
		StudentSelf:     &models.StudentSelfDetails{ClassID: testClassID},
	}

	approved, err := fx.svc.Approve(ctx, "app-1", testSchoolID, "admin-1", ReviewDecisionRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApproved, approved.Status)
	require.NotNil(t, fx.repo.studentSelfParams)
	assert.Equal(t, "stu-1", fx.repo.studentSelfParams.Enrollment.StudentID)
	assert.Equal(t, "year-1", fx.repo.studentSelfParams.Enrollment.AcademicYearID)
	assert.Equal(t, 7, fx.repo.studentSelfParams.GradeLevel)

	// Approving twice must conflict on the status check.
	_, err = fx.svc.Approve(ctx, "app-1", testSchoolID, "admin-1", ReviewDecisionRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestApproveStudentSelfAlreadyEnrolled(t *testing.T) {
	fx := newApplicationFixture()
	ctx := context.Background()
	fx.enrollments.enrolled = true
	fx.repo.apps["app-1"] = &models.EnrollmentApplication{
		ID:              "app-1",
		SchoolID:        testSchoolID,
		Type:            models.ApplicationTypeStudentSelf,
		Status:          models.ApplicationStatusSubmitted,
		ApplicantUserID: "stu-1",
		StudentSelf:     &models.StudentSelfDetails{ClassID: testClassID},
	}

	_, err := fx.svc.Approve(ctx, "app-1", testSchoolID, "admin-1", ReviewDecisionRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Nil(t, fx.repo.studentSelfParams)
}

func TestApproveStudentSelfNoActiveYearPlacesStudent(t *testing.T) {
	fx := newApplicationFixtureWithYear(nil)
	ctx := context.Background()
	fx.repo.apps["app-1"] = &models.EnrollmentApplication{
		ID:              "app-1",
		SchoolID:        testSchoolID,
		Type:            models.ApplicationTypeStudentSelf,
		Status:          models.ApplicationStatusSubmitted,
		ApplicantUserID: "stu-1",
		StudentSelf:     &models.StudentSelfDetails{ClassID: testClassID},
	}

	// The student is attached and placed even without an active year;
	// only the enrollment row is skipped.
	approved, err := fx.svc.Approve(ctx, "app-1", testSchoolID, "admin-1", ReviewDecisionRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApproved, approved.Status)
	require.NotNil(t, fx.repo.studentSelfParams)
	assert.Nil(t, fx.repo.studentSelfParams.Enrollment)
	assert.Equal(t, "stu-1", fx.repo.studentSelfParams.StudentID)
	assert.Equal(t, testSchoolID, fx.repo.studentSelfParams.SchoolID)
	assert.Equal(t, 7, fx.repo.studentSelfParams.GradeLevel)
}

func TestApproveParentStudentRequiresActiveYear(t *testing.T) {
	fx := newApplicationFixtureWithYear(nil)
	ctx := context.Background()
	fx.repo.apps["app-1"] = &models.EnrollmentApplication{
		ID:              "app-1",
		SchoolID:        testSchoolID,
		Type:            models.ApplicationTypeParentStudent,
		Status:          models.ApplicationStatusSubmitted,
		ApplicantUserID: "parent-1",
		ParentStudent:   &models.ParentStudentDetails{ChildUserID: strPtr(testChildID), ClassID: testClassID},
	}

	_, err := fx.svc.Approve(ctx, "app-1", testSchoolID, "admin-1", ReviewDecisionRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
	assert.Nil(t, fx.repo.parentStudentParams)
}

func TestApproveLostRace(t *testing.T) {
	fx := newApplicationFixture()
	ctx := context.Background()
	fx.repo.decided = true
	fx.repo.apps["app-1"] = &models.EnrollmentApplication{
		ID:              "app-1",
		SchoolID:        testSchoolID,
		Type:            models.ApplicationTypeStudentSelf,
		Status:          models.ApplicationStatusSubmitted,
		ApplicantUserID: "stu-1",
		StudentSelf:     &models.StudentSelfDetails{ClassID: testClassID},
	}

	_, err := fx.svc.Approve(ctx, "app-1", testSchoolID, "admin-1", ReviewDecisionRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestApproveParentStudentProvisionsChild(t *testing.T) {
	fx := newApplicationFixture()
	ctx := context.Background()
	fx.repo.profiles[testProfileID] = &models.PendingStudentProfile{
		ID:           testProfileID,
		ParentUserID: "parent-1",
		FullName:     "Sam Doe",
	}
	fx.repo.apps["app-1"] = &models.EnrollmentApplication{
		ID:              "app-1",
		SchoolID:        testSchoolID,
		Type:            models.ApplicationTypeParentStudent,
		Status:          models.ApplicationStatusSubmitted,
		ApplicantUserID: "parent-1",
		ParentStudent: &models.ParentStudentDetails{
			PendingProfileID: strPtr(testProfileID),
			ClassID:          testClassID,
		},
	}

	approved, err := fx.svc.Approve(ctx, "app-1", testSchoolID, "admin-1", ReviewDecisionRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApproved, approved.Status)
	require.NotNil(t, fx.repo.parentStudentParams)
	require.NotNil(t, fx.repo.parentStudentParams.NewChildUser)
	assert.Equal(t, "Sam Doe", fx.repo.parentStudentParams.NewChildUser.FullName)
	assert.Equal(t, models.RoleStudent, fx.repo.parentStudentParams.NewChildUser.Role)
	assert.Equal(t, fx.repo.parentStudentParams.NewChildUser.ID, fx.repo.parentStudentParams.Enrollment.StudentID)
}

func TestApproveEmployeeCustomSubRole(t *testing.T) {
	fx := newApplicationFixture()
	ctx := context.Background()
	fx.repo.apps["app-1"] = &models.EnrollmentApplication{
		ID:              "app-1",
		SchoolID:        testSchoolID,
		Type:            models.ApplicationTypeEmployee,
		Status:          models.ApplicationStatusSubmitted,
		ApplicantUserID: "emp-1",
		Employee:        &models.EmployeeDetails{CustomSubRoleName: strPtr("Lab  Assistant")},
	}

	_, err := fx.svc.Approve(ctx, "app-1", testSchoolID, "admin-1", ReviewDecisionRequest{})
	require.NoError(t, err)
	require.NotNil(t, fx.repo.employeeParams)
	assert.Equal(t, "lab_assistant", fx.repo.employeeParams.SubRoleKey)
	require.NotNil(t, fx.repo.employeeParams.NewSubRole)
	assert.Equal(t, "Lab  Assistant", fx.repo.employeeParams.NewSubRole.Name)
}

func TestStartReviewAndReject(t *testing.T) {
	fx := newApplicationFixture()
	ctx := context.Background()
	fx.repo.apps["app-1"] = &models.EnrollmentApplication{
		ID:              "app-1",
		SchoolID:        testSchoolID,
		Type:            models.ApplicationTypeStudentSelf,
		Status:          models.ApplicationStatusSubmitted,
		ApplicantUserID: "stu-1",
		StudentSelf:     &models.StudentSelfDetails{ClassID: testClassID},
	}

	app, err := fx.svc.StartReview(ctx, "app-1", testSchoolID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusUnderReview, app.Status)

	_, err = fx.svc.StartReview(ctx, "app-1", testSchoolID, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)

	rejected, err := fx.svc.Reject(ctx, "app-1", testSchoolID, "admin-1", ReviewDecisionRequest{Notes: strPtr("incomplete records")})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusRejected, rejected.Status)

	_, err = fx.svc.Reject(ctx, "app-1", testSchoolID, "admin-1", ReviewDecisionRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}
