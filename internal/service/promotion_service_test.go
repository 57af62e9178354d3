package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-api/internal/models"
	"github.com/noah-isme/campus-api/internal/repository"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
)

const (
	testFromYearID = "1a2b3c4d-5e6f-4a70-8b9c-0d1e2f3a4b5c"
	testToYearID   = "2b3c4d5e-6f70-4b81-9cad-1e2f3a4b5c6d"
)

type promotionEnrollmentStub struct {
	active     []models.EnrollmentDetail
	existing   map[string]bool
	promoteErr error

	promoted  []repository.PromoteParams
	graduated []string
	enrolled  []models.StudentEnrollment
}

func (s *promotionEnrollmentStub) ListActiveByYear(ctx context.Context, schoolID, academicYearID string) ([]models.EnrollmentDetail, error) {
	return s.active, nil
}

func (s *promotionEnrollmentStub) ExistsForYear(ctx context.Context, studentID, academicYearID string) (bool, error) {
	return s.existing[studentID], nil
}

func (s *promotionEnrollmentStub) Promote(ctx context.Context, params repository.PromoteParams) (string, error) {
	if s.promoteErr != nil {
		return "", s.promoteErr
	}
	s.promoted = append(s.promoted, params)
	return "enr-new-" + params.NewEnrollment.StudentID, nil
}

func (s *promotionEnrollmentStub) Graduate(ctx context.Context, enrollmentID, studentID string) error {
	s.graduated = append(s.graduated, studentID)
	return nil
}

func (s *promotionEnrollmentStub) EnrollWithPlacement(ctx context.Context, enrollment *models.StudentEnrollment, gradeLevel int, sectionName *string) error {
	enrollment.ID = "enr-auto-" + enrollment.StudentID
	s.enrolled = append(s.enrolled, *enrollment)
	return nil
}

type promotionClassStub struct {
	byGrade  map[int]*models.SchoolClass
	byName   map[string]*models.SchoolClass
	sections map[string]*models.ClassSection
}

func (s promotionClassStub) FindByGradeLevel(ctx context.Context, schoolID string, gradeLevel int) (*models.SchoolClass, error) {
	class, ok := s.byGrade[gradeLevel]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return class, nil
}

func (s promotionClassStub) FindByName(ctx context.Context, schoolID, name string) (*models.SchoolClass, error) {
	class, ok := s.byName[name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return class, nil
}

func (s promotionClassStub) FindSectionByName(ctx context.Context, classID, name string) (*models.ClassSection, error) {
	section, ok := s.sections[classID+"/"+name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return section, nil
}

type promotionYearStub struct {
	years      map[string]*models.AcademicYear
	activeYear *models.AcademicYear
}

func (s promotionYearStub) FindYearByID(ctx context.Context, id, schoolID string) (*models.AcademicYear, error) {
	year, ok := s.years[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return year, nil
}

func (s promotionYearStub) FindActiveYear(ctx context.Context, schoolID string) (*models.AcademicYear, error) {
	if s.activeYear == nil {
		return nil, sql.ErrNoRows
	}
	return s.activeYear, nil
}

type promotionUserStub struct {
	orphans []models.User
}

func (s promotionUserStub) ListOrphanStudents(ctx context.Context, schoolID string) ([]models.User, error) {
	return s.orphans, nil
}

func activeDetail(studentID, name string, gradeLevel int, sectionName *string) models.EnrollmentDetail {
	detail := models.EnrollmentDetail{
		StudentName: name,
		GradeLevel:  gradeLevel,
		SectionName: sectionName,
	}
	detail.ID = "enr-" + studentID
	detail.StudentID = studentID
	return detail
}

func TestPromoteAggregatesOutcomes(t *testing.T) {
	enrollments := &promotionEnrollmentStub{
		active: []models.EnrollmentDetail{
			activeDetail("stu-1", "Ada", 3, strPtr("A")),
			activeDetail("stu-2", "Ben", 6, nil),
			activeDetail("stu-3", "Cal", 5, nil),
		},
		existing: map[string]bool{},
	}
	classes := promotionClassStub{
		byGrade: map[int]*models.SchoolClass{
			4: {ID: "class-4", GradeLevel: 4, Name: "Grade 4"},
		},
		sections: map[string]*models.ClassSection{
			"class-4/A": {ID: "sec-4a", ClassID: "class-4", Name: "A"},
		},
	}
	years := promotionYearStub{years: map[string]*models.AcademicYear{
		testFromYearID: {ID: testFromYearID},
		testToYearID:   {ID: testToYearID},
	}}
	svc := NewPromotionService(enrollments, classes, years, promotionUserStub{}, nil, nil, PromotionConfig{GraduatingGradeLevel: 6})

	summary, err := svc.Promote(context.Background(), "sch-1", PromoteRequest{FromYearID: testFromYearID, ToYearID: testToYearID})
	require.NoError(t, err)

	// stu-1 moves up with its section, stu-2 graduates, stu-3 has no
	// grade 6 class to land in and fails without aborting the batch.
	assert.Equal(t, 1, summary.Promoted)
	assert.Equal(t, 1, summary.Graduated)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Results, 3)

	require.Len(t, enrollments.promoted, 1)
	promoted := enrollments.promoted[0]
	assert.Equal(t, "class-4", promoted.NewEnrollment.ClassID)
	assert.Equal(t, testToYearID, promoted.NewEnrollment.AcademicYearID)
	require.NotNil(t, promoted.NewEnrollment.SectionID)
	assert.Equal(t, "sec-4a", *promoted.NewEnrollment.SectionID)

	assert.Equal(t, []string{"stu-2"}, enrollments.graduated)
}

func TestPromoteSkipsAlreadyEnrolled(t *testing.T) {
	enrollments := &promotionEnrollmentStub{
		active:   []models.EnrollmentDetail{activeDetail("stu-1", "Ada", 3, nil)},
		existing: map[string]bool{"stu-1": true},
	}
	classes := promotionClassStub{byGrade: map[int]*models.SchoolClass{4: {ID: "class-4", GradeLevel: 4}}}
	years := promotionYearStub{years: map[string]*models.AcademicYear{
		testFromYearID: {ID: testFromYearID},
		testToYearID:   {ID: testToYearID},
	}}
	svc := NewPromotionService(enrollments, classes, years, promotionUserStub{}, nil, nil, PromotionConfig{GraduatingGradeLevel: 6})

	summary, err := svc.Promote(context.Background(), "sch-1", PromoteRequest{FromYearID: testFromYearID, ToYearID: testToYearID})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Empty(t, enrollments.promoted)
}

func TestPromoteRejectsSameYear(t *testing.T) {
	svc := NewPromotionService(&promotionEnrollmentStub{}, promotionClassStub{}, promotionYearStub{}, promotionUserStub{}, nil, nil, PromotionConfig{})

	_, err := svc.Promote(context.Background(), "sch-1", PromoteRequest{FromYearID: testFromYearID, ToYearID: testFromYearID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPromoteUnknownYear(t *testing.T) {
	years := promotionYearStub{years: map[string]*models.AcademicYear{testFromYearID: {ID: testFromYearID}}}
	svc := NewPromotionService(&promotionEnrollmentStub{}, promotionClassStub{}, years, promotionUserStub{}, nil, nil, PromotionConfig{})

	_, err := svc.Promote(context.Background(), "sch-1", PromoteRequest{FromYearID: testFromYearID, ToYearID: testToYearID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPromoteFailureDoesNotAbortBatch(t *testing.T) {
	enrollments := &promotionEnrollmentStub{
		active: []models.EnrollmentDetail{
			activeDetail("stu-1", "Ada", 3, nil),
			activeDetail("stu-2", "Ben", 6, nil),
		},
		existing:   map[string]bool{},
		promoteErr: errors.New("deadlock"),
	}
	classes := promotionClassStub{byGrade: map[int]*models.SchoolClass{4: {ID: "class-4", GradeLevel: 4}}}
	years := promotionYearStub{years: map[string]*models.AcademicYear{
		testFromYearID: {ID: testFromYearID},
		testToYearID:   {ID: testToYearID},
	}}
	svc := NewPromotionService(enrollments, classes, years, promotionUserStub{}, nil, nil, PromotionConfig{GraduatingGradeLevel: 6})

	summary, err := svc.Promote(context.Background(), "sch-1", PromoteRequest{FromYearID: testFromYearID, ToYearID: testToYearID})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Graduated)
}

func TestAutoEnrollPlacesOrphans(t *testing.T) {
	enrollments := &promotionEnrollmentStub{existing: map[string]bool{"stu-2": true}}
	classes := promotionClassStub{
		byName: map[string]*models.SchoolClass{
			"Reception": {ID: "class-r", Name: "Reception", GradeLevel: 1},
		},
		sections: map[string]*models.ClassSection{
			"class-r/Main": {ID: "sec-r", ClassID: "class-r", Name: "Main"},
		},
	}
	years := promotionYearStub{activeYear: &models.AcademicYear{ID: "year-1", IsActive: true}}
	users := promotionUserStub{orphans: []models.User{
		{ID: "stu-1", FullName: "Ada"},
		{ID: "stu-2", FullName: "Ben"},
	}}
	svc := NewPromotionService(enrollments, classes, years, users, nil, nil, PromotionConfig{
		GraduatingGradeLevel: 6,
		FallbackClassName:    "Reception",
		FallbackSectionName:  "Main",
	})

	summary, err := svc.AutoEnroll(context.Background(), "sch-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Enrolled)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Failed)

	require.Len(t, enrollments.enrolled, 1)
	placed := enrollments.enrolled[0]
	assert.Equal(t, "stu-1", placed.StudentID)
	assert.Equal(t, "class-r", placed.ClassID)
	require.NotNil(t, placed.SectionID)
	assert.Equal(t, "sec-r", *placed.SectionID)
}

func TestAutoEnrollRequiresActiveYear(t *testing.T) {
	svc := NewPromotionService(&promotionEnrollmentStub{}, promotionClassStub{}, promotionYearStub{}, promotionUserStub{}, nil, nil, PromotionConfig{})

	_, err := svc.AutoEnroll(context.Background(), "sch-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}

func TestAutoEnrollRequiresFallbackClass(t *testing.T) {
	years := promotionYearStub{activeYear: &models.AcademicYear{ID: "year-1"}}
	svc := NewPromotionService(&promotionEnrollmentStub{}, promotionClassStub{}, years, promotionUserStub{}, nil, nil, PromotionConfig{FallbackClassName: "Reception"})

	_, err := svc.AutoEnroll(context.Background(), "sch-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErrors.FromError(err).Code)
}
