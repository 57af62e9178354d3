package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-api/internal/models"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
)

type enrollmentRepository interface {
	FindByID(ctx context.Context, id, schoolID string) (*models.StudentEnrollment, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	ExistsForYear(ctx context.Context, studentID, academicYearID string) (bool, error)
	EnrollWithPlacement(ctx context.Context, enrollment *models.StudentEnrollment, gradeLevel int, sectionName *string) error
}

type enrollmentUserRepository interface {
	FindByIDInSchool(ctx context.Context, id, schoolID string) (*models.User, error)
}

type enrollmentClassRepository interface {
	FindByID(ctx context.Context, id, schoolID string) (*models.SchoolClass, error)
	FindSectionByID(ctx context.Context, id, schoolID string) (*models.ClassSection, error)
}

type enrollmentYearRepository interface {
	FindYearByID(ctx context.Context, id, schoolID string) (*models.AcademicYear, error)
}

// EnrollmentService manages direct staff-driven enrollments, separate
// from the application intake flow.
type EnrollmentService struct {
	repo      enrollmentRepository
	users     enrollmentUserRepository
	classes   enrollmentClassRepository
	years     enrollmentYearRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService instance.
func NewEnrollmentService(repo enrollmentRepository, users enrollmentUserRepository, classes enrollmentClassRepository, years enrollmentYearRepository, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{repo: repo, users: users, classes: classes, years: years, validator: validate, logger: logger}
}

// EnrollRequest places an existing student into a class directly.
type EnrollRequest struct {
	StudentID      string  `json:"student_id" validate:"required,uuid"`
	AcademicYearID string  `json:"academic_year_id" validate:"required,uuid"`
	ClassID        string  `json:"class_id" validate:"required,uuid"`
	SectionID      *string `json:"section_id,omitempty" validate:"omitempty,uuid"`
}

// Enroll creates an ACTIVE enrollment with placement. One enrollment
// per student per year.
func (s *EnrollmentService) Enroll(ctx context.Context, schoolID string, req EnrollRequest) (*models.StudentEnrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	student, err := s.users.FindByIDInSchool(ctx, req.StudentID, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is not a student")
	}

	if _, err := s.years.FindYearByID(ctx, req.AcademicYearID, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}

	class, err := s.classes.FindByID(ctx, req.ClassID, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	var sectionName *string
	if req.SectionID != nil {
		section, err := s.classes.FindSectionByID(ctx, *req.SectionID, schoolID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
		}
		if section.ClassID != class.ID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "section does not belong to the class")
		}
		sectionName = &section.Name
	}

	already, err := s.repo.ExistsForYear(ctx, req.StudentID, req.AcademicYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if already {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an enrollment in this year")
	}

	enrollment := &models.StudentEnrollment{
		SchoolID:       schoolID,
		StudentID:      req.StudentID,
		AcademicYearID: req.AcademicYearID,
		ClassID:        req.ClassID,
		SectionID:      req.SectionID,
	}
	if err := s.repo.EnrollWithPlacement(ctx, enrollment, class.GradeLevel, sectionName); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return enrollment, nil
}

// Get returns one enrollment scoped to a school.
func (s *EnrollmentService) Get(ctx context.Context, id, schoolID string) (*models.StudentEnrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

// List returns enrollments matching the filter with display details.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, total, nil
}
