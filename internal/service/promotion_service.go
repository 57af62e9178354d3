package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-api/internal/models"
	"github.com/noah-isme/campus-api/internal/repository"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
)

type promotionEnrollmentRepository interface {
	ListActiveByYear(ctx context.Context, schoolID, academicYearID string) ([]models.EnrollmentDetail, error)
	ExistsForYear(ctx context.Context, studentID, academicYearID string) (bool, error)
	Promote(ctx context.Context, params repository.PromoteParams) (string, error)
	Graduate(ctx context.Context, enrollmentID, studentID string) error
	EnrollWithPlacement(ctx context.Context, enrollment *models.StudentEnrollment, gradeLevel int, sectionName *string) error
}

type promotionClassRepository interface {
	FindByGradeLevel(ctx context.Context, schoolID string, gradeLevel int) (*models.SchoolClass, error)
	FindByName(ctx context.Context, schoolID, name string) (*models.SchoolClass, error)
	FindSectionByName(ctx context.Context, classID, name string) (*models.ClassSection, error)
}

type promotionYearRepository interface {
	FindYearByID(ctx context.Context, id, schoolID string) (*models.AcademicYear, error)
	FindActiveYear(ctx context.Context, schoolID string) (*models.AcademicYear, error)
}

type promotionUserRepository interface {
	ListOrphanStudents(ctx context.Context, schoolID string) ([]models.User, error)
}

// PromotionConfig tunes batch promotion and auto-enroll.
type PromotionConfig struct {
	GraduatingGradeLevel int
	FallbackClassName    string
	FallbackSectionName  string
}

// PromotionService runs the batch year-transition operations. Each
// student is processed in its own transaction; one failure never rolls
// back the rest of the batch.
type PromotionService struct {
	enrollments promotionEnrollmentRepository
	classes     promotionClassRepository
	years       promotionYearRepository
	users       promotionUserRepository
	validator   *validator.Validate
	logger      *zap.Logger
	config      PromotionConfig
}

// NewPromotionService constructs a PromotionService instance.
func NewPromotionService(
	enrollments promotionEnrollmentRepository,
	classes promotionClassRepository,
	years promotionYearRepository,
	users promotionUserRepository,
	validate *validator.Validate,
	logger *zap.Logger,
	config PromotionConfig,
) *PromotionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.GraduatingGradeLevel <= 0 {
		config.GraduatingGradeLevel = 6
	}
	return &PromotionService{
		enrollments: enrollments,
		classes:     classes,
		years:       years,
		users:       users,
		validator:   validate,
		logger:      logger,
		config:      config,
	}
}

// PromoteRequest names the source and target years of a batch.
type PromoteRequest struct {
	FromYearID string `json:"from_year_id" validate:"required,uuid"`
	ToYearID   string `json:"to_year_id" validate:"required,uuid,nefield=FromYearID"`
}

// Promote advances every active enrollment of the source year. Students
// at the graduating grade level graduate; the rest move to the class one
// grade level up, keeping their section by name when the target class
// has one. Per-student outcomes are aggregated, not short-circuited.
func (s *PromotionService) Promote(ctx context.Context, schoolID string, req PromoteRequest) (*models.PromotionSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid promotion payload")
	}

	if _, err := s.years.FindYearByID(ctx, req.FromYearID, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "source year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load source year")
	}
	if _, err := s.years.FindYearByID(ctx, req.ToYearID, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "target year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target year")
	}

	enrollments, err := s.enrollments.ListActiveByYear(ctx, schoolID, req.FromYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}

	summary := &models.PromotionSummary{Results: make([]models.PromotionResult, 0, len(enrollments))}
	for _, enrollment := range enrollments {
		result := s.promoteOne(ctx, schoolID, req.ToYearID, enrollment)
		switch result.Status {
		case models.PromotionItemPromoted:
			summary.Promoted++
		case models.PromotionItemGraduated:
			summary.Graduated++
		default:
			summary.Failed++
		}
		summary.Results = append(summary.Results, result)
	}
	return summary, nil
}

func (s *PromotionService) promoteOne(ctx context.Context, schoolID, toYearID string, enrollment models.EnrollmentDetail) models.PromotionResult {
	result := models.PromotionResult{
		StudentID:   enrollment.StudentID,
		StudentName: enrollment.StudentName,
	}

	if enrollment.GradeLevel >= s.config.GraduatingGradeLevel {
		if err := s.enrollments.Graduate(ctx, enrollment.ID, enrollment.StudentID); err != nil {
			s.logger.Warn("graduation failed",
				zap.String("student_id", enrollment.StudentID), zap.Error(err))
			result.Status = models.PromotionItemError
			result.Message = "graduation failed"
			return result
		}
		result.Status = models.PromotionItemGraduated
		return result
	}

	nextClass, err := s.classes.FindByGradeLevel(ctx, schoolID, enrollment.GradeLevel+1)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			result.Status = models.PromotionItemError
			result.Message = fmt.Sprintf("no class at grade level %d", enrollment.GradeLevel+1)
			return result
		}
		result.Status = models.PromotionItemError
		result.Message = "failed to resolve target class"
		return result
	}

	already, err := s.enrollments.ExistsForYear(ctx, enrollment.StudentID, toYearID)
	if err != nil {
		result.Status = models.PromotionItemError
		result.Message = "failed to check target year enrollment"
		return result
	}
	if already {
		result.Status = models.PromotionItemError
		result.Message = "student already has an enrollment in the target year"
		return result
	}

	var sectionID *string
	var sectionName *string
	if enrollment.SectionName != nil {
		if section, err := s.classes.FindSectionByName(ctx, nextClass.ID, *enrollment.SectionName); err == nil {
			sectionID = &section.ID
			sectionName = &section.Name
		} else if !errors.Is(err, sql.ErrNoRows) {
			result.Status = models.PromotionItemError
			result.Message = "failed to resolve target section"
			return result
		}
	}

	newID, err := s.enrollments.Promote(ctx, repository.PromoteParams{
		OldEnrollmentID: enrollment.ID,
		NewEnrollment: models.StudentEnrollment{
			SchoolID:       schoolID,
			StudentID:      enrollment.StudentID,
			AcademicYearID: toYearID,
			ClassID:        nextClass.ID,
			SectionID:      sectionID,
		},
		GradeLevel:  nextClass.GradeLevel,
		SectionName: sectionName,
	})
	if err != nil {
		s.logger.Warn("promotion failed",
			zap.String("student_id", enrollment.StudentID), zap.Error(err))
		result.Status = models.PromotionItemError
		result.Message = "promotion failed"
		return result
	}

	result.Status = models.PromotionItemPromoted
	result.NewEnrollmentID = newID
	return result
}

// AutoEnroll places every school student lacking an enrollment in the
// active year into the configured fallback class and section.
func (s *PromotionService) AutoEnroll(ctx context.Context, schoolID string) (*models.AutoEnrollSummary, error) {
	year, err := s.years.FindActiveYear(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict, "school has no active academic year")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active year")
	}

	fallbackClass, err := s.classes.FindByName(ctx, schoolID, s.config.FallbackClassName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict, "fallback class does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fallback class")
	}

	var sectionID *string
	var sectionName *string
	if s.config.FallbackSectionName != "" {
		if section, err := s.classes.FindSectionByName(ctx, fallbackClass.ID, s.config.FallbackSectionName); err == nil {
			sectionID = &section.ID
			sectionName = &section.Name
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fallback section")
		}
	}

	orphans, err := s.users.ListOrphanStudents(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unplaced students")
	}

	summary := &models.AutoEnrollSummary{Results: make([]models.AutoEnrollResult, 0, len(orphans))}
	for _, student := range orphans {
		result := models.AutoEnrollResult{StudentID: student.ID, StudentName: student.FullName}

		already, err := s.enrollments.ExistsForYear(ctx, student.ID, year.ID)
		if err != nil {
			result.Status = "error"
			result.Message = "failed to check existing enrollment"
			summary.Failed++
			summary.Results = append(summary.Results, result)
			continue
		}
		if already {
			result.Status = "skipped"
			result.Message = "student already enrolled in the active year"
			summary.Skipped++
			summary.Results = append(summary.Results, result)
			continue
		}

		enrollment := &models.StudentEnrollment{
			SchoolID:       schoolID,
			StudentID:      student.ID,
			AcademicYearID: year.ID,
			ClassID:        fallbackClass.ID,
			SectionID:      sectionID,
		}
		if err := s.enrollments.EnrollWithPlacement(ctx, enrollment, fallbackClass.GradeLevel, sectionName); err != nil {
			s.logger.Warn("auto-enroll failed",
				zap.String("student_id", student.ID), zap.Error(err))
			result.Status = "error"
			result.Message = "enrollment failed"
			summary.Failed++
			summary.Results = append(summary.Results, result)
			continue
		}

		result.Status = "enrolled"
		result.EnrollmentID = enrollment.ID
		summary.Enrolled++
		summary.Results = append(summary.Results, result)
	}
	return summary, nil
}
