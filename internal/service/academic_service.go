package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-api/internal/models"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
)

type academicRepository interface {
	CreateYear(ctx context.Context, year *models.AcademicYear) error
	FindYearByID(ctx context.Context, id, schoolID string) (*models.AcademicYear, error)
	ListYears(ctx context.Context, schoolID string) ([]models.AcademicYear, error)
	FindActiveYear(ctx context.Context, schoolID string) (*models.AcademicYear, error)
	ActivateYear(ctx context.Context, id, schoolID string) error
	CreateTerm(ctx context.Context, term *models.Term) error
	FindTermByID(ctx context.Context, id, schoolID string) (*models.Term, error)
	ListTermsByYear(ctx context.Context, academicYearID string) ([]models.Term, error)
}

type classRepository interface {
	Create(ctx context.Context, class *models.SchoolClass) error
	FindByID(ctx context.Context, id, schoolID string) (*models.SchoolClass, error)
	List(ctx context.Context, schoolID string) ([]models.SchoolClass, error)
	FindByGradeLevel(ctx context.Context, schoolID string, gradeLevel int) (*models.SchoolClass, error)
	CreateSection(ctx context.Context, section *models.ClassSection) error
	FindSectionByID(ctx context.Context, id, schoolID string) (*models.ClassSection, error)
	ListSections(ctx context.Context, classID string) ([]models.ClassSection, error)
	FindSectionByName(ctx context.Context, classID, name string) (*models.ClassSection, error)
}

// AcademicService maintains the academic structure of a school: years,
// terms, classes and sections.
type AcademicService struct {
	years     academicRepository
	classes   classRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAcademicService constructs an AcademicService instance.
func NewAcademicService(years academicRepository, classes classRepository, validate *validator.Validate, logger *zap.Logger) *AcademicService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AcademicService{years: years, classes: classes, validator: validate, logger: logger}
}

// CreateYearRequest defines a new academic year.
type CreateYearRequest struct {
	Name     string    `json:"name" validate:"required"`
	StartsOn time.Time `json:"starts_on" validate:"required"`
	EndsOn   time.Time `json:"ends_on" validate:"required,gtfield=StartsOn"`
}

// CreateYear adds an academic year. New years start inactive.
func (s *AcademicService) CreateYear(ctx context.Context, schoolID string, req CreateYearRequest) (*models.AcademicYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic year payload")
	}

	year := &models.AcademicYear{
		SchoolID: schoolID,
		Name:     req.Name,
		StartsOn: req.StartsOn,
		EndsOn:   req.EndsOn,
	}
	if err := s.years.CreateYear(ctx, year); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create academic year")
	}
	return year, nil
}

// ListYears returns the academic years of a school.
func (s *AcademicService) ListYears(ctx context.Context, schoolID string) ([]models.AcademicYear, error) {
	years, err := s.years.ListYears(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list academic years")
	}
	return years, nil
}

// ActiveYear returns the single active year of a school.
func (s *AcademicService) ActiveYear(ctx context.Context, schoolID string) (*models.AcademicYear, error) {
	year, err := s.years.FindActiveYear(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active academic year")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active year")
	}
	return year, nil
}

// ActivateYear makes the given year the school's single active year,
// deactivating any other in the same transaction.
func (s *AcademicService) ActivateYear(ctx context.Context, id, schoolID string) (*models.AcademicYear, error) {
	if _, err := s.years.FindYearByID(ctx, id, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}

	if err := s.years.ActivateYear(ctx, id, schoolID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate academic year")
	}

	year, err := s.years.FindYearByID(ctx, id, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload academic year")
	}
	return year, nil
}

// CreateTermRequest defines a new term within a year.
type CreateTermRequest struct {
	AcademicYearID string    `json:"academic_year_id" validate:"required,uuid"`
	Name           string    `json:"name" validate:"required"`
	StartsOn       time.Time `json:"starts_on" validate:"required"`
	EndsOn         time.Time `json:"ends_on" validate:"required,gtfield=StartsOn"`
}

// CreateTerm adds a term to an academic year of the school.
func (s *AcademicService) CreateTerm(ctx context.Context, schoolID string, req CreateTermRequest) (*models.Term, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid term payload")
	}

	if _, err := s.years.FindYearByID(ctx, req.AcademicYearID, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}

	term := &models.Term{
		SchoolID:       schoolID,
		AcademicYearID: req.AcademicYearID,
		Name:           req.Name,
		StartsOn:       req.StartsOn,
		EndsOn:         req.EndsOn,
	}
	if err := s.years.CreateTerm(ctx, term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create term")
	}
	return term, nil
}

// ListTerms returns the terms of a year in the school.
func (s *AcademicService) ListTerms(ctx context.Context, academicYearID, schoolID string) ([]models.Term, error) {
	if _, err := s.years.FindYearByID(ctx, academicYearID, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	terms, err := s.years.ListTermsByYear(ctx, academicYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list terms")
	}
	return terms, nil
}

// CreateClassRequest defines a new class. GradeLevel orders classes
// for promotion and must be unique within the school.
type CreateClassRequest struct {
	Name       string `json:"name" validate:"required"`
	GradeLevel int    `json:"grade_level" validate:"required,min=1"`
}

// CreateClass adds a class to the school.
func (s *AcademicService) CreateClass(ctx context.Context, schoolID string, req CreateClassRequest) (*models.SchoolClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	if _, err := s.classes.FindByGradeLevel(ctx, schoolID, req.GradeLevel); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "grade level already in use")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check grade level")
	}

	class := &models.SchoolClass{
		SchoolID:   schoolID,
		Name:       req.Name,
		GradeLevel: req.GradeLevel,
	}
	if err := s.classes.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// ListClasses returns the classes of a school ordered by grade level.
func (s *AcademicService) ListClasses(ctx context.Context, schoolID string) ([]models.SchoolClass, error) {
	classes, err := s.classes.List(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// CreateSectionRequest defines a new section within a class.
type CreateSectionRequest struct {
	ClassID string `json:"class_id" validate:"required,uuid"`
	Name    string `json:"name" validate:"required"`
}

// CreateSection adds a section to a class of the school.
func (s *AcademicService) CreateSection(ctx context.Context, schoolID string, req CreateSectionRequest) (*models.ClassSection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}

	if _, err := s.classes.FindByID(ctx, req.ClassID, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	if _, err := s.classes.FindSectionByName(ctx, req.ClassID, req.Name); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "section name already in use")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check section")
	}

	section := &models.ClassSection{
		SchoolID: schoolID,
		ClassID:  req.ClassID,
		Name:     req.Name,
	}
	if err := s.classes.CreateSection(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	return section, nil
}

// ListSections returns the sections of a class in the school.
func (s *AcademicService) ListSections(ctx context.Context, classID, schoolID string) ([]models.ClassSection, error) {
	if _, err := s.classes.FindByID(ctx, classID, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	sections, err := s.classes.ListSections(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	return sections, nil
}
