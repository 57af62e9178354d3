package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-api/internal/models"
	"github.com/noah-isme/campus-api/internal/repository"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
)

type schoolRepository interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
	ListOpenForApplications(ctx context.Context) ([]models.School, error)
	Create(ctx context.Context, school *models.School) error
	UpdateSettings(ctx context.Context, id string, settings repository.SchoolSettings) error
}

type schoolSeeder interface {
	SeedSchoolDefaults(ctx context.Context, schoolID string) error
}

// SchoolService manages tenants and their self-service intake flags.
type SchoolService struct {
	repo      schoolRepository
	seeder    schoolSeeder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchoolService constructs a SchoolService instance.
func NewSchoolService(repo schoolRepository, seeder schoolSeeder, validate *validator.Validate, logger *zap.Logger) *SchoolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SchoolService{repo: repo, seeder: seeder, validator: validate, logger: logger}
}

// CreateSchoolRequest defines a new tenant.
type CreateSchoolRequest struct {
	Name    string  `json:"name" validate:"required"`
	Motto   *string `json:"motto,omitempty"`
	LogoURL *string `json:"logo_url,omitempty" validate:"omitempty,url"`
}

// Create provisions a new school with its system sub-roles.
func (s *SchoolService) Create(ctx context.Context, req CreateSchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school payload")
	}

	school := &models.School{
		Name:    req.Name,
		Motto:   req.Motto,
		LogoURL: req.LogoURL,
	}
	if err := s.repo.Create(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create school")
	}

	if s.seeder != nil {
		if err := s.seeder.SeedSchoolDefaults(ctx, school.ID); err != nil {
			s.logger.Error("failed to seed default sub-roles", zap.String("school_id", school.ID), zap.Error(err))
		}
	}
	return school, nil
}

// Get returns a school by id.
func (s *SchoolService) Get(ctx context.Context, id string) (*models.School, error) {
	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	return school, nil
}

// ListOpen returns schools accepting self-service applications. This
// listing is public: applicants have no school yet.
func (s *SchoolService) ListOpen(ctx context.Context) ([]models.School, error) {
	schools, err := s.repo.ListOpenForApplications(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list open schools")
	}
	return schools, nil
}

// UpdateSettingsRequest toggles the school's intake flags.
type UpdateSettingsRequest struct {
	EnrollmentOpen             bool `json:"enrollment_open"`
	StudentApplicationsEnabled bool `json:"student_applications_enabled"`
	ParentApplicationsEnabled  bool `json:"parent_applications_enabled"`
	StaffApplicationsEnabled   bool `json:"staff_applications_enabled"`
}

// UpdateSettings replaces the intake flags of a school.
func (s *SchoolService) UpdateSettings(ctx context.Context, id string, req UpdateSettingsRequest) (*models.School, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}

	settings := repository.SchoolSettings{
		EnrollmentOpen:             req.EnrollmentOpen,
		StudentApplicationsEnabled: req.StudentApplicationsEnabled,
		ParentApplicationsEnabled:  req.ParentApplicationsEnabled,
		StaffApplicationsEnabled:   req.StaffApplicationsEnabled,
	}
	if err := s.repo.UpdateSettings(ctx, id, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update school settings")
	}
	return s.Get(ctx, id)
}
