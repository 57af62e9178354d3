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

type examRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	FindByID(ctx context.Context, id, schoolID string) (*models.Exam, error)
	List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error)
	Publish(ctx context.Context, id string) (bool, error)
	UpsertMarks(ctx context.Context, examID, actorID string, marks []models.ExamMark) error
	ListMarks(ctx context.Context, examID string) ([]models.ExamMarkDetail, error)
	ListMarksForStudent(ctx context.Context, examID, studentID string) ([]models.ExamMark, error)
}

type examParentChecker interface {
	IsParentOf(ctx context.Context, parentUserID, childUserID string) (bool, error)
}

// ExamService drives the exam lifecycle. Marks are editable while the
// exam is SCHEDULED; publishing freezes them and makes results visible
// to students and parents.
type ExamService struct {
	repo      examRepository
	parents   examParentChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamService constructs an ExamService instance.
func NewExamService(repo examRepository, parents examParentChecker, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ExamService{repo: repo, parents: parents, validator: validate, logger: logger}
}

// CreateExamRequest defines a new scheduled exam.
type CreateExamRequest struct {
	AcademicYearID string    `json:"academic_year_id" validate:"required,uuid"`
	TermID         string    `json:"term_id" validate:"required,uuid"`
	Name           string    `json:"name" validate:"required"`
	StartsOn       time.Time `json:"starts_on" validate:"required"`
	EndsOn         time.Time `json:"ends_on" validate:"required,gtefield=StartsOn"`
}

// Create adds a SCHEDULED exam.
func (s *ExamService) Create(ctx context.Context, schoolID, actorID string, req CreateExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}

	exam := &models.Exam{
		SchoolID:       schoolID,
		AcademicYearID: req.AcademicYearID,
		TermID:         req.TermID,
		Name:           req.Name,
		StartsOn:       req.StartsOn,
		EndsOn:         req.EndsOn,
		Status:         models.ExamStatusScheduled,
		CreatedBy:      actorID,
	}
	if err := s.repo.Create(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}
	return exam, nil
}

// Get returns an exam.
func (s *ExamService) Get(ctx context.Context, id, schoolID string) (*models.Exam, error) {
	exam, err := s.repo.FindByID(ctx, id, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return exam, nil
}

// List returns exams matching the filter.
func (s *ExamService) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error) {
	exams, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	return exams, total, nil
}

// MarkInput is one student's score in one subject.
type MarkInput struct {
	StudentID     string   `json:"student_id" validate:"required,uuid"`
	Subject       string   `json:"subject" validate:"required"`
	MarksObtained *float64 `json:"marks_obtained,omitempty" validate:"omitempty,gte=0"`
	TotalMarks    float64  `json:"total_marks" validate:"required,gt=0"`
	Remarks       *string  `json:"remarks,omitempty"`
}

// EnterMarksRequest upserts marks into a scheduled exam.
type EnterMarksRequest struct {
	Marks []MarkInput `json:"marks" validate:"required,min=1,dive"`
}

// EnterMarks records or corrects marks. Rejected once published.
func (s *ExamService) EnterMarks(ctx context.Context, examID, schoolID, actorID string, req EnterMarksRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid marks payload")
	}

	exam, err := s.repo.FindByID(ctx, examID, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	if exam.Status != models.ExamStatusScheduled {
		return appErrors.Clone(appErrors.ErrStateConflict, "marks are frozen once the exam is published")
	}

	marks := make([]models.ExamMark, 0, len(req.Marks))
	for _, input := range req.Marks {
		if input.MarksObtained != nil && *input.MarksObtained > input.TotalMarks {
			return appErrors.Clone(appErrors.ErrValidation, "marks obtained exceed total marks")
		}
		marks = append(marks, models.ExamMark{
			StudentID:     input.StudentID,
			Subject:       input.Subject,
			MarksObtained: input.MarksObtained,
			TotalMarks:    input.TotalMarks,
			Remarks:       input.Remarks,
		})
	}

	if err := s.repo.UpsertMarks(ctx, examID, actorID, marks); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store marks")
	}
	return nil
}

// Publish freezes the marks and makes results visible.
func (s *ExamService) Publish(ctx context.Context, id, schoolID string) (*models.Exam, error) {
	if _, err := s.repo.FindByID(ctx, id, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	ok, err := s.repo.Publish(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish exam")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "exam is already published")
	}

	exam, err := s.repo.FindByID(ctx, id, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload exam")
	}
	return exam, nil
}

// Marks returns the full mark sheet of an exam for staff.
func (s *ExamService) Marks(ctx context.Context, examID, schoolID string) ([]models.ExamMarkDetail, error) {
	if _, err := s.repo.FindByID(ctx, examID, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	marks, err := s.repo.ListMarks(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list marks")
	}
	return marks, nil
}

// StudentResults returns one student's marks in a published exam.
// Students see only their own results; parents see linked children.
func (s *ExamService) StudentResults(ctx context.Context, claims *models.JWTClaims, examID, schoolID, studentID string) ([]models.ExamMark, error) {
	exam, err := s.repo.FindByID(ctx, examID, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	switch claims.Role {
	case models.RoleStudent:
		if claims.UserID != studentID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only view their own results")
		}
	case models.RoleParent:
		linked, err := s.parents.IsParentOf(ctx, claims.UserID, studentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check parent link")
		}
		if !linked {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "student is not linked to this parent")
		}
	}

	if exam.Status != models.ExamStatusPublished && !claims.Role.Staff() {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "results are not published yet")
	}

	marks, err := s.repo.ListMarksForStudent(ctx, examID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load results")
	}
	return marks, nil
}
