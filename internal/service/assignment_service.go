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

type assignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	FindByID(ctx context.Context, id, schoolID string) (*models.Assignment, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error)
	Transition(ctx context.Context, id string, from, to models.AssignmentStatus) (bool, error)
	UpsertSubmission(ctx context.Context, submission *models.AssignmentSubmission) error
	FindSubmissionByID(ctx context.Context, id string) (*models.AssignmentSubmission, error)
	FindSubmission(ctx context.Context, assignmentID, studentID string) (*models.AssignmentSubmission, error)
	ListSubmissions(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error)
	ReviewSubmission(ctx context.Context, id string, score float64, feedback *string, reviewerID string) error
}

type assignmentEnrollmentChecker interface {
	IsActiveInClass(ctx context.Context, studentID, classID string) (bool, error)
}

// AssignmentService drives the assignment lifecycle. Drafts are
// invisible to students; published assignments accept submissions
// until closed; resubmission overwrites in place.
type AssignmentService struct {
	repo        assignmentRepository
	enrollments assignmentEnrollmentChecker
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService constructs an AssignmentService instance.
func NewAssignmentService(repo assignmentRepository, enrollments assignmentEnrollmentChecker, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AssignmentService{repo: repo, enrollments: enrollments, validator: validate, logger: logger}
}

// CreateAssignmentRequest defines a new draft assignment.
type CreateAssignmentRequest struct {
	AcademicYearID string    `json:"academic_year_id" validate:"required,uuid"`
	TermID         string    `json:"term_id" validate:"required,uuid"`
	ClassID        string    `json:"class_id" validate:"required,uuid"`
	SectionID      *string   `json:"section_id,omitempty" validate:"omitempty,uuid"`
	Subject        string    `json:"subject" validate:"required"`
	Title          string    `json:"title" validate:"required"`
	Description    *string   `json:"description,omitempty"`
	DueAt          time.Time `json:"due_at" validate:"required"`
	MaxScore       float64   `json:"max_score" validate:"required,gt=0"`
}

// Create adds a DRAFT assignment.
func (s *AssignmentService) Create(ctx context.Context, schoolID, actorID string, req CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	assignment := &models.Assignment{
		SchoolID:       schoolID,
		AcademicYearID: req.AcademicYearID,
		TermID:         req.TermID,
		ClassID:        req.ClassID,
		SectionID:      req.SectionID,
		Subject:        req.Subject,
		Title:          req.Title,
		Description:    req.Description,
		DueAt:          req.DueAt,
		MaxScore:       req.MaxScore,
		Status:         models.AssignmentStatusDraft,
		CreatedBy:      actorID,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	return assignment, nil
}

// Get returns an assignment. Students and parents never see drafts.
func (s *AssignmentService) Get(ctx context.Context, id, schoolID string, claims *models.JWTClaims) (*models.Assignment, error) {
	assignment, err := s.repo.FindByID(ctx, id, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if assignment.Status == models.AssignmentStatusDraft && !claims.Role.Staff() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	return assignment, nil
}

// List returns assignments matching the filter. Non-staff callers are
// restricted to published and closed assignments; the restriction is
// applied in the query so pagination totals stay correct.
func (s *AssignmentService) List(ctx context.Context, filter models.AssignmentFilter, claims *models.JWTClaims) ([]models.Assignment, int, error) {
	filter.ExcludeDrafts = !claims.Role.Staff()
	assignments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, total, nil
}

// Publish moves DRAFT to PUBLISHED, opening submissions.
func (s *AssignmentService) Publish(ctx context.Context, id, schoolID string) (*models.Assignment, error) {
	return s.transition(ctx, id, schoolID, models.AssignmentStatusDraft, models.AssignmentStatusPublished, "assignment is not in draft state")
}

// Close moves PUBLISHED to CLOSED, ending submissions.
func (s *AssignmentService) Close(ctx context.Context, id, schoolID string) (*models.Assignment, error) {
	return s.transition(ctx, id, schoolID, models.AssignmentStatusPublished, models.AssignmentStatusClosed, "assignment is not published")
}

func (s *AssignmentService) transition(ctx context.Context, id, schoolID string, from, to models.AssignmentStatus, conflictMsg string) (*models.Assignment, error) {
	if _, err := s.repo.FindByID(ctx, id, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	ok, err := s.repo.Transition(ctx, id, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transition assignment")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, conflictMsg)
	}

	assignment, err := s.repo.FindByID(ctx, id, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload assignment")
	}
	return assignment, nil
}

// SubmitRequest is a student's submission content.
type SubmitRequest struct {
	Content string `json:"content" validate:"required"`
}

// Submit records or overwrites the student's submission. The
// assignment must be PUBLISHED and the student actively enrolled in
// its class. Resubmission resets any prior review.
func (s *AssignmentService) Submit(ctx context.Context, assignmentID, schoolID, studentID string, req SubmitRequest) (*models.AssignmentSubmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	assignment, err := s.repo.FindByID(ctx, assignmentID, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if assignment.Status != models.AssignmentStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "assignment is not accepting submissions")
	}

	enrolled, err := s.enrollments.IsActiveInClass(ctx, studentID, assignment.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student is not enrolled in this class")
	}

	submission := &models.AssignmentSubmission{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		Content:      req.Content,
	}
	if err := s.repo.UpsertSubmission(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store submission")
	}
	return submission, nil
}

// ListSubmissions returns the submissions of an assignment for staff.
func (s *AssignmentService) ListSubmissions(ctx context.Context, assignmentID, schoolID string) ([]models.SubmissionDetail, error) {
	if _, err := s.repo.FindByID(ctx, assignmentID, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	submissions, err := s.repo.ListSubmissions(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return submissions, nil
}

// MySubmission returns the student's own submission.
func (s *AssignmentService) MySubmission(ctx context.Context, assignmentID, schoolID, studentID string) (*models.AssignmentSubmission, error) {
	if _, err := s.repo.FindByID(ctx, assignmentID, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	submission, err := s.repo.FindSubmission(ctx, assignmentID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return submission, nil
}

// ReviewRequest scores a submission with optional feedback.
type ReviewRequest struct {
	Score    float64 `json:"score" validate:"gte=0"`
	Feedback *string `json:"feedback,omitempty"`
}

// Review scores a submission. The score cannot exceed the
// assignment's max score; reviews may be revised in place.
func (s *AssignmentService) Review(ctx context.Context, assignmentID, submissionID, schoolID, reviewerID string, req ReviewRequest) (*models.AssignmentSubmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	assignment, err := s.repo.FindByID(ctx, assignmentID, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if req.Score > assignment.MaxScore {
		return nil, appErrors.Clone(appErrors.ErrValidation, "score exceeds the assignment max score")
	}

	submission, err := s.repo.FindSubmissionByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	if submission.AssignmentID != assignmentID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
	}

	if err := s.repo.ReviewSubmission(ctx, submissionID, req.Score, req.Feedback, reviewerID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review submission")
	}

	reviewed, err := s.repo.FindSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload submission")
	}
	return reviewed, nil
}
