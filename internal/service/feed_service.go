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

type feedRepository interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id, schoolID string) (*models.Post, error)
	List(ctx context.Context, filter models.PostFilter) ([]models.Post, int, error)
	SetPinned(ctx context.Context, id, schoolID string, pinned bool) error
	Delete(ctx context.Context, id, schoolID string) error
}

// FeedService manages the school feed. Visibility follows the post
// audience: staff-only posts never reach students or parents.
type FeedService struct {
	repo      feedRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeedService constructs a FeedService instance.
func NewFeedService(repo feedRepository, validate *validator.Validate, logger *zap.Logger) *FeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FeedService{repo: repo, validator: validate, logger: logger}
}

// CreatePostRequest is a new feed entry.
type CreatePostRequest struct {
	Body     string              `json:"body" validate:"required"`
	Audience models.PostAudience `json:"audience" validate:"required"`
	IsPinned bool                `json:"is_pinned"`
}

// Create publishes a post to the school feed.
func (s *FeedService) Create(ctx context.Context, claims *models.JWTClaims, req CreatePostRequest) (*models.Post, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid post payload")
	}
	if !req.Audience.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown audience")
	}

	post := &models.Post{
		SchoolID:   claims.SchoolID,
		AuthorID:   claims.UserID,
		AuthorName: claims.FullName,
		Body:       req.Body,
		Audience:   req.Audience,
		IsPinned:   req.IsPinned,
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create post")
	}
	return post, nil
}

// List returns the feed visible to the caller's role.
func (s *FeedService) List(ctx context.Context, claims *models.JWTClaims, page, pageSize int) ([]models.Post, int, error) {
	filter := models.PostFilter{
		SchoolID:  claims.SchoolID,
		Audiences: audiencesFor(claims.Role),
		Page:      page,
		PageSize:  pageSize,
	}
	posts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list posts")
	}
	return posts, total, nil
}

// Pin toggles a post's pinned flag.
func (s *FeedService) Pin(ctx context.Context, id, schoolID string, pinned bool) (*models.Post, error) {
	if err := s.repo.SetPinned(ctx, id, schoolID, pinned); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to pin post")
	}
	post, err := s.repo.FindByID(ctx, id, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload post")
	}
	return post, nil
}

// Delete removes a post. Authors may delete their own posts; feed
// managers may delete any.
func (s *FeedService) Delete(ctx context.Context, claims *models.JWTClaims, id string, canManage bool) error {
	post, err := s.repo.FindByID(ctx, id, claims.SchoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}
	if !canManage && post.AuthorID != claims.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the author or a feed manager may delete this post")
	}

	if err := s.repo.Delete(ctx, id, claims.SchoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete post")
	}
	return nil
}

func audiencesFor(role models.UserRole) []models.PostAudience {
	switch role {
	case models.RoleAdmin, models.RoleEmployee:
		return []models.PostAudience{models.PostAudienceAll, models.PostAudienceStaff, models.PostAudienceStudents}
	case models.RoleStudent:
		return []models.PostAudience{models.PostAudienceAll, models.PostAudienceStudents}
	default:
		return []models.PostAudience{models.PostAudienceAll}
	}
}
