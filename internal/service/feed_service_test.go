package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-api/internal/models"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
)

type feedRepoStub struct {
	posts      map[string]*models.Post
	lastFilter models.PostFilter
	deleted    []string
}

func newFeedRepoStub(posts ...*models.Post) *feedRepoStub {
	stub := &feedRepoStub{posts: map[string]*models.Post{}}
	for _, p := range posts {
		stub.posts[p.ID] = p
	}
	return stub
}

func (s *feedRepoStub) Create(ctx context.Context, post *models.Post) error {
	post.ID = "post-new"
	s.posts[post.ID] = post
	return nil
}

func (s *feedRepoStub) FindByID(ctx context.Context, id, schoolID string) (*models.Post, error) {
	post, ok := s.posts[id]
	if !ok || post.SchoolID != schoolID {
		return nil, sql.ErrNoRows
	}
	return post, nil
}

func (s *feedRepoStub) List(ctx context.Context, filter models.PostFilter) ([]models.Post, int, error) {
	s.lastFilter = filter
	return nil, 0, nil
}

func (s *feedRepoStub) SetPinned(ctx context.Context, id, schoolID string, pinned bool) error {
	post, ok := s.posts[id]
	if !ok {
		return sql.ErrNoRows
	}
	post.IsPinned = pinned
	return nil
}

func (s *feedRepoStub) Delete(ctx context.Context, id, schoolID string) error {
	if _, ok := s.posts[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.posts, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func TestFeedListFiltersAudienceByRole(t *testing.T) {
	repo := newFeedRepoStub()
	svc := NewFeedService(repo, nil, nil)
	ctx := context.Background()

	_, _, err := svc.List(ctx, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent, SchoolID: "sch-1"}, 1, 20)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.PostAudience{models.PostAudienceAll, models.PostAudienceStudents}, repo.lastFilter.Audiences)

	_, _, err = svc.List(ctx, &models.JWTClaims{UserID: "par-1", Role: models.RoleParent, SchoolID: "sch-1"}, 1, 20)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.PostAudience{models.PostAudienceAll}, repo.lastFilter.Audiences)

	_, _, err = svc.List(ctx, &models.JWTClaims{UserID: "emp-1", Role: models.RoleEmployee, SchoolID: "sch-1"}, 1, 20)
	require.NoError(t, err)
	assert.Contains(t, repo.lastFilter.Audiences, models.PostAudienceStaff)
}

func TestFeedCreateRejectsUnknownAudience(t *testing.T) {
	svc := NewFeedService(newFeedRepoStub(), nil, nil)

	_, err := svc.Create(context.Background(), &models.JWTClaims{UserID: "emp-1", SchoolID: "sch-1"}, CreatePostRequest{
		Body:     "Sports day moved to Friday",
		Audience: "EVERYONE",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFeedDeleteAuthorOrManager(t *testing.T) {
	post := &models.Post{ID: "post-1", SchoolID: "sch-1", AuthorID: "emp-1", Body: "Notice"}
	repo := newFeedRepoStub(post)
	svc := NewFeedService(repo, nil, nil)
	ctx := context.Background()

	other := &models.JWTClaims{UserID: "emp-2", Role: models.RoleEmployee, SchoolID: "sch-1"}
	err := svc.Delete(ctx, other, "post-1", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)

	author := &models.JWTClaims{UserID: "emp-1", Role: models.RoleEmployee, SchoolID: "sch-1"}
	require.NoError(t, svc.Delete(ctx, author, "post-1", false))
	assert.Equal(t, []string{"post-1"}, repo.deleted)

	repo.posts["post-2"] = &models.Post{ID: "post-2", SchoolID: "sch-1", AuthorID: "emp-1", Body: "Old notice"}
	admin := &models.JWTClaims{UserID: "adm-1", Role: models.RoleAdmin, SchoolID: "sch-1"}
	require.NoError(t, svc.Delete(ctx, admin, "post-2", true))
}

func TestFeedPinToggles(t *testing.T) {
	post := &models.Post{ID: "post-1", SchoolID: "sch-1", AuthorID: "emp-1", Body: "Notice"}
	svc := NewFeedService(newFeedRepoStub(post), nil, nil)
	ctx := context.Background()

	pinned, err := svc.Pin(ctx, "post-1", "sch-1", true)
	require.NoError(t, err)
	assert.True(t, pinned.IsPinned)

	_, err = svc.Pin(ctx, "missing", "sch-1", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
