package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-api/internal/models"
)

// FeedRepository persists school feed posts. AuthorName is denormalized
// at write time so listing never joins users.
type FeedRepository struct {
	db *sqlx.DB
}

// NewFeedRepository constructs the repository.
func NewFeedRepository(db *sqlx.DB) *FeedRepository {
	return &FeedRepository{db: db}
}

const postColumns = `id, school_id, author_id, author_name, body, audience, is_pinned, created_at, updated_at`

// Create persists a new post.
func (r *FeedRepository) Create(ctx context.Context, post *models.Post) error {
	now := time.Now().UTC()
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	post.CreatedAt = now
	post.UpdatedAt = now
	const query = `INSERT INTO posts (id, school_id, author_id, author_name, body, audience, is_pinned, created_at, updated_at)
VALUES (:id, :school_id, :author_id, :author_name, :body, :audience, :is_pinned, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// FindByID returns a post scoped to a school.
func (r *FeedRepository) FindByID(ctx context.Context, id, schoolID string) (*models.Post, error) {
	query := fmt.Sprintf(`SELECT %s FROM posts WHERE id = $1 AND school_id = $2`, postColumns)
	var post models.Post
	if err := r.db.GetContext(ctx, &post, query, id, schoolID); err != nil {
		return nil, err
	}
	return &post, nil
}

// List returns the feed for a school, pinned posts first, newest next,
// restricted to the audiences the viewer may see.
func (r *FeedRepository) List(ctx context.Context, filter models.PostFilter) ([]models.Post, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	audiences := make([]string, 0, len(filter.Audiences))
	for _, audience := range filter.Audiences {
		audiences = append(audiences, string(audience))
	}

	query := fmt.Sprintf(`SELECT %s FROM posts WHERE school_id = $1 AND audience = ANY($2)
ORDER BY is_pinned DESC, created_at DESC LIMIT %d OFFSET %d`, postColumns, size, offset)
	var posts []models.Post
	if err := r.db.SelectContext(ctx, &posts, query, filter.SchoolID, pq.Array(audiences)); err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}

	const countQuery = `SELECT COUNT(*) FROM posts WHERE school_id = $1 AND audience = ANY($2)`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, filter.SchoolID, pq.Array(audiences)); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}
	return posts, total, nil
}

// SetPinned toggles the pinned flag.
func (r *FeedRepository) SetPinned(ctx context.Context, id, schoolID string, pinned bool) error {
	const query = `UPDATE posts SET is_pinned = $3, updated_at = $4 WHERE id = $1 AND school_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, schoolID, pinned, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("pin post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pin post affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a post.
func (r *FeedRepository) Delete(ctx context.Context, id, schoolID string) error {
	const query = `DELETE FROM posts WHERE id = $1 AND school_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, schoolID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete post affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
