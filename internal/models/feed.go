package models

import "time"

// PostAudience limits who sees a feed post.
type PostAudience string

const (
	PostAudienceAll      PostAudience = "ALL"
	PostAudienceStaff    PostAudience = "STAFF"
	PostAudienceStudents PostAudience = "STUDENTS"
)

// Valid returns true when the audience is a supported value.
func (a PostAudience) Valid() bool {
	switch a {
	case PostAudienceAll, PostAudienceStaff, PostAudienceStudents:
		return true
	default:
		return false
	}
}

// Post is one school-scoped feed entry.
type Post struct {
	ID         string       `db:"id" json:"id"`
	SchoolID   string       `db:"school_id" json:"school_id"`
	AuthorID   string       `db:"author_id" json:"author_id"`
	AuthorName string       `db:"author_name" json:"author_name"`
	Body       string       `db:"body" json:"body"`
	Audience   PostAudience `db:"audience" json:"audience"`
	IsPinned   bool         `db:"is_pinned" json:"is_pinned"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

// PostFilter scopes feed listing by school and viewer role.
type PostFilter struct {
	SchoolID  string
	Audiences []PostAudience
	Page      int
	PageSize  int
}
