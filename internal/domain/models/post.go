package models

import (
	"time"

	"inkwell/internal/doctree"
)

// PostStatus is the publication state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// Post is a blog post. Body is always a validated tree once loaded.
type Post struct {
	ID        string       `json:"id" db:"id"`
	UserID    string       `json:"user_id" db:"user_id"`
	Title     string       `json:"title" db:"title"`
	Body      doctree.Tree `json:"content_json" db:"content_json"`
	Status    PostStatus   `json:"status" db:"status"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

// Clone returns a copy of the post that shares no tree storage with p.
func (p *Post) Clone() *Post {
	out := *p
	out.Body = p.Body.Clone()
	return &out
}

// PostList is the response shape for listing posts.
type PostList struct {
	Posts []Post `json:"posts"`
	Total int    `json:"total"`
}

// PostSearchHit is one post matching a search.
type PostSearchHit struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Status    PostStatus `json:"status"`
	Snippet   string     `json:"snippet"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PostSearchResult is the response shape for searching posts.
type PostSearchResult struct {
	Query string          `json:"query"`
	Hits  []PostSearchHit `json:"hits"`
	Total int             `json:"total"`
}
