package services

import (
	"context"

	"inkwell/internal/doctree"
	"inkwell/internal/domain/models"
)

// PostService handles post business logic
type PostService interface {
	// CreatePost creates a draft post
	CreatePost(ctx context.Context, req *CreatePostRequest) (*models.Post, error)

	// GetPost retrieves a post owned by the user
	GetPost(ctx context.Context, userID, postID string) (*models.Post, error)

	// ListPosts lists the user's posts, most recently updated first
	ListPosts(ctx context.Context, userID string) (*models.PostList, error)

	// UpdatePost updates title and/or body; absent fields are left untouched
	UpdatePost(ctx context.Context, userID, postID string, req *UpdatePostRequest) (*models.Post, error)

	// PublishPost marks the post published
	PublishPost(ctx context.Context, userID, postID string) (*models.Post, error)

	// SearchPosts finds the user's posts whose title or text matches query
	SearchPosts(ctx context.Context, userID, query string) (*models.PostSearchResult, error)
}

// CreatePostRequest represents a post creation request
type CreatePostRequest struct {
	UserID string        `json:"-"` // Set by handler from auth context
	Title  *string       `json:"title,omitempty"`
	Body   *doctree.Tree `json:"content_json,omitempty"`
}

// UpdatePostRequest represents a partial post update
type UpdatePostRequest struct {
	Title *string       `json:"title,omitempty"`
	Body  *doctree.Tree `json:"content_json,omitempty"`
}

// PostIndex is a full-text index over posts
type PostIndex interface {
	// IndexPost adds or replaces the post in the index
	IndexPost(ctx context.Context, post *models.Post) error

	// Search returns the user's posts matching query and the estimated total
	Search(ctx context.Context, userID, query string, limit int) ([]models.PostSearchHit, int, error)
}

// PostArchive keeps a rendered copy of every published post
type PostArchive interface {
	// ArchivePublished stores the post and returns the object key it was written to
	ArchivePublished(ctx context.Context, post *models.Post) (string, error)
}
