package editor

import (
	"context"

	"inkwell/internal/doctree"
	"inkwell/internal/domain/models"
	"inkwell/internal/domain/services"
)

// PostStore persists posts. Every call returns the canonical stored record.
type PostStore interface {
	Create(ctx context.Context, title string, body doctree.Tree) (*models.Post, error)
	Update(ctx context.Context, id string, req *services.UpdatePostRequest) (*models.Post, error)
	Publish(ctx context.Context, id string) (*models.Post, error)
}

// Generator produces text from the plain-text projection of a post.
type Generator interface {
	Generate(ctx context.Context, text string, mode models.GenerationMode) (string, error)
}
