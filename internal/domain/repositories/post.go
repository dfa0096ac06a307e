package repositories

import (
	"context"

	"inkwell/internal/domain/models"
)

// PostRepository defines data access operations for posts
type PostRepository interface {
	// Create inserts a post and fills in its ID and timestamps
	Create(ctx context.Context, post *models.Post) error

	// GetByID retrieves a post owned by userID
	GetByID(ctx context.Context, id, userID string) (*models.Post, error)

	// Update writes title, body, status and updated_at of an existing post
	Update(ctx context.Context, post *models.Post) error

	// ListByUser lists a user's posts, most recently updated first
	ListByUser(ctx context.Context, userID string) ([]models.Post, error)
}
