// Package memory holds in-process repository implementations used when no
// database is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
	"inkwell/internal/domain/repositories"
)

// PostRepository keeps posts in a map. Stored values are copies; callers
// never share tree storage with the repository.
type PostRepository struct {
	mu    sync.RWMutex
	posts map[string]*models.Post
}

// NewPostRepository creates an empty repository
func NewPostRepository() *PostRepository {
	return &PostRepository{posts: make(map[string]*models.Post)}
}

var _ repositories.PostRepository = (*PostRepository)(nil)

// Create assigns a new id and stores the post
func (r *PostRepository) Create(_ context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post.ID = uuid.NewString()
	if _, exists := r.posts[post.ID]; exists {
		return fmt.Errorf("post %s: %w", post.ID, domain.ErrConflict)
	}
	r.posts[post.ID] = post.Clone()
	return nil
}

// GetByID returns the post if it exists and belongs to userID
func (r *PostRepository) GetByID(_ context.Context, id, userID string) (*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, ok := r.posts[id]
	if !ok || post.UserID != userID {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("post %s not found", id)}
	}
	return post.Clone(), nil
}

// Update replaces the stored post
func (r *PostRepository) Update(_ context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.posts[post.ID]
	if !ok || existing.UserID != post.UserID {
		return &domain.NotFoundError{Message: fmt.Sprintf("post %s not found", post.ID)}
	}
	updated := post.Clone()
	updated.CreatedAt = existing.CreatedAt
	r.posts[post.ID] = updated
	return nil
}

// ListByUser returns the user's posts, most recently updated first
func (r *PostRepository) ListByUser(_ context.Context, userID string) ([]models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	posts := []models.Post{}
	for _, post := range r.posts {
		if post.UserID == userID {
			posts = append(posts, *post.Clone())
		}
	}
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].UpdatedAt.Equal(posts[j].UpdatedAt) {
			return posts[i].ID < posts[j].ID
		}
		return posts[i].UpdatedAt.After(posts[j].UpdatedAt)
	})
	return posts, nil
}
