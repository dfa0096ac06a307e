package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"inkwell/internal/config"
	"inkwell/internal/doctree"
	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
	"inkwell/internal/domain/repositories"
	"inkwell/internal/domain/services"
)

const defaultPostTitle = "Untitled"

// postService implements the PostService interface
type postService struct {
	postRepo  repositories.PostRepository
	txManager repositories.TransactionManager
	index     services.PostIndex   // nil searches by scanning the user's posts
	archive   services.PostArchive // nil skips archiving on publish
	logger    *slog.Logger
	now       func() time.Time
}

// PostServiceOption configures optional collaborators of the post service
type PostServiceOption func(*postService)

// WithSearchIndex keeps index in step with every write and serves searches from it
func WithSearchIndex(index services.PostIndex) PostServiceOption {
	return func(s *postService) { s.index = index }
}

// WithArchive stores a rendered copy of each post when it is published
func WithArchive(archive services.PostArchive) PostServiceOption {
	return func(s *postService) { s.archive = archive }
}

// NewPostService creates a new post service
func NewPostService(
	postRepo repositories.PostRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
	opts ...PostServiceOption,
) services.PostService {
	s := &postService{
		postRepo:  postRepo,
		txManager: txManager,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePost creates a draft. A missing or empty title becomes "Untitled" and
// a missing body the initial tree.
func (s *postService) CreatePost(ctx context.Context, req *services.CreatePostRequest) (*models.Post, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	title := defaultPostTitle
	if req.Title != nil && *req.Title != "" {
		title = *req.Title
	}
	body := doctree.New()
	if req.Body != nil {
		body = req.Body.Clone()
	}

	now := s.now()
	post := &models.Post{
		UserID:    req.UserID,
		Title:     title,
		Body:      body,
		Status:    models.PostStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	s.logger.Info("post created",
		"post_id", post.ID,
		"user_id", post.UserID,
		"title", post.Title,
	)
	s.indexPost(ctx, post)

	return post, nil
}

// GetPost retrieves a post owned by the user
func (s *postService) GetPost(ctx context.Context, userID, postID string) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, postID, userID)
}

// ListPosts lists the user's posts, most recently updated first
func (s *postService) ListPosts(ctx context.Context, userID string) (*models.PostList, error) {
	posts, err := s.postRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.PostList{Posts: posts, Total: len(posts)}, nil
}

// UpdatePost applies the present fields and refreshes updated_at
func (s *postService) UpdatePost(ctx context.Context, userID, postID string, req *services.UpdatePostRequest) (*models.Post, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var updated *models.Post
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		post, err := s.postRepo.GetByID(txCtx, postID, userID)
		if err != nil {
			return err
		}

		if req.Title != nil {
			post.Title = *req.Title
		}
		if req.Body != nil {
			post.Body = req.Body.Clone()
		}
		post.UpdatedAt = s.now()

		if err := s.postRepo.Update(txCtx, post); err != nil {
			return err
		}
		updated = post
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("post updated",
		"post_id", updated.ID,
		"title_changed", req.Title != nil,
		"body_changed", req.Body != nil,
	)
	s.indexPost(ctx, updated)

	return updated, nil
}

// PublishPost marks the post published. Publishing an already published
// post only refreshes updated_at.
func (s *postService) PublishPost(ctx context.Context, userID, postID string) (*models.Post, error) {
	var published *models.Post
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		post, err := s.postRepo.GetByID(txCtx, postID, userID)
		if err != nil {
			return err
		}

		post.Status = models.PostStatusPublished
		post.UpdatedAt = s.now()

		if err := s.postRepo.Update(txCtx, post); err != nil {
			return err
		}
		published = post
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("post published", "post_id", published.ID, "user_id", userID)
	s.indexPost(ctx, published)
	s.archivePost(ctx, published)
	return published, nil
}

func (s *postService) validateCreateRequest(req *services.CreatePostRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Title, validation.Length(0, config.MaxPostTitleLength)),
		// *doctree.Tree is Validatable; ozzo runs Tree.Validate on non-nil bodies
		validation.Field(&req.Body),
	)
}

// An empty title is allowed on update; autosave sends whatever the user typed.
func (s *postService) validateUpdateRequest(req *services.UpdatePostRequest) error {
	if req.Title == nil && req.Body == nil {
		return errors.New("title or content_json must be provided")
	}
	return validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Length(0, config.MaxPostTitleLength)),
		validation.Field(&req.Body),
	)
}
