package client

import (
	"context"

	"inkwell/internal/doctree"
	"inkwell/internal/domain/models"
	"inkwell/internal/domain/services"
)

// LocalStore serves the Post Store port from an in-process PostService,
// acting as a single fixed user.
type LocalStore struct {
	posts  services.PostService
	userID string
}

// NewLocalStore creates a store that acts as userID.
func NewLocalStore(posts services.PostService, userID string) *LocalStore {
	return &LocalStore{posts: posts, userID: userID}
}

func (s *LocalStore) Create(ctx context.Context, title string, body doctree.Tree) (*models.Post, error) {
	return s.posts.CreatePost(ctx, &services.CreatePostRequest{UserID: s.userID, Title: &title, Body: &body})
}

func (s *LocalStore) Update(ctx context.Context, id string, req *services.UpdatePostRequest) (*models.Post, error) {
	return s.posts.UpdatePost(ctx, s.userID, id, req)
}

func (s *LocalStore) Publish(ctx context.Context, id string) (*models.Post, error) {
	return s.posts.PublishPost(ctx, s.userID, id)
}

func (s *LocalStore) Get(ctx context.Context, id string) (*models.Post, error) {
	return s.posts.GetPost(ctx, s.userID, id)
}

func (s *LocalStore) List(ctx context.Context) ([]models.Post, error) {
	list, err := s.posts.ListPosts(ctx, s.userID)
	if err != nil {
		return nil, err
	}
	return list.Posts, nil
}

func (s *LocalStore) Search(ctx context.Context, query string) (*models.PostSearchResult, error) {
	return s.posts.SearchPosts(ctx, s.userID, query)
}

// LocalGenerator serves the Generator port from an in-process
// GenerationService.
type LocalGenerator struct {
	svc services.GenerationService
}

// NewLocalGenerator wraps svc.
func NewLocalGenerator(svc services.GenerationService) *LocalGenerator {
	return &LocalGenerator{svc: svc}
}

func (g *LocalGenerator) Generate(ctx context.Context, text string, mode models.GenerationMode) (string, error) {
	resp, err := g.svc.Generate(ctx, &models.GenerateRequest{Content: text, Type: mode})
	if err != nil {
		return "", err
	}
	return resp.Result, nil
}
