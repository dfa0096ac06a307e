package client

import (
	"context"
	"net/http"
	"net/url"

	"inkwell/internal/doctree"
	"inkwell/internal/domain/models"
	"inkwell/internal/domain/services"
)

// Create creates a draft with the given title and body.
func (c *HTTPClient) Create(ctx context.Context, title string, body doctree.Tree) (*models.Post, error) {
	req := services.CreatePostRequest{Title: &title, Body: &body}
	var post models.Post
	if err := c.do(ctx, http.MethodPost, "/api/posts", &req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// Update sends the fields set in req.
func (c *HTTPClient) Update(ctx context.Context, id string, req *services.UpdatePostRequest) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, http.MethodPatch, "/api/posts/"+url.PathEscape(id), req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// Publish marks the post as published.
func (c *HTTPClient) Publish(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, http.MethodPost, "/api/posts/"+url.PathEscape(id)+"/publish", nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// Get fetches one post.
func (c *HTTPClient) Get(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, http.MethodGet, "/api/posts/"+url.PathEscape(id), nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// List returns the caller's posts, most recently updated first.
func (c *HTTPClient) List(ctx context.Context) ([]models.Post, error) {
	var list models.PostList
	if err := c.do(ctx, http.MethodGet, "/api/posts", nil, &list); err != nil {
		return nil, err
	}
	return list.Posts, nil
}

// Search finds the caller's posts matching query.
func (c *HTTPClient) Search(ctx context.Context, query string) (*models.PostSearchResult, error) {
	var result models.PostSearchResult
	if err := c.do(ctx, http.MethodGet, "/api/posts/search?q="+url.QueryEscape(query), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
