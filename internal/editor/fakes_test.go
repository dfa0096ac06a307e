package editor

import (
	"context"
	"errors"
	"sync"
	"time"

	"inkwell/internal/doctree"
	"inkwell/internal/domain/models"
	"inkwell/internal/domain/services"
)

var errStoreDown = errors.New("store unavailable")

// fakeStore records calls. When gate is set, Update signals started and then
// waits for gate before answering.
type fakeStore struct {
	mu         sync.Mutex
	updates    []services.UpdatePostRequest
	updateIDs  []string
	publishes  []string
	creates    int
	updateErr  error
	publishErr error
	now        time.Time

	started chan struct{}
	gate    chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeStore) Create(_ context.Context, title string, body doctree.Tree) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	return &models.Post{
		ID:        "created-1",
		Title:     title,
		Body:      body,
		Status:    models.PostStatusDraft,
		CreatedAt: f.now,
		UpdatedAt: f.now,
	}, nil
}

func (f *fakeStore) Update(_ context.Context, id string, req *services.UpdatePostRequest) (*models.Post, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateIDs = append(f.updateIDs, id)
	f.updates = append(f.updates, *req)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.now = f.now.Add(time.Minute)
	return &models.Post{ID: id, Title: *req.Title, Body: *req.Body, Status: models.PostStatusDraft, UpdatedAt: f.now}, nil
}

func (f *fakeStore) Publish(_ context.Context, id string) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishes = append(f.publishes, id)
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	f.now = f.now.Add(time.Minute)
	return &models.Post{ID: id, Status: models.PostStatusPublished, UpdatedAt: f.now}, nil
}

func (f *fakeStore) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func (f *fakeStore) lastUpdate() services.UpdatePostRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates[len(f.updates)-1]
}

// fakeGenerator answers with result or err. When gate is set, Generate
// signals started and then waits for gate.
type fakeGenerator struct {
	mu     sync.Mutex
	calls  []string
	modes  []models.GenerationMode
	result string
	err    error

	started chan struct{}
	gate    chan struct{}
}

func (g *fakeGenerator) Generate(_ context.Context, text string, mode models.GenerationMode) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, text)
	g.modes = append(g.modes, mode)
	g.mu.Unlock()

	if g.started != nil {
		g.started <- struct{}{}
	}
	if g.gate != nil {
		<-g.gate
	}
	if g.err != nil {
		return "", g.err
	}
	return g.result, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}
