// Package editor holds the editing session behind the post editor: the
// active post and selection, the autosave state machine, and the staging and
// merging of generated text.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"inkwell/internal/debounce"
	"inkwell/internal/doctree"
	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
)

var (
	// ErrClosed is returned by commands issued after Close.
	ErrClosed = errors.New("editing session closed")

	// ErrNothingPending is returned by accept and discard when no generated
	// result is staged.
	ErrNothingPending = errors.New("no pending result")
)

const emptyContentMessage = "No content to process. Write something first."

// Session is one editing session. It owns the active post, its selection,
// the save session and the generation state. All methods are safe for
// concurrent use; calls to the store and the generator run without holding
// the session lock.
//
// Every switch of the active post advances the session epoch. A completion
// that returns under an older epoch belongs to a post that is no longer
// active and is dropped.
type Session struct {
	store     PostStore
	generator Generator
	logger    *slog.Logger
	clock     debounce.Clock
	delay     time.Duration
	autosaver *debounce.Scheduler

	mu     sync.Mutex
	closed bool
	epoch  uint64
	post   *models.Post
	sel    doctree.Selection
	save   saveSession
	gen    generationSession
}

// New creates a session with no active post.
func New(store PostStore, generator Generator, opts ...Option) *Session {
	s := &Session{
		store:     store,
		generator: generator,
		logger:    slog.Default(),
		clock:     debounce.RealClock(),
		delay:     defaultDelay(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.autosaver = debounce.New(s.clock)
	return s
}

// Open makes post the active post, discarding the previous save session,
// pending timer and generation state. A nil post leaves the session with no
// active post. The post is copied; later changes to the argument are not seen.
func (s *Session) Open(post *models.Post) error {
	var next *models.Post
	if post != nil {
		next = post.Clone()
		if len(next.Body.Blocks) == 0 {
			next.Body = doctree.New()
		}
		if err := next.Body.Validate(); err != nil {
			return fmt.Errorf("open post %s: %w", post.ID, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.switchLocked(next)
	if next != nil {
		s.logger.Debug("post opened", "post_id", next.ID)
	}
	return nil
}

// NewPost creates a draft through the store and opens it.
func (s *Session) NewPost(ctx context.Context, title string) (*models.Post, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	created, err := s.store.Create(ctx, title, doctree.New())
	if err != nil {
		return nil, &domain.PersistenceError{Op: "create", Err: err}
	}
	if err := s.Open(created); err != nil {
		return nil, err
	}
	return created.Clone(), nil
}

// Close ends the session. The pending autosave is cancelled and in-flight
// completions are dropped on arrival.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.switchLocked(nil)
	s.autosaver.Stop()
}

func (s *Session) switchLocked(next *models.Post) {
	s.autosaver.Forget()
	s.epoch++
	s.post = next
	s.sel = doctree.DocumentStart
	s.save = saveSession{}
	s.gen = generationSession{}
}

// UpdateTitle sets the title of the active post.
func (s *Session) UpdateTitle(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.post == nil {
		return domain.ErrNoActivePost
	}
	if title == s.post.Title {
		return nil
	}
	s.post.Title = title
	s.markDirtyLocked()
	return nil
}

// ApplyChange replaces the body with tree, the editor's view of the document
// after a user edit, and moves the selection to sel. A change that leaves the
// body as it was only moves the selection.
func (s *Session) ApplyChange(tree doctree.Tree, sel doctree.Selection) error {
	if err := tree.Validate(); err != nil {
		return fmt.Errorf("apply change: %w", err)
	}
	if err := tree.CheckSelection(sel); err != nil {
		return fmt.Errorf("apply change: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.post == nil {
		return domain.ErrNoActivePost
	}
	s.sel = sel
	if tree.Equal(s.post.Body) {
		return nil
	}
	s.post.Body = tree.Clone()
	s.markDirtyLocked()
	return nil
}

// SetSelection moves the selection within the active body.
func (s *Session) SetSelection(sel doctree.Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.post == nil {
		return domain.ErrNoActivePost
	}
	if err := s.post.Body.CheckSelection(sel); err != nil {
		return err
	}
	s.sel = sel
	return nil
}

// Document returns a copy of the active post, or nil.
func (s *Session) Document() *models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.post == nil {
		return nil
	}
	return s.post.Clone()
}

// Selection returns the current selection.
func (s *Session) Selection() doctree.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

// ExtractPlainText returns the text sent to the generator. Empty or
// whitespace-only bodies fail with a ValidationError.
func (s *Session) ExtractPlainText() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.post == nil {
		return "", domain.ErrNoActivePost
	}
	return extractLocked(s.post.Body)
}

func extractLocked(body doctree.Tree) (string, error) {
	text, err := doctree.ExtractPlainText(body)
	if errors.Is(err, doctree.ErrEmptyDocument) {
		return "", &domain.ValidationError{Message: emptyContentMessage}
	}
	return text, err
}
