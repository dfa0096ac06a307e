package editor

import (
	"context"
	"errors"

	"inkwell/internal/doctree"
	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
)

// GenerationState is the lifecycle of a generation request.
type GenerationState int

const (
	GenerationIdle GenerationState = iota
	GenerationRequesting
	GenerationReady
	GenerationErrored
)

func (g GenerationState) String() string {
	switch g {
	case GenerationIdle:
		return "idle"
	case GenerationRequesting:
		return "requesting"
	case GenerationReady:
		return "ready"
	case GenerationErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// PendingResult is generated text waiting to be accepted or discarded.
type PendingResult struct {
	Mode models.GenerationMode
	Text string
}

// GenerationSnapshot is a point-in-time view of the generation state.
type GenerationSnapshot struct {
	State   GenerationState
	Mode    models.GenerationMode
	Pending *PendingResult
	Err     *domain.GenerationError
}

type generationSession struct {
	state   GenerationState
	mode    models.GenerationMode
	pending *PendingResult
	err     *domain.GenerationError
}

// PendingResult returns the staged result, if any.
func (s *Session) PendingResult() (PendingResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen.pending == nil {
		return PendingResult{}, false
	}
	return *s.gen.pending, true
}

// GenerationSnapshot returns the generation state of the active post.
func (s *Session) GenerationSnapshot() GenerationSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := GenerationSnapshot{State: s.gen.state, Mode: s.gen.mode, Err: s.gen.err}
	if s.gen.pending != nil {
		p := *s.gen.pending
		snap.Pending = &p
	}
	return snap
}

// RequestGeneration sends the plain text of the active post to the generator
// and stages the response as the pending result. It blocks until the
// generator answers. A second request while one is in flight fails with
// domain.ErrBusy. If the active post changes before the answer arrives, the
// answer is dropped and RequestGeneration returns nil.
func (s *Session) RequestGeneration(ctx context.Context, mode models.GenerationMode) error {
	if !mode.Valid() {
		return &domain.ValidationError{Message: "type must be summary or grammar"}
	}

	s.mu.Lock()
	if s.post == nil {
		s.mu.Unlock()
		return domain.ErrNoActivePost
	}
	if s.gen.state == GenerationRequesting {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	text, err := extractLocked(s.post.Body)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	epoch, postID := s.epoch, s.post.ID
	s.gen = generationSession{state: GenerationRequesting, mode: mode}
	s.mu.Unlock()

	s.logger.Debug("generation requested", "post_id", postID, "mode", mode)
	result, err := s.generator.Generate(ctx, text, mode)

	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		s.logger.Debug("dropping generation response for inactive post",
			"post_id", postID,
			"mode", mode,
			"error", domain.ErrStaleResponse,
		)
		return nil
	}

	if err != nil {
		gerr := asGenerationError(err)
		s.gen.state = GenerationErrored
		s.gen.err = gerr
		s.logger.Warn("generation failed", "post_id", postID, "mode", mode, "error", err)
		return gerr
	}

	s.gen.state = GenerationReady
	s.gen.pending = &PendingResult{Mode: mode, Text: result}
	return nil
}

func asGenerationError(err error) *domain.GenerationError {
	var gerr *domain.GenerationError
	if errors.As(err, &gerr) {
		return gerr
	}
	return &domain.GenerationError{Err: err}
}

// AcceptPendingResult merges the pending result into the body and enters the
// normal autosave path.
func (s *Session) AcceptPendingResult() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.post == nil {
		return domain.ErrNoActivePost
	}
	if s.gen.state != GenerationReady || s.gen.pending == nil {
		return ErrNothingPending
	}

	tree, sel, err := Merge(s.post.Body, s.sel, *s.gen.pending)
	if err != nil {
		return err
	}

	s.post.Body = tree
	s.sel = sel
	s.gen = generationSession{}
	s.markDirtyLocked()
	return nil
}

// DiscardPendingResult drops the pending result without touching the body.
func (s *Session) DiscardPendingResult() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen.state != GenerationReady || s.gen.pending == nil {
		return ErrNothingPending
	}
	s.gen = generationSession{}
	return nil
}

// DismissGenerationError clears a failed request.
func (s *Session) DismissGenerationError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen.state == GenerationErrored {
		s.gen = generationSession{}
	}
}

// Merge applies a generated result to tree. A summary replaces the whole
// document. A grammar fix replaces only the selected range when the
// selection is a non-collapsed range, and the whole document otherwise.
func Merge(tree doctree.Tree, sel doctree.Selection, result PendingResult) (doctree.Tree, doctree.Selection, error) {
	if result.Mode == models.GenerationModeGrammarFix && !sel.IsCollapsed() {
		return doctree.ReplaceSelection(tree, sel, result.Text)
	}
	return doctree.ReplaceWholeDocument(result.Text), doctree.DocumentStart, nil
}
