package editor

import (
	"context"
	"time"

	"inkwell/internal/debounce"
	"inkwell/internal/doctree"
	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
	"inkwell/internal/domain/services"
)

// SaveState is the autosave status of the active post.
type SaveState int

const (
	// SaveClean means nothing changed since the post was loaded or last saved.
	SaveClean SaveState = iota
	// SaveDirty means there are edits not yet persisted.
	SaveDirty
	// SaveSaving means a persist call is in flight.
	SaveSaving
	// SaveFailed means the last persist call errored; the edits are unsaved.
	SaveFailed
)

func (s SaveState) String() string {
	switch s {
	case SaveClean:
		return "clean"
	case SaveDirty:
		return "dirty"
	case SaveSaving:
		return "saving"
	case SaveFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SaveSnapshot is a point-in-time view of the save session.
type SaveSnapshot struct {
	State             SaveState
	IsSaving          bool
	HasUnsavedChanges bool
	LastSavedAt       *time.Time
	Err               error // last persist failure, nil once a save succeeds
	WordCount         int
}

type saveSession struct {
	state       SaveState
	unsaved     bool
	lastSavedAt *time.Time
	err         error
	revision    uint64 // bumped by every content or title edit
	publishing  bool
}

// pendingSave is a persist call captured under the lock.
type pendingSave struct {
	epoch    uint64
	revision uint64
	postID   string
	req      *services.UpdatePostRequest
}

// SaveSnapshot returns the save session of the active post.
func (s *Session) SaveSnapshot() SaveSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SaveSnapshot{
		State:             s.save.state,
		IsSaving:          s.save.state == SaveSaving,
		HasUnsavedChanges: s.save.unsaved,
		Err:               s.save.err,
	}
	if s.save.lastSavedAt != nil {
		at := *s.save.lastSavedAt
		snap.LastSavedAt = &at
	}
	if s.post != nil {
		snap.WordCount = doctree.WordCount(s.post.Body)
	}
	return snap
}

// markDirtyLocked records an edit and reschedules the autosave. An edit made
// while a save is in flight keeps the state Saving; the completion notices
// the newer revision and schedules a follow-up.
func (s *Session) markDirtyLocked() {
	s.save.revision++
	s.save.unsaved = true
	if s.save.state != SaveSaving {
		s.save.state = SaveDirty
	}
	s.scheduleLocked()
}

func (s *Session) scheduleLocked() {
	var id, title, body any = debounce.Absent, nil, nil
	if s.post != nil {
		id, title, body = s.post.ID, s.post.Title, s.post.Body
	}
	s.autosaver.Schedule(s.autosave, s.delay, id, title, body)
}

// autosave runs when the debounce timer fires.
func (s *Session) autosave() {
	s.mu.Lock()
	if s.post == nil || s.save.state != SaveDirty {
		s.mu.Unlock()
		return
	}
	job := s.beginSaveLocked()
	s.mu.Unlock()

	s.logger.Debug("autosave", "post_id", job.postID)
	_, _ = s.runSave(context.Background(), job)
}

// ManualSave persists the active post now. It is refused while a save is in
// flight. A save that completes after the active post changed reports nil.
func (s *Session) ManualSave(ctx context.Context) error {
	stale, err := s.saveNow(ctx)
	if stale {
		return nil
	}
	return err
}

// saveNow runs a save of the active post and reports whether its completion
// arrived after the active post changed. err is the store failure, if any,
// stale or not.
func (s *Session) saveNow(ctx context.Context) (stale bool, err error) {
	s.mu.Lock()
	if s.post == nil {
		s.mu.Unlock()
		return false, domain.ErrNoActivePost
	}
	if s.save.state == SaveSaving {
		s.mu.Unlock()
		return false, domain.ErrBusy
	}
	s.autosaver.Cancel()
	job := s.beginSaveLocked()
	s.mu.Unlock()

	return s.runSave(ctx, job)
}

func (s *Session) beginSaveLocked() pendingSave {
	title := s.post.Title
	body := s.post.Body.Clone()
	s.save.state = SaveSaving
	return pendingSave{
		epoch:    s.epoch,
		revision: s.save.revision,
		postID:   s.post.ID,
		req:      &services.UpdatePostRequest{Title: &title, Body: &body},
	}
}

// runSave persists job. A completion for a post that is no longer active
// leaves the session untouched and reports stale, along with the store error.
func (s *Session) runSave(ctx context.Context, job pendingSave) (stale bool, err error) {
	saved, err := s.store.Update(ctx, job.postID, job.req)
	var perr error
	if err != nil {
		perr = &domain.PersistenceError{Op: "update", PostID: job.postID, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if job.epoch != s.epoch {
		s.logger.Debug("dropping save completion for inactive post",
			"post_id", job.postID,
			"save_error", err,
			"error", domain.ErrStaleResponse,
		)
		return true, perr
	}

	if perr != nil {
		s.save.state = SaveFailed
		s.save.unsaved = true
		s.save.err = perr
		s.logger.Warn("save failed", "post_id", job.postID, "error", err)
		return false, perr
	}

	now := s.clock.Now()
	s.save.lastSavedAt = &now
	s.save.err = nil
	if saved != nil && !saved.UpdatedAt.IsZero() {
		s.post.UpdatedAt = saved.UpdatedAt
	}

	if s.save.revision == job.revision {
		s.save.state = SaveClean
		s.save.unsaved = false
		return false, nil
	}

	// Edited while the save was in flight.
	s.save.state = SaveDirty
	s.save.unsaved = true
	s.autosaver.Forget()
	s.scheduleLocked()
	return false, nil
}

// Publish saves the active post and, only if that succeeds, asks the store to
// publish it. Failures are reported as *domain.PublishError. If the active
// post changes while the save is in flight nothing is published and Publish
// returns nil.
func (s *Session) Publish(ctx context.Context) error {
	s.mu.Lock()
	if s.post == nil {
		s.mu.Unlock()
		return domain.ErrNoActivePost
	}
	if s.save.publishing {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	s.save.publishing = true
	epoch, postID := s.epoch, s.post.ID
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.epoch == epoch {
			s.save.publishing = false
		}
		s.mu.Unlock()
	}()

	stale, err := s.saveNow(ctx)
	if stale {
		s.logger.Debug("publish abandoned, post no longer active",
			"post_id", postID,
			"save_error", err,
		)
		return nil
	}
	if err != nil {
		return &domain.PublishError{PostID: postID, Saved: false, Err: err}
	}

	// The save above may have run for a post opened after Publish began.
	s.mu.Lock()
	switched := s.epoch != epoch
	s.mu.Unlock()
	if switched {
		s.logger.Debug("publish abandoned, post no longer active", "post_id", postID)
		return nil
	}

	published, err := s.store.Publish(ctx, postID)
	if err != nil {
		s.logger.Warn("publish failed", "post_id", postID, "error", err)
		return &domain.PublishError{PostID: postID, Saved: true, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		s.logger.Debug("dropping publish completion for inactive post", "post_id", postID)
		return nil
	}
	s.applyPublishedLocked(published)
	return nil
}

func (s *Session) applyPublishedLocked(published *models.Post) {
	s.post.Status = models.PostStatusPublished
	if published == nil {
		return
	}
	if published.Status != "" {
		s.post.Status = published.Status
	}
	if !published.UpdatedAt.IsZero() {
		s.post.UpdatedAt = published.UpdatedAt
	}
}
