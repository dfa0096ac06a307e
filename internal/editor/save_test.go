package editor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"inkwell/internal/debounce"
	"inkwell/internal/doctree"
	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
)

const autosaveDelay = 2000 * time.Millisecond

var testStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestSession(store *fakeStore, gen *fakeGenerator) (*Session, *debounce.ManualClock) {
	clock := debounce.NewManualClock(testStart)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if gen == nil {
		gen = &fakeGenerator{}
	}
	s := New(store, gen, WithClock(clock), WithAutosaveDelay(autosaveDelay), WithLogger(logger))
	return s, clock
}

func testPost(id string, blocks ...doctree.Block) *models.Post {
	if len(blocks) == 0 {
		blocks = []doctree.Block{doctree.Paragraph(doctree.Text("first draft"))}
	}
	return &models.Post{
		ID:        id,
		Title:     "Title " + id,
		Body:      doctree.Tree{Blocks: blocks},
		Status:    models.PostStatusDraft,
		UpdatedAt: testStart.Add(-time.Hour),
	}
}

func mustOpen(t *testing.T, s *Session, post *models.Post) {
	t.Helper()
	if err := s.Open(post); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
}

func TestTitleEditAutosavesAfterQuietPeriod(t *testing.T) {
	store := newFakeStore()
	s, clock := newTestSession(store, nil)
	mustOpen(t, s, testPost("p1"))

	if snap := s.SaveSnapshot(); snap.State != SaveClean || snap.HasUnsavedChanges || snap.LastSavedAt != nil {
		t.Fatalf("fresh session snapshot = %+v", snap)
	}

	if err := s.UpdateTitle("New title"); err != nil {
		t.Fatalf("UpdateTitle failed: %v", err)
	}
	if snap := s.SaveSnapshot(); snap.State != SaveDirty || !snap.HasUnsavedChanges {
		t.Fatalf("after edit snapshot = %+v, want dirty", snap)
	}

	clock.Advance(autosaveDelay - time.Millisecond)
	if store.updateCount() != 0 {
		t.Fatal("persisted before the quiet period elapsed")
	}

	clock.Advance(time.Millisecond)
	if store.updateCount() != 1 {
		t.Fatalf("updates = %d, want 1", store.updateCount())
	}
	if got := *store.lastUpdate().Title; got != "New title" {
		t.Errorf("persisted title = %q", got)
	}

	snap := s.SaveSnapshot()
	if snap.State != SaveClean || snap.HasUnsavedChanges || snap.IsSaving {
		t.Errorf("after save snapshot = %+v, want clean", snap)
	}
	if snap.LastSavedAt == nil || !snap.LastSavedAt.Equal(testStart.Add(autosaveDelay)) {
		t.Errorf("LastSavedAt = %v", snap.LastSavedAt)
	}
	if got := s.Document().UpdatedAt; !got.Equal(store.now) {
		t.Errorf("UpdatedAt = %v, want store timestamp %v", got, store.now)
	}
}

func TestSecondEditResetsAutosaveTimer(t *testing.T) {
	store := newFakeStore()
	s, clock := newTestSession(store, nil)
	mustOpen(t, s, testPost("p1"))

	_ = s.UpdateTitle("a")
	clock.Advance(500 * time.Millisecond)
	_ = s.UpdateTitle("ab")

	clock.Advance(autosaveDelay - time.Millisecond)
	if store.updateCount() != 0 {
		t.Fatal("persist fired 2000ms after the first edit")
	}
	clock.Advance(time.Millisecond)
	if store.updateCount() != 1 {
		t.Fatalf("updates = %d, want 1", store.updateCount())
	}
	if got := *store.lastUpdate().Title; got != "ab" {
		t.Errorf("persisted title = %q, want latest", got)
	}
}

func TestBodyChangeAutosaves(t *testing.T) {
	store := newFakeStore()
	s, clock := newTestSession(store, nil)
	mustOpen(t, s, testPost("p1"))

	edited := doctree.Tree{Blocks: []doctree.Block{doctree.Paragraph(doctree.Text("first draft!"))}}
	if err := s.ApplyChange(edited, doctree.Caret(doctree.Point{Leaf: 0, Offset: 12})); err != nil {
		t.Fatalf("ApplyChange failed: %v", err)
	}
	clock.Advance(autosaveDelay)

	if store.updateCount() != 1 {
		t.Fatalf("updates = %d, want 1", store.updateCount())
	}
	if body := *store.lastUpdate().Body; !body.Equal(edited) {
		t.Errorf("persisted body = %+v", body)
	}
}

func TestSelectionOnlyChangeIsNotAnEdit(t *testing.T) {
	store := newFakeStore()
	s, clock := newTestSession(store, nil)
	post := testPost("p1")
	mustOpen(t, s, post)

	sel := doctree.Range(doctree.Point{Leaf: 0, Offset: 0}, doctree.Point{Leaf: 0, Offset: 5})
	if err := s.ApplyChange(post.Body, sel); err != nil {
		t.Fatalf("ApplyChange failed: %v", err)
	}
	clock.Advance(2 * autosaveDelay)

	if store.updateCount() != 0 {
		t.Error("selection change was persisted")
	}
	if s.Selection() != sel {
		t.Errorf("selection = %+v, want %+v", s.Selection(), sel)
	}
}

func TestApplyChangeRejectsInvalidInput(t *testing.T) {
	s, _ := newTestSession(newFakeStore(), nil)
	mustOpen(t, s, testPost("p1"))

	err := s.ApplyChange(doctree.Tree{}, doctree.DocumentStart)
	if !errors.Is(err, doctree.ErrMalformed) {
		t.Errorf("empty tree error = %v, want ErrMalformed", err)
	}

	tree := doctree.Tree{Blocks: []doctree.Block{doctree.Paragraph(doctree.Text("abc"))}}
	err = s.ApplyChange(tree, doctree.Caret(doctree.Point{Leaf: 0, Offset: 9}))
	if !errors.Is(err, doctree.ErrInvalidSelection) {
		t.Errorf("bad selection error = %v, want ErrInvalidSelection", err)
	}
	if s.SaveSnapshot().State != SaveClean {
		t.Error("rejected change marked the session dirty")
	}
}

func TestPersistFailure(t *testing.T) {
	store := newFakeStore()
	store.updateErr = errStoreDown
	s, clock := newTestSession(store, nil)
	mustOpen(t, s, testPost("p1"))

	_ = s.UpdateTitle("x")
	clock.Advance(autosaveDelay)

	snap := s.SaveSnapshot()
	if snap.State != SaveFailed || !snap.HasUnsavedChanges {
		t.Fatalf("snapshot = %+v, want failed with unsaved changes", snap)
	}
	var perr *domain.PersistenceError
	if !errors.As(snap.Err, &perr) || !errors.Is(perr, errStoreDown) {
		t.Errorf("snapshot error = %v, want PersistenceError wrapping store error", snap.Err)
	}

	clock.Advance(10 * autosaveDelay)
	if store.updateCount() != 1 {
		t.Fatalf("failure was retried automatically: updates = %d", store.updateCount())
	}

	store.mu.Lock()
	store.updateErr = nil
	store.mu.Unlock()
	_ = s.UpdateTitle("xy")
	if s.SaveSnapshot().State != SaveDirty {
		t.Errorf("edit after failure should mark dirty")
	}
	clock.Advance(autosaveDelay)
	if snap := s.SaveSnapshot(); snap.State != SaveClean || snap.Err != nil {
		t.Errorf("retry snapshot = %+v, want clean", snap)
	}
}

func TestSwitchingPostCancelsPendingSave(t *testing.T) {
	store := newFakeStore()
	s, clock := newTestSession(store, nil)
	mustOpen(t, s, testPost("p1"))

	_ = s.UpdateTitle("unsaved")
	mustOpen(t, s, testPost("p2"))

	if snap := s.SaveSnapshot(); snap.State != SaveClean || snap.HasUnsavedChanges || snap.LastSavedAt != nil {
		t.Errorf("snapshot after switch = %+v, want reset", snap)
	}
	clock.Advance(2 * autosaveDelay)
	if store.updateCount() != 0 {
		t.Errorf("pending save for the previous post fired")
	}
}

func TestEditDuringSaveSchedulesFollowUp(t *testing.T) {
	store := newFakeStore()
	store.started = make(chan struct{})
	store.gate = make(chan struct{})
	s, clock := newTestSession(store, nil)
	mustOpen(t, s, testPost("p1"))
	_ = s.UpdateTitle("one")

	done := make(chan error, 1)
	go func() { done <- s.ManualSave(context.Background()) }()
	<-store.started

	if err := s.UpdateTitle("two"); err != nil {
		t.Fatalf("UpdateTitle during save failed: %v", err)
	}
	if snap := s.SaveSnapshot(); snap.State != SaveSaving || !snap.IsSaving {
		t.Errorf("state during save = %v, want saving", snap.State)
	}
	if err := s.ManualSave(context.Background()); !errors.Is(err, domain.ErrBusy) {
		t.Errorf("manual save while saving = %v, want ErrBusy", err)
	}

	close(store.gate)
	if err := <-done; err != nil {
		t.Fatalf("ManualSave failed: %v", err)
	}
	store.started = nil

	if snap := s.SaveSnapshot(); snap.State != SaveDirty || !snap.HasUnsavedChanges {
		t.Fatalf("after first save snapshot = %+v, want dirty", snap)
	}

	clock.Advance(autosaveDelay)
	if store.updateCount() != 2 {
		t.Fatalf("updates = %d, want follow-up save", store.updateCount())
	}
	if got := *store.lastUpdate().Title; got != "two" {
		t.Errorf("follow-up persisted %q, want two", got)
	}
	if s.SaveSnapshot().State != SaveClean {
		t.Errorf("state = %v, want clean", s.SaveSnapshot().State)
	}
}

func TestSaveCompletionForInactivePostIsDropped(t *testing.T) {
	store := newFakeStore()
	store.started = make(chan struct{})
	store.gate = make(chan struct{})
	s, _ := newTestSession(store, nil)
	mustOpen(t, s, testPost("p1"))

	done := make(chan error, 1)
	go func() { done <- s.ManualSave(context.Background()) }()
	<-store.started

	p2 := testPost("p2")
	mustOpen(t, s, p2)
	close(store.gate)

	if err := <-done; err != nil {
		t.Errorf("stale completion surfaced %v", err)
	}
	if snap := s.SaveSnapshot(); snap.LastSavedAt != nil || snap.State != SaveClean {
		t.Errorf("stale completion touched the new session: %+v", snap)
	}
	if got := s.Document().UpdatedAt; !got.Equal(p2.UpdatedAt) {
		t.Errorf("stale completion changed UpdatedAt of p2")
	}
}

func TestManualSaveFromClean(t *testing.T) {
	store := newFakeStore()
	s, clock := newTestSession(store, nil)
	mustOpen(t, s, testPost("p1"))

	if err := s.ManualSave(context.Background()); err != nil {
		t.Fatalf("ManualSave failed: %v", err)
	}
	if store.updateCount() != 1 {
		t.Fatalf("updates = %d, want 1", store.updateCount())
	}
	if s.SaveSnapshot().LastSavedAt == nil {
		t.Error("LastSavedAt not set")
	}

	_ = s.UpdateTitle("changed")
	if err := s.ManualSave(context.Background()); err != nil {
		t.Fatalf("ManualSave failed: %v", err)
	}
	clock.Advance(2 * autosaveDelay)
	if store.updateCount() != 2 {
		t.Errorf("manual save did not cancel the pending autosave: updates = %d", store.updateCount())
	}
}

func TestPublish(t *testing.T) {
	t.Run("saves then publishes", func(t *testing.T) {
		store := newFakeStore()
		s, _ := newTestSession(store, nil)
		mustOpen(t, s, testPost("p1"))
		_ = s.UpdateTitle("ready")

		if err := s.Publish(context.Background()); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		if store.updateCount() != 1 || len(store.publishes) != 1 {
			t.Fatalf("updates = %d, publishes = %d", store.updateCount(), len(store.publishes))
		}
		doc := s.Document()
		if doc.Status != models.PostStatusPublished {
			t.Errorf("status = %q, want published", doc.Status)
		}
		if !doc.UpdatedAt.Equal(store.now) {
			t.Errorf("UpdatedAt not merged from publish response")
		}
	})

	t.Run("failed save aborts publish", func(t *testing.T) {
		store := newFakeStore()
		store.updateErr = errStoreDown
		s, _ := newTestSession(store, nil)
		mustOpen(t, s, testPost("p1"))

		err := s.Publish(context.Background())
		var perr *domain.PublishError
		if !errors.As(err, &perr) || perr.Saved {
			t.Fatalf("error = %v, want PublishError with Saved=false", err)
		}
		if len(store.publishes) != 0 {
			t.Error("publish requested after a failed save")
		}
		if s.Document().Status != models.PostStatusDraft {
			t.Error("status changed on failed publish")
		}
		if s.SaveSnapshot().State != SaveFailed {
			t.Errorf("save state = %v, want failed", s.SaveSnapshot().State)
		}
	})

	t.Run("post switched during save is not published", func(t *testing.T) {
		for _, saveErr := range []error{errStoreDown, nil} {
			store := newFakeStore()
			store.updateErr = saveErr
			store.started = make(chan struct{})
			store.gate = make(chan struct{})
			s, _ := newTestSession(store, nil)
			mustOpen(t, s, testPost("p1"))
			_ = s.UpdateTitle("ready")

			done := make(chan error, 1)
			go func() { done <- s.Publish(context.Background()) }()
			<-store.started

			p2 := testPost("p2")
			mustOpen(t, s, p2)
			close(store.gate)

			if err := <-done; err != nil {
				t.Errorf("save error %v: Publish = %v, want nil for an inactive post", saveErr, err)
			}
			store.mu.Lock()
			publishes := len(store.publishes)
			store.mu.Unlock()
			if publishes != 0 {
				t.Errorf("save error %v: publish requested for a post whose save went stale", saveErr)
			}
			if doc := s.Document(); doc.ID != "p2" || doc.Status != models.PostStatusDraft {
				t.Errorf("save error %v: active post = %+v", saveErr, doc)
			}
			if snap := s.SaveSnapshot(); snap.State != SaveClean || snap.Err != nil {
				t.Errorf("save error %v: stale save touched the new session: %+v", saveErr, snap)
			}
		}
	})

	t.Run("publish failure is distinct from save failure", func(t *testing.T) {
		store := newFakeStore()
		store.publishErr = errStoreDown
		s, _ := newTestSession(store, nil)
		mustOpen(t, s, testPost("p1"))

		err := s.Publish(context.Background())
		var perr *domain.PublishError
		if !errors.As(err, &perr) || !perr.Saved || !errors.Is(err, errStoreDown) {
			t.Fatalf("error = %v, want PublishError with Saved=true", err)
		}
		if s.Document().Status != models.PostStatusDraft {
			t.Error("status changed on failed publish")
		}
		if s.SaveSnapshot().State != SaveClean {
			t.Errorf("save state = %v, want clean after successful save", s.SaveSnapshot().State)
		}
	})
}

func TestNoActivePost(t *testing.T) {
	s, _ := newTestSession(newFakeStore(), nil)

	checks := map[string]error{
		"UpdateTitle": s.UpdateTitle("x"),
		"ManualSave":  s.ManualSave(context.Background()),
		"Publish":     s.Publish(context.Background()),
		"Generate":    s.RequestGeneration(context.Background(), models.GenerationModeSummary),
	}
	for name, err := range checks {
		if !errors.Is(err, domain.ErrNoActivePost) {
			t.Errorf("%s error = %v, want ErrNoActivePost", name, err)
		}
	}
	if s.Document() != nil {
		t.Error("Document should be nil")
	}
}

func TestNewPostCreatesAndOpens(t *testing.T) {
	store := newFakeStore()
	s, _ := newTestSession(store, nil)

	post, err := s.NewPost(context.Background(), "Untitled")
	if err != nil {
		t.Fatalf("NewPost failed: %v", err)
	}
	if store.creates != 1 {
		t.Errorf("creates = %d, want 1", store.creates)
	}
	doc := s.Document()
	if doc == nil || doc.ID != post.ID {
		t.Fatalf("active post = %+v, want %s", doc, post.ID)
	}
	if !doc.Body.Equal(doctree.New()) {
		t.Errorf("new post body = %+v, want one empty paragraph", doc.Body)
	}
}

func TestOpenInitializesEmptyBody(t *testing.T) {
	s, _ := newTestSession(newFakeStore(), nil)
	post := testPost("p1")
	post.Body = doctree.Tree{}
	mustOpen(t, s, post)

	if !s.Document().Body.Equal(doctree.New()) {
		t.Errorf("empty body was not initialized")
	}

	bad := testPost("p2", doctree.Heading(7, doctree.Text("x")))
	if err := s.Open(bad); !errors.Is(err, doctree.ErrMalformed) {
		t.Errorf("Open malformed error = %v, want ErrMalformed", err)
	}
	if s.Document().ID != "p1" {
		t.Error("failed Open replaced the active post")
	}
}

func TestCloseCancelsPendingSave(t *testing.T) {
	store := newFakeStore()
	s, clock := newTestSession(store, nil)
	mustOpen(t, s, testPost("p1"))
	_ = s.UpdateTitle("x")

	s.Close()
	s.Close()
	clock.Advance(2 * autosaveDelay)

	if store.updateCount() != 0 {
		t.Error("autosave fired after Close")
	}
	if err := s.Open(testPost("p2")); !errors.Is(err, ErrClosed) {
		t.Errorf("Open after Close = %v, want ErrClosed", err)
	}
}

func TestWordCountInSnapshot(t *testing.T) {
	s, _ := newTestSession(newFakeStore(), nil)
	mustOpen(t, s, testPost("p1",
		doctree.Heading(1, doctree.Text("Two words")),
		doctree.Paragraph(doctree.Text("and three more")),
	))

	if got := s.SaveSnapshot().WordCount; got != 5 {
		t.Errorf("WordCount = %d, want 5", got)
	}
}
