// ABOUTME: Tests for the note session controller state machine.
// ABOUTME: Uses a real SQLite repository for scenarios and a fake one for failure paths.

package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harper/inkwell/internal/autosave"
	"github.com/harper/inkwell/internal/db"
	"github.com/harper/inkwell/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newSQLiteRepo(t *testing.T) *db.Repository {
	t.Helper()
	store := db.NewStore(filepath.Join(t.TempDir(), "notes.db"))
	t.Cleanup(func() { _ = store.Close() })
	return db.NewRepository(store)
}

func newCoordinator(t *testing.T, w autosave.Writer, debounce time.Duration) *autosave.Coordinator {
	t.Helper()
	c := autosave.New(w, autosave.Options{Debounce: debounce})
	t.Cleanup(c.Shutdown)
	return c
}

func seed(t *testing.T, repo *db.Repository, title, content string) *models.Note {
	t.Helper()
	note, err := repo.CreateNote(context.Background(), models.CreateParams{Title: title, Content: content})
	require.NoError(t, err)
	return note
}

func TestOpenExisting(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	note := seed(t, repo, "Groceries", "<p>eggs</p>")

	s := New(repo, newCoordinator(t, repo, time.Hour))
	require.NoError(t, s.Open(ctx, note.ID))

	assert.Equal(t, StateReady, s.State())
	assert.False(t, s.Dirty())
	assert.Equal(t, "Groceries", s.Note().Title)
}

func TestOpenNewCreatesNote(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	s := New(repo, newCoordinator(t, repo, time.Hour))
	require.NoError(t, s.Open(ctx, uuid.Nil))

	note := s.Note()
	require.NotNil(t, note)
	assert.Equal(t, models.DefaultTitle, note.Title)
	assert.Equal(t, int64(1), note.Metadata.Version)

	stored, err := repo.GetNoteByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, note.ID, stored.ID)
}

func TestOpenMissingEntersError(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	s := New(repo, newCoordinator(t, repo, time.Hour))
	err := s.Open(ctx, uuid.New())

	require.Error(t, err)
	assert.True(t, errors.Is(err, db.ErrNoteNotFound))
	assert.Equal(t, StateError, s.State())
	assert.ErrorIs(t, s.Err(), db.ErrNoteNotFound)
	assert.ErrorIs(t, s.SetTitle("x"), ErrNotReady)
}

func TestEditsScheduleAutosave(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	note := seed(t, repo, "Draft", "<p>one</p>")
	coord := newCoordinator(t, repo, 20*time.Millisecond)

	s := New(repo, coord)
	require.NoError(t, s.Open(ctx, note.ID))
	require.NoError(t, s.SetContent("<p>one two</p>"))
	assert.True(t, s.Dirty())

	require.Eventually(t, func() bool {
		got, err := repo.GetNoteByID(ctx, note.ID)
		return err == nil && got.Content == "<p>one two</p>"
	}, 2*time.Second, 10*time.Millisecond)

	got, err := repo.GetNoteByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.WordCount)
	assert.Equal(t, int64(2), got.Metadata.Version)
	// Autosave persists the edit but the session still differs from what it loaded.
	assert.True(t, s.Dirty())
}

func TestTitleEditThenBackground(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	note := seed(t, repo, "Old title", "<p>Body text</p>")
	coord := newCoordinator(t, repo, time.Hour)

	s := New(repo, coord)
	require.NoError(t, s.Open(ctx, note.ID))
	require.NoError(t, s.SetTitle("New title"))

	_, err := s.Dispatch(ctx, EventBackgrounded)
	require.NoError(t, err)

	got, err := repo.GetNoteByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Title)
	assert.Equal(t, "<p>Body text</p>", got.Content)
	assert.Equal(t, int64(1), got.Metadata.Version)
	assert.False(t, coord.HasPending(note.ID))
	assert.Equal(t, StateReady, s.State())
}

func TestBackgroundWhenCleanDoesNothing(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	note := seed(t, repo, "Clean", "")
	coord := newCoordinator(t, repo, time.Hour)

	s := New(repo, coord)
	require.NoError(t, s.Open(ctx, note.ID))
	require.NoError(t, s.SetCursor(4))

	require.NoError(t, s.FocusLost(ctx))
	assert.True(t, coord.HasPending(note.ID), "cursor-only change should stay buffered")
}

func TestDiscardRevertsAutosavedEdits(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	note := seed(t, repo, "Letter", "<p>Dear Sam</p>")
	coord := newCoordinator(t, repo, 20*time.Millisecond)

	s := New(repo, coord)
	require.NoError(t, s.Open(ctx, note.ID))
	require.NoError(t, s.SetTitle("Letter v2"))
	require.NoError(t, s.SetContent("<p>Dear Sam, never mind</p>"))

	require.Eventually(t, func() bool {
		got, err := repo.GetNoteByID(ctx, note.ID)
		return err == nil && got.Title == "Letter v2"
	}, 2*time.Second, 10*time.Millisecond)

	res, err := s.Dispatch(ctx, EventCloseRequested)
	require.NoError(t, err)
	require.Equal(t, CloseBlocked, res)

	require.NoError(t, s.Resolve(ctx, DecisionDiscard))
	assert.Equal(t, StateClosed, s.State())

	time.Sleep(60 * time.Millisecond)
	got, err := repo.GetNoteByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "Letter", got.Title)
	assert.Equal(t, "<p>Dear Sam</p>", got.Content)
	assert.Equal(t, "Dear Sam", got.PlainText)
	assert.False(t, coord.HasPending(note.ID))
}

func TestDiscardBeforeAutosaveWritesNothingNew(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	note := seed(t, repo, "Keep", "<p>same</p>")
	coord := newCoordinator(t, repo, time.Hour)

	s := New(repo, coord)
	require.NoError(t, s.Open(ctx, note.ID))
	require.NoError(t, s.SetContent("<p>changed</p>"))
	require.NoError(t, s.Resolve(ctx, DecisionDiscard))

	got, err := repo.GetNoteByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>same</p>", got.Content)
	assert.Equal(t, int64(1), got.Metadata.Version)
}

func TestSaveAndExit(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	note := seed(t, repo, "Plan", "<p>a</p>")
	coord := newCoordinator(t, repo, time.Hour)

	s := New(repo, coord)
	require.NoError(t, s.Open(ctx, note.ID))
	require.NoError(t, s.SetContent("<p>a b</p>"))
	require.Equal(t, CloseBlocked, s.RequestClose())

	require.NoError(t, s.Resolve(ctx, DecisionSaveAndExit))
	assert.Equal(t, StateClosed, s.State())

	got, err := repo.GetNoteByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>a b</p>", got.Content)
	assert.Equal(t, int64(2), got.Metadata.Version)
	assert.False(t, coord.HasPending(note.ID))
}

func TestCancelDecisionKeepsSessionOpen(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	note := seed(t, repo, "Stay", "")

	s := New(repo, newCoordinator(t, repo, time.Hour))
	require.NoError(t, s.Open(ctx, note.ID))
	require.NoError(t, s.SetTitle("Stay here"))

	require.NoError(t, s.Resolve(ctx, DecisionCancel))
	assert.Equal(t, StateReady, s.State())
	assert.True(t, s.Dirty())
}

func TestSaveClearsDirty(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	note := seed(t, repo, "Title", "<p>x</p>")

	s := New(repo, newCoordinator(t, repo, time.Hour))
	require.NoError(t, s.Open(ctx, note.ID))
	require.NoError(t, s.SetTitle(""))
	require.NoError(t, s.Save(ctx))

	assert.False(t, s.Dirty())
	assert.Equal(t, models.DefaultTitle, s.Note().Title)
	assert.Equal(t, CloseProceed, s.RequestClose())
	require.NoError(t, s.Close(ctx))
	assert.Equal(t, StateClosed, s.State())
}

func TestCloseFlushesBufferedChanges(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	note := seed(t, repo, "Cursor", "")
	coord := newCoordinator(t, repo, time.Hour)

	s := New(repo, coord)
	require.NoError(t, s.Open(ctx, note.ID))
	require.NoError(t, s.SetCursor(12))
	require.NoError(t, s.Close(ctx))

	got, err := repo.GetNoteByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Metadata.LastEditPosition)
	assert.False(t, coord.HasPending(note.ID))
}

// memRepo is an in-memory Repository with switchable failures.
type memRepo struct {
	mu        sync.Mutex
	notes     map[uuid.UUID]*models.Note
	initErr   error
	updateErr error
}

func newMemRepo() *memRepo {
	return &memRepo{notes: map[uuid.UUID]*models.Note{}}
}

func (r *memRepo) Init(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initErr
}

func (r *memRepo) CreateNote(ctx context.Context, p models.CreateParams) (*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := models.NewNote(p)
	r.notes[n.ID] = n.Clone()
	return n, nil
}

func (r *memRepo) GetNoteByID(ctx context.Context, id uuid.UUID) (*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	if !ok {
		return nil, db.ErrNoteNotFound
	}
	return n.Clone(), nil
}

func (r *memRepo) UpdateNote(ctx context.Context, u models.NoteUpdate) (*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	n, ok := r.notes[u.ID]
	if !ok {
		return nil, db.ErrNoteNotFound
	}
	if _, changed := u.Apply(n); changed {
		n.Metadata.Version++
	}
	return n.Clone(), nil
}

func (r *memRepo) set(fn func(r *memRepo)) {
	r.mu.Lock()
	fn(r)
	r.mu.Unlock()
}

func TestRetryAfterInitFailure(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	repo := newMemRepo()
	repo.initErr = db.ErrInitialization
	coord := autosave.New(repo, autosave.Options{Debounce: time.Hour})
	defer coord.Shutdown()

	s := New(repo, coord)
	require.ErrorIs(t, s.Open(ctx, uuid.Nil), db.ErrInitialization)
	assert.Equal(t, StateError, s.State())

	repo.set(func(r *memRepo) { r.initErr = nil })
	require.NoError(t, s.Retry(ctx))
	assert.Equal(t, StateReady, s.State())
	assert.NoError(t, s.Err())
	assert.ErrorIs(t, s.Retry(ctx), ErrNotFailed)
}

func TestSaveFailureKeepsWorkingCopy(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	repo := newMemRepo()
	coord := autosave.New(repo, autosave.Options{Debounce: time.Hour})
	defer coord.Shutdown()

	s := New(repo, coord)
	require.NoError(t, s.Open(ctx, uuid.Nil))
	require.NoError(t, s.SetContent("<p>precious</p>"))

	repo.set(func(r *memRepo) { r.updateErr = db.ErrWrite })
	err := s.Save(ctx)
	require.ErrorIs(t, err, db.ErrWrite)

	assert.Equal(t, StateReady, s.State())
	assert.True(t, s.Dirty())
	assert.Equal(t, "<p>precious</p>", s.Note().Content)

	repo.set(func(r *memRepo) { r.updateErr = nil })
	require.NoError(t, s.Save(ctx))
	assert.False(t, s.Dirty())
}

func TestFailedSaveStillFlushesOnBackground(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	repo := newMemRepo()
	coord := autosave.New(repo, autosave.Options{Debounce: time.Hour})
	defer coord.Shutdown()

	s := New(repo, coord)
	require.NoError(t, s.Open(ctx, uuid.Nil))
	id := s.Note().ID
	require.NoError(t, s.SetContent("<p>precious</p>"))

	repo.set(func(r *memRepo) { r.updateErr = db.ErrWrite })
	require.ErrorIs(t, s.Save(ctx), db.ErrWrite)
	assert.True(t, coord.HasPending(id), "edits must stay buffered after a failed save")

	repo.set(func(r *memRepo) { r.updateErr = nil })
	require.NoError(t, s.Background(ctx))

	stored, err := repo.GetNoteByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "<p>precious</p>", stored.Content)
	assert.False(t, coord.HasPending(id))
}

func TestFailedSaveKeepsJournalEntry(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	j := &recordingJournal{entries: map[uuid.UUID]models.NoteUpdate{}}
	coord := autosave.New(repo, autosave.Options{Debounce: time.Hour, Journal: j})
	defer coord.Shutdown()

	s := New(repo, coord)
	require.NoError(t, s.Open(ctx, uuid.Nil))
	id := s.Note().ID
	require.NoError(t, s.SetTitle("Draft"))
	require.NoError(t, s.SetContent("<p>precious</p>"))

	repo.set(func(r *memRepo) { r.updateErr = db.ErrWrite })
	require.Error(t, s.Save(ctx))

	u, ok := j.get(id)
	require.True(t, ok)
	require.NotNil(t, u.Content)
	assert.Equal(t, "<p>precious</p>", *u.Content)
	assert.Equal(t, "Draft", *u.Title)
}

type recordingJournal struct {
	mu      sync.Mutex
	entries map[uuid.UUID]models.NoteUpdate
}

func (j *recordingJournal) Put(u models.NoteUpdate) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[u.ID] = u
	return nil
}

func (j *recordingJournal) Delete(id uuid.UUID) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.entries, id)
	return nil
}

func (j *recordingJournal) Pending() ([]models.NoteUpdate, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]models.NoteUpdate, 0, len(j.entries))
	for _, u := range j.entries {
		out = append(out, u)
	}
	return out, nil
}

func (j *recordingJournal) get(id uuid.UUID) (models.NoteUpdate, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	u, ok := j.entries[id]
	return u, ok
}

func TestDiscardFailureStaysOpen(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	repo := newMemRepo()
	coord := autosave.New(repo, autosave.Options{Debounce: time.Hour})
	defer coord.Shutdown()

	s := New(repo, coord)
	require.NoError(t, s.Open(ctx, uuid.Nil))
	require.NoError(t, s.SetTitle("changed"))

	repo.set(func(r *memRepo) { r.updateErr = db.ErrWrite })
	require.Error(t, s.Resolve(ctx, DecisionDiscard))
	assert.Equal(t, StateReady, s.State())
	assert.True(t, s.Dirty())
	assert.True(t, coord.HasPending(s.Note().ID))

	// A retried discard drops the re-armed buffer and reverts.
	repo.set(func(r *memRepo) { r.updateErr = nil })
	require.NoError(t, s.Resolve(ctx, DecisionDiscard))
	assert.Equal(t, StateClosed, s.State())
	assert.False(t, coord.HasPending(s.Note().ID))

	stored, err := repo.GetNoteByID(ctx, s.Note().ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultTitle, stored.Title)
}

func TestClosedSessionRejectsEdits(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	coord := autosave.New(repo, autosave.Options{Debounce: time.Hour})
	defer coord.Shutdown()

	s := New(repo, coord)
	require.NoError(t, s.Open(ctx, uuid.Nil))
	require.NoError(t, s.Close(ctx))

	assert.ErrorIs(t, s.SetContent("late"), ErrNotReady)
	assert.ErrorIs(t, s.Open(ctx, uuid.Nil), ErrClosed)
	assert.Equal(t, CloseProceed, s.RequestClose())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "blocked", CloseBlocked.String())
}
