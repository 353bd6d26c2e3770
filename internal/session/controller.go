// ABOUTME: Note session controller binding one open note to autosave and storage.
// ABOUTME: Tracks the working copy against the last persisted snapshot and resolves close decisions.

// Package session drives the lifecycle of a single open note:
//
//	Loading -> Ready <-> Saving
//	Loading -> Error (Retry -> Loading)
//	Ready   -> Closed
//
// Edits go to the autosave coordinator as they happen. Explicit saves and
// discards bypass it after draining any write already in progress, so writes
// for the note stay ordered.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harper/inkwell/internal/models"
)

type State int

const (
	StateLoading State = iota
	StateReady
	StateSaving
	StateError
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSaving:
		return "saving"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Decision answers a close request made while the note is dirty.
type Decision int

const (
	DecisionCancel Decision = iota
	DecisionDiscard
	DecisionSaveAndExit
)

// CloseResult tells the caller whether navigation may continue.
type CloseResult int

const (
	CloseProceed CloseResult = iota
	CloseBlocked
)

func (r CloseResult) String() string {
	if r == CloseBlocked {
		return "blocked"
	}
	return "proceed"
}

// Event is a lifecycle notification from the host.
type Event int

const (
	EventFocusLost Event = iota
	EventBackgrounded
	EventCloseRequested
)

var (
	ErrNotReady  = errors.New("session: note is not ready")
	ErrNotFailed = errors.New("session: nothing to retry")
	ErrClosed    = errors.New("session: closed")
)

// Repository is the storage surface the controller needs.
type Repository interface {
	Init(ctx context.Context) error
	CreateNote(ctx context.Context, params models.CreateParams) (*models.Note, error)
	GetNoteByID(ctx context.Context, id uuid.UUID) (*models.Note, error)
	UpdateNote(ctx context.Context, u models.NoteUpdate) (*models.Note, error)
}

// Autosaver is the deferred-write surface the controller needs.
type Autosaver interface {
	ScheduleSave(u models.NoteUpdate)
	Cancel(id uuid.UUID)
	Flush(ctx context.Context, id uuid.UUID) error
	FlushAll(ctx context.Context) error
}

type snapshot struct {
	title   string
	content string
}

type Controller struct {
	repo   Repository
	saver  Autosaver
	logger *log.Logger

	mu         sync.Mutex
	state      State
	requested  uuid.UUID
	working    *models.Note
	original   snapshot
	err        error
	discarding bool
}

type Option func(*Controller)

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(repo Repository, saver Autosaver, opts ...Option) *Controller {
	c := &Controller{
		repo:   repo,
		saver:  saver,
		logger: log.New(io.Discard),
		state:  StateLoading,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithPrefix("session")
	return c
}

// Open loads the note with the given id, or creates a new one when id is
// uuid.Nil. On failure the controller enters StateError and the error is
// also available from Err.
func (c *Controller) Open(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return ErrClosed
	}
	c.requested = id
	return c.loadLocked(ctx)
}

// Retry re-runs the load that left the controller in StateError.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateError {
		return ErrNotFailed
	}
	return c.loadLocked(ctx)
}

func (c *Controller) loadLocked(ctx context.Context) error {
	c.state = StateLoading
	c.err = nil

	note, err := c.fetch(ctx)
	if err != nil {
		c.state = StateError
		c.err = err
		c.logger.Error("load failed", "note", c.requested, "err", err)
		return err
	}

	c.working = note
	c.original = snapshot{title: note.Title, content: note.Content}
	c.discarding = false
	c.state = StateReady
	c.logger.Debug("opened", "note", note.ID)
	return nil
}

func (c *Controller) fetch(ctx context.Context) (*models.Note, error) {
	if err := c.repo.Init(ctx); err != nil {
		return nil, err
	}
	if c.requested == uuid.Nil {
		return c.repo.CreateNote(ctx, models.CreateParams{})
	}
	return c.repo.GetNoteByID(ctx, c.requested)
}

// SetTitle replaces the working title and schedules an autosave.
func (c *Controller) SetTitle(title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return ErrNotReady
	}
	c.working.Title = title
	c.saver.ScheduleSave(models.NoteUpdate{ID: c.working.ID, Title: models.StringPtr(title)})
	return nil
}

// SetContent replaces the working content and schedules an autosave.
func (c *Controller) SetContent(content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return ErrNotReady
	}
	c.working.SetContent(content)
	c.saver.ScheduleSave(models.NoteUpdate{ID: c.working.ID, Content: models.StringPtr(content)})
	return nil
}

// SetCursor records the last edit position. It does not make the note dirty.
func (c *Controller) SetCursor(pos int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return ErrNotReady
	}
	c.working.Metadata.LastEditPosition = pos
	c.saver.ScheduleSave(models.NoteUpdate{ID: c.working.ID, LastEditPosition: models.IntPtr(pos)})
	return nil
}

// Dirty reports whether the working title or content differs from the last
// persisted snapshot.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirtyLocked()
}

func (c *Controller) dirtyLocked() bool {
	if c.working == nil {
		return false
	}
	return c.working.Title != c.original.title || c.working.Content != c.original.content
}

// quiesceLocked drops buffered autosave changes and waits for any write
// already in flight, so the caller's write lands last.
func (c *Controller) quiesceLocked(ctx context.Context) {
	id := c.working.ID
	c.saver.Cancel(id)
	if err := c.saver.Flush(ctx, id); err != nil {
		c.logger.Warn("draining autosave", "note", id, "err", err)
	}
}

// rearmLocked hands the working copy back to autosave after an explicit
// write failed, restoring the buffer and journal entry quiesceLocked dropped.
func (c *Controller) rearmLocked() {
	c.saver.ScheduleSave(models.NoteUpdate{
		ID:               c.working.ID,
		Title:            models.StringPtr(c.working.Title),
		Content:          models.StringPtr(c.working.Content),
		LastEditPosition: models.IntPtr(c.working.Metadata.LastEditPosition),
	})
}

// Save writes the full working title and content now. On failure the
// working copy and dirty state are left as they were and the edits go back
// to autosave.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked(ctx)
}

func (c *Controller) saveLocked(ctx context.Context) error {
	if c.state != StateReady {
		return ErrNotReady
	}
	c.state = StateSaving
	defer func() { c.state = StateReady }()

	c.quiesceLocked(ctx)
	saved, err := c.repo.UpdateNote(ctx, models.NoteUpdate{
		ID:               c.working.ID,
		Title:            models.StringPtr(c.working.Title),
		Content:          models.StringPtr(c.working.Content),
		LastEditPosition: models.IntPtr(c.working.Metadata.LastEditPosition),
	})
	if err != nil {
		c.logger.Error("save failed", "note", c.working.ID, "err", err)
		c.rearmLocked()
		return err
	}

	c.working = saved
	c.original = snapshot{title: saved.Title, content: saved.Content}
	return nil
}

// RequestClose reports whether the session can close straight away. A
// dirty session is blocked until Resolve is called.
func (c *Controller) RequestClose() CloseResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateReady && c.dirtyLocked() {
		return CloseBlocked
	}
	return CloseProceed
}

// Resolve applies the user's answer to a blocked close. Discard rewrites
// the stored note back to the snapshot taken at load, undoing anything
// autosave already wrote. SaveAndExit saves then closes. Cancel keeps the
// session open.
func (c *Controller) Resolve(ctx context.Context, d Decision) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return ErrNotReady
	}

	switch d {
	case DecisionCancel:
		return nil
	case DecisionSaveAndExit:
		if err := c.saveLocked(ctx); err != nil {
			return err
		}
		return c.closeLocked(ctx)
	case DecisionDiscard:
		return c.discardLocked(ctx)
	default:
		return fmt.Errorf("session: unknown decision %d", d)
	}
}

func (c *Controller) discardLocked(ctx context.Context) error {
	c.discarding = true
	c.quiesceLocked(ctx)

	restored, err := c.repo.UpdateNote(ctx, models.NoteUpdate{
		ID:      c.working.ID,
		Title:   models.StringPtr(c.original.title),
		Content: models.StringPtr(c.original.content),
	})
	if err != nil {
		c.discarding = false
		c.logger.Error("discard failed", "note", c.working.ID, "err", err)
		c.rearmLocked()
		return fmt.Errorf("revert note: %w", err)
	}
	c.working = restored
	return c.closeLocked(ctx)
}

// Close releases the note. Unless a discard is underway, buffered changes
// are flushed first.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked(ctx)
}

func (c *Controller) closeLocked(ctx context.Context) error {
	if c.state == StateClosed {
		return nil
	}
	var err error
	if c.working != nil {
		id := c.working.ID
		if !c.discarding {
			err = c.saver.Flush(ctx, id)
		}
		c.saver.Cancel(id)
	}
	c.state = StateClosed
	c.logger.Debug("closed", "note", c.requested)
	return err
}

// Background flushes every buffered note when this one is dirty.
func (c *Controller) Background(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushIfDirtyLocked(ctx)
}

// FocusLost behaves like Background.
func (c *Controller) FocusLost(ctx context.Context) error {
	return c.Background(ctx)
}

func (c *Controller) flushIfDirtyLocked(ctx context.Context) error {
	if c.state != StateReady || c.discarding || !c.dirtyLocked() {
		return nil
	}
	if err := c.saver.FlushAll(ctx); err != nil {
		c.logger.Warn("flush on background failed", "err", err)
		return err
	}
	return nil
}

// Dispatch routes a named lifecycle event. Only EventCloseRequested yields
// a meaningful CloseResult.
func (c *Controller) Dispatch(ctx context.Context, ev Event) (CloseResult, error) {
	switch ev {
	case EventFocusLost:
		return CloseProceed, c.FocusLost(ctx)
	case EventBackgrounded:
		return CloseProceed, c.Background(ctx)
	case EventCloseRequested:
		return c.RequestClose(), nil
	default:
		return CloseProceed, fmt.Errorf("session: unknown event %d", ev)
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the load error while in StateError.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Note returns a copy of the working note, or nil before a successful load.
func (c *Controller) Note() *models.Note {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.working == nil {
		return nil
	}
	return c.working.Clone()
}
