// ABOUTME: Autosave coordinator: per-note debounced writes with buffered changes.
// ABOUTME: Supports forced flush, cancellation, journal replay, and a failure channel.

// Package autosave defers note writes until edits go quiet. Each note has at
// most one armed timer and one pending buffer; a later edit supersedes the
// earlier timer and merges into the buffer field by field. Writes for the
// same note never overlap. A failed write keeps its buffer for the next
// scheduled or forced save and is reported on Failures.
package autosave

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harper/inkwell/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultDebounce     = time.Second
	DefaultWriteTimeout = 10 * time.Second

	defaultFailureBuffer    = 64
	defaultFlushConcurrency = 4
)

// Writer applies a buffered update. The note repository satisfies it.
type Writer interface {
	UpdateNote(ctx context.Context, u models.NoteUpdate) (*models.Note, error)
}

// Journal persists pending buffers so they survive a crash.
type Journal interface {
	Put(u models.NoteUpdate) error
	Delete(id uuid.UUID) error
	Pending() ([]models.NoteUpdate, error)
}

// Failure describes an autosave write that did not apply.
type Failure struct {
	NoteID uuid.UUID
	Update models.NoteUpdate
	Err    error
	At     time.Time
}

type Options struct {
	Debounce     time.Duration
	WriteTimeout time.Duration
	Disabled     bool
	Journal      Journal
	Logger       *log.Logger

	// Permanent reports write errors that no retry can fix, such as the note
	// no longer existing. Such buffers are reported and then dropped.
	Permanent func(error) bool

	// FailureBuffer sizes the Failures channel. Events beyond it are
	// logged and dropped; the buffered edit itself is kept.
	FailureBuffer    int
	FlushConcurrency int
}

// entry is the per-note state. gen identifies the armed timer so a stale
// callback is ignored; epoch advances on Cancel so an in-flight failure does
// not resurrect a discarded buffer.
type entry struct {
	pending  *models.NoteUpdate
	timer    *time.Timer
	gen      uint64
	epoch    uint64
	inflight bool
	writeMu  sync.Mutex
}

func (e *entry) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
}

func (e *entry) idle() bool {
	return e.pending == nil && e.timer == nil && !e.inflight
}

type Coordinator struct {
	writer       Writer
	journal      Journal
	logger       *log.Logger
	debounce     time.Duration
	writeTimeout time.Duration
	concurrency  int
	permanent    func(error) bool

	mu       sync.Mutex
	enabled  bool
	closed   bool
	entries  map[uuid.UUID]*entry
	failures chan Failure
}

func New(writer Writer, opts Options) *Coordinator {
	c := &Coordinator{
		writer:       writer,
		journal:      opts.Journal,
		logger:       opts.Logger,
		debounce:     opts.Debounce,
		writeTimeout: opts.WriteTimeout,
		concurrency:  opts.FlushConcurrency,
		permanent:    opts.Permanent,
		enabled:      !opts.Disabled,
		entries:      make(map[uuid.UUID]*entry),
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	c.logger = c.logger.WithPrefix("autosave")
	if c.debounce <= 0 {
		c.debounce = DefaultDebounce
	}
	if c.writeTimeout <= 0 {
		c.writeTimeout = DefaultWriteTimeout
	}
	if c.concurrency <= 0 {
		c.concurrency = defaultFlushConcurrency
	}
	size := opts.FailureBuffer
	if size <= 0 {
		size = defaultFailureBuffer
	}
	c.failures = make(chan Failure, size)
	return c
}

// Failures delivers one event per failed write.
func (c *Coordinator) Failures() <-chan Failure {
	return c.failures
}

// ScheduleSave merges u into the note's buffer and restarts its debounce
// timer. It never blocks on storage.
func (c *Coordinator) ScheduleSave(u models.NoteUpdate) {
	if u.IsEmpty() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled || c.closed {
		return
	}

	e := c.entryLocked(u.ID)
	e.stopTimer()

	merged := u
	if e.pending != nil {
		merged = e.pending.Merge(u)
	}
	merged.ID = u.ID
	e.pending = &merged

	gen := e.gen
	e.timer = time.AfterFunc(c.debounce, func() { c.fire(u.ID, e, gen) })
	c.journalPutLocked(merged)
}

func (c *Coordinator) entryLocked(id uuid.UUID) *entry {
	e, ok := c.entries[id]
	if !ok {
		e = &entry{}
		c.entries[id] = e
	}
	return e
}

func (c *Coordinator) fire(id uuid.UUID, e *entry, gen uint64) {
	c.mu.Lock()
	if c.entries[id] != e || e.gen != gen || e.timer == nil {
		c.mu.Unlock()
		return
	}
	e.timer = nil
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
	defer cancel()
	_ = c.flushEntry(ctx, id, e)
}

// flushEntry writes e's buffer, if any. Writes for one entry are serialized.
func (c *Coordinator) flushEntry(ctx context.Context, id uuid.UUID, e *entry) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	c.mu.Lock()
	if e.pending == nil {
		c.dropIfIdleLocked(id, e)
		c.mu.Unlock()
		return nil
	}
	u := *e.pending
	e.pending = nil
	e.inflight = true
	epoch := e.epoch
	c.mu.Unlock()

	_, err := c.writer.UpdateNote(ctx, u)

	c.mu.Lock()
	defer c.mu.Unlock()
	e.inflight = false

	if err != nil {
		c.reportLocked(Failure{NoteID: id, Update: u, Err: err, At: time.Now()})
		if c.permanent != nil && c.permanent(err) {
			c.logger.Error("write cannot succeed, dropping buffered edits", "note", id, "err", err)
			e.stopTimer()
			e.pending = nil
			c.journalDeleteLocked(id)
			c.dropIfIdleLocked(id, e)
			return err
		}
		if e.epoch == epoch {
			restored := u
			if e.pending != nil {
				restored = u.Merge(*e.pending)
			}
			e.pending = &restored
			c.journalPutLocked(restored)
		}
		c.logger.Error("write failed", "note", id, "err", err)
		return err
	}

	c.logger.Debug("saved", "note", id)
	if e.pending == nil {
		c.journalDeleteLocked(id)
	}
	c.dropIfIdleLocked(id, e)
	return nil
}

func (c *Coordinator) dropIfIdleLocked(id uuid.UUID, e *entry) {
	if c.entries[id] == e && e.idle() {
		delete(c.entries, id)
	}
}

func (c *Coordinator) reportLocked(f Failure) {
	select {
	case c.failures <- f:
	default:
		c.logger.Warn("failure channel full, dropping event", "note", f.NoteID)
	}
}

// Cancel discards the note's timer and buffer. A write already in progress
// completes, but nothing further is written unless a new edit arrives.
func (c *Coordinator) Cancel(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[id]; ok {
		e.stopTimer()
		e.pending = nil
		e.epoch++
		c.dropIfIdleLocked(id, e)
	}
	c.journalDeleteLocked(id)
}

// Flush writes the note's buffer now, waiting for any write in progress.
func (c *Coordinator) Flush(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	e, ok := c.entries[id]
	if ok {
		e.stopTimer()
	}
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return c.flushEntry(ctx, id, e)
}

// FlushAll writes every buffered note and returns once all writes have
// finished. Notes are flushed in parallel; errors are joined.
func (c *Coordinator) FlushAll(ctx context.Context) error {
	type target struct {
		id uuid.UUID
		e  *entry
	}

	c.mu.Lock()
	targets := make([]target, 0, len(c.entries))
	for id, e := range c.entries {
		if e.pending == nil && !e.inflight {
			continue
		}
		e.stopTimer()
		targets = append(targets, target{id, e})
	}
	c.mu.Unlock()

	var (
		g     errgroup.Group
		errMu sync.Mutex
		errs  []error
	)
	g.SetLimit(c.concurrency)
	for _, t := range targets {
		g.Go(func() error {
			if err := c.flushEntry(ctx, t.id, t.e); err != nil {
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// HasPending reports whether the note has a buffered or in-progress write.
func (c *Coordinator) HasPending(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	return ok && (e.pending != nil || e.inflight)
}

// Recover loads journaled buffers left by an earlier process and flushes
// them. It returns how many notes were replayed.
func (c *Coordinator) Recover(ctx context.Context) (int, error) {
	if c.journal == nil {
		return 0, nil
	}
	updates, err := c.journal.Pending()
	if err != nil {
		return 0, err
	}
	if len(updates) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	for _, u := range updates {
		e := c.entryLocked(u.ID)
		merged := u
		// Anything scheduled in this process is newer than the journal.
		if e.pending != nil {
			merged = u.Merge(*e.pending)
		}
		e.pending = &merged
	}
	c.mu.Unlock()

	c.logger.Info("replaying journaled edits", "notes", len(updates))
	return len(updates), c.FlushAll(ctx)
}

// Shutdown stops every timer without writing. Journaled buffers stay on
// disk for the next Recover. Later ScheduleSave calls are ignored.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for _, e := range c.entries {
		e.stopTimer()
	}
}

func (c *Coordinator) journalPutLocked(u models.NoteUpdate) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Put(u); err != nil {
		c.logger.Warn("journal write failed", "note", u.ID, "err", err)
	}
}

func (c *Coordinator) journalDeleteLocked(id uuid.UUID) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Delete(id); err != nil {
		c.logger.Warn("journal delete failed", "note", id, "err", err)
	}
}
