// ABOUTME: Note repository: create, read, merge-update, soft delete and purge.
// ABOUTME: Owns the on-disk representation of notes.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harper/inkwell/internal/models"
)

// Repository is the sole writer of the notes table.
type Repository struct {
	store *Store
	now   func() time.Time
}

func NewRepository(store *Store) *Repository {
	return &Repository{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Init prepares the store. Every other method does this implicitly.
func (r *Repository) Init(ctx context.Context) error {
	return r.store.Init(ctx)
}

func (r *Repository) CreateNote(ctx context.Context, params models.CreateParams) (*models.Note, error) {
	note := models.NewNote(params)
	now := r.now()
	note.CreatedAt = now
	note.UpdatedAt = now
	if err := r.InsertNote(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// InsertNote writes a fully built note as a new row, keeping its id and
// timestamps. Used by create and by import.
func (r *Repository) InsertNote(ctx context.Context, note *models.Note) error {
	conn, err := r.store.DB(ctx)
	if err != nil {
		return err
	}
	row, err := toRow(note)
	if err != nil {
		return opErr("create", KindCreate, note.ID.String(), err)
	}
	_, err = conn.ExecContext(ctx,
		`INSERT INTO notes (`+noteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.args()...,
	)
	if err != nil {
		return opErr("create", KindCreate, note.ID.String(), err)
	}
	return nil
}

// GetNoteByID returns a live note. Soft-deleted notes are not found.
func (r *Repository) GetNoteByID(ctx context.Context, id uuid.UUID) (*models.Note, error) {
	note, err := r.GetNoteIncludingDeleted(ctx, id)
	if err != nil {
		return nil, err
	}
	if note.IsDeleted {
		return nil, opErr("get", KindNotFound, id.String(), nil)
	}
	return note, nil
}

// GetNoteIncludingDeleted returns the note whatever its deleted flag, for recovery.
func (r *Repository) GetNoteIncludingDeleted(ctx context.Context, id uuid.UUID) (*models.Note, error) {
	conn, err := r.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	row, err := scanRow(conn.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, opErr("get", KindNotFound, id.String(), nil)
	}
	if err != nil {
		return nil, opErr("get", KindRead, id.String(), err)
	}
	note, err := fromRow(row)
	if err != nil {
		return nil, opErr("get", KindRead, id.String(), err)
	}
	return note, nil
}

// GetNoteByPrefix finds a live note by id prefix (minimum 6 chars).
func (r *Repository) GetNoteByPrefix(ctx context.Context, prefix string) (*models.Note, error) {
	return r.getByPrefix(ctx, prefix, false)
}

// GetAnyNoteByPrefix is GetNoteByPrefix over live and soft-deleted notes.
func (r *Repository) GetAnyNoteByPrefix(ctx context.Context, prefix string) (*models.Note, error) {
	return r.getByPrefix(ctx, prefix, true)
}

func (r *Repository) getByPrefix(ctx context.Context, prefix string, includeDeleted bool) (*models.Note, error) {
	if len(prefix) < 6 {
		return nil, ErrPrefixTooShort
	}
	if id, err := uuid.Parse(prefix); err == nil {
		if includeDeleted {
			return r.GetNoteIncludingDeleted(ctx, id)
		}
		return r.GetNoteByID(ctx, id)
	}

	conn, err := r.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + noteColumns + ` FROM notes WHERE id LIKE ?`
	if !includeDeleted {
		query += ` AND is_deleted = 0`
	}
	rows, err := conn.QueryContext(ctx, query+` LIMIT 2`, strings.ToLower(prefix)+"%")
	if err != nil {
		return nil, opErr("get", KindRead, prefix, err)
	}
	notes, err := collectNotes(rows)
	if err != nil {
		return nil, opErr("get", KindRead, prefix, err)
	}

	if len(notes) == 0 {
		return nil, opErr("get", KindNotFound, prefix, nil)
	}
	if len(notes) > 1 {
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousPrefix, prefix)
	}
	return notes[0], nil
}

// UpdateNote merges the provided fields over the stored note and rewrites
// the full row. Derived fields are recomputed only when content is part of
// the update; version advances by one only when content actually changed.
func (r *Repository) UpdateNote(ctx context.Context, u models.NoteUpdate) (*models.Note, error) {
	note, err := r.GetNoteByID(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	_, changed := u.Apply(note)
	if changed {
		note.Metadata.Version++
	}
	note.UpdatedAt = r.now()

	if err := r.writeNote(ctx, "update", note); err != nil {
		return nil, err
	}
	return note, nil
}

func (r *Repository) writeNote(ctx context.Context, op string, note *models.Note) error {
	conn, err := r.store.DB(ctx)
	if err != nil {
		return err
	}
	row, err := toRow(note)
	if err != nil {
		return opErr(op, KindWrite, note.ID.String(), err)
	}
	res, err := conn.ExecContext(ctx,
		`UPDATE notes SET title = ?, content = ?, plain_text = ?, word_count = ?, updated_at = ?,
			folder_id = ?, tags = ?, reading_time = ?, last_edit_position = ?, is_pinned = ?,
			is_favorite = ?, is_deleted = ?, metadata = ?
		 WHERE id = ?`,
		row.Title, row.Content, row.PlainText, row.WordCount, row.UpdatedAt,
		row.FolderID, row.Tags, row.ReadingTime, row.LastEditPosition, row.IsPinned,
		row.IsFavorite, row.IsDeleted, row.Metadata,
		row.ID,
	)
	if err != nil {
		return opErr(op, KindWrite, note.ID.String(), err)
	}
	if err := requireAffected(res, op, note.ID.String()); err != nil {
		return err
	}
	return nil
}

// SoftDeleteNote flags the note deleted. Deleting an already deleted note
// changes nothing.
func (r *Repository) SoftDeleteNote(ctx context.Context, id uuid.UUID) error {
	note, err := r.GetNoteIncludingDeleted(ctx, id)
	if err != nil {
		return err
	}
	if note.IsDeleted {
		return nil
	}
	note.IsDeleted = true
	note.UpdatedAt = r.now()
	return r.writeNote(ctx, "soft delete", note)
}

// RestoreNote clears the deleted flag.
func (r *Repository) RestoreNote(ctx context.Context, id uuid.UUID) (*models.Note, error) {
	note, err := r.GetNoteIncludingDeleted(ctx, id)
	if err != nil {
		return nil, err
	}
	if !note.IsDeleted {
		return note, nil
	}
	note.IsDeleted = false
	note.UpdatedAt = r.now()
	if err := r.writeNote(ctx, "restore", note); err != nil {
		return nil, err
	}
	return note, nil
}

// PurgeNote physically removes the row, deleted or not. Irreversible.
func (r *Repository) PurgeNote(ctx context.Context, id uuid.UUID) error {
	conn, err := r.store.DB(ctx)
	if err != nil {
		return err
	}
	res, err := conn.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id.String())
	if err != nil {
		return opErr("purge", KindWrite, id.String(), err)
	}
	return requireAffected(res, "purge", id.String())
}

func requireAffected(res sql.Result, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return opErr(op, KindWrite, id, err)
	}
	if affected == 0 {
		return opErr(op, KindNotFound, id, nil)
	}
	return nil
}

func collectNotes(rows *sql.Rows) ([]*models.Note, error) {
	defer func() { _ = rows.Close() }()

	var notes []*models.Note
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		note, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}
