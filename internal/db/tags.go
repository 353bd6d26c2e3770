// ABOUTME: Tag operations over the serialized tag array on each note.
// ABOUTME: Provides tag assignment, removal, and usage counts.

package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/harper/inkwell/internal/models"
)

// TagCount is a tag name with the number of live notes carrying it.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func (r *Repository) AddTagToNote(ctx context.Context, noteID uuid.UUID, tagName string) (*models.Note, error) {
	note, err := r.GetNoteByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	tags := append(append([]string{}, note.Tags...), tagName)
	return r.UpdateNote(ctx, models.NoteUpdate{ID: noteID, Tags: tags})
}

func (r *Repository) RemoveTagFromNote(ctx context.Context, noteID uuid.UUID, tagName string) (*models.Note, error) {
	note, err := r.GetNoteByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	name := models.NormalizeTag(tagName)
	tags := make([]string, 0, len(note.Tags))
	for _, t := range note.Tags {
		if t != name {
			tags = append(tags, t)
		}
	}
	return r.UpdateNote(ctx, models.NoteUpdate{ID: noteID, Tags: tags})
}

// ListTagCounts returns every tag on a live note with its usage count.
func (r *Repository) ListTagCounts(ctx context.Context) ([]TagCount, error) {
	conn, err := r.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, `
		SELECT t.value, COUNT(*)
		FROM notes n, json_each(n.tags) t
		WHERE n.is_deleted = 0
		GROUP BY t.value
		ORDER BY COUNT(*) DESC, t.value ASC`)
	if err != nil {
		return nil, opErr("list tags", KindRead, "", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			return nil, opErr("list tags", KindRead, "", err)
		}
		counts = append(counts, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, opErr("list tags", KindRead, "", err)
	}
	return counts, nil
}
