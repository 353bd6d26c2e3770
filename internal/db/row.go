// ABOUTME: Transformation between the notes table row and the Note entity.
// ABOUTME: Handles timestamp text, serialized tags, and the metadata object.

package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/harper/inkwell/internal/models"
)

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

// noteRow mirrors the notes table column for column.
type noteRow struct {
	ID               string
	Title            string
	Content          string
	PlainText        string
	WordCount        int
	CreatedAt        string
	UpdatedAt        string
	FolderID         sql.NullString
	Tags             string
	ReadingTime      int
	LastEditPosition int
	IsPinned         bool
	IsFavorite       bool
	IsDeleted        bool
	Metadata         string
}

// metadataRecord uses pointers so absent keys fall back to the columns.
type metadataRecord struct {
	ReadingTime      *int   `json:"readingTime,omitempty"`
	LastEditPosition *int   `json:"lastEditPosition,omitempty"`
	CharacterCount   *int   `json:"characterCount,omitempty"`
	Version          *int64 `json:"version,omitempty"`
}

const noteColumns = `id, title, content, plain_text, word_count, created_at, updated_at, folder_id,
	tags, reading_time, last_edit_position, is_pinned, is_favorite, is_deleted, metadata`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(s rowScanner) (*noteRow, error) {
	r := &noteRow{}
	err := s.Scan(&r.ID, &r.Title, &r.Content, &r.PlainText, &r.WordCount, &r.CreatedAt, &r.UpdatedAt,
		&r.FolderID, &r.Tags, &r.ReadingTime, &r.LastEditPosition, &r.IsPinned, &r.IsFavorite,
		&r.IsDeleted, &r.Metadata)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *noteRow) args() []any {
	return []any{r.ID, r.Title, r.Content, r.PlainText, r.WordCount, r.CreatedAt, r.UpdatedAt,
		r.FolderID, r.Tags, r.ReadingTime, r.LastEditPosition, r.IsPinned, r.IsFavorite,
		r.IsDeleted, r.Metadata}
}

func toRow(n *models.Note) (*noteRow, error) {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	tagData, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}

	meta := n.Metadata
	metaData, err := json.Marshal(metadataRecord{
		ReadingTime:      &meta.ReadingTime,
		LastEditPosition: &meta.LastEditPosition,
		CharacterCount:   &meta.CharacterCount,
		Version:          &meta.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	r := &noteRow{
		ID:               n.ID.String(),
		Title:            n.Title,
		Content:          n.Content,
		PlainText:        n.PlainText,
		WordCount:        n.WordCount,
		CreatedAt:        formatTime(n.CreatedAt),
		UpdatedAt:        formatTime(n.UpdatedAt),
		Tags:             string(tagData),
		ReadingTime:      meta.ReadingTime,
		LastEditPosition: meta.LastEditPosition,
		IsPinned:         n.IsPinned,
		IsFavorite:       n.IsFavorite,
		IsDeleted:        n.IsDeleted,
		Metadata:         string(metaData),
	}
	if n.FolderID != nil {
		r.FolderID = sql.NullString{String: *n.FolderID, Valid: true}
	}
	return r, nil
}

func fromRow(r *noteRow) (*models.Note, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid note ID in database: %w", err)
	}
	createdAt, err := parseTime(r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	updatedAt, err := parseTime(r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	tags := []string{}
	if r.Tags != "" {
		if err := json.Unmarshal([]byte(r.Tags), &tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}

	var meta metadataRecord
	if r.Metadata != "" {
		if err := json.Unmarshal([]byte(r.Metadata), &meta); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	note := &models.Note{
		ID:         id,
		Title:      r.Title,
		Content:    r.Content,
		PlainText:  r.PlainText,
		WordCount:  r.WordCount,
		Tags:       tags,
		IsPinned:   r.IsPinned,
		IsFavorite: r.IsFavorite,
		IsDeleted:  r.IsDeleted,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
		Metadata: models.Metadata{
			ReadingTime:      r.ReadingTime,
			LastEditPosition: r.LastEditPosition,
			CharacterCount:   utf8.RuneCountInString(r.PlainText),
			Version:          1,
		},
	}
	if r.FolderID.Valid {
		f := r.FolderID.String
		note.FolderID = &f
	}
	if meta.ReadingTime != nil {
		note.Metadata.ReadingTime = *meta.ReadingTime
	}
	if meta.LastEditPosition != nil {
		note.Metadata.LastEditPosition = *meta.LastEditPosition
	}
	if meta.CharacterCount != nil {
		note.Metadata.CharacterCount = *meta.CharacterCount
	}
	if meta.Version != nil && *meta.Version > 0 {
		note.Metadata.Version = *meta.Version
	}
	return note, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	var lastErr error
	for _, layout := range legacyTimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
