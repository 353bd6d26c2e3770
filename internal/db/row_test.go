// ABOUTME: Tests for row and entity transformation.
// ABOUTME: Checks lossless round trips and metadata fallback reconstruction.

package db

import (
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/harper/inkwell/internal/models"
)

func TestRowRoundTrip(t *testing.T) {
	folder := "projects"
	note := models.NewNote(models.CreateParams{
		Title:    "Round",
		Content:  "<p>trip&nbsp;test</p>",
		FolderID: &folder,
		Tags:     []string{"a", "b"},
		IsPinned: true,
	})
	note.Metadata.LastEditPosition = 42
	note.Metadata.Version = 7

	row, err := toRow(note)
	if err != nil {
		t.Fatalf("toRow: %v", err)
	}
	back, err := fromRow(row)
	if err != nil {
		t.Fatalf("fromRow: %v", err)
	}
	again, err := toRow(back)
	if err != nil {
		t.Fatalf("toRow again: %v", err)
	}

	if !reflect.DeepEqual(row, again) {
		t.Errorf("row changed across round trip:\n%+v\n%+v", row, again)
	}
	if back.Metadata != note.Metadata {
		t.Errorf("metadata changed: %+v vs %+v", back.Metadata, note.Metadata)
	}
	if !back.CreatedAt.Equal(note.CreatedAt) {
		t.Errorf("created_at changed: %v vs %v", back.CreatedAt, note.CreatedAt)
	}
}

func TestFromRowMetadataWinsOverColumns(t *testing.T) {
	row := &noteRow{
		ID:               "0b6a2a54-9b8f-4d2a-9a6f-5d2c7b3e4f10",
		CreatedAt:        "2024-01-01T00:00:00Z",
		UpdatedAt:        "2024-01-01T00:00:00Z",
		Tags:             `[]`,
		ReadingTime:      1,
		LastEditPosition: 0,
		Metadata:         `{"readingTime":3,"lastEditPosition":12,"characterCount":99,"version":4}`,
	}
	note, err := fromRow(row)
	if err != nil {
		t.Fatalf("fromRow: %v", err)
	}
	want := models.Metadata{ReadingTime: 3, LastEditPosition: 12, CharacterCount: 99, Version: 4}
	if note.Metadata != want {
		t.Errorf("expected %+v, got %+v", want, note.Metadata)
	}
}

func TestFromRowFallsBackToColumns(t *testing.T) {
	row := &noteRow{
		ID:               "0b6a2a54-9b8f-4d2a-9a6f-5d2c7b3e4f10",
		PlainText:        "abc",
		CreatedAt:        "2024-01-01 10:00:00",
		UpdatedAt:        "2024-01-01T10:00:00.5Z",
		FolderID:         sql.NullString{},
		ReadingTime:      2,
		LastEditPosition: 5,
		Metadata:         `{}`,
	}
	note, err := fromRow(row)
	if err != nil {
		t.Fatalf("fromRow: %v", err)
	}
	want := models.Metadata{ReadingTime: 2, LastEditPosition: 5, CharacterCount: 3, Version: 1}
	if note.Metadata != want {
		t.Errorf("expected %+v, got %+v", want, note.Metadata)
	}
	if note.CreatedAt.Hour() != 10 || note.UpdatedAt.Nanosecond() != int(500*time.Millisecond) {
		t.Errorf("unexpected timestamps %v %v", note.CreatedAt, note.UpdatedAt)
	}
	if note.Tags == nil || note.FolderID != nil {
		t.Errorf("expected empty tags and nil folder, got %v %v", note.Tags, note.FolderID)
	}
}

func TestFormatTimeOrdersLexically(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 5, 100_000_000, time.UTC)
	b := time.Date(2024, 1, 1, 0, 0, 5, 120_000_000, time.UTC)
	if !(formatTime(a) < formatTime(b)) {
		t.Errorf("expected %s < %s", formatTime(a), formatTime(b))
	}
}
