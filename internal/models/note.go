// ABOUTME: Note model representing a rich-text note with derived metadata.
// ABOUTME: Provides constructor, title normalization, and content recomputation.

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTitle replaces empty titles on save.
const DefaultTitle = "Untitled Note"

// Metadata holds the derived and bookkeeping fields serialized into the
// metadata column.
type Metadata struct {
	ReadingTime      int   `json:"readingTime"`
	LastEditPosition int   `json:"lastEditPosition"`
	CharacterCount   int   `json:"characterCount"`
	Version          int64 `json:"version"`
}

type Note struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	PlainText  string    `json:"plainText"`
	WordCount  int       `json:"wordCount"`
	Metadata   Metadata  `json:"metadata"`
	FolderID   *string   `json:"folderId,omitempty"`
	Tags       []string  `json:"tags"`
	IsPinned   bool      `json:"isPinned"`
	IsFavorite bool      `json:"isFavorite"`
	IsDeleted  bool      `json:"isDeleted"`
	CreatedAt  time.Time `json:"dateCreated"`
	UpdatedAt  time.Time `json:"lastModified"`
}

// CreateParams are the caller-supplied fields for a new note.
type CreateParams struct {
	Title    string
	Content  string
	FolderID *string
	Tags     []string
	IsPinned bool
}

func NewNote(params CreateParams) *Note {
	now := time.Now().UTC()
	note := &Note{
		ID:        uuid.New(),
		Title:     NormalizeTitle(params.Title),
		FolderID:  params.FolderID,
		Tags:      NormalizeTags(params.Tags),
		IsPinned:  params.IsPinned,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  Metadata{Version: 1},
	}
	note.SetContent(params.Content)
	return note
}

// SetContent replaces the content and recomputes every derived field.
func (n *Note) SetContent(content string) {
	d := Derive(content)
	n.Content = content
	n.PlainText = d.PlainText
	n.WordCount = d.WordCount
	n.Metadata.ReadingTime = d.ReadingTime
	n.Metadata.CharacterCount = d.CharacterCount
}

// Clone returns a deep copy safe to hand to another owner.
func (n *Note) Clone() *Note {
	c := *n
	if n.FolderID != nil {
		f := *n.FolderID
		c.FolderID = &f
	}
	c.Tags = append([]string{}, n.Tags...)
	return &c
}

func NormalizeTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return DefaultTitle
	}
	return title
}
