// ABOUTME: Partial note update used by the repository and the autosave buffer.
// ABOUTME: Nil fields are untouched; Merge applies last-write-wins per field.

package models

import "github.com/google/uuid"

// NoteUpdate is a partial update. A nil pointer or nil slice leaves the
// field as stored. Set ClearFolder to move a note out of its folder; an
// empty non-nil Tags slice clears the tag set.
type NoteUpdate struct {
	ID               uuid.UUID `json:"id"`
	Title            *string   `json:"title,omitempty"`
	Content          *string   `json:"content,omitempty"`
	FolderID         *string   `json:"folderId,omitempty"`
	ClearFolder      bool      `json:"clearFolder,omitempty"`
	Tags             []string  `json:"tags"`
	IsPinned         *bool     `json:"isPinned,omitempty"`
	LastEditPosition *int      `json:"lastEditPosition,omitempty"`
}

// IsEmpty reports whether the update touches no field.
func (u NoteUpdate) IsEmpty() bool {
	return u.Title == nil && u.Content == nil && u.FolderID == nil && !u.ClearFolder &&
		u.Tags == nil && u.IsPinned == nil && u.LastEditPosition == nil
}

// Merge returns u with every field present in next overwriting its own.
func (u NoteUpdate) Merge(next NoteUpdate) NoteUpdate {
	out := u
	if next.Title != nil {
		out.Title = next.Title
	}
	if next.Content != nil {
		out.Content = next.Content
	}
	if next.FolderID != nil {
		out.FolderID = next.FolderID
		out.ClearFolder = false
	}
	if next.ClearFolder {
		out.FolderID = nil
		out.ClearFolder = true
	}
	if next.Tags != nil {
		out.Tags = append([]string{}, next.Tags...)
	}
	if next.IsPinned != nil {
		out.IsPinned = next.IsPinned
	}
	if next.LastEditPosition != nil {
		out.LastEditPosition = next.LastEditPosition
	}
	return out
}

// Apply merges the update into note. It reports whether content was part
// of the update and whether it differs from what the note held.
func (u NoteUpdate) Apply(note *Note) (contentTouched, contentChanged bool) {
	if u.Title != nil {
		note.Title = NormalizeTitle(*u.Title)
	}
	if u.Content != nil {
		contentTouched = true
		contentChanged = *u.Content != note.Content
		note.SetContent(*u.Content)
	}
	if u.ClearFolder {
		note.FolderID = nil
	} else if u.FolderID != nil {
		f := *u.FolderID
		note.FolderID = &f
	}
	if u.Tags != nil {
		note.Tags = NormalizeTags(u.Tags)
	}
	if u.IsPinned != nil {
		note.IsPinned = *u.IsPinned
	}
	if u.LastEditPosition != nil {
		note.Metadata.LastEditPosition = *u.LastEditPosition
	}
	return contentTouched, contentChanged
}

// StringPtr, BoolPtr and IntPtr build optional update fields.
func StringPtr(s string) *string { return &s }

func BoolPtr(b bool) *bool { return &b }

func IntPtr(i int) *int { return &i }
