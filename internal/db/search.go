// ABOUTME: Search query builder for notes.
// ABOUTME: Substring match, folder and tag filters, sorting, and pagination.

package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/harper/inkwell/internal/models"
)

// DefaultSearchLimit applies when SearchParams.Limit is zero or negative.
const DefaultSearchLimit = 100

type SortField string

const (
	SortByLastModified SortField = "lastModified"
	SortByDateCreated  SortField = "dateCreated"
	SortByTitle        SortField = "title"
)

var sortColumns = map[SortField]string{
	SortByLastModified: "updated_at",
	SortByDateCreated:  "created_at",
	SortByTitle:        "title",
}

// ParseSortField maps a user-facing name to a SortField.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(s) {
	case "", "lastmodified", "updated", "modified":
		return SortByLastModified, nil
	case "datecreated", "created":
		return SortByDateCreated, nil
	case "title":
		return SortByTitle, nil
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

// SearchParams filter notes. The zero value lists live notes by last
// modification, newest first, up to DefaultSearchLimit.
type SearchParams struct {
	// Query is a case-sensitive substring of title or plain text.
	Query    string
	FolderID *string
	// NoFolder restricts to notes without a folder; it wins over FolderID.
	NoFolder bool
	// Tags must all be present. Each is matched as a substring of the
	// serialized tag array, so "art" also matches "party".
	Tags           []string
	IncludeDeleted bool
	SortBy         SortField
	Ascending      bool
	Limit          int
	Offset         int
}

func (p SearchParams) where() (string, []any) {
	var clauses []string
	var args []any

	if !p.IncludeDeleted {
		clauses = append(clauses, "is_deleted = 0")
	}
	if p.Query != "" {
		clauses = append(clauses, "(instr(title, ?) > 0 OR instr(plain_text, ?) > 0)")
		args = append(args, p.Query, p.Query)
	}
	switch {
	case p.NoFolder:
		clauses = append(clauses, "folder_id IS NULL")
	case p.FolderID != nil:
		clauses = append(clauses, "folder_id = ?")
		args = append(args, *p.FolderID)
	}
	for _, tag := range p.Tags {
		tag = models.NormalizeTag(tag)
		if tag == "" {
			continue
		}
		clauses = append(clauses, "instr(tags, ?) > 0")
		args = append(args, tag)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (p SearchParams) orderBy() string {
	col, ok := sortColumns[p.SortBy]
	if !ok {
		col = sortColumns[SortByLastModified]
	}
	dir := "DESC"
	if p.Ascending {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id %s", col, dir, dir)
}

func (p SearchParams) page() (limit, offset int) {
	limit = p.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	offset = p.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (r *Repository) SearchNotes(ctx context.Context, p SearchParams) ([]*models.Note, error) {
	conn, err := r.store.DB(ctx)
	if err != nil {
		return nil, err
	}

	where, args := p.where()
	limit, offset := p.page()
	query := `SELECT ` + noteColumns + ` FROM notes` + where + p.orderBy() + ` LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, opErr("search", KindRead, "", err)
	}
	notes, err := collectNotes(rows)
	if err != nil {
		return nil, opErr("search", KindRead, "", err)
	}
	return notes, nil
}

// CountNotes returns how many notes match p, ignoring pagination.
func (r *Repository) CountNotes(ctx context.Context, p SearchParams) (int, error) {
	conn, err := r.store.DB(ctx)
	if err != nil {
		return 0, err
	}
	where, args := p.where()
	var count int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`+where, args...).Scan(&count); err != nil {
		return 0, opErr("count", KindRead, "", err)
	}
	return count, nil
}
