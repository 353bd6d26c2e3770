// ABOUTME: MCP tools for note CRUD, search and tagging.
// ABOUTME: Maps repository and autosave operations to the MCP tool interface.

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harper/inkwell/internal/db"
	"github.com/harper/inkwell/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const idSchema = `{"type": "string", "description": "Note ID or prefix (6+ chars)"}`

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "create_note",
		Description: "Create a new note. Content is HTML; plain text, word count and reading time are derived from it.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"title": {"type": "string", "description": "Note title"},
				"content": {"type": "string", "description": "Note content (HTML)"},
				"folder_id": {"type": "string", "description": "Optional folder"},
				"tags": {"type": "array", "items": {"type": "string"}, "description": "Optional tags"},
				"pinned": {"type": "boolean", "description": "Pin the note"}
			}
		}`),
	}, s.handleCreateNote)

	s.server.AddTool(&mcp.Tool{
		Name:        "get_note",
		Description: "Get a note by ID or ID prefix",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {"id": ` + idSchema + `},
			"required": ["id"]
		}`),
	}, s.handleGetNote)

	s.server.AddTool(&mcp.Tool{
		Name:        "update_note",
		Description: "Update any of a note's title, content, folder, tags or pin state. Only provided fields change.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": ` + idSchema + `,
				"title": {"type": "string", "description": "New title"},
				"content": {"type": "string", "description": "New content (HTML)"},
				"folder_id": {"type": "string", "description": "Move to folder; empty string removes the folder"},
				"tags": {"type": "array", "items": {"type": "string"}, "description": "Replace the tag set"},
				"pinned": {"type": "boolean", "description": "Pin or unpin"}
			},
			"required": ["id"]
		}`),
	}, s.handleUpdateNote)

	s.server.AddTool(&mcp.Tool{
		Name:        "search_notes",
		Description: "Search notes by title and plain text with optional filters",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Case-sensitive substring of title or text"},
				"folder_id": {"type": "string", "description": "Only notes in this folder"},
				"tags": {"type": "array", "items": {"type": "string"}, "description": "Notes must carry every tag"},
				"include_deleted": {"type": "boolean", "description": "Include soft-deleted notes"},
				"sort_by": {"type": "string", "enum": ["lastModified", "dateCreated", "title"]},
				"ascending": {"type": "boolean"},
				"limit": {"type": "integer", "description": "Max results", "default": 20},
				"offset": {"type": "integer"}
			}
		}`),
	}, s.handleSearchNotes)

	s.server.AddTool(&mcp.Tool{
		Name:        "delete_note",
		Description: "Move a note to the trash (soft delete)",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {"id": ` + idSchema + `},
			"required": ["id"]
		}`),
	}, s.handleDeleteNote)

	s.server.AddTool(&mcp.Tool{
		Name:        "restore_note",
		Description: "Restore a note from the trash. Requires the full ID.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {"id": {"type": "string", "description": "Full note ID"}},
			"required": ["id"]
		}`),
	}, s.handleRestoreNote)

	s.server.AddTool(&mcp.Tool{
		Name:        "purge_note",
		Description: "Permanently delete a note. Requires the full ID. Cannot be undone.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {"id": {"type": "string", "description": "Full note ID"}},
			"required": ["id"]
		}`),
	}, s.handlePurgeNote)

	s.server.AddTool(&mcp.Tool{
		Name:        "add_tag",
		Description: "Add a tag to a note",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": ` + idSchema + `,
				"tag": {"type": "string", "description": "Tag name"}
			},
			"required": ["id", "tag"]
		}`),
	}, s.handleAddTag)

	s.server.AddTool(&mcp.Tool{
		Name:        "remove_tag",
		Description: "Remove a tag from a note",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": ` + idSchema + `,
				"tag": {"type": "string", "description": "Tag name"}
			},
			"required": ["id", "tag"]
		}`),
	}, s.handleRemoveTag)

	s.server.AddTool(&mcp.Tool{
		Name:        "list_tags",
		Description: "List tags on live notes with usage counts",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleListTags)
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return textResult(string(data)), nil
}

func decode(req *mcp.CallToolRequest, v any) error {
	if len(req.Params.Arguments) == 0 {
		return nil
	}
	return json.Unmarshal(req.Params.Arguments, v)
}

// resolveNote finds a live note by full ID or unique prefix.
func (s *Server) resolveNote(ctx context.Context, ref string) (*models.Note, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return s.repo.GetNoteByID(ctx, id)
	}
	return s.repo.GetNoteByPrefix(ctx, ref)
}

func (s *Server) handleCreateNote(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		Title    string   `json:"title"`
		Content  string   `json:"content"`
		FolderID string   `json:"folder_id"`
		Tags     []string `json:"tags"`
		Pinned   bool     `json:"pinned"`
	}
	if err := decode(req, &params); err != nil {
		return nil, err
	}

	create := models.CreateParams{
		Title:    params.Title,
		Content:  params.Content,
		Tags:     params.Tags,
		IsPinned: params.Pinned,
	}
	if params.FolderID != "" {
		create.FolderID = &params.FolderID
	}

	note, err := s.repo.CreateNote(ctx, create)
	if err != nil {
		return errorResult("failed to create note: %v", err), nil
	}
	return textResult(fmt.Sprintf("Created note %s", note.ID)), nil
}

func (s *Server) handleGetNote(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		ID string `json:"id"`
	}
	if err := decode(req, &params); err != nil {
		return nil, err
	}

	note, err := s.resolveNote(ctx, params.ID)
	if err != nil {
		return errorResult("failed to get note: %v", err), nil
	}
	return jsonResult(note)
}

func (s *Server) handleUpdateNote(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		ID       string   `json:"id"`
		Title    *string  `json:"title"`
		Content  *string  `json:"content"`
		FolderID *string  `json:"folder_id"`
		Tags     []string `json:"tags"`
		Pinned   *bool    `json:"pinned"`
	}
	if err := decode(req, &params); err != nil {
		return nil, err
	}

	note, err := s.resolveNote(ctx, params.ID)
	if err != nil {
		return errorResult("failed to find note: %v", err), nil
	}

	u := models.NoteUpdate{
		ID:       note.ID,
		Title:    params.Title,
		Content:  params.Content,
		Tags:     params.Tags,
		IsPinned: params.Pinned,
	}
	if params.FolderID != nil {
		if *params.FolderID == "" {
			u.ClearFolder = true
		} else {
			u.FolderID = params.FolderID
		}
	}
	if u.IsEmpty() {
		return errorResult("nothing to update"), nil
	}

	updated, err := s.applyUpdate(ctx, u)
	if err != nil {
		return errorResult("failed to update note: %v", err), nil
	}
	return textResult(fmt.Sprintf("Updated note %s (version %d)", updated.ID, updated.Metadata.Version)), nil
}

// applyUpdate routes u through the autosave buffer and flushes it, so it
// merges with edits already buffered for the note. With autosave off it
// writes directly.
func (s *Server) applyUpdate(ctx context.Context, u models.NoteUpdate) (*models.Note, error) {
	if s.saver != nil {
		s.saver.ScheduleSave(u)
		if s.saver.HasPending(u.ID) {
			if err := s.saver.Flush(ctx, u.ID); err != nil {
				return nil, err
			}
			return s.repo.GetNoteByID(ctx, u.ID)
		}
	}
	return s.repo.UpdateNote(ctx, u)
}

func (s *Server) handleSearchNotes(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		Query          string   `json:"query"`
		FolderID       string   `json:"folder_id"`
		Tags           []string `json:"tags"`
		IncludeDeleted bool     `json:"include_deleted"`
		SortBy         string   `json:"sort_by"`
		Ascending      bool     `json:"ascending"`
		Limit          int      `json:"limit"`
		Offset         int      `json:"offset"`
	}
	if err := decode(req, &params); err != nil {
		return nil, err
	}

	sortBy, err := db.ParseSortField(params.SortBy)
	if err != nil {
		return errorResult("%v", err), nil
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}

	search := db.SearchParams{
		Query:          params.Query,
		Tags:           params.Tags,
		IncludeDeleted: params.IncludeDeleted,
		SortBy:         sortBy,
		Ascending:      params.Ascending,
		Limit:          params.Limit,
		Offset:         params.Offset,
	}
	if params.FolderID != "" {
		search.FolderID = &params.FolderID
	}

	notes, err := s.repo.SearchNotes(ctx, search)
	if err != nil {
		return errorResult("failed to search notes: %v", err), nil
	}
	if notes == nil {
		notes = []*models.Note{}
	}
	return jsonResult(notes)
}

func (s *Server) handleDeleteNote(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		ID string `json:"id"`
	}
	if err := decode(req, &params); err != nil {
		return nil, err
	}

	note, err := s.resolveNote(ctx, params.ID)
	if err != nil {
		return errorResult("failed to find note: %v", err), nil
	}
	if s.saver != nil {
		s.saver.Cancel(note.ID)
	}
	if err := s.repo.SoftDeleteNote(ctx, note.ID); err != nil {
		return errorResult("failed to delete note: %v", err), nil
	}
	return textResult(fmt.Sprintf("Deleted note %s", note.ID)), nil
}

func (s *Server) handleRestoreNote(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		ID string `json:"id"`
	}
	if err := decode(req, &params); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(params.ID)
	if err != nil {
		return errorResult("invalid note ID %q", params.ID), nil
	}
	note, err := s.repo.RestoreNote(ctx, id)
	if err != nil {
		return errorResult("failed to restore note: %v", err), nil
	}
	return textResult(fmt.Sprintf("Restored note %s", note.ID)), nil
}

func (s *Server) handlePurgeNote(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		ID string `json:"id"`
	}
	if err := decode(req, &params); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(params.ID)
	if err != nil {
		return errorResult("invalid note ID %q", params.ID), nil
	}
	if s.saver != nil {
		s.saver.Cancel(id)
	}
	if err := s.repo.PurgeNote(ctx, id); err != nil {
		return errorResult("failed to purge note: %v", err), nil
	}
	return textResult(fmt.Sprintf("Purged note %s", id)), nil
}

func (s *Server) handleAddTag(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		ID  string `json:"id"`
		Tag string `json:"tag"`
	}
	if err := decode(req, &params); err != nil {
		return nil, err
	}

	note, err := s.resolveNote(ctx, params.ID)
	if err != nil {
		return errorResult("failed to find note: %v", err), nil
	}
	if _, err := s.repo.AddTagToNote(ctx, note.ID, params.Tag); err != nil {
		return errorResult("failed to add tag: %v", err), nil
	}
	return textResult(fmt.Sprintf("Added tag %q to note %s", models.NormalizeTag(params.Tag), note.ID)), nil
}

func (s *Server) handleRemoveTag(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		ID  string `json:"id"`
		Tag string `json:"tag"`
	}
	if err := decode(req, &params); err != nil {
		return nil, err
	}

	note, err := s.resolveNote(ctx, params.ID)
	if err != nil {
		return errorResult("failed to find note: %v", err), nil
	}
	if _, err := s.repo.RemoveTagFromNote(ctx, note.ID, params.Tag); err != nil {
		return errorResult("failed to remove tag: %v", err), nil
	}
	return textResult(fmt.Sprintf("Removed tag %q from note %s", models.NormalizeTag(params.Tag), note.ID)), nil
}

func (s *Server) handleListTags(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.repo.ListTagCounts(ctx)
	if err != nil {
		return errorResult("failed to list tags: %v", err), nil
	}
	if tags == nil {
		tags = []db.TagCount{}
	}
	return jsonResult(tags)
}
