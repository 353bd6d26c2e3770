// ABOUTME: Tests for MCP tool and resource handlers.
// ABOUTME: Calls handlers directly against a temporary SQLite repository.

package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harper/inkwell/internal/autosave"
	"github.com/harper/inkwell/internal/db"
	"github.com/harper/inkwell/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *db.Repository) {
	t.Helper()
	return newTestServerWith(t, autosave.Options{Debounce: time.Hour})
}

func newTestServerWith(t *testing.T, opts autosave.Options) (*Server, *db.Repository) {
	t.Helper()
	store := db.NewStore(filepath.Join(t.TempDir(), "mcp.db"))
	t.Cleanup(func() { _ = store.Close() })
	repo := db.NewRepository(store)
	saver := autosave.New(repo, opts)
	t.Cleanup(saver.Shutdown)
	return NewServer(repo, saver, nil, "test"), repo
}

func call(t *testing.T, h func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error), args string) *mcp.CallToolResult {
	t.Helper()
	res, err := h(context.Background(), &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(args)},
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(res *mcp.CallToolResult) string {
	var sb strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

func TestCreateAndGetNote(t *testing.T) {
	s, repo := newTestServer(t)

	res := call(t, s.handleCreateNote, `{"title":"Groceries","content":"<p>eggs and milk</p>","tags":["Home"]}`)
	require.False(t, res.IsError, text(res))

	notes, err := repo.SearchNotes(context.Background(), db.SearchParams{})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	id := notes[0].ID.String()

	res = call(t, s.handleGetNote, `{"id":"`+id[:8]+`"}`)
	require.False(t, res.IsError, text(res))

	var got models.Note
	require.NoError(t, json.Unmarshal([]byte(text(res)), &got))
	assert.Equal(t, "Groceries", got.Title)
	assert.Equal(t, "eggs and milk", got.PlainText)
	assert.Equal(t, 3, got.WordCount)
	assert.Equal(t, []string{"home"}, got.Tags)
}

func TestGetNoteErrors(t *testing.T) {
	s, _ := newTestServer(t)

	res := call(t, s.handleGetNote, `{"id":"abc"}`)
	assert.True(t, res.IsError)

	res = call(t, s.handleGetNote, `{"id":"00000000-0000-0000-0000-000000000001"}`)
	assert.True(t, res.IsError)
}

func TestUpdateNoteGoesThroughAutosave(t *testing.T) {
	s, repo := newTestServer(t)
	ctx := context.Background()
	note, err := repo.CreateNote(ctx, models.CreateParams{Title: "Draft", Content: "<p>one</p>", FolderID: models.StringPtr("inbox")})
	require.NoError(t, err)

	// A buffered edit from elsewhere merges with the tool's update.
	s.saver.ScheduleSave(models.NoteUpdate{ID: note.ID, Title: models.StringPtr("Buffered")})

	res := call(t, s.handleUpdateNote, `{"id":"`+note.ID.String()+`","content":"<p>one two</p>","folder_id":""}`)
	require.False(t, res.IsError, text(res))
	assert.Contains(t, text(res), "version 2")

	got, err := repo.GetNoteByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buffered", got.Title)
	assert.Equal(t, "<p>one two</p>", got.Content)
	assert.Nil(t, got.FolderID)
	assert.False(t, s.saver.HasPending(note.ID))
}

func TestUpdateNoteRequiresAField(t *testing.T) {
	s, repo := newTestServer(t)
	note, err := repo.CreateNote(context.Background(), models.CreateParams{Title: "x"})
	require.NoError(t, err)

	res := call(t, s.handleUpdateNote, `{"id":"`+note.ID.String()+`"}`)
	assert.True(t, res.IsError)
}

func TestUpdateNoteWithAutosaveDisabled(t *testing.T) {
	s, repo := newTestServerWith(t, autosave.Options{Disabled: true})
	note, err := repo.CreateNote(context.Background(), models.CreateParams{Title: "x"})
	require.NoError(t, err)

	res := call(t, s.handleUpdateNote, `{"id":"`+note.ID.String()+`","pinned":true}`)
	require.False(t, res.IsError, text(res))

	got, err := repo.GetNoteByID(context.Background(), note.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPinned)
}

func TestDeleteRestorePurge(t *testing.T) {
	s, repo := newTestServer(t)
	ctx := context.Background()
	note, err := repo.CreateNote(ctx, models.CreateParams{Title: "Budget", Content: "<p>budget</p>"})
	require.NoError(t, err)
	id := note.ID.String()

	res := call(t, s.handleDeleteNote, `{"id":"`+id+`"}`)
	require.False(t, res.IsError, text(res))

	res = call(t, s.handleSearchNotes, `{"query":"budget"}`)
	require.False(t, res.IsError)
	assert.Equal(t, "[]", text(res))

	res = call(t, s.handleSearchNotes, `{"query":"budget","include_deleted":true}`)
	assert.Contains(t, text(res), id)

	res = call(t, s.handleRestoreNote, `{"id":"`+id+`"}`)
	require.False(t, res.IsError, text(res))
	_, err = repo.GetNoteByID(ctx, note.ID)
	require.NoError(t, err)

	res = call(t, s.handlePurgeNote, `{"id":"`+id+`"}`)
	require.False(t, res.IsError, text(res))
	_, err = repo.GetNoteIncludingDeleted(ctx, note.ID)
	assert.ErrorIs(t, err, db.ErrNoteNotFound)

	res = call(t, s.handlePurgeNote, `{"id":"`+id+`"}`)
	assert.True(t, res.IsError)
}

func TestSearchRejectsUnknownSort(t *testing.T) {
	s, _ := newTestServer(t)
	res := call(t, s.handleSearchNotes, `{"sort_by":"size"}`)
	assert.True(t, res.IsError)
}

func TestTagTools(t *testing.T) {
	s, repo := newTestServer(t)
	note, err := repo.CreateNote(context.Background(), models.CreateParams{Title: "Tagged"})
	require.NoError(t, err)
	id := note.ID.String()

	res := call(t, s.handleAddTag, `{"id":"`+id+`","tag":" Work "}`)
	require.False(t, res.IsError, text(res))

	res = call(t, s.handleListTags, `{}`)
	var tags []db.TagCount
	require.NoError(t, json.Unmarshal([]byte(text(res)), &tags))
	assert.Equal(t, []db.TagCount{{Name: "work", Count: 1}}, tags)

	res = call(t, s.handleRemoveTag, `{"id":"`+id+`","tag":"work"}`)
	require.False(t, res.IsError, text(res))
	res = call(t, s.handleListTags, `{}`)
	assert.Equal(t, "[]", text(res))
}

func TestReadResource(t *testing.T) {
	s, repo := newTestServer(t)
	note, err := repo.CreateNote(context.Background(), models.CreateParams{
		Title:   "Readable",
		Content: "<p>Hello <b>world</b></p>",
		Tags:    []string{"a", "b"},
	})
	require.NoError(t, err)

	uri := noteURIPrefix + note.ID.String()
	res, err := s.handleReadResource(context.Background(), &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: uri},
	})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "# Readable\n\n**Tags:** a, b\n\nHello world\n", res.Contents[0].Text)

	_, err = s.handleReadResource(context.Background(), &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: "other://note/x"},
	})
	assert.Error(t, err)
}

func TestForwardFailuresDrainsChannel(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.forwardFailures(ctx)
	}()

	// Updating a note that does not exist fails and is reported.
	s.saver.ScheduleSave(models.NoteUpdate{ID: uuid.New(), Title: models.StringPtr("ghost")})
	require.Error(t, s.saver.FlushAll(context.Background()))

	require.Eventually(t, func() bool { return len(s.saver.Failures()) == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forwardFailures did not stop after cancel")
	}
}
