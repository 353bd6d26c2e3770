// ABOUTME: MCP prompts for common note workflows.
// ABOUTME: Provides pre-configured prompts that drive the inkwell tools.

package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerPrompts() {
	s.server.AddPrompt(&mcp.Prompt{
		Name:        "summarize-note",
		Description: "Generate a summary of an existing note",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "note_id",
				Description: "ID of the note to summarize",
				Required:    true,
			},
		},
	}, s.getSummarizeNotePrompt)

	s.server.AddPrompt(&mcp.Prompt{
		Name:        "organize-notes",
		Description: "Get suggestions for organizing, tagging and pinning notes",
	}, s.getOrganizeNotesPrompt)
}

func userPrompt(text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: text},
			},
		},
	}
}

func (s *Server) getSummarizeNotePrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	noteID, ok := req.Params.Arguments["note_id"]
	if !ok || noteID == "" {
		return nil, fmt.Errorf("note_id argument is required")
	}

	return userPrompt(fmt.Sprintf(`Please summarize the note with ID: %s

1. Use the get_note tool to retrieve the note
2. Read its plainText field
3. Write a concise summary covering the main topic, key points and action items
4. Use the update_note tool to prepend a <h2>Summary</h2> section to the note's HTML content`, noteID)), nil
}

func (s *Server) getOrganizeNotesPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return userPrompt(`Help me organize my notes:

1. Use list_tags to see the current tags
2. Use search_notes with sort_by "lastModified" to page through notes
3. Identify common themes and suggest a consistent tag set
4. Point out notes that look like duplicates or belong in the trash
5. Suggest which notes deserve to be pinned

Give specific recommendations with note IDs. Apply tag changes with add_tag and remove_tag only after I confirm.`), nil
}
