// ABOUTME: MCP resources for exposing notes as readable resources.
// ABOUTME: Allows AI agents to read a note's text via the inkwell://note/{id} URI.

package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/harper/inkwell/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const noteURIPrefix = "inkwell://note/"

func (s *Server) registerResources() {
	s.server.AddResourceTemplate(
		&mcp.ResourceTemplate{
			URITemplate: noteURIPrefix + "{id}",
			Name:        "Note",
			Description: "Access individual notes by ID or ID prefix",
			MIMEType:    "text/markdown",
		},
		s.handleReadResource,
	)
}

func (s *Server) handleReadResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	ref, ok := strings.CutPrefix(req.Params.URI, noteURIPrefix)
	if !ok || ref == "" {
		return nil, fmt.Errorf("invalid resource URI: %s", req.Params.URI)
	}

	note, err := s.resolveNote(ctx, ref)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      req.Params.URI,
				MIMEType: "text/markdown",
				Text:     renderNote(note),
			},
		},
	}, nil
}

func renderNote(note *models.Note) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", note.Title)
	if len(note.Tags) > 0 {
		fmt.Fprintf(&sb, "**Tags:** %s\n\n", strings.Join(note.Tags, ", "))
	}
	sb.WriteString(note.PlainText)
	sb.WriteString("\n")
	return sb.String()
}
