// ABOUTME: MCP server for inkwell integration with AI agents.
// ABOUTME: Provides tools, resources, and prompts for note management.

package mcp

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/harper/inkwell/internal/autosave"
	"github.com/harper/inkwell/internal/db"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type Server struct {
	server *mcp.Server
	repo   *db.Repository
	saver  *autosave.Coordinator
	logger *log.Logger
}

// NewServer exposes repo over MCP. Edits from update_note go through saver
// so they merge with anything the CLI has buffered for the same note.
func NewServer(repo *db.Repository, saver *autosave.Coordinator, logger *log.Logger, version string) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{repo: repo, saver: saver, logger: logger.WithPrefix("mcp")}

	s.server = mcp.NewServer(
		&mcp.Implementation{
			Name:    "inkwell",
			Version: version,
		},
		&mcp.ServerOptions{
			HasTools:     true,
			HasResources: true,
			HasPrompts:   true,
		},
	)

	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.forwardFailures(ctx)

	s.logger.Info("serving on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// forwardFailures relays autosave write failures to connected clients as
// warning log messages until ctx is done.
func (s *Server) forwardFailures(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-s.saver.Failures():
			s.notifyFailure(ctx, f)
		}
	}
}

func (s *Server) notifyFailure(ctx context.Context, f autosave.Failure) {
	s.logger.Warn("autosave failed", "note", f.NoteID, "err", f.Err)
	msg := &mcp.LoggingMessageParams{
		Level:  "warning",
		Logger: "inkwell.autosave",
		Data: map[string]string{
			"note_id": f.NoteID.String(),
			"error":   f.Err.Error(),
		},
	}
	for ss := range s.server.Sessions() {
		if err := ss.Log(ctx, msg); err != nil {
			s.logger.Debug("sending log message", "err", err)
		}
	}
}
