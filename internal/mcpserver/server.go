package mcpserver

import (
	"context"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/tlowry/notectx/internal/notes"
	"github.com/tlowry/notectx/internal/retrieval"
	"github.com/tlowry/notectx/internal/store"
)

const (
	// ServerName is the MCP server name
	ServerName = "notectx"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	store     store.Store
	retrieval *retrieval.Service
	notes     *notes.Dir
	logger    *slog.Logger
}

// NewServer creates a new MCP server around an already-wired retrieval
// service. The notes directory may be nil, in which case save_note and
// delete_note update the index without touching disk.
func NewServer(st store.Store, svc *retrieval.Service, dir *notes.Dir, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{
		mcp:       server.NewMCPServer(ServerName, ServerVersion),
		store:     st,
		retrieval: svc,
		notes:     dir,
		logger:    logger.With("component", "mcpserver"),
	}

	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(getContextTool(), s.handleGetContext)
	s.mcp.AddTool(saveNoteTool(), s.handleSaveNote)
	s.mcp.AddTool(deleteNoteTool(), s.handleDeleteNote)
	s.mcp.AddTool(warmupTool(), s.handleWarmup)
	s.mcp.AddTool(indexStatusTool(), s.handleIndexStatus)
}
