package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tlowry/notectx/internal/retrieval"
	"github.com/tlowry/notectx/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
)

// handleGetContext handles the get_context tool invocation
func (s *Server) handleGetContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	noteID, ok := args["note_id"].(string)
	if !ok || noteID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "note_id parameter is required", map[string]interface{}{
			"param":  "note_id",
			"reason": "missing or empty",
		})
	}

	text, ok := args["text"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "text parameter is required", map[string]interface{}{
			"param":  "text",
			"reason": "missing",
		})
	}

	cursorOffset := getIntDefault(args, "cursor_offset", len(text))
	if cursorOffset < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "cursor_offset must be non-negative", map[string]interface{}{
			"param": "cursor_offset",
			"value": cursorOffset,
		})
	}

	limit := getIntDefault(args, "limit", 0)
	if limit < 0 || limit > 50 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 50", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	results, err := s.retrieval.Context(ctx, retrieval.ContextRequest{
		NoteID:       noteID,
		Text:         text,
		CursorOffset: cursorOffset,
		Limit:        limit,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]interface{}, 0, len(results))
	for _, r := range results {
		items = append(items, map[string]interface{}{
			"passage_id":  r.PassageID,
			"note_id":     r.NoteID,
			"rank":        r.Rank,
			"score":       r.Score,
			"rel":         r.Breakdown.Rel,
			"quality":     r.Breakdown.Quality,
			"lex":         r.Breakdown.Lex,
			"active_hits": r.Breakdown.ActiveHits,
			"text":        r.Text,
			"start_off":   r.StartOff,
			"end_off":     r.EndOff,
		})
	}

	response := map[string]interface{}{
		"note_id": noteID,
		"count":   len(results),
		"results": items,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSaveNote handles the save_note tool invocation
func (s *Server) handleSaveNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	noteID, ok := args["note_id"].(string)
	if !ok || noteID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "note_id parameter is required", map[string]interface{}{
			"param":  "note_id",
			"reason": "missing or empty",
		})
	}

	content, ok := args["content"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "content parameter is required", map[string]interface{}{
			"param":  "content",
			"reason": "missing",
		})
	}

	if s.notes != nil {
		if err := s.notes.Write(noteID, content); err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "failed to write note", map[string]interface{}{
				"param": "note_id",
				"error": err.Error(),
			})
		}
	}

	s.retrieval.OnNoteSaved(types.Note{
		ID:      noteID,
		Kind:    types.KindNote,
		Content: content,
	})

	response := map[string]interface{}{
		"saved":   true,
		"note_id": noteID,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDeleteNote handles the delete_note tool invocation
func (s *Server) handleDeleteNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	noteID, ok := args["note_id"].(string)
	if !ok || noteID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "note_id parameter is required", map[string]interface{}{
			"param":  "note_id",
			"reason": "missing or empty",
		})
	}

	if s.notes != nil {
		if err := s.notes.Remove(noteID); err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "failed to remove note", map[string]interface{}{
				"param": "note_id",
				"error": err.Error(),
			})
		}
	}

	if err := s.retrieval.OnNoteDeleted(ctx, noteID); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to drop note from index", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"deleted": true,
		"note_id": noteID,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleWarmup handles the warmup tool invocation
func (s *Server) handleWarmup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	forceRebuild := getBoolDefault(args, "force_rebuild", false)

	report, err := s.retrieval.Warmup(ctx, forceRebuild)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "warmup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"provider":           report.Provider,
		"model":              report.Model,
		"dimension":          report.Dimension,
		"index_cleared":      report.IndexCleared,
		"rebuilt":            report.Rebuilt,
		"reranker_available": report.RerankerAvailable,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexStatus handles the index_status tool invocation
func (s *Server) handleIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.store.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get index status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"statistics": map[string]interface{}{
			"notes":         status.Notes,
			"passages":      status.Passages,
			"embeddings":    status.Embeddings,
			"index_size_mb": fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"embeddings_available": status.Health.EmbeddingsAvailable,
			"fts_available":        status.Health.FTSAvailable,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}
