package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// getContextTool returns the tool definition for get_context
func getContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_context",
		Description: "Retrieve note passages relevant to the text around the cursor in the active note",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"note_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the active note; its own passages are excluded from results",
				},
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Full buffer text of the active note (may differ from the saved version)",
				},
				"cursor_offset": map[string]interface{}{
					"type":        "integer",
					"description": "Byte offset of the cursor within the text; defaults to the end of the buffer",
					"minimum":     0,
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-50)",
					"default":     8,
					"minimum":     1,
					"maximum":     50,
				},
			},
			Required: []string{"note_id", "text"},
		},
	}
}

// saveNoteTool returns the tool definition for save_note
func saveNoteTool() mcp.Tool {
	return mcp.Tool{
		Name:        "save_note",
		Description: "Save a note and schedule it for re-indexing",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"note_id": map[string]interface{}{
					"type":        "string",
					"description": "Note ID, a slash-separated path without the .md extension",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Full markdown content of the note",
				},
			},
			Required: []string{"note_id", "content"},
		},
	}
}

// deleteNoteTool returns the tool definition for delete_note
func deleteNoteTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_note",
		Description: "Delete a note and remove its passages from the index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"note_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the note to delete",
				},
			},
			Required: []string{"note_id"},
		},
	}
}

// warmupTool returns the tool definition for warmup
func warmupTool() mcp.Tool {
	return mcp.Tool{
		Name:        "warmup",
		Description: "Probe the embedding provider and reconcile the index with the notes directory",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"force_rebuild": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, re-chunk and re-embed every note even when content hashes match",
					"default":     false,
				},
			},
		},
	}
}

// indexStatusTool returns the tool definition for index_status
func indexStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_status",
		Description: "Query index statistics and health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
