// Package mcpserver exposes retrieval and indexing over the Model
// Context Protocol (MCP).
//
// The server speaks JSON-RPC 2.0 over stdio and registers five tools:
//   - get_context: retrieve passages relevant to the cursor position in a note
//   - save_note: persist a note and schedule it for re-indexing
//   - delete_note: remove a note and its index entries
//   - warmup: probe the embedding provider and reconcile the index
//   - index_status: report index statistics and health
//
// # Tool: get_context
//
// The caller sends the active note's buffer and cursor position; the
// response carries scored passages from other notes:
//
//	Request:
//	{
//	  "name": "get_context",
//	  "arguments": {
//	    "note_id": "worlds/kestrel",
//	    "text": "...full buffer...",
//	    "cursor_offset": 412,
//	    "limit": 8
//	  }
//	}
//
// Each result includes the passage text, its source note, the final
// score and its breakdown (rel, quality, lex, active_hits).
//
// # Errors
//
// Validation failures are returned with JSON-RPC code -32602 and a data
// payload naming the offending parameter; anything else is -32603.
package mcpserver
