package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jonwraymond/memops/auth"
	"github.com/jonwraymond/memops/health"
	"github.com/jonwraymond/memops/memory"
	"github.com/jonwraymond/memops/resilience"
)

// Tool names.
const (
	ToolSaveMemory     = "save_memory"
	ToolGetAllMemories = "get_all_memories"
	ToolSearchMemories = "search_memories"
	ToolDeleteMemory   = "delete_memory"
	ToolHealthStatus   = "health_status"
)

// previewLen is how much saved content is echoed back.
const previewLen = 100

const userIDDescription = "Required user identifier for memory isolation (must be provided)"

func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool(ToolSaveMemory,
				mcp.WithDescription("Save information to your long-term memory with user isolation. "+
					"The content is indexed for later retrieval through semantic search. "+
					"Memories are isolated by userId to prevent cross-user data leakage."),
				mcp.WithString("content", mcp.Required(),
					mcp.Description("The content to store in memory, including any relevant details and context")),
				mcp.WithString("userId", mcp.Required(), mcp.Description(userIDDescription)),
			),
			Handler: s.handler(ToolSaveMemory, s.saveMemory),
		},
		{
			Tool: mcp.NewTool(ToolGetAllMemories,
				mcp.WithDescription("Get all stored memories for a specific user. "+
					"Returns a JSON formatted list of the user's memories, newest first."),
				mcp.WithString("userId", mcp.Required(), mcp.Description(userIDDescription)),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: s.handler(ToolGetAllMemories, s.getAllMemories),
		},
		{
			Tool: mcp.NewTool(ToolSearchMemories,
				mcp.WithDescription("Search memories using semantic search with user isolation. "+
					"Results are ranked by relevance. Always search your memories before making decisions."),
				mcp.WithString("query", mcp.Required(),
					mcp.Description("Search query describing what you're looking for. Can be natural language.")),
				mcp.WithString("userId", mcp.Required(), mcp.Description(userIDDescription)),
				mcp.WithNumber("topK", mcp.DefaultNumber(memory.DefaultSearchLimit), mcp.Min(1),
					mcp.Description("Maximum number of results to return (default: 3)")),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: s.handler(ToolSearchMemories, s.searchMemories),
		},
		{
			Tool: mcp.NewTool(ToolDeleteMemory,
				mcp.WithDescription("Delete a specific memory by its ID. "+
					"Users can only delete their own memories."),
				mcp.WithString("memoryId", mcp.Required(), mcp.Description("The unique identifier of the memory to delete")),
				mcp.WithString("userId", mcp.Required(), mcp.Description(userIDDescription)),
				mcp.WithDestructiveHintAnnotation(true),
			),
			Handler: s.handler(ToolDeleteMemory, s.deleteMemory),
		},
		{
			Tool: mcp.NewTool(ToolHealthStatus,
				mcp.WithDescription("Report service and database health."),
				mcp.WithBoolean("detailed", mcp.Description("Include pool statistics and timing details")),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: s.handler(ToolHealthStatus, s.healthStatus),
		},
	}
}

// userArg validates userId before authorizing the caller for it.
func (s *Server) userArg(ctx context.Context, tool string, req mcp.CallToolRequest) (string, error) {
	userID := req.GetString("userId", "")
	if strings.TrimSpace(userID) == "" {
		return "", memory.ErrUserIDRequired
	}
	if err := s.authorize(ctx, tool, userID); err != nil {
		return "", err
	}
	return userID, nil
}

func (s *Server) saveMemory(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	userID, err := s.userArg(ctx, ToolSaveMemory, req)
	if err != nil {
		return "", err
	}
	content := req.GetString("content", "")
	if _, err := s.app.Memory.Save(ctx, userID, content); err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully saved memory for user '%s': %s", userID, preview(content)), nil
}

type listResult struct {
	UserID   string          `json:"user_id"`
	Memories []memory.Record `json:"memories"`
	Count    int             `json:"count"`
}

func (s *Server) getAllMemories(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	userID, err := s.userArg(ctx, ToolGetAllMemories, req)
	if err != nil {
		return "", err
	}
	records, err := s.app.Memory.GetAll(ctx, userID)
	if err != nil {
		return "", err
	}
	return toJSON(listResult{UserID: userID, Memories: nonNil(records), Count: len(records)})
}

type searchResult struct {
	UserID  string          `json:"user_id"`
	Query   string          `json:"query"`
	Results []memory.Record `json:"results"`
	Count   int             `json:"count"`
}

func (s *Server) searchMemories(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	userID, err := s.userArg(ctx, ToolSearchMemories, req)
	if err != nil {
		return "", err
	}
	query := req.GetString("query", "")
	limit := req.GetInt("topK", memory.DefaultSearchLimit)

	records, err := s.app.Memory.Search(ctx, userID, query, limit)
	if err != nil {
		return "", err
	}
	return toJSON(searchResult{UserID: userID, Query: query, Results: nonNil(records), Count: len(records)})
}

func (s *Server) deleteMemory(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	userID, err := s.userArg(ctx, ToolDeleteMemory, req)
	if err != nil {
		return "", err
	}
	memoryID := req.GetString("memoryId", "")
	if err := s.app.Memory.Delete(ctx, userID, memoryID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully deleted memory '%s' for user '%s'", strings.TrimSpace(memoryID), userID), nil
}

func (s *Server) healthStatus(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	if req.GetBool("detailed", false) {
		return toJSON(s.app.Health.DetailedStatus(ctx))
	}
	return toJSON(health.Summarize(s.app.Health.Status(ctx, false)))
}

// errorText renders err as tool result text. Caller mistakes get a plain
// "Error: <reason>"; backend failures name the operation that failed.
func errorText(tool string, err error) string {
	switch {
	case errors.Is(err, memory.ErrUserIDRequired),
		errors.Is(err, memory.ErrMemoryIDRequired),
		errors.Is(err, memory.ErrContentRequired),
		errors.Is(err, memory.ErrInvalidMemoryID),
		errors.Is(err, memory.ErrNotFound):
		return "Error: " + err.Error()
	case errors.Is(err, auth.ErrForbidden):
		return "Error: not authorized to access this user's memories"
	case errors.Is(err, resilience.ErrBulkheadFull):
		return "Error: server is busy, retry shortly"
	}

	var op string
	switch tool {
	case ToolSaveMemory:
		op = "saving memory"
	case ToolGetAllMemories:
		op = "retrieving memories"
	case ToolSearchMemories:
		op = "searching memories"
	case ToolDeleteMemory:
		op = "deleting memory"
	default:
		op = "running " + tool
	}
	return fmt.Sprintf("Error %s: %v", op, err)
}

// preview shortens content to previewLen runes.
func preview(content string) string {
	r := []rune(content)
	if len(r) <= previewLen {
		return content
	}
	return string(r[:previewLen]) + "..."
}

func nonNil(records []memory.Record) []memory.Record {
	if records == nil {
		return []memory.Record{}
	}
	return records
}

func toJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
