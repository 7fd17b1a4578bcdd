package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/notesearch/internal/search"
	"github.com/Aman-CERP/notesearch/pkg/version"
)

// ServerName is the implementation name reported to MCP clients.
const ServerName = "notesearch"

// Searcher is the part of search.Service the server needs.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]search.Result, error)
	Stats(ctx context.Context) (search.Stats, error)
}

var _ Searcher = (*search.Service)(nil)

// Server is the MCP server for notesearch. It exposes note search and index
// status to AI clients.
type Server struct {
	mcp    *mcp.Server
	svc    Searcher
	logger *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name: ToolSearchNotes,
		Description: "Full-text search over the user's Markdown notes. Returns matching notes best first " +
			"with the folder they live in and a snippet around the first literal match. " +
			"Supports +required, -excluded, \"quoted phrases\" and filename:/section:/content: prefixes.",
	},
	{
		Name:        ToolIndexStatus,
		Description: "Reports how many notes are indexed, which backend is in use and whether changes are being watched.",
	},
}

// NewServer creates a new MCP server over svc.
func NewServer(svc Searcher) (*Server, error) {
	if svc == nil {
		return nil, errors.New("search service is required")
	}

	s := &Server{
		svc:    svc,
		logger: slog.Default(),
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return append([]ToolInfo(nil), tools...)
}

// CallTool invokes a tool by name with loosely typed arguments, as decoded
// from JSON. search_notes returns markdown, index_status *IndexStatusOutput.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolSearchNotes:
		input, err := searchInputFromArgs(args)
		if err != nil {
			return nil, err
		}
		out, err := s.searchNotes(ctx, input)
		if err != nil {
			return nil, err
		}
		return FormatSearchResults(out.Query, out.Results), nil
	case ToolIndexStatus:
		return s.indexStatus(ctx)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func searchInputFromArgs(args map[string]any) (SearchNotesInput, error) {
	query, ok := args["query"].(string)
	if !ok {
		return SearchNotesInput{}, NewInvalidParamsError("query parameter is required and must be a string")
	}
	input := SearchNotesInput{Query: query}
	if l, ok := args["limit"].(float64); ok {
		input.Limit = int(l)
	}
	return input, nil
}

// searchNotes validates input and runs the query.
func (s *Server) searchNotes(ctx context.Context, input SearchNotesInput) (SearchNotesOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return SearchNotesOutput{}, NewInvalidParamsError("query cannot be empty or whitespace only")
	}
	if input.Limit < 0 {
		return SearchNotesOutput{}, NewInvalidParamsError("limit must not be negative")
	}

	start := time.Now()
	requestID := generateRequestID()
	s.logger.Info("search_notes_started",
		slog.String("request_id", requestID),
		slog.String("query", query),
		slog.Int("limit", input.Limit))

	results, err := s.svc.Search(ctx, query, input.Limit)
	duration := time.Since(start)
	if err != nil {
		s.logger.Warn("search_notes_failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return SearchNotesOutput{}, MapError(err)
	}

	s.logger.Info("search_notes_completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(results)))

	out := SearchNotesOutput{
		Query:   query,
		Results: make([]NoteResult, 0, len(results)),
	}
	for _, r := range results {
		out.Results = append(out.Results, ToNoteResult(r))
	}
	return out, nil
}

func (s *Server) indexStatus(ctx context.Context) (*IndexStatusOutput, error) {
	st, err := s.svc.Stats(ctx)
	if err != nil {
		return nil, MapError(err)
	}
	return ToIndexStatus(st), nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolSearchNotes,
		Description: tools[0].Description,
	}, s.mcpSearchNotesHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolIndexStatus,
		Description: tools[1].Description,
	}, s.mcpIndexStatusHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

// mcpSearchNotesHandler is the MCP SDK handler for search_notes. The text
// content carries markdown; the structured content carries the results.
func (s *Server) mcpSearchNotesHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchNotesInput) (
	*mcp.CallToolResult,
	SearchNotesOutput,
	error,
) {
	out, err := s.searchNotes(ctx, input)
	if err != nil {
		return nil, SearchNotesOutput{}, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: FormatSearchResults(out.Query, out.Results)},
		},
	}, out, nil
}

// mcpIndexStatusHandler is the MCP SDK handler for index_status.
func (s *Server) mcpIndexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	out, err := s.indexStatus(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// Serve runs the server with the specified transport until ctx is done or
// the client disconnects.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
