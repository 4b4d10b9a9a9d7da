package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jonwraymond/memops/auth"
	"github.com/jonwraymond/memops/observe"
	"github.com/jonwraymond/memops/resilience"
)

// ServerName is announced to MCP clients.
const ServerName = "mcp-mem0"

// DefaultMaxConcurrentTools bounds concurrent tool calls.
const DefaultMaxConcurrentTools = 32

// Option configures a Server.
type Option func(*Server)

// WithAuthorizer replaces auth.OwnerAuthorizer.
func WithAuthorizer(a auth.Authorizer) Option {
	return func(s *Server) { s.authz = a }
}

// WithBulkhead replaces the default tool-call bulkhead.
func WithBulkhead(b *resilience.Bulkhead) Option {
	return func(s *Server) { s.bulkhead = b }
}

// WithMiddleware instruments every tool call.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(s *Server) { s.mw = mw }
}

// Server is the MCP front end of an App.
type Server struct {
	app      *App
	mcp      *server.MCPServer
	authz    auth.Authorizer
	bulkhead *resilience.Bulkhead
	mw       *observe.Middleware
	logger   observe.Logger
}

// New registers the memory tools for app.
func New(app *App, opts ...Option) *Server {
	s := &Server{
		app:      app,
		authz:    auth.OwnerAuthorizer{},
		bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: DefaultMaxConcurrentTools}),
		logger:   observe.NopLogger(),
	}
	if app.Logger != nil {
		s.logger = app.Logger
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mw == nil {
		s.mw = observe.NewMiddleware(nil, nil, s.logger)
	}

	version := app.Config.Observe.Version
	if version == "" {
		version = "1.0.0"
	}
	s.mcp = server.NewMCPServer(ServerName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.mcp.AddTools(s.tools()...)
	return s
}

// MCP returns the underlying mcp-go server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// toolFunc computes the text of a successful tool result.
type toolFunc func(ctx context.Context, req mcp.CallToolRequest) (string, error)

// handler runs fn inside the bulkhead and the observe middleware and turns
// its error into an error result.
func (s *Server) handler(name string, fn toolFunc) server.ToolHandlerFunc {
	exec := s.mw.Wrap(func(ctx context.Context, tool string, input any) (any, error) {
		req, _ := input.(mcp.CallToolRequest)
		var out string
		err := s.bulkhead.Execute(ctx, func(ctx context.Context) error {
			var err error
			out, err = fn(ctx, req)
			return err
		})
		return out, err
	})

	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := exec(ctx, name, req)
		if err != nil {
			return mcp.NewToolResultError(errorText(name, err)), nil
		}
		text, _ := out.(string)
		return mcp.NewToolResultText(text), nil
	}
}

// authorize checks that the caller may act for userID.
func (s *Server) authorize(ctx context.Context, tool, userID string) error {
	err := s.authz.Authorize(ctx, &auth.AuthzRequest{
		Subject: auth.IdentityFromContext(ctx),
		Tool:    tool,
		UserID:  userID,
	})
	if err != nil {
		s.logger.Warn(ctx, "memory access denied",
			observe.Field{Key: "caller", Value: auth.CallerFromContext(ctx)},
			observe.Field{Key: "tool", Value: tool},
			observe.Field{Key: "user_id", Value: userID},
		)
	}
	return err
}
