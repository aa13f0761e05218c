// Package mcpserver exposes every registered agent and workflow as an MCP
// tool taking a single "text" argument.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hupe1980/agentmux"
	"github.com/hupe1980/agentmux/logging"
	"github.com/hupe1980/agentmux/workflow"
)

// Tool name prefixes.
const (
	AgentPrefix    = "agent_"
	WorkflowPrefix = "workflow_"
)

// Orchestrator is the part of the orchestrator the MCP server needs.
type Orchestrator interface {
	Dispatch(ctx context.Context, agentName, text string) (string, error)
	RunWorkflow(ctx context.Context, name, text string) (*workflow.Result, error)
	Entries() []agentmux.Entry
}

// Options configures New.
type Options struct {
	Name    string
	Version string

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Server serves the orchestrator over MCP.
type Server struct {
	mcp    *server.MCPServer
	logger logging.Logger
}

// New registers one tool per agent and workflow entry.
func New(o Orchestrator, optFns ...func(o *Options)) *Server {
	opts := Options{Name: "agentmux", Version: "dev"}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	s := &Server{
		mcp:    server.NewMCPServer(opts.Name, opts.Version, server.WithToolCapabilities(false)),
		logger: opts.Logger,
	}

	for _, e := range o.Entries() {
		switch e.Kind {
		case agentmux.KindAgent:
			s.mcp.AddTool(newTool(AgentPrefix+e.Name, e.Description), s.agentHandler(o, e.Name))
		case agentmux.KindWorkflow:
			s.mcp.AddTool(newTool(WorkflowPrefix+e.Name, e.Description), s.workflowHandler(o, e.Name))
		}
	}

	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// Serve speaks MCP over the given streams until ctx is done or in closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

func newTool(name, description string) mcp.Tool {
	if description == "" {
		description = "Runs " + name
	}

	return mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Input text"),
		),
	)
}

func (s *Server) agentHandler(o Orchestrator, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		answer, err := o.Dispatch(ctx, name, text)
		if err != nil {
			s.logger.Warn("mcp.tool.failed", "agent", name, "error", err.Error())
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(answer), nil
	}
}

func (s *Server) workflowHandler(o Orchestrator, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		res, err := o.RunWorkflow(ctx, name, text)
		if err != nil {
			s.logger.Warn("mcp.tool.failed", "workflow", name, "error", err.Error())
			return mcp.NewToolResultError(err.Error()), nil
		}

		if loc, ok := res.Locator(); ok {
			return mcp.NewToolResultText(loc), nil
		}

		b, err := json.Marshal(res.Output)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(string(b)), nil
	}
}
