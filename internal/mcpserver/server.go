// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ditakeeper tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mkorneva/ditakeeper/internal/api"
	"github.com/mkorneva/ditakeeper/internal/storage"
)

// Server wraps the MCP server with Ditakeeper tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *api.Service
	store storage.Provider
}

// New creates a new MCP server with all Ditakeeper tools registered.
func New(svc *api.Service, store storage.Provider) *Server {
	s := &Server{svc: svc, store: store}

	s.mcp = server.NewMCPServer(
		"Ditakeeper",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_topics",
		mcp.WithDescription("Full-text search through topic content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchTopics)

	s.mcp.AddTool(mcp.NewTool("read_topic",
		mcp.WithDescription("Read the full XML content of a DITA topic."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the topic (e.g. c_Overview.dita)")),
	), s.readTopic)

	s.mcp.AddTool(mcp.NewTool("list_problems",
		mcp.WithDescription("List the topics that still need review: missing titles, "+
			"missing short descriptions, or unresolved draft comments."),
	), s.listProblems)

	s.mcp.AddTool(mcp.NewTool("rename_topics",
		mcp.WithDescription("Rename every topic in the project to its canonical "+
			"style-guide file name and propagate the renames through the map and "+
			"all cross-references. Read the style guide first via the "+
			"ditakeeper://style-guide resource to understand the naming scheme."),
	), s.renameTopics)

	s.mcp.AddTool(mcp.NewTool("rename_images",
		mcp.WithDescription("Rename every image asset to a generated name derived "+
			"from a project prefix and the image's figure title, updating all "+
			"referencing topics."),
		mcp.WithString("prefix", mcp.Required(), mcp.Description("Project prefix for the generated names (e.g. dl980)")),
	), s.renameImages)

	s.mcp.AddTool(mcp.NewTool("cast_topic",
		mcp.WithDescription("Cast a topic to a semantic variant: concept, task, "+
			"reference, or legal. Rewrites the document root, body container, and "+
			"doctype, and updates the map entry."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the topic to cast")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Target variant: concept, task, reference, or legal")),
	), s.castTopic)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all topics that link to the specified topic."),
		mcp.WithString("path", mcp.Required(), mcp.Description("File name of the topic to find backlinks for")),
	), s.getBacklinks)

	// Resource: naming style guide.
	s.mcp.AddResource(
		mcp.NewResource("ditakeeper://style-guide", "Topic Naming Style Guide",
			mcp.WithResourceDescription("Canonical file-naming scheme that all topics and images follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readStyleGuideResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchTopics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readTopic(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listProblems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	problems := s.svc.Problems(ctx)
	if len(problems) == 0 {
		return mcp.NewToolResultText("no problems found"), nil
	}
	out, _ := json.MarshalIndent(problems, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) renameTopics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	renamed, err := s.svc.RenameTopics(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("renamed %d topics", renamed)), nil
}

func (s *Server) renameImages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefix, err := req.RequireString("prefix")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.RenameImages(ctx, prefix); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("images renamed"), nil
}

func (s *Server) castTopic(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.CastTopic(ctx, path, target); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("cast %s to %s", path, target)), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) readStyleGuideResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ditakeeper://style-guide",
			MIMEType: "text/markdown",
			Text:     StyleGuide,
		},
	}, nil
}
