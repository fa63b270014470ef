// Package mcp exposes route discovery and generation as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/afero"
	"github.com/watanabe-1/rpc4next-sub000/internal/version"
	"github.com/watanabe-1/rpc4next-sub000/pkg/config"
	"github.com/watanabe-1/rpc4next-sub000/pkg/openapi"
	"github.com/watanabe-1/rpc4next-sub000/pkg/scanner"
)

// Server is an MCP server rooted at a project directory.
type Server struct {
	workdir   string
	config    *config.Config
	fs        afero.Fs
	mcpServer *server.MCPServer
}

// NewServer creates a Server for workdir using cfg for default paths.
// A nil cfg uses config.Default().
func NewServer(workdir string, cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		workdir: workdir,
		config:  cfg,
		fs:      afero.NewOsFs(),
		mcpServer: server.NewMCPServer(
			"rpc4next",
			version.GetVersion(),
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	return s
}

// Serve runs the server on stdin/stdout until the client disconnects.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("rpc4next_routes",
		mcp.WithDescription("List every endpoint of the Next.js app directory with its HTTP handlers, query types and route params"),
		mcp.WithString("base_dir", mcp.Description("App directory relative to the project (default from rpc4next.yaml)")),
	), s.handleRoutes)

	s.mcpServer.AddTool(mcp.NewTool("rpc4next_generate",
		mcp.WithDescription("Regenerate the TypeScript path declaration and params files"),
		mcp.WithString("base_dir", mcp.Description("App directory relative to the project")),
		mcp.WithString("output", mcp.Description("Generated declaration file relative to the project")),
	), s.handleGenerate)

	s.mcpServer.AddTool(mcp.NewTool("rpc4next_openapi",
		mcp.WithDescription("Return an OpenAPI document describing the route.ts handlers"),
		mcp.WithString("base_dir", mcp.Description("App directory relative to the project")),
		mcp.WithString("format", mcp.Description("Document format"), mcp.Enum("json", "yaml")),
	), s.handleOpenAPI)
}

// resolve makes p relative to the working directory unless absolute.
func (s *Server) resolve(p string) string {
	if filepath.IsAbs(p) || s.workdir == "" {
		return p
	}
	return filepath.Join(s.workdir, p)
}

func (s *Server) scan(req mcp.CallToolRequest) (*scanner.ScanResult, error) {
	baseDir := s.resolve(req.GetString("base_dir", s.config.BaseDir))
	sc := scanner.NewScanner(baseDir, s.resolve(s.config.Output), scanner.WithFs(s.fs))
	return sc.Scan()
}

func (s *Server) handleRoutes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.scan(req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to scan routes: %v", err)), nil
	}
	endpoints := scanner.Endpoints(result.Schema)
	if endpoints == nil {
		endpoints = []scanner.Endpoint{}
	}
	return jsonResult(map[string]any{
		"success": true,
		"routes":  endpoints,
		"total":   len(endpoints),
	})
}

func (s *Server) handleGenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gen := scanner.NewGenerator(scanner.GeneratorConfig{
		AppDir:     s.resolve(req.GetString("base_dir", s.config.BaseDir)),
		OutputPath: s.resolve(req.GetString("output", s.config.Output)),
		ParamsFile: s.config.ParamsFile,
		Fs:         s.fs,
	})
	result, err := gen.Generate()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
	}
	files := result.GeneratedFiles
	if files == nil {
		files = []string{}
	}
	return jsonResult(map[string]any{
		"success":   true,
		"output":    gen.Scanner().OutputPath(),
		"files":     files,
		"endpoints": len(scanner.Endpoints(result.ScanResult.Schema)),
	})
}

func (s *Server) handleOpenAPI(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.scan(req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to scan routes: %v", err)), nil
	}
	doc := openapi.Build(scanner.Endpoints(result.Schema), openapi.Config{})
	data, err := openapi.Marshal(doc, req.GetString("format", "json"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
