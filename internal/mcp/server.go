package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/ewriter/internal/settings"
	"github.com/ziadkadry99/ewriter/internal/translate"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Translator performs one translation and reports failures as errors.
type Translator interface {
	TranslateErr(ctx context.Context, req translate.Request) (string, error)
}

// SettingsReader reads the stored extension settings.
type SettingsReader interface {
	Load(ctx context.Context) (settings.Settings, error)
}

// Server wraps an MCP server that exposes the translator as tools.
type Server struct {
	translator Translator
	settings   SettingsReader
	mcp        *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(translator Translator, st SettingsReader) *Server {
	s := &Server{
		translator: translator,
		settings:   st,
	}

	s.mcp = server.NewMCPServer(
		"ewriter",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(translateTextTool, s.handleTranslateText)
	s.mcp.AddTool(getSettingsTool, s.handleGetSettings)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
