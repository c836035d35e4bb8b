package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/ewriter/internal/settings"
	"github.com/ziadkadry99/ewriter/internal/translate"
)

// handleTranslateText translates the given text.
func (s *Server) handleTranslateText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: text"), nil
	}

	req := translate.Request{Text: text}
	if raw := request.GetString("style", ""); raw != "" {
		style, err := settings.ParseStyle(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		req.Style = &style
	}

	out, err := s.translator.TranslateErr(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(translate.ResultFromError(err).Error), nil
	}
	if out == "" {
		return mcp.NewToolResultText("Nothing to translate."), nil
	}
	return mcp.NewToolResultText(out), nil
}

// handleGetSettings reports the stored settings with keys masked.
func (s *Server) handleGetSettings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.settings.Load(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read settings: %v", err)), nil
	}
	return mcp.NewToolResultText(formatSettings(st.Masked())), nil
}

func formatSettings(st settings.Settings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Provider: %s\n", st.APIProvider.DisplayName())
	fmt.Fprintf(&b, "Writing style: %s\n", st.WritingStyle)
	fmt.Fprintf(&b, "Enabled: %t\n", st.IsEnabled)
	fmt.Fprintf(&b, "Gemini API key: %s\n", orNone(st.GeminiAPIKey))
	fmt.Fprintf(&b, "OpenAI API key: %s\n", orNone(st.OpenAIAPIKey))
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
