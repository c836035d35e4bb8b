package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/ewriter/internal/settings"
	"github.com/ziadkadry99/ewriter/internal/translate"
)

// mockTranslator implements Translator for testing.
type mockTranslator struct {
	last translate.Request
	err  error
}

func (m *mockTranslator) TranslateErr(_ context.Context, req translate.Request) (string, error) {
	m.last = req
	if m.err != nil {
		return "", m.err
	}
	if strings.TrimSpace(req.Text) == "" {
		return "", nil
	}
	return "EN:" + req.Text, nil
}

// mockSettings implements SettingsReader for testing.
type mockSettings struct {
	st  settings.Settings
	err error
}

func (m *mockSettings) Load(_ context.Context) (settings.Settings, error) {
	return m.st, m.err
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("content is %T, want text", result.Content[0])
	}
	return tc.Text
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"translate_text", translateTextTool, "translate_text"},
		{"get_settings", getSettingsTool, "get_settings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}

	required := translateTextTool.InputSchema.Required
	if len(required) != 1 || required[0] != "text" {
		t.Errorf("translate_text required = %v, want [text]", required)
	}
}

func TestNewServer(t *testing.T) {
	tr := &mockTranslator{}
	srv := NewServer(tr, &mockSettings{})

	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
	if srv.translator != tr {
		t.Error("translator not set correctly")
	}
}

func TestHandleTranslateText(t *testing.T) {
	ctx := context.Background()

	t.Run("translates", func(t *testing.T) {
		tr := &mockTranslator{}
		srv := NewServer(tr, &mockSettings{})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"text": "早安", "style": "casual"}

		result, err := srv.handleTranslateText(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		if got := textOf(t, result); got != "EN:早安" {
			t.Errorf("text = %q, want %q", got, "EN:早安")
		}
		if tr.last.Style == nil || *tr.last.Style != settings.StyleCasual {
			t.Errorf("style = %v, want casual", tr.last.Style)
		}
	})

	t.Run("stored style when omitted", func(t *testing.T) {
		tr := &mockTranslator{}
		srv := NewServer(tr, &mockSettings{})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"text": "早安"}

		if _, err := srv.handleTranslateText(ctx, req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.last.Style != nil {
			t.Errorf("style = %v, want nil", *tr.last.Style)
		}
	})

	t.Run("missing text", func(t *testing.T) {
		srv := NewServer(&mockTranslator{}, &mockSettings{})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleTranslateText(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing text")
		}
	})

	t.Run("bad style", func(t *testing.T) {
		srv := NewServer(&mockTranslator{}, &mockSettings{})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"text": "早安", "style": "poetic"}

		result, _ := srv.handleTranslateText(ctx, req)
		if !result.IsError {
			t.Error("expected error for unknown style")
		}
	})

	t.Run("whitespace", func(t *testing.T) {
		srv := NewServer(&mockTranslator{}, &mockSettings{})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"text": "   "}

		result, _ := srv.handleTranslateText(ctx, req)
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		if got := textOf(t, result); got != "Nothing to translate." {
			t.Errorf("text = %q", got)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		tr := &mockTranslator{err: &translate.ConfigurationError{Provider: "Gemini"}}
		srv := NewServer(tr, &mockSettings{})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"text": "早安"}

		result, _ := srv.handleTranslateText(ctx, req)
		if !result.IsError {
			t.Fatal("expected tool error")
		}
		want := "Gemini API Key not configured. Please set it in the extension options."
		if got := textOf(t, result); got != want {
			t.Errorf("text = %q, want %q", got, want)
		}
	})
}

func TestHandleGetSettings(t *testing.T) {
	ctx := context.Background()

	st := settings.Defaults()
	st.GeminiAPIKey = "AIzaSecret1234"
	srv := NewServer(&mockTranslator{}, &mockSettings{st: st})

	result, err := srv.handleGetSettings(ctx, mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := textOf(t, result)
	if strings.Contains(got, "AIzaSecret") {
		t.Errorf("settings leak the API key: %s", got)
	}
	for _, want := range []string{"Provider: Gemini", "Writing style: formal", "Enabled: true", "1234", "OpenAI API key: (not set)"} {
		if !strings.Contains(got, want) {
			t.Errorf("settings missing %q:\n%s", want, got)
		}
	}

	failing := NewServer(&mockTranslator{}, &mockSettings{err: errors.New("disk gone")})
	result, _ = failing.handleGetSettings(ctx, mcp.CallToolRequest{})
	if !result.IsError {
		t.Error("expected error when settings cannot be read")
	}
}
