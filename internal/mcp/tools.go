package mcp

import "github.com/mark3labs/mcp-go/mcp"

// translateTextTool defines the translate_text MCP tool.
var translateTextTool = mcp.NewTool("translate_text",
	mcp.WithDescription("Translate Traditional Chinese text into natural English using the configured provider."),
	mcp.WithString("text",
		mcp.Required(),
		mcp.Description("Traditional Chinese text to translate"),
	),
	mcp.WithString("style",
		mcp.Description("Writing style of the translation (defaults to the stored preference)"),
		mcp.Enum("formal", "casual"),
	),
)

// getSettingsTool defines the get_settings MCP tool.
var getSettingsTool = mcp.NewTool("get_settings",
	mcp.WithDescription("Show the active provider, writing style and whether translation is enabled. API keys are masked."),
)
