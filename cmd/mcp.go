package cmd

import (
	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/ewriter/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing translate_text and get_settings to AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, st, err := openSettings(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		logger.Info().Str("settings_db", database.Path()).Msg("ewriter MCP server started on stdio")

		srv := mcpserver.NewServer(newDispatcher(cfg, st), st)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
