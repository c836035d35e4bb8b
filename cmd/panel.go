package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/ewriter/internal/db"
	"github.com/ziadkadry99/ewriter/internal/geometry"
	"github.com/ziadkadry99/ewriter/internal/kvstore"
	"github.com/ziadkadry99/ewriter/internal/logging"
	"github.com/ziadkadry99/ewriter/internal/page"
	"github.com/ziadkadry99/ewriter/internal/panel"
	"github.com/ziadkadry99/ewriter/internal/tui"
)

var (
	panelURL    string
	panelNested bool
)

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Open a page with the translation sidebar",
	Long: `Connects to the dispatcher as one page and shows the sidebar in the
terminal. Type text and press enter to translate it; the text also serves
as the page selection for "ewriter tabs translate-selection".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}

		// The terminal belongs to the sidebar, so logs go to a file.
		logPath := filepath.Join(cfg.DataDir, "panel.log")
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer logFile.Close()

		lc := logging.DefaultConfig()
		lc.Level = logger.GetLevel()
		lc.Format = "json"
		lc.Out = logFile
		ctx := logging.WithContext(cmd.Context(), logging.New(lc))

		database, err := db.Open(cfg.LocalDBPath())
		if err != nil {
			return fmt.Errorf("opening local database: %w", err)
		}
		defer database.Close()

		doc := panel.Document{URL: panelURL, TopLevel: !panelNested}
		// Stored geometry is validated against this viewport on load.
		vw, vh := tui.TerminalViewport(os.Stdout)
		geo := geometry.NewController(kvstore.NewStore(database).In(kvstore.AreaLocal), vw, vh)
		p := page.New(doc, panel.NewController(doc), geo)

		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		closed := make(chan error, 1)
		go func() {
			closed <- p.Connect(ctx, cfg.DispatcherURL)
		}()

		return tui.Run(ctx, p, closed)
	},
}

func init() {
	panelCmd.Flags().StringVar(&panelURL, "url", "about:blank", "URL reported for this page")
	panelCmd.Flags().BoolVar(&panelNested, "nested", false, "act as a nested frame (no sidebar)")
	rootCmd.AddCommand(panelCmd)
}
