package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/ewriter/internal/hub"
	"github.com/ziadkadry99/ewriter/internal/logging"
	"github.com/ziadkadry99/ewriter/internal/server"
	"github.com/ziadkadry99/ewriter/internal/settings"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dispatcher",
	Long: `Starts the dispatcher: it owns the settings store, calls the translation
providers, and serves page connections on /ws plus the JSON API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.ListenAddr = serveAddr
		}

		database, st, err := openSettings(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		dispatcher := newDispatcher(cfg, st)
		h := hub.New(dispatcher, st, cfg.Shortcut)
		defer h.Close()

		srv := server.New(server.Config{
			Addr:           cfg.ListenAddr,
			AllowedOrigins: cfg.AllowedOrigins,
			AllowAll:       len(cfg.AllowedOrigins) == 0,
		}, logger)

		hub.RegisterWebsocket(srv.Router(), h)
		hub.RegisterRoutes(srv.API(), h)
		settings.RegisterRoutes(srv.API(), st)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down dispatcher...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logging.FromContext(ctx).Warn().Err(err).Msg("shutdown")
			}
		}()

		logger.Info().
			Str("version", Version).
			Str("settings_db", database.Path()).
			Str("shortcut", cfg.Shortcut).
			Msg("starting dispatcher")

		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
	rootCmd.AddCommand(serveCmd)
}
