package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/ewriter/internal/config"
	"github.com/ziadkadry99/ewriter/internal/logging"
)

var (
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ewriter",
	Short: "Traditional Chinese to English writing assistant",
	Long: `English writer translates selected Traditional Chinese text into natural
English with Gemini or OpenAI. A dispatcher owns settings and provider
calls; page controllers connect to it and show the result in a
draggable, resizable sidebar.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded

		logger, err = newLogger(cfg)
		if err != nil {
			return err
		}
		cmd.SetContext(logging.WithContext(cmd.Context(), logger))
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".ewriter.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	lc := logging.DefaultConfig()
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return zerolog.Logger{}, err
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	lc.Level = level
	if cfg.Log.Format != "" {
		lc.Format = cfg.Log.Format
	}
	return logging.New(lc), nil
}
