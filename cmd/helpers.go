package cmd

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/ewriter/internal/config"
	"github.com/ziadkadry99/ewriter/internal/db"
	"github.com/ziadkadry99/ewriter/internal/kvstore"
	"github.com/ziadkadry99/ewriter/internal/settings"
	"github.com/ziadkadry99/ewriter/internal/translate"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `ewriter init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// openSettings opens the synced settings database.
func openSettings(cfg *config.Config) (*db.DB, *settings.Store, error) {
	database, err := db.Open(cfg.SettingsDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening settings database: %w", err)
	}
	return database, settings.NewStore(kvstore.NewStore(database)), nil
}

// newDispatcher builds the translation dispatcher over the settings store.
func newDispatcher(cfg *config.Config, st *settings.Store) *translate.Dispatcher {
	return translate.NewDispatcher(st, translate.ConfiguredFactory(cfg))
}

// apiBaseURL is the dispatcher's HTTP address, from --server or the config.
func apiBaseURL(cfg *config.Config, override string) string {
	base := override
	if base == "" {
		base = cfg.ListenAddr
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return strings.TrimRight(base, "/")
}
