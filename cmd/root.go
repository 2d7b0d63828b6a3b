package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/shadowdeck/internal/config"
	"github.com/abhisek/shadowdeck/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "shadowdeck",
	Short: "Japanese shadowing practice",
	Long: "Shadowdeck plays Japanese sentences at your level, casual and polite, " +
		"so you can listen, repeat and record yourself.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "Path to SQLite database file (overrides SHADOWDECK_DB)")
	pf.String("config", "", "Path to config file (default $XDG_CONFIG_HOME/shadowdeck/config.yaml)")
	pf.String("level", "", "JLPT level N5-N1")
	pf.Float64("speed", 0, "Playback speed 0.8-1.2")
	pf.String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(vocabCmd)
	rootCmd.AddCommand(libraryCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads configuration with this command's flags applied.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.Options{File: file, Flags: cmd.Flags()})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// resolveDBPath returns the configured database path (--db flag, then
// SHADOWDECK_DB, then the config file), or the default XDG path.
func resolveDBPath(cfg *config.Config) (string, error) {
	if cfg.DB != "" {
		return cfg.DB, store.EnsureDir(cfg.DB)
	}
	return store.DefaultDBPath()
}

// openStore loads config and opens the database for the one-shot
// subcommands that need nothing else.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}
