// Package commands provides the CLI commands for gemchat.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gemchat/gemchat/internal/config"
	"github.com/gemchat/gemchat/internal/store"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	serverURL    string
	settingsPath string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "gemchat",
	Short: "gemchat - streaming chat client for Gemini",
	Long: `gemchat is a terminal chat client backed by the gemchat proxy server.

Run 'gemchat chat' to start an interactive session. Conversations are
stored locally and survive restarts.`,
	Version: Version,
	RunE:    runChat,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Proxy server URL (overrides settings)")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "config", "", "Path to settings file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("gemchat %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadSettings reads user settings and applies command line overrides.
func loadSettings() (config.Settings, error) {
	s, err := config.Load(settingsPath)
	if err != nil {
		return s, err
	}
	if serverURL != "" {
		s.ServerURL = serverURL
	}
	return s, nil
}

// openStore builds the session store for the configured backend. The
// returned closer releases backend resources.
func openStore(ctx context.Context, s config.Settings) (*store.Store, func(), error) {
	if s.Storage == "redis" {
		backend := store.NewRedisBackend(s.RedisAddr)
		if err := backend.Ping(ctx); err != nil {
			backend.Close()
			return nil, nil, fmt.Errorf("redis storage unavailable: %w", err)
		}
		return store.New(backend), func() { backend.Close() }, nil
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directories: %w", err)
	}
	return store.New(store.NewFileBackend(paths.StoragePath())), func() {}, nil
}
