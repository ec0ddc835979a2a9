// Package cli implements the gridharness command-line interface.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/gridharness/internal/config"
	"github.com/shehryarbajwa/gridharness/internal/devtools"
	"github.com/shehryarbajwa/gridharness/internal/logging"
	"github.com/shehryarbajwa/gridharness/internal/webdriver"
	"github.com/shehryarbajwa/gridharness/pkg/models"
)

// Execute runs the Cobra-based CLI entry point.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gridharness",
		Short:         "Browser test harness for local and grid sessions",
		Long:          "gridharness runs a grid node and inspects the downloads and DevTools endpoint of browser sessions.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String("grid", "", "grid URL (overrides GRID_URL)")

	cmd.AddCommand(newNodeCmd())
	cmd.AddCommand(newSessionCmd())
	cmd.AddCommand(newFilesCmd())
	cmd.AddCommand(newDevToolsCmd())
	return cmd
}

// loadConfig reads the environment and applies persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return config.Config{}, err
	}
	if grid, _ := cmd.Flags().GetString("grid"); grid != "" {
		cfg.GridURL = grid
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

// sessionFor describes an existing session: a grid session when a grid is
// configured, otherwise a local browser writing to DOWNLOADS_DIR.
func sessionFor(cfg config.Config, id string) (models.Session, error) {
	if id == "" {
		return models.Session{}, fmt.Errorf("--session is required")
	}
	if !cfg.IsRemote() {
		return webdriver.LocalSession(cfg, id)
	}
	return models.Session{ID: id, RemoteURL: cfg.GridURL}, nil
}

func newExecutor(cfg config.Config) (devtools.CommandExecutor, error) {
	if !cfg.IsRemote() {
		return nil, fmt.Errorf("GRID_URL is required")
	}
	exec, err := devtools.NewHTTPCommandExecutor(cfg.GridURL, timeout(cfg))
	if err != nil {
		return nil, err
	}
	return devtools.NewTracedCommandExecutor(exec, logging.New("webdriver")), nil
}

func timeout(cfg config.Config) time.Duration {
	if cfg.HTTPTimeout == 0 {
		return 30 * time.Second
	}
	return cfg.HTTPTimeout
}
