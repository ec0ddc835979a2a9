package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/gridharness/internal/webdriver"
	"github.com/shehryarbajwa/gridharness/pkg/models"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Start and end grid sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Start a browser on the grid and print its session id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			exec, err := newExecutor(cfg)
			if err != nil {
				return err
			}

			sess, err := webdriver.NewClient(cfg, exec).NewSession(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, sess.ID)
			if cdp, ok := sess.Capabilities.String(models.CapCDP); ok {
				fmt.Fprintf(out, "devtools: %s\n", cdp)
			}
			if cfg.BaseURL != "" {
				fmt.Fprintf(out, "start page: %s\n", cfg.BaseURL)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "quit ID",
		Short: "End a grid session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			exec, err := newExecutor(cfg)
			if err != nil {
				return err
			}
			return webdriver.NewClient(cfg, exec).Quit(cmd.Context(), args[0])
		},
	})

	return cmd
}
