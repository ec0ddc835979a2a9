package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/gridharness/internal/devtools"
	"github.com/shehryarbajwa/gridharness/internal/logging"
	"github.com/shehryarbajwa/gridharness/internal/webdriver"
)

func newDevToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devtools",
		Short: "Open the DevTools endpoint of a grid session",
	}
	cmd.PersistentFlags().String("session", "", "session id")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the browser product and matched protocol version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := connectDevTools(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			product, err := sess.BrowserVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (protocol %d)\n", product, sess.Domains.Major)
			return nil
		},
	})

	intercept := &cobra.Command{
		Use:   "intercept PATTERN",
		Short: "Answer requests matching PATTERN with fixed HTML content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, _ := cmd.Flags().GetString("content")
			hold, _ := cmd.Flags().GetDuration("for")

			sess, err := connectDevTools(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			stop, err := sess.Intercept(cmd.Context(), args[0], content)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "intercepting %s for %s\n", args[0], hold)

			select {
			case <-time.After(hold):
			case <-cmd.Context().Done():
			}
			return stop()
		},
	}
	intercept.Flags().String("content", "content", "HTML body content")
	intercept.Flags().Duration("for", 30*time.Second, "how long to keep intercepting")
	cmd.AddCommand(intercept)

	return cmd
}

func connectDevTools(cmd *cobra.Command) (*devtools.Session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	id, _ := cmd.Flags().GetString("session")
	if id == "" {
		return nil, fmt.Errorf("--session is required")
	}

	exec, err := newExecutor(cfg)
	if err != nil {
		return nil, err
	}
	client := webdriver.NewClient(cfg, exec)
	sess, err := client.Attach(cmd.Context(), id)
	if err != nil {
		return nil, err
	}

	logger := logging.New("devtools")
	logger.Debug("attached", zap.String("session", id))
	return devtools.NewBridge(logger).Connect(cmd.Context(), sess.Capabilities, client.Executor())
}
