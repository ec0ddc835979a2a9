package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/gridharness/internal/downloads"
	"github.com/shehryarbajwa/gridharness/internal/transport"
)

func newFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Inspect the download directory of a browser session",
	}

	cmd.PersistentFlags().String("session", "", "session id")
	cmd.PersistentFlags().Bool("deprecated", false, "use the /downloads/{id}/ grid protocol")

	cmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List downloaded files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := directoryFor(cmd)
			if err != nil {
				return err
			}
			names, err := dir.ListFiles(cmd.Context())
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cat NAME",
		Short: "Print the content of a downloaded file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := directoryFor(cmd)
			if err != nil {
				return err
			}
			rc, err := dir.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer rc.Close()
			_, err = io.Copy(cmd.OutOrStdout(), rc)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm NAME",
		Short: "Delete one downloaded file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := directoryFor(cmd)
			if err != nil {
				return err
			}
			return dir.DeleteFile(cmd.Context(), args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Delete every downloaded file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := directoryFor(cmd)
			if err != nil {
				return err
			}
			return dir.DeleteFiles(cmd.Context())
		},
	})

	return cmd
}

func directoryFor(cmd *cobra.Command) (downloads.Directory, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	id, _ := cmd.Flags().GetString("session")
	sess, err := sessionFor(cfg, id)
	if err != nil {
		return nil, err
	}
	deprecated, _ := cmd.Flags().GetBool("deprecated")
	return downloads.Of(sess, deprecated || cfg.UseDeprecatedEndpoints, transport.NewHTTP(timeout(cfg)))
}
