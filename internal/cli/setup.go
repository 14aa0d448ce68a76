package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medication-net-benefit/internal/setup"
)

func setupCmd() *cobra.Command {
	var clientConfig string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the MCP server with a desktop assistant",
	}
	cmd.PersistentFlags().StringVar(&clientConfig, "client-config", "", "client config file (default: platform location of claude_desktop_config.json)")

	var opts setup.Options
	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Add or update the server entry in the client config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigPath = clientConfig
			path, err := setup.Register(opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Registered %s in %s\n", setup.ServerName, path)
			fmt.Fprintln(out, "Restart the client to load the new configuration.")
			return nil
		},
	}
	registerCmd.Flags().StringVar(&opts.BinaryPath, "binary", "", "path to the netbenefit binary (default: search PATH)")
	registerCmd.Flags().StringVar(&opts.DataDir, "data-dir", "", "data directory for feedback and exports")
	cmd.AddCommand(registerCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := setup.GetStatus(clientConfig)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), status)
		},
	})

	return cmd
}
