package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mcpt [config]",
		Short:         "mcpt: interactive MCP server probe",
		Long:          "mcpt launches a stdio MCP server, walks it through the initialize / initialized / tools/list / tools/call handshake, and records a full session transcript.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	bindProbeFlags(rootCmd, app)

	rootCmd.AddCommand(
		newVersionCmd(),
		newServersCmd(app),
	)

	return rootCmd
}
