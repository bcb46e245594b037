package cmd

import (
	"fmt"

	"github.com/bnema/mcpt/internal/adapters/launchcfg"
	"github.com/bnema/mcpt/internal/domain"
	"github.com/spf13/cobra"
)

func newServersCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "servers [config]",
		Short: "List servers defined in an mcp.json config",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			explicit := ""
			if len(args) == 1 {
				explicit = args[0]
			}

			path, found := launchcfg.ResolvePath(explicit, app.workingDir)
			if !found {
				return fmt.Errorf("no mcp.json found: %w", domain.ErrNoServer)
			}

			specs, err := launchcfg.Load(path, app.workingDir)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Servers in %s:\n", path)
			for _, spec := range specs {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", spec.Name, spec.String())
			}

			return nil
		},
	}
}
