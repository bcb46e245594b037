package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/mcpt/internal/adapters/launchcfg"
	"github.com/bnema/mcpt/internal/adapters/logfile"
	"github.com/bnema/mcpt/internal/adapters/render/summary"
	reportadapter "github.com/bnema/mcpt/internal/adapters/report"
	"github.com/bnema/mcpt/internal/application"
	"github.com/bnema/mcpt/internal/domain"
	"github.com/bnema/mcpt/internal/version"
	"github.com/spf13/cobra"
)

type probeFlags struct {
	serverName string
	auto       bool
	quiet      bool
	toolName   string
	toolQuery  string
	toolLimit  int
}

func bindProbeFlags(cmd *cobra.Command, app *app) {
	flags := &probeFlags{}

	cmd.Flags().StringVar(&flags.serverName, "server", "", "Server name from the config file (default: first entry)")
	cmd.Flags().BoolVar(&flags.auto, "auto", false, "Run all steps without prompting")
	cmd.Flags().BoolVar(&flags.quiet, "quiet", false, "Log captured output without echoing it to the terminal")
	cmd.Flags().StringVar(&flags.toolName, "tool", app.settings.ToolName, "Tool to invoke in the final step")
	cmd.Flags().StringVar(&flags.toolQuery, "query", app.settings.ToolQuery, "Query argument for the tool call")
	cmd.Flags().IntVar(&flags.toolLimit, "limit", app.settings.ToolLimit, "Limit argument for the tool call")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		explicit := ""
		if len(args) == 1 {
			explicit = args[0]
		}
		return runProbe(cmd, app, explicit, flags)
	}
}

func runProbe(cmd *cobra.Command, app *app, explicit string, flags *probeFlags) error {
	spec, err := resolveSpec(app, explicit, flags.serverName)
	if err != nil {
		return err
	}

	startedAt := app.clock.Now()

	log, err := logfile.New(app.logDir, startedAt)
	if err != nil {
		return fmt.Errorf("open session log: %w", err)
	}

	session, err := application.StartSession(cmd.Context(), application.SessionConfig{
		Launcher:       app.launcher,
		Log:            log,
		Clock:          app.clock,
		Output:         cmd.OutOrStdout(),
		BufferCapacity: app.settings.BufferCapacity,
		Echo:           !flags.quiet && !flags.auto,
	}, spec, launchcfg.InterpreterFallback(spec, app.workingDir))
	if err != nil {
		_ = log.Close()
		return err
	}

	stepper := application.NewStepper(session, application.StepperOptions{
		InitializeTimeout: app.settings.InitializeTimeout,
		RequestTimeout:    app.settings.RequestTimeout,
		CallTimeout:       app.settings.CallTimeout,
		ExtendTimeout:     app.settings.ExtendTimeout,
		PreviewLimit:      app.settings.PreviewLimit,
		ClientName:        "mcpt",
		ClientVersion:     version.Version,
	})
	stepper.SetStatusFormatter(summary.OutcomeToken)

	controller := application.NewController(session, cmd.InOrStdin(), session.Output(), flags.auto, app.settings.TailLines)
	stepper.SetExtendFunc(controller.ExtendWait)

	runner := application.NewRunner(session, stepper, controller, application.ToolCall{
		Name: flags.toolName,
		Arguments: map[string]any{
			"query": flags.toolQuery,
			"limit": flags.toolLimit,
		},
	})
	if flags.auto {
		runner.SetWaitIndicator(func(ctx context.Context, label string, step func(context.Context)) error {
			return runStepSpinner(ctx, session.Output(), label, step)
		})
	}

	results, complete := runner.Run(cmd.Context())

	rendered, renderErr := app.summaryRenderer(results, summary.RenderOptions{
		LogPath:  session.LogPath(),
		Complete: complete,
	})
	if renderErr == nil {
		fmt.Fprintln(session.Output(), rendered)
		session.LogOnly(rendered)
	}

	shutdownErr := session.Shutdown()

	reportPath, reportErr := app.reportWriter.Write(reportadapter.Run{
		StartedAt: startedAt,
		Spec:      spec,
		Results:   results,
		Complete:  complete,
		LogPath:   session.LogPath(),
	})
	if reportErr == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Run report: %s\n", reportPath)
	}

	return errors.Join(shutdownErr, renderErr, reportErr)
}

// resolveSpec picks the server launch: explicit config path, then
// ./mcp.json, then ~/.cursor/mcp.json, then the uv fallback.
func resolveSpec(app *app, explicit, serverName string) (domain.LaunchSpec, error) {
	path, found := launchcfg.ResolvePath(explicit, app.workingDir)
	if !found {
		if serverName != "" {
			return domain.LaunchSpec{}, fmt.Errorf("--server %q: no config file found: %w", serverName, domain.ErrNoServer)
		}
		return launchcfg.DefaultSpec(app.workingDir), nil
	}

	specs, err := launchcfg.Load(path, app.workingDir)
	if err != nil {
		return domain.LaunchSpec{}, err
	}

	return launchcfg.Select(specs, serverName)
}
