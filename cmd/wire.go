package cmd

import (
	"fmt"
	"os"

	procadapter "github.com/bnema/mcpt/internal/adapters/proc"
	"github.com/bnema/mcpt/internal/adapters/render/summary"
	reportadapter "github.com/bnema/mcpt/internal/adapters/report"
	"github.com/bnema/mcpt/internal/adapters/settings"
	"github.com/bnema/mcpt/internal/domain"
	"github.com/bnema/mcpt/internal/ports"
	"github.com/spf13/viper"
)

type app struct {
	launcher        ports.Launcher
	clock           ports.Clock
	settings        settings.Settings
	workingDir      string
	logDir          string
	summaryRenderer func([]domain.StepResult, summary.RenderOptions) (string, error)
	reportWriter    *reportadapter.Writer
}

func wireApp() (*app, error) {
	workingDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	cfg, err := settings.Load(viper.New(), workingDir)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	clock := ports.SystemClock{}
	logDir := envOrDefault("MCPT_LOG_DIR", workingDir)

	return &app{
		launcher:        procadapter.NewLauncher(clock),
		clock:           clock,
		settings:        cfg,
		workingDir:      workingDir,
		logDir:          logDir,
		summaryRenderer: summary.Render,
		reportWriter:    reportadapter.NewWriter(logDir),
	}, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
