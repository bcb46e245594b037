// Package report writes a structured run report next to the session log.
// The report is a TOML snapshot of the step outcomes so other tooling can
// consume a run without scraping the transcript.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/mcpt/internal/domain"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	reportFileMode  = 0o600
	reportDirMode   = 0o700
	tempFilePattern = ".report-*.toml.tmp"
	stampLayout     = "20060102-150405"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version   int          `toml:"version"`
	StartedAt time.Time    `toml:"started_at"`
	Server    serverSchema `toml:"server"`
	Complete  bool         `toml:"complete"`
	LogPath   string       `toml:"log_path"`
	Steps     []stepSchema `toml:"steps"`
}

type serverSchema struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args,omitempty"`
	Dir     string   `toml:"dir,omitempty"`
}

type stepSchema struct {
	Name     string `toml:"name"`
	Outcome  string `toml:"outcome"`
	Detail   string `toml:"detail,omitempty"`
	Request  string `toml:"request,omitempty"`
	Response string `toml:"response,omitempty"`
}

// Run is everything a finished session contributes to the report.
type Run struct {
	StartedAt time.Time
	Spec      domain.LaunchSpec
	Results   []domain.StepResult
	Complete  bool
	LogPath   string
}

type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write renders the run to session-<stamp>.toml in the writer's directory
// and returns the report path. The file lands atomically: encode to a temp
// file, then rename into place.
func (w *Writer) Write(run Run) (string, error) {
	if err := os.MkdirAll(w.dir, reportDirMode); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	path := filepath.Join(w.dir, "session-"+run.StartedAt.Format(stampLayout)+".toml")

	data, err := toml.Marshal(toSchema(run))
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	tempFile, err := os.CreateTemp(w.dir, tempFilePattern)
	if err != nil {
		return "", fmt.Errorf("create temp report file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return "", fmt.Errorf("write temp report file: %w", err)
	}

	if err := tempFile.Chmod(reportFileMode); err != nil {
		_ = tempFile.Close()
		return "", fmt.Errorf("chmod temp report file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return "", fmt.Errorf("close temp report file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return "", fmt.Errorf("replace report file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(path, reportFileMode); err != nil {
		return "", fmt.Errorf("chmod report file: %w", err)
	}

	return path, nil
}

func toSchema(run Run) fileSchema {
	file := fileSchema{
		Version:   currentSchemaVersion,
		StartedAt: run.StartedAt,
		Server: serverSchema{
			Command: run.Spec.Command,
			Args:    run.Spec.Args,
			Dir:     run.Spec.Dir,
		},
		Complete: run.Complete,
		LogPath:  run.LogPath,
		Steps:    make([]stepSchema, 0, len(run.Results)),
	}

	for _, result := range run.Results {
		step := stepSchema{
			Name:    result.Name,
			Outcome: string(result.Outcome),
			Detail:  result.Detail,
		}
		if result.Request.Raw != "" {
			step.Request = result.Request.Raw
		}
		if result.Response != nil {
			step.Response = result.Response.Raw
		}
		file.Steps = append(file.Steps, step)
	}

	return file
}
