package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = "probe"
	configType = "toml"
	configDir  = "mcpt"
	envPrefix  = "MCPT"
)

// Settings are the harness knobs: per-step timeouts, ring-buffer
// sizing, preview truncation, and the scripted tool call.
type Settings struct {
	InitializeTimeout time.Duration
	RequestTimeout    time.Duration
	CallTimeout       time.Duration
	ExtendTimeout     time.Duration

	BufferCapacity int
	TailLines      int
	PreviewLimit   int

	ToolName  string
	ToolQuery string
	ToolLimit int
}

// Load resolves probe.toml from the working directory, then
// ~/.config/mcpt. Every key has a default and an MCPT_* env override,
// so a missing file is not an error.
func Load(cfg *viper.Viper, workingDir string) (Settings, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(workingDir)
	if homeDir, err := os.UserHomeDir(); err == nil {
		cfg.AddConfigPath(filepath.Join(homeDir, ".config", configDir))
	}

	cfg.SetDefault("timeouts.initialize_seconds", 15)
	cfg.SetDefault("timeouts.request_seconds", 10)
	cfg.SetDefault("timeouts.call_seconds", 30)
	cfg.SetDefault("timeouts.extend_seconds", 30)
	cfg.SetDefault("buffers.capacity", 30)
	cfg.SetDefault("buffers.tail", 30)
	cfg.SetDefault("preview.limit", 200)
	cfg.SetDefault("tool.name", "search_images_tool")
	cfg.SetDefault("tool.query", "test")
	cfg.SetDefault("tool.limit", 2)

	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Settings{}, fmt.Errorf("read probe settings: %w", err)
		}
	}

	return Settings{
		InitializeTimeout: secondsOrDefault(cfg.GetInt("timeouts.initialize_seconds"), 15),
		RequestTimeout:    secondsOrDefault(cfg.GetInt("timeouts.request_seconds"), 10),
		CallTimeout:       secondsOrDefault(cfg.GetInt("timeouts.call_seconds"), 30),
		ExtendTimeout:     secondsOrDefault(cfg.GetInt("timeouts.extend_seconds"), 30),
		BufferCapacity:    positiveOrDefault(cfg.GetInt("buffers.capacity"), 30),
		TailLines:         positiveOrDefault(cfg.GetInt("buffers.tail"), 30),
		PreviewLimit:      positiveOrDefault(cfg.GetInt("preview.limit"), 200),
		ToolName:          cfg.GetString("tool.name"),
		ToolQuery:         cfg.GetString("tool.query"),
		ToolLimit:         positiveOrDefault(cfg.GetInt("tool.limit"), 2),
	}, nil
}

func secondsOrDefault(value, fallback int) time.Duration {
	return time.Duration(positiveOrDefault(value, fallback)) * time.Second
}

func positiveOrDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}

	return value
}
