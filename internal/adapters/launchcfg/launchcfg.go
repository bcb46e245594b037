package launchcfg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bnema/mcpt/internal/domain"
)

const (
	localConfigFile = "mcp.json"
	homeConfigDir   = ".cursor"

	fallbackEntryScript = "main.py"
	fallbackInterpreter = "python"
)

type serverSchema struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// fileSchema accepts either a flat {command,args} object or a
// Cursor-style collection keyed by server name. Server names are
// case-significant, which is why this is plain encoding/json rather
// than a viper unmarshal.
type fileSchema struct {
	Name       string                  `json:"name"`
	Command    string                  `json:"command"`
	Args       []string                `json:"args"`
	MCPServers map[string]serverSchema `json:"mcpServers"`
	Servers    map[string]serverSchema `json:"servers"`
}

// ResolvePath picks the launch config: the explicit CLI path when
// given, then ./mcp.json, then ~/.cursor/mcp.json.
func ResolvePath(explicit, workingDir string) (string, bool) {
	if explicit != "" {
		return explicit, true
	}

	local := filepath.Join(workingDir, localConfigFile)
	if _, err := os.Stat(local); err == nil {
		return local, true
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	home := filepath.Join(homeDir, homeConfigDir, localConfigFile)
	if _, err := os.Stat(home); err == nil {
		return home, true
	}

	return "", false
}

// Load reads every server entry from the config file, sorted by name
// for deterministic selection. Entries without a command are skipped.
func Load(path, workingDir string) ([]domain.LaunchSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read launch config: %w", err)
	}

	var file fileSchema
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse launch config %s: %w", path, err)
	}

	var specs []domain.LaunchSpec

	servers := file.MCPServers
	if len(servers) == 0 {
		servers = file.Servers
	}

	switch {
	case len(servers) > 0:
		names := make([]string, 0, len(servers))
		for name := range servers {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			entry := servers[name]
			if entry.Command == "" {
				continue
			}
			specs = append(specs, specFromEntry(name, entry.Command, entry.Args, workingDir))
		}
	case file.Command != "":
		name := file.Name
		if name == "" {
			name = "default"
		}
		specs = append(specs, specFromEntry(name, file.Command, file.Args, workingDir))
	}

	if len(specs) == 0 {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrNoServer)
	}

	return specs, nil
}

// Select returns the named server, or the first one when name is empty.
func Select(specs []domain.LaunchSpec, name string) (domain.LaunchSpec, error) {
	if len(specs) == 0 {
		return domain.LaunchSpec{}, domain.ErrNoServer
	}
	if name == "" {
		return specs[0], nil
	}

	for _, spec := range specs {
		if spec.Name == name {
			return spec, nil
		}
	}

	return domain.LaunchSpec{}, fmt.Errorf("server %q: %w", name, domain.ErrNoServer)
}

// DefaultSpec is the launch used when no config can be found.
func DefaultSpec(workingDir string) domain.LaunchSpec {
	return domain.LaunchSpec{
		Name:    "fallback",
		Command: "uv",
		Args:    []string{"run", fallbackEntryScript},
		Dir:     workingDir,
	}
}

// InterpreterFallback builds the one-shot retry spec used when the
// configured command cannot be located: the bare interpreter running
// the entry script in the working directory.
func InterpreterFallback(spec domain.LaunchSpec, workingDir string) domain.LaunchSpec {
	entry := fallbackEntryScript
	for _, arg := range spec.Args {
		if strings.HasSuffix(arg, ".py") {
			entry = filepath.Base(arg)
			break
		}
	}

	dir := spec.Dir
	if dir == "" {
		dir = workingDir
	}

	return domain.LaunchSpec{
		Name:    spec.Name,
		Command: fallbackInterpreter,
		Args:    []string{entry},
		Dir:     dir,
	}
}

func specFromEntry(name, command string, args []string, workingDir string) domain.LaunchSpec {
	dir := dirFromArgs(args)
	if dir == "" {
		dir = workingDir
	}

	return domain.LaunchSpec{Name: name, Command: command, Args: args, Dir: dir}
}

// dirFromArgs honors a `--directory <path>` pair in the server args.
func dirFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "--directory" && i+1 < len(args) {
			return args[i+1]
		}
	}

	return ""
}
