package domain

import (
	"fmt"
	"strings"
)

// LaunchSpec describes how to start a server under test.
type LaunchSpec struct {
	Name    string
	Command string
	Args    []string
	Dir     string
}

func (s LaunchSpec) IsZero() bool {
	return s.Command == ""
}

func (s LaunchSpec) String() string {
	cmd := strings.TrimSpace(s.Command + " " + strings.Join(s.Args, " "))
	if s.Dir == "" {
		return cmd
	}

	return fmt.Sprintf("%s (cwd=%s)", cmd, s.Dir)
}
