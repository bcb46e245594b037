package domain

import "errors"

var (
	ErrCommandNotFound = errors.New("launch command not found")
	ErrStartup         = errors.New("server failed to start")
	ErrPipeClosed      = errors.New("server stdin closed")
	ErrChildExited     = errors.New("server process exited")
	ErrNoServer        = errors.New("no server configured")
)
