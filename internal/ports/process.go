package ports

import (
	"context"
	"time"

	"github.com/bnema/mcpt/internal/domain"
)

type Launcher interface {
	Start(ctx context.Context, spec domain.LaunchSpec) (ServerProcess, error)
}

// ServerProcess is a spawned server under test. Stdout and Stderr carry
// timestamped lines for the process's whole lifetime and are closed at
// end-of-stream. Done is closed when the process has exited, which also
// unblocks pending writes and waits.
type ServerProcess interface {
	WriteLine(ctx context.Context, line string) error
	StartedAt() time.Time
	Stdout() <-chan domain.StreamLine
	Stderr() <-chan domain.StreamLine
	Done() <-chan struct{}
	ExitCode() (int, bool)
	Terminate() error
}
