package proc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/bnema/mcpt/internal/domain"
	"github.com/bnema/mcpt/internal/ports"
)

const (
	terminateGrace  = 2 * time.Second
	maxLineBytes    = 1024 * 1024
	lineChanBacklog = 256
)

type Launcher struct {
	clock ports.Clock
}

var _ ports.Launcher = (*Launcher)(nil)

func NewLauncher(clock ports.Clock) *Launcher {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Launcher{clock: clock}
}

// Start spawns the server and begins capturing both output streams.
// A command that cannot be located maps to domain.ErrCommandNotFound so
// the caller can attempt its one fallback.
func (l *Launcher) Start(ctx context.Context, spec domain.LaunchSpec) (ports.ServerProcess, error) {
	if spec.IsZero() {
		return nil, domain.ErrNoServer
	}

	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Dir = spec.Dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("start %q: %w", spec.Command, domain.ErrCommandNotFound)
		}

		return nil, fmt.Errorf("start %q: %w", spec.Command, err)
	}

	p := &Process{
		cmd:     cmd,
		stdin:   stdin,
		clock:   l.clock,
		stdout:  make(chan domain.StreamLine, lineChanBacklog),
		stderr:  make(chan domain.StreamLine, lineChanBacklog),
		done:    make(chan struct{}),
		started: l.clock.Now(),
	}

	p.readers.Add(2)
	go p.capture(stdout, p.stdout)
	go p.capture(stderr, p.stderr)
	go p.wait()

	return p, nil
}

// Process owns the child's three pipes. Both stream channels close at
// end-of-stream; done closes once the process has been reaped.
type Process struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	clock   ports.Clock
	stdout  chan domain.StreamLine
	stderr  chan domain.StreamLine
	done    chan struct{}
	started time.Time
	readers sync.WaitGroup

	writeMu sync.Mutex

	mu       sync.Mutex
	exited   bool
	exitCode int
}

var _ ports.ServerProcess = (*Process)(nil)

func (p *Process) capture(r io.Reader, out chan<- domain.StreamLine) {
	defer p.readers.Done()
	defer close(out)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		text := strings.TrimRight(scanner.Text(), "\r")
		if text == "" {
			continue
		}

		out <- domain.StreamLine{At: p.clock.Now(), Text: text}
	}
}

// wait reaps the child after both pipe readers finish, per os/exec pipe
// ordering rules.
func (p *Process) wait() {
	p.readers.Wait()

	_ = p.cmd.Wait()

	p.mu.Lock()
	p.exited = true
	p.exitCode = -1
	if p.cmd.ProcessState != nil {
		p.exitCode = p.cmd.ProcessState.ExitCode()
	}
	p.mu.Unlock()

	close(p.done)
}

func (p *Process) WriteLine(ctx context.Context, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	exited := p.exited
	p.mu.Unlock()
	if exited {
		return domain.ErrChildExited
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if _, err := io.WriteString(p.stdin, line+"\n"); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPipeClosed, err)
	}

	return nil
}

func (p *Process) StartedAt() time.Time {
	return p.started
}

func (p *Process) Stdout() <-chan domain.StreamLine {
	return p.stdout
}

func (p *Process) Stderr() <-chan domain.StreamLine {
	return p.stderr
}

func (p *Process) Done() <-chan struct{} {
	return p.done
}

func (p *Process) ExitCode() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.exitCode, p.exited
}

// Terminate asks the child to shut down, escalating to a kill after a
// short grace period. Idempotent once the process has exited.
func (p *Process) Terminate() error {
	select {
	case <-p.done:
		return nil
	default:
	}

	_ = p.stdin.Close()

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Raced with exit; nothing left to stop.
		return nil
	}

	go func() {
		select {
		case <-p.done:
		case <-time.After(terminateGrace):
			_ = p.cmd.Process.Kill()
		}
	}()

	return nil
}
