package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/bnema/mcpt/internal/domain"
	"github.com/bnema/mcpt/internal/ports"
)

const responseBacklog = 64

// syncWriter serializes pump and coordinator writes onto the shared
// console writer.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.w.Write(p)
}

// SessionConfig carries everything a run needs. Output is the operator
// console; Echo controls whether captured lines are mirrored there live
// (they are buffered and logged either way).
type SessionConfig struct {
	Launcher       ports.Launcher
	Log            ports.SessionLog
	Clock          ports.Clock
	Output         io.Writer
	BufferCapacity int
	Echo           bool
}

// Session is the explicit run object: one child process, its two stream
// buffers, the session log, and the ordered step history. All mutation
// is append-only.
type Session struct {
	cfg  SessionConfig
	proc ports.ServerProcess
	spec domain.LaunchSpec

	stdoutBuf *domain.StreamBuffer
	stderrBuf *domain.StreamBuffer
	responses chan domain.Message

	pumps sync.WaitGroup

	mu      sync.Mutex
	history []domain.StepResult
}

// StartSession spawns the server and begins draining both output
// streams. When the configured command cannot be located it retries
// exactly once with the fallback spec before giving up with
// domain.ErrStartup.
func StartSession(ctx context.Context, cfg SessionConfig, spec, fallback domain.LaunchSpec) (*Session, error) {
	if cfg.Clock == nil {
		cfg.Clock = ports.SystemClock{}
	}
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}
	cfg.Output = &syncWriter{w: cfg.Output}

	s := &Session{
		cfg:       cfg,
		stdoutBuf: domain.NewStreamBuffer(cfg.BufferCapacity),
		stderrBuf: domain.NewStreamBuffer(cfg.BufferCapacity),
		responses: make(chan domain.Message, responseBacklog),
	}

	s.PrintAndLog(fmt.Sprintf("[%s] Starting server: %s", s.Timestamp(), spec))

	proc, err := cfg.Launcher.Start(ctx, spec)
	if errors.Is(err, domain.ErrCommandNotFound) && !fallback.IsZero() {
		s.PrintAndLog(fmt.Sprintf("[%s] Command not found: %s; falling back to: %s", s.Timestamp(), spec.Command, fallback))

		proc, err = cfg.Launcher.Start(ctx, fallback)
		if err != nil {
			return nil, fmt.Errorf("fallback launch %q: %w", fallback.Command, errors.Join(domain.ErrStartup, err))
		}
		spec = fallback
	} else if err != nil {
		return nil, fmt.Errorf("launch %q: %w", spec.Command, err)
	}

	s.proc = proc
	s.spec = spec

	s.pumps.Add(2)
	go s.pumpStdout()
	go s.pumpStderr()

	return s, nil
}

// pumpStdout drains the protocol stream: every line is buffered,
// echoed, logged, and — when it classifies as a response frame —
// forwarded to the waiting stepper. The forward never blocks the pump.
func (s *Session) pumpStdout() {
	defer s.pumps.Done()

	for line := range s.proc.Stdout() {
		s.stdoutBuf.Append(line)
		s.echo(fmt.Sprintf("[%s] <- STDOUT: %s", line.At.Format(timeFormat), line.Text))

		msg, ok := domain.ClassifyLine(line.Text, line.At)
		if !ok || msg.Direction != domain.DirectionResponse {
			continue
		}

		select {
		case s.responses <- msg:
		default:
			s.echo(fmt.Sprintf("[%s] dropped response frame id=%s (backlog full)", line.At.Format(timeFormat), msg.ID))
		}
	}
}

func (s *Session) pumpStderr() {
	defer s.pumps.Done()

	for line := range s.proc.Stderr() {
		s.stderrBuf.Append(line)
		s.echo(fmt.Sprintf("[%s] !  STDERR: %s", line.At.Format(timeFormat), line.Text))
	}
}

const timeFormat = "15:04:05.000"

func (s *Session) Timestamp() string {
	return s.cfg.Clock.Now().Format(timeFormat)
}

// PrintAndLog writes a line to the operator console and to the session
// log (the log strips any color codes itself).
func (s *Session) PrintAndLog(line string) {
	fmt.Fprintln(s.cfg.Output, line)
	_ = s.cfg.Log.Append(line)
}

// echo is PrintAndLog for captured stream lines, honoring quiet mode.
func (s *Session) echo(line string) {
	if s.cfg.Echo {
		fmt.Fprintln(s.cfg.Output, line)
	}
	_ = s.cfg.Log.Append(line)
}

func (s *Session) LogOnly(line string) {
	_ = s.cfg.Log.Append(line)
}

// Output is the serialized console writer. Anything printing alongside
// the running pumps must go through it.
func (s *Session) Output() io.Writer {
	return s.cfg.Output
}

func (s *Session) LogPath() string {
	return s.cfg.Log.Path()
}

func (s *Session) Spec() domain.LaunchSpec {
	return s.spec
}

func (s *Session) Process() ports.ServerProcess {
	return s.proc
}

// Alive reports whether the child has not yet exited.
func (s *Session) Alive() bool {
	select {
	case <-s.proc.Done():
		return false
	default:
		return true
	}
}

func (s *Session) Record(result domain.StepResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, result)
}

// History returns the ordered step results recorded so far.
func (s *Session) History() []domain.StepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.StepResult, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) StdoutTail(n int) []domain.StreamLine {
	return s.stdoutBuf.Tail(n)
}

func (s *Session) StderrTail(n int) []domain.StreamLine {
	return s.stderrBuf.Tail(n)
}

// Shutdown terminates the child, waits for both streams to drain, and
// closes the session log. Safe to call more than once.
func (s *Session) Shutdown() error {
	termErr := s.proc.Terminate()

	<-s.proc.Done()
	s.pumps.Wait()

	if code, exited := s.proc.ExitCode(); exited {
		s.LogOnly(fmt.Sprintf("[%s] Server exited with code %d", s.Timestamp(), code))
	}

	closeErr := s.cfg.Log.Close()
	return errors.Join(termErr, closeErr)
}
