package application

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/mcpt/internal/domain"
	"github.com/bnema/mcpt/internal/ports"
)

// syncBuffer is a console buffer safe to read while the stream pumps
// are still writing to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fakeProcess is a scriptable ports.ServerProcess. The script callback
// runs for every written line, typically emitting a canned response.
type fakeProcess struct {
	stdout    chan domain.StreamLine
	stderr    chan domain.StreamLine
	done      chan struct{}
	startedAt time.Time

	script func(line string)

	mu       sync.Mutex
	writes   []string
	writeErr error
	exited   bool
	exitCode int

	closeOnce sync.Once
}

var _ ports.ServerProcess = (*fakeProcess)(nil)

func newFakeProcess() *fakeProcess {
	return &fakeProcess{
		stdout:    make(chan domain.StreamLine, 64),
		stderr:    make(chan domain.StreamLine, 64),
		done:      make(chan struct{}),
		startedAt: time.Now(),
	}
}

func (f *fakeProcess) WriteLine(_ context.Context, line string) error {
	f.mu.Lock()
	if f.exited {
		f.mu.Unlock()
		return domain.ErrChildExited
	}
	if f.writeErr != nil {
		err := f.writeErr
		f.mu.Unlock()
		return err
	}
	f.writes = append(f.writes, line)
	script := f.script
	f.mu.Unlock()

	if script != nil {
		script(line)
	}
	return nil
}

func (f *fakeProcess) emitStdout(text string) {
	f.stdout <- domain.StreamLine{At: time.Now(), Text: text}
}

func (f *fakeProcess) emitStderr(text string) {
	f.stderr <- domain.StreamLine{At: time.Now(), Text: text}
}

func (f *fakeProcess) exit(code int) {
	f.mu.Lock()
	f.exited = true
	f.exitCode = code
	f.mu.Unlock()

	f.closeOnce.Do(func() {
		close(f.stdout)
		close(f.stderr)
		close(f.done)
	})
}

func (f *fakeProcess) StartedAt() time.Time             { return f.startedAt }
func (f *fakeProcess) Stdout() <-chan domain.StreamLine { return f.stdout }
func (f *fakeProcess) Stderr() <-chan domain.StreamLine { return f.stderr }
func (f *fakeProcess) Done() <-chan struct{}            { return f.done }

func (f *fakeProcess) ExitCode() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exitCode, f.exited
}

func (f *fakeProcess) Terminate() error {
	f.exit(-1)
	return nil
}

func (f *fakeProcess) writtenLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.writes))
	copy(out, f.writes)
	return out
}

type fakeLauncher struct {
	mu       sync.Mutex
	procs    map[string]*fakeProcess
	notFound map[string]bool
	starts   []domain.LaunchSpec
}

var _ ports.Launcher = (*fakeLauncher)(nil)

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{
		procs:    map[string]*fakeProcess{},
		notFound: map[string]bool{},
	}
}

func (l *fakeLauncher) Start(_ context.Context, spec domain.LaunchSpec) (ports.ServerProcess, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.starts = append(l.starts, spec)

	if l.notFound[spec.Command] {
		return nil, fmt.Errorf("start %q: %w", spec.Command, domain.ErrCommandNotFound)
	}

	proc, ok := l.procs[spec.Command]
	if !ok {
		proc = newFakeProcess()
		l.procs[spec.Command] = proc
	}
	return proc, nil
}

func (l *fakeLauncher) startedCommands() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, 0, len(l.starts))
	for _, spec := range l.starts {
		out = append(out, spec.Command)
	}
	return out
}

// memLog mimics the file log, including its ANSI stripping.
type memLog struct {
	mu     sync.Mutex
	lines  []string
	closed bool
}

var _ ports.SessionLog = (*memLog)(nil)

func (m *memLog) Append(line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("append after close")
	}
	m.lines = append(m.lines, domain.StripANSI(line))
	return nil
}

func (m *memLog) Path() string { return "/tmp/mcpt-session-test.txt" }

func (m *memLog) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memLog) contents() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out string
	for _, line := range m.lines {
		out += line + "\n"
	}
	return out
}

func (m *memLog) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
