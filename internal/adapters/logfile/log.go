package logfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/mcpt/internal/domain"
	"github.com/bnema/mcpt/internal/ports"
)

const logFileMode = 0o600

var ErrClosed = errors.New("session log closed")

// Log is the append-only transcript of one run. Everything written
// through it has ANSI escapes stripped first.
type Log struct {
	path string

	mu     sync.Mutex
	file   *os.File
	closed bool
}

var _ ports.SessionLog = (*Log)(nil)

// New creates the run's log file in dir, named by the run start time.
func New(dir string, startedAt time.Time) (*Log, error) {
	path := filepath.Join(dir, fmt.Sprintf("session-%s.txt", startedAt.Format("20060102-150405")))

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFileMode)
	if err != nil {
		return nil, fmt.Errorf("create session log: %w", err)
	}

	return &Log{path: path, file: file}, nil
}

func (l *Log) Append(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	if _, err := l.file.WriteString(domain.StripANSI(line) + "\n"); err != nil {
		return fmt.Errorf("append session log: %w", err)
	}

	return nil
}

func (l *Log) Path() string {
	return l.path
}

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close session log: %w", err)
	}

	return nil
}
