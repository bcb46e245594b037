package ports

// SessionLog is the append-only durable record of one run.
type SessionLog interface {
	Append(line string) error
	Path() string
	Close() error
}
