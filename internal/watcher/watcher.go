// Package watcher reports changes to a fixed set of files as debounced
// batches. It watches with fsnotify and falls back to polling where
// fsnotify is unavailable, such as some network mounts.
package watcher

import (
	"context"
	"time"
)

// Operation is the kind of change seen on a file.
type Operation int

const (
	// OpCreate means the file appeared.
	OpCreate Operation = iota
	// OpModify means the file content changed or the file was replaced.
	OpModify
	// OpDelete means the file is gone, including renamed away.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is a change to one watched file.
type FileEvent struct {
	// Path is the absolute path of the watched file.
	Path      string
	Operation Operation
	Timestamp time.Time
}

// Watcher reports changes to watched files.
type Watcher interface {
	// Start watches until ctx is done or Stop is called.
	Start(ctx context.Context) error
	// Stop releases resources. Safe to call multiple times.
	Stop() error
	// Events delivers debounced batches. Closed on Stop.
	Events() <-chan []FileEvent
	// Errors delivers non-fatal errors. Closed on Stop.
	Errors() <-chan error
}

// Options configures the watcher behavior.
type Options struct {
	// DebounceWindow is how long the files must stay quiet before a batch
	// is emitted. Default: 500ms
	DebounceWindow time.Duration

	// PollInterval is the polling fallback interval. Default: 2s
	PollInterval time.Duration

	// EventBufferSize is the number of batches buffered for the consumer.
	// Default: 16
	EventBufferSize int

	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  500 * time.Millisecond,
		PollInterval:    2 * time.Second,
		EventBufferSize: 16,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}
