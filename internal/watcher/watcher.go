// Package watcher reports changes to corpus files so the index can be
// rebuilt. Events for the same file within the debounce window are
// coalesced and delivered as one batch.
package watcher

import (
	"path/filepath"
	"time"
)

// Operation is a file system change.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
	OpRename
	// OpConfigChange is a write to the project config file.
	OpConfigChange
)

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	case OpConfigChange:
		return "CONFIG_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one change to a watched file.
type FileEvent struct {
	// Path is the file's base name inside the corpus directory.
	Path      string
	Operation Operation
	Timestamp time.Time
}

// Options configures a CorpusWatcher.
type Options struct {
	// Debounce is the quiet period before a batch is emitted (default: 500ms).
	Debounce time.Duration

	// Pattern selects watched files by base name (default: *.txt).
	Pattern string

	// ConfigNames are base names reported as OpConfigChange.
	ConfigNames []string

	// EventBufferSize is the batch channel capacity (default: 16).
	EventBufferSize int
}

// DefaultOptions returns a 500ms debounce over *.txt.
func DefaultOptions() Options {
	return Options{
		Debounce:        500 * time.Millisecond,
		Pattern:         "*.txt",
		EventBufferSize: 16,
	}
}

// WithDefaults fills zero values from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.Debounce <= 0 {
		o.Debounce = d.Debounce
	}
	if o.Pattern == "" {
		o.Pattern = d.Pattern
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = d.EventBufferSize
	}
	return o
}

// classify reports whether name is watched, and whether it is a config file.
func (o Options) classify(name string) (watched, config bool) {
	for _, c := range o.ConfigNames {
		if name == c {
			return true, true
		}
	}
	ok, _ := filepath.Match(o.Pattern, name)
	return ok, false
}
