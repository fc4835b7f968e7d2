package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"
	"time"
)

// Entry is one parsed JSON log record.
type Entry struct {
	Time  time.Time
	Level string
	Msg   string
	Attrs map[string]any
	Raw   string
}

// TailOptions filters Tail.
type TailOptions struct {
	// Lines is the maximum number of entries returned (0 = all).
	Lines int

	// Level drops entries below it.
	Level string

	// Pattern keeps only raw lines that match it.
	Pattern *regexp.Regexp
}

// Tail returns the last matching entries of the log at path, oldest first.
// Lines that are not JSON are kept with only Raw set.
func Tail(path string, opts TailOptions) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	minLevel := ParseLevel(opts.Level)
	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if opts.Pattern != nil && !opts.Pattern.MatchString(line) {
			continue
		}
		e := parseEntry(line)
		if opts.Level != "" && e.Level != "" && ParseLevel(e.Level) < minLevel {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	if opts.Lines > 0 && len(entries) > opts.Lines {
		entries = entries[len(entries)-opts.Lines:]
	}
	return entries, nil
}

func parseEntry(line string) Entry {
	e := Entry{Raw: line}
	var data map[string]any
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		return e
	}
	if t, ok := data["time"].(string); ok {
		e.Time, _ = time.Parse(time.RFC3339Nano, t)
	}
	e.Level, _ = data["level"].(string)
	e.Msg, _ = data["msg"].(string)
	delete(data, "time")
	delete(data, "level")
	delete(data, "msg")
	e.Attrs = data
	return e
}

// Format renders e as "15:04:05.000 LEVEL msg key=value ...".
func (e Entry) Format() string {
	if e.Msg == "" && e.Level == "" {
		return e.Raw
	}
	s := fmt.Sprintf("%s %-5s %s", e.Time.Format("15:04:05.000"), e.Level, e.Msg)
	for _, k := range slices.Sorted(maps.Keys(e.Attrs)) {
		s += fmt.Sprintf(" %s=%v", k, e.Attrs[k])
	}
	return s
}
