package normalize

import (
	"fmt"
	"strings"
)

// Event is one entry in a search recording.
type Event struct {
	Level  string `json:"level"` // "info", "warn" or "fail"
	Name   string `json:"name"`
	Detail string `json:"detail,omitempty"`
}

// String renders the event the way it appears in diagnostics.
func (e Event) String() string {
	prefix := ""
	switch e.Level {
	case "warn":
		prefix = "WARNING:"
	case "fail":
		prefix = "FAIL:"
	}
	if e.Detail == "" {
		return prefix + e.Name
	}
	return prefix + e.Name + ": " + e.Detail
}

// recorder collects search events. A nil recorder discards everything.
type recorder struct {
	events []Event
}

func (r *recorder) log(name, format string, args ...any) {
	r.add("info", name, format, args...)
}

func (r *recorder) warn(name, format string, args ...any) {
	r.add("warn", name, format, args...)
}

func (r *recorder) fail(name, format string, args ...any) {
	r.add("fail", name, format, args...)
}

func (r *recorder) add(level, name, format string, args ...any) {
	if r == nil {
		return
	}
	r.events = append(r.events, Event{Level: level, Name: name, Detail: fmt.Sprintf(format, args...)})
}

// Events returns the recorded events, or nil for a nil recorder.
func (r *recorder) Events() []Event {
	if r == nil {
		return nil
	}
	return r.events
}

// FormatEvents renders events one per line.
func FormatEvents(events []Event) string {
	lines := make([]string, len(events))
	for i, e := range events {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}
