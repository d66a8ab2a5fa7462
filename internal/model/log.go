package model

import "fmt"

// Level is the severity of a log entry.
type Level int

// Level values, ordered by severity.
const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the wire name of the level.
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "Trace"
	case LevelDebug:
		return "Debug"
	case LevelInfo:
		return "Info"
	case LevelWarn:
		return "Warn"
	case LevelError:
		return "Error"
	default:
		return "Unknown"
	}
}

// ParseLevel converts a wire name into a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "Trace":
		return LevelTrace, nil
	case "Debug":
		return LevelDebug, nil
	case "Info":
		return LevelInfo, nil
	case "Warn":
		return LevelWarn, nil
	case "Error":
		return LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// Origin says who produced a log entry.
type Origin int

const (
	// OriginClient marks entries written by this client.
	OriginClient Origin = iota
	// OriginUser marks entries produced by print statements in the program.
	OriginUser
)

// LogEntry is one line of the session or diagnostics log.
type LogEntry struct {
	Level    Level
	Message  string
	Origin   Origin
	Span     *Span
	Rendered string
}

// FromUser reports whether the program itself logged the entry.
func (e LogEntry) FromUser() bool {
	return e.Origin == OriginUser
}

// InfoEntry builds a client Info entry.
func InfoEntry(msg string) LogEntry {
	return LogEntry{Level: LevelInfo, Message: msg}
}

// WarnEntry builds a client Warn entry.
func WarnEntry(msg string) LogEntry {
	return LogEntry{Level: LevelWarn, Message: msg}
}

// ErrorEntry builds a client Error entry.
func ErrorEntry(msg string) LogEntry {
	return LogEntry{Level: LevelError, Message: msg}
}

// DiagnosticEntry renders a diagnostic as an Error entry.
func DiagnosticEntry(d Diagnostic) LogEntry {
	entry := ErrorEntry(d.Title)

	if d.Position != nil {
		span := d.Position.Span
		entry.Span = &span
		entry.Rendered = d.Position.Rendered
	}

	return entry
}
