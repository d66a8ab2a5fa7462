// Package marker projects diagnostics and order positions onto editor
// markers. This is the only place where zero-based source coordinates become
// the 1-based coordinates an editor displays.
package marker

import "github.com/musher-dev/wdlplay/internal/model"

// Severity is the display severity of a marker.
type Severity int

// Severity values.
const (
	SeverityHint Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityHint:
		return "Hint"
	case SeverityInfo:
		return "Info"
	case SeverityWarning:
		return "Warning"
	case SeverityError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Marker annotates a source span on the editing surface.
type Marker struct {
	Severity Severity
	Message  string
	Span     model.Span
}

// Range is a 1-based, end-exclusive editor range.
type Range struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

// Range converts the marker span into editor coordinates.
func (m Marker) Range() Range {
	return Range{
		StartLine:   m.Span.Start.Line + 1,
		StartColumn: m.Span.Start.Column + 1,
		EndLine:     m.Span.End.Line + 1,
		EndColumn:   m.Span.End.Column + 1,
	}
}

// Contains reports whether the 1-based editor position falls inside the range.
func (r Range) Contains(line, column int) bool {
	if line < r.StartLine || line > r.EndLine {
		return false
	}

	if line == r.StartLine && column < r.StartColumn {
		return false
	}

	if line == r.EndLine && column >= r.EndColumn {
		return false
	}

	return true
}

// FromDiagnostics returns one Error marker per diagnostic with a position.
// Diagnostics without a position produce no marker.
func FromDiagnostics(diags []model.Diagnostic) []Marker {
	markers := make([]Marker, 0, len(diags))

	for _, d := range diags {
		if d.Position == nil {
			continue
		}

		markers = append(markers, Marker{
			Severity: SeverityError,
			Message:  d.Title,
			Span:     d.Position.Span,
		})
	}

	return markers
}

// AtPosition builds a single marker for a terminal order position.
func AtPosition(severity Severity, message string, pos model.Position) Marker {
	return Marker{Severity: severity, Message: message, Span: pos.Span}
}
