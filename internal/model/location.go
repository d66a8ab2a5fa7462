// Package model holds the value types shared by the diagnostics pipeline and
// the order session: source locations, diagnostics, log entries, router
// decisions and session outcomes.
//
// All coordinates in this package are zero-based. Conversion to the 1-based
// coordinates shown to users happens in internal/marker and the renderers.
package model

import (
	"errors"
	"fmt"
)

// ErrInvalidSpan is returned when a span ends before it starts.
var ErrInvalidSpan = errors.New("span end precedes start")

// Location identifies a single character position.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Before reports whether l sorts strictly before other (line, then column).
func (l Location) Before(other Location) bool {
	if l.Line != other.Line {
		return l.Line < other.Line
	}

	return l.Column < other.Column
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Span is a half-open range; End is exclusive.
type Span struct {
	Start Location `json:"start"`
	End   Location `json:"end"`
}

// Validate checks that the span is well formed.
func (s Span) Validate() error {
	if s.Start.Line < 0 || s.Start.Column < 0 {
		return fmt.Errorf("negative start %s: %w", s.Start, ErrInvalidSpan)
	}

	if s.End.Before(s.Start) {
		return fmt.Errorf("span %s-%s: %w", s.Start, s.End, ErrInvalidSpan)
	}

	return nil
}

// Empty reports whether the span covers no characters.
func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) String() string {
	return s.Start.String() + "-" + s.End.String()
}
