package model

// Position ties a span to its pre-rendered source excerpt.
type Position struct {
	Span Span
	// Rendered is already escaped for display.
	Rendered string
}

// Diagnostic is a single problem reported by the checker or the engine.
type Diagnostic struct {
	Title    string
	Position *Position
}

// HasPosition reports whether the diagnostic points at source text.
func (d Diagnostic) HasPosition() bool {
	return d.Position != nil
}

// Positioned counts the diagnostics that carry a position.
func Positioned(diags []Diagnostic) int {
	n := 0

	for _, d := range diags {
		if d.HasPosition() {
			n++
		}
	}

	return n
}
