package model

// OutcomeKind tags how a session ended.
type OutcomeKind int

// OutcomeKind values.
const (
	OutcomeDone OutcomeKind = iota
	OutcomeCanceled
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDone:
		return "Done"
	case OutcomeCanceled:
		return "Canceled"
	case OutcomeFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Outcome is the terminal result of one order session.
type Outcome struct {
	Kind OutcomeKind
	// Position is set for Done and Canceled when the engine reported one.
	Position *Position
	// Diagnostics is set for Failed.
	Diagnostics []Diagnostic
	// Local is true when the user canceled the order from this client.
	Local bool
	// Cause is the client-side error that failed the order, if any.
	Cause error
}

// Done returns a Done outcome.
func Done(pos *Position) Outcome {
	return Outcome{Kind: OutcomeDone, Position: pos}
}

// Canceled returns a Canceled outcome reported by the engine.
func Canceled(pos *Position) Outcome {
	return Outcome{Kind: OutcomeCanceled, Position: pos}
}

// CanceledLocally returns the outcome of a user cancel.
func CanceledLocally() Outcome {
	return Outcome{Kind: OutcomeCanceled, Local: true}
}

// Failed returns a Failed outcome.
func Failed(diags []Diagnostic) Outcome {
	return Outcome{Kind: OutcomeFailed, Diagnostics: diags}
}
