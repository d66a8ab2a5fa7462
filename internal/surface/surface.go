// Package surface defines the display collaborators the diagnostics pipeline
// and the order session write to. Implementations live in internal/console,
// internal/tui and internal/testutil.
package surface

import (
	"github.com/musher-dev/wdlplay/internal/marker"
	"github.com/musher-dev/wdlplay/internal/model"
)

// Markers is the inline annotation surface of the editor.
type Markers interface {
	// SetMarkers replaces all markers at once.
	SetMarkers(markers []marker.Marker)
	ClearMarkers()
}

// Log is the event log pane.
type Log interface {
	AppendLog(entry model.LogEntry)
	ClearLog()
}

// ReplyFunc answers a decision request. It succeeds at most once.
type ReplyFunc func(reply model.DecisionReply) error

// DecisionPrompt asks the user to resolve a router decision.
type DecisionPrompt interface {
	ShowDecisionPrompt(req model.DecisionRequest, reply ReplyFunc)
	HideDecisionPrompt()
}

// RunControl is the start/stop affordance.
type RunControl interface {
	// SetBusy switches the control between "Start" (false) and "Stop" (true).
	SetBusy(busy bool)
}

// Surface bundles every collaborator an order session writes to.
type Surface interface {
	Markers
	Log
	DecisionPrompt
	RunControl
}
