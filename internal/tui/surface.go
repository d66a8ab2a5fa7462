package tui

import (
	"github.com/musher-dev/wdlplay/internal/marker"
	"github.com/musher-dev/wdlplay/internal/model"
	"github.com/musher-dev/wdlplay/internal/surface"
)

// SetMarkers replaces the editor markers.
func (m *Model) SetMarkers(markers []marker.Marker) {
	m.markers = append(m.markers[:0], markers...)
}

// ClearMarkers removes all editor markers.
func (m *Model) ClearMarkers() {
	m.markers = m.markers[:0]
}

// AppendLog adds an entry to the log pane.
func (m *Model) AppendLog(entry model.LogEntry) {
	m.entries = append(m.entries, entry)
	m.refreshLog()
}

// ClearLog empties the log pane.
func (m *Model) ClearLog() {
	m.entries = m.entries[:0]
	m.refreshLog()
}

// ShowDecisionPrompt opens the decision bar.
func (m *Model) ShowDecisionPrompt(req model.DecisionRequest, reply surface.ReplyFunc) {
	m.prompt = &req
	m.reply = reply
}

// HideDecisionPrompt closes the decision bar.
func (m *Model) HideDecisionPrompt() {
	m.prompt = nil
	m.reply = nil
}

// SetBusy flips the start/stop control.
func (m *Model) SetBusy(busy bool) {
	m.busy = busy
	m.status = ""
}

// Markers returns the markers shown in the editor.
func (m *Model) Markers() []marker.Marker {
	return append([]marker.Marker(nil), m.markers...)
}

// Log returns the entries shown in the log pane.
func (m *Model) Log() []model.LogEntry {
	return append([]model.LogEntry(nil), m.entries...)
}

// Busy reports whether an order is running.
func (m *Model) Busy() bool {
	return m.busy
}

// Prompt returns the open decision request, if any.
func (m *Model) Prompt() *model.DecisionRequest {
	return m.prompt
}
