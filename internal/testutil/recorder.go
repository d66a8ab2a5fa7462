package testutil

import (
	"sync"

	"github.com/musher-dev/wdlplay/internal/marker"
	"github.com/musher-dev/wdlplay/internal/model"
	"github.com/musher-dev/wdlplay/internal/surface"
)

// Recorder implements surface.Surface and remembers everything written to it.
type Recorder struct {
	mu sync.Mutex

	markers      []marker.Marker
	markerWrites int
	log          []model.LogEntry
	logClears    int

	prompt      *model.DecisionRequest
	reply       surface.ReplyFunc
	promptShows int

	busy        bool
	busyHistory []bool
}

var _ surface.Surface = (*Recorder)(nil)

// SetMarkers records a marker replacement.
func (r *Recorder) SetMarkers(markers []marker.Marker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.markers = append([]marker.Marker(nil), markers...)
	r.markerWrites++
}

// ClearMarkers records a marker clear.
func (r *Recorder) ClearMarkers() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.markers = nil
	r.markerWrites++
}

// AppendLog records a log entry.
func (r *Recorder) AppendLog(entry model.LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log = append(r.log, entry)
}

// ClearLog records a log clear.
func (r *Recorder) ClearLog() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log = nil
	r.logClears++
}

// ShowDecisionPrompt records the visible prompt and its reply function.
func (r *Recorder) ShowDecisionPrompt(req model.DecisionRequest, reply surface.ReplyFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prompt = &req
	r.reply = reply
	r.promptShows++
}

// HideDecisionPrompt records that no prompt is visible.
func (r *Recorder) HideDecisionPrompt() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prompt = nil
	r.reply = nil
}

// SetBusy records the run control state.
func (r *Recorder) SetBusy(busy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.busy = busy
	r.busyHistory = append(r.busyHistory, busy)
}

// Markers returns the markers currently shown.
func (r *Recorder) Markers() []marker.Marker {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]marker.Marker(nil), r.markers...)
}

// MarkerWrites counts SetMarkers and ClearMarkers calls.
func (r *Recorder) MarkerWrites() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.markerWrites
}

// Log returns the log entries currently shown.
func (r *Recorder) Log() []model.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]model.LogEntry(nil), r.log...)
}

// LogMessages returns the messages of the log entries currently shown.
func (r *Recorder) LogMessages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := make([]string, 0, len(r.log))
	for _, e := range r.log {
		msgs = append(msgs, e.Message)
	}

	return msgs
}

// LogClears counts ClearLog calls.
func (r *Recorder) LogClears() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.logClears
}

// Prompt returns the visible decision prompt and its reply function.
func (r *Recorder) Prompt() (*model.DecisionRequest, surface.ReplyFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.prompt, r.reply
}

// PromptShows counts ShowDecisionPrompt calls.
func (r *Recorder) PromptShows() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.promptShows
}

// Busy reports the current run control state.
func (r *Recorder) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.busy
}

// BusyHistory returns every SetBusy value in order.
func (r *Recorder) BusyHistory() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]bool(nil), r.busyHistory...)
}
