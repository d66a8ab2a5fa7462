// Package protocol defines the JSON wire formats spoken with the checking
// oracle and with the order session channel, and converts them to and from
// the values in internal/model.
//
// Decoding is strict. Unknown event names, unknown enumeration values and
// malformed spans are reported as errors wrapping ErrMalformed or
// ErrUnknownEvent so callers can treat them as protocol violations.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/musher-dev/wdlplay/internal/model"
)

var (
	// ErrMalformed marks a payload that does not match its wire shape.
	ErrMalformed = errors.New("malformed message")
	// ErrUnknownEvent marks a frame whose event name is not recognized.
	ErrUnknownEvent = errors.New("unknown event")
)

type wirePosition struct {
	Span    model.Span `json:"span"`
	SpanStr string     `json:"span_str"`
}

type wireDiagnostic struct {
	Title string        `json:"title"`
	Pos   *wirePosition `json:"pos,omitempty"`
}

type wireLog struct {
	Level   string      `json:"level"`
	Msg     string      `json:"msg"`
	User    bool        `json:"user,omitempty"`
	Span    *model.Span `json:"span,omitempty"`
	SpanStr string      `json:"span_str,omitempty"`
}

type wireRouterRequest struct {
	Action string          `json:"action"`
	Target json.RawMessage `json:"target,omitempty"`
}

func malformed(what string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformed, what, err)
	}

	return fmt.Errorf("%w: %s", ErrMalformed, what)
}

func (p *wirePosition) toModel() (*model.Position, error) {
	if p == nil {
		return nil, nil
	}

	if err := p.Span.Validate(); err != nil {
		return nil, malformed("position", err)
	}

	return &model.Position{Span: p.Span, Rendered: p.SpanStr}, nil
}

func positionToWire(pos *model.Position) *wirePosition {
	if pos == nil {
		return nil
	}

	return &wirePosition{Span: pos.Span, SpanStr: pos.Rendered}
}

func diagnosticsToModel(in []wireDiagnostic) ([]model.Diagnostic, error) {
	out := make([]model.Diagnostic, 0, len(in))

	for i, d := range in {
		pos, err := d.Pos.toModel()
		if err != nil {
			return nil, fmt.Errorf("diagnostic %d: %w", i, err)
		}

		out = append(out, model.Diagnostic{Title: d.Title, Position: pos})
	}

	return out, nil
}

func diagnosticsToWire(in []model.Diagnostic) []wireDiagnostic {
	out := make([]wireDiagnostic, 0, len(in))

	for _, d := range in {
		out = append(out, wireDiagnostic{Title: d.Title, Pos: positionToWire(d.Position)})
	}

	return out
}

// DecodeDiagnostics parses a diagnostics array. The engine sometimes sends the
// array pre-encoded as a JSON string; both forms are accepted.
func DecodeDiagnostics(data json.RawMessage) ([]model.Diagnostic, error) {
	var encoded string
	if err := json.Unmarshal(data, &encoded); err == nil {
		data = json.RawMessage(encoded)
	}

	var wire []wireDiagnostic
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, malformed("diagnostics", err)
	}

	return diagnosticsToModel(wire)
}

func decodePosition(data json.RawMessage) (*model.Position, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var wire wirePosition
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, malformed("position", err)
	}

	return wire.toModel()
}

func decodeLog(data json.RawMessage) (model.LogEntry, error) {
	var wire wireLog
	if err := json.Unmarshal(data, &wire); err != nil {
		return model.LogEntry{}, malformed("log", err)
	}

	level, err := model.ParseLevel(wire.Level)
	if err != nil {
		return model.LogEntry{}, malformed("log", err)
	}

	entry := model.LogEntry{
		Level:    level,
		Message:  wire.Msg,
		Span:     wire.Span,
		Rendered: wire.SpanStr,
	}

	if wire.User {
		entry.Origin = model.OriginUser
	}

	if entry.Span != nil {
		if err := entry.Span.Validate(); err != nil {
			return model.LogEntry{}, malformed("log span", err)
		}
	}

	return entry, nil
}

func logToWire(entry model.LogEntry) wireLog {
	return wireLog{
		Level:   entry.Level.String(),
		Msg:     entry.Message,
		User:    entry.FromUser(),
		Span:    entry.Span,
		SpanStr: entry.Rendered,
	}
}

func decodeRouterRequest(data json.RawMessage) (model.DecisionRequest, error) {
	var wire wireRouterRequest
	if err := json.Unmarshal(data, &wire); err != nil {
		return model.DecisionRequest{}, malformed("decision request", err)
	}

	kind, err := model.ParseDecisionKind(wire.Action)
	if err != nil {
		return model.DecisionRequest{}, malformed("decision request", err)
	}

	return model.DecisionRequest{Kind: kind, Payload: wire.Target}, nil
}
