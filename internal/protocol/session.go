package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/musher-dev/wdlplay/internal/model"
)

// Event names on the order channel.
const (
	EventStart           = "start"
	EventDecisionReply   = "decision_reply"
	EventLog             = "log"
	EventDecisionRequest = "decision_request"
	EventError           = "error"
	EventDone            = "done"
	EventCanceled        = "canceled"
)

// Frame is one JSON text message on the order channel.
type Frame struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event is an inbound message from the engine. The concrete types are
// LogEvent, DecisionRequestEvent, ErrorEvent, DoneEvent and CanceledEvent.
type Event interface {
	eventName() string
}

// LogEvent carries one engine log line.
type LogEvent struct {
	Entry model.LogEntry
}

// DecisionRequestEvent asks for a router decision. ID must be echoed in the
// reply.
type DecisionRequestEvent struct {
	ID      string
	Request model.DecisionRequest
}

// ErrorEvent ends the order with diagnostics.
type ErrorEvent struct {
	Diagnostics []model.Diagnostic
}

// DoneEvent ends the order successfully.
type DoneEvent struct {
	Position *model.Position
}

// CanceledEvent reports that the program canceled the order.
type CanceledEvent struct {
	Position *model.Position
}

func (LogEvent) eventName() string             { return EventLog }
func (DecisionRequestEvent) eventName() string { return EventDecisionRequest }
func (ErrorEvent) eventName() string           { return EventError }
func (DoneEvent) eventName() string            { return EventDone }
func (CanceledEvent) eventName() string        { return EventCanceled }

// Name returns the wire event name of ev.
func Name(ev Event) string {
	return ev.eventName()
}

// DecodeEvent parses an inbound frame.
func DecodeEvent(data []byte) (Event, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, malformed("frame", err)
	}

	switch frame.Event {
	case EventLog:
		entry, err := decodeLog(frame.Data)
		if err != nil {
			return nil, err
		}

		return LogEvent{Entry: entry}, nil
	case EventDecisionRequest:
		if frame.ID == "" {
			return nil, malformed("decision request without id", nil)
		}

		req, err := decodeRouterRequest(frame.Data)
		if err != nil {
			return nil, err
		}

		return DecisionRequestEvent{ID: frame.ID, Request: req}, nil
	case EventError:
		diags, err := DecodeDiagnostics(frame.Data)
		if err != nil {
			return nil, err
		}

		return ErrorEvent{Diagnostics: diags}, nil
	case EventDone:
		pos, err := decodePosition(frame.Data)
		if err != nil {
			return nil, err
		}

		return DoneEvent{Position: pos}, nil
	case EventCanceled:
		pos, err := decodePosition(frame.Data)
		if err != nil {
			return nil, err
		}

		return CanceledEvent{Position: pos}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, frame.Event)
	}
}

// EncodeEvent renders an inbound event. The order server side and tests use it.
func EncodeEvent(ev Event) ([]byte, error) {
	frame := Frame{Event: ev.eventName()}

	var payload any

	switch e := ev.(type) {
	case LogEvent:
		payload = logToWire(e.Entry)
	case DecisionRequestEvent:
		frame.ID = e.ID
		payload = wireRouterRequest{Action: e.Request.Kind.String(), Target: e.Request.Payload}
	case ErrorEvent:
		payload = diagnosticsToWire(e.Diagnostics)
	case DoneEvent:
		payload = positionToWire(e.Position)
	case CanceledEvent:
		payload = positionToWire(e.Position)
	}

	return encodeFrame(frame, payload)
}

// Outbound is a message from this client to the engine. The concrete types
// are StartMessage and DecisionReplyMessage.
type Outbound interface {
	outboundName() string
}

// StartMessage starts an order for the given source.
type StartMessage struct {
	Source string
}

// DecisionReplyMessage answers the decision request with the same ID.
type DecisionReplyMessage struct {
	ID    string
	Reply model.DecisionReply
}

func (StartMessage) outboundName() string         { return EventStart }
func (DecisionReplyMessage) outboundName() string { return EventDecisionReply }

// EncodeOutbound renders a client message.
func EncodeOutbound(msg Outbound) ([]byte, error) {
	switch m := msg.(type) {
	case StartMessage:
		return encodeFrame(Frame{Event: EventStart}, m.Source)
	case DecisionReplyMessage:
		return encodeFrame(Frame{Event: EventDecisionReply, ID: m.ID}, m.Reply.String())
	default:
		return nil, fmt.Errorf("encode outbound %T: %w", msg, ErrUnknownEvent)
	}
}

// DecodeOutbound parses a client message. The order server side and tests
// use it.
func DecodeOutbound(data []byte) (Outbound, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, malformed("frame", err)
	}

	var text string
	if err := json.Unmarshal(frame.Data, &text); err != nil {
		return nil, malformed(frame.Event, err)
	}

	switch frame.Event {
	case EventStart:
		return StartMessage{Source: text}, nil
	case EventDecisionReply:
		reply, err := model.ParseDecisionReply(text)
		if err != nil {
			return nil, malformed("decision reply", err)
		}

		return DecisionReplyMessage{ID: frame.ID, Reply: reply}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, frame.Event)
	}
}

func encodeFrame(frame Frame, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", frame.Event, err)
	}

	frame.Data = data

	out, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", frame.Event, err)
	}

	return out, nil
}
