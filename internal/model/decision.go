package model

import (
	"encoding/json"
	"fmt"
)

// DecisionKind is the router action the engine is waiting on.
type DecisionKind int

// DecisionKind values.
const (
	DecisionPickup DecisionKind = iota
	DecisionDrop
	DecisionDrive
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionPickup:
		return "Pickup"
	case DecisionDrop:
		return "Drop"
	case DecisionDrive:
		return "Drive"
	default:
		return "Unknown"
	}
}

// ParseDecisionKind converts a wire action name into a DecisionKind.
func ParseDecisionKind(s string) (DecisionKind, error) {
	switch s {
	case "Pickup":
		return DecisionPickup, nil
	case "Drop":
		return DecisionDrop, nil
	case "Drive":
		return DecisionDrive, nil
	default:
		return 0, fmt.Errorf("unknown router action %q", s)
	}
}

// DecisionRequest asks the client to resolve a router action.
type DecisionRequest struct {
	Kind DecisionKind
	// Payload is the opaque router target.
	Payload json.RawMessage
}

// DecisionReply is the router status sent back for a request.
type DecisionReply int

// DecisionReply values.
const (
	ReplyDone DecisionReply = iota
	ReplyNoStationLeft
)

// Replies lists every reply in display order.
func Replies() []DecisionReply {
	return []DecisionReply{ReplyDone, ReplyNoStationLeft}
}

func (r DecisionReply) String() string {
	switch r {
	case ReplyDone:
		return "Done"
	case ReplyNoStationLeft:
		return "NoStationLeft"
	default:
		return "Unknown"
	}
}

// ParseDecisionReply converts a wire status into a DecisionReply.
func ParseDecisionReply(s string) (DecisionReply, error) {
	switch s {
	case "Done":
		return ReplyDone, nil
	case "NoStationLeft":
		return ReplyNoStationLeft, nil
	default:
		return 0, fmt.Errorf("unknown router status %q", s)
	}
}
