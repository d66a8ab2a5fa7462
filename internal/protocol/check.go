package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/musher-dev/wdlplay/internal/model"
)

// ErrInvalidStatus is returned when the checker answers with a status other
// than "Ok" or "Error".
var ErrInvalidStatus = errors.New("invalid checker status")

// Wire values of the checker status field.
const (
	CheckStatusOk    = "Ok"
	CheckStatusError = "Error"
)

type wireCheckResult struct {
	Status string           `json:"status"`
	Errors []wireDiagnostic `json:"errors,omitempty"`
}

// CheckResult is a decoded checker response. A nil Diagnostics slice with
// OK set means the source has no problems.
type CheckResult struct {
	OK          bool
	Diagnostics []model.Diagnostic
}

// DecodeCheckResult parses the body returned by the checker.
func DecodeCheckResult(data []byte) (CheckResult, error) {
	var wire wireCheckResult
	if err := json.Unmarshal(data, &wire); err != nil {
		return CheckResult{}, malformed("check result", err)
	}

	switch wire.Status {
	case CheckStatusOk:
		return CheckResult{OK: true}, nil
	case CheckStatusError:
		diags, err := diagnosticsToModel(wire.Errors)
		if err != nil {
			return CheckResult{}, err
		}

		return CheckResult{Diagnostics: diags}, nil
	default:
		return CheckResult{}, fmt.Errorf("%w: %q", ErrInvalidStatus, wire.Status)
	}
}

// EncodeCheckResult renders a checker response body.
func EncodeCheckResult(result CheckResult) ([]byte, error) {
	wire := wireCheckResult{Status: CheckStatusOk}

	if !result.OK {
		wire.Status = CheckStatusError
		wire.Errors = diagnosticsToWire(result.Diagnostics)
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encode check result: %w", err)
	}

	return data, nil
}
