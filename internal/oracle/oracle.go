// Package oracle talks to the remote source checker.
//
// The checker answers every source text with either Ok or a list of
// diagnostics. Anything else is a contract violation and surfaces as an error
// wrapping protocol.ErrInvalidStatus.
package oracle

import (
	"context"

	"github.com/musher-dev/wdlplay/internal/model"
)

// Result is the outcome of one check.
type Result struct {
	ok          bool
	diagnostics []model.Diagnostic
}

// Ok returns a result with no problems.
func Ok() Result {
	return Result{ok: true}
}

// ErrorList returns a result carrying diagnostics.
func ErrorList(diags []model.Diagnostic) Result {
	return Result{diagnostics: diags}
}

// OK reports whether the source has no problems.
func (r Result) OK() bool {
	return r.ok
}

// Diagnostics returns the reported problems. It is empty for Ok results.
func (r Result) Diagnostics() []model.Diagnostic {
	return r.diagnostics
}

// Checker checks source text.
type Checker interface {
	Check(ctx context.Context, source string) (Result, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, source string) (Result, error)

// Check calls f.
func (f CheckerFunc) Check(ctx context.Context, source string) (Result, error) {
	return f(ctx, source)
}
