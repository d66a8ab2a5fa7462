// Package doctor provides diagnostic checks for wdlplay health.
//
// This package implements a check framework that validates:
//   - Configuration values
//   - Checker reachability and response time
//   - Token status and credential source
//   - Order channel reachability
//   - CLI build
package doctor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/musher-dev/wdlplay/internal/auth"
	"github.com/musher-dev/wdlplay/internal/buildinfo"
	"github.com/musher-dev/wdlplay/internal/oracle"
	"github.com/musher-dev/wdlplay/internal/protocol"
	"github.com/musher-dev/wdlplay/internal/transport"
)

// Status represents the result of a diagnostic check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates a critical failure.
	StatusFail
)

// Result holds the outcome of a single check.
type Result struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Check is a diagnostic check function.
type Check func(ctx context.Context) Result

// Pinger reaches the checker.
type Pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

// Env is everything the default checks inspect.
type Env struct {
	ServerURL  string
	SessionURL string
	ConfigFile string

	// Validate reports invalid configuration.
	Validate func() error
	// Oracle builds a checker client sending token, which may be empty.
	Oracle func(token string) Pinger
	// Token looks up the stored token for ServerURL.
	Token  func() (auth.CredentialSource, string)
	Dialer transport.Dialer

	Timeout time.Duration
}

// Runner executes diagnostic checks.
type Runner struct {
	checks []namedCheck
}

type namedCheck struct {
	name  string
	check Check
}

// New creates a runner with the default checks against env.
func New(env Env) *Runner {
	if env.Timeout <= 0 {
		env.Timeout = 5 * time.Second
	}

	r := &Runner{}

	r.AddCheck("Configuration", env.checkConfig)
	r.AddCheck("Checker", env.checkOracle)
	r.AddCheck("Authentication", env.checkAuthentication)
	r.AddCheck("Order Channel", env.checkChannel)
	r.AddCheck("CLI Version", checkCLIVersion)

	return r
}

// AddCheck registers a diagnostic check.
func (r *Runner) AddCheck(name string, check Check) {
	r.checks = append(r.checks, namedCheck{name: name, check: check})
}

// Run executes all registered checks and returns the results.
func (r *Runner) Run(ctx context.Context) []Result {
	results := make([]Result, 0, len(r.checks))

	for _, nc := range r.checks {
		result := nc.check(ctx)
		result.Name = nc.name
		results = append(results, result)
	}

	return results
}

// Summary returns counts of passed, failed, and warning checks.
func Summary(results []Result) (passed, failed, warnings int) {
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			passed++
		case StatusFail:
			failed++
		case StatusWarn:
			warnings++
		}
	}

	return passed, failed, warnings
}

func (e Env) checkConfig(context.Context) Result {
	if e.Validate != nil {
		if err := e.Validate(); err != nil {
			return Result{Status: StatusFail, Message: "Invalid settings", Detail: err.Error()}
		}
	}

	if e.ConfigFile == "" {
		return Result{Status: StatusPass, Message: "Defaults"}
	}

	return Result{Status: StatusPass, Message: e.ConfigFile}
}

// checkOracle checks an empty program without credentials; a rejected token
// still proves the checker is reachable.
func (e Env) checkOracle(ctx context.Context) Result {
	pingCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	elapsed, err := e.Oracle("").Ping(pingCtx)

	switch {
	case errors.Is(err, oracle.ErrUnauthorized):
		return Result{Status: StatusPass, Message: fmt.Sprintf("%s (token required)", e.ServerURL)}
	case err != nil:
		return Result{Status: StatusFail, Message: e.ServerURL, Detail: err.Error()}
	}

	return Result{
		Status:  StatusPass,
		Message: fmt.Sprintf("%s (%dms)", e.ServerURL, elapsed.Milliseconds()),
	}
}

func (e Env) checkAuthentication(ctx context.Context) Result {
	source, token := e.Token()
	if token == "" {
		return Result{
			Status:  StatusWarn,
			Message: "No token stored",
			Detail:  "Run 'wdlplay auth login' if the checker requires one",
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	_, err := e.Oracle(token).Ping(pingCtx)

	switch {
	case errors.Is(err, oracle.ErrUnauthorized):
		return Result{
			Status:  StatusFail,
			Message: fmt.Sprintf("Token rejected (via %s)", source),
			Detail:  "Run 'wdlplay auth login' to store a new token",
		}
	case err != nil:
		return Result{
			Status:  StatusWarn,
			Message: fmt.Sprintf("Token not verified (via %s)", source),
			Detail:  err.Error(),
		}
	}

	return Result{Status: StatusPass, Message: fmt.Sprintf("Token accepted (via %s)", source)}
}

// checkChannel opens and immediately closes an order channel without
// starting an order.
func (e Env) checkChannel(ctx context.Context) Result {
	dialCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	start := time.Now()

	ch, err := e.Dialer.Dial(dialCtx, discard{})
	if err != nil {
		return Result{Status: StatusFail, Message: e.SessionURL, Detail: err.Error()}
	}

	elapsed := time.Since(start)

	if err := ch.Close(); err != nil {
		return Result{Status: StatusWarn, Message: e.SessionURL, Detail: "close: " + err.Error()}
	}

	return Result{
		Status:  StatusPass,
		Message: fmt.Sprintf("%s (%dms)", e.SessionURL, elapsed.Milliseconds()),
	}
}

type discard struct{}

func (discard) Receive(protocol.Event) {}

func (discard) Fail(error) {}

func checkCLIVersion(context.Context) Result {
	if buildinfo.Version == "dev" {
		return Result{Status: StatusWarn, Message: "Development build"}
	}

	return Result{Status: StatusPass, Message: "v" + buildinfo.Version}
}

// RenderResults formats diagnostic results to the given output writer.
func RenderResults(results []Result, printFn, successFn, warningFn, failureFn, mutedFn func(format string, args ...any)) {
	maxNameLen := 0
	for _, r := range results {
		maxNameLen = max(maxNameLen, len(r.Name))
	}

	for _, r := range results {
		width := maxNameLen + 4

		switch r.Status {
		case StatusPass:
			successFn("%-*s%s", width, r.Name, r.Message)
		case StatusWarn:
			warningFn("%-*s%s", width, r.Name, r.Message)
		case StatusFail:
			failureFn("%-*s%s", width, r.Name, r.Message)
		default:
			printFn("%s %-*s%s\n", r.Status.Symbol(), width, r.Name, r.Message)
		}

		if r.Detail != "" {
			mutedFn("    %s", r.Detail)
		}
	}
}

// Symbol returns the status symbol for display.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return checkMark
	case StatusWarn:
		return warningMark
	case StatusFail:
		return xMark
	default:
		return "?"
	}
}

// String returns the status name used in JSON output.
func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	checkMark   = "\u2713" // ✓
	xMark       = "\u2717" // ✗
	warningMark = "\u26A0" // ⚠
)
