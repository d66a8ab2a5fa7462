package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/musher-dev/wdlplay/internal/auth"
	"github.com/musher-dev/wdlplay/internal/oracle"
	"github.com/musher-dev/wdlplay/internal/protocol"
	"github.com/musher-dev/wdlplay/internal/transport"
)

type pingFunc func(ctx context.Context) (time.Duration, error)

func (f pingFunc) Ping(ctx context.Context) (time.Duration, error) { return f(ctx) }

type nopChannel struct{ closed int }

func (c *nopChannel) Send(protocol.Outbound) error { return nil }

func (c *nopChannel) Close() error {
	c.closed++
	return nil
}

// healthyEnv accepts only the token "good".
func healthyEnv(ch *nopChannel) Env {
	return Env{
		ServerURL:  "http://localhost:3000",
		SessionURL: "ws://localhost:3000/session",
		Validate:   func() error { return nil },
		Oracle: func(token string) Pinger {
			return pingFunc(func(context.Context) (time.Duration, error) {
				if token != "" && token != "good" {
					return 0, oracle.ErrUnauthorized
				}

				return 3 * time.Millisecond, nil
			})
		},
		Token: func() (auth.CredentialSource, string) { return auth.SourceKeyring, "good" },
		Dialer: transport.DialerFunc(func(context.Context, transport.Receiver) (transport.Channel, error) {
			return ch, nil
		}),
	}
}

func statusOf(results []Result, name string) Result {
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}

	return Result{Status: -1}
}

func TestRunner_Healthy(t *testing.T) {
	ch := &nopChannel{}
	results := New(healthyEnv(ch)).Run(t.Context())

	for _, name := range []string{"Configuration", "Checker", "Authentication", "Order Channel"} {
		if got := statusOf(results, name); got.Status != StatusPass {
			t.Errorf("%s = %+v, want pass", name, got)
		}
	}

	if ch.closed != 1 {
		t.Errorf("check channel closed %d times, want 1", ch.closed)
	}

	if got := statusOf(results, "Checker").Message; got != "http://localhost:3000 (3ms)" {
		t.Errorf("Checker message = %q", got)
	}
}

func TestRunner_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Env)
		check  string
		want   Status
	}{
		{
			name: "invalid config",
			mutate: func(e *Env) {
				e.Validate = func() error { return errors.New("ui.theme must be one of auto, dark, light") }
			},
			check: "Configuration",
			want:  StatusFail,
		},
		{
			name: "checker down",
			mutate: func(e *Env) {
				e.Oracle = func(string) Pinger {
					return pingFunc(func(context.Context) (time.Duration, error) { return 0, errors.New("connection refused") })
				}
			},
			check: "Checker",
			want:  StatusFail,
		},
		{
			name:   "no token",
			mutate: func(e *Env) { e.Token = func() (auth.CredentialSource, string) { return auth.SourceNone, "" } },
			check:  "Authentication",
			want:   StatusWarn,
		},
		{
			name:   "token rejected",
			mutate: func(e *Env) { e.Token = func() (auth.CredentialSource, string) { return auth.SourceFile, "stale" } },
			check:  "Authentication",
			want:   StatusFail,
		},
		{
			name: "channel refused",
			mutate: func(e *Env) {
				e.Dialer = transport.DialerFunc(func(context.Context, transport.Receiver) (transport.Channel, error) {
					return nil, fmt.Errorf("dial: status 404")
				})
			},
			check: "Order Channel",
			want:  StatusFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := healthyEnv(&nopChannel{})
			tt.mutate(&env)

			got := statusOf(New(env).Run(t.Context()), tt.check)
			if got.Status != tt.want {
				t.Errorf("%s = %+v, want %v", tt.check, got, tt.want)
			}
		})
	}
}

func TestRunner_CheckerWantsToken(t *testing.T) {
	env := healthyEnv(&nopChannel{})
	env.Oracle = func(token string) Pinger {
		return pingFunc(func(context.Context) (time.Duration, error) {
			if token == "" {
				return 0, oracle.ErrUnauthorized
			}

			return time.Millisecond, nil
		})
	}

	if got := statusOf(New(env).Run(t.Context()), "Checker"); got.Status != StatusPass || !strings.Contains(got.Message, "token required") {
		t.Errorf("Checker = %+v", got)
	}
}

func TestSummary(t *testing.T) {
	passed, failed, warnings := Summary([]Result{
		{Status: StatusPass}, {Status: StatusPass}, {Status: StatusWarn}, {Status: StatusFail},
	})

	if passed != 2 || failed != 1 || warnings != 1 {
		t.Errorf("Summary() = (%d, %d, %d), want (2, 1, 1)", passed, failed, warnings)
	}
}

func TestRenderResults(t *testing.T) {
	var lines []string

	line := func(prefix string) func(string, ...any) {
		return func(format string, args ...any) {
			lines = append(lines, prefix+fmt.Sprintf(format, args...))
		}
	}

	RenderResults([]Result{
		{Name: "Checker", Status: StatusPass, Message: "ok"},
		{Name: "Order Channel", Status: StatusFail, Message: "ws://x", Detail: "refused"},
	}, line("print "), line("pass "), line("warn "), line("fail "), line("muted "))

	want := []string{
		"pass Checker          ok",
		"fail Order Channel    ws://x",
		"muted     refused",
	}

	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Errorf("lines =\n%s\nwant\n%s", strings.Join(lines, "\n"), strings.Join(want, "\n"))
	}
}

func TestResult_JSONStatusName(t *testing.T) {
	data, err := json.Marshal(Result{Name: "Checker", Status: StatusWarn, Message: "slow"})
	if err != nil {
		t.Fatal(err)
	}

	if want := `{"name":"Checker","status":"warn","message":"slow"}`; string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}
