package oracle

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/musher-dev/wdlplay/internal/protocol"
)

func TestNew(t *testing.T) {
	c := New("https://play.example.com/")

	if c.BaseURL() != "https://play.example.com" {
		t.Errorf("BaseURL() = %q, want trailing slash trimmed", c.BaseURL())
	}

	if c.httpClient == nil {
		t.Error("httpClient should not be nil")
	}

	if New("").BaseURL() != DefaultBaseURL {
		t.Errorf("New(\"\").BaseURL() = %q, want %q", New("").BaseURL(), DefaultBaseURL)
	}
}

func TestClient_Check(t *testing.T) {
	tests := []struct {
		name        string
		statusCode  int
		body        string
		wantOK      bool
		wantDiags   int
		wantErr     bool
		wantInvalid bool
		wantDenied  bool
	}{
		{
			name:       "ok",
			statusCode: http.StatusOK,
			body:       `{"status":"Ok"}`,
			wantOK:     true,
		},
		{
			name:       "errors",
			statusCode: http.StatusOK,
			body:       `{"status":"Error","errors":[{"title":"expected ;","pos":{"span":{"start":{"line":0,"column":12},"end":{"line":0,"column":13}},"span_str":"x"}},{"title":"no order"}]}`,
			wantDiags:  2,
		},
		{
			name:        "invalid status",
			statusCode:  http.StatusOK,
			body:        `{"status":"Pending"}`,
			wantErr:     true,
			wantInvalid: true,
		},
		{
			name:       "server error",
			statusCode: http.StatusInternalServerError,
			body:       "panic in checker",
			wantErr:    true,
		},
		{
			name:       "unauthorized",
			statusCode: http.StatusUnauthorized,
			wantErr:    true,
			wantDenied: true,
		},
		{
			name:       "forbidden",
			statusCode: http.StatusForbidden,
			body:       "token lacks checker scope",
			wantErr:    true,
			wantDenied: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/check" {
					t.Errorf("request = %s %s, want POST /check", r.Method, r.URL.Path)
				}

				body, _ := io.ReadAll(r.Body)
				if string(body) != "global x = 1;" {
					t.Errorf("body = %q, want source text", body)
				}

				if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
					t.Errorf("Authorization header = %q, want %q", auth, "Bearer tok")
				}

				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := New(server.URL).WithToken("tok")

			result, err := c.Check(t.Context(), "global x = 1;")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantInvalid && !errors.Is(err, protocol.ErrInvalidStatus) {
				t.Errorf("Check() error = %v, want ErrInvalidStatus", err)
			}

			if tt.wantDenied != errors.Is(err, ErrUnauthorized) {
				t.Errorf("Check() error = %v, want ErrUnauthorized = %v", err, tt.wantDenied)
			}

			if err != nil {
				return
			}

			if result.OK() != tt.wantOK {
				t.Errorf("OK() = %v, want %v", result.OK(), tt.wantOK)
			}

			if len(result.Diagnostics()) != tt.wantDiags {
				t.Errorf("len(Diagnostics()) = %d, want %d", len(result.Diagnostics()), tt.wantDiags)
			}
		})
	}
}

func TestClient_Check_TruncatesErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer server.Close()

	_, err := New(server.URL).Check(t.Context(), "")
	if err == nil {
		t.Fatal("Check() error = nil, want status error")
	}

	if len(err.Error()) > maxErrorBody+100 {
		t.Errorf("error length = %d, want body truncated", len(err.Error()))
	}
}

func TestCachedChecker(t *testing.T) {
	calls := 0

	var failNext bool

	next := CheckerFunc(func(ctx context.Context, source string) (Result, error) {
		calls++
		if failNext {
			return Result{}, errors.New("unreachable")
		}

		return Ok(), nil
	})

	checker, err := NewCached(next, 2)
	if err != nil {
		t.Fatalf("NewCached() error = %v", err)
	}

	for range 3 {
		if _, err := checker.Check(t.Context(), "order {}"); err != nil {
			t.Fatalf("Check() error = %v", err)
		}
	}

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	failNext = true

	if _, err := checker.Check(t.Context(), "other"); err == nil {
		t.Fatal("Check() error = nil, want error from wrapped checker")
	}

	if got := checker.(*CachedChecker).Len(); got != 1 {
		t.Errorf("Len() = %d, want 1 (errors are not cached)", got)
	}
}

func TestNewCached_Disabled(t *testing.T) {
	next := CheckerFunc(func(context.Context, string) (Result, error) { return Ok(), nil })

	checker, err := NewCached(next, 0)
	if err != nil {
		t.Fatalf("NewCached() error = %v", err)
	}

	if _, ok := checker.(*CachedChecker); ok {
		t.Error("NewCached(size 0) should return the wrapped checker")
	}
}
