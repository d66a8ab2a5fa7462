package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/musher-dev/wdlplay/internal/buildinfo"
	"github.com/musher-dev/wdlplay/internal/observability"
	"github.com/musher-dev/wdlplay/internal/protocol"
)

const (
	// DefaultBaseURL is the default checker endpoint.
	DefaultBaseURL = "http://localhost:3000"
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 10 * time.Second

	checkPath    = "/check"
	maxErrorBody = 512
)

// ErrUnauthorized is returned when the checker rejects the bearer token.
var ErrUnauthorized = errors.New("checker rejected credentials")

// Client checks source text over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a checker client for baseURL.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// WithToken sets a bearer token sent with every request.
func (c *Client) WithToken(token string) *Client {
	c.token = token
	return c
}

// WithTimeout overrides the request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}

	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Check posts source to the checker and decodes its verdict.
func (c *Client) Check(ctx context.Context, source string) (Result, error) {
	ctx, span := observability.Tracer("wdlplay.oracle").Start(ctx, "oracle.check",
		trace.WithAttributes(attribute.Int("source.bytes", len(source))),
	)
	defer span.End()

	result, err := c.check(ctx, source)
	if err != nil {
		observability.Fail(span, err)

		return Result{}, err
	}

	span.SetAttributes(attribute.Int("check.diagnostics", len(result.Diagnostics())))

	return result, nil
}

func (c *Client) check(ctx context.Context, source string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+checkPath, strings.NewReader(source))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}

	c.setRequestHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to reach checker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Result{}, ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, unexpectedStatus("check", resp.StatusCode, resp.Body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read response: %w", err)
	}

	decoded, err := protocol.DecodeCheckResult(body)
	if err != nil {
		return Result{}, fmt.Errorf("decode check result: %w", err)
	}

	if decoded.OK {
		return Ok(), nil
	}

	return ErrorList(decoded.Diagnostics), nil
}

// Ping checks an empty program and reports the round trip time. Any verdict
// counts as reachable.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()

	if _, err := c.Check(ctx, ""); err != nil {
		return 0, err
	}

	return time.Since(start), nil
}

func (c *Client) setRequestHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "wdlplay/"+buildinfo.Version)
}

// unexpectedStatus creates a formatted error from an unexpected HTTP status code.
func unexpectedStatus(operation string, statusCode int, body io.Reader) error {
	respBody, readErr := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if readErr != nil {
		return fmt.Errorf("%s failed with status %d (failed to read body: %v)", operation, statusCode, readErr)
	}

	return fmt.Errorf("%s failed with status %d: %s", operation, statusCode, strings.TrimSpace(string(respBody)))
}
