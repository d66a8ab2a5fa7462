package main

import (
	"log/slog"
	"os"

	"github.com/musher-dev/wdlplay/internal/auth"
	"github.com/musher-dev/wdlplay/internal/config"
	clierrors "github.com/musher-dev/wdlplay/internal/errors"
	"github.com/musher-dev/wdlplay/internal/marker"
	"github.com/musher-dev/wdlplay/internal/model"
	"github.com/musher-dev/wdlplay/internal/oracle"
	"github.com/musher-dev/wdlplay/internal/transport"
)

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, clierrors.ConfigFailed("load config", err)
	}

	return cfg, nil
}

// newOracleClient creates a checker client for the configured server, sending
// the stored token when there is one.
func newOracleClient(cfg *config.Config) *oracle.Client {
	_, token := auth.GetToken(cfg.ServerURL())

	return oracle.New(cfg.ServerURL()).WithToken(token).WithTimeout(cfg.CheckTimeout())
}

// newChecker wraps the checker client in the verdict cache.
func newChecker(cfg *config.Config) (oracle.Checker, error) {
	checker, err := oracle.NewCached(newOracleClient(cfg), cfg.CacheSize())
	if err != nil {
		return nil, clierrors.ConfigFailed("create check cache", err)
	}

	return checker, nil
}

// sessionURL returns session.url, or the order endpoint derived from
// server.url when it is unset.
func sessionURL(cfg *config.Config) (string, error) {
	if u := cfg.SessionURL(); u != "" {
		return u, nil
	}

	u, err := transport.SessionURL(cfg.ServerURL())
	if err != nil {
		return "", clierrors.ConfigFailed("derive session url", err)
	}

	return u, nil
}

// newDialer creates the order channel dialer.
func newDialer(cfg *config.Config, logger *slog.Logger) (*transport.WebSocketDialer, error) {
	u, err := sessionURL(cfg)
	if err != nil {
		return nil, err
	}

	_, token := auth.GetToken(cfg.ServerURL())

	return &transport.WebSocketDialer{URL: u, Token: token, Logger: logger}, nil
}

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", clierrors.SourceUnreadable(path, err)
	}

	return string(data), nil
}

// LogLine is a log entry in JSON output. Positions are 1-based.
type LogLine struct {
	Level    string `json:"level"`
	Message  string `json:"message"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	User     bool   `json:"user,omitempty"`
	Rendered string `json:"rendered,omitempty"`
}

func newLogLine(entry model.LogEntry) LogLine {
	line := LogLine{
		Level:    entry.Level.String(),
		Message:  entry.Message,
		User:     entry.FromUser(),
		Rendered: entry.Rendered,
	}

	if entry.Span != nil {
		line.Line = entry.Span.Start.Line + 1
		line.Column = entry.Span.Start.Column + 1
	}

	return line
}

// MarkerInfo is an editor marker in JSON output.
type MarkerInfo struct {
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	StartLine   int    `json:"start_line"`
	StartColumn int    `json:"start_column"`
	EndLine     int    `json:"end_line"`
	EndColumn   int    `json:"end_column"`
}

func newMarkerInfos(markers []marker.Marker) []MarkerInfo {
	infos := make([]MarkerInfo, 0, len(markers))

	for _, m := range markers {
		rg := m.Range()
		infos = append(infos, MarkerInfo{
			Severity:    m.Severity.String(),
			Message:     m.Message,
			StartLine:   rg.StartLine,
			StartColumn: rg.StartColumn,
			EndLine:     rg.EndLine,
			EndColumn:   rg.EndColumn,
		})
	}

	return infos
}
