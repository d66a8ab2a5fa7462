package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/musher-dev/wdlplay/internal/marker"
	"github.com/musher-dev/wdlplay/internal/model"
)

// Themes accepted by ui.theme.
const (
	ThemeAuto  = "auto"
	ThemeDark  = "dark"
	ThemeLight = "light"
)

type shade struct {
	light, dark string
}

var (
	shadeFg     = shade{light: "235", dark: "252"}
	shadeMuted  = shade{light: "245", dark: "243"}
	shadeAccent = shade{light: "25", dark: "81"}
	shadeBorder = shade{light: "250", dark: "238"}
	shadeDebug  = shade{light: "26", dark: "75"}
	shadeInfo   = shade{light: "28", dark: "114"}
	shadeWarn   = shade{light: "130", dark: "214"}
	shadeError  = shade{light: "160", dark: "203"}
)

func (s shade) color(theme string) lipgloss.TerminalColor {
	switch theme {
	case ThemeDark:
		return lipgloss.Color(s.dark)
	case ThemeLight:
		return lipgloss.Color(s.light)
	default:
		return lipgloss.AdaptiveColor{Light: s.light, Dark: s.dark}
	}
}

// Styles holds every lipgloss style the editor renders with.
type Styles struct {
	Title    lipgloss.Style
	Status   lipgloss.Style
	Muted    lipgloss.Style
	LogBox   lipgloss.Style
	Decision lipgloss.Style
	levels   map[model.Level]lipgloss.Style
	severity map[marker.Severity]lipgloss.Style
}

// NewStyles builds the styles for theme.
func NewStyles(theme string) Styles {
	fg := func(s shade) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(s.color(theme))
	}

	return Styles{
		Title:    fg(shadeAccent).Bold(true),
		Status:   fg(shadeFg),
		Muted:    fg(shadeMuted),
		LogBox:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(shadeBorder.color(theme)),
		Decision: fg(shadeWarn).Bold(true),
		levels: map[model.Level]lipgloss.Style{
			model.LevelTrace: fg(shadeMuted),
			model.LevelDebug: fg(shadeDebug),
			model.LevelInfo:  fg(shadeInfo),
			model.LevelWarn:  fg(shadeWarn),
			model.LevelError: fg(shadeError),
		},
		severity: map[marker.Severity]lipgloss.Style{
			marker.SeverityHint:    fg(shadeMuted),
			marker.SeverityInfo:    fg(shadeInfo),
			marker.SeverityWarning: fg(shadeWarn),
			marker.SeverityError:   fg(shadeError),
		},
	}
}

// Level returns the style of a log level.
func (s Styles) Level(l model.Level) lipgloss.Style {
	return s.levels[l]
}

// Severity returns the style of a marker severity.
func (s Styles) Severity(sev marker.Severity) lipgloss.Style {
	return s.severity[sev]
}
