package ui

import (
	"github.com/charmbracelet/lipgloss"

	"tododay/internal/config"
)

type palette struct {
	accent, muted, success, danger, match lipgloss.TerminalColor
}

type styles struct {
	title    lipgloss.Style
	day      lipgloss.Style
	selected lipgloss.Style
	done     lipgloss.Style
	match    lipgloss.Style
	muted    lipgloss.Style
	success  lipgloss.Style
	err      lipgloss.Style
	help     lipgloss.Style
}

func paletteFor(theme string) palette {
	switch theme {
	case config.ThemeLight:
		return palette{
			accent:  lipgloss.Color("25"),
			muted:   lipgloss.Color("244"),
			success: lipgloss.Color("28"),
			danger:  lipgloss.Color("160"),
			match:   lipgloss.Color("130"),
		}
	case config.ThemeDark:
		return palette{
			accent:  lipgloss.Color("75"),
			muted:   lipgloss.Color("241"),
			success: lipgloss.Color("42"),
			danger:  lipgloss.Color("203"),
			match:   lipgloss.Color("214"),
		}
	default:
		// Follow the terminal background.
		return palette{
			accent:  lipgloss.AdaptiveColor{Light: "25", Dark: "75"},
			muted:   lipgloss.AdaptiveColor{Light: "244", Dark: "241"},
			success: lipgloss.AdaptiveColor{Light: "28", Dark: "42"},
			danger:  lipgloss.AdaptiveColor{Light: "160", Dark: "203"},
			match:   lipgloss.AdaptiveColor{Light: "130", Dark: "214"},
		}
	}
}

func newStyles(theme string) styles {
	p := paletteFor(theme)
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(p.accent),
		day:      lipgloss.NewStyle().Bold(true).Underline(true),
		selected: lipgloss.NewStyle().Bold(true).Reverse(true),
		done:     lipgloss.NewStyle().Faint(true).Strikethrough(true),
		match:    lipgloss.NewStyle().Bold(true).Foreground(p.match),
		muted:    lipgloss.NewStyle().Foreground(p.muted),
		success:  lipgloss.NewStyle().Foreground(p.success),
		err:      lipgloss.NewStyle().Foreground(p.danger).Bold(true),
		help:     lipgloss.NewStyle().Faint(true),
	}
}
