package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

func renderHelp(width, height int) string {
	green := lipgloss.NewStyle().Bold(true).Foreground(successColor)
	blue := lipgloss.NewStyle().Foreground(accentColor)

	line := func(b key.Binding) string {
		h := b.Help()
		return fmt.Sprintf("• %-10s %s", h.Key, h.Desc)
	}

	chat := lipgloss.JoinVertical(lipgloss.Left,
		blue.Render("## Chat"),
		line(keys.Send),
		line(keys.Copy),
		line(keys.Teams),
		line(keys.PageUp),
		line(keys.PageDown),
		line(keys.ScrollTop),
		line(keys.Quit),
	)

	actions := lipgloss.JoinVertical(lipgloss.Left,
		blue.Render("## Confirmations"),
		line(keys.Confirm),
		line(keys.Reject),
		"",
		DimStyle.Render("Changes to friends, teams and listings"),
		DimStyle.Render("always ask before they run."),
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		green.Render("hackmate - Keyboard Shortcuts"),
		"",
		chat,
		"",
		actions,
		"",
		DimStyle.Render("Press any key to close"),
	)

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dimColor).
		Padding(1, 2).
		Render(content)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
