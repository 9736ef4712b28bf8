package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"hackmate/model"
)

// renderConfirmBar shows the action awaiting a decision and how many queued
// steps follow it.
func renderConfirmBar(pending model.PendingAction, queue model.TaskQueue, running bool, width int) string {
	title := WarningStyle.Render("Confirm: " + pending.Name)
	if n := len(queue); n == 1 {
		title += DimStyle.Render("  (+1 more step)")
	} else if n > 1 {
		title += DimStyle.Render(fmt.Sprintf("  (+%d more steps)", n))
	}

	footer := FormatFooter("y", "Yes", "n", "No")
	if running {
		footer = DimStyle.Render("running...")
	}

	msg := strings.TrimSpace(pending.ConfirmationMessage)
	if msg == "" {
		msg = fmt.Sprintf("Run %s?", pending.Name)
	}

	return lipgloss.NewStyle().
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(warningColor).
		Width(width).
		Render(title + "  " + footer + "\n" + truncate(msg, width))
}
