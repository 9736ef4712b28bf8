package ui

import (
	"fmt"
	"regexp"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/charmbracelet/lipgloss"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"
	"github.com/mattn/go-runewidth"

	"hackmate/model"
	"hackmate/storage"
)

var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
)

// renderedMessage caches the markdown rendering of one message body.
type renderedMessage struct {
	content string
	output  string
}

func (a AppView) View() string {
	if !a.ready {
		return "\n  Loading..."
	}
	if a.showHelp {
		return renderHelp(a.width, a.height)
	}

	chat := a.viewport.View()
	if a.panelVisible() {
		chat = lipgloss.JoinHorizontal(lipgloss.Top, chat, a.renderTeamsPanel(a.viewport.Height))
	}

	sections := []string{a.renderHeader(), chat}
	if a.snap.Pending != nil {
		sections = append(sections, renderConfirmBar(*a.snap.Pending, a.snap.Queue, a.snap.Executing || a.busy, a.width))
	} else {
		sections = append(sections, DimStyle.Render(strings.Repeat("─", a.width)))
	}
	sections = append(sections, a.textarea.View(), a.renderStatus())
	return strings.Join(sections, "\n")
}

func (a AppView) renderHeader() string {
	title := TitleStyle.Render("hackmate")
	if a.username != "" {
		title += DimStyle.Render("  @" + a.username)
	}
	return title
}

func (a AppView) renderStatus() string {
	var left string
	switch {
	case a.snap.Executing:
		left = a.spinner.View() + " Running confirmed steps..."
	case a.snap.Streaming || a.busy:
		left = a.spinner.View() + " Thinking..."
	case a.status != "":
		left = WarningStyle.Render(a.status)
	}

	footer := FormatFooter("enter", "Send", "ctrl+y", "Copy", "ctrl+t", "Teams", "f1", "Help")
	if a.snap.Pending != nil {
		footer = FormatFooter("y", "Confirm", "n", "Reject", "f1", "Help")
	}
	gap := a.width - lipgloss.Width(left) - lipgloss.Width(footer)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + StatusStyle.Render(footer)
}

func (a *AppView) refreshViewport(gotoBottom bool) {
	if !a.ready {
		return
	}
	a.viewport.SetContent(a.renderMessages())
	if gotoBottom {
		a.viewport.GotoBottom()
	}
}

func (a *AppView) renderMessages() string {
	if len(a.snap.Messages) == 0 {
		return DimStyle.Render("No messages yet. Try \"show my teams\".")
	}

	var b strings.Builder
	last := len(a.snap.Messages) - 1
	for i, msg := range a.snap.Messages {
		timestamp := DimStyle.Render(msg.CreatedAt.Local().Format("[15:04]"))

		if msg.Role == model.RoleUser {
			b.WriteString(formatUserMessage(timestamp, UserStyle.Render("You"), msg.Content))
			continue
		}

		body := msg.Content
		if i == last && a.snap.Streaming {
			body += "▋"
		} else {
			body = a.renderMarkdown(msg)
		}
		fmt.Fprintf(&b, "%s %s\n%s\n\n", timestamp, AssistantStyle.Render("Assistant"), body)
	}

	if a.snap.Streaming && a.snap.Messages[last].Role == model.RoleUser {
		fmt.Fprintf(&b, "%s %s\n", AssistantStyle.Render("Assistant"), a.spinner.View())
	}
	return b.String()
}

func (a *AppView) renderMarkdown(msg model.Message) string {
	if cached, ok := a.rendered[msg.ID]; ok && cached.content == msg.Content {
		return cached.output
	}
	out := renderMarkdown(msg.Content, a.viewport.Width)
	if msg.ID != "" {
		a.rendered[msg.ID] = renderedMessage{content: msg.Content, output: out}
	}
	return out
}

// renderMarkdown renders body for a terminal of the given width. Links are
// reduced to bare URLs so terminals can detect them.
func renderMarkdown(body string, width int) string {
	body = mdLinkRegex.ReplaceAllString(body, "$2")

	ext := markdown.Extensions() &^ parser.Autolink
	p := parser.NewWithExtensions(ext)
	r := markdown.NewRenderer(max(width-4, 20), 0)
	out := string(gomarkdown.Render(p.Parse([]byte(body)), r))

	out = inlineCodeRegex.ReplaceAllString(out, "\x1b[31m$1\x1b[0m")
	return strings.TrimRight(out, "\n")
}

func formatUserMessage(timestamp, role, content string) string {
	bar := UserStyle.Render("┃")

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", bar, timestamp, role)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(&b, "%s %s\n", bar, line)
	}
	b.WriteString("\n")
	return b.String()
}

func (a AppView) renderTeamsPanel(height int) string {
	inner := teamsPanelWidth - 2
	lines := []string{TitleStyle.Render("Teams"), ""}

	switch {
	case a.teamsErr != nil:
		lines = append(lines, ErrorStyle.Render(truncate("unavailable", inner)))
	case len(a.teams) == 0:
		lines = append(lines, DimStyle.Render("No teams yet"))
	default:
		for _, t := range a.teams {
			name := truncate(t.Name, inner)
			if t.Role == storage.RoleLeader {
				name = HighlightStyle.Render(name)
			}
			lines = append(lines, name)
			detail := fmt.Sprintf("%s · %d member", t.HackathonSlug, t.MemberCount)
			if t.MemberCount != 1 {
				detail += "s"
			}
			lines = append(lines, DimStyle.Render(truncate(detail, inner)), "")
		}
	}

	if len(lines) > height {
		lines = lines[:height]
	}
	return PanelStyle.Width(teamsPanelWidth).Height(height).Render(strings.Join(lines, "\n"))
}

// truncate shortens s to width display cells.
func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
