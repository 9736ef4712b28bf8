package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"hackmate/client"
	"hackmate/config"

	"go.uber.org/zap"
)

func (a AppView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.resize()
		// Width changes invalidate rendered markdown.
		a.rendered = make(map[string]renderedMessage)
		a.refreshViewport(true)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case snapshotMsg:
		a.snap = msg.snap
		a.refreshViewport(true)
		return a, a.waitForSnapshot()

	case turnDoneMsg:
		a.busy = false
		a.snap = a.conv.Snapshot()
		a.status = statusFor(msg.err)
		if msg.err != nil {
			config.Log.Debug("turn finished with error", zap.Error(msg.err))
		}
		a.refreshViewport(true)
		return a, nil

	case transcriptLoadedMsg:
		if msg.err != nil {
			a.status = "Couldn't load earlier messages: " + msg.err.Error()
		}
		a.snap = a.conv.Snapshot()
		a.refreshViewport(true)
		return a, nil

	case actionEventMsg:
		config.Log.Debug("action completed", zap.String("topic", string(msg.event.Topic)))
		return a, tea.Batch(a.fetchTeams(), a.waitForEvent())

	case teamsMsg:
		a.teams, a.teamsErr = msg.teams, msg.err
		return a, nil

	case copiedMsg:
		if msg.err != nil {
			a.status = "Copy failed: " + msg.err.Error()
		} else {
			a.status = "Copied last reply"
		}
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		if a.snap.Streaming || a.busy {
			a.refreshViewport(false)
		}
		return a, cmd
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

func (a AppView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		a.Close()
		return a, tea.Quit
	case key.Matches(msg, keys.Help):
		a.showHelp = !a.showHelp
		return a, nil
	case a.showHelp:
		// Any other key closes help.
		a.showHelp = false
		return a, nil
	case key.Matches(msg, keys.Copy):
		text := a.lastReply()
		return a, func() tea.Msg { return copiedMsg{err: clipboard.WriteAll(text)} }
	case key.Matches(msg, keys.Teams):
		a.showTeams = !a.showTeams
		a.resize()
		a.refreshViewport(false)
		return a, a.fetchTeams()
	case key.Matches(msg, keys.PageUp):
		a.viewport.PageUp()
		return a, nil
	case key.Matches(msg, keys.PageDown):
		a.viewport.PageDown()
		return a, nil
	case key.Matches(msg, keys.ScrollTop):
		a.viewport.GotoTop()
		return a, nil
	}

	if a.snap.Pending != nil && !a.busy && !a.snap.Executing {
		switch {
		case key.Matches(msg, keys.Confirm):
			a.busy = true
			a.status = ""
			return a, a.confirm()
		case key.Matches(msg, keys.Reject):
			a.busy = true
			a.status = ""
			return a, a.reject()
		}
		return a, nil
	}

	if !a.inputEnabled() {
		return a, nil
	}

	if key.Matches(msg, keys.Send) {
		text := strings.TrimSpace(a.textarea.Value())
		if text == "" {
			return a, nil
		}
		a.textarea.Reset()
		a.busy = true
		a.status = ""
		return a, a.submit(text)
	}

	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}

func (a AppView) inputEnabled() bool {
	return !a.busy && a.snap.InputEnabled()
}

func (a *AppView) resize() {
	chatWidth := a.chatWidth()
	a.textarea.SetWidth(chatWidth)

	// header, separator, input (3), confirm bar (2), status
	vpHeight := max(a.height-8, 3)
	if !a.ready {
		a.viewport = viewport.New(chatWidth, vpHeight)
		a.ready = true
		return
	}
	a.viewport.Width = chatWidth
	a.viewport.Height = vpHeight
}

func (a AppView) panelVisible() bool {
	return a.showTeams && a.width >= minPanelLayout
}

func (a AppView) chatWidth() int {
	if a.panelVisible() {
		return a.width - teamsPanelWidth - 2
	}
	return a.width
}

func statusFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, client.ErrTruncatedStream):
		return "The reply was cut off."
	case client.IsUnauthorized(err):
		return "Not signed in. Run `hackmate login` and try again."
	case errors.Is(err, client.ErrInputDisabled), errors.Is(err, client.ErrNoPendingAction):
		return ""
	default:
		var herr *client.HTTPError
		if errors.As(err, &herr) {
			return fmt.Sprintf("Server replied %d", herr.StatusCode)
		}
		return "Request failed"
	}
}
