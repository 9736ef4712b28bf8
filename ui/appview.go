// Package ui is the terminal chat surface: a transcript viewport, an input
// box that locks while a reply streams or an action awaits confirmation,
// and a teams panel refreshed by completed-action events.
package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"hackmate/bus"
	"hackmate/client"
	"hackmate/model"
	"hackmate/storage"
)

const (
	teamsPanelWidth = 30
	// Below this width the teams panel is hidden.
	minPanelLayout = 90
)

// TeamsSource lists the current user's teams.
type TeamsSource interface {
	Teams(ctx context.Context) ([]storage.Team, error)
}

type keyMap struct {
	Send      key.Binding
	Confirm   key.Binding
	Reject    key.Binding
	Copy      key.Binding
	Teams     key.Binding
	Help      key.Binding
	Quit      key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	ScrollTop key.Binding
}

var keys = keyMap{
	Send:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	Confirm:   key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "confirm")),
	Reject:    key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n", "reject")),
	Copy:      key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy last reply")),
	Teams:     key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "toggle teams")),
	Help:      key.NewBinding(key.WithKeys("f1", "ctrl+h"), key.WithHelp("f1", "help")),
	Quit:      key.NewBinding(key.WithKeys("ctrl+c", "ctrl+q"), key.WithHelp("ctrl+c", "quit")),
	PageUp:    key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
	PageDown:  key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
	ScrollTop: key.NewBinding(key.WithKeys("home"), key.WithHelp("home", "top")),
}

type AppView struct {
	ctx      context.Context
	conv     *client.Conversation
	teamsSrc TeamsSource
	sub      *bus.Subscription
	updates  chan client.Snapshot
	username string

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	snap      client.Snapshot
	busy      bool
	rendered  map[string]renderedMessage
	teams     []storage.Team
	teamsErr  error
	showTeams bool
	showHelp  bool
	status    string
}

// NewAppView wires the view to conv. Conversation changes arrive on a
// single-slot channel that always holds the newest snapshot.
func NewAppView(ctx context.Context, conv *client.Conversation, teams TeamsSource, events *bus.Bus, username string) AppView {
	ta := textarea.New()
	ta.Placeholder = "Ask about friends, teams or hackathons..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = AssistantStyle

	a := AppView{
		ctx:       ctx,
		conv:      conv,
		teamsSrc:  teams,
		updates:   make(chan client.Snapshot, 1),
		username:  username,
		textarea:  ta,
		spinner:   sp,
		rendered:  make(map[string]renderedMessage),
		showTeams: true,
	}
	if events != nil {
		a.sub = events.Subscribe(bus.TeamTopics...)
	}

	updates := a.updates
	conv.OnChange(func(s client.Snapshot) { offerLatest(updates, s) })
	return a
}

// offerLatest replaces whatever is pending in ch with s.
func offerLatest(ch chan client.Snapshot, s client.Snapshot) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (a AppView) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		a.spinner.Tick,
		a.loadTranscript(),
		a.fetchTeams(),
		a.waitForSnapshot(),
		a.waitForEvent(),
	)
}

// Close releases the bus subscription and stops change notifications.
func (a AppView) Close() {
	a.conv.Close()
	if a.sub != nil {
		a.sub.Unsubscribe()
	}
}

func (a AppView) waitForSnapshot() tea.Cmd {
	ch := a.updates
	return func() tea.Msg {
		return snapshotMsg{snap: <-ch}
	}
}

func (a AppView) waitForEvent() tea.Cmd {
	if a.sub == nil {
		return nil
	}
	events := a.sub.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return actionEventMsg{event: ev}
	}
}

func (a AppView) loadTranscript() tea.Cmd {
	return func() tea.Msg {
		return transcriptLoadedMsg{err: a.conv.Load(a.ctx)}
	}
}

func (a AppView) fetchTeams() tea.Cmd {
	if a.teamsSrc == nil {
		return nil
	}
	return func() tea.Msg {
		teams, err := a.teamsSrc.Teams(a.ctx)
		return teamsMsg{teams: teams, err: err}
	}
}

func (a AppView) submit(text string) tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{err: a.conv.Submit(a.ctx, text)}
	}
}

func (a AppView) confirm() tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{err: a.conv.Confirm(a.ctx)}
	}
}

func (a AppView) reject() tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{err: a.conv.Reject(a.ctx)}
	}
}

// lastReply returns the newest assistant message, if any.
func (a AppView) lastReply() string {
	for i := len(a.snap.Messages) - 1; i >= 0; i-- {
		if m := a.snap.Messages[i]; m.Role == model.RoleAssistant && strings.TrimSpace(m.Content) != "" {
			return m.Content
		}
	}
	return ""
}
