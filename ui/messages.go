package ui

import (
	"hackmate/bus"
	"hackmate/client"
	"hackmate/storage"
)

// snapshotMsg carries conversation state pushed from a running turn.
type snapshotMsg struct {
	snap client.Snapshot
}

// turnDoneMsg ends a Submit, Confirm or Reject started from the UI.
type turnDoneMsg struct {
	err error
}

type transcriptLoadedMsg struct {
	err error
}

// actionEventMsg signals that a completed action may have changed what the
// side panel shows.
type actionEventMsg struct {
	event bus.Event
}

type teamsMsg struct {
	teams []storage.Team
	err   error
}

type copiedMsg struct {
	err error
}
