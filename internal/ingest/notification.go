// Package ingest turns Drive change notifications into index updates.
package ingest

import (
	"errors"
	"fmt"
)

// Drive push notification headers carried on webhook requests.
const (
	HeaderChannelID     = "X-Goog-Channel-ID"
	HeaderResourceID    = "X-Goog-Resource-ID"
	HeaderResourceState = "X-Goog-Resource-State"
)

// ErrMissingResourceID indicates a notification without a resource id. The
// document cannot be identified, so nothing downstream is attempted. Treated
// as client input at the API boundary.
var ErrMissingResourceID = errors.New("notification missing resource id")

// Notification is the raw identity material from a webhook request.
type Notification struct {
	ChannelID  string
	ResourceID string
	State      string
}

// EventKind classifies what a notification asks the pipeline to do.
type EventKind string

const (
	// EventSync is Drive's channel-creation handshake; acknowledged, nothing
	// ingested.
	EventSync EventKind = "sync"

	// EventChanged means the document's content or metadata changed and it
	// must be re-indexed.
	EventChanged EventKind = "changed"

	// EventRemoved means the document was deleted or trashed and its chunks
	// must be purged.
	EventRemoved EventKind = "removed"
)

// Event is a resolved notification: a document identity plus the action it
// implies.
type Event struct {
	DocumentID string
	Kind       EventKind
}

// Resolve maps a notification to an Event. The sync handshake resolves
// without a document id; every other state requires one.
func Resolve(n Notification) (Event, error) {
	if n.State == "sync" {
		return Event{Kind: EventSync}, nil
	}
	if n.ResourceID == "" {
		return Event{}, fmt.Errorf("resolving notification (channel %q, state %q): %w",
			n.ChannelID, n.State, ErrMissingResourceID)
	}

	switch n.State {
	case "remove", "trash":
		return Event{DocumentID: n.ResourceID, Kind: EventRemoved}, nil
	default:
		// "add", "update", "change" and unknown future states all mean
		// re-index; the metadata fetch decides what actually happens.
		return Event{DocumentID: n.ResourceID, Kind: EventChanged}, nil
	}
}
