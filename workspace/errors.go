// Package workspace holds the per-screen state controllers of the CRM client:
// aggregate loading, buffered attachment and note edits, the hand-off between
// detail and edit screens, and the shell layout shared by every screen.
package workspace

import "errors"

var (
	// ErrIndexOutOfRange is returned by RemoveAt for a position outside the buffer.
	ErrIndexOutOfRange = errors.New("attachment index out of range")

	// ErrEmptyDraft rejects a submit with neither plain nor rich text.
	ErrEmptyDraft = errors.New("comment draft is empty")

	// ErrSubmitInFlight rejects a submit while another for the same draft is outstanding.
	ErrSubmitInFlight = errors.New("a submission is already in progress")

	// ErrDiscarded marks a load result that arrived after the screen moved on.
	ErrDiscarded = errors.New("load result discarded")

	// ErrNoHandoff means the destination must re-fetch by id.
	ErrNoHandoff = errors.New("no navigation hand-off for route")

	// ErrNotLoaded is returned when an operation needs a loaded aggregate.
	ErrNotLoaded = errors.New("aggregate not loaded")
)
