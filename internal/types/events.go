package types

// EventKind identifies the lifecycle event emitted by the note store on
// every mutation.
type EventKind string

const (
	EventCreated EventKind = "Created"
	EventUpdated EventKind = "Updated"
	EventRenamed EventKind = "Renamed"
	EventMoved   EventKind = "Moved"
	EventDeleted EventKind = "Deleted"
)

// LifecycleEvent is emitted by the note store after a mutation commits to
// disk, and consumed by the link synchronizer (C9) to reconcile the index.
type LifecycleEvent struct {
	Kind EventKind
	Note Note // the post-mutation note record (zero Body-only fields for Deleted)

	// Updated
	OldBodyHash string
	NewBodyHash string

	// Renamed
	OldTitle string
	NewTitle string

	// Moved
	OldID string
	NewID string

	// Deleted
	DeletedID string
}
