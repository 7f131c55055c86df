package types

// InternalLink is a `[[target]]` or `[[target|display]]` reference found in
// a note's body. TargetNoteID is empty when the link is broken.
type InternalLink struct {
	SourceID     string
	TargetRaw    string // the raw text inside [[ ]], before the | if any
	TargetNoteID string // resolved note id, "" if broken
	TargetTitle  string // the stored target text; for a broken link, the unresolved title/id
	Display      string // text after |, or TargetRaw if no display given
	Position     int    // byte offset of the match within the body
}

// Resolved reports whether this link points at an existing note.
func (l InternalLink) Resolved() bool { return l.TargetNoteID != "" }

// ExternalLink is a bare URL, markdown link, or image reference found in a
// note's body.
type ExternalLink struct {
	SourceID string
	URL      string
	Label    string
	Position int
}

// LinkGraph is the outgoing/incoming view of a single note's links, as
// returned by get_note_links.
type LinkGraph struct {
	NoteID           string
	OutgoingInternal []InternalLink
	OutgoingExternal []ExternalLink
	IncomingInternal []InternalLink
}

// BrokenLinkGroup groups broken internal links by their unresolved target
// title, as returned by find_broken_links.
type BrokenLinkGroup struct {
	TargetTitle string
	Links       []InternalLink
}
