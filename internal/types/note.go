package types

import "time"

// Note is a single note's full record: the canonical fields plus its
// user-defined metadata.
type Note struct {
	ID          string // "<type>/<slug>"
	Type        string
	Slug        string
	Title       string
	Body        string
	Filename    string // "<slug>.md"
	Path        string // absolute filesystem path
	Created     time.Time
	Updated     time.Time
	Size        int64
	ContentHash string
	Metadata    Metadata // non-reserved keys only
}

// NoteTypeInfo describes a registered note type directory.
type NoteTypeInfo struct {
	Name            string
	Path            string
	DescriptionPath string
	HasDescription  bool
	NoteCount       int
}
