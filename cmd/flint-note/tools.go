package main

import "github.com/modelcontextprotocol/go-sdk/mcp"

type (
	// NoteRecord is the JSON shape of a full note returned by the tools.
	NoteRecord struct {
		ID          string         `json:"id"`
		Type        string         `json:"type"`
		Title       string         `json:"title"`
		Content     string         `json:"content,omitempty"`
		Filename    string         `json:"filename"`
		Path        string         `json:"path"`
		Created     string         `json:"created"`
		Updated     string         `json:"updated"`
		Size        int64          `json:"size"`
		ContentHash string         `json:"content_hash"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}

	// CreateNoteInput contains parameters for creating a note.
	CreateNoteInput struct {
		Type     string         `json:"type,omitempty" jsonschema:"Note type (directory); the workspace default when omitted"`
		Title    string         `json:"title" jsonschema:"Note title; the slug and filename derive from it"`
		Content  string         `json:"content,omitempty" jsonschema:"Markdown body"`
		Metadata map[string]any `json:"metadata,omitempty" jsonschema:"Front-matter metadata key/value pairs"`
	}

	// GetNoteInput contains parameters for reading a note.
	GetNoteInput struct {
		Identifier string `json:"identifier" jsonschema:"Note identifier of the form <type>/<slug>, .md optional"`
	}

	// UpdateItem is one element of a batched update.
	UpdateItem struct {
		Identifier  string         `json:"identifier" jsonschema:"Note identifier of the form <type>/<slug>"`
		Content     *string        `json:"content,omitempty" jsonschema:"Replacement Markdown body (omit to keep)"`
		Metadata    map[string]any `json:"metadata,omitempty" jsonschema:"Metadata patch; keys set to null are deleted. title, filename, and type are protected"`
		ContentHash string         `json:"content_hash" jsonschema:"Hash returned by the last read of this note (optimistic concurrency)"`
	}

	// UpdateNoteInput updates a single note, or several when updates is set.
	UpdateNoteInput struct {
		Identifier  string         `json:"identifier,omitempty" jsonschema:"Note identifier (single update)"`
		Content     *string        `json:"content,omitempty" jsonschema:"Replacement Markdown body (omit to keep)"`
		Metadata    map[string]any `json:"metadata,omitempty" jsonschema:"Metadata patch; keys set to null are deleted. title, filename, and type are protected"`
		ContentHash string         `json:"content_hash,omitempty" jsonschema:"Hash returned by the last read of this note"`
		Updates     []UpdateItem   `json:"updates,omitempty" jsonschema:"Batch of updates; each item succeeds or fails independently"`
	}

	// UpdateItemResult is one batched item's outcome.
	UpdateItemResult struct {
		Identifier string      `json:"identifier"`
		Success    bool        `json:"success"`
		Note       *NoteRecord `json:"note,omitempty"`
		Error      *ErrorBody  `json:"error,omitempty"`
	}

	// UpdateNoteOutput contains the result of an update.
	UpdateNoteOutput struct {
		Note    *NoteRecord        `json:"note,omitempty"`
		Results []UpdateItemResult `json:"results,omitempty"`
	}

	// RenameNoteInput contains parameters for renaming a note (title only).
	RenameNoteInput struct {
		Identifier  string `json:"identifier" jsonschema:"Note identifier of the form <type>/<slug>"`
		NewTitle    string `json:"new_title" jsonschema:"New title; filename and id are preserved"`
		ContentHash string `json:"content_hash" jsonschema:"Hash returned by the last read of this note"`
	}

	// RenameNoteOutput contains the result of a rename.
	RenameNoteOutput struct {
		Note                NoteRecord `json:"note"`
		BrokenLinksResolved int        `json:"broken_links_resolved"`
	}

	// MoveNoteInput contains parameters for moving a note across types.
	MoveNoteInput struct {
		Identifier  string `json:"identifier" jsonschema:"Note identifier of the form <type>/<slug>"`
		NewType     string `json:"new_type" jsonschema:"Destination note type; the id changes with it"`
		ContentHash string `json:"content_hash" jsonschema:"Hash returned by the last read of this note"`
	}

	// MoveNoteOutput contains the result of a move.
	MoveNoteOutput struct {
		Note  NoteRecord `json:"note"`
		OldID string     `json:"old_id"`
		NewID string     `json:"new_id"`
	}

	// DeleteNoteInput contains parameters for deleting a note.
	DeleteNoteInput struct {
		Identifier  string `json:"identifier" jsonschema:"Note identifier of the form <type>/<slug>"`
		ContentHash string `json:"content_hash,omitempty" jsonschema:"Hash returned by the last read of this note"`
		Confirm     bool   `json:"confirm,omitempty" jsonschema:"Must be true when the workspace requires deletion confirmation"`
	}

	// DeleteNoteOutput contains the result of a deletion.
	DeleteNoteOutput struct {
		ID         string `json:"id"`
		Deleted    bool   `json:"deleted"`
		BackupPath string `json:"backup_path,omitempty"`
	}

	// SearchNotesInput contains parameters for the simple text search.
	SearchNotesInput struct {
		Query      string `json:"query,omitempty" jsonschema:"Search text; empty lists notes by recency"`
		TypeFilter string `json:"type_filter,omitempty" jsonschema:"Restrict results to one note type"`
		Limit      int    `json:"limit,omitempty" jsonschema:"Maximum results (workspace max_results when omitted)"`
		UseRegex   bool   `json:"use_regex,omitempty" jsonschema:"Treat query as a case-insensitive regular expression"`
	}

	// SearchHit is one simple-search result.
	SearchHit struct {
		ID       string         `json:"id"`
		Title    string         `json:"title"`
		Type     string         `json:"type"`
		Tags     []string       `json:"tags,omitempty"`
		Score    float64        `json:"score"`
		Snippet  string         `json:"snippet,omitempty"`
		Created  string         `json:"created"`
		Updated  string         `json:"updated"`
		Filename string         `json:"filename"`
		Path     string         `json:"path"`
		Size     int64          `json:"size"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}

	// SearchNotesOutput contains simple-search results.
	SearchNotesOutput struct {
		Results []SearchHit `json:"results"`
	}

	// MetadataFilterInput is one metadata clause of an advanced search.
	MetadataFilterInput struct {
		Key      string `json:"key" jsonschema:"Metadata key to filter on"`
		Value    string `json:"value" jsonschema:"Comparison value; comma-separated for IN"`
		Operator string `json:"operator,omitempty" jsonschema:"One of = != < <= > >= LIKE IN (default =)"`
	}

	// SortInput is one sort clause of an advanced search.
	SortInput struct {
		Field string `json:"field" jsonschema:"One of title, type, created, updated, size"`
		Order string `json:"order,omitempty" jsonschema:"asc or desc"`
	}

	// SearchNotesAdvancedInput contains parameters for the structured search.
	SearchNotesAdvancedInput struct {
		Type            string                `json:"type,omitempty" jsonschema:"Restrict to one note type"`
		MetadataFilters []MetadataFilterInput `json:"metadata_filters,omitempty" jsonschema:"Typed metadata filters, ANDed together"`
		UpdatedWithin   string                `json:"updated_within,omitempty" jsonschema:"Duration like 7d, 2w, 3m, 1y"`
		UpdatedBefore   string                `json:"updated_before,omitempty" jsonschema:"Duration like 7d, 2w, 3m, 1y"`
		CreatedWithin   string                `json:"created_within,omitempty" jsonschema:"Duration like 7d, 2w, 3m, 1y"`
		CreatedBefore   string                `json:"created_before,omitempty" jsonschema:"Duration like 7d, 2w, 3m, 1y"`
		ContentContains string                `json:"content_contains,omitempty" jsonschema:"Full-text match over the note title, body, and tags"`
		Sort            []SortInput           `json:"sort,omitempty" jsonschema:"Sort order (default updated desc)"`
		Limit           int                   `json:"limit,omitempty" jsonschema:"Page size (default 50)"`
		Offset          int                   `json:"offset,omitempty" jsonschema:"Page offset (default 0)"`
	}

	// SearchNotesAdvancedOutput contains structured-search results.
	SearchNotesAdvancedOutput struct {
		Results     []NoteRecord `json:"results"`
		Total       int          `json:"total"`
		HasMore     bool         `json:"has_more"`
		QueryTimeMs int64        `json:"query_time_ms"`
	}

	// SearchNotesSQLInput contains parameters for the safe-SQL search.
	SearchNotesSQLInput struct {
		Query   string `json:"query" jsonschema:"A SELECT over notes, note_metadata, notes_fts, internal_links, external_links"`
		Params  []any  `json:"params,omitempty" jsonschema:"Positional bind parameters"`
		Limit   int    `json:"limit,omitempty" jsonschema:"Appended as LIMIT when the query has none (default 1000)"`
		Timeout int    `json:"timeout,omitempty" jsonschema:"Query timeout in milliseconds (default 30000)"`
	}

	// SearchNotesSQLOutput contains safe-SQL results: raw rows or full note
	// records.
	SearchNotesSQLOutput struct {
		IsAggregation bool             `json:"is_aggregation"`
		Columns       []string         `json:"columns,omitempty"`
		Rows          []map[string]any `json:"rows,omitempty"`
		Notes         []NoteRecord     `json:"notes,omitempty"`
	}

	// LinkNotesInput contains parameters for linking two notes.
	LinkNotesInput struct {
		Source      string `json:"source" jsonschema:"Identifier of the note gaining the link"`
		Target      string `json:"target" jsonschema:"Identifier of the note being linked to"`
		ContentHash string `json:"content_hash" jsonschema:"Hash returned by the last read of the source note"`
	}

	// LinkNotesOutput contains the updated source note.
	LinkNotesOutput struct {
		Note NoteRecord `json:"note"`
	}

	// GetNoteLinksInput contains parameters for reading a note's links.
	GetNoteLinksInput struct {
		Identifier string `json:"identifier" jsonschema:"Note identifier of the form <type>/<slug>"`
	}

	// InternalLinkRecord is one internal link row.
	InternalLinkRecord struct {
		Source   string `json:"source"`
		Target   string `json:"target,omitempty"`
		Text     string `json:"text"`
		Display  string `json:"display"`
		Position int    `json:"position"`
		Broken   bool   `json:"broken,omitempty"`
	}

	// ExternalLinkRecord is one external link row.
	ExternalLinkRecord struct {
		Source   string `json:"source"`
		URL      string `json:"url"`
		Label    string `json:"label,omitempty"`
		Position int    `json:"position"`
	}

	// GetNoteLinksOutput contains a note's link graph.
	GetNoteLinksOutput struct {
		ID               string               `json:"id"`
		OutgoingInternal []InternalLinkRecord `json:"outgoing_internal"`
		OutgoingExternal []ExternalLinkRecord `json:"outgoing_external"`
		IncomingInternal []InternalLinkRecord `json:"incoming_internal"`
	}

	// FindBrokenLinksInput contains parameters for listing broken links.
	FindBrokenLinksInput struct{}

	// BrokenLinkGroupRecord groups broken links by unresolved target.
	BrokenLinkGroupRecord struct {
		TargetTitle string               `json:"target_title"`
		Links       []InternalLinkRecord `json:"links"`
	}

	// FindBrokenLinksOutput contains all broken links in the workspace.
	FindBrokenLinksOutput struct {
		Groups []BrokenLinkGroupRecord `json:"groups"`
		Total  int                     `json:"total"`
	}

	// CreateNoteTypeInput contains parameters for registering a note type.
	CreateNoteTypeInput struct {
		Name        string `json:"name" jsonschema:"Note type name: letters, digits, underscores, hyphens"`
		Description string `json:"description,omitempty" jsonschema:"Description / agent instructions for this type"`
	}

	// UpdateNoteTypeInput contains parameters for updating a note type.
	UpdateNoteTypeInput struct {
		Name        string `json:"name" jsonschema:"Note type name"`
		Description string `json:"description" jsonschema:"Replacement description"`
	}

	// GetNoteTypeInfoInput contains parameters for describing a note type.
	GetNoteTypeInfoInput struct {
		Name string `json:"name" jsonschema:"Note type name"`
	}

	// NoteTypeRecord describes one note type.
	NoteTypeRecord struct {
		Name        string `json:"name"`
		Path        string `json:"path"`
		NoteCount   int    `json:"note_count"`
		Description string `json:"description,omitempty"`
	}

	// NoteTypeOutput contains one note type's info.
	NoteTypeOutput struct {
		NoteType NoteTypeRecord `json:"note_type"`
	}

	// ListNoteTypesInput contains parameters for listing note types.
	ListNoteTypesInput struct{}

	// ListNoteTypesOutput contains all note types in the workspace.
	ListNoteTypesOutput struct {
		NoteTypes []NoteTypeRecord `json:"note_types"`
	}

	// ErrorBody is the {kind, message} error payload.
	ErrorBody struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}
)

func registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_note",
		Description: "Create a note of the given type. The title determines the slug, filename, and id.",
	}, handleCreateNote)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_note",
		Description: "Read a note by identifier (<type>/<slug>). Returns the full record including content hash and metadata.",
	}, handleGetNote)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_note",
		Description: "Update a note's body and/or metadata under optimistic concurrency. Pass updates[] for a batch; items succeed or fail independently. title, filename, and type are protected: use rename_note or move_note.",
	}, handleUpdateNote)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rename_note",
		Description: "Change a note's title. The filename and id are preserved; broken links referencing the new title resolve to this note.",
	}, handleRenameNote)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "move_note",
		Description: "Move a note to a different note type. The id changes; incoming links are rewritten.",
	}, handleMoveNote)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_note",
		Description: "Delete a note. Writes a backup first when the workspace is configured to keep them.",
	}, handleDeleteNote)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_notes",
		Description: "Full-text search over titles and bodies with prefix matching and snippets. Empty query lists notes by recency; use_regex switches to a regex scan.",
	}, handleSearchNotes)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_notes_advanced",
		Description: "Structured search: metadata filters, date ranges, content matching, sorting, and pagination.",
	}, handleSearchNotesAdvanced)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_notes_sql",
		Description: "Run a restricted read-only SELECT against the note index. Aggregation queries return raw rows; others return full note records when every row has an id column, raw rows otherwise.",
	}, handleSearchNotesSQL)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "link_notes",
		Description: "Append a wiki link from one note to another.",
	}, handleLinkNotes)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_note_links",
		Description: "List a note's outgoing internal links, outgoing external links, and incoming links.",
	}, handleGetNoteLinks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_broken_links",
		Description: "List every internal link whose target does not resolve to an existing note, grouped by target.",
	}, handleFindBrokenLinks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_note_type",
		Description: "Register a new note type directory with an optional description.",
	}, handleCreateNoteType)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_note_type",
		Description: "Replace a note type's description.",
	}, handleUpdateNoteType)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_note_type_info",
		Description: "Describe one note type: path, note count, and description.",
	}, handleGetNoteTypeInfo)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_note_types",
		Description: "List all note types in the workspace.",
	}, handleListNoteTypes)
}
