// Package linksync keeps the link graph consistent with the note
// lifecycle: it consumes the events the note store emits and drives the
// indexer to reconcile rows, including broken-link resolution on rename.
package linksync

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/taigrr/flint-note/internal/index"
	"github.com/taigrr/flint-note/internal/logging"
	"github.com/taigrr/flint-note/internal/types"
)

// Synchronizer reacts to lifecycle events. It satisfies the note store's
// Lifecycle contract.
type Synchronizer struct {
	db      *index.DB
	indexer *index.Indexer
	log     zerolog.Logger
}

// New returns a synchronizer reconciling through indexer.
func New(db *index.DB, indexer *index.Indexer) *Synchronizer {
	return &Synchronizer{
		db:      db,
		indexer: indexer,
		log:     logging.WithComponent("linksync"),
	}
}

// NoteCommitted reconciles the index after a committed mutation. The
// returned count is non-zero only for renames: the number of previously
// broken links now resolving to the renamed note.
func (s *Synchronizer) NoteCommitted(event types.LifecycleEvent) (int, error) {
	switch event.Kind {
	case types.EventCreated, types.EventUpdated:
		return 0, s.indexer.Upsert(&event.Note)

	case types.EventRenamed:
		if err := s.indexer.Upsert(&event.Note); err != nil {
			return 0, err
		}
		resolved, err := s.indexer.ResolveBroken(event.NewTitle, event.Note.ID)
		if err != nil {
			return 0, err
		}
		if resolved > 0 {
			s.log.Info().Str("note", event.Note.ID).Str("title", event.NewTitle).
				Int("resolved", resolved).Msg("rename resolved broken links")
		}
		return resolved, nil

	case types.EventMoved:
		return 0, s.indexer.Move(event.OldID, &event.Note)

	case types.EventDeleted:
		return 0, s.indexer.Remove(event.DeletedID, event.Note.Title)

	default:
		return 0, fmt.Errorf("unknown lifecycle event %q", event.Kind)
	}
}

// LinksFor returns the outgoing and incoming link view of one note.
func (s *Synchronizer) LinksFor(noteID string) (*types.LinkGraph, error) {
	graph := &types.LinkGraph{NoteID: noteID}

	outgoing, err := s.queryInternal(
		`SELECT source_id, target_id, target_title, display, position
		 FROM internal_links WHERE source_id = ? ORDER BY position`, noteID)
	if err != nil {
		return nil, err
	}
	graph.OutgoingInternal = outgoing

	incoming, err := s.queryInternal(
		`SELECT source_id, target_id, target_title, display, position
		 FROM internal_links WHERE target_id = ? ORDER BY source_id, position`, noteID)
	if err != nil {
		return nil, err
	}
	graph.IncomingInternal = incoming

	rows, err := s.db.Reader().Query(
		`SELECT source_id, url, label, position FROM external_links WHERE source_id = ? ORDER BY position`,
		noteID)
	if err != nil {
		return nil, fmt.Errorf("load external links %s: %w", noteID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var link types.ExternalLink
		if err := rows.Scan(&link.SourceID, &link.URL, &link.Label, &link.Position); err != nil {
			return nil, fmt.Errorf("scan external link %s: %w", noteID, err)
		}
		graph.OutgoingExternal = append(graph.OutgoingExternal, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load external links %s: %w", noteID, err)
	}

	return graph, nil
}

// BrokenLinks returns every unresolved internal link, grouped by the
// target text that failed to resolve.
func (s *Synchronizer) BrokenLinks() ([]types.BrokenLinkGroup, error) {
	links, err := s.queryInternal(
		`SELECT source_id, target_id, target_title, display, position
		 FROM internal_links WHERE target_id IS NULL ORDER BY target_title, source_id, position`, nil)
	if err != nil {
		return nil, err
	}

	var groups []types.BrokenLinkGroup
	for _, link := range links {
		if len(groups) == 0 || groups[len(groups)-1].TargetTitle != link.TargetTitle {
			groups = append(groups, types.BrokenLinkGroup{TargetTitle: link.TargetTitle})
		}
		last := &groups[len(groups)-1]
		last.Links = append(last.Links, link)
	}
	return groups, nil
}

func (s *Synchronizer) queryInternal(query string, arg any) ([]types.InternalLink, error) {
	var rows *sql.Rows
	var err error
	if arg == nil {
		rows, err = s.db.Reader().Query(query)
	} else {
		rows, err = s.db.Reader().Query(query, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("load internal links: %w", err)
	}
	defer rows.Close()

	var links []types.InternalLink
	for rows.Next() {
		var link types.InternalLink
		var target sql.NullString
		if err := rows.Scan(&link.SourceID, &target, &link.TargetTitle, &link.Display, &link.Position); err != nil {
			return nil, fmt.Errorf("scan internal link: %w", err)
		}
		link.TargetNoteID = target.String
		link.TargetRaw = link.TargetTitle
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load internal links: %w", err)
	}
	return links, nil
}
