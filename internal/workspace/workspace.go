// Package workspace orchestrates the vault: it owns the config, the note
// store, the index, and the search engine, and exposes the tool-level
// operations behind a single-writer lock.
package workspace

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/taigrr/flint-note/internal/config"
	"github.com/taigrr/flint-note/internal/flinterrors"
	"github.com/taigrr/flint-note/internal/index"
	"github.com/taigrr/flint-note/internal/linksync"
	"github.com/taigrr/flint-note/internal/logging"
	"github.com/taigrr/flint-note/internal/notestore"
	"github.com/taigrr/flint-note/internal/pathfilter"
	"github.com/taigrr/flint-note/internal/search"
	"github.com/taigrr/flint-note/internal/types"
)

// MetaDir is the workspace metadata directory name.
const MetaDir = ".flint-note"

// Workspace is one opened vault. All mutating operations serialize behind
// mu's write side; searches share the read side, so they run concurrently
// with each other but never interleave with a writer.
type Workspace struct {
	Root string
	Cfg  config.Config

	mu      sync.RWMutex
	db      *index.DB
	indexer *index.Indexer
	sync    *linksync.Synchronizer
	store   *notestore.Store
	engine  *search.Engine
	log     zerolog.Logger
}

// Open loads the workspace at root: reads its config, opens (creating if
// needed) the index database, and rebuilds the index when it was just
// created, when FORCE_INDEX_REBUILD is set, or when the config asks for a
// rebuild on startup.
func Open(ctx context.Context, root string) (*Workspace, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "resolve workspace path", err)
	}
	if err := os.MkdirAll(filepath.Join(absRoot, MetaDir), 0o755); err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "create workspace metadata directory", err)
	}

	cfg, err := config.Load(filepath.Join(absRoot, MetaDir, "config.yml"), absRoot)
	if err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "load workspace config", err)
	}

	indexPath := cfg.Search.IndexPath
	if indexPath == "" {
		indexPath = filepath.Join(MetaDir, "search.db")
	}
	if !filepath.IsAbs(indexPath) {
		indexPath = filepath.Join(absRoot, indexPath)
	}
	_, statErr := os.Stat(indexPath)
	freshIndex := os.IsNotExist(statErr)

	db, err := index.Open(indexPath)
	if err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "open search index", err)
	}

	ws := &Workspace{
		Root: absRoot,
		Cfg:  cfg,
		db:   db,
		log:  logging.WithComponent("workspace"),
	}

	// The loader closes over a store without lifecycle hooks: rebuild reads
	// files directly and must not re-emit events.
	loader := notestore.New(absRoot, cfg, nil)
	pf := pathfilter.New(cfg.Security.AllowedExtensions)
	ws.indexer = index.NewIndexer(db, absRoot, loader.LoadFile, pf)
	ws.sync = linksync.New(db, ws.indexer)
	ws.store = notestore.New(absRoot, cfg, ws.sync)
	ws.engine = search.New(db)

	if freshIndex || os.Getenv("FORCE_INDEX_REBUILD") != "" || cfg.Search.RebuildOnStartup {
		ws.log.Info().Str("workspace", absRoot).Msg("rebuilding search index")
		err := ws.indexer.Rebuild(ctx, func(processed, total int) {
			ws.log.Info().Int("processed", processed).Int("total", total).Msg("index rebuild progress")
		})
		if err != nil {
			db.Close()
			return nil, flinterrors.Wrap(flinterrors.IO, "rebuild search index", err)
		}
	}

	return ws, nil
}

// Close releases the index handles.
func (ws *Workspace) Close() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.db.Close()
}

// Rebuild re-projects the whole workspace onto the index.
func (ws *Workspace) Rebuild(ctx context.Context, progress func(processed, total int)) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.indexer.Rebuild(ctx, progress)
}

// CreateNote writes a new note and indexes it.
func (ws *Workspace) CreateNote(noteType, title, body string, metadata types.Metadata) (*types.Note, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.store.Create(noteType, title, body, metadata)
}

// GetNote loads a note by identifier from disk.
func (ws *Workspace) GetNote(identifier string) (*types.Note, error) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.store.Get(identifier)
}

// UpdateNote applies a body/metadata patch under optimistic concurrency.
func (ws *Workspace) UpdateNote(identifier string, patch notestore.UpdatePatch, priorHash string) (*types.Note, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.store.Update(identifier, patch, priorHash)
}

// UpdateNotes applies a batch of patches; each item succeeds or fails
// independently.
func (ws *Workspace) UpdateNotes(items []notestore.BatchItem) []notestore.BatchResult {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.store.UpdateBatch(items)
}

// RenameNote changes a note's title, preserving filename and id, and
// resolves any broken links that referenced the new title.
func (ws *Workspace) RenameNote(identifier, newTitle, priorHash string) (*notestore.RenameResult, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.store.Rename(identifier, newTitle, priorHash)
}

// MoveNote relocates a note to another type directory, changing its id.
func (ws *Workspace) MoveNote(identifier, newType, priorHash string) (*notestore.MoveResult, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.store.Move(identifier, newType, priorHash)
}

// DeleteNote removes a note, backing it up first when configured.
func (ws *Workspace) DeleteNote(identifier, priorHash string, confirm bool) (*notestore.DeleteResult, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.store.Delete(identifier, priorHash, confirm)
}

// SearchNotes runs the simple text search.
func (ws *Workspace) SearchNotes(params types.SimpleSearchParams) ([]types.SimpleSearchResult, error) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	if params.Limit == 0 {
		params.Limit = ws.Cfg.Search.MaxResults
	}
	return ws.engine.Simple(params)
}

// SearchNotesAdvanced runs the structured search.
func (ws *Workspace) SearchNotesAdvanced(params types.AdvancedSearchParams) (*types.AdvancedSearchResult, error) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.engine.Advanced(params)
}

// SearchNotesSQL runs a restricted SELECT against the index.
func (ws *Workspace) SearchNotesSQL(params types.SQLSearchParams) (*types.SQLSearchResult, error) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.engine.SQL(params)
}

// NotesByTags returns notes carrying the given tags.
func (ws *Workspace) NotesByTags(tags []string, requireAll bool) ([]types.Note, error) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.engine.ByTags(tags, requireAll)
}

// SimilarNotes returns the k notes most similar to id.
func (ws *Workspace) SimilarNotes(id string, k int) ([]types.SimpleSearchResult, error) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.engine.Similar(id, k)
}

// NoteLinks returns the outgoing and incoming links of one note.
func (ws *Workspace) NoteLinks(identifier string) (*types.LinkGraph, error) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	note, err := ws.store.Get(identifier)
	if err != nil {
		return nil, err
	}
	return ws.sync.LinksFor(note.ID)
}

// BrokenLinks returns every unresolved internal link grouped by target.
func (ws *Workspace) BrokenLinks() ([]types.BrokenLinkGroup, error) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.sync.BrokenLinks()
}

// LinkNotes appends a wiki link to the source note's body, pointing at the
// target note, and re-indexes the source.
func (ws *Workspace) LinkNotes(sourceID, targetID, priorHash string) (*types.Note, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	target, err := ws.store.Get(targetID)
	if err != nil {
		return nil, err
	}
	source, err := ws.store.Get(sourceID)
	if err != nil {
		return nil, err
	}

	body := source.Body
	if body != "" && body[len(body)-1] != '\n' {
		body += "\n"
	}
	body += "[[" + target.ID + "]]\n"
	return ws.store.Update(source.ID, notestore.UpdatePatch{Body: &body}, priorHash)
}
