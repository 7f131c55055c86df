package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/taigrr/flint-note/internal/linkextract"
	"github.com/taigrr/flint-note/internal/logging"
	"github.com/taigrr/flint-note/internal/pathfilter"
	"github.com/taigrr/flint-note/internal/types"
)

// NoteLoader reads and parses a note file into its full record. The
// indexer stays ignorant of front-matter handling; the note store supplies
// this at wiring time.
type NoteLoader func(absPath string) (*types.Note, error)

// Indexer projects note records onto the index database.
type Indexer struct {
	db        *DB
	workspace string
	load      NoteLoader
	filter    *pathfilter.PathFilter
	log       zerolog.Logger
}

// NewIndexer returns an indexer writing through db for the given
// workspace root. filter may be nil to accept every Markdown file.
func NewIndexer(db *DB, workspace string, load NoteLoader, filter *pathfilter.PathFilter) *Indexer {
	return &Indexer{
		db:        db,
		workspace: workspace,
		load:      load,
		filter:    filter,
		log:       logging.WithComponent("indexer"),
	}
}

const rebuildBatchSize = 32

// TimeFormat is how timestamps are stored in notes rows: ISO-8601, UTC.
const TimeFormat = time.RFC3339

// Upsert inserts or refreshes every index row derived from note: the notes
// row itself, its metadata rows, its FTS row, and its outgoing link rows.
// Outgoing links are reconciled by diffing against the current rows keyed
// on (target, display) / (url, label), so rows whose text is unchanged
// keep their identity across content edits.
func (ix *Indexer) Upsert(note *types.Note) error {
	tx, err := ix.db.writer.Begin()
	if err != nil {
		return fmt.Errorf("begin index upsert: %w", err)
	}
	defer tx.Rollback()

	if err := upsertNoteRow(tx, note); err != nil {
		return err
	}
	if err := replaceMetadataRows(tx, note); err != nil {
		return err
	}
	if err := refreshFTSRow(tx, note); err != nil {
		return err
	}
	if err := ix.reconcileOutgoingLinks(tx, note); err != nil {
		return err
	}

	return tx.Commit()
}

// Remove deletes the notes row for id, cascading its metadata and outgoing
// link rows, and flips inbound internal links to broken, recording
// lastTitle (or the id itself when no title is known) as the unresolved
// target.
func (ix *Indexer) Remove(id, lastTitle string) error {
	tx, err := ix.db.writer.Begin()
	if err != nil {
		return fmt.Errorf("begin index remove: %w", err)
	}
	defer tx.Rollback()

	if lastTitle == "" {
		lastTitle = id
	}
	if _, err := tx.Exec(
		`UPDATE internal_links SET target_id = NULL, target_title = ? WHERE target_id = ?`,
		lastTitle, id,
	); err != nil {
		return fmt.Errorf("break inbound links for %s: %w", id, err)
	}

	if _, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete notes row %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM notes_fts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete fts row %s: %w", id, err)
	}

	return tx.Commit()
}

// Rebuild clears every index row and re-projects the workspace from disk.
// The scan skips top-level names starting with "." and files starting with
// "." or "_". Files that fail to load are logged and skipped; the rebuild
// completes regardless. progress, when non-nil, receives (processed, total)
// after each batch. The clear-and-refill runs in one transaction, so
// readers observe either the old or the new projection, never a mix.
func (ix *Indexer) Rebuild(ctx context.Context, progress func(processed, total int)) error {
	paths, err := ix.scanWorkspace()
	if err != nil {
		return err
	}
	total := len(paths)

	var loaded []*types.Note
	processed := 0
	for start := 0; start < total; start += rebuildBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+rebuildBatchSize, total)
		for _, p := range paths[start:end] {
			note, err := ix.load(p)
			if err != nil {
				ix.log.Warn().Str("path", p).Err(err).Msg("skipping unreadable note during rebuild")
				continue
			}
			loaded = append(loaded, note)
		}
		processed = end
		if progress != nil {
			progress(processed, total)
		}
	}

	byID := make(map[string]bool, len(loaded))
	byTitle := make(map[string]string, len(loaded))
	for _, n := range loaded {
		byID[n.ID] = true
		if _, taken := byTitle[n.Title]; !taken {
			byTitle[n.Title] = n.ID
		}
	}

	tx, err := ix.db.writer.Begin()
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"internal_links", "external_links", "note_metadata", "notes_fts", "notes"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, note := range loaded {
		if err := upsertNoteRow(tx, note); err != nil {
			return err
		}
		if err := replaceMetadataRows(tx, note); err != nil {
			return err
		}
		if err := refreshFTSRow(tx, note); err != nil {
			return err
		}
	}

	// Links go in a second pass so resolution sees the complete note set.
	for _, note := range loaded {
		for _, ref := range linkextract.Internal(note.Body) {
			targetID := ""
			if byID[ref.Target] {
				targetID = ref.Target
			} else if id, ok := byTitle[ref.Target]; ok {
				targetID = id
			}
			if err := insertInternalLink(tx, note.ID, targetID, ref); err != nil {
				return err
			}
		}
		for _, ref := range linkextract.External(note.Body) {
			if err := insertExternalLink(tx, note.ID, ref); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebuild: %w", err)
	}
	ix.log.Info().Int("notes", len(loaded)).Int("scanned", total).Msg("index rebuild complete")
	return nil
}

func (ix *Indexer) scanWorkspace() ([]string, error) {
	entries, err := os.ReadDir(ix.workspace)
	if err != nil {
		return nil, fmt.Errorf("scan workspace: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(ix.workspace, entry.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			ix.log.Warn().Str("dir", dir).Err(err).Msg("skipping unreadable type directory")
			continue
		}
		for _, f := range files {
			name := f.Name()
			if f.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
				continue
			}
			if !strings.HasSuffix(name, ".md") {
				continue
			}
			if ix.filter != nil && !ix.filter.IsAllowed(entry.Name()+"/"+name) {
				continue
			}
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths, nil
}

func upsertNoteRow(tx *sql.Tx, note *types.Note) error {
	_, err := tx.Exec(`
		INSERT INTO notes (id, title, content, type, filename, path, created, updated, size, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			type = excluded.type,
			filename = excluded.filename,
			path = excluded.path,
			created = excluded.created,
			updated = excluded.updated,
			size = excluded.size,
			content_hash = excluded.content_hash
	`, note.ID, note.Title, note.Body, note.Type, note.Filename, note.Path,
		note.Created.UTC().Format(TimeFormat), note.Updated.UTC().Format(TimeFormat),
		note.Size, note.ContentHash)
	if err != nil {
		return fmt.Errorf("upsert notes row %s: %w", note.ID, err)
	}
	return nil
}

func replaceMetadataRows(tx *sql.Tx, note *types.Note) error {
	if _, err := tx.Exec(`DELETE FROM note_metadata WHERE note_id = ?`, note.ID); err != nil {
		return fmt.Errorf("clear metadata rows %s: %w", note.ID, err)
	}
	for key, value := range note.Metadata {
		if types.ReservedKeys[key] {
			continue
		}
		serialized, err := value.StorageValue()
		if err != nil {
			return fmt.Errorf("serialize metadata %s.%s: %w", note.ID, key, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO note_metadata (note_id, key, value, value_type) VALUES (?, ?, ?, ?)`,
			note.ID, key, serialized, string(value.Type),
		); err != nil {
			return fmt.Errorf("insert metadata row %s.%s: %w", note.ID, key, err)
		}
	}
	return nil
}

func refreshFTSRow(tx *sql.Tx, note *types.Note) error {
	if _, err := tx.Exec(`DELETE FROM notes_fts WHERE id = ?`, note.ID); err != nil {
		return fmt.Errorf("clear fts row %s: %w", note.ID, err)
	}
	_, err := tx.Exec(
		`INSERT INTO notes_fts (id, title, content, tags) VALUES (?, ?, ?, ?)`,
		note.ID, note.Title, note.Body, strings.Join(NoteTags(note.Metadata), " "),
	)
	if err != nil {
		return fmt.Errorf("insert fts row %s: %w", note.ID, err)
	}
	return nil
}

// NoteTags extracts the string entries of the "tags" metadata list.
func NoteTags(metadata types.Metadata) []string {
	value, ok := metadata["tags"]
	if !ok {
		return nil
	}
	list, ok := value.Raw.([]any)
	if !ok {
		return nil
	}
	var tags []string
	for _, item := range list {
		if s, ok := item.(string); ok {
			tags = append(tags, s)
		}
	}
	return tags
}

type linkKey struct {
	target  string
	display string
}

// reconcileOutgoingLinks diffs the desired outgoing set against the stored
// rows. Rows keyed on unchanged (target, display) text survive in place;
// only their position is updated when it shifted.
func (ix *Indexer) reconcileOutgoingLinks(tx *sql.Tx, note *types.Note) error {
	desired := map[linkKey]linkextract.InternalRef{}
	var order []linkKey
	for _, ref := range linkextract.Internal(note.Body) {
		key := linkKey{ref.Target, ref.Display}
		if _, dup := desired[key]; !dup {
			order = append(order, key)
		}
		desired[key] = ref
	}

	rows, err := tx.Query(
		`SELECT id, target_id, target_title, display, position FROM internal_links WHERE source_id = ?`,
		note.ID)
	if err != nil {
		return fmt.Errorf("load outgoing links %s: %w", note.ID, err)
	}
	type existingRow struct {
		rowID    int64
		targetID sql.NullString
		position int
	}
	existing := map[linkKey]existingRow{}
	for rows.Next() {
		var row existingRow
		var target, display string
		if err := rows.Scan(&row.rowID, &row.targetID, &target, &display, &row.position); err != nil {
			rows.Close()
			return fmt.Errorf("scan outgoing link %s: %w", note.ID, err)
		}
		existing[linkKey{target, display}] = row
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load outgoing links %s: %w", note.ID, err)
	}

	for key, row := range existing {
		if _, keep := desired[key]; !keep {
			if _, err := tx.Exec(`DELETE FROM internal_links WHERE id = ?`, row.rowID); err != nil {
				return fmt.Errorf("delete stale link %s -> %s: %w", note.ID, key.target, err)
			}
		}
	}

	for _, key := range order {
		ref := desired[key]
		row, exists := existing[key]
		if exists {
			if row.position != ref.Position {
				if _, err := tx.Exec(
					`UPDATE internal_links SET position = ? WHERE id = ?`,
					ref.Position, row.rowID,
				); err != nil {
					return fmt.Errorf("reposition link %s -> %s: %w", note.ID, key.target, err)
				}
			}
			continue
		}
		targetID, err := resolveTarget(tx, ref.Target)
		if err != nil {
			return err
		}
		if err := insertInternalLink(tx, note.ID, targetID, ref); err != nil {
			return err
		}
	}

	return reconcileExternalLinks(tx, note)
}

func reconcileExternalLinks(tx *sql.Tx, note *types.Note) error {
	desired := map[linkKey]linkextract.ExternalRef{}
	var order []linkKey
	for _, ref := range linkextract.External(note.Body) {
		key := linkKey{ref.URL, ref.Label}
		if _, dup := desired[key]; !dup {
			order = append(order, key)
		}
		desired[key] = ref
	}

	rows, err := tx.Query(
		`SELECT id, url, label, position FROM external_links WHERE source_id = ?`, note.ID)
	if err != nil {
		return fmt.Errorf("load external links %s: %w", note.ID, err)
	}
	type existingRow struct {
		rowID    int64
		position int
	}
	existing := map[linkKey]existingRow{}
	for rows.Next() {
		var row existingRow
		var u, label string
		if err := rows.Scan(&row.rowID, &u, &label, &row.position); err != nil {
			rows.Close()
			return fmt.Errorf("scan external link %s: %w", note.ID, err)
		}
		existing[linkKey{u, label}] = row
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load external links %s: %w", note.ID, err)
	}

	for key, row := range existing {
		if _, keep := desired[key]; !keep {
			if _, err := tx.Exec(`DELETE FROM external_links WHERE id = ?`, row.rowID); err != nil {
				return fmt.Errorf("delete stale external link %s: %w", note.ID, err)
			}
		}
	}

	for _, key := range order {
		ref := desired[key]
		if row, exists := existing[key]; exists {
			if row.position != ref.Position {
				if _, err := tx.Exec(
					`UPDATE external_links SET position = ? WHERE id = ?`,
					ref.Position, row.rowID,
				); err != nil {
					return fmt.Errorf("reposition external link %s: %w", note.ID, err)
				}
			}
			continue
		}
		if err := insertExternalLink(tx, note.ID, ref); err != nil {
			return err
		}
	}
	return nil
}

// resolveTarget matches a wiki-link target first against note ids (exact),
// then against titles (exact, case-sensitive). Returns "" when unresolved.
func resolveTarget(tx *sql.Tx, target string) (string, error) {
	var id string
	err := tx.QueryRow(`SELECT id FROM notes WHERE id = ?`, target).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("resolve link target %q: %w", target, err)
	}
	err = tx.QueryRow(`SELECT id FROM notes WHERE title = ? LIMIT 1`, target).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve link target %q: %w", target, err)
	}
	return id, nil
}

func insertInternalLink(tx *sql.Tx, sourceID, targetID string, ref linkextract.InternalRef) error {
	var target any
	if targetID != "" {
		target = targetID
	}
	if _, err := tx.Exec(
		`INSERT INTO internal_links (source_id, target_id, target_title, display, position) VALUES (?, ?, ?, ?, ?)`,
		sourceID, target, ref.Target, ref.Display, ref.Position,
	); err != nil {
		return fmt.Errorf("insert link %s -> %s: %w", sourceID, ref.Target, err)
	}
	return nil
}

func insertExternalLink(tx *sql.Tx, sourceID string, ref linkextract.ExternalRef) error {
	if _, err := tx.Exec(
		`INSERT INTO external_links (source_id, url, label, position) VALUES (?, ?, ?, ?)`,
		sourceID, ref.URL, ref.Label, ref.Position,
	); err != nil {
		return fmt.Errorf("insert external link %s -> %s: %w", sourceID, ref.URL, err)
	}
	return nil
}
