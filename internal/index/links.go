package index

import (
	"fmt"

	"github.com/taigrr/flint-note/internal/types"
)

// ResolveBroken points every broken internal link whose target text equals
// title at targetID, and returns how many rows were resolved. Already
// resolved links are untouched.
func (ix *Indexer) ResolveBroken(title, targetID string) (int, error) {
	res, err := ix.db.writer.Exec(
		`UPDATE internal_links SET target_id = ? WHERE target_id IS NULL AND target_title = ?`,
		targetID, title)
	if err != nil {
		return 0, fmt.Errorf("resolve broken links to %q: %w", title, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("resolve broken links to %q: %w", title, err)
	}
	return int(n), nil
}

// Move rewrites every index row referencing oldID to the note's new id:
// the notes row itself, its metadata and FTS rows, the source side of its
// own outgoing links, and the target side of inbound links. Link rows keep
// their identity across the move.
func (ix *Indexer) Move(oldID string, note *types.Note) error {
	tx, err := ix.db.writer.Begin()
	if err != nil {
		return fmt.Errorf("begin index move: %w", err)
	}
	defer tx.Rollback()

	if err := upsertNoteRow(tx, note); err != nil {
		return err
	}

	for _, stmt := range []struct {
		sql  string
		desc string
	}{
		{`UPDATE note_metadata SET note_id = ? WHERE note_id = ?`, "metadata rows"},
		{`UPDATE internal_links SET source_id = ? WHERE source_id = ?`, "outgoing links"},
		{`UPDATE external_links SET source_id = ? WHERE source_id = ?`, "external links"},
		{`UPDATE internal_links SET target_id = ? WHERE target_id = ?`, "inbound links"},
	} {
		if _, err := tx.Exec(stmt.sql, note.ID, oldID); err != nil {
			return fmt.Errorf("move %s %s -> %s: %w", stmt.desc, oldID, note.ID, err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, oldID); err != nil {
		return fmt.Errorf("delete moved notes row %s: %w", oldID, err)
	}
	if _, err := tx.Exec(`DELETE FROM notes_fts WHERE id = ?`, oldID); err != nil {
		return fmt.Errorf("delete moved fts row %s: %w", oldID, err)
	}
	if err := refreshFTSRow(tx, note); err != nil {
		return err
	}

	return tx.Commit()
}
