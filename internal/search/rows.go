package search

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/taigrr/flint-note/internal/index"
	"github.com/taigrr/flint-note/internal/types"
)

const noteColumns = "id, title, content, type, filename, path, created, updated, size, content_hash"

func parseIndexTime(s string) (time.Time, error) {
	return time.Parse(index.TimeFormat, s)
}

// scanNote reads one notes row. The scanner must have selected noteColumns
// in order.
func scanNote(scanner interface{ Scan(...any) error }) (*types.Note, error) {
	var note types.Note
	var created, updated string
	if err := scanner.Scan(&note.ID, &note.Title, &note.Body, &note.Type,
		&note.Filename, &note.Path, &created, &updated, &note.Size, &note.ContentHash); err != nil {
		return nil, err
	}
	note.Created, _ = time.Parse(index.TimeFormat, created)
	note.Updated, _ = time.Parse(index.TimeFormat, updated)
	if _, slug, found := strings.Cut(note.ID, "/"); found {
		note.Slug = slug
	}
	return &note, nil
}

// loadMetadata attaches the note_metadata rows for each note.
func (e *Engine) loadMetadata(notes []*types.Note) error {
	for _, note := range notes {
		metadata := types.Metadata{}
		rows, err := e.db.Reader().Query(
			`SELECT key, value, value_type FROM note_metadata WHERE note_id = ?`, note.ID)
		if err != nil {
			return fmt.Errorf("load metadata %s: %w", note.ID, err)
		}
		for rows.Next() {
			var key, value, valueType string
			if err := rows.Scan(&key, &value, &valueType); err != nil {
				rows.Close()
				return fmt.Errorf("scan metadata %s: %w", note.ID, err)
			}
			mv, err := types.FromStorage(value, types.ValueType(valueType))
			if err != nil {
				rows.Close()
				return fmt.Errorf("decode metadata %s.%s: %w", note.ID, key, err)
			}
			metadata[key] = mv
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("load metadata %s: %w", note.ID, err)
		}
		note.Metadata = metadata
	}
	return nil
}

func collectNotes(rows *sql.Rows) ([]*types.Note, error) {
	defer rows.Close()
	var notes []*types.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}
