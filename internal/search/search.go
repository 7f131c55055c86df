// Package search implements the three query surfaces over the index: the
// simple text search with FTS-plus-fallback semantics, the advanced
// structured search, and the restricted safe-SQL dialect.
package search

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/taigrr/flint-note/internal/flinterrors"
	"github.com/taigrr/flint-note/internal/index"
	"github.com/taigrr/flint-note/internal/logging"
	"github.com/taigrr/flint-note/internal/types"
)

// Engine answers queries through the index database's read-only handle.
type Engine struct {
	db  *index.DB
	log zerolog.Logger
}

// New returns a search engine reading through db.
func New(db *index.DB) *Engine {
	return &Engine{db: db, log: logging.WithComponent("search")}
}

// ftsUnsafe matches any character the FTS query parser would interpret;
// queries containing one fall through to the LIKE scan.
var ftsUnsafe = regexp.MustCompile(`[()@"'-]`)

// Simple runs the text search: recency listing for empty queries, regex
// scan when requested, FTS with prefix expansion when the query is safe,
// and a LIKE substring scan otherwise.
func (e *Engine) Simple(params types.SimpleSearchParams) ([]types.SimpleSearchResult, error) {
	limit := params.Limit
	if limit <= 0 {
		return nil, nil
	}

	query := strings.TrimSpace(params.Query)
	if query == "" {
		return e.recentNotes(params.TypeFilter, limit)
	}
	if params.UseRegex {
		return e.regexScan(query, params.TypeFilter, limit)
	}
	if !ftsUnsafe.MatchString(query) {
		results, err := e.ftsQuery(query, params.TypeFilter, limit)
		if err == nil {
			return results, nil
		}
		e.log.Debug().Str("query", query).Err(err).Msg("fts query failed, falling back to substring scan")
	}
	return e.likeScan(query, params.TypeFilter, limit)
}

func (e *Engine) recentNotes(typeFilter string, limit int) ([]types.SimpleSearchResult, error) {
	q := `SELECT ` + noteColumns + ` FROM notes`
	var args []any
	if typeFilter != "" {
		q += ` WHERE type = ?`
		args = append(args, typeFilter)
	}
	q += ` ORDER BY updated DESC LIMIT ?`
	args = append(args, limit)

	rows, err := e.db.Reader().Query(q, args...)
	if err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "list notes", err)
	}
	notes, err := collectNotes(rows)
	if err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "list notes", err)
	}
	return e.toResults(notes, nil, nil)
}

func (e *Engine) regexScan(pattern, typeFilter string, limit int) ([]types.SimpleSearchResult, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, flinterrors.Wrap(flinterrors.BadQuery,
			fmt.Sprintf("invalid regular expression %q", pattern), err)
	}

	q := `SELECT ` + noteColumns + ` FROM notes`
	var args []any
	if typeFilter != "" {
		q += ` WHERE type = ?`
		args = append(args, typeFilter)
	}
	q += ` ORDER BY updated DESC`

	rows, err := e.db.Reader().Query(q, args...)
	if err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "regex search", err)
	}
	defer rows.Close()

	var matched []*types.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, flinterrors.Wrap(flinterrors.IO, "regex search", err)
		}
		if re.MatchString(note.Title + " " + note.Body) {
			matched = append(matched, note)
			if len(matched) >= limit {
				break
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "regex search", err)
	}
	return e.toResults(matched, nil, nil)
}

func (e *Engine) ftsQuery(query, typeFilter string, limit int) ([]types.SimpleSearchResult, error) {
	match := query
	if len(match) >= 3 && !strings.HasSuffix(match, "*") {
		match += "*"
	}

	q := `SELECT n.id, n.title, n.content, n.type, n.filename, n.path, n.created, n.updated, n.size, n.content_hash,
	             notes_fts.rank, snippet(notes_fts, 2, '<mark>', '</mark>', '...', 32)
	      FROM notes_fts
	      JOIN notes n ON n.id = notes_fts.id
	      WHERE notes_fts MATCH ?`
	args := []any{match}
	if typeFilter != "" {
		q += ` AND n.type = ?`
		args = append(args, typeFilter)
	}
	q += ` ORDER BY notes_fts.rank LIMIT ?`
	args = append(args, limit)

	rows, err := e.db.Reader().Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*types.Note
	var scores []float64
	var snippets []string
	for rows.Next() {
		var note types.Note
		var created, updated string
		var rank float64
		var snippet string
		if err := rows.Scan(&note.ID, &note.Title, &note.Body, &note.Type,
			&note.Filename, &note.Path, &created, &updated, &note.Size, &note.ContentHash,
			&rank, &snippet); err != nil {
			return nil, err
		}
		note.Created, _ = parseIndexTime(created)
		note.Updated, _ = parseIndexTime(updated)
		if _, slug, found := strings.Cut(note.ID, "/"); found {
			note.Slug = slug
		}
		notes = append(notes, &note)
		// FTS rank is negative for better matches; negate so higher scores
		// are better, consistent with the fallback's fixed 1.0.
		scores = append(scores, -rank)
		snippets = append(snippets, snippet)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return e.toResults(notes, scores, snippets)
}

func (e *Engine) likeScan(query, typeFilter string, limit int) ([]types.SimpleSearchResult, error) {
	like := "%" + query + "%"
	q := `SELECT ` + noteColumns + ` FROM notes WHERE (title LIKE ? OR content LIKE ?)`
	args := []any{like, like}
	if typeFilter != "" {
		q += ` AND type = ?`
		args = append(args, typeFilter)
	}
	q += ` ORDER BY updated DESC LIMIT ?`
	args = append(args, limit)

	rows, err := e.db.Reader().Query(q, args...)
	if err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "substring search", err)
	}
	notes, err := collectNotes(rows)
	if err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "substring search", err)
	}
	return e.toResults(notes, nil, nil)
}

// toResults shapes notes into search hits with tags and full metadata
// attached. scores/snippets may be nil; absent scores default to 1.0.
func (e *Engine) toResults(notes []*types.Note, scores []float64, snippets []string) ([]types.SimpleSearchResult, error) {
	if err := e.loadMetadata(notes); err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "load result metadata", err)
	}
	results := make([]types.SimpleSearchResult, 0, len(notes))
	for i, note := range notes {
		result := types.SimpleSearchResult{
			ID:       note.ID,
			Title:    note.Title,
			Type:     note.Type,
			Tags:     index.NoteTags(note.Metadata),
			Score:    1.0,
			Created:  note.Created,
			Updated:  note.Updated,
			Filename: note.Filename,
			Path:     note.Path,
			Size:     note.Size,
			Metadata: note.Metadata,
		}
		if scores != nil {
			result.Score = scores[i]
		}
		if snippets != nil {
			result.Snippet = snippets[i]
		}
		results = append(results, result)
	}
	return results, nil
}
