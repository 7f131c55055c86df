package search

import (
	"sort"
	"strings"

	"github.com/taigrr/flint-note/internal/flinterrors"
	"github.com/taigrr/flint-note/internal/index"
	"github.com/taigrr/flint-note/internal/types"
)

// ByTags returns the notes carrying the given tags, intersected when
// requireAll is set, unioned otherwise, sorted by updated descending.
func (e *Engine) ByTags(tags []string, requireAll bool) ([]types.Note, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	counts := map[string]int{}
	for _, tag := range tags {
		rows, err := e.db.Reader().Query(
			`SELECT n.id FROM notes n
			 JOIN notes_fts ON notes_fts.id = n.id
			 WHERE notes_fts MATCH ?`, "tags:"+quoteFTSTerm(tag))
		if err != nil {
			return nil, flinterrors.Wrap(flinterrors.IO, "tag search", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, flinterrors.Wrap(flinterrors.IO, "tag search", err)
			}
			counts[id]++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, flinterrors.Wrap(flinterrors.IO, "tag search", err)
		}
	}

	need := 1
	if requireAll {
		need = len(tags)
	}
	var ids []string
	for id, n := range counts {
		if n >= need {
			ids = append(ids, id)
		}
	}

	notes := make([]*types.Note, 0, len(ids))
	for _, id := range ids {
		row := e.db.Reader().QueryRow(`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
		note, err := scanNote(row)
		if err != nil {
			continue
		}
		notes = append(notes, note)
	}
	if err := e.loadMetadata(notes); err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "load result metadata", err)
	}

	sort.Slice(notes, func(i, j int) bool { return notes[i].Updated.After(notes[j].Updated) })

	results := make([]types.Note, 0, len(notes))
	for _, n := range notes {
		results = append(results, *n)
	}
	return results, nil
}

// Similar returns the k notes closest to the given note, scored by FTS
// rank over its title, tags, and high-weight body tokens, normalized to
// [0, 1]. The note itself is excluded.
func (e *Engine) Similar(id string, k int) ([]types.SimpleSearchResult, error) {
	if k <= 0 {
		return nil, nil
	}

	row := e.db.Reader().QueryRow(`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	note, err := scanNote(row)
	if err != nil {
		return nil, flinterrors.Newf(flinterrors.NotFound, "note %q not found", id)
	}
	if err := e.loadMetadata([]*types.Note{note}); err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "load note metadata", err)
	}

	terms := append([]string{}, strings.Fields(note.Title)...)
	terms = append(terms, index.NoteTags(note.Metadata)...)
	terms = append(terms, topTokens(note.Body, 8)...)

	seen := map[string]bool{}
	var quoted []string
	for _, term := range terms {
		cleaned := strings.ToLower(strings.Trim(term, `.,;:!?"'()[]{}`))
		if len(cleaned) < 3 || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		quoted = append(quoted, quoteFTSTerm(cleaned))
	}
	if len(quoted) == 0 {
		return nil, nil
	}

	match := strings.Join(quoted, " OR ")
	rows, err := e.db.Reader().Query(
		`SELECT notes_fts.id, notes_fts.rank FROM notes_fts
		 WHERE notes_fts MATCH ? AND notes_fts.id != ?
		 ORDER BY notes_fts.rank LIMIT ?`, match, id, k)
	if err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "similarity search", err)
	}
	defer rows.Close()

	var ids []string
	var ranks []float64
	for rows.Next() {
		var hitID string
		var rank float64
		if err := rows.Scan(&hitID, &rank); err != nil {
			return nil, flinterrors.Wrap(flinterrors.IO, "similarity search", err)
		}
		ids = append(ids, hitID)
		ranks = append(ranks, -rank)
	}
	if err := rows.Err(); err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "similarity search", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	best := ranks[0]
	for _, r := range ranks {
		if r > best {
			best = r
		}
	}

	notes := make([]*types.Note, 0, len(ids))
	var scores []float64
	for i, hitID := range ids {
		row := e.db.Reader().QueryRow(`SELECT `+noteColumns+` FROM notes WHERE id = ?`, hitID)
		hit, err := scanNote(row)
		if err != nil {
			continue
		}
		notes = append(notes, hit)
		score := 0.0
		if best > 0 {
			score = ranks[i] / best
		}
		scores = append(scores, score)
	}
	return e.toResults(notes, scores, nil)
}

// topTokens returns the n most frequent body tokens of length >= 5, a
// cheap stand-in for term weighting.
func topTokens(body string, n int) []string {
	counts := map[string]int{}
	for _, field := range strings.Fields(body) {
		token := strings.ToLower(strings.Trim(field, `.,;:!?"'()[]{}#*`))
		if len(token) >= 5 {
			counts[token]++
		}
	}
	tokens := make([]string, 0, len(counts))
	for t := range counts {
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})
	if len(tokens) > n {
		tokens = tokens[:n]
	}
	return tokens
}

func quoteFTSTerm(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
}
