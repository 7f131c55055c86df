package search

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/taigrr/flint-note/internal/flinterrors"
	"github.com/taigrr/flint-note/internal/index"
	"github.com/taigrr/flint-note/internal/types"
)

var durationPattern = regexp.MustCompile(`^(\d+)([dwmy])$`)

// parseDuration turns a "\d+[dwmy]" duration string into a cutoff relative
// to now.
func parseDuration(s string, now time.Time) (time.Time, error) {
	m := durationPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, flinterrors.Newf(flinterrors.Invalid,
			"invalid duration %q: expected a number followed by d, w, m, or y", s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, flinterrors.Newf(flinterrors.Invalid, "invalid duration %q", s)
	}
	switch m[2] {
	case "d":
		return now.AddDate(0, 0, -n), nil
	case "w":
		return now.AddDate(0, 0, -7*n), nil
	case "m":
		return now.AddDate(0, -n, 0), nil
	default:
		return now.AddDate(-n, 0, 0), nil
	}
}

var validOperators = map[string]bool{
	"=": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
	"LIKE": true, "IN": true,
}

var sortFields = map[string]string{
	"title":   "n.title",
	"type":    "n.type",
	"created": "n.created",
	"updated": "n.updated",
	"size":    "n.size",
}

// Advanced runs the structured search: one note_metadata join per filter,
// an FTS join for content_contains, duration-relative date filters, a
// whitelisted sort, and a separate counting query for the total.
func (e *Engine) Advanced(params types.AdvancedSearchParams) (*types.AdvancedSearchResult, error) {
	start := time.Now()

	limit := params.Limit
	if limit == 0 {
		limit = 50
	}
	if limit < 0 {
		limit = 0
	}
	offset := max(params.Offset, 0)

	var joins, wheres []string
	var args []any

	for i, filter := range params.MetadataFilters {
		op := strings.ToUpper(strings.TrimSpace(filter.Operator))
		if op == "" {
			op = "="
		}
		if !validOperators[op] {
			return nil, flinterrors.Newf(flinterrors.Invalid,
				"invalid metadata filter operator %q", filter.Operator)
		}
		alias := fmt.Sprintf("m%d", i)
		joins = append(joins, fmt.Sprintf(
			"JOIN note_metadata %s ON %s.note_id = n.id AND %s.key = ?", alias, alias, alias))
		args = append(args, filter.Key)

		switch op {
		case "IN":
			parts := strings.Split(filter.Value, ",")
			placeholders := make([]string, len(parts))
			for j, part := range parts {
				placeholders[j] = "?"
				args = append(args, strings.TrimSpace(part))
			}
			wheres = append(wheres, fmt.Sprintf("%s.value IN (%s)", alias, strings.Join(placeholders, ", ")))
		case "<", "<=", ">", ">=":
			if _, err := strconv.ParseFloat(filter.Value, 64); err == nil {
				wheres = append(wheres, fmt.Sprintf("CAST(%s.value AS NUMERIC) %s ?", alias, op))
			} else {
				wheres = append(wheres, fmt.Sprintf("%s.value %s ?", alias, op))
			}
			args = append(args, filter.Value)
		default:
			wheres = append(wheres, fmt.Sprintf("%s.value %s ?", alias, op))
			args = append(args, filter.Value)
		}
	}

	if params.ContentContains != "" {
		joins = append(joins, "JOIN notes_fts ON notes_fts.id = n.id")
		wheres = append(wheres, "notes_fts MATCH ?")
		args = append(args, params.ContentContains)
	}

	if params.Type != "" {
		wheres = append(wheres, "n.type = ?")
		args = append(args, params.Type)
	}

	now := time.Now().UTC()
	for _, dateFilter := range []struct {
		value  string
		column string
		op     string
	}{
		{params.UpdatedWithin, "n.updated", ">="},
		{params.UpdatedBefore, "n.updated", "<"},
		{params.CreatedWithin, "n.created", ">="},
		{params.CreatedBefore, "n.created", "<"},
	} {
		if dateFilter.value == "" {
			continue
		}
		cutoff, err := parseDuration(dateFilter.value, now)
		if err != nil {
			return nil, err
		}
		wheres = append(wheres, fmt.Sprintf("%s %s ?", dateFilter.column, dateFilter.op))
		args = append(args, cutoff.Format(index.TimeFormat))
	}

	fromClause := " FROM notes n"
	if len(joins) > 0 {
		fromClause += " " + strings.Join(joins, " ")
	}
	whereClause := ""
	if len(wheres) > 0 {
		whereClause = " WHERE " + strings.Join(wheres, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(DISTINCT n.id)" + fromClause + whereClause
	if err := e.db.Reader().QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "count search results", err)
	}

	orderClause := " ORDER BY n.updated DESC"
	if len(params.Sort) > 0 {
		var terms []string
		for _, s := range params.Sort {
			column, ok := sortFields[strings.ToLower(s.Field)]
			if !ok {
				return nil, flinterrors.Newf(flinterrors.Invalid, "invalid sort field %q", s.Field)
			}
			dir := "ASC"
			if strings.EqualFold(s.Order, "desc") {
				dir = "DESC"
			}
			terms = append(terms, column+" "+dir)
		}
		orderClause = " ORDER BY " + strings.Join(terms, ", ")
	}

	mainQuery := "SELECT DISTINCT n.id, n.title, n.content, n.type, n.filename, n.path, n.created, n.updated, n.size, n.content_hash" +
		fromClause + whereClause + orderClause + " LIMIT ? OFFSET ?"
	mainArgs := append(append([]any{}, args...), limit, offset)

	rows, err := e.db.Reader().Query(mainQuery, mainArgs...)
	if err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "advanced search", err)
	}
	notes, err := collectNotes(rows)
	if err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "advanced search", err)
	}
	if err := e.loadMetadata(notes); err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "load result metadata", err)
	}

	results := make([]types.Note, 0, len(notes))
	for _, n := range notes {
		results = append(results, *n)
	}
	return &types.AdvancedSearchResult{
		Results:     results,
		Total:       total,
		HasMore:     offset+len(results) < total,
		QueryTimeMs: time.Since(start).Milliseconds(),
	}, nil
}
