package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/taigrr/flint-note/internal/flinterrors"
	"github.com/taigrr/flint-note/internal/types"
)

var (
	prohibitedKeywords = []string{
		"drop", "delete", "insert", "update", "alter", "create", "attach",
		"detach", "grant", "revoke", "commit", "rollback", "truncate",
		"replace", "exec", "execute", "pragma",
	}
	prohibitedTables = []string{"sqlite_master", "sqlite_sequence", "sqlite_stat1"}

	wordPattern      = regexp.MustCompile(`[a-z_]+`)
	hasLimitPattern  = regexp.MustCompile(`(?i)\blimit\s+\d+`)
	aggregatePattern = regexp.MustCompile(`(?i)\b(count|sum|avg|min|max|group_concat)\s*\(|\bgroup\s+by\b`)
	bareSelectNotes  = regexp.MustCompile(`(?i)^\s*select\s+\*\s+from\s+notes\b`)
)

// ValidateSQL enforces the restricted SELECT dialect. Every rejection
// carries its reason.
func ValidateSQL(query string) error {
	trimmed := strings.TrimSpace(query)
	lower := strings.ToLower(trimmed)

	if !strings.HasPrefix(lower, "select") {
		return flinterrors.New(flinterrors.BadQuery, "Only SELECT queries are allowed")
	}
	if strings.Contains(lower, "--") || strings.Contains(lower, "/*") {
		return flinterrors.New(flinterrors.BadQuery, "SQL comments are not allowed")
	}

	words := map[string]int{}
	for _, w := range wordPattern.FindAllString(lower, -1) {
		words[w]++
	}
	for _, kw := range prohibitedKeywords {
		if words[kw] > 0 {
			return flinterrors.Newf(flinterrors.BadQuery, "prohibited keyword %q in query", kw)
		}
	}
	for _, table := range prohibitedTables {
		if strings.Contains(lower, table) {
			return flinterrors.Newf(flinterrors.BadQuery, "access to system table %q is not allowed", table)
		}
	}
	if words["select"] > 3 {
		return flinterrors.New(flinterrors.BadQuery, "too many subqueries: at most 3 SELECTs are allowed")
	}
	if words["join"] > 5 {
		return flinterrors.New(flinterrors.BadQuery, "too many joins: at most 5 are allowed")
	}
	return nil
}

// isAggregationQuery classifies a validated query. A query containing an
// aggregate function or GROUP BY is aggregation, except a bare
// "SELECT * FROM notes ..." projection without GROUP BY, which is never
// aggregation.
func isAggregationQuery(query string) bool {
	if bareSelectNotes.MatchString(query) && !strings.Contains(strings.ToLower(query), "group by") {
		return false
	}
	return aggregatePattern.MatchString(query)
}

// SQL validates and runs a restricted SELECT against the read handle.
// Aggregation queries return opaque rows preserving all columns; other
// queries are mapped to full note records with metadata joined when every
// row has a string id column, and are returned as opaque rows otherwise.
func (e *Engine) SQL(params types.SQLSearchParams) (*types.SQLSearchResult, error) {
	if strings.TrimSpace(params.Query) == "" {
		return nil, flinterrors.New(flinterrors.BadQuery, "query must not be empty")
	}
	if err := ValidateSQL(params.Query); err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 1000
	}
	timeout := time.Duration(params.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	query := strings.TrimRight(strings.TrimSpace(params.Query), ";")
	if !hasLimitPattern.MatchString(query) {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	rows, err := e.db.Reader().QueryContext(ctx, query, params.Params...)
	if err != nil {
		return nil, flinterrors.Wrap(flinterrors.BadQuery, "query failed", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "read result columns", err)
	}

	result := &types.SQLSearchResult{
		IsAggregation: isAggregationQuery(params.Query),
		Columns:       columns,
	}

	var raw []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, flinterrors.Wrap(flinterrors.IO, "scan result row", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		raw = append(raw, row)
	}
	if err := rows.Err(); err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "read result rows", err)
	}

	if result.IsAggregation {
		result.Rows = raw
		return result, nil
	}

	// Map rows back to full note records where an id column is present;
	// rows without one are returned as-is.
	var ids []string
	for _, row := range raw {
		if id, ok := row["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) != len(raw) {
		result.Rows = raw
		return result, nil
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
	for _, n := range notes {
		result.Notes = append(result.Notes, *n)
	}
	return result, nil
}
