package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/taigrr/flint-note/internal/config"
	"github.com/taigrr/flint-note/internal/notestore"
	"github.com/taigrr/flint-note/internal/pathfilter"
	"github.com/taigrr/flint-note/internal/types"
)

func testNote(id, title, body string, metadata types.Metadata) *types.Note {
	noteType, slug, _ := splitID(id)
	if metadata == nil {
		metadata = types.Metadata{}
	}
	now := time.Now().UTC()
	return &types.Note{
		ID:          id,
		Type:        noteType,
		Slug:        slug,
		Title:       title,
		Body:        body,
		Filename:    slug + ".md",
		Path:        "/vault/" + id + ".md",
		Created:     now,
		Updated:     now,
		Size:        int64(len(body)),
		ContentHash: "hash-" + id,
		Metadata:    metadata,
	}
}

func splitID(id string) (string, string, bool) {
	for i := 0; i < len(id); i++ {
		if id[i] == '/' {
			return id[:i], id[i+1:], true
		}
	}
	return "", id, false
}

func mustOpenMemory(t *testing.T) (*DB, *Indexer) {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, NewIndexer(db, "/vault", nil, nil)
}

func countRows(t *testing.T, db *DB, table, where string, args ...any) int {
	t.Helper()
	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	if err := db.Reader().QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestUpsert_ProjectsAllRows(t *testing.T) {
	db, ix := mustOpenMemory(t)

	note := testNote("general/first", "First Note", "Hello [[Second Note]] world", types.Metadata{
		"status": types.FromNative("draft"),
		"tags":   types.FromNative([]any{"go", "notes"}),
	})
	if err := ix.Upsert(note); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	if n := countRows(t, db, "notes", "id = ?", "general/first"); n != 1 {
		t.Errorf("notes rows = %d, want 1", n)
	}
	if n := countRows(t, db, "note_metadata", "note_id = ?", "general/first"); n != 2 {
		t.Errorf("note_metadata rows = %d, want 2", n)
	}
	if n := countRows(t, db, "notes_fts", "id = ?", "general/first"); n != 1 {
		t.Errorf("notes_fts rows = %d, want 1", n)
	}
	if n := countRows(t, db, "internal_links", "source_id = ? AND target_id IS NULL", "general/first"); n != 1 {
		t.Errorf("broken link rows = %d, want 1", n)
	}
}

func TestUpsert_SkipsReservedMetadataKeys(t *testing.T) {
	db, ix := mustOpenMemory(t)

	note := testNote("general/a", "A", "body", types.Metadata{
		"title":  types.FromNative("sneaky"),
		"custom": types.FromNative("kept"),
	})
	if err := ix.Upsert(note); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	if n := countRows(t, db, "note_metadata", "note_id = ? AND key = 'title'", "general/a"); n != 0 {
		t.Error("reserved key stored as metadata row")
	}
	if n := countRows(t, db, "note_metadata", "note_id = ? AND key = 'custom'", "general/a"); n != 1 {
		t.Error("custom key missing")
	}
}

func TestUpsert_ResolvesAgainstIDThenTitle(t *testing.T) {
	db, ix := mustOpenMemory(t)

	target := testNote("projects/target", "Target Title", "target body", nil)
	if err := ix.Upsert(target); err != nil {
		t.Fatalf("Upsert(target) error: %v", err)
	}

	source := testNote("general/source", "Source", "[[projects/target]] and [[Target Title]] and [[Nowhere]]", nil)
	if err := ix.Upsert(source); err != nil {
		t.Fatalf("Upsert(source) error: %v", err)
	}

	if n := countRows(t, db, "internal_links",
		"source_id = ? AND target_id = ?", "general/source", "projects/target"); n != 2 {
		t.Errorf("resolved rows = %d, want 2 (id match and title match)", n)
	}
	if n := countRows(t, db, "internal_links",
		"source_id = ? AND target_id IS NULL AND target_title = 'Nowhere'", "general/source"); n != 1 {
		t.Errorf("broken rows = %d, want 1", n)
	}
}

func TestUpsert_LinkDiffKeepsRowIdentity(t *testing.T) {
	db, ix := mustOpenMemory(t)

	note := testNote("general/n", "N", "intro [[Kept Link]] outro", nil)
	if err := ix.Upsert(note); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	var rowID int64
	var position int
	if err := db.Reader().QueryRow(
		`SELECT id, position FROM internal_links WHERE source_id = ?`, "general/n").
		Scan(&rowID, &position); err != nil {
		t.Fatalf("load link row: %v", err)
	}

	// Edit text before the link: same link, shifted position.
	note.Body = "a longer introduction [[Kept Link]] outro"
	if err := ix.Upsert(note); err != nil {
		t.Fatalf("Upsert() after edit error: %v", err)
	}

	var rowID2 int64
	var position2 int
	if err := db.Reader().QueryRow(
		`SELECT id, position FROM internal_links WHERE source_id = ?`, "general/n").
		Scan(&rowID2, &position2); err != nil {
		t.Fatalf("reload link row: %v", err)
	}

	if rowID2 != rowID {
		t.Errorf("link row id changed across edit: %d -> %d", rowID, rowID2)
	}
	if position2 == position {
		t.Error("position not updated after shift")
	}

	// Re-indexing with no change is a no-op on the link row.
	if err := ix.Upsert(note); err != nil {
		t.Fatalf("Upsert() no-op error: %v", err)
	}
	var rowID3 int64
	if err := db.Reader().QueryRow(
		`SELECT id FROM internal_links WHERE source_id = ?`, "general/n").Scan(&rowID3); err != nil {
		t.Fatalf("reload link row: %v", err)
	}
	if rowID3 != rowID2 {
		t.Errorf("link row id churned on no-op reindex: %d -> %d", rowID2, rowID3)
	}
}

func TestUpsert_RemovedLinkDeleted(t *testing.T) {
	db, ix := mustOpenMemory(t)

	note := testNote("general/n", "N", "[[One]] and [[Two]]", nil)
	if err := ix.Upsert(note); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	note.Body = "[[One]] only"
	if err := ix.Upsert(note); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	if n := countRows(t, db, "internal_links", "source_id = ?", "general/n"); n != 1 {
		t.Errorf("link rows = %d, want 1 after removal", n)
	}
	if n := countRows(t, db, "internal_links",
		"source_id = ? AND target_title = 'Two'", "general/n"); n != 0 {
		t.Error("removed link row still present")
	}
}

func TestRemove_CascadesAndBreaksInbound(t *testing.T) {
	db, ix := mustOpenMemory(t)

	target := testNote("projects/gone", "Gone Note", "body", types.Metadata{
		"status": types.FromNative("active"),
	})
	source := testNote("general/src", "Src", "[[Gone Note]]", nil)
	if err := ix.Upsert(target); err != nil {
		t.Fatal(err)
	}
	if err := ix.Upsert(source); err != nil {
		t.Fatal(err)
	}

	if n := countRows(t, db, "internal_links",
		"source_id = ? AND target_id = ?", "general/src", "projects/gone"); n != 1 {
		t.Fatalf("precondition: resolved inbound link missing")
	}

	if err := ix.Remove("projects/gone", "Gone Note"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}

	if n := countRows(t, db, "notes", "id = ?", "projects/gone"); n != 0 {
		t.Error("notes row survived removal")
	}
	if n := countRows(t, db, "note_metadata", "note_id = ?", "projects/gone"); n != 0 {
		t.Error("metadata rows survived removal")
	}
	if n := countRows(t, db, "notes_fts", "id = ?", "projects/gone"); n != 0 {
		t.Error("fts row survived removal")
	}
	if n := countRows(t, db, "internal_links",
		"source_id = ? AND target_id IS NULL AND target_title = 'Gone Note'", "general/src"); n != 1 {
		t.Error("inbound link not flipped to broken with last title")
	}
}

func TestCreateThenRemoveRestoresEmptyIndex(t *testing.T) {
	db, ix := mustOpenMemory(t)

	note := testNote("general/temp", "Temp", "[[Somewhere]] https://example.com", types.Metadata{
		"status": types.FromNative("draft"),
	})
	if err := ix.Upsert(note); err != nil {
		t.Fatal(err)
	}
	if err := ix.Remove("general/temp", "Temp"); err != nil {
		t.Fatal(err)
	}

	for _, table := range []string{"notes", "note_metadata", "notes_fts", "internal_links", "external_links"} {
		if n := countRows(t, db, table, ""); n != 0 {
			t.Errorf("%s has %d residual rows", table, n)
		}
	}
}

func TestRebuild_WalksWorkspace(t *testing.T) {
	dir := t.TempDir()
	writeFile := func(rel, content string) {
		t.Helper()
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	writeFile("general/alpha.md", "---\ntitle: Alpha\n---\nAlpha links to [[Beta]]\n")
	writeFile("general/beta.md", "---\ntitle: Beta\n---\nBeta body\n")
	writeFile("general/_draft.md", "skipped: underscore prefix\n")
	writeFile("general/.hidden.md", "skipped: dot prefix\n")
	writeFile(".flint-note/config.yml", "version: \"1\"\n")
	writeFile("general/broken.md", "---\ntitle: [unclosed\n---\nstill indexed as body\n")

	db, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	cfg := config.Default(dir)
	loader := notestore.New(dir, cfg, nil)
	ix := NewIndexer(db, dir, loader.LoadFile, pathfilter.New(nil))

	var lastProcessed, lastTotal int
	err = ix.Rebuild(context.Background(), func(processed, total int) {
		lastProcessed, lastTotal = processed, total
	})
	if err != nil {
		t.Fatalf("Rebuild() error: %v", err)
	}

	if lastTotal != 3 || lastProcessed != 3 {
		t.Errorf("progress = (%d, %d), want (3, 3)", lastProcessed, lastTotal)
	}
	if n := countRows(t, db, "notes", ""); n != 3 {
		t.Errorf("notes rows = %d, want 3", n)
	}
	// Alpha's link to Beta resolves during the rebuild's second pass.
	if n := countRows(t, db, "internal_links",
		"source_id = 'general/alpha' AND target_id = 'general/beta'"); n != 1 {
		t.Error("alpha -> beta link not resolved by rebuild")
	}
}

func TestNoteTags(t *testing.T) {
	metadata := types.Metadata{
		"tags": types.FromNative([]any{"go", "sql", 3}),
	}
	tags := NoteTags(metadata)
	if len(tags) != 2 || tags[0] != "go" || tags[1] != "sql" {
		t.Errorf("NoteTags() = %v, want [go sql]", tags)
	}
	if NoteTags(types.Metadata{}) != nil {
		t.Error("NoteTags(empty) != nil")
	}
}
