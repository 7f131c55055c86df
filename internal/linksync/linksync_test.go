package linksync

import (
	"testing"
	"time"

	"github.com/taigrr/flint-note/internal/index"
	"github.com/taigrr/flint-note/internal/types"
)

func newSync(t *testing.T) (*index.DB, *Synchronizer) {
	t.Helper()
	db, err := index.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	ix := index.NewIndexer(db, "/vault", nil, nil)
	return db, New(db, ix)
}

func note(id, title, body string) types.Note {
	noteType, slug := "", id
	for i := 0; i < len(id); i++ {
		if id[i] == '/' {
			noteType, slug = id[:i], id[i+1:]
			break
		}
	}
	now := time.Now().UTC()
	return types.Note{
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
		ContentHash: "h-" + id,
		Metadata:    types.Metadata{},
	}
}

func created(n types.Note) types.LifecycleEvent {
	return types.LifecycleEvent{Kind: types.EventCreated, Note: n}
}

func TestRenameResolvesBrokenLinks(t *testing.T) {
	_, sync := newSync(t)

	source := note("general/source", "Source", "points at [[Future Title]]")
	if _, err := sync.NoteCommitted(created(source)); err != nil {
		t.Fatalf("create source: %v", err)
	}

	groups, err := sync.BrokenLinks()
	if err != nil {
		t.Fatalf("BrokenLinks() error: %v", err)
	}
	if len(groups) != 1 || groups[0].TargetTitle != "Future Title" {
		t.Fatalf("BrokenLinks() = %+v, want one group for Future Title", groups)
	}

	draft := note("projects/draft", "Draft", "draft body")
	if _, err := sync.NoteCommitted(created(draft)); err != nil {
		t.Fatalf("create draft: %v", err)
	}

	renamed := draft
	renamed.Title = "Future Title"
	resolved, err := sync.NoteCommitted(types.LifecycleEvent{
		Kind:     types.EventRenamed,
		Note:     renamed,
		OldTitle: "Draft",
		NewTitle: "Future Title",
	})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if resolved != 1 {
		t.Errorf("resolved = %d, want 1", resolved)
	}

	groups, err = sync.BrokenLinks()
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 0 {
		t.Errorf("BrokenLinks() after rename = %+v, want none", groups)
	}

	graph, err := sync.LinksFor("general/source")
	if err != nil {
		t.Fatal(err)
	}
	if len(graph.OutgoingInternal) != 1 {
		t.Fatalf("outgoing = %+v, want 1 link", graph.OutgoingInternal)
	}
	if graph.OutgoingInternal[0].TargetNoteID != "projects/draft" {
		t.Errorf("link target = %q, want projects/draft", graph.OutgoingInternal[0].TargetNoteID)
	}
}

func TestRenameLeavesResolvedLinksAlone(t *testing.T) {
	_, sync := newSync(t)

	target := note("general/target", "Target", "body")
	source := note("general/source", "Source", "[[Target]]")
	if _, err := sync.NoteCommitted(created(target)); err != nil {
		t.Fatal(err)
	}
	if _, err := sync.NoteCommitted(created(source)); err != nil {
		t.Fatal(err)
	}

	other := note("general/other", "Other", "other body")
	if _, err := sync.NoteCommitted(created(other)); err != nil {
		t.Fatal(err)
	}
	renamed := other
	renamed.Title = "Target"
	resolved, err := sync.NoteCommitted(types.LifecycleEvent{
		Kind:     types.EventRenamed,
		Note:     renamed,
		OldTitle: "Other",
		NewTitle: "Target",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resolved != 0 {
		t.Errorf("resolved = %d, want 0: the source link was already resolved", resolved)
	}

	graph, err := sync.LinksFor("general/source")
	if err != nil {
		t.Fatal(err)
	}
	if graph.OutgoingInternal[0].TargetNoteID != "general/target" {
		t.Errorf("pre-existing resolved link retargeted to %q", graph.OutgoingInternal[0].TargetNoteID)
	}
}

func TestMoveRewritesBothSides(t *testing.T) {
	db, sync := newSync(t)

	moved := note("general/roaming", "Roaming", "[[Anchor]]")
	anchor := note("general/anchor", "Anchor", "body")
	inbound := note("general/fan", "Fan", "[[Roaming]]")
	for _, n := range []types.Note{anchor, moved, inbound} {
		if _, err := sync.NoteCommitted(created(n)); err != nil {
			t.Fatal(err)
		}
	}

	relocated := moved
	relocated.ID = "projects/roaming"
	relocated.Type = "projects"
	relocated.Path = "/vault/projects/roaming.md"
	if _, err := sync.NoteCommitted(types.LifecycleEvent{
		Kind:  types.EventMoved,
		Note:  relocated,
		OldID: "general/roaming",
		NewID: "projects/roaming",
	}); err != nil {
		t.Fatalf("move: %v", err)
	}

	var n int
	if err := db.Reader().QueryRow(
		`SELECT COUNT(*) FROM notes WHERE id = 'general/roaming'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Error("old notes row survived the move")
	}

	graph, err := sync.LinksFor("projects/roaming")
	if err != nil {
		t.Fatal(err)
	}
	if len(graph.OutgoingInternal) != 1 || graph.OutgoingInternal[0].TargetNoteID != "general/anchor" {
		t.Errorf("outgoing after move = %+v", graph.OutgoingInternal)
	}
	if len(graph.IncomingInternal) != 1 || graph.IncomingInternal[0].SourceID != "general/fan" {
		t.Errorf("incoming after move = %+v", graph.IncomingInternal)
	}
}

func TestDeleteBreaksInboundLinks(t *testing.T) {
	_, sync := newSync(t)

	target := note("general/doomed", "Doomed", "body")
	source := note("general/source", "Source", "[[Doomed]]")
	if _, err := sync.NoteCommitted(created(target)); err != nil {
		t.Fatal(err)
	}
	if _, err := sync.NoteCommitted(created(source)); err != nil {
		t.Fatal(err)
	}

	if _, err := sync.NoteCommitted(types.LifecycleEvent{
		Kind:      types.EventDeleted,
		Note:      types.Note{ID: "general/doomed", Title: "Doomed", Type: "general"},
		DeletedID: "general/doomed",
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	groups, err := sync.BrokenLinks()
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0].TargetTitle != "Doomed" {
		t.Errorf("BrokenLinks() = %+v, want one group keyed on the deleted title", groups)
	}
}

func TestUpdateReextractsLinks(t *testing.T) {
	_, sync := newSync(t)

	n := note("general/editing", "Editing", "[[First]]")
	if _, err := sync.NoteCommitted(created(n)); err != nil {
		t.Fatal(err)
	}

	n.Body = "[[Second]]"
	if _, err := sync.NoteCommitted(types.LifecycleEvent{Kind: types.EventUpdated, Note: n}); err != nil {
		t.Fatal(err)
	}

	graph, err := sync.LinksFor("general/editing")
	if err != nil {
		t.Fatal(err)
	}
	if len(graph.OutgoingInternal) != 1 || graph.OutgoingInternal[0].TargetTitle != "Second" {
		t.Errorf("outgoing = %+v, want only the new link", graph.OutgoingInternal)
	}
}
