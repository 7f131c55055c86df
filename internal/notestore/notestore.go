// Package notestore implements note CRUD over the filesystem: front-matter
// preserving updates, protected-field enforcement, optimistic concurrency
// via content hashes, and lifecycle event emission.
package notestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/taigrr/flint-note/internal/config"
	"github.com/taigrr/flint-note/internal/flinterrors"
	"github.com/taigrr/flint-note/internal/frontmatter"
	"github.com/taigrr/flint-note/internal/hashing"
	"github.com/taigrr/flint-note/internal/logging"
	"github.com/taigrr/flint-note/internal/noteid"
	"github.com/taigrr/flint-note/internal/types"
)

// Lifecycle receives the event emitted after each committed mutation. The
// returned count is the number of broken links resolved by the event
// (non-zero only for renames).
type Lifecycle interface {
	NoteCommitted(event types.LifecycleEvent) (brokenResolved int, err error)
}

// Store is the filesystem note store for one workspace.
type Store struct {
	workspace string
	cfg       config.Config
	lifecycle Lifecycle
	log       zerolog.Logger
}

// New returns a store rooted at workspace. lifecycle may be nil, in which
// case mutations commit to disk without index reconciliation.
func New(workspace string, cfg config.Config, lifecycle Lifecycle) *Store {
	return &Store{
		workspace: workspace,
		cfg:       cfg,
		lifecycle: lifecycle,
		log:       logging.WithComponent("notestore"),
	}
}

// UpdatePatch is the payload of an update: an optional body replacement and
// a metadata patch. Patch keys explicitly set to null delete the key.
type UpdatePatch struct {
	Body     *string
	Metadata types.Metadata
}

// RenameResult is the outcome of a rename: the fresh record plus the number
// of previously broken links now resolving to this note.
type RenameResult struct {
	Note                *types.Note
	BrokenLinksResolved int
}

// MoveResult is the outcome of a move: the fresh record under its new id.
type MoveResult struct {
	Note  *types.Note
	OldID string
	NewID string
}

// DeleteResult records a completed deletion.
type DeleteResult struct {
	ID         string
	Path       string
	BackupPath string
}

// Create validates type and title, refuses slug collisions, writes the
// note atomically, and emits Created.
func (s *Store) Create(noteType, title, body string, metadata types.Metadata) (*types.Note, error) {
	if noteType == "" {
		noteType = s.cfg.DefaultNoteType
	}
	if err := noteid.ValidateName(noteType); err != nil {
		return nil, err
	}
	if err := noteid.ValidateTitle(title); err != nil {
		return nil, err
	}
	for key := range metadata {
		if types.ProtectedUpdateKeys[key] {
			delete(metadata, key)
		}
	}

	slug := noteid.Slugify(title)
	path := noteid.Path(s.workspace, noteType, slug)
	if _, err := os.Stat(path); err == nil {
		return nil, flinterrors.Newf(flinterrors.AlreadyExists,
			"note %q already exists", noteid.ID(noteType, slug))
	}

	typeDir := filepath.Join(s.workspace, noteType)
	if _, err := os.Stat(typeDir); os.IsNotExist(err) {
		if !s.cfg.NoteTypes.AutoCreateDirectories {
			return nil, flinterrors.Newf(flinterrors.NotFound,
				"note type %q does not exist", noteType)
		}
		if err := os.MkdirAll(typeDir, 0o755); err != nil {
			return nil, flinterrors.Wrap(flinterrors.IO, "create note type directory", err)
		}
	}

	now := time.Now().UTC()
	doc := frontmatter.New()
	doc.Set("title", title)
	doc.Set("type", noteType)
	doc.Set("created", now.Format(time.RFC3339))
	doc.Set("updated", now.Format(time.RFC3339))
	for _, key := range sortedKeys(metadata) {
		doc.Set(key, metadata[key].Raw)
	}

	if err := s.writeNoteFile(path, doc, body); err != nil {
		return nil, err
	}

	note, err := s.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := s.emit(types.LifecycleEvent{Kind: types.EventCreated, Note: *note}); err != nil {
		return note, err
	}
	return note, nil
}

// Get loads a note by identifier ("<type>/<slug>", ".md" optional).
func (s *Store) Get(identifier string) (*types.Note, error) {
	noteType, slug, err := noteid.Split(identifier)
	if err != nil {
		return nil, err
	}
	path := noteid.Path(s.workspace, noteType, slug)
	note, err := s.LoadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, flinterrors.Newf(flinterrors.NotFound, "note %q not found", identifier)
		}
		return nil, err
	}
	return note, nil
}

// Update applies a body/metadata patch under optimistic concurrency.
// Metadata patches containing title, filename, or type fail with
// ProtectedField before anything touches disk. Provided keys replace
// shallowly; keys set to null are deleted.
func (s *Store) Update(identifier string, patch UpdatePatch, priorHash string) (*types.Note, error) {
	for key := range patch.Metadata {
		if types.ProtectedUpdateKeys[key] {
			return nil, flinterrors.Newf(flinterrors.ProtectedField,
				"metadata key %q is protected: use rename_note to change the title or move_note to change the type", key)
		}
	}

	current, err := s.Get(identifier)
	if err != nil {
		return nil, err
	}
	if err := hashing.Verify(current.ContentHash, priorHash); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(current.Path)
	if err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "read note", err)
	}
	parsed := frontmatter.Parse(string(raw))
	doc := parsed.Doc
	if parsed.Warning != "" || !parsed.HadFrontmatter {
		doc = frontmatter.New()
		doc.Set("title", current.Title)
		doc.Set("type", current.Type)
		doc.Set("created", current.Created.Format(time.RFC3339))
	}

	body := parsed.Body
	if patch.Body != nil {
		body = *patch.Body
	}
	for _, key := range sortedKeys(patch.Metadata) {
		value := patch.Metadata[key]
		if value.Type == types.ValueNull {
			doc.Delete(key)
			continue
		}
		if err := doc.Set(key, value.Raw); err != nil {
			return nil, flinterrors.Wrap(flinterrors.IO, "encode metadata", err)
		}
	}
	doc.Set("updated", time.Now().UTC().Format(time.RFC3339))

	if err := s.writeNoteFile(current.Path, doc, body); err != nil {
		return nil, err
	}

	note, err := s.LoadFile(current.Path)
	if err != nil {
		return nil, err
	}
	if err := s.emit(types.LifecycleEvent{
		Kind:        types.EventUpdated,
		Note:        *note,
		OldBodyHash: current.ContentHash,
		NewBodyHash: note.ContentHash,
	}); err != nil {
		return note, err
	}
	return note, nil
}

// BatchItem is one element of a batched update.
type BatchItem struct {
	Identifier string
	Patch      UpdatePatch
	PriorHash  string
}

// BatchResult reports one item's outcome; successes commit even when peers
// fail.
type BatchResult struct {
	Identifier string
	Note       *types.Note
	Err        error
}

// UpdateBatch applies each item independently and never aborts siblings on
// one item's failure.
func (s *Store) UpdateBatch(items []BatchItem) []BatchResult {
	results := make([]BatchResult, 0, len(items))
	for _, item := range items {
		note, err := s.Update(item.Identifier, item.Patch, item.PriorHash)
		results = append(results, BatchResult{Identifier: item.Identifier, Note: note, Err: err})
	}
	return results
}

// Rename changes a note's title. Filename and id are preserved. When
// rename.update_heading is enabled and the body starts with an H1 matching
// the old title exactly, the heading is rewritten too. Returns the number
// of broken links the rename resolved.
func (s *Store) Rename(identifier, newTitle, priorHash string) (*RenameResult, error) {
	if err := noteid.ValidateTitle(newTitle); err != nil {
		return nil, err
	}
	current, err := s.Get(identifier)
	if err != nil {
		return nil, err
	}
	if err := hashing.Verify(current.ContentHash, priorHash); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(current.Path)
	if err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "read note", err)
	}
	parsed := frontmatter.Parse(string(raw))
	doc := parsed.Doc
	if !parsed.HadFrontmatter || parsed.Warning != "" {
		doc = frontmatter.New()
		doc.Set("type", current.Type)
		doc.Set("created", current.Created.Format(time.RFC3339))
	}
	doc.Set("title", newTitle)
	doc.Set("updated", time.Now().UTC().Format(time.RFC3339))

	body := parsed.Body
	if s.cfg.Rename.UpdateHeading {
		body = rewriteLeadingH1(body, current.Title, newTitle)
	}

	if err := s.writeNoteFile(current.Path, doc, body); err != nil {
		return nil, err
	}

	note, err := s.LoadFile(current.Path)
	if err != nil {
		return nil, err
	}
	resolved, err := s.emitCount(types.LifecycleEvent{
		Kind:     types.EventRenamed,
		Note:     *note,
		OldTitle: current.Title,
		NewTitle: newTitle,
	})
	if err != nil {
		return &RenameResult{Note: note}, err
	}
	return &RenameResult{Note: note, BrokenLinksResolved: resolved}, nil
}

// Move relocates a note to a different type directory. The id changes;
// the synchronizer rewrites incoming links to the new id.
func (s *Store) Move(identifier, newType, priorHash string) (*MoveResult, error) {
	if err := noteid.ValidateName(newType); err != nil {
		return nil, err
	}
	current, err := s.Get(identifier)
	if err != nil {
		return nil, err
	}
	if err := hashing.Verify(current.ContentHash, priorHash); err != nil {
		return nil, err
	}
	if current.Type == newType {
		return &MoveResult{Note: current, OldID: current.ID, NewID: current.ID}, nil
	}

	newPath := noteid.Path(s.workspace, newType, current.Slug)
	if _, err := os.Stat(newPath); err == nil {
		return nil, flinterrors.Newf(flinterrors.AlreadyExists,
			"note %q already exists", noteid.ID(newType, current.Slug))
	}

	typeDir := filepath.Join(s.workspace, newType)
	if _, err := os.Stat(typeDir); os.IsNotExist(err) {
		if !s.cfg.NoteTypes.AutoCreateDirectories {
			return nil, flinterrors.Newf(flinterrors.NotFound, "note type %q does not exist", newType)
		}
		if err := os.MkdirAll(typeDir, 0o755); err != nil {
			return nil, flinterrors.Wrap(flinterrors.IO, "create note type directory", err)
		}
	}

	raw, err := os.ReadFile(current.Path)
	if err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "read note", err)
	}
	parsed := frontmatter.Parse(string(raw))
	doc := parsed.Doc
	if !parsed.HadFrontmatter || parsed.Warning != "" {
		doc = frontmatter.New()
		doc.Set("title", current.Title)
		doc.Set("created", current.Created.Format(time.RFC3339))
	}
	doc.Set("type", newType)
	doc.Set("updated", time.Now().UTC().Format(time.RFC3339))

	if err := s.writeNoteFile(newPath, doc, parsed.Body); err != nil {
		return nil, err
	}
	if err := os.Remove(current.Path); err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "remove old note file", err)
	}

	note, err := s.LoadFile(newPath)
	if err != nil {
		return nil, err
	}
	result := &MoveResult{Note: note, OldID: current.ID, NewID: note.ID}
	if err := s.emit(types.LifecycleEvent{
		Kind:  types.EventMoved,
		Note:  *note,
		OldID: current.ID,
		NewID: note.ID,
	}); err != nil {
		return result, err
	}
	return result, nil
}

// Delete removes a note, writing a backup first when configured, and emits
// Deleted.
func (s *Store) Delete(identifier, priorHash string, confirm bool) (*DeleteResult, error) {
	if s.cfg.Deletion.RequireConfirmation && !confirm {
		return nil, flinterrors.New(flinterrors.Invalid,
			"deletion requires confirmation: pass confirm=true")
	}
	current, err := s.Get(identifier)
	if err != nil {
		return nil, err
	}
	if err := hashing.Verify(current.ContentHash, priorHash); err != nil {
		return nil, err
	}

	result := &DeleteResult{ID: current.ID, Path: current.Path}
	if s.cfg.Deletion.CreateBackups {
		backupPath, err := s.backupNote(current)
		if err != nil {
			return nil, err
		}
		result.BackupPath = backupPath
	}

	if err := os.Remove(current.Path); err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "delete note", err)
	}

	if err := s.emit(types.LifecycleEvent{
		Kind:      types.EventDeleted,
		Note:      types.Note{ID: current.ID, Title: current.Title, Type: current.Type},
		DeletedID: current.ID,
	}); err != nil {
		return result, err
	}
	return result, nil
}

// LoadFile parses the note file at absPath into its full record. The file
// is the source of truth: a malformed front-matter block degrades to a
// body-only note rather than failing the load.
func (s *Store) LoadFile(absPath string) (*types.Note, error) {
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "read note", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "stat note", err)
	}
	if s.cfg.Security.MaxFileSize > 0 && info.Size() > s.cfg.Security.MaxFileSize {
		return nil, flinterrors.Newf(flinterrors.Invalid,
			"note exceeds the configured maximum file size (%d bytes)", s.cfg.Security.MaxFileSize)
	}

	parsed := frontmatter.Parse(string(raw))
	if parsed.Warning != "" {
		s.log.Warn().Str("path", absPath).Msg(parsed.Warning)
	}

	noteType := filepath.Base(filepath.Dir(absPath))
	slug := strings.TrimSuffix(filepath.Base(absPath), ".md")

	note := &types.Note{
		ID:       noteid.ID(noteType, slug),
		Type:     noteType,
		Slug:     slug,
		Filename: noteid.Filename(slug),
		Path:     absPath,
		Body:     parsed.Body,
		Size:     info.Size(),
		Metadata: types.Metadata{},
	}

	note.Title = parsed.Doc.GetString("title")
	if note.Title == "" {
		note.Title = titleFromBody(parsed.Body, slug)
	}

	note.Created = timestampField(parsed.Doc, "created", info.ModTime().UTC())
	note.Updated = timestampField(parsed.Doc, "updated", info.ModTime().UTC())

	for _, key := range parsed.Doc.Keys() {
		if types.ReservedKeys[key] {
			continue
		}
		value, ok := parsed.Doc.Get(key)
		if !ok {
			continue
		}
		note.Metadata[key] = types.FromNative(value)
	}

	hash, err := hashing.Compute(note.Metadata, note.Body)
	if err != nil {
		return nil, err
	}
	note.ContentHash = hash
	return note, nil
}

func (s *Store) writeNoteFile(path string, doc frontmatter.Doc, body string) error {
	content, err := frontmatter.Render(doc, body)
	if err != nil {
		return flinterrors.Wrap(flinterrors.IO, "serialize note", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".flint-*.md")
	if err != nil {
		return flinterrors.Wrap(flinterrors.IO, "write note", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return flinterrors.Wrap(flinterrors.IO, "write note", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return flinterrors.Wrap(flinterrors.IO, "write note", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return flinterrors.Wrap(flinterrors.IO, "write note", err)
	}
	return nil
}

func (s *Store) backupNote(note *types.Note) (string, error) {
	backupDir := s.cfg.Deletion.BackupPath
	if backupDir == "" {
		backupDir = filepath.Join(".flint-note", "backups")
	}
	if !filepath.IsAbs(backupDir) {
		backupDir = filepath.Join(s.workspace, backupDir)
	}
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", flinterrors.Wrap(flinterrors.IO, "create backup directory", err)
	}

	stamp := time.Now().UTC().Format("20060102T150405")
	backupPath := filepath.Join(backupDir,
		fmt.Sprintf("%s__%s__%s.md", note.Type, note.Slug, stamp))
	data, err := os.ReadFile(note.Path)
	if err != nil {
		return "", flinterrors.Wrap(flinterrors.IO, "read note for backup", err)
	}
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", flinterrors.Wrap(flinterrors.IO, "write backup", err)
	}
	return backupPath, nil
}

func (s *Store) emit(event types.LifecycleEvent) error {
	_, err := s.emitCount(event)
	return err
}

func (s *Store) emitCount(event types.LifecycleEvent) (int, error) {
	if s.lifecycle == nil {
		return 0, nil
	}
	resolved, err := s.lifecycle.NoteCommitted(event)
	if err != nil {
		// The file write already committed; surface the index failure so
		// callers can retry or rebuild.
		return resolved, flinterrors.Wrap(flinterrors.IO,
			"note written but index reconciliation failed", err)
	}
	return resolved, nil
}

func rewriteLeadingH1(body, oldTitle, newTitle string) string {
	lines := strings.SplitN(body, "\n", 2)
	if len(lines) == 0 {
		return body
	}
	if strings.TrimSpace(lines[0]) != "# "+oldTitle {
		return body
	}
	rest := ""
	if len(lines) == 2 {
		rest = "\n" + lines[1]
	}
	return "# " + newTitle + rest
}

func titleFromBody(body, slug string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
		break
	}
	return strings.ReplaceAll(slug, "-", " ")
}

// timestampField reads a front-matter timestamp. The YAML decoder may hand
// back either a string or a time.Time depending on quoting.
func timestampField(doc frontmatter.Doc, key string, fallback time.Time) time.Time {
	value, ok := doc.Get(key)
	if !ok {
		return fallback
	}
	switch v := value.(type) {
	case time.Time:
		return v.UTC()
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.UTC()
		}
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t.UTC()
		}
	}
	return fallback
}

func sortedKeys(m types.Metadata) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
