package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/taigrr/flint-note/internal/flinterrors"
	"github.com/taigrr/flint-note/internal/noteid"
	"github.com/taigrr/flint-note/internal/types"
)

// CreateNoteType registers a new note type: its directory plus an optional
// description file under the metadata directory.
func (ws *Workspace) CreateNoteType(name, description string) (*types.NoteTypeInfo, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if err := noteid.ValidateName(name); err != nil {
		return nil, err
	}
	dir := filepath.Join(ws.Root, name)
	if _, err := os.Stat(dir); err == nil {
		return nil, flinterrors.Newf(flinterrors.AlreadyExists, "note type %q already exists", name)
	}
	if ws.Cfg.NoteTypes.RequireDescriptions && strings.TrimSpace(description) == "" {
		return nil, flinterrors.New(flinterrors.Invalid, "this workspace requires a description for new note types")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "create note type directory", err)
	}
	if description != "" {
		if err := ws.writeDescription(name, description); err != nil {
			return nil, err
		}
	}
	return ws.noteTypeInfo(name)
}

// UpdateNoteType replaces a note type's description.
func (ws *Workspace) UpdateNoteType(name, description string) (*types.NoteTypeInfo, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if err := noteid.ValidateName(name); err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(ws.Root, name)); err != nil {
		return nil, flinterrors.Newf(flinterrors.NotFound, "note type %q does not exist", name)
	}
	if err := ws.writeDescription(name, description); err != nil {
		return nil, err
	}
	return ws.noteTypeInfo(name)
}

// GetNoteTypeInfo describes one note type.
func (ws *Workspace) GetNoteTypeInfo(name string) (*types.NoteTypeInfo, error) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	if err := noteid.ValidateName(name); err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(ws.Root, name)); err != nil {
		return nil, flinterrors.Newf(flinterrors.NotFound, "note type %q does not exist", name)
	}
	return ws.noteTypeInfo(name)
}

// ListNoteTypes enumerates the workspace's note type directories.
func (ws *Workspace) ListNoteTypes() ([]types.NoteTypeInfo, error) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	entries, err := os.ReadDir(ws.Root)
	if err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "list note types", err)
	}
	var infos []types.NoteTypeInfo
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := ws.noteTypeInfo(entry.Name())
		if err != nil {
			continue
		}
		infos = append(infos, *info)
	}
	return infos, nil
}

// ReadNoteTypeDescription returns the description text for a note type, or
// "" when none is recorded.
func (ws *Workspace) ReadNoteTypeDescription(name string) string {
	data, err := os.ReadFile(ws.descriptionPath(name))
	if err != nil {
		return ""
	}
	return string(data)
}

func (ws *Workspace) descriptionPath(name string) string {
	return filepath.Join(ws.Root, MetaDir, name+"_description.md")
}

func (ws *Workspace) writeDescription(name, description string) error {
	if err := os.WriteFile(ws.descriptionPath(name), []byte(description), 0o644); err != nil {
		return flinterrors.Wrap(flinterrors.IO, "write note type description", err)
	}
	return nil
}

func (ws *Workspace) noteTypeInfo(name string) (*types.NoteTypeInfo, error) {
	dir := filepath.Join(ws.Root, name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, flinterrors.Wrap(flinterrors.IO, "read note type directory", err)
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		n := entry.Name()
		if strings.HasPrefix(n, ".") || strings.HasPrefix(n, "_") || !strings.HasSuffix(n, ".md") {
			continue
		}
		count++
	}
	descPath := ws.descriptionPath(name)
	_, descErr := os.Stat(descPath)
	return &types.NoteTypeInfo{
		Name:            name,
		Path:            dir,
		DescriptionPath: descPath,
		HasDescription:  descErr == nil,
		NoteCount:       count,
	}, nil
}
