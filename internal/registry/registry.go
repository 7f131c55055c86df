// Package registry implements the multi-vault global registry: a per-user
// file mapping vault id -> {name, path, created, last_accessed,
// description}, with a current_vault pointer.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// VaultEntry describes one registered vault.
type VaultEntry struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Created      time.Time `json:"created"`
	LastAccessed time.Time `json:"last_accessed"`
	Description  string    `json:"description,omitempty"`
}

type registryFile struct {
	Vaults       map[string]VaultEntry `json:"vaults"`
	CurrentVault string                `json:"current_vault,omitempty"`
}

// Registry is a thread-safe handle on the global registry file.
type Registry struct {
	path string
	mu   sync.Mutex
}

// Open resolves the registry path (XDG_CONFIG_HOME, or the platform
// default config dir, under "flint-note/vaults.json") and returns a handle.
// The file is created lazily on first write.
func Open() (*Registry, error) {
	path, err := defaultPath()
	if err != nil {
		return nil, err
	}
	return &Registry{path: path}, nil
}

// OpenAt returns a handle rooted at an explicit path, primarily for tests.
func OpenAt(path string) *Registry {
	return &Registry{path: path}
}

func defaultPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		dir, err = os.UserConfigDir()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, "flint-note", "vaults.json"), nil
}

func (r *Registry) load() (*registryFile, error) {
	file := &registryFile{Vaults: map[string]VaultEntry{}}
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return file, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return file, nil
	}
	if err := json.Unmarshal(data, file); err != nil {
		return nil, err
	}
	if file.Vaults == nil {
		file.Vaults = map[string]VaultEntry{}
	}
	return file, nil
}

func (r *Registry) save(file *registryFile) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".vaults-*.json")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, r.path)
}

// Register adds or updates a vault entry, generating an id when none is
// provided, and returns the id used.
func (r *Registry) Register(id, name, path, description string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.load()
	if err != nil {
		return "", err
	}

	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now().UTC()
	entry, exists := file.Vaults[id]
	if !exists {
		entry.Created = now
	}
	entry.Name = name
	entry.Path = path
	entry.Description = description
	entry.LastAccessed = now
	file.Vaults[id] = entry

	if file.CurrentVault == "" {
		file.CurrentVault = id
	}

	return id, r.save(file)
}

// Touch updates the last-accessed timestamp for id.
func (r *Registry) Touch(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.load()
	if err != nil {
		return err
	}
	entry, ok := file.Vaults[id]
	if !ok {
		return os.ErrNotExist
	}
	entry.LastAccessed = time.Now().UTC()
	file.Vaults[id] = entry
	return r.save(file)
}

// SetCurrent points current_vault at id.
func (r *Registry) SetCurrent(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := file.Vaults[id]; !ok {
		return os.ErrNotExist
	}
	file.CurrentVault = id
	return r.save(file)
}

// Current returns the id and entry of the current vault, if any.
func (r *Registry) Current() (string, VaultEntry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.load()
	if err != nil {
		return "", VaultEntry{}, false, err
	}
	if file.CurrentVault == "" {
		return "", VaultEntry{}, false, nil
	}
	entry, ok := file.Vaults[file.CurrentVault]
	return file.CurrentVault, entry, ok, nil
}

// List returns all registered vaults.
func (r *Registry) List() (map[string]VaultEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.load()
	if err != nil {
		return nil, err
	}
	return file.Vaults, nil
}

// Remove deletes a vault entry, clearing current_vault if it pointed at it.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.load()
	if err != nil {
		return err
	}
	delete(file.Vaults, id)
	if file.CurrentVault == id {
		file.CurrentVault = ""
	}
	return r.save(file)
}
