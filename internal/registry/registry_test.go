package registry

import (
	"path/filepath"
	"testing"
)

func TestRegisterAndCurrent(t *testing.T) {
	reg := OpenAt(filepath.Join(t.TempDir(), "vaults.json"))

	id, err := reg.Register("", "Personal", "/home/u/notes", "daily notes")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if id == "" {
		t.Fatal("Register() generated an empty id")
	}

	currentID, entry, ok, err := reg.Current()
	if err != nil {
		t.Fatal(err)
	}
	if !ok || currentID != id {
		t.Errorf("Current() = (%q, %v), want the first registered vault", currentID, ok)
	}
	if entry.Name != "Personal" || entry.Path != "/home/u/notes" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestSetCurrentAndRemove(t *testing.T) {
	reg := OpenAt(filepath.Join(t.TempDir(), "vaults.json"))

	first, err := reg.Register("", "First", "/a", "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := reg.Register("", "Second", "/b", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := reg.SetCurrent(second); err != nil {
		t.Fatalf("SetCurrent() error: %v", err)
	}
	currentID, _, _, err := reg.Current()
	if err != nil {
		t.Fatal(err)
	}
	if currentID != second {
		t.Errorf("Current() = %q, want %q", currentID, second)
	}

	if err := reg.SetCurrent("missing"); err == nil {
		t.Error("SetCurrent(missing) = nil, want error")
	}

	if err := reg.Remove(second); err != nil {
		t.Fatal(err)
	}
	currentID, _, ok, err := reg.Current()
	if err != nil {
		t.Fatal(err)
	}
	if ok || currentID != "" {
		t.Errorf("Current() after removing the current vault = (%q, %v), want cleared", currentID, ok)
	}

	vaults, err := reg.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(vaults) != 1 {
		t.Errorf("List() = %d vaults, want 1", len(vaults))
	}
	if _, exists := vaults[first]; !exists {
		t.Error("first vault missing after removing the second")
	}
}

func TestTouchUpdatesLastAccessed(t *testing.T) {
	reg := OpenAt(filepath.Join(t.TempDir(), "vaults.json"))

	id, err := reg.Register("fixed-id", "Vault", "/v", "")
	if err != nil {
		t.Fatal(err)
	}
	if id != "fixed-id" {
		t.Errorf("Register kept id = %q, want fixed-id", id)
	}

	if err := reg.Touch(id); err != nil {
		t.Errorf("Touch() error: %v", err)
	}
	if err := reg.Touch("missing"); err == nil {
		t.Error("Touch(missing) = nil, want error")
	}
}
