package smd

import (
	"path/filepath"
	"testing"
)

func TestNewFullAndPersistRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smd.yaml")
	store := NewFull(path)
	if store.RedundancyLevel() != RedundancyFull {
		t.Fatal("NewFull should start at full redundancy")
	}
	if err := store.MarkSlotActive(1); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.CurrentSlot() != 1 {
		t.Errorf("CurrentSlot() = %d, want 1", loaded.CurrentSlot())
	}
	if loaded.RedundancyLevel() != RedundancyFull {
		t.Error("redundancy level should survive a round trip")
	}
}

func TestSetRedundancyLevelPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smd.yaml")
	store := NewFull(path)
	if err := store.SetRedundancyLevel(RedundancyNone); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.RedundancyLevel() != RedundancyNone {
		t.Error("expected redundancy level change to persist")
	}
}
