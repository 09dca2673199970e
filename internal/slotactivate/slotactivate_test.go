package slotactivate

import (
	"testing"

	"github.com/socboot/bup-update/internal/smd"
)

func TestNextSlot(t *testing.T) {
	if NextSlot(true, 1) != 0 {
		t.Error("initializing should always select slot 0")
	}
	if NextSlot(false, 0) != 1 {
		t.Error("updating from slot 0 should select slot 1")
	}
	if NextSlot(false, 1) != 0 {
		t.Error("updating from slot 1 should select slot 0")
	}
}

func TestActivateDryRunDoesNotPersist(t *testing.T) {
	store := smd.NewFull(t.TempDir() + "/smd.yaml")
	newSlot, activated, err := Activate(store, false, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	if activated {
		t.Error("dry run must not mark activated=true")
	}
	if newSlot != 1 {
		t.Errorf("newSlot = %d, want 1", newSlot)
	}
	if store.CurrentSlot() != 0 {
		t.Error("dry run must not mutate the store")
	}
}

func TestActivateWritesThrough(t *testing.T) {
	store := smd.NewFull(t.TempDir() + "/smd.yaml")
	newSlot, activated, err := Activate(store, false, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if !activated || newSlot != 1 {
		t.Fatalf("got newSlot=%d activated=%v", newSlot, activated)
	}
	if store.CurrentSlot() != 1 {
		t.Error("store should reflect the new active slot")
	}
}
