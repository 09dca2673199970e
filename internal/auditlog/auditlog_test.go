package auditlog

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestWriteRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.yaml")
	slot := 1
	rec := Record{
		Initialize:    false,
		DryRun:        true,
		Slot:          "_b",
		EntriesOK:     []string{"mb1", "mb2"},
		Warnings:      []string{"skip: mark slot as active"},
		SlotActivated: &slot,
	}
	if err := Write(path, rec); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got Record
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Slot != "_b" || !got.DryRun || len(got.EntriesOK) != 2 {
		t.Errorf("unexpected round trip: %+v", got)
	}
	if got.SlotActivated == nil || *got.SlotActivated != 1 {
		t.Error("expected slot_activated to round trip as a pointer to 1")
	}
}

func TestWriteOmitsEmptyOptionalFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.yaml")
	if err := Write(path, Record{Initialize: true}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"warnings", "error", "slot_activated"} {
		if _, ok := raw[key]; ok {
			t.Errorf("expected %q to be omitted when empty", key)
		}
	}
}
