package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteTextfileContainsExpectedSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.prom")
	err := WriteTextfile(path, Run{
		Success:        true,
		EntriesWritten: 7,
		SlotActivated:  1,
	})
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)

	for _, want := range []string{
		"bup_update_last_run_success 1",
		"bup_update_entries_written 7",
		"bup_update_active_slot 1",
		"bup_update_last_run_dry_run 0",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("metrics output missing %q, got:\n%s", want, got)
		}
	}
}

func TestWriteTextfileOverwritesPreviousRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.prom")
	if err := WriteTextfile(path, Run{Success: false, EntriesWritten: 3}); err != nil {
		t.Fatal(err)
	}
	if err := WriteTextfile(path, Run{Success: true, EntriesWritten: 9}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if strings.Contains(got, "bup_update_entries_written 3") {
		t.Error("expected the stale sample to be replaced, not appended to")
	}
	if !strings.Contains(got, "bup_update_entries_written 9") {
		t.Error("expected the latest sample to be present")
	}
}
