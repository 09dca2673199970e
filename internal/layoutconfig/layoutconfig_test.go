package layoutconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	contents := `
soc: G2
platform: eMMC
partitions:
  - name: mb1
    first_sector: 100
    last_sector: 199
  - name: mb1_b
    first_sector: 200
    last_sector: 299
optional_partitions:
  - EKS
`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	layout, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if layout.SoC != "G2" || layout.Platform != "eMMC" {
		t.Errorf("got SoC=%q Platform=%q", layout.SoC, layout.Platform)
	}
	if len(layout.Partitions) != 2 {
		t.Fatalf("got %d partitions, want 2", len(layout.Partitions))
	}
	if layout.Partitions[0].Name != "mb1" || layout.Partitions[0].FirstSector != 100 {
		t.Errorf("unexpected first partition: %+v", layout.Partitions[0])
	}

	opt := layout.OptionalSet()
	if !opt["EKS"] {
		t.Error("expected EKS to be in the optional set")
	}
	if opt["mb1"] {
		t.Error("mb1 must not be optional")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
