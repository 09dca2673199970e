package bct

import (
	"testing"

	"github.com/socboot/bup-update/internal/socmodel"
)

func TestPlanG2G3Offsets(t *testing.T) {
	writes := PlanG2G3(socmodel.EMMC, 900) // page size 512 -> slot size 1024
	want := []int64{1024, 16384, 0}
	if len(writes) != 3 {
		t.Fatalf("got %d writes, want 3", len(writes))
	}
	for i, w := range writes {
		if w.Offset != want[i] {
			t.Errorf("pass %d offset = %d, want %d", i, w.Offset, want[i])
		}
	}
}

func TestG1StateSequence(t *testing.T) {
	s := NewG1State()

	start, end := s.Advance(4)
	if start != 3 || end != 3 {
		t.Fatalf("first pass = [%d,%d], want [3,3]", start, end)
	}
	start, end = s.Advance(4)
	if start != 2 || end != 1 {
		t.Fatalf("second pass = [%d,%d], want [2,1]", start, end)
	}
	start, end = s.Advance(4)
	if start != 0 || end != 0 {
		t.Fatalf("third pass = [%d,%d], want [0,0]", start, end)
	}
	// state must have wrapped back to the initial "last copy first" mode
	start, end = s.Advance(4)
	if start != 3 || end != 3 {
		t.Fatalf("fourth pass (next BCT entry) = [%d,%d], want [3,3]", start, end)
	}
}

func TestCopyName(t *testing.T) {
	if CopyName(0) != "BCT" {
		t.Errorf("CopyName(0) = %q, want BCT", CopyName(0))
	}
	if CopyName(3) != "BCT-3" {
		t.Errorf("CopyName(3) = %q, want BCT-3", CopyName(3))
	}
}

func TestRunG1SkipsUnchangedCopies(t *testing.T) {
	s := NewG1State()
	blockSize := int64(socmodel.EMMC.BCTBlockSize())
	partSize := blockSize * 4
	payload := []byte("bct-payload-data")
	cur := make([]byte, partSize)
	copy(cur[3*int(blockSize):], payload) // copy 3 already matches

	var writes []Write
	err := RunG1(s, socmodel.EMMC, partSize, int64(len(payload)), 1, cur, payload, func(w Write) (bool, error) {
		writes = append(writes, w)
		return false, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(writes) != 1 {
		t.Fatalf("expected exactly one pass for the last-copy step, got %d", len(writes))
	}
	if writes[0].Label != "BCT-3 (unchanged)" {
		t.Errorf("matching last copy should be reported as unchanged, got label %q", writes[0].Label)
	}
}
