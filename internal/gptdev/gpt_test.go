package gptdev

import (
	"testing"

	"github.com/socboot/bup-update/internal/layoutconfig"
)

func TestStaticTableFindByName(t *testing.T) {
	table := NewStaticTable([]Entry{
		{Name: "mb1", FirstSector: 100, LastSector: 199},
	})
	e, ok := table.FindByName("mb1")
	if !ok {
		t.Fatal("expected to find mb1")
	}
	if e.ByteLength() != 100*512 {
		t.Errorf("ByteLength() = %d, want %d", e.ByteLength(), 100*512)
	}
	if _, ok := table.FindByName("missing"); ok {
		t.Error("did not expect to find a nonexistent partition")
	}
}

func TestLoadFromConfigAndMatch(t *testing.T) {
	cfg := &layoutconfig.Layout{
		Partitions: []layoutconfig.Partition{
			{Name: "mb1", FirstSector: 100, LastSector: 199},
			{Name: "mb2", FirstSector: 200, LastSector: 299},
		},
	}
	ctx, err := Init(nil, 1<<20, 512)
	if err != nil {
		t.Fatal(err)
	}
	if err := ctx.LoadFromConfig(cfg); err != nil {
		t.Fatal(err)
	}

	e, ok := ctx.FindByName("mb2")
	if !ok || e.FirstSector != 200 {
		t.Fatalf("unexpected lookup result: %+v ok=%v", e, ok)
	}

	result, err := ctx.LayoutConfigMatch(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if result != Match {
		t.Errorf("expected Match, got %v", result)
	}

	mismatched := &layoutconfig.Layout{
		Partitions: []layoutconfig.Partition{
			{Name: "mb1", FirstSector: 999, LastSector: 1099},
		},
	}
	result, err = ctx.LayoutConfigMatch(mismatched)
	if err != nil {
		t.Fatal(err)
	}
	if result != MatchMismatch {
		t.Errorf("expected MatchMismatch, got %v", result)
	}
}

func TestLayoutConfigMatchWithoutLoad(t *testing.T) {
	ctx, err := Init(nil, 1<<20, 512)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ctx.LayoutConfigMatch(&layoutconfig.Layout{}); err == nil {
		t.Error("expected error when no table has been loaded")
	}
}
