package planner

import (
	"github.com/socboot/bup-update/internal/bup"
	"github.com/socboot/bup-update/internal/gptdev"
	"github.com/socboot/bup-update/internal/partition"
	"github.com/socboot/bup-update/internal/platformhooks"
)

type fakeReader struct {
	entries []bup.Entry
}

func (f fakeReader) Entries() []bup.Entry { return f.entries }
func (f fakeReader) ReadAt(name string, buf []byte, offset int64) error { return nil }

type fakeTable struct{}

func (fakeTable) FindByName(name string) (gptdev.Entry, bool) { return gptdev.Entry{}, false }

func noDevices() partition.Devices { return partition.Devices{} }

func noPolicy() platformhooks.Policy {
	return platformhooks.Policy{OptionalPartitions: map[string]bool{"Unknown": true, "Unknown_b": true}}
}
