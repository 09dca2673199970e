// Package gptdev is the GPT partition-table collaborator. GPT
// parsing is explicitly out of scope for the update planner/executor core;
// this package is the concrete adapter the orchestrator wires in so the
// tool is runnable against a real block device, kept entirely separate from
// the core packages that only see the gptdev.Table interface.
package gptdev

import (
	"bytes"
	"encoding/binary"
	"io"
	"unicode/utf16"

	"github.com/juju/errors"

	"github.com/socboot/bup-update/internal/layoutconfig"
)

const (
	headerLBA       = 1
	headerSize      = 92
	entrySize       = 128
	gptSignature    = "EFI PART"
	nameUTF16Chars  = 36 // 72 bytes / 2
	sectorSizeConst = 512
)

// Entry is a single GPT partition table row, matching the "Partition
// descriptor": {name, first_sector, last_sector}.
type Entry struct {
	Name        string
	FirstSector uint64
	LastSector  uint64
}

// ByteLength returns (last-first+1)*512.
func (e Entry) ByteLength() int64 {
	return int64(e.LastSector-e.FirstSector+1) * sectorSizeConst
}

// Table is the read-only view the partition resolver consumes.
type Table interface {
	FindByName(name string) (Entry, bool)
}

// staticTable is the simplest Table implementation: a fixed slice of
// entries, used both by the real GPT reader below and directly in tests.
type staticTable struct {
	entries []Entry
}

func (t *staticTable) FindByName(name string) (Entry, bool) {
	for _, e := range t.entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// NewStaticTable builds a Table from an explicit entry list, useful for
// tests and for gpt_load_from_config's synthetic table during
// initialization.
func NewStaticTable(entries []Entry) Table {
	return &staticTable{entries: entries}
}

// LoadFlags selects which copy of the GPT to read.
type LoadFlags int

const (
	// LoadBackupOnly reads the backup header at the end of the device,
	// the core never writes a
	// primary GPT itself.
	LoadBackupOnly LoadFlags = 1 << iota
)

// Context is a handle to an opened device plus whatever table was last
// loaded into it.
type Context struct {
	dev        io.ReaderAt
	devSize    int64
	sectorSize int
	table      *staticTable
}

// Init opens a GPT reading context over dev, which must report its own
// size via devSize (bytes).
func Init(dev io.ReaderAt, devSize int64, sectorSize int) (*Context, error) {
	if sectorSize <= 0 {
		sectorSize = sectorSizeConst
	}
	return &Context{dev: dev, devSize: devSize, sectorSize: sectorSize}, nil
}

type header struct {
	Signature        [8]byte
	Revision         uint32
	HeaderSize       uint32
	HeaderCRC32      uint32
	Reserved         uint32
	CurrentLBA       uint64
	BackupLBA        uint64
	FirstUsableLBA   uint64
	LastUsableLBA    uint64
	DiskGUID         [16]byte
	PartitionLBA     uint64
	NumEntries       uint32
	SizeOfEntry      uint32
	PartitionCRC32   uint32
}

type rawEntry struct {
	TypeGUID   [16]byte
	UniqueGUID [16]byte
	FirstLBA   uint64
	LastLBA    uint64
	Attributes uint64
	Name       [nameUTF16Chars * 2]byte
}

// Load reads the GPT header and partition entries from the device.
func (c *Context) Load(flags LoadFlags) error {
	var headerLBANum uint64 = headerLBA
	if flags&LoadBackupOnly != 0 {
		headerLBANum = uint64(c.devSize)/uint64(c.sectorSize) - 1
	}

	hdrBytes := make([]byte, c.sectorSize)
	if _, err := c.dev.ReadAt(hdrBytes, int64(headerLBANum)*int64(c.sectorSize)); err != nil {
		return errors.Annotate(err, "reading GPT header")
	}

	var h header
	if err := binary.Read(bytes.NewReader(hdrBytes[:headerSize]), binary.LittleEndian, &h); err != nil {
		return errors.Annotate(err, "decoding GPT header")
	}
	if string(h.Signature[:]) != gptSignature {
		return errors.Errorf("bad GPT signature %q", h.Signature[:])
	}

	entriesBytes := make([]byte, int(h.NumEntries)*int(h.SizeOfEntry))
	if _, err := c.dev.ReadAt(entriesBytes, int64(h.PartitionLBA)*int64(c.sectorSize)); err != nil {
		return errors.Annotate(err, "reading GPT partition entries")
	}

	entries := make([]Entry, 0, h.NumEntries)
	for i := 0; i < int(h.NumEntries); i++ {
		off := i * int(h.SizeOfEntry)
		if off+entrySize > len(entriesBytes) {
			break
		}
		var re rawEntry
		if err := binary.Read(bytes.NewReader(entriesBytes[off:off+entrySize]), binary.LittleEndian, &re); err != nil {
			return errors.Annotatef(err, "decoding GPT entry %d", i)
		}
		if re.FirstLBA == 0 && re.LastLBA == 0 {
			continue // unused entry
		}
		entries = append(entries, Entry{
			Name:        decodeUTF16Name(re.Name[:]),
			FirstSector: re.FirstLBA,
			LastSector:  re.LastLBA,
		})
	}
	c.table = &staticTable{entries: entries}
	return nil
}

// LoadFromConfig synthesizes a table from the configured layout, used when
// initializing a device whose GPT does not exist yet (or is not trusted).
func (c *Context) LoadFromConfig(cfg *layoutconfig.Layout) error {
	entries := make([]Entry, 0, len(cfg.Partitions))
	for _, p := range cfg.Partitions {
		entries = append(entries, Entry{Name: p.Name, FirstSector: p.FirstSector, LastSector: p.LastSector})
	}
	c.table = &staticTable{entries: entries}
	return nil
}

// FindByName looks up a partition in the most recently loaded table.
func (c *Context) FindByName(name string) (Entry, bool) {
	if c.table == nil {
		return Entry{}, false
	}
	return c.table.FindByName(name)
}

// MatchResult is the three-way outcome of LayoutConfigMatch.
type MatchResult int

const (
	MatchError MatchResult = iota - 1
	MatchMismatch
	Match
)

// LayoutConfigMatch compares the currently loaded table against cfg,
// returning Match only if every configured partition exists on-device at
// the exact same sector range and no unconfigured partition exists.
func (c *Context) LayoutConfigMatch(cfg *layoutconfig.Layout) (MatchResult, error) {
	if c.table == nil {
		return MatchError, errors.New("no GPT loaded")
	}
	if len(c.table.entries) != len(cfg.Partitions) {
		return MatchMismatch, nil
	}
	want := make(map[string]layoutconfig.Partition, len(cfg.Partitions))
	for _, p := range cfg.Partitions {
		want[p.Name] = p
	}
	for _, e := range c.table.entries {
		p, ok := want[e.Name]
		if !ok || p.FirstSector != e.FirstSector || p.LastSector != e.LastSector {
			return MatchMismatch, nil
		}
	}
	return Match, nil
}

func decodeUTF16Name(raw []byte) string {
	u16 := make([]uint16, len(raw)/2)
	for i := range u16 {
		u16[i] = binary.LittleEndian.Uint16(raw[i*2 : i*2+2])
	}
	// trim at the first NUL code unit
	for i, c := range u16 {
		if c == 0 {
			u16 = u16[:i]
			break
		}
	}
	return string(utf16.Decode(u16))
}
