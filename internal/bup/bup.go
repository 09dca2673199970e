// Package bup is the Bootloader Update Package reader collaborator. It
// defines the container format the planner and executor read entries
// from, plus the fixed G1 partition-processing order tables.
package bup

import (
	"bufio"
	"bytes"
	"io"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"

	"github.com/socboot/bup-update/internal/socmodel"
)

const magic = "BUP1"

// Entry is one payload described by the package: a named partition's
// content plus the version value recorded for it, matching the
// (partname, offset, length, version) tuple a package entry carries.
type Entry struct {
	Name    string
	Offset  int64
	Length  int64
	Version uint32
}

// Reader is the collaborator the planner/executor consume; it is kept as
// an interface so tests can supply a fake package without touching a real
// file on disk.
type Reader interface {
	// Entries returns every entry the package carries, in the package's
	// own storage order (not the SoC-specific processing order, which the
	// planner computes separately).
	Entries() []Entry
	// ReadAt reads length bytes of entry name's payload starting at
	// offset bytes into that entry's content.
	ReadAt(name string, buf []byte, offset int64) error
}

type header struct {
	Entries []struct {
		Name    string `yaml:"name"`
		Offset  int64  `yaml:"offset"`
		Length  int64  `yaml:"length"`
		Version uint32 `yaml:"version"`
	} `yaml:"entries"`
}

// fileReader reads a package whose layout is: 4-byte magic, 4-byte
// big-endian header length, a YAML header describing every entry's
// placement within the remaining payload blob, then the raw payload
// bytes back to back in header order.
type fileReader struct {
	entries []Entry
	payload []byte
	offsets map[string]int64 // entry name -> byte offset within payload
}

// Open parses a package from r, buffering its payload in memory. Real
// packages are tens of megabytes at most, so this is simpler and safer
// than a seekable-reader abstraction that every test fake would also need
// to implement.
func Open(r io.Reader) (Reader, error) {
	br := bufio.NewReader(r)

	magicBuf := make([]byte, 4)
	if _, err := io.ReadFull(br, magicBuf); err != nil {
		return nil, errors.Annotate(err, "reading package magic")
	}
	if string(magicBuf) != magic {
		return nil, errors.Errorf("not a recognized update package (bad magic %q)", magicBuf)
	}

	var hdrLen uint32
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(br, lenBuf); err != nil {
		return nil, errors.Annotate(err, "reading package header length")
	}
	hdrLen = uint32(lenBuf[0])<<24 | uint32(lenBuf[1])<<16 | uint32(lenBuf[2])<<8 | uint32(lenBuf[3])

	hdrBuf := make([]byte, hdrLen)
	if _, err := io.ReadFull(br, hdrBuf); err != nil {
		return nil, errors.Annotate(err, "reading package header")
	}
	var h header
	if err := yaml.Unmarshal(hdrBuf, &h); err != nil {
		return nil, errors.Annotate(err, "parsing package header")
	}

	payload, err := io.ReadAll(br)
	if err != nil {
		return nil, errors.Annotate(err, "reading package payload")
	}

	fr := &fileReader{payload: payload, offsets: map[string]int64{}}
	for _, e := range h.Entries {
		fr.entries = append(fr.entries, Entry{Name: e.Name, Offset: e.Offset, Length: e.Length, Version: e.Version})
		fr.offsets[e.Name] = e.Offset
	}
	return fr, nil
}

func (fr *fileReader) Entries() []Entry { return fr.entries }

func (fr *fileReader) ReadAt(name string, buf []byte, offset int64) error {
	base, ok := fr.offsets[name]
	if !ok {
		return errors.Errorf("package has no entry %q", name)
	}
	start := base + offset
	end := start + int64(len(buf))
	if start < 0 || end > int64(len(fr.payload)) {
		return errors.Errorf("entry %q read out of bounds", name)
	}
	copy(buf, fr.payload[start:end])
	return nil
}

// Write serializes entries and their payload data (via get) into a new
// package, used by test fixtures and by any future package-authoring
// tooling; the production path only ever reads packages.
func Write(w io.Writer, entries []Entry, get func(name string) ([]byte, error)) error {
	var payload bytes.Buffer
	h := header{}
	offset := int64(0)
	for _, e := range entries {
		data, err := get(e.Name)
		if err != nil {
			return errors.Annotatef(err, "collecting payload for %s", e.Name)
		}
		h.Entries = append(h.Entries, struct {
			Name    string `yaml:"name"`
			Offset  int64  `yaml:"offset"`
			Length  int64  `yaml:"length"`
			Version uint32 `yaml:"version"`
		}{Name: e.Name, Offset: offset, Length: int64(len(data)), Version: e.Version})
		payload.Write(data)
		offset += int64(len(data))
	}
	hdrBytes, err := yaml.Marshal(h)
	if err != nil {
		return errors.Annotate(err, "encoding package header")
	}
	if _, err := w.Write([]byte(magic)); err != nil {
		return errors.Annotate(err, "writing package magic")
	}
	n := uint32(len(hdrBytes))
	lenBuf := []byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	if _, err := w.Write(lenBuf); err != nil {
		return errors.Annotate(err, "writing package header length")
	}
	if _, err := w.Write(hdrBytes); err != nil {
		return errors.Annotate(err, "writing package header")
	}
	if _, err := w.Write(payload.Bytes()); err != nil {
		return errors.Annotate(err, "writing package payload")
	}
	return nil
}

// G1EMMCOrder is the fixed processing order for G1 eMMC platforms:
// redundant copies first (the first of the three BCT entries, which writes
// the last BCT copy, sits among them), then the other two BCT entries (the
// middle copies, then copy 0), the primary copies, and finally the
// rollback-sensitive NVC/VER pair last.
var G1EMMCOrder = []string{
	"VER_b", "BCT", "NVC-1",
	"PT-1", "TBC-1", "RP1-1", "EBT-1", "WB0-1", "BPF-1", "DTB-1", "TOS-1", "EKS-1", "LNX-1",
	"BCT",
	"BCT",
	"PT", "TBC", "RP1", "EBT", "WB0", "BPF", "DTB", "TOS", "EKS", "LNX",
	"NVC", "VER",
}

// G1SPISDOrder is the fixed processing order for G1 SPI/SD platforms
// which carry no redundant copies of most partitions.
var G1SPISDOrder = []string{
	"VER_b", "BCT", "NVC_R",
	"BCT",
	"BCT",
	"PT", "TBC", "RP1", "EBT", "WB0", "BPF", "DTB", "TOS", "EKS", "LNX",
	"NVC", "VER",
}

// FixedOrderFor returns the G1 fixed processing order table for platform,
// or nil for G2/G3 SoCs, which derive their order dynamically.
func FixedOrderFor(soc socmodel.SoC, platform socmodel.Platform) []string {
	if soc != socmodel.G1 {
		return nil
	}
	if platform == socmodel.EMMC {
		return G1EMMCOrder
	}
	return G1SPISDOrder
}

// FindMissingEntries reports which of want are absent from r, in want's
// order, matching bup_find_missing_entries. No name is treated specially:
// an absent "EKS" is reported like any other.
func FindMissingEntries(r Reader, want []string) []string {
	have := map[string]bool{}
	for _, e := range r.Entries() {
		have[e.Name] = true
	}
	var missing []string
	for _, name := range want {
		if !have[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
