// Package verinfo implements the VER partition's version-info extraction
// collaborator: decoding a raw VER-partition (or BUP VER
// entry) payload into a comparable version plus its stored content CRC.
package verinfo

import (
	"encoding/binary"

	"github.com/juju/errors"

	"github.com/socboot/bup-update/internal/checksum"
)

// magic identifies a structurally valid VER payload; anything else is
// treated as corrupted, matching ver_extract_info's nonzero-return path.
const magic = 0x56455231 // "VER1"

// Info is one version-info partition's content: the encoded BSP version
// triple and the CRC-32 of the full payload the version applies to.
type Info struct {
	BSPVersion uint32 // (major<<16 | minor<<8 | maint), zero means invalid/corrupted
	CRC        uint32
}

// Major, Minor and Maint decompose BSPVersion for display, matching the
// original's bsp_version_major/minor/maint helper macros.
func (i Info) Major() uint32 { return (i.BSPVersion >> 16) & 0xff }
func (i Info) Minor() uint32 { return (i.BSPVersion >> 8) & 0xff }
func (i Info) Maint() uint32 { return i.BSPVersion & 0xff }

// Valid reports whether the info decoded to a usable (nonzero) version.
func (i Info) Valid() bool { return i.BSPVersion != 0 }

// Extract decodes a VER payload. A structurally invalid payload (wrong
// magic, too short) returns a zero-valued, invalid Info and a non-nil
// error; callers that can tolerate one of the two redundant VER copies
// being unreadable deliberately ignore this error and proceed with
// the zero value.
func Extract(payload []byte) (Info, error) {
	if len(payload) < 8 {
		return Info{}, errors.New("version info payload too short")
	}
	if binary.LittleEndian.Uint32(payload[0:4]) != magic {
		return Info{}, errors.New("version info payload has bad magic")
	}
	version := binary.LittleEndian.Uint32(payload[4:8])
	if version == 0 {
		return Info{}, errors.New("version info payload has zero version")
	}
	return Info{
		BSPVersion: version,
		CRC:        checksum.Of(payload),
	}, nil
}
