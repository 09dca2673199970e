// Package checksum provides the CRC-32 comparison used to detect an
// incomplete prior update by comparing redundant NVC copies for content
// consistency.
//
// CRC-32 here is a byte-for-byte table checksum with no domain-specific
// framing; the standard library's hash/crc32 is the idiomatic choice and no
// third-party replacement in the example corpus does anything different for
// this narrow a job (DESIGN.md has the full justification).
package checksum

import "hash/crc32"

// Of returns the IEEE CRC-32 of data.
func Of(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// Equal reports whether two byte ranges have matching CRC-32 checksums.
func Equal(a, b []byte) bool {
	return Of(a) == Of(b)
}
