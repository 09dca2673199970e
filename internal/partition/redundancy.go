// Package partition implements the partition resolver and the
// redundancy naming rules.
package partition

import "github.com/socboot/bup-update/internal/socmodel"

// RedundantName maps a base partition name to its redundant-copy name,
// following the SoC- and platform-specific rules.
func RedundantName(soc socmodel.SoC, platform socmodel.Platform, base string) string {
	if soc != socmodel.G1 {
		return base + "_b"
	}
	// G1
	if platform == socmodel.EMMC {
		switch base {
		case "NVC":
			return "NVC-1"
		case "VER":
			return "VER_b"
		default:
			return base + "-1"
		}
	}
	// G1, SPI-flash
	switch base {
	case "NVC":
		return "NVC_R"
	case "VER":
		return "VER_b"
	default:
		return base + "-1"
	}
}
