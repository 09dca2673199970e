// Package socmodel defines the SoC generations and boot media this tool
// updates, and the sizing constants that follow from them.
package socmodel

import "fmt"

// SoC identifies one of the three supported chip generations.
type SoC int

const (
	Invalid SoC = iota
	G1
	G2
	G3
)

func (s SoC) String() string {
	switch s {
	case G1:
		return "G1"
	case G2:
		return "G2"
	case G3:
		return "G3"
	default:
		return "invalid"
	}
}

// IsABRedundant reports whether the SoC keeps A/B redundant slots managed by
// slot metadata. G1 has no SMD and is never A/B.
func (s SoC) IsABRedundant() bool {
	return s == G2 || s == G3
}

// Platform identifies the physical boot medium, which changes page/block
// sizing and whether a second "GPT device" exists.
type Platform int

const (
	UnknownPlatform Platform = iota
	SPIFlash
	EMMC
)

func (p Platform) String() string {
	switch p {
	case SPIFlash:
		return "SPI-flash"
	case EMMC:
		return "eMMC/SD"
	default:
		return "unknown"
	}
}

// SectorSize is the fixed sector size partition tables are addressed in.
const SectorSize = 512

// PageSize returns the flash page size for the given platform.
func (p Platform) PageSize() int {
	if p == SPIFlash {
		return 2048
	}
	return 512
}

// BCTBlockSize returns the BCT block size (G2/G3 scheme) for the platform.
func (p Platform) BCTBlockSize() int {
	if p == SPIFlash {
		return 32768
	}
	return 16384
}

// BCTCopies returns how many BCT copies occupy a single G1 block.
func (p Platform) BCTCopies() int {
	if p == SPIFlash {
		return 2
	}
	return 1
}

// Detect maps a BUP-declared boot device path prefix to a Platform.
func Detect(bootDevicePath string) (Platform, error) {
	switch {
	case len(bootDevicePath) >= 8 && bootDevicePath[:8] == "/dev/mtd":
		return SPIFlash, nil
	case len(bootDevicePath) >= 8 && bootDevicePath[:8] == "/dev/mmc":
		return EMMC, nil
	default:
		return UnknownPlatform, fmt.Errorf("unrecognized boot device: %s", bootDevicePath)
	}
}
