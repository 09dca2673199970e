// Package platformhooks implements the small set of OS-level collaborator
// hooks: SoC-type detection, the write-protect
// toggle for boot devices, and the optional-partition policy hook.
package platformhooks

import (
	"os"
	"strings"

	"github.com/juju/errors"

	"github.com/socboot/bup-update/internal/socmodel"
)

// compatibleMap maps device-tree "compatible" tokens to a SoC generation.
// Real systems expose this at /proc/device-tree/compatible; tests pass an
// arbitrary path.
var compatibleMap = map[string]socmodel.SoC{
	"soc,g1-reference": socmodel.G1,
	"soc,g2-reference": socmodel.G2,
	"soc,g3-reference": socmodel.G3,
}

// ProbeSoC determines the SoC generation once at startup by reading a
// device-tree-style "compatible" string list (NUL-separated, as the kernel
// exposes it) from compatiblePath.
func ProbeSoC(compatiblePath string) (socmodel.SoC, error) {
	b, err := os.ReadFile(compatiblePath)
	if err != nil {
		return socmodel.Invalid, errors.Annotate(err, "probing SoC type")
	}
	for _, tok := range strings.Split(string(b), "\x00") {
		if soc, ok := compatibleMap[tok]; ok {
			return soc, nil
		}
	}
	return socmodel.Invalid, errors.Errorf("could not determine SoC type from %s", compatiblePath)
}

// SetBootdevWriteableStatus toggles the write-protect state of a boot
// device and returns the previous state, so the caller can restore it on
// every exit path. On real eMMC boot partitions this is the kernel's
// per-partition "force_ro" sysfs attribute; devForceRO is a path such as
// /sys/block/mmcblk0boot0/force_ro. Devices without such an attribute (e.g.
// a plain SPI MTD device already writeable through its character device)
// report their prior state as false with no error.
func SetBootdevWriteableStatus(devForceRO string, writeable bool) (prior bool, err error) {
	b, err := os.ReadFile(devForceRO)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Annotatef(err, "reading write-protect status %s", devForceRO)
	}
	prior = strings.TrimSpace(string(b)) == "1"

	want := "1"
	if writeable {
		want = "0"
	}
	if err := os.WriteFile(devForceRO, []byte(want), 0644); err != nil {
		return prior, errors.Annotatef(err, "setting write-protect status %s", devForceRO)
	}
	return prior, nil
}

// Policy decides whether a named partition is optional when it cannot be
// located on-device or by label.
type Policy struct {
	// OptionalPartitions is the set of partition base names that may be
	// silently skipped when missing.
	OptionalPartitions map[string]bool
}

// PartitionShouldBePresent reports whether the resolver must fail when name
// cannot be located. The default policy (empty Policy) requires every
// partition; callers populate OptionalPartitions from layout configuration.
func (p Policy) PartitionShouldBePresent(name string) bool {
	return !p.OptionalPartitions[name]
}
