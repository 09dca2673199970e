package partition

import (
	"os"

	"github.com/juju/errors"
	"golang.org/x/sys/unix"

	"github.com/socboot/bup-update/internal/blockio"
	"github.com/socboot/bup-update/internal/gptdev"
	"github.com/socboot/bup-update/internal/platformhooks"
)

// Devices bundles the handles the resolver may need to bind a target
// against, mirroring the "boot device" / "GPT device" split: on some
// platforms the two are the same physical device, on others the GPT lives
// on a separate disk entirely.
type Devices struct {
	Boot     blockio.Device
	BootSize int64

	GPT     blockio.Device
	GPTSize int64

	// ByLabelDir is consulted for a partition that is not present in the
	// GPT table at all, matching the kernel's /dev/disk/by-partlabel
	// convention for partitions that live outside the device this tool
	// manages directly.
	ByLabelDir string
}

// Target is the resolved location a partition's bytes should be read from
// or written to.
type Target struct {
	// External is true when the partition lives behind its own path
	// (ByLabelDir) rather than as an offset into Boot or GPT.
	External bool

	// Dev is the device to read/write when !External.
	Dev blockio.Device
	// Offset is the byte offset into Dev when !External.
	Offset int64

	// Path is the partition's own device node when External.
	Path string

	Length int64
}

// Resolve implements the partition resolver: find name in the GPT
// table, fall back to a by-label device node, or skip it if the platform
// policy allows the partition to be absent.
//
// found is false with a nil error exactly when the partition was missing
// but optional, per step 3; callers must treat that as "nothing to do for
// this entry," not as an error.
func Resolve(table gptdev.Table, devs Devices, policy platformhooks.Policy, name string) (target Target, found bool, err error) {
	if e, ok := table.FindByName(name); ok {
		length := e.ByteLength()
		offset := int64(e.FirstSector) * 512
		if offset+length <= devs.BootSize {
			return Target{Dev: devs.Boot, Offset: offset, Length: length}, true, nil
		}
		if devs.GPT == nil {
			return Target{}, false, errors.Errorf("partition %q addresses the GPT device but none is open", name)
		}
		gptOffset := offset - devs.BootSize
		if gptOffset < 0 || gptOffset+length > devs.GPTSize {
			return Target{}, false, errors.Errorf("partition %q sector range is out of bounds", name)
		}
		return Target{Dev: devs.GPT, Offset: gptOffset, Length: length}, true, nil
	}

	if devs.ByLabelDir != "" {
		path := devs.ByLabelDir + "/" + name
		// Probes with F_OK|W_OK exactly as a direct access(2) call would: a by-label
		// node that exists but isn't writable (read-only bind mount, wrong
		// permissions) is treated the same as one that doesn't exist.
		if accessErr := unix.Access(path, unix.F_OK|unix.W_OK); accessErr == nil {
			if fi, statErr := os.Stat(path); statErr == nil {
				return Target{External: true, Path: path, Length: fi.Size()}, true, nil
			}
		}
	}

	if policy.PartitionShouldBePresent(name) {
		return Target{}, false, errors.Errorf("required partition %q not found", name)
	}
	return Target{}, false, nil
}
