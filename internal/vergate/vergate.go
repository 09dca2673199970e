// Package vergate implements the version/rollback gate: whether
// an update package may be applied given the currently stored version
// partitions, or must be refused to avoid bricking the device.
package vergate

import (
	"fmt"

	"github.com/socboot/bup-update/internal/verinfo"
)

// Decision is the gate's outcome.
type Decision struct {
	Allow   bool
	Warning string // non-empty when Allow is true but a rollback/corruption was tolerated
	Reason  string // non-empty when Allow is false
}

func deny(format string, args ...any) Decision {
	return Decision{Allow: false, Reason: fmt.Sprintf(format, args...)}
}

func allow() Decision { return Decision{Allow: true} }

func allowWithWarning(format string, args ...any) Decision {
	return Decision{Allow: true, Warning: fmt.Sprintf(format, args...)}
}

func ver(i verinfo.Info) string {
	return fmt.Sprintf("%d.%d.%d", i.Major(), i.Minor(), i.Maint())
}

// Check runs the full four-branch rollback/downgrade/corruption decision.
//
// bup is the version info carried by the update package itself. primary
// and backup are Info{} zero values when the corresponding partition
// could not be decoded (a verinfo.Extract error, deliberately ignored by
// the caller). nvcMatch is called only when both version partitions agree
// on a nonzero version, to confirm the last update actually completed;
// it should compare the NVC partition against its redundant copy by CRC.
// forceInitialize relaxes the downgrade and corruption checks, matching
// the behavior requested by an explicit re-initialize.
func Check(bup verinfo.Info, primary, backup verinfo.Info, nvcMatch func() (bool, error), forceInitialize bool) Decision {
	if primary.Valid() && backup.Valid() && primary.BSPVersion == backup.BSPVersion {
		if primary.BSPVersion > bup.BSPVersion {
			return deny("current bootloader version is %s; cannot roll back to %s", ver(primary), ver(bup))
		}
		if primary.CRC == backup.CRC {
			matched, err := nvcMatch()
			if err != nil || !matched {
				return deny("NVC partition mismatch - reflash required")
			}
		}
		return allow()
	}

	switch {
	case !backup.Valid() && primary.Valid() && primary.BSPVersion > bup.BSPVersion:
		if forceInitialize {
			return allowWithWarning("downgrading bootloader from %s to %s", ver(primary), ver(bup))
		}
		return deny("current bootloader version is %s; cannot downgrade to %s", ver(primary), ver(bup))

	case backup.Valid() && backup.BSPVersion != bup.BSPVersion:
		return deny("previous update was incomplete; please update with version %s", ver(backup))

	case forceInitialize:
		return allowWithWarning("bootloader version partitions were corrupted")

	default:
		return deny("bootloader version partitions are corrupted; cannot apply update")
	}
}
