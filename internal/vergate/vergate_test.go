package vergate

import (
	"testing"

	"github.com/socboot/bup-update/internal/verinfo"
)

func v(version, crc uint32) verinfo.Info { return verinfo.Info{BSPVersion: version, CRC: crc} }

func TestCheckEqualValidVersionsAllow(t *testing.T) {
	bup := v(0x010000, 0)
	primary := v(0x010000, 0xaaaa)
	backup := v(0x010000, 0xaaaa) // matching CRC triggers the NVC consistency check
	d := Check(bup, primary, backup, func() (bool, error) { return true, nil }, false)
	if !d.Allow {
		t.Fatalf("expected allow, got deny: %s", d.Reason)
	}
}

func TestCheckEqualValidVersionsNVCMismatchDenied(t *testing.T) {
	bup := v(0x010000, 0)
	primary := v(0x010000, 0xaaaa)
	backup := v(0x010000, 0xaaaa)
	d := Check(bup, primary, backup, func() (bool, error) { return false, nil }, false)
	if d.Allow {
		t.Fatal("expected deny on NVC mismatch")
	}
}

func TestCheckRollbackDenied(t *testing.T) {
	bup := v(0x010000, 0)
	primary := v(0x020000, 0)
	backup := v(0x020000, 0)
	d := Check(bup, primary, backup, func() (bool, error) { return true, nil }, false)
	if d.Allow {
		t.Fatal("expected rollback to be denied")
	}
}

func TestCheckDowngradeForcedAllowsWithWarning(t *testing.T) {
	bup := v(0x010000, 0)
	primary := v(0x020000, 0)
	backup := verinfo.Info{} // invalid
	d := Check(bup, primary, backup, func() (bool, error) { return false, nil }, true)
	if !d.Allow || d.Warning == "" {
		t.Fatalf("expected forced allow with warning, got %+v", d)
	}
}

func TestCheckDowngradeNotForcedDenied(t *testing.T) {
	bup := v(0x010000, 0)
	primary := v(0x020000, 0)
	backup := verinfo.Info{}
	d := Check(bup, primary, backup, func() (bool, error) { return false, nil }, false)
	if d.Allow {
		t.Fatal("expected downgrade to be denied without force")
	}
}

func TestCheckIncompletePriorUpdateDenied(t *testing.T) {
	bup := v(0x030000, 0)
	primary := verinfo.Info{}
	backup := v(0x020000, 0)
	d := Check(bup, primary, backup, func() (bool, error) { return false, nil }, false)
	if d.Allow {
		t.Fatal("expected deny for incomplete prior update")
	}
}

func TestCheckBothCorruptedForceAllows(t *testing.T) {
	bup := v(0x010000, 0)
	d := Check(bup, verinfo.Info{}, verinfo.Info{}, func() (bool, error) { return false, nil }, true)
	if !d.Allow {
		t.Fatal("expected forced allow for corrupted version partitions")
	}
}

func TestCheckBothCorruptedNotForcedDenied(t *testing.T) {
	bup := v(0x010000, 0)
	d := Check(bup, verinfo.Info{}, verinfo.Info{}, func() (bool, error) { return false, nil }, false)
	if d.Allow {
		t.Fatal("expected deny for corrupted version partitions without force")
	}
}
