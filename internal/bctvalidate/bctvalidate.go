// Package bctvalidate is the BCT content validator collaborator, whose
// failure is reported as "validation check failed for BCT update". The real
// per-SoC BCT structure (customer keys, secure-boot chains, board-strap
// fields) is vendor-proprietary and out of scope for this tool; these
// validators only check the structural invariants a rewritten BCT must
// still satisfy relative to the BCT it replaces, which is enough to catch
// an obviously wrong or truncated payload before it gets written.
package bctvalidate

import "github.com/socboot/bup-update/internal/socmodel"

// Result carries the block/page sizing the G2/G3 BCT writer needs, since
// the real validator is also where the vendor format would report them.
type Result struct {
	BlockSize int
	PageSize  int
}

// ValidateG2G3 checks that newBCT is a plausible replacement for curBCT:
// non-empty, and not larger than a single BCT block can hold. curBCT may
// be nil when initializing, in which case only newBCT's size is checked.
func ValidateG2G3(platform socmodel.Platform, curBCT, newBCT []byte) (Result, bool) {
	res := Result{BlockSize: platform.BCTBlockSize(), PageSize: platform.PageSize()}
	if len(newBCT) == 0 || len(newBCT) > res.BlockSize {
		return res, false
	}
	if curBCT != nil && len(curBCT) < res.BlockSize {
		return res, false
	}
	return res, true
}

// ValidateG1 is the t210-family equivalent: it additionally reports the
// boot-device block and page size bct.RunG1 needs, with no G2/G3-style
// content validation, since G1 boards have no previous-BCT comparison to
// make. newBCT must be a non-empty multiple of the boot device's page size,
// and bctCopies copies of it must still fit within one BCT block.
func ValidateG1(platform socmodel.Platform, bctCopies int, newBCT []byte) (Result, bool) {
	res := Result{BlockSize: platform.BCTBlockSize(), PageSize: platform.PageSize()}
	if len(newBCT) == 0 || len(newBCT)%res.PageSize != 0 {
		return res, false
	}
	if int64(len(newBCT))*int64(bctCopies) > int64(res.BlockSize) {
		return res, false
	}
	return res, true
}
