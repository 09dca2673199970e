// Package repartition implements the repartition check mode (the
// CLI's -N/--needs-repartition flag): determining, without writing
// anything, whether the on-device GPT already matches the configured
// layout.
package repartition

import (
	"github.com/socboot/bup-update/internal/gptdev"
	"github.com/socboot/bup-update/internal/layoutconfig"
	"github.com/socboot/bup-update/internal/socmodel"
)

// Result is the tri-state exit code this check reports:
//
//	NoActionNeeded (0): the layout already matches, nothing to do.
//	RepartitionRequired (1): layout differs, or (on G1) a full erasure
//	  is always required since G1 carries no GPT on the boot device.
//	Indeterminate (2): the comparison itself could not be completed.
type Result int

const (
	NoActionNeeded Result = iota
	RepartitionRequired
	Indeterminate
)

// Check runs the repartition comparison. On G1, the boot device never
// carries a GPT the tool can meaningfully diff, so this check always
// reports RepartitionRequired without attempting a real comparison.
func Check(soc socmodel.SoC, ctx *gptdev.Context, cfg *layoutconfig.Layout) Result {
	if soc == socmodel.G1 {
		return RepartitionRequired
	}

	if err := ctx.Load(gptdev.LoadBackupOnly); err != nil {
		return RepartitionRequired
	}

	match, err := ctx.LayoutConfigMatch(cfg)
	if err != nil {
		return Indeterminate
	}
	if match == gptdev.Match {
		return NoActionNeeded
	}
	return RepartitionRequired
}
