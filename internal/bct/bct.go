// Package bct implements the Boot Configuration Table writer: the
// multi-pass redundant write sequence for the BCT partition, which differs
// between G1 (a variable number of copies selected by a small state
// machine) and G2/G3 (always exactly three fixed offsets).
package bct

import (
	"bytes"

	"github.com/juju/errors"

	"github.com/socboot/bup-update/internal/socmodel"
)

// Write describes one pass the writer wants performed: write length bytes
// of newBCT at byte offset within the BCT partition, unless the caller
// finds length bytes of current content there already equal to newBCT, in
// which case the pass is reported as skipped.
type Write struct {
	Offset int64
	Label  string
}

// WriteFunc performs the actual device write for one pass, returning
// whether the pass was skipped because the existing content already
// matched.
type WriteFunc func(w Write) (skipped bool, err error)

// PlanG2G3 returns the fixed three-pass write sequence for G2/G3
// platforms: slot 1, then block 1, then slot 0, so a crash between
// any two passes still leaves at least one valid decodable copy.
func PlanG2G3(platform socmodel.Platform, payloadLen int64) []Write {
	pageSize := int64(platform.PageSize())
	blockSize := int64(platform.BCTBlockSize())
	slotSize := pageSize * ((payloadLen + pageSize - 1) / pageSize)
	return []Write{
		{Offset: slotSize, Label: "slot1"},
		{Offset: blockSize, Label: "block1"},
		{Offset: 0, Label: "slot0"},
	}
}

// RunG2G3 executes the three-pass G2/G3 sequence via do, stopping at the
// first failing pass.
func RunG2G3(platform socmodel.Platform, payloadLen int64, do WriteFunc) error {
	for _, w := range PlanG2G3(platform, payloadLen) {
		if _, err := do(w); err != nil {
			return errors.Annotatef(err, "BCT write at offset %d", w.Offset)
		}
	}
	return nil
}

// G1State is the small "which" state machine driving the G1 BCT copy
// order: last copy, then the middle copies, then copy 0, across three
// successive calls to Advance. Copies after the first processed BCT entry
// in the fixed order table each advance this state once.
type G1State struct {
	which int
}

// NewG1State returns a state primed for the first BCT entry: the last
// copy goes first.
func NewG1State() *G1State { return &G1State{which: -1} }

// Advance computes the [start, end] copy-index range (inclusive,
// descending) to write for the current call and advances the internal
// state for the next one. copyCount is the number of BCT copies the
// partition holds (capped at 64).
func (s *G1State) Advance(copyCount int) (start, end int) {
	if copyCount > 64 {
		copyCount = 64
	}
	switch {
	case s.which < 0:
		start, end = copyCount-1, copyCount-1
		s.which = 1
	case s.which == 0:
		start, end = 0, 0
		s.which = -1
	default:
		start, end = copyCount-2, 1
		s.which = 0
	}
	return start, end
}

// CopyName returns the partition name for copy index idx: "BCT" for idx
// 0, "BCT-N" otherwise.
func CopyName(idx int) string {
	if idx == 0 {
		return "BCT"
	}
	return "BCT-" + itoa(idx)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// RunG1 executes one BCT entry's write passes for a G1 platform: it
// computes the copy range via state, then for each copy index (counting
// down from start to end) writes newBCT at that copy's block offset. A copy
// whose current content already matches is still passed to do, with
// "(unchanged)" appended to its label, and gets no second block-0 slot
// write; whether the device is then touched is up to do. bctCopies is 2
// on SPI-boot platforms (two slots within block 0) and 1 otherwise,
// handling the block-0 double-write special case on SPI-boot platforms.
func RunG1(state *G1State, platform socmodel.Platform, partSize int64, payloadLen int64, bctCopies int, curBCT []byte, newBCT []byte, do WriteFunc) error {
	blockSize := int64(platform.BCTBlockSize())
	copyCount := int(partSize / blockSize)
	start, end := state.Advance(copyCount)

	for idx := start; idx >= end; idx-- {
		offset := int64(idx) * blockSize
		if curBCT != nil && bytes.Equal(newBCT, sliceAt(curBCT, offset, payloadLen)) {
			if _, err := do(Write{Offset: offset, Label: CopyName(idx) + " (unchanged)"}); err != nil {
				return err
			}
			continue
		}
		if _, err := do(Write{Offset: offset, Label: CopyName(idx)}); err != nil {
			return errors.Annotatef(err, "writing %s", CopyName(idx))
		}
		if idx == 0 && bctCopies == 2 {
			if _, err := do(Write{Offset: offset + payloadLen, Label: CopyName(idx) + " (second slot)"}); err != nil {
				return errors.Annotate(err, "writing second block-0 BCT slot")
			}
		}
	}
	return nil
}

func sliceAt(b []byte, offset, length int64) []byte {
	if offset < 0 || offset+length > int64(len(b)) {
		return nil
	}
	return b[offset : offset+length]
}
