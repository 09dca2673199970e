// Package slotactivate implements the slot activator: deciding
// which slot becomes active after a successful update and recording that
// decision in slot metadata.
package slotactivate

import (
	"github.com/juju/errors"

	"github.com/socboot/bup-update/internal/smd"
)

// NextSlot returns the slot that should become active: slot 0 when
// initializing, otherwise the slot opposite the currently active one
// (1 - current), matching "newslot = initialize ? 0 : 1 - curslot".
func NextSlot(initialize bool, currentSlot int) int {
	if initialize {
		return 0
	}
	return 1 - currentSlot
}

// Activate marks newSlot active in store, unless dryRun, in which case it
// reports the slot it would have activated without touching the store.
func Activate(store smd.Store, initialize bool, currentSlot int, dryRun bool) (newSlot int, activated bool, err error) {
	newSlot = NextSlot(initialize, currentSlot)
	if dryRun {
		return newSlot, false, nil
	}
	if err := store.MarkSlotActive(newSlot); err != nil {
		return newSlot, false, errors.Annotate(err, "marking new boot slot active")
	}
	return newSlot, true, nil
}
