// Package planner turns a BUP package's raw entry list into ordered,
// target-resolved update tasks.
package planner

import (
	"strings"

	"github.com/juju/errors"

	"github.com/socboot/bup-update/internal/bup"
	"github.com/socboot/bup-update/internal/gptdev"
	"github.com/socboot/bup-update/internal/partition"
	"github.com/socboot/bup-update/internal/platformhooks"
)

// Entry is one resolved update task: a package entry bound to the
// physical location its content must be written to (or skipped, if the
// partition turned out to be optional-and-absent and was filtered out
// before this point).
type Entry struct {
	Name   string
	Source bup.Entry
	Target partition.Target

	// IsBCT marks the BCT partition, which the executor routes to the
	// bct package's multi-pass writer instead of a plain write.
	IsBCT bool
}

// Build resolves every entry in pkg against the GPT/by-label layout,
// splitting them into the redundant set (which also holds the primary
// BCT copy) and, when initializing, the non-redundant set processed last.
// suffix is "" for slot A, "_b" for slot B, ignored when initialize is
// true. redundantName computes a base partition name's backup-copy name
// (partition.RedundantName, bound to the running SoC/platform). It
// collects every entry into its redundant or non-redundant target set.
func Build(pkg bup.Reader, table gptdev.Table, devs partition.Devices, policy platformhooks.Policy, redundantName func(base string) string, initialize bool, suffix string) (redundant, nonredundant []Entry, mb1Other *Entry, err error) {
	for _, src := range pkg.Entries() {
		base := src.Name
		backupName := redundantName(base)

		target, found, rerr := partition.Resolve(table, devs, policy, base)
		if rerr != nil {
			return nil, nil, nil, errors.Annotatef(rerr, "resolving partition %s", base)
		}
		if !found {
			continue
		}

		// A missing backup copy only means the entry is non-redundant.
		backupPolicy := platformhooks.Policy{OptionalPartitions: map[string]bool{backupName: true}}
		backupTarget, backupFound, rerr := partition.Resolve(table, devs, backupPolicy, backupName)
		if rerr != nil {
			return nil, nil, nil, errors.Annotatef(rerr, "resolving partition %s", backupName)
		}

		isBCT := base == "BCT"

		if initialize {
			if backupFound || isBCT {
				redundant = append(redundant, Entry{Name: base, Source: src, Target: target, IsBCT: isBCT})
				if backupFound {
					redundant = append(redundant, Entry{Name: backupName, Source: src, Target: backupTarget, IsBCT: isBCT})
				}
			} else {
				nonredundant = append(nonredundant, Entry{Name: base, Source: src, Target: target})
			}
			continue
		}

		if !backupFound && !isBCT {
			continue
		}
		useBackup := backupFound && suffix != ""
		name, tgt := base, target
		if useBackup {
			name, tgt = backupName, backupTarget
		}
		redundant = append(redundant, Entry{Name: name, Source: src, Target: tgt, IsBCT: isBCT})

		if base == "mb1" {
			otherName, otherTarget := base, target
			if suffix == "" {
				otherName, otherTarget = backupName, backupTarget
			}
			mb1Other = &Entry{Name: otherName, Source: src, Target: otherTarget}
		}
	}
	return redundant, nonredundant, mb1Other, nil
}

// OrderG2G3 sorts entries into the fixed mb2/mb2_b/BCT(x3)/mb1/mb1_b
// precedence used on G2/G3, leaving every other entry in its incoming
// relative order ahead of that fixed tail. Every BCT entry is kept; of
// mb1, mb1_b, mb2 and mb2_b only the last occurrence of each is kept.
// mismatch is true when the output holds fewer entries than the input
// (which only such duplicates cause); callers should surface that as an
// "ordered entry list mismatch" warning, since it is non-fatal.
func OrderG2G3(entries []Entry) (ordered []Entry, mismatch bool) {
	var mb1, mb1b, mb2, mb2b *Entry
	var bctIdx []int
	var rest []Entry

	for i := range entries {
		e := &entries[i]
		switch {
		case e.Name == "mb1":
			mb1 = e
		case e.Name == "mb1_b":
			mb1b = e
		case e.Name == "mb2":
			mb2 = e
		case e.Name == "mb2_b":
			mb2b = e
		case e.Name == "BCT":
			bctIdx = append(bctIdx, i)
		default:
			rest = append(rest, *e)
		}
	}

	ordered = append(ordered, rest...)
	count := len(rest)
	appendIf := func(e *Entry) {
		if e != nil {
			ordered = append(ordered, *e)
			count++
		}
	}
	appendIf(mb2)
	appendIf(mb2b)
	for _, idx := range bctIdx {
		ordered = append(ordered, entries[idx])
		count++
	}
	appendIf(mb1)
	appendIf(mb1b)

	return ordered, count != len(entries)
}

// OrderG1 builds the fixed-order G1 processing list: entries are
// placed in fixedOrder's sequence (by name, with a BCT name reused across
// multiple positions pointing back at the same source entry), an absent
// "EKS"-prefixed name is tolerated, any other absent name is a hard
// error, and entries whose name never appears in fixedOrder are appended
// at the end in their original order.
func OrderG1(entries []Entry, fixedOrder []string) ([]Entry, error) {
	byName := map[string]Entry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	used := make(map[string]bool, len(entries))

	var ordered []Entry
	for _, name := range fixedOrder {
		e, ok := byName[name]
		if !ok {
			if strings.HasPrefix(name, "EKS") {
				continue
			}
			return nil, errors.Errorf("payload or partition not found for %s", name)
		}
		ordered = append(ordered, e)
		used[name] = true
	}
	for _, e := range entries {
		if !used[e.Name] {
			ordered = append(ordered, e)
		}
	}
	return ordered, nil
}
