// Package executor walks an ordered entry list, reading each entry's
// payload from the package and writing it to the resolved target, with
// the BCT routed through the multi-pass writer in internal/bct.
package executor

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/juju/errors"

	"github.com/socboot/bup-update/internal/bct"
	"github.com/socboot/bup-update/internal/bctvalidate"
	"github.com/socboot/bup-update/internal/blockio"
	"github.com/socboot/bup-update/internal/bup"
	"github.com/socboot/bup-update/internal/planner"
	"github.com/socboot/bup-update/internal/socmodel"
)

// Options configures one executor run.
type Options struct {
	DryRun      bool
	Initialize  bool
	Platform    socmodel.Platform
	SoC         socmodel.SoC
	BCTCopies   int // 2 on SPI-boot platforms (two slots in block 0), else 1
	Progress    func(format string, args ...any)
}

// Run processes every entry in order, stopping at the first failure, per
// the "program order, first failure aborts the worklist" guarantee.
// g1State must be non-nil when opts.SoC is G1; it is shared across every
// BCT entry in the list, since the "which" state machine spans calls.
func Run(pkg bup.Reader, entries []planner.Entry, opts Options, g1State *bct.G1State) error {
	for _, e := range entries {
		if opts.Progress != nil {
			opts.Progress("  Processing %s... ", e.Name)
		}
		if e.Source.Length > e.Target.Length {
			return errors.Errorf("BUP contents too large for boot partition %s (payload %d bytes, partition %d bytes)", e.Name, e.Source.Length, e.Target.Length)
		}

		buf := make([]byte, e.Source.Length)
		if err := pkg.ReadAt(e.Source.Name, buf, 0); err != nil {
			return errors.Annotatef(err, "reading payload for %s", e.Name)
		}

		if opts.DryRun {
			if opts.Progress != nil {
				opts.Progress("[OK] (dry run)\n")
			}
			continue
		}

		if e.Target.External {
			if err := writeExternal(e.Target.Path, buf); err != nil {
				return errors.Annotatef(err, "writing %s", e.Name)
			}
			if opts.Progress != nil {
				opts.Progress("[OK]\n")
			}
			continue
		}

		if e.IsBCT {
			if err := writeBCT(e, buf, opts, g1State); err != nil {
				return errors.Annotatef(err, "writing BCT entry %s", e.Name)
			}
			if opts.Progress != nil {
				opts.Progress("[OK]\n")
			}
			continue
		}

		if err := writePlain(e, buf); err != nil {
			return errors.Annotatef(err, "writing %s", e.Name)
		}
		if opts.Progress != nil {
			opts.Progress("[OK]\n")
		}
	}
	return nil
}

func openReadWrite(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Annotatef(err, "opening %s", path)
	}
	return f, nil
}

func writeExternal(path string, buf []byte) error {
	f, err := openReadWrite(path)
	if err != nil {
		return err
	}
	defer f.Close()
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return errors.Annotate(err, "measuring device")
	}
	if err := blockio.WriteExactAt(f, buf, 0, int(size), f.Sync); err != nil {
		return err
	}
	return f.Sync()
}

func writePlain(e planner.Entry, buf []byte) error {
	current := make([]byte, e.Target.Length)
	if err := blockio.ReadExactAt(e.Target.Dev, current, e.Target.Offset); err != nil {
		return errors.Annotate(err, "reading current content")
	}
	if bytes.Equal(current[:len(buf)], buf) {
		return nil
	}
	if err := blockio.WriteExactAt(e.Target.Dev, buf, e.Target.Offset, int(e.Target.Length), e.Target.Dev.Sync); err != nil {
		return err
	}
	return e.Target.Dev.Sync()
}

func writeBCT(e planner.Entry, buf []byte, opts Options, g1State *bct.G1State) error {
	current := make([]byte, e.Target.Length)
	var curBCT []byte
	if !opts.Initialize {
		if err := blockio.ReadExactAt(e.Target.Dev, current, e.Target.Offset); err != nil {
			return errors.Annotate(err, "reading current BCT content")
		}
		curBCT = current
	}

	if opts.SoC == socmodel.G1 {
		if _, ok := bctvalidate.ValidateG1(opts.Platform, opts.BCTCopies, buf); !ok {
			return errors.New("validation check failed for BCT update")
		}
	} else if _, ok := bctvalidate.ValidateG2G3(opts.Platform, curBCT, buf); !ok {
		return errors.New("validation check failed for BCT update")
	}

	do := func(w bct.Write) (bool, error) {
		offset := e.Target.Offset + w.Offset
		if curBCT != nil && bytes.Equal(buf, sliceAt(curBCT, w.Offset, int64(len(buf)))) {
			return true, nil
		}
		if err := blockio.WriteExactAt(e.Target.Dev, buf, offset, len(buf), e.Target.Dev.Sync); err != nil {
			return false, err
		}
		return false, nil
	}

	if opts.SoC == socmodel.G1 {
		if g1State == nil {
			return fmt.Errorf("internal error: no BCT state for G1 update")
		}
		if err := bct.RunG1(g1State, opts.Platform, e.Target.Length, int64(len(buf)), opts.BCTCopies, curBCT, buf, do); err != nil {
			return err
		}
	} else {
		if err := bct.RunG2G3(opts.Platform, int64(len(buf)), do); err != nil {
			return err
		}
	}
	return e.Target.Dev.Sync()
}

func sliceAt(b []byte, offset, length int64) []byte {
	if offset < 0 || offset+length > int64(len(b)) {
		return nil
	}
	return b[offset : offset+length]
}
