// Package orchestrate is the lifecycle glue object: it
// owns every device handle and buffer for one update run, applies the
// write-protect toggle and GPT loading before anything else runs, and
// guarantees the resources it acquired are released in reverse order on
// every exit path, success or failure.
package orchestrate

import (
	"io"
	"os"

	"github.com/juju/errors"

	"github.com/socboot/bup-update/internal/auditlog"
	"github.com/socboot/bup-update/internal/bct"
	"github.com/socboot/bup-update/internal/bup"
	"github.com/socboot/bup-update/internal/checksum"
	"github.com/socboot/bup-update/internal/executor"
	"github.com/socboot/bup-update/internal/gptdev"
	"github.com/socboot/bup-update/internal/layoutconfig"
	"github.com/socboot/bup-update/internal/metrics"
	"github.com/socboot/bup-update/internal/partition"
	"github.com/socboot/bup-update/internal/planner"
	"github.com/socboot/bup-update/internal/platformhooks"
	"github.com/socboot/bup-update/internal/progress"
	"github.com/socboot/bup-update/internal/repartition"
	"github.com/socboot/bup-update/internal/slotactivate"
	"github.com/socboot/bup-update/internal/smd"
	"github.com/socboot/bup-update/internal/socmodel"
	"github.com/socboot/bup-update/internal/vergate"
	"github.com/socboot/bup-update/internal/verinfo"
)

// Options is everything a run needs to know, already validated and
// normalized by the CLI layer: slot suffix mapping, -i/-s mutual
// exclusivity, and so on are the CLI's job, not this package's.
type Options struct {
	PackagePath string

	Initialize    bool // user explicitly requested initialize/re-flash
	DryRun        bool
	CheckOnly     bool
	SlotSpecified bool
	SlotSuffix    string // "" or "_b", meaningful only when SlotSpecified

	BootDevice        string
	GPTDeviceOverride string // empty unless this platform keeps GPT on a second device
	DeviceTreeCompat  string
	LayoutConfigPath  string
	ByLabelDir        string
	BootForceROPath   string
	GPTForceROPath    string
	SMDPath           string
	MetricsPath       string
	AuditLogPath      string

	Progress func(format string, args ...any)
}

// Result summarizes a completed run for the CLI layer to translate into
// a process exit code.
type Result struct {
	RepartitionCheck repartition.Result // only meaningful when Options.CheckOnly
	Warnings         []string
}

// Run executes one full update/initialize/check invocation end to end.
func Run(opts Options) (res Result, err error) {
	soc, err := platformhooks.ProbeSoC(opts.DeviceTreeCompat)
	if err != nil {
		return res, err
	}
	platform, err := socmodel.Detect(opts.BootDevice)
	if err != nil {
		return res, err
	}

	initialize := opts.Initialize
	forceInitialize := opts.Initialize
	if soc == socmodel.G1 {
		if opts.SlotSpecified {
			return res, errors.New("unsupported operation for this platform")
		}
		initialize = true
	}

	pkg, err := openPackage(opts.PackagePath)
	if err != nil {
		return res, err
	}

	var resetBoot, resetGPT bool
	var bootFile, gptFile *os.File
	defer func() {
		// Cleanup, regardless of how Run is returning: close the device
		// handles (GPT device, then boot device), then restore the
		// write-protect toggles that were changed (boot, then GPT).
		if gptFile != nil {
			if !opts.DryRun {
				_ = gptFile.Sync()
			}
			_ = gptFile.Close()
		}
		if bootFile != nil {
			if !opts.DryRun {
				_ = bootFile.Sync()
			}
			_ = bootFile.Close()
		}
		if resetBoot {
			_, _ = platformhooks.SetBootdevWriteableStatus(opts.BootForceROPath, false)
		}
		if resetGPT {
			_, _ = platformhooks.SetBootdevWriteableStatus(opts.GPTForceROPath, false)
		}
	}()

	if opts.GPTDeviceOverride != "" {
		if !opts.DryRun {
			prior, werr := platformhooks.SetBootdevWriteableStatus(opts.GPTForceROPath, true)
			if werr != nil {
				return res, werr
			}
			resetGPT = prior
		}
		mode := os.O_RDONLY
		if !opts.DryRun {
			mode = os.O_RDWR
		}
		gptFile, err = os.OpenFile(opts.GPTDeviceOverride, mode, 0)
		if err != nil {
			return res, errors.Annotate(err, "opening GPT device")
		}
	}

	if !opts.DryRun {
		prior, werr := platformhooks.SetBootdevWriteableStatus(opts.BootForceROPath, true)
		if werr != nil {
			return res, werr
		}
		resetBoot = prior
	}
	bootMode := os.O_RDONLY
	if !opts.DryRun {
		bootMode = os.O_RDWR
	}
	bootFile, err = os.OpenFile(opts.BootDevice, bootMode, 0)
	if err != nil {
		return res, errors.Annotate(err, "opening boot device")
	}
	bootSize, err := seekSize(bootFile)
	if err != nil {
		return res, err
	}

	cfg, err := layoutconfig.Load(opts.LayoutConfigPath)
	if err != nil {
		return res, err
	}

	gptCtx, err := gptdev.Init(bootFile, bootSize, socmodel.SectorSize)
	if err != nil {
		return res, err
	}

	if opts.CheckOnly {
		res.RepartitionCheck = repartition.Check(soc, gptCtx, cfg)
		return res, nil
	}

	if initialize {
		if err := gptCtx.LoadFromConfig(cfg); err != nil {
			return res, err
		}
	} else if err := gptCtx.Load(gptdev.LoadBackupOnly); err != nil {
		return res, errors.Annotate(err, "cannot load boot sector partition table")
	}

	policy := platformhooks.Policy{OptionalPartitions: cfg.OptionalSet()}
	devs := partition.Devices{Boot: bootFile, BootSize: bootSize, ByLabelDir: opts.ByLabelDir}
	if gptFile != nil {
		gptSize, serr := seekSize(gptFile)
		if serr != nil {
			return res, serr
		}
		devs.GPT = gptFile
		devs.GPTSize = gptSize
	}

	var store smd.Store
	if soc != socmodel.G1 {
		if initialize {
			store = smd.NewFull(opts.SMDPath)
		} else {
			loaded, lerr := smd.Load(opts.SMDPath)
			if lerr != nil {
				return res, errors.Annotate(lerr, "loading slot metadata")
			}
			store = loaded
		}
		if !opts.SlotSpecified && store.RedundancyLevel() != smd.RedundancyFull {
			if opts.DryRun {
				res.Warnings = append(res.Warnings, "skip: enable redundancy in slot metadata")
			} else if err := store.SetRedundancyLevel(smd.RedundancyFull); err != nil {
				return res, errors.Annotate(err, "enabling redundancy in slot metadata")
			}
		}
	}

	missing := bup.FindMissingEntries(pkg, requiredNames(soc, platform))
	if len(missing) > 0 {
		return res, errors.Errorf("missing entries for partitions: %v", missing)
	}

	suffix := opts.SlotSuffix
	curSlot := -1
	if soc != socmodel.G1 && !opts.SlotSpecified && !initialize {
		curSlot = store.CurrentSlot()
		if curSlot == 0 {
			suffix = "_b"
		} else {
			suffix = ""
		}
	}

	redundantName := redundantNameFunc(soc, platform)
	done := progress.Phase("building worklist")
	redundant, nonredundant, mb1Other, err := planner.Build(pkg, gptCtx, devs, policy, redundantName, initialize, suffix)
	done("")
	if err != nil {
		return res, err
	}

	execOpts := executor.Options{
		DryRun:     opts.DryRun,
		Initialize: initialize,
		Platform:   platform,
		SoC:        soc,
		BCTCopies:  bctCopies(platform),
		Progress:   opts.Progress,
	}

	if soc == socmodel.G1 {
		order := bup.FixedOrderFor(soc, platform)
		if !checkVersionGateG1(pkg, gptCtx, devs, redundant, forceInitialize) {
			return res, errors.New("version gate refused the update")
		}
		ordered, oerr := planner.OrderG1(redundant, order)
		if oerr != nil {
			return res, oerr
		}
		g1State := bct.NewG1State()
		done := progress.Phase("writing boot chain")
		err := executor.Run(pkg, ordered, execOpts, g1State)
		done("")
		if err != nil {
			return res, err
		}
		writeAudit(opts, pkg, initialize, nil)
		writeMetrics(opts, len(ordered), true, 0)
		return res, nil
	}

	ordered, mismatch := planner.OrderG2G3(redundant)
	if mismatch {
		res.Warnings = append(res.Warnings, "ordered entry list mismatch")
	}
	bctUpdated := containsBCT(ordered)
	doneRedundant := progress.Phase("writing redundant entries")
	rerr := executor.Run(pkg, ordered, execOpts, nil)
	doneRedundant("")
	if rerr != nil {
		return res, rerr
	}

	if initialize {
		doneOther := progress.Phase("writing non-redundant entries")
		oerr := executor.Run(pkg, nonredundant, execOpts, nil)
		doneOther("")
		if oerr != nil {
			return res, oerr
		}
	} else if mb1Other != nil {
		doneOther := progress.Phase("writing backup mb1 copy")
		oerr := executor.Run(pkg, []planner.Entry{*mb1Other}, execOpts, nil)
		doneOther("")
		if oerr != nil {
			return res, oerr
		}
	} else if bctUpdated {
		return res, errors.New("BCT updated but mb1 has no backup copy to keep in lockstep")
	}

	newSlot := 0
	if !opts.SlotSpecified {
		var activated bool
		doneActivate := progress.Phase("activating slot")
		newSlot, activated, err = slotactivate.Activate(store, initialize, curSlot, opts.DryRun)
		doneActivate("")
		if err != nil {
			return res, err
		}
		if !activated {
			res.Warnings = append(res.Warnings, "skip: mark slot as active")
		}
	}

	writeAudit(opts, pkg, initialize, &newSlot)
	writeMetrics(opts, len(ordered)+len(nonredundant), true, newSlot)
	return res, nil
}

func openPackage(path string) (bup.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Annotatef(err, "opening package %s", path)
	}
	defer f.Close()
	return bup.Open(f)
}

func seekSize(f *os.File) (int64, error) {
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, errors.Annotate(err, "measuring device")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, errors.Annotate(err, "rewinding device")
	}
	return size, nil
}

// requiredNames returns the entries a package must carry for soc/platform,
// independent of what the package under examination actually contains, so
// that a package missing a required partition is caught rather than
// silently waved through.
func requiredNames(soc socmodel.SoC, platform socmodel.Platform) []string {
	if order := bup.FixedOrderFor(soc, platform); order != nil {
		return order
	}
	return []string{"VER", "BCT", "mb1", "mb2"}
}

// containsBCT reports whether entries includes the BCT partition, used to
// decide whether a missing mb1 backup copy after writing it is fatal: mb1
// and the BCT it was written alongside must never fall out of lockstep.
func containsBCT(entries []planner.Entry) bool {
	for _, e := range entries {
		if e.IsBCT {
			return true
		}
	}
	return false
}

func redundantNameFunc(soc socmodel.SoC, platform socmodel.Platform) func(string) string {
	return func(base string) string { return partition.RedundantName(soc, platform, base) }
}

func bctCopies(platform socmodel.Platform) int {
	return platform.BCTCopies()
}

// checkVersionGateG1 runs the rollback/version gate for the entries about
// to be written, when the package carries version-info partitions at all.
func checkVersionGateG1(pkg bup.Reader, table gptdev.Table, devs partition.Devices, entries []planner.Entry, forceInitialize bool) bool {
	var verEntry, verBEntry, nvcEntry, nvcBEntry *planner.Entry
	for i := range entries {
		switch entries[i].Name {
		case "VER":
			verEntry = &entries[i]
		case "VER_b":
			verBEntry = &entries[i]
		case "NVC":
			nvcEntry = &entries[i]
		case "NVC-1", "NVC_R":
			nvcBEntry = &entries[i]
		}
	}
	if verEntry == nil {
		return true // package does not touch the boot chain
	}

	bupPayload := make([]byte, verEntry.Source.Length)
	if err := pkg.ReadAt(verEntry.Source.Name, bupPayload, 0); err != nil {
		return false
	}
	bupInfo, err := verinfo.Extract(bupPayload)
	if err != nil {
		return false
	}

	primary := readVerInfo(verEntry)
	backup := verinfo.Info{}
	if verBEntry != nil {
		backup = readVerInfo(verBEntry)
	}

	nvcMatch := func() (bool, error) {
		if nvcEntry == nil || nvcBEntry == nil {
			return false, nil
		}
		a, err := readTarget(*nvcEntry)
		if err != nil {
			return false, err
		}
		b, err := readTarget(*nvcBEntry)
		if err != nil {
			return false, err
		}
		return checksum.Equal(a, b), nil
	}

	decision := vergate.Check(bupInfo, primary, backup, nvcMatch, forceInitialize)
	return decision.Allow
}

func readVerInfo(e *planner.Entry) verinfo.Info {
	buf, err := readTarget(*e)
	if err != nil {
		return verinfo.Info{}
	}
	info, err := verinfo.Extract(buf)
	if err != nil {
		return verinfo.Info{}
	}
	return info
}

func readTarget(e planner.Entry) ([]byte, error) {
	buf := make([]byte, e.Target.Length)
	if e.Target.External {
		f, err := os.Open(e.Target.Path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if _, err := f.ReadAt(buf, 0); err != nil {
			return nil, err
		}
		return buf, nil
	}
	if _, err := e.Target.Dev.ReadAt(buf, e.Target.Offset); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeAudit(opts Options, pkg bup.Reader, initialize bool, slot *int) {
	if opts.AuditLogPath == "" {
		return
	}
	slotLabel := opts.SlotSuffix
	if slotLabel == "" {
		slotLabel = "_a"
	}
	_ = auditlog.Write(opts.AuditLogPath, auditlog.Record{
		Initialize:    initialize,
		DryRun:        opts.DryRun,
		Slot:          slotLabel,
		SlotActivated: slot,
	})
}

func writeMetrics(opts Options, written int, success bool, slot int) {
	if opts.MetricsPath == "" {
		return
	}
	_ = metrics.WriteTextfile(opts.MetricsPath, metrics.Run{
		Success:        success,
		DryRun:         opts.DryRun,
		Initialize:     opts.Initialize,
		EntriesWritten: written,
		SlotActivated:  slot,
	})
}
