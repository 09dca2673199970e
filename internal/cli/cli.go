// Package cli wires the flag surface onto a cobra command: a
// single-command tool taking a package path as its lone positional
// argument, mirroring the flat getopt_long_only surface of the tool it
// replaces rather than gokrazy's multi-verb "gok" structure.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/socboot/bup-update/internal/orchestrate"
	"github.com/socboot/bup-update/internal/repartition"
	"github.com/socboot/bup-update/internal/version"
)

// Config bundles the fixed, deployment-specific paths that never come
// from a command-line flag (device-tree compatible file, force_ro sysfs
// paths, layout configuration): a real device knows these once, at build
// time, the way gokrazy's packer bakes in partition layout constants.
type Config struct {
	BootDevice        string
	GPTDeviceOverride string
	DeviceTreeCompat  string
	LayoutConfigPath  string
	ByLabelDir        string
	BootForceROPath   string
	GPTForceROPath    string
	SMDPath           string
	MetricsPath       string
	AuditLogPath      string
}

// NewRootCmd builds the top-level command.
func NewRootCmd(cfg Config) *cobra.Command {
	var (
		initialize bool
		slot       string
		dryRun     bool
		checkOnly  bool
	)

	cmd := &cobra.Command{
		Use:           "bup-update <package>",
		Short:         "apply a bootloader update package to the boot device",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			showVersion, err := cmd.Flags().GetBool("version")
			if err != nil {
				return fmt.Errorf("BUG: version flag declared as non-bool")
			}
			if showVersion {
				fmt.Fprintln(cmd.OutOrStdout(), version.Read())
				return nil
			}

			if initialize && cmd.Flags().Changed("slot-suffix") {
				return fmt.Errorf("cannot use --initialize with --slot-suffix")
			}
			if len(args) == 0 && !checkOnly {
				return fmt.Errorf("missing required argument: package path")
			}

			suffix := slot
			slotSpecified := cmd.Flags().Changed("slot-suffix")
			if slotSpecified {
				if suffix == "_a" {
					suffix = ""
				}
				if suffix != "" && suffix != "_b" {
					return fmt.Errorf("slot suffix must be either _a or _b")
				}
			}

			var pkgPath string
			if len(args) > 0 {
				pkgPath = args[0]
			}

			opts := orchestrate.Options{
				PackagePath:       pkgPath,
				Initialize:        initialize,
				DryRun:            dryRun,
				CheckOnly:         checkOnly,
				SlotSpecified:     slotSpecified,
				SlotSuffix:        suffix,
				BootDevice:        cfg.BootDevice,
				GPTDeviceOverride: cfg.GPTDeviceOverride,
				DeviceTreeCompat:  cfg.DeviceTreeCompat,
				LayoutConfigPath:  cfg.LayoutConfigPath,
				ByLabelDir:        cfg.ByLabelDir,
				BootForceROPath:   cfg.BootForceROPath,
				GPTForceROPath:    cfg.GPTForceROPath,
				SMDPath:           cfg.SMDPath,
				MetricsPath:       cfg.MetricsPath,
				AuditLogPath:      cfg.AuditLogPath,
				Progress:          func(format string, a ...any) { fmt.Printf(format, a...) },
			}

			res, err := orchestrate.Run(opts)
			for _, w := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
			}
			if err != nil {
				return err
			}
			if checkOnly {
				switch res.RepartitionCheck {
				case repartition.NoActionNeeded:
					cmd.SilenceErrors = true
					return exitCode(0)
				case repartition.RepartitionRequired:
					return exitCode(1)
				default:
					return exitCode(2)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&initialize, "initialize", "i", false, "reinitialize the boot device from scratch instead of updating in place")
	cmd.Flags().StringVarP(&slot, "slot-suffix", "s", "", "target a specific slot (_a or _b) instead of the inactive one")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "report what would be done without writing anything")
	cmd.Flags().BoolVarP(&checkOnly, "needs-repartition", "N", false, "check whether the on-device layout matches configuration and exit (implies --dry-run)")
	cmd.Flags().Bool("version", false, "print the version and exit")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if checkOnly {
			dryRun = true
		}
		return nil
	}

	return cmd
}

// exitStatusErr lets RunE communicate a specific process exit code
// through cobra's normal error-return path.
type exitStatusErr int

func (e exitStatusErr) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func exitCode(n int) error {
	if n == 0 {
		return nil
	}
	return exitStatusErr(n)
}

// ExitCodeOf extracts the process exit code from an error returned by the
// root command, defaulting to 1 for any other error.
func ExitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if e, ok := err.(exitStatusErr); ok {
		return int(e)
	}
	return 1
}
