// Binary bup-update applies a vendor bootloader update package to the
// boot device of the running board.
package main

import (
	"fmt"
	"os"

	"github.com/socboot/bup-update/internal/cli"
)

func main() {
	cfg := cli.Config{
		BootDevice:       envOr("BUP_BOOT_DEVICE", "/dev/mmcblk0boot0"),
		DeviceTreeCompat: envOr("BUP_COMPATIBLE_PATH", "/proc/device-tree/compatible"),
		LayoutConfigPath: envOr("BUP_LAYOUT_CONFIG", "/etc/bup-update/layout.yaml"),
		ByLabelDir:       envOr("BUP_BY_LABEL_DIR", "/dev/disk/by-partlabel"),
		BootForceROPath:  envOr("BUP_BOOT_FORCE_RO", "/sys/block/mmcblk0boot0/force_ro"),
		GPTForceROPath:   envOr("BUP_GPT_FORCE_RO", "/sys/block/mmcblk0boot1/force_ro"),
		SMDPath:          envOr("BUP_SMD_PATH", "/var/lib/bup-update/smd.yaml"),
		MetricsPath:      os.Getenv("BUP_METRICS_TEXTFILE"),
		AuditLogPath:     os.Getenv("BUP_AUDIT_LOG"),
	}

	if os.Getenv("BUP_GPT_DEVICE") != "" {
		cfg.GPTDeviceOverride = os.Getenv("BUP_GPT_DEVICE")
	}

	root := cli.NewRootCmd(cfg)
	err := root.Execute()
	if err != nil {
		if code := cli.ExitCodeOf(err); code != 1 {
			os.Exit(code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
