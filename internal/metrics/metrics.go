// Package metrics publishes a one-shot summary of an update run in
// Prometheus text-exposition format, written to a fixed path the way a
// node_exporter textfile collector expects: a complete file, replaced
// atomically on every run, never appended to or streamed.
package metrics

import (
	"bytes"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/google/renameio/v2"
)

// Run records the outcome of a single update/initialize invocation.
type Run struct {
	Success         bool
	DryRun          bool
	Initialize      bool
	EntriesWritten  int
	EntriesSkipped  int
	DurationSeconds float64
	SlotActivated   int
}

// WriteTextfile renders run as a small Prometheus registry and atomically
// writes it to path in text-exposition format.
func WriteTextfile(path string, run Run) error {
	reg := prometheus.NewRegistry()

	success := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bup_update_last_run_success",
		Help: "1 if the last update run completed successfully, 0 otherwise.",
	})
	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bup_update_last_run_duration_seconds",
		Help: "Wall-clock duration of the last update run.",
	})
	written := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bup_update_entries_written",
		Help: "Number of package entries written to the device during the last run.",
	})
	skipped := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bup_update_entries_skipped",
		Help: "Number of package entries skipped because content already matched.",
	})
	slot := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bup_update_active_slot",
		Help: "Boot slot marked active by the last run (0 or 1).",
	})
	dryRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bup_update_last_run_dry_run",
		Help: "1 if the last run was a dry run and made no device changes.",
	})

	reg.MustRegister(success, duration, written, skipped, slot, dryRun)

	success.Set(boolToFloat(run.Success))
	duration.Set(run.DurationSeconds)
	written.Set(float64(run.EntriesWritten))
	skipped.Set(float64(run.EntriesSkipped))
	slot.Set(float64(run.SlotActivated))
	dryRun.Set(boolToFloat(run.DryRun))

	families, err := reg.Gather()
	if err != nil {
		return errors.Annotate(err, "gathering metrics")
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return errors.Annotate(err, "encoding metrics")
		}
	}

	if err := renameio.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Annotatef(err, "writing metrics textfile %s", path)
	}
	return nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
