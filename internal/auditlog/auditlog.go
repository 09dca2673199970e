// Package auditlog records a structured, atomically-written summary of
// each update run, the same durability pattern the rest of this tree uses
// for small state files it must never leave half-written.
package auditlog

import (
	"github.com/google/renameio/v2"
	"github.com/juju/errors"
	"gopkg.in/yaml.v3"
)

// Record is one run's audit entry.
type Record struct {
	TNSpec        string   `yaml:"tnspec"`
	Initialize    bool     `yaml:"initialize"`
	DryRun        bool     `yaml:"dry_run"`
	Slot          string   `yaml:"slot"`
	EntriesOK     []string `yaml:"entries_ok"`
	Warnings      []string `yaml:"warnings,omitempty"`
	Error         string   `yaml:"error,omitempty"`
	SlotActivated *int     `yaml:"slot_activated,omitempty"`
}

// Write atomically replaces path's contents with rec, rendered as YAML.
func Write(path string, rec Record) error {
	b, err := yaml.Marshal(rec)
	if err != nil {
		return errors.Annotate(err, "encoding audit record")
	}
	if err := renameio.WriteFile(path, b, 0644); err != nil {
		return errors.Annotatef(err, "writing audit log %s", path)
	}
	return nil
}
