// Package smd is the slot metadata collaborator: the redundant
// A/B slot-tracking store consulted by the orchestrator to pick a default
// slot suffix and updated by the slot activator once a new slot becomes
// active. The
// real on-device metadata format is out of scope for this tool.
// FileStore is the concrete dev-mode adapter that persists
// the same information to a plain file, atomically, the way the rest of
// this tree persists small pieces of state it must not half-write.
package smd

import (
	"os"

	"github.com/google/renameio/v2"
	"github.com/juju/errors"
	"gopkg.in/yaml.v3"
)

// Redundancy mirrors the on-device slot-metadata redundancy level.
type Redundancy int

const (
	RedundancyNone Redundancy = iota
	RedundancyFull
)

// Store is the interface the orchestrator and slot activator consume;
// FileStore is its only implementation, used both in production and in
// tests (backed by a temporary file).
type Store interface {
	CurrentSlot() int
	RedundancyLevel() Redundancy
	SetRedundancyLevel(Redundancy) error
	MarkSlotActive(slot int) error
}

type state struct {
	CurrentSlot int        `yaml:"current_slot"`
	Redundancy  Redundancy `yaml:"redundancy"`
}

// FileStore persists slot metadata as YAML at a fixed path, using
// renameio so a crash mid-write never leaves a half-written file behind.
type FileStore struct {
	path string
	st   state
}

// NewFull returns a FileStore seeded as fully redundant with slot A
// current, matching smd_new(REDUNDANCY_FULL) used during initialization.
func NewFull(path string) *FileStore {
	return &FileStore{path: path, st: state{CurrentSlot: 0, Redundancy: RedundancyFull}}
}

// Load reads existing slot metadata from path.
func Load(path string) (*FileStore, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotatef(err, "loading slot metadata %s", path)
	}
	var st state
	if err := yaml.Unmarshal(b, &st); err != nil {
		return nil, errors.Annotatef(err, "parsing slot metadata %s", path)
	}
	return &FileStore{path: path, st: st}, nil
}

func (s *FileStore) CurrentSlot() int             { return s.st.CurrentSlot }
func (s *FileStore) RedundancyLevel() Redundancy  { return s.st.Redundancy }

func (s *FileStore) SetRedundancyLevel(r Redundancy) error {
	s.st.Redundancy = r
	return s.persist()
}

func (s *FileStore) MarkSlotActive(slot int) error {
	s.st.CurrentSlot = slot
	return s.persist()
}

func (s *FileStore) persist() error {
	b, err := yaml.Marshal(s.st)
	if err != nil {
		return errors.Annotate(err, "encoding slot metadata")
	}
	if err := renameio.WriteFile(s.path, b, 0644); err != nil {
		return errors.Annotatef(err, "writing slot metadata %s", s.path)
	}
	return nil
}
