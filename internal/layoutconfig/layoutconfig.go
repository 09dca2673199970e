// Package layoutconfig loads the YAML description of the partition layout
// a device is expected to have, used by the repartition check and by
// GPT initialization (gpt_load_from_config).
package layoutconfig

import (
	"os"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"
)

// Partition is one configured partition row.
type Partition struct {
	Name        string `yaml:"name"`
	FirstSector uint64 `yaml:"first_sector"`
	LastSector  uint64 `yaml:"last_sector"`
}

// Layout is the full configured GPT layout for one SoC/platform
// combination, plus the set of partitions allowed to be absent.
type Layout struct {
	SoC                string      `yaml:"soc"`
	Platform           string      `yaml:"platform"`
	Partitions         []Partition `yaml:"partitions"`
	OptionalPartitions []string    `yaml:"optional_partitions"`
}

// Load reads and parses a layout configuration file.
func Load(path string) (*Layout, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotatef(err, "reading layout configuration %s", path)
	}
	var l Layout
	if err := yaml.Unmarshal(b, &l); err != nil {
		return nil, errors.Annotatef(err, "parsing layout configuration %s", path)
	}
	return &l, nil
}

// OptionalSet returns OptionalPartitions as a lookup set.
func (l *Layout) OptionalSet() map[string]bool {
	out := make(map[string]bool, len(l.OptionalPartitions))
	for _, n := range l.OptionalPartitions {
		out[n] = true
	}
	return out
}
