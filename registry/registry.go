// Copyright (c) 2024 The BRED Project and its Contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// This package holds the dataset catalog: a declarative description of every
// dataset BRED knows how to serve, loaded once per process from an embedded
// YAML file and immutable thereafter.
package registry

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// how often a dataset's upstream source publishes new data
type Schedule string

const (
	ScheduleWeekly  Schedule = "weekly"
	ScheduleMonthly Schedule = "monthly"
	ScheduleManual  Schedule = "manual"
)

// how a requested table is carved out of a dataset's payload
type Extraction string

const (
	// the payload is a keyed collection of tables; look the table up by key
	ExtractionKeyed Extraction = "keyed"
	// the payload is one flat table partitioned by a discriminator column
	ExtractionDiscriminator Extraction = "discriminator"
)

// publication status of a catalog entry
type Status string

const (
	StatusActive Status = "active"
	StatusHidden Status = "hidden"
)

// A Descriptor describes one dataset: its tables, how fresh data is fetched,
// and how cached copies are interpreted.
type Descriptor struct {
	// the dataset's unique name (its key in the catalog file)
	Name string `yaml:"-"`
	// human-readable titles (English and Portuguese)
	Title   string `yaml:"title"`
	TitlePT string `yaml:"title_pt"`
	// the organization publishing the underlying data
	Source string `yaml:"source"`
	// geographic coverage ("Brazil", "São Paulo", ...)
	Geography string `yaml:"geography"`
	// publication frequency of the underlying data ("monthly", "quarterly", ...)
	Frequency string `yaml:"frequency"`
	// declared tables, mapping each public table name to its cache file stem;
	// nil for single-table datasets
	Tables map[string]string `yaml:"tables"`
	// the table served when a caller doesn't ask for one
	DefaultTable string `yaml:"default_table"`
	// how tables are carved out of the payload (defaults to "keyed" for
	// multi-table datasets)
	Extraction Extraction `yaml:"extraction"`
	// for discriminator extraction: the partitioning column and the mapping
	// from public table names to the column's internal values
	DiscriminatorColumn string            `yaml:"discriminator_column"`
	DiscriminatorValues map[string]string `yaml:"discriminator_values"`
	// identifier of the fetch capability that obtains fresh data
	FetchCapability string `yaml:"fetch_capability"`
	// whether the PT -> EN translation dictionary applies to this dataset
	Translate bool `yaml:"translate"`
	// notes about translation coverage, surfaced to API clients
	TranslationNotes string `yaml:"translation_notes"`
	// expected update cadence, driving staleness thresholds
	UpdateSchedule Schedule `yaml:"update_schedule"`
	// overrides the schedule-derived staleness threshold when set
	WarnAfterDays *int `yaml:"warn_after_days"`
	// whether the dataset is served ("active") or catalogued but not yet
	// available ("hidden")
	Status Status `yaml:"status"`
}

// returns true if the dataset declares more than one table
func (d Descriptor) MultiTable() bool {
	return len(d.Tables) > 0
}

// returns the sorted public names of the dataset's declared tables
func (d Descriptor) TableNames() []string {
	names := make([]string, 0, len(d.Tables))
	for name := range d.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// A Registry is the immutable set of dataset descriptors loaded from the
// catalog file.
type Registry struct {
	descriptors map[string]Descriptor
}

//go:embed datasets.yaml
var catalogBytes []byte

// Load reads the embedded dataset catalog. It is idempotent and fails only
// if the catalog itself is malformed, which is a deployment error.
func Load() (Registry, error) {
	return Parse(catalogBytes)
}

// Parse builds a Registry from YAML catalog data, validating every entry.
func Parse(data []byte) (Registry, error) {
	var file struct {
		Datasets map[string]Descriptor `yaml:"datasets"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Registry{}, &InvalidCatalogError{Message: err.Error()}
	}
	if len(file.Datasets) == 0 {
		return Registry{}, &InvalidCatalogError{Message: "no datasets declared"}
	}

	descriptors := make(map[string]Descriptor, len(file.Datasets))
	for name, desc := range file.Datasets {
		desc.Name = name
		applyDefaults(&desc)
		if err := validateDescriptor(desc); err != nil {
			return Registry{}, err
		}
		descriptors[name] = desc
	}
	return Registry{descriptors: descriptors}, nil
}

func applyDefaults(desc *Descriptor) {
	if desc.Status == "" {
		desc.Status = StatusActive
	}
	if desc.Extraction == "" && desc.MultiTable() {
		desc.Extraction = ExtractionKeyed
	}
}

func validateDescriptor(desc Descriptor) error {
	invalid := func(format string, args ...any) error {
		return &InvalidCatalogError{
			Dataset: desc.Name,
			Message: fmt.Sprintf(format, args...),
		}
	}

	switch desc.Status {
	case StatusActive, StatusHidden:
	default:
		return invalid("unrecognized status '%s'", desc.Status)
	}
	switch desc.UpdateSchedule {
	case ScheduleWeekly, ScheduleMonthly, ScheduleManual:
	default:
		return invalid("unrecognized update schedule '%s'", desc.UpdateSchedule)
	}
	if desc.FetchCapability == "" {
		return invalid("no fetch capability declared")
	}
	if desc.WarnAfterDays != nil && *desc.WarnAfterDays <= 0 {
		return invalid("warn_after_days must be positive")
	}

	if !desc.MultiTable() {
		if desc.DefaultTable != "" {
			return invalid("default table '%s' declared for a single-table dataset", desc.DefaultTable)
		}
		return nil
	}

	if desc.DefaultTable != "" {
		if _, found := desc.Tables[desc.DefaultTable]; !found {
			return invalid("default table '%s' is not a declared table", desc.DefaultTable)
		}
	}
	switch desc.Extraction {
	case ExtractionKeyed:
	case ExtractionDiscriminator:
		if desc.DiscriminatorColumn == "" {
			return invalid("discriminator extraction declared without a discriminator column")
		}
		for table := range desc.Tables {
			if _, found := desc.DiscriminatorValues[table]; !found {
				return invalid("table '%s' has no discriminator value", table)
			}
		}
	default:
		return invalid("unrecognized extraction strategy '%s'", desc.Extraction)
	}
	return nil
}

// Lookup finds the descriptor for the named dataset. Unknown names produce
// an UnknownDatasetError listing the catalog's datasets; hidden datasets
// produce a HiddenDatasetError.
func (r Registry) Lookup(name string) (Descriptor, error) {
	desc, found := r.descriptors[name]
	if !found {
		return Descriptor{}, &UnknownDatasetError{Dataset: name, Known: r.Names()}
	}
	if desc.Status == StatusHidden {
		return Descriptor{}, &HiddenDatasetError{Dataset: name}
	}
	return desc, nil
}

// Names returns the sorted names of all active datasets in the catalog.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r.descriptors))
	for name, desc := range r.descriptors {
		if desc.Status == StatusActive {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// All returns every active descriptor, sorted by dataset name.
func (r Registry) All() []Descriptor {
	all := make([]Descriptor, 0, len(r.descriptors))
	for _, name := range r.Names() {
		all = append(all, r.descriptors[name])
	}
	return all
}
