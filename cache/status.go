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

package cache

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bred-data/bred/dataset"
	"github.com/bred-data/bred/journal"
	"github.com/bred-data/bred/registry"
)

// staleness thresholds (in days) derived from a dataset's update schedule;
// manually-updated datasets are never considered stale
const (
	weeklyThresholdDays  = 14
	monthlyThresholdDays = 60
)

// AgeDays returns the age of the named dataset's cache entry in days, or NaN
// if the dataset has no entry.
func (m *Manager) AgeDays(name string) float64 {
	entry, found := m.Entry(name)
	if !found {
		return math.NaN()
	}
	return time.Since(entry.CachedAt).Hours() / 24
}

// Stale reports whether the named dataset's cached copy is older than its
// expected update cadence. The second result is false when the age is
// unknown (no cache entry, or the dataset isn't catalogued). The threshold
// is resolved in order: the explicit override, the descriptor's
// warn_after_days, then the schedule default. Staleness is advisory only
// and never blocks a cache read.
func (m *Manager) Stale(name string, overrideDays *int) (bool, bool) {
	age := m.AgeDays(name)
	if math.IsNaN(age) {
		return false, false
	}
	desc, err := m.registry.Lookup(name)
	if err != nil {
		return false, false
	}
	threshold := resolveThreshold(desc, overrideDays)
	return age > threshold, true
}

// resolves a staleness threshold in days (+Inf means "never stale")
func resolveThreshold(desc registry.Descriptor, overrideDays *int) float64 {
	if overrideDays != nil {
		return float64(*overrideDays)
	}
	if desc.WarnAfterDays != nil {
		return float64(*desc.WarnAfterDays)
	}
	switch desc.UpdateSchedule {
	case registry.ScheduleWeekly:
		return weeklyThresholdDays
	case registry.ScheduleMonthly:
		return monthlyThresholdDays
	default: // manual
		return math.Inf(1)
	}
}

// A FileInfo describes one file currently present in the cache directory.
type FileInfo struct {
	Dataset  string         `json:"dataset"`
	Format   dataset.Format `json:"format"`
	Size     int64          `json:"size"`
	Modified time.Time      `json:"modified"`
}

// List scans the cache directory and describes every dataset file present,
// sorted by dataset name and then by format priority. The scan reflects the
// filesystem, not the index, so files tampered with directly still show up.
func (m *Manager) List() []FileInfo {
	files := make([]FileInfo, 0)
	for _, format := range dataset.Formats() {
		matches, _ := filepath.Glob(filepath.Join(m.root, "*"+format.Ext()))
		for _, path := range matches {
			if filepath.Base(path) == indexFile {
				continue
			}
			stem := strings.TrimSuffix(filepath.Base(path), format.Ext())
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			files = append(files, FileInfo{
				Dataset:  stem,
				Format:   format,
				Size:     info.Size(),
				Modified: info.ModTime(),
			})
		}
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Dataset < files[j].Dataset ||
			(files[i].Dataset == files[j].Dataset && files[i].Format < files[j].Format)
	})
	return files
}

// Clear removes cached files for the named datasets (every format present)
// and drops their index entries. A nil name list clears the whole cache,
// index included. Names with no cached files are silently ignored.
func (m *Manager) Clear(names []string) error {
	if names == nil {
		for _, info := range m.List() {
			path := filepath.Join(m.root, info.Dataset+info.Format.Ext())
			if err := os.Remove(path); err != nil {
				m.record(journal.OpClear, info.Dataset, "", err.Error())
				return &WriteError{Dataset: info.Dataset, Message: err.Error()}
			}
		}
		if err := os.Remove(filepath.Join(m.root, indexFile)); err != nil && !os.IsNotExist(err) {
			return &IndexError{Message: err.Error()}
		}
		m.record(journal.OpClear, "*", "", "")
		return nil
	}

	for _, name := range names {
		for _, format := range dataset.Formats() {
			path := filepath.Join(m.root, name+format.Ext())
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				m.record(journal.OpClear, name, "", err.Error())
				return &WriteError{Dataset: name, Message: err.Error()}
			}
		}
		m.record(journal.OpClear, name, "", "")
	}
	return m.removeEntries(names)
}

// A DatasetStatus summarizes the freshness of one cached dataset.
type DatasetStatus struct {
	Dataset string `json:"dataset"`
	// age of the cached copy in days (NaN never appears here; datasets with
	// no index entry report AgeKnown == false)
	AgeDays  float64 `json:"age_days"`
	AgeKnown bool    `json:"age_known"`
	Stale    bool    `json:"stale"`
	// the schedule and resolved threshold the verdict was derived from
	Schedule registry.Schedule `json:"schedule"`
	// threshold in days; +Inf for manually-updated datasets
	ThresholdDays float64 `json:"threshold_days"`
}

// Status reports cache freshness for every dataset with a file in the cache
// directory.
func (m *Manager) Status() []DatasetStatus {
	seen := map[string]bool{}
	statuses := make([]DatasetStatus, 0)
	for _, info := range m.List() {
		if seen[info.Dataset] {
			continue
		}
		seen[info.Dataset] = true

		status := DatasetStatus{Dataset: info.Dataset}
		if desc, err := m.registry.Lookup(info.Dataset); err == nil {
			status.Schedule = desc.UpdateSchedule
			status.ThresholdDays = resolveThreshold(desc, nil)
		}
		age := m.AgeDays(info.Dataset)
		if !math.IsNaN(age) {
			status.AgeDays = age
			status.AgeKnown = true
			status.Stale, _ = m.Stale(info.Dataset, nil)
		}
		statuses = append(statuses, status)
	}
	return statuses
}
