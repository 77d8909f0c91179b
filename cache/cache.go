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

// This package owns the local dataset cache: a directory of serialized
// dataset files plus one metadata index describing what was cached when and
// from which source tier.
package cache

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/bred-data/bred/dataset"
	"github.com/bred-data/bred/journal"
	"github.com/bred-data/bred/registry"
)

// the source tier a cached file came from
type Tier string

const (
	TierGitHub Tier = "github"
	TierFresh  Tier = "fresh"
)

// A Manager owns one cache directory. It is safe for single-process use;
// index writes are guarded by an advisory file lock so that cooperating
// processes sharing a cache directory don't corrupt the index.
type Manager struct {
	root     string
	registry registry.Registry
	journal  *journal.Journal // optional; journaling is best-effort
}

// NewManager creates a cache manager rooted at the given directory, creating
// the directory if needed. The journal may be nil.
func NewManager(root string, reg registry.Registry, j *journal.Journal) (*Manager, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, &WriteError{Dataset: "", Message: err.Error()}
	}
	return &Manager{root: root, registry: reg, journal: j}, nil
}

// returns the cache's root directory
func (m *Manager) Root() string {
	return m.root
}

// ResolvePath probes the candidate file extensions for the named dataset in
// fixed priority order (binary, then compressed CSV, then plain CSV) and
// returns the first path that exists. The binary form preserves payload
// shape exactly, so it always wins when present.
func (m *Manager) ResolvePath(name string) (string, dataset.Format, bool) {
	for _, format := range dataset.Formats() {
		path := filepath.Join(m.root, name+format.Ext())
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, format, true
		}
	}
	return "", "", false
}

// Load deserializes the named dataset from the cache. A missing dataset is
// not an error: it returns a nil payload, which callers treat as a cache
// miss.
func (m *Manager) Load(name string) (dataset.Payload, error) {
	path, format, found := m.ResolvePath(name)
	if !found {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		m.record(journal.OpLoad, name, "", err.Error())
		return nil, &ReadError{Dataset: name, Message: err.Error()}
	}
	defer file.Close()

	payload, err := dataset.Decode(file, format)
	if err != nil {
		m.record(journal.OpLoad, name, "", err.Error())
		return nil, &ReadError{Dataset: name, Message: err.Error()}
	}
	m.record(journal.OpLoad, name, "", "")
	return payload, nil
}

// Save serializes a payload into the cache under the named dataset and
// updates the cache index. The data file is durably written before the index
// entry referencing it, so a crash mid-save never advertises an entry for a
// nonexistent file.
func (m *Manager) Save(payload dataset.Payload, name string, format dataset.Format, tier Tier) error {
	path := filepath.Join(m.root, name+format.Ext())
	file, err := os.Create(path)
	if err != nil {
		m.record(journal.OpSave, name, tier, err.Error())
		return &WriteError{Dataset: name, Message: err.Error()}
	}

	hash := xxhash.New()
	err = dataset.Encode(io.MultiWriter(file, hash), payload, format)
	if err == nil {
		err = file.Sync()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		m.record(journal.OpSave, name, tier, err.Error())
		return &WriteError{Dataset: name, Message: err.Error()}
	}

	info, err := os.Stat(path)
	if err != nil {
		return &WriteError{Dataset: name, Message: err.Error()}
	}
	err = m.updateEntry(Entry{
		Dataset:    name,
		Format:     format,
		CachedAt:   time.Now(),
		SourceTier: tier,
		Checksum:   hash.Sum64(),
		Size:       info.Size(),
	})
	if err != nil {
		m.record(journal.OpSave, name, tier, err.Error())
		return err
	}
	m.record(journal.OpSave, name, tier, "")
	return nil
}

// records an operation in the activity journal (best-effort: a journal
// problem never fails the data operation)
func (m *Manager) record(operation, name string, tier Tier, failure string) {
	if m.journal == nil {
		return
	}
	rec := journal.Record{
		Dataset:   name,
		Operation: operation,
		Tier:      string(tier),
		Status:    "succeeded",
		Message:   failure,
	}
	if failure != "" {
		rec.Status = "failed"
	}
	if err := m.journal.Record(rec); err != nil {
		slog.Debug("Couldn't journal a cache operation", "dataset", name, "error", err.Error())
	}
}
