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
	"encoding/gob"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/bred-data/bred/dataset"
)

// the single index file describing every cached dataset, co-located with the
// data files it describes
const indexFile = "cache_metadata.gob"

// An Entry describes one dataset currently materialized in the cache. An
// entry is written only after its data file, never before.
type Entry struct {
	// the dataset's name
	Dataset string
	// the format the data file was written in
	Format dataset.Format
	// the time at which the data file was written
	CachedAt time.Time
	// the tier the data came from ("github" or "fresh")
	SourceTier Tier
	// xxhash checksum and size of the data file, for drift detection
	Checksum uint64
	Size     int64
}

// Entry returns the index entry for the named dataset, if one exists. An
// entry whose data file has been deleted out from under it is reported as
// absent, not as an error.
func (m *Manager) Entry(name string) (Entry, bool) {
	index, err := m.readIndex()
	if err != nil {
		return Entry{}, false
	}
	entry, found := index[name]
	if !found {
		return Entry{}, false
	}
	if _, _, present := m.ResolvePath(name); !present {
		return Entry{}, false
	}
	return entry, true
}

// reads the whole cache index; a missing index file yields an empty index
func (m *Manager) readIndex() (map[string]Entry, error) {
	file, err := os.Open(filepath.Join(m.root, indexFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]Entry{}, nil
		}
		return nil, &IndexError{Message: err.Error()}
	}
	defer file.Close()

	index := map[string]Entry{}
	if err := gob.NewDecoder(file).Decode(&index); err != nil {
		return nil, &IndexError{Message: err.Error()}
	}
	return index, nil
}

// rewrites the whole cache index (there is no partial patching). The write
// goes to a temporary file renamed into place, under an advisory lock, so a
// crash or a cooperating process never observes a torn index.
func (m *Manager) writeIndex(index map[string]Entry) error {
	lock := flock.New(filepath.Join(m.root, indexFile+".lock"))
	if err := lock.Lock(); err != nil {
		return &IndexError{Message: err.Error()}
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(m.root, indexFile+".*")
	if err != nil {
		return &IndexError{Message: err.Error()}
	}
	defer os.Remove(tmp.Name())

	err = gob.NewEncoder(tmp).Encode(index)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return &IndexError{Message: err.Error()}
	}
	if err := os.Rename(tmp.Name(), filepath.Join(m.root, indexFile)); err != nil {
		return &IndexError{Message: err.Error()}
	}
	return nil
}

// inserts or overwrites the entry for one dataset
func (m *Manager) updateEntry(entry Entry) error {
	index, err := m.readIndex()
	if err != nil {
		return err
	}
	index[entry.Dataset] = entry
	return m.writeIndex(index)
}

// drops the entries for the named datasets, ignoring names with no entry
func (m *Manager) removeEntries(names []string) error {
	index, err := m.readIndex()
	if err != nil {
		return err
	}
	for _, name := range names {
		delete(index, name)
	}
	return m.writeIndex(index)
}
