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

package journal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// This is the BRED activity journal, which logs all cache and fetch
// activity. The journal is a table of activity records (one per operation).
// The system is single-process and synchronous, so the journal exposes
// plain methods over its store rather than a request queue.

// operations a record can describe
const (
	OpLoad     = "load"
	OpSave     = "save"
	OpDownload = "download"
	OpFetch    = "fetch"
	OpClear    = "clear"
)

// a record storing all information relevant to one cache or fetch operation
type Record struct {
	// UUID associated with the operation
	Id uuid.UUID `json:"id"`
	// the dataset the operation concerned
	Dataset string `json:"dataset"`
	// the operation performed ("load", "save", "download", "fetch", "clear")
	Operation string `json:"operation"`
	// the source tier involved, if any ("cache", "github", "fresh")
	Tier string `json:"tier,omitempty"`
	// status of the operation ("succeeded" or "failed")
	Status string `json:"status"`
	// time at which the operation completed
	Time time.Time `json:"time"`
	// diagnostic detail (failure reason, bytes written, ...)
	Message string `json:"message,omitempty"`
}

const recordBucket = "activity"

// A Journal records cache and fetch activity in a bbolt database kept
// alongside the cache it describes.
type Journal struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the activity journal in the given
// directory.
func Open(dir string) (*Journal, error) {
	dbPath := filepath.Join(dir, "activity_journal.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, &CantOpenError{Message: err.Error()}
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(recordBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, &CantOpenError{Message: err.Error()}
	}
	return &Journal{db: db}, nil
}

// saves and closes the journal
func (j *Journal) Close() error {
	if err := j.db.Close(); err != nil {
		return &CantCloseError{Message: err.Error()}
	}
	return nil
}

// records a completed operation
func (j *Journal) Record(record Record) error {
	switch record.Status {
	case "succeeded", "failed":
		// pass-through (see below)
	default:
		return &NewRecordError{
			Id:      record.Id,
			Message: fmt.Sprintf("Invalid status: %s", record.Status),
		}
	}
	if record.Id == uuid.Nil {
		record.Id = uuid.New()
	}
	if record.Time.IsZero() {
		record.Time = time.Now()
	}

	return j.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(recordBucket))

		jsonBytes, err := json.Marshal(&record)
		if err != nil {
			return &NewRecordError{Id: record.Id, Message: err.Error()}
		}
		// records are indexed by completion time; the UUID suffix keeps keys
		// unique when operations complete within the same nanosecond
		key := fmt.Sprintf("%s|%s", record.Time.Format(time.RFC3339Nano), record.Id)
		return bucket.Put([]byte(key), jsonBytes)
	})
}

// retrieves records for operations that completed within the time range with
// the given (inclusive) bounds
func (j *Journal) RecordsBetween(start, stop time.Time) ([]Record, error) {
	records := make([]Record, 0)
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(recordBucket)).Cursor()

		startKey := []byte(start.Format(time.RFC3339Nano))
		// '~' sorts after every RFC3339 character, making the bound inclusive
		stopKey := []byte(stop.Format(time.RFC3339Nano) + "~")

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, stopKey) <= 0; k, v = c.Next() {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return &InvalidRecordError{Message: err.Error()}
			}
			records = append(records, record)
		}
		return nil
	})
	return records, err
}
