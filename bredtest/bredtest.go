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

// This package contains testing utilities for BRED: a fake remote snapshot
// store, counting fetch capabilities, and sample payloads.
package bredtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bred-data/bred/dataset"
	"github.com/bred-data/bred/fetchers"
)

// Enables DEBUG log messages for BRED's structured log (slog).
func EnableDebugLogging() {
	logLevel := new(slog.LevelVar)
	logLevel.Set(slog.LevelDebug)
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(h))
}

//-------------------------------
// Remote Snapshot Store Fixture
//-------------------------------

type storedAsset struct {
	data      []byte
	updatedAt time.Time
}

// A SnapshotStore is an in-memory remote asset store served over HTTP. It
// counts listing and download requests so tests can assert that cache hits
// suppress network calls.
type SnapshotStore struct {
	mutex         sync.Mutex
	assets        map[string]storedAsset
	server        *httptest.Server
	ListCalls     int
	DownloadCalls int
}

// NewSnapshotStore starts an empty snapshot store.
func NewSnapshotStore() *SnapshotStore {
	store := &SnapshotStore{assets: make(map[string]storedAsset)}
	store.server = httptest.NewServer(http.HandlerFunc(store.handle))
	return store
}

// URL returns the store's base URL for remote client configuration.
func (s *SnapshotStore) URL() string {
	return s.server.URL
}

// Close shuts the store down.
func (s *SnapshotStore) Close() {
	s.server.Close()
}

// AddPayload serializes a payload in the given format and publishes it as
// the snapshot asset for the named dataset.
func (s *SnapshotStore) AddPayload(name string, payload dataset.Payload,
	format dataset.Format, updatedAt time.Time) error {

	var buffer bytes.Buffer
	if err := dataset.Encode(&buffer, payload, format); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.assets[name+format.Ext()] = storedAsset{
		data:      buffer.Bytes(),
		updatedAt: updatedAt,
	}
	return nil
}

func (s *SnapshotStore) handle(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if r.URL.Path == "/assets" {
		s.ListCalls++
		listing := make([]map[string]any, 0, len(s.assets))
		for name, asset := range s.assets {
			listing = append(listing, map[string]any{
				"name":       name,
				"size":       len(asset.data),
				"updated_at": asset.updatedAt.Format(time.RFC3339),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(listing)
		return
	}

	if name, found := strings.CutPrefix(r.URL.Path, "/assets/"); found {
		s.DownloadCalls++
		asset, present := s.assets[name]
		if !present {
			http.NotFound(w, r)
			return
		}
		w.Write(asset.data)
		return
	}
	http.NotFound(w, r)
}

//--------------------------
// Fetch Capability Fixtures
//--------------------------

// A CountingFetcher serves a fixed payload (or a fixed error) and counts how
// often it is invoked.
type CountingFetcher struct {
	Payload dataset.Payload
	Err     error
	Calls   int
	// the last request seen, for argument-forwarding assertions
	LastRequest fetchers.Request
}

func (f *CountingFetcher) Fetch(req fetchers.Request) (dataset.Payload, error) {
	f.Calls++
	f.LastRequest = req
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Payload, nil
}

//-----------------
// Sample Payloads
//-----------------

// SampleTable builds a small flat table.
func SampleTable() *dataset.Table {
	return &dataset.Table{
		Columns: []string{"date", "value"},
		Rows:    [][]string{{"2024-01-01", "100"}, {"2024-02-01", "101"}},
	}
}

// AbecipCollection builds a keyed collection shaped like the abecip dataset.
func AbecipCollection() dataset.Collection {
	return dataset.Collection{
		"abecip_sbpe": {
			Columns: []string{"date", "flow", "stock"},
			Rows:    [][]string{{"2024-01-01", "1200", "98000"}},
		},
		"abecip_units": {
			Columns: []string{"date", "units"},
			Rows:    [][]string{{"2024-01-01", "310"}},
		},
		"abecip_cgi": {
			Columns: []string{"date", "value"},
			Rows:    [][]string{{"2024-01-01", "42"}},
		},
	}
}

// SecoviTable builds a flat table partitioned by a "category" column, shaped
// like the secovi dataset.
func SecoviTable() *dataset.Table {
	return &dataset.Table{
		Columns: []string{"date", "category", "value"},
		Rows: [][]string{
			{"2024-01-01", "vendas", "10"},
			{"2024-01-01", "locacao", "20"},
			{"2024-02-01", "vendas", "11"},
		},
	}
}

// UniqueCapability derives a collision-free fetch capability id for a test,
// since the capability table is process-wide.
var capabilityCounter int

func UniqueCapability(prefix string) string {
	capabilityCounter++
	return fmt.Sprintf("%s_%d", prefix, capabilityCounter)
}
