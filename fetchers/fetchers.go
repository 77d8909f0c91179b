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

// This package defines the fetch capability boundary: each dataset's
// descriptor names a capability, and an implementation of that capability
// (a scraper, a spreadsheet parser, an API client) is registered against it
// at startup. The gateway invokes the right capability and warms the local
// cache with whatever it fetches.
package fetchers

import (
	"sort"
	"time"

	"github.com/bred-data/bred/dataset"
)

// parameters handed to a fetch capability
type Request struct {
	// the dataset being fetched
	Dataset string
	// the requested table, if the capability can narrow its work ("" or
	// "all" means "everything")
	Table string
	// optional date bounds for sources that support them
	DateStart time.Time
	DateEnd   time.Time
	// capability-specific arguments
	Extra map[string]any
}

// Fetcher is the interface a fetch capability implements: obtain a fresh
// payload from the dataset's original provider. Implementations own their
// retry behavior; the gateway treats a returned error as final.
type Fetcher interface {
	Fetch(req Request) (dataset.Payload, error)
}

// we maintain a table of fetch capabilities, identified by the capability
// ids the dataset catalog declares
var allFetchers = make(map[string]Fetcher)

// Register installs a fetch capability under the given id. Capabilities are
// registered once at startup; registering an id twice is an error.
func Register(capability string, fetcher Fetcher) error {
	if _, found := allFetchers[capability]; found {
		return &AlreadyRegisteredError{Capability: capability}
	}
	allFetchers[capability] = fetcher
	return nil
}

// Lookup finds the fetch capability registered under the given id.
func Lookup(capability string) (Fetcher, error) {
	fetcher, found := allFetchers[capability]
	if !found {
		return nil, &UnknownCapabilityError{Capability: capability}
	}
	return fetcher, nil
}

// Capabilities returns the sorted ids of every registered capability.
func Capabilities() []string {
	ids := make([]string, 0, len(allFetchers))
	for id := range allFetchers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
