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

package fetchers

import (
	"errors"
	"log/slog"

	"github.com/bred-data/bred/cache"
	"github.com/bred-data/bred/dataset"
	"github.com/bred-data/bred/registry"
)

// A Gateway invokes the fetch capability a dataset declares and persists the
// result into the local cache, so every fresh fetch also warms the cache.
type Gateway struct {
	cache *cache.Manager
}

func NewGateway(mgr *cache.Manager) *Gateway {
	return &Gateway{cache: mgr}
}

// Fetch obtains fresh data for the described dataset. The persistence
// format follows the payload's shape: flat tables are written as compressed
// CSV, keyed collections as the binary form.
func (g *Gateway) Fetch(desc registry.Descriptor, req Request) (dataset.Payload, error) {
	fetcher, err := Lookup(desc.FetchCapability)
	if err != nil {
		return nil, err
	}

	req.Dataset = desc.Name
	payload, err := fetcher.Fetch(req)
	if err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			return nil, err
		}
		return nil, &FetchError{Capability: desc.FetchCapability, Message: err.Error()}
	}

	// caching the result is a side benefit; the fetched data is good even if
	// the cache write isn't
	format := dataset.FormatFor(payload)
	if err := g.cache.Save(payload, desc.Name, format, cache.TierFresh); err != nil {
		slog.Warn("Couldn't cache freshly fetched dataset",
			"dataset", desc.Name, "error", err.Error())
	}
	return payload, nil
}
