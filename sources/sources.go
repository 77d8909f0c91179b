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

// This package is the orchestrator: it composes the dataset catalog, the
// local cache, the remote snapshot store and the fetch gateway into one
// entry point that hides where a dataset's data came from.
package sources

import (
	"log/slog"
	"time"

	"github.com/bred-data/bred/cache"
	"github.com/bred-data/bred/dataset"
	"github.com/bred-data/bred/fetchers"
	"github.com/bred-data/bred/registry"
	"github.com/bred-data/bred/remote"
	"github.com/bred-data/bred/translate"
)

// A Source names one data source tier (or the automatic fallback over all
// of them).
type Source string

const (
	SourceAuto   Source = "auto"
	SourceCache  Source = "cache"
	SourceGitHub Source = "github"
	SourceFresh  Source = "fresh"
)

// A Request asks for one dataset (or one of its tables).
type Request struct {
	// the dataset's catalog name
	Name string
	// the requested table; "" means the dataset's default table, "all" means
	// every table
	Table string
	// the tier to use; "" or "auto" enables the tiered fallback
	Source Source
	// optional date bounds, forwarded to fetch capabilities
	DateStart time.Time
	DateEnd   time.Time
	// capability-specific arguments, forwarded verbatim
	Extra map[string]any
}

// A Hub serves datasets through the documented fallback policy: local cache
// first, then the remote snapshot store, then a fresh fetch.
type Hub struct {
	registry registry.Registry
	cache    *cache.Manager
	remote   *remote.Client
	gateway  *fetchers.Gateway
}

// New assembles a hub from its collaborators.
func New(reg registry.Registry, mgr *cache.Manager, client *remote.Client,
	gateway *fetchers.Gateway) *Hub {

	return &Hub{
		registry: reg,
		cache:    mgr,
		remote:   client,
		gateway:  gateway,
	}
}

// Registry exposes the dataset catalog the hub serves.
func (h *Hub) Registry() registry.Registry {
	return h.registry
}

// GetDataset returns the requested dataset (or table). With an explicit
// source, exactly that tier is consulted and its errors propagate untouched.
// In automatic mode the tiers are tried in fixed order (local cache, remote
// snapshot store, fresh fetch) and the first one producing data wins; a
// cache hit therefore never triggers a network call. If every tier fails,
// the returned error enumerates each tier's failure.
func (h *Hub) GetDataset(req Request) (dataset.Payload, error) {
	desc, err := h.registry.Lookup(req.Name)
	if err != nil {
		return nil, err
	}
	resolution, err := dataset.Resolve(desc, req.Table)
	if err != nil {
		return nil, err
	}

	source := req.Source
	if source == "" {
		source = SourceAuto
	}

	var payload dataset.Payload
	switch source {
	case SourceCache:
		payload, err = h.loadFromCache(desc.Name)
	case SourceGitHub:
		payload, err = h.remote.Download(desc.Name, false)
	case SourceFresh:
		payload, err = h.gateway.Fetch(desc, fetchRequest(req))
	case SourceAuto:
		payload, err = h.fallback(desc, req)
	default:
		err = &UnknownSourceError{Source: string(source)}
	}
	if err != nil {
		return nil, err
	}

	payload, err = dataset.Extract(desc, payload, resolution)
	if err != nil {
		return nil, err
	}
	return h.translated(desc, payload)
}

// consults the local cache, surfacing an empty cache as a miss
func (h *Hub) loadFromCache(name string) (dataset.Payload, error) {
	payload, err := h.cache.Load(name)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, &cache.MissError{Dataset: name}
	}
	h.warnIfStale(name)
	return payload, nil
}

// one tier attempt in the automatic fallback; attempts run lazily so losing
// tiers do no work at all
type tierAttempt struct {
	tier Source
	run  func() (dataset.Payload, error)
}

// runs the tiered fallback, collecting each tier's failure by name
func (h *Hub) fallback(desc registry.Descriptor, req Request) (dataset.Payload, error) {
	attempts := []tierAttempt{
		{SourceCache, func() (dataset.Payload, error) {
			return h.loadFromCache(desc.Name)
		}},
		{SourceGitHub, func() (dataset.Payload, error) {
			return h.remote.Download(desc.Name, false)
		}},
		{SourceFresh, func() (dataset.Payload, error) {
			return h.gateway.Fetch(desc, fetchRequest(req))
		}},
	}

	failures := make([]TierFailure, 0, len(attempts))
	for _, attempt := range attempts {
		payload, err := attempt.run()
		if err != nil {
			slog.Debug("Source tier failed; falling back",
				"dataset", desc.Name, "tier", attempt.tier, "error", err.Error())
			failures = append(failures, TierFailure{
				Tier:   attempt.tier,
				Reason: err.Error(),
			})
			continue
		}
		if payload == nil {
			failures = append(failures, TierFailure{
				Tier:   attempt.tier,
				Reason: "returned no data",
			})
			continue
		}
		return payload, nil
	}
	return nil, &AllTiersFailedError{Dataset: desc.Name, Failures: failures}
}

// warns (once per call) when a cached result is served past its expected
// update cadence; staleness never blocks the read
func (h *Hub) warnIfStale(name string) {
	if stale, known := h.cache.Stale(name, nil); known && stale {
		slog.Warn("Serving a stale cached copy; consider refreshing",
			"dataset", name, "age_days", h.cache.AgeDays(name))
	}
}

// applies the translation dictionary when the dataset opts in and one is
// installed
func (h *Hub) translated(desc registry.Descriptor, payload dataset.Payload) (dataset.Payload, error) {
	if !desc.Translate {
		return payload, nil
	}
	translator, found := translate.Lookup(translate.Default)
	if !found {
		return payload, nil
	}
	return translator.Translate(desc, payload)
}

func fetchRequest(req Request) fetchers.Request {
	return fetchers.Request{
		Dataset:   req.Name,
		Table:     req.Table,
		DateStart: req.DateStart,
		DateEnd:   req.DateEnd,
		Extra:     req.Extra,
	}
}

// ListCachedFiles describes every file currently in the local cache.
func (h *Hub) ListCachedFiles() []cache.FileInfo {
	return h.cache.List()
}

// ClearUserCache removes cached files for the named datasets, or the whole
// cache when names is nil.
func (h *Hub) ClearUserCache(names []string) error {
	return h.cache.Clear(names)
}

// CheckCacheStatus reports freshness for every cached dataset.
func (h *Hub) CheckCacheStatus() []cache.DatasetStatus {
	return h.cache.Status()
}

// UpdateCacheFromGitHub refreshes the local cache from the remote snapshot
// store for the named datasets (all active datasets when names is nil).
func (h *Hub) UpdateCacheFromGitHub(names []string) (map[string]remote.UpdateStatus, map[string]error) {
	return h.remote.Update(names)
}
