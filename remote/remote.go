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

// This package talks to the remote asset store holding pre-built dataset
// snapshots. The store is an optional acceleration layer: when it can't be
// reached, callers get a soft "unavailable" signal and fall back to fetching
// fresh data.
package remote

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bred-data/bred/cache"
	"github.com/bred-data/bred/config"
	"github.com/bred-data/bred/dataset"
	"github.com/bred-data/bred/registry"
)

// An Asset is one named snapshot file reported by the remote store.
type Asset struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// outcome of one dataset's bulk cache update
type UpdateStatus string

const (
	// the remote snapshot replaced the local copy
	UpdateStatusUpdated UpdateStatus = "updated"
	// the local copy was already at least as fresh as the remote snapshot
	UpdateStatusSkipped UpdateStatus = "skipped"
	// the remote snapshot exists but couldn't be transferred
	UpdateStatusFailed UpdateStatus = "failed"
	// the store was unreachable or carries no snapshot for the dataset
	UpdateStatusIndeterminate UpdateStatus = "indeterminate"
)

// A Client lists and downloads pre-built dataset snapshots, persisting every
// successful download into the local cache.
type Client struct {
	baseURL  string
	probe    http.Client
	transfer http.Client
	registry registry.Registry
	cache    *cache.Manager
}

// snapshot transfers get a generous timeout; only the connectivity probe is
// tightly bounded
const transferTimeout = 5 * time.Minute

// NewClient creates a snapshot store client that persists downloads through
// the given cache manager.
func NewClient(conf config.RemoteConfig, reg registry.Registry, mgr *cache.Manager) *Client {
	return &Client{
		baseURL:  conf.BaseURL,
		probe:    SecureHttpClient(conf.ProbeTimeout()),
		transfer: SecureHttpClient(transferTimeout),
		registry: reg,
		cache:    mgr,
	}
}

// ListAssets asks the store for its snapshot listing. An unreachable or
// unconfigured store yields an UnavailableError, which callers in automatic
// fallback mode treat as "move on", not as a failure.
func (c *Client) ListAssets() ([]Asset, error) {
	if c.baseURL == "" {
		return nil, &UnavailableError{Message: "no remote store configured"}
	}
	resp, err := c.probe.Get(c.baseURL + "/assets")
	if err != nil {
		return nil, &UnavailableError{Message: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &UnavailableError{
			Message: fmt.Sprintf("asset listing returned %d", resp.StatusCode),
		}
	}
	var assets []Asset
	if err := json.NewDecoder(resp.Body).Decode(&assets); err != nil {
		return nil, &UnavailableError{Message: err.Error()}
	}
	return assets, nil
}

// finds the snapshot asset for a dataset, probing file extensions in the
// same priority order the local cache uses
func findAsset(assets []Asset, name string) (Asset, dataset.Format, bool) {
	byName := make(map[string]Asset, len(assets))
	for _, asset := range assets {
		byName[asset.Name] = asset
	}
	for _, format := range dataset.Formats() {
		if asset, found := byName[name+format.Ext()]; found {
			return asset, format, true
		}
	}
	return Asset{}, "", false
}

// Download obtains the named dataset's snapshot from the store, persists it
// into the local cache tagged with the "github" tier, and returns the loaded
// payload. If a local copy already exists and overwrite is false, the
// download is skipped in favor of a local load.
func (c *Client) Download(name string, overwrite bool) (dataset.Payload, error) {
	if !overwrite {
		if _, _, present := c.cache.ResolvePath(name); present {
			slog.Debug("Dataset already cached; skipping snapshot download", "dataset", name)
			return c.cache.Load(name)
		}
	}

	assets, err := c.ListAssets()
	if err != nil {
		return nil, err
	}
	asset, format, found := findAsset(assets, name)
	if !found {
		return nil, &DownloadError{
			Asset:   name,
			Message: "the store has no snapshot for this dataset in any format",
		}
	}

	resp, err := c.transfer.Get(c.baseURL + "/assets/" + asset.Name)
	if err != nil {
		return nil, &DownloadError{Asset: asset.Name, Message: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &DownloadError{
			Asset:   asset.Name,
			Message: fmt.Sprintf("asset transfer returned %d", resp.StatusCode),
		}
	}
	payload, err := dataset.Decode(resp.Body, format)
	if err != nil {
		return nil, &DownloadError{Asset: asset.Name, Message: err.Error()}
	}
	if err := c.cache.Save(payload, name, format, cache.TierGitHub); err != nil {
		return nil, err
	}
	return payload, nil
}

// UpToDate compares the local cache entry for the named dataset against the
// store's reported snapshot timestamp. The second result is false when
// either side is indeterminate (store unreachable, no snapshot, or no local
// entry).
func (c *Client) UpToDate(name string) (bool, bool) {
	entry, found := c.cache.Entry(name)
	if !found {
		return false, false
	}
	assets, err := c.ListAssets()
	if err != nil {
		return false, false
	}
	asset, _, found := findAsset(assets, name)
	if !found {
		return false, false
	}
	return !entry.CachedAt.Before(asset.UpdatedAt), true
}

// Update refreshes the local cache from the store for the named datasets
// (every active dataset when names is nil). It returns a per-dataset status
// map and a parallel map of the errors behind failed or indeterminate
// entries.
func (c *Client) Update(names []string) (map[string]UpdateStatus, map[string]error) {
	if names == nil {
		names = c.registry.Names()
	}

	statuses := make(map[string]UpdateStatus, len(names))
	failures := make(map[string]error)
	for _, name := range names {
		if fresh, known := c.UpToDate(name); known && fresh {
			statuses[name] = UpdateStatusSkipped
			continue
		}
		_, err := c.Download(name, true)
		switch err.(type) {
		case nil:
			statuses[name] = UpdateStatusUpdated
		case *UnavailableError:
			statuses[name] = UpdateStatusIndeterminate
			failures[name] = err
		default:
			statuses[name] = UpdateStatusFailed
			failures[name] = err
		}
	}
	return statuses, failures
}
