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

package sources

// These tests exercise the orchestrator's fallback policy with a fake
// snapshot store and counting fetch capabilities.

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bred-data/bred/bredtest"
	"github.com/bred-data/bred/cache"
	"github.com/bred-data/bred/config"
	"github.com/bred-data/bred/dataset"
	"github.com/bred-data/bred/fetchers"
	"github.com/bred-data/bred/registry"
	"github.com/bred-data/bred/remote"
	"github.com/bred-data/bred/translate"
)

// a test harness wiring a hub to throwaway collaborators
type harness struct {
	hub     *Hub
	cache   *cache.Manager
	store   *bredtest.SnapshotStore
	fetcher *bredtest.CountingFetcher
}

// builds a harness around an abecip-shaped catalog. A nil store means "no
// remote store configured".
func newHarness(t *testing.T, store *bredtest.SnapshotStore) *harness {
	capability := bredtest.UniqueCapability("abecip")
	catalog := fmt.Sprintf(`
datasets:
  abecip:
    tables:
      sbpe: abecip_sbpe
      units: abecip_units
      cgi: abecip_cgi
    default_table: sbpe
    fetch_capability: %s
    update_schedule: monthly
  property_records:
    fetch_capability: %s
    update_schedule: manual
    status: hidden
`, capability, capability)

	reg, err := registry.Parse([]byte(catalog))
	assert.Nil(t, err)
	mgr, err := cache.NewManager(t.TempDir(), reg, nil)
	assert.Nil(t, err)

	remoteConf := config.RemoteConfig{ProbeTimeoutSeconds: 5}
	if store != nil {
		remoteConf.BaseURL = store.URL()
	}
	client := remote.NewClient(remoteConf, reg, mgr)

	fetcher := &bredtest.CountingFetcher{Payload: bredtest.AbecipCollection()}
	assert.Nil(t, fetchers.Register(capability, fetcher))

	return &harness{
		hub:     New(reg, mgr, client, fetchers.NewGateway(mgr)),
		cache:   mgr,
		store:   store,
		fetcher: fetcher,
	}
}

// tests that a populated local cache suppresses every network code path
func TestAutoShortCircuitsOnCacheHit(t *testing.T) {
	store := bredtest.NewSnapshotStore()
	defer store.Close()
	h := newHarness(t, store)

	collection := bredtest.AbecipCollection()
	assert.Nil(t, h.cache.Save(collection, "abecip", dataset.FormatBinary, cache.TierFresh))

	payload, err := h.hub.GetDataset(Request{Name: "abecip", Table: "all"})
	assert.Nil(t, err)
	assert.Equal(t, collection, payload)
	assert.Zero(t, store.ListCalls, "A cache hit still probed the remote store.")
	assert.Zero(t, store.DownloadCalls, "A cache hit still downloaded a snapshot.")
	assert.Zero(t, h.fetcher.Calls, "A cache hit still invoked the fetch capability.")
}

// tests that an empty cache falls through to the remote snapshot store and
// warms the cache with the downloaded data
func TestAutoFallsBackToSnapshotStore(t *testing.T) {
	store := bredtest.NewSnapshotStore()
	defer store.Close()
	h := newHarness(t, store)

	collection := bredtest.AbecipCollection()
	assert.Nil(t, store.AddPayload("abecip", collection, dataset.FormatBinary, time.Now()))

	payload, err := h.hub.GetDataset(Request{Name: "abecip", Table: "all"})
	assert.Nil(t, err)
	assert.Equal(t, collection, payload)
	assert.Zero(t, h.fetcher.Calls, "A snapshot hit still invoked the fetch capability.")

	entry, found := h.cache.Entry("abecip")
	assert.True(t, found, "The snapshot download didn't warm the local cache.")
	assert.Equal(t, cache.TierGitHub, entry.SourceTier)
}

// tests that with no cache and no remote store the fetch capability runs,
// and its result warms the cache
func TestAutoFallsBackToFreshFetch(t *testing.T) {
	h := newHarness(t, nil)

	payload, err := h.hub.GetDataset(Request{Name: "abecip", Table: "all"})
	assert.Nil(t, err)
	assert.Equal(t, bredtest.AbecipCollection(), payload)
	assert.Equal(t, 1, h.fetcher.Calls)

	entry, found := h.cache.Entry("abecip")
	assert.True(t, found, "The fresh fetch didn't warm the local cache.")
	assert.Equal(t, cache.TierFresh, entry.SourceTier)
}

// tests that when every tier fails, the error enumerates each tier's reason
func TestAggregateFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.fetcher.Err = fmt.Errorf("the upstream site is down for maintenance")

	_, err := h.hub.GetDataset(Request{Name: "abecip"})
	assert.NotNil(t, err, "Three failed tiers didn't trigger an error.")
	var aggregate *AllTiersFailedError
	assert.ErrorAs(t, err, &aggregate)
	assert.Len(t, aggregate.Failures, 3)

	message := err.Error()
	assert.Contains(t, message, "cache:")
	assert.Contains(t, message, "github:")
	assert.Contains(t, message, "fresh:")
	assert.Contains(t, message, "no local cached copy")
	assert.Contains(t, message, "down for maintenance")
}

// tests that an explicit cache request surfaces a miss instead of falling
// through
func TestExplicitCacheMiss(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.hub.GetDataset(Request{Name: "abecip", Source: SourceCache})
	assert.NotNil(t, err, "An explicit cache miss didn't trigger an error.")
	var miss *cache.MissError
	assert.ErrorAs(t, err, &miss)
	assert.Zero(t, h.fetcher.Calls, "An explicit cache request invoked the fetch capability.")
}

// tests that explicit github errors propagate untouched
func TestExplicitGitHubPropagatesErrors(t *testing.T) {
	store := bredtest.NewSnapshotStore() // store is up but has no assets
	defer store.Close()
	h := newHarness(t, store)

	_, err := h.hub.GetDataset(Request{Name: "abecip", Source: SourceGitHub})
	assert.NotNil(t, err)
	var download *remote.DownloadError
	assert.ErrorAs(t, err, &download)
	assert.Zero(t, h.fetcher.Calls)
}

// tests that an explicit fresh request forwards date bounds and extra
// arguments to the fetch capability
func TestExplicitFreshForwardsArguments(t *testing.T) {
	h := newHarness(t, nil)
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	_, err := h.hub.GetDataset(Request{
		Name:      "abecip",
		Table:     "all",
		Source:    SourceFresh,
		DateStart: start,
		DateEnd:   end,
		Extra:     map[string]any{"series": 42},
	})
	assert.Nil(t, err)
	assert.Equal(t, 1, h.fetcher.Calls)
	assert.Equal(t, "abecip", h.fetcher.LastRequest.Dataset)
	assert.Equal(t, start, h.fetcher.LastRequest.DateStart)
	assert.Equal(t, end, h.fetcher.LastRequest.DateEnd)
	assert.Equal(t, 42, h.fetcher.LastRequest.Extra["series"])
}

// tests table validation: bogus names are rejected listing the valid set,
// and "all" never fails
func TestTableValidation(t *testing.T) {
	h := newHarness(t, nil)
	assert.Nil(t, h.cache.Save(bredtest.AbecipCollection(), "abecip", dataset.FormatBinary, cache.TierFresh))

	_, err := h.hub.GetDataset(Request{Name: "abecip", Table: "bogus"})
	assert.NotNil(t, err, "A bogus table name didn't trigger an error.")
	var tableErr *dataset.UnknownTableError
	assert.ErrorAs(t, err, &tableErr)
	for _, valid := range []string{"sbpe", "units", "cgi"} {
		assert.Contains(t, err.Error(), valid)
	}
	assert.Zero(t, h.fetcher.Calls, "Table validation failed after hitting the network.")

	payload, err := h.hub.GetDataset(Request{Name: "abecip", Table: "all"})
	assert.Nil(t, err, "The 'all' sentinel triggered an error.")
	_, isCollection := payload.(dataset.Collection)
	assert.True(t, isCollection)
}

// tests that the default table resolves to the declared default
func TestDefaultTableResolution(t *testing.T) {
	h := newHarness(t, nil)
	assert.Nil(t, h.cache.Save(bredtest.AbecipCollection(), "abecip", dataset.FormatBinary, cache.TierFresh))

	byDefault, err := h.hub.GetDataset(Request{Name: "abecip"})
	assert.Nil(t, err)
	explicit, err := h.hub.GetDataset(Request{Name: "abecip", Table: "sbpe"})
	assert.Nil(t, err)
	assert.Equal(t, explicit, byDefault, "The default table differs from asking for it explicitly.")
}

// tests that unknown and hidden datasets are rejected before any tier runs
func TestUnknownAndHiddenDatasets(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.hub.GetDataset(Request{Name: "mystery"})
	assert.NotNil(t, err)
	var unknown *registry.UnknownDatasetError
	assert.ErrorAs(t, err, &unknown)
	assert.Contains(t, err.Error(), "abecip")

	_, err = h.hub.GetDataset(Request{Name: "property_records"})
	assert.NotNil(t, err, "A hidden dataset was served.")
	var hidden *registry.HiddenDatasetError
	assert.ErrorAs(t, err, &hidden)
	assert.Zero(t, h.fetcher.Calls)
}

// tests that a bogus source name is rejected
func TestUnknownSource(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.hub.GetDataset(Request{Name: "abecip", Source: "carrier-pigeon"})
	assert.NotNil(t, err)
	var sourceErr *UnknownSourceError
	assert.ErrorAs(t, err, &sourceErr)
}

// tests the round trip property: a fresh fetch equals the subsequent cache
// read
func TestFreshFetchCacheRoundTrip(t *testing.T) {
	h := newHarness(t, nil)

	fresh, err := h.hub.GetDataset(Request{Name: "abecip", Table: "all", Source: SourceFresh})
	assert.Nil(t, err)
	cached, err := h.hub.GetDataset(Request{Name: "abecip", Table: "all", Source: SourceCache})
	assert.Nil(t, err)
	assert.Equal(t, fresh, cached, "Cached data differs from the fresh fetch it came from.")
	assert.Equal(t, 1, h.fetcher.Calls)
}

// tests the cache maintenance pass-throughs
func TestCacheMaintenanceOperations(t *testing.T) {
	h := newHarness(t, nil)
	assert.Nil(t, h.cache.Save(bredtest.SampleTable(), "abecip", dataset.FormatCSVGz, cache.TierFresh))

	files := h.hub.ListCachedFiles()
	assert.Len(t, files, 1)
	assert.Equal(t, "abecip", files[0].Dataset)

	statuses := h.hub.CheckCacheStatus()
	assert.Len(t, statuses, 1)
	assert.False(t, statuses[0].Stale)

	assert.Nil(t, h.hub.ClearUserCache([]string{"abecip"}))
	assert.Empty(t, h.hub.ListCachedFiles())
}

// a translator that renames every column to its uppercase form
type upperTranslator struct{}

func (upperTranslator) Translate(desc registry.Descriptor,
	payload dataset.Payload) (dataset.Payload, error) {

	table, isTable := payload.(*dataset.Table)
	if !isTable {
		return payload, nil
	}
	renamed := &dataset.Table{Columns: make([]string, len(table.Columns)), Rows: table.Rows}
	for i, column := range table.Columns {
		renamed.Columns[i] = strings.ToUpper(column)
	}
	return renamed, nil
}

// tests that the installed translation dictionary is applied to datasets
// that opt in, and only to those
func TestTranslationApplied(t *testing.T) {
	capability := bredtest.UniqueCapability("secovi")
	catalog := fmt.Sprintf(`
datasets:
  secovi:
    fetch_capability: %s
    update_schedule: monthly
    translate: true
  rppi:
    fetch_capability: %s
    update_schedule: weekly
`, capability, capability)
	reg, err := registry.Parse([]byte(catalog))
	assert.Nil(t, err)
	mgr, err := cache.NewManager(t.TempDir(), reg, nil)
	assert.Nil(t, err)
	assert.Nil(t, mgr.Save(bredtest.SecoviTable(), "secovi", dataset.FormatCSVGz, cache.TierFresh))
	assert.Nil(t, mgr.Save(bredtest.SampleTable(), "rppi", dataset.FormatCSVGz, cache.TierFresh))

	// the translator registry is process-wide, so install the dictionary once
	if _, installed := translate.Lookup(translate.Default); !installed {
		assert.Nil(t, translate.Register(translate.Default, upperTranslator{}))
	}

	client := remote.NewClient(config.RemoteConfig{ProbeTimeoutSeconds: 5}, reg, mgr)
	hub := New(reg, mgr, client, fetchers.NewGateway(mgr))

	payload, err := hub.GetDataset(Request{Name: "secovi"})
	assert.Nil(t, err)
	table := payload.(*dataset.Table)
	assert.Equal(t, []string{"DATE", "CATEGORY", "VALUE"}, table.Columns)

	// rppi doesn't opt in, so its columns pass through untouched
	payload, err = hub.GetDataset(Request{Name: "rppi"})
	assert.Nil(t, err)
	table = payload.(*dataset.Table)
	assert.Equal(t, []string{"date", "value"}, table.Columns)
}

// tests bulk cache updates from the snapshot store, including the skipped
// and indeterminate outcomes
func TestUpdateCacheFromGitHub(t *testing.T) {
	store := bredtest.NewSnapshotStore()
	defer store.Close()
	h := newHarness(t, store)

	// a snapshot older than the local copy is skipped
	collection := bredtest.AbecipCollection()
	assert.Nil(t, store.AddPayload("abecip", collection, dataset.FormatBinary,
		time.Now().Add(-24*time.Hour)))
	assert.Nil(t, h.cache.Save(collection, "abecip", dataset.FormatBinary, cache.TierGitHub))

	statuses, failures := h.hub.UpdateCacheFromGitHub([]string{"abecip"})
	assert.Equal(t, remote.UpdateStatusSkipped, statuses["abecip"])
	assert.Empty(t, failures)

	// a newer snapshot is downloaded
	assert.Nil(t, store.AddPayload("abecip", collection, dataset.FormatBinary,
		time.Now().Add(24*time.Hour)))
	statuses, failures = h.hub.UpdateCacheFromGitHub([]string{"abecip"})
	assert.Equal(t, remote.UpdateStatusUpdated, statuses["abecip"])
	assert.Empty(t, failures)

	// with no store at all, the outcome is indeterminate
	offline := newHarness(t, nil)
	statuses, failures = offline.hub.UpdateCacheFromGitHub(nil)
	assert.Equal(t, remote.UpdateStatusIndeterminate, statuses["abecip"])
	assert.NotNil(t, failures["abecip"])
	if failure, found := failures["abecip"]; found {
		assert.True(t, strings.Contains(failure.Error(), "no remote store configured"))
	}
}
