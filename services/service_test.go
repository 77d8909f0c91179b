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

package services

// This file defines a unit test setup for the BRED dataset service, running
// the REST API against a hub wired to a throwaway cache and a counting fetch
// capability.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
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
	"github.com/bred-data/bred/sources"
)

// BRED URLs
var (
	baseUrl   = "http://localhost:8086/"
	apiPrefix = "api/v1/"
)

// service instance and its collaborators
var (
	testService DataService
	testCache   *cache.Manager
	testFetcher *bredtest.CountingFetcher
)

// performs testing setup
func setup() {
	bredtest.EnableDebugLogging()

	capability := bredtest.UniqueCapability("abecip")
	catalog := fmt.Sprintf(`
datasets:
  abecip:
    title: ABECIP Housing Credit
    tables:
      sbpe: abecip_sbpe
      units: abecip_units
      cgi: abecip_cgi
    default_table: sbpe
    fetch_capability: %s
    update_schedule: monthly
  rppi:
    title: Residential Property Price Indexes
    fetch_capability: %s
    update_schedule: weekly
  property_records:
    fetch_capability: %s
    update_schedule: manual
    status: hidden
`, capability, capability, capability)

	reg, err := registry.Parse([]byte(catalog))
	if err != nil {
		log.Panicf("Couldn't parse the test catalog: %s", err)
	}
	cacheDir, err := os.MkdirTemp(os.TempDir(), "bred-service-tests-")
	if err != nil {
		log.Panicf("Couldn't create testing directory: %s", err)
	}
	testCache, err = cache.NewManager(cacheDir, reg, nil)
	if err != nil {
		log.Panicf("Couldn't create the test cache: %s", err)
	}

	// no remote store is configured, so github-tier outcomes are indeterminate
	client := remote.NewClient(config.RemoteConfig{ProbeTimeoutSeconds: 5}, reg, testCache)
	testFetcher = &bredtest.CountingFetcher{Payload: bredtest.AbecipCollection()}
	if err := fetchers.Register(capability, testFetcher); err != nil {
		log.Panicf("Couldn't register the test fetch capability: %s", err)
	}
	hub := sources.New(reg, testCache, client, fetchers.NewGateway(testCache))

	testService, err = NewDataService(hub, config.ServiceConfig{Port: 8086, MaxConnections: 100})
	if err != nil {
		log.Panicf("Couldn't create the test service: %s", err)
	}
	go testService.Start(8086)
	time.Sleep(100 * time.Millisecond) // let the listener come up
}

// performs testing breakdown
func breakdown() {
	if testService != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		testService.Shutdown(ctx)
	}
}

// issues a GET and returns the response body and status code
func get(t *testing.T, resource string) ([]byte, int) {
	resp, err := http.Get(baseUrl + resource)
	assert.Nil(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	assert.Nil(t, err)
	return body, resp.StatusCode
}

// tests querying the root endpoint
func TestQueryRoot(t *testing.T) {
	body, code := get(t, "")
	assert.Equal(t, http.StatusOK, code)

	var info ServiceInfoResponse
	assert.Nil(t, json.Unmarshal(body, &info))
	assert.Equal(t, "BRED", info.Name)
	assert.Equal(t, version, info.Version)
}

// tests listing the dataset catalog (hidden datasets stay hidden)
func TestListDatasets(t *testing.T) {
	body, code := get(t, apiPrefix+"datasets")
	assert.Equal(t, http.StatusOK, code)

	var datasets []DatasetResponse
	assert.Nil(t, json.Unmarshal(body, &datasets))
	assert.Len(t, datasets, 2)
	assert.Equal(t, "abecip", datasets[0].Name)
	assert.Equal(t, []string{"cgi", "sbpe", "units"}, datasets[0].Tables)
	assert.Equal(t, "sbpe", datasets[0].DefaultTable)
	assert.Equal(t, "rppi", datasets[1].Name)
}

// tests querying a single dataset's catalog entry
func TestGetDataset(t *testing.T) {
	body, code := get(t, apiPrefix+"datasets/abecip")
	assert.Equal(t, http.StatusOK, code)

	var desc DatasetResponse
	assert.Nil(t, json.Unmarshal(body, &desc))
	assert.Equal(t, "ABECIP Housing Credit", desc.Title)
	assert.Equal(t, "monthly", desc.UpdateSchedule)

	_, code = get(t, apiPrefix+"datasets/mystery")
	assert.Equal(t, http.StatusNotFound, code)
	_, code = get(t, apiPrefix+"datasets/property_records")
	assert.Equal(t, http.StatusNotFound, code)
}

// tests fetching one table of a cached dataset
func TestGetDatasetData(t *testing.T) {
	collection := bredtest.AbecipCollection()
	assert.Nil(t, testCache.Save(collection, "abecip", dataset.FormatBinary, cache.TierFresh))

	body, code := get(t, apiPrefix+"datasets/abecip/data?table=units")
	assert.Equal(t, http.StatusOK, code)

	var data DatasetDataResponse
	assert.Nil(t, json.Unmarshal(body, &data))
	assert.Equal(t, "abecip", data.Dataset)
	assert.NotNil(t, data.Data)
	assert.Equal(t, collection["abecip_units"].Columns, data.Data.Columns)
	assert.Equal(t, collection["abecip_units"].Rows, data.Data.Rows)
	assert.Empty(t, data.Tables)
}

// tests fetching every table of a cached dataset at once
func TestGetDatasetDataAll(t *testing.T) {
	collection := bredtest.AbecipCollection()
	assert.Nil(t, testCache.Save(collection, "abecip", dataset.FormatBinary, cache.TierFresh))

	body, code := get(t, apiPrefix+"datasets/abecip/data?table=all")
	assert.Equal(t, http.StatusOK, code)

	var data DatasetDataResponse
	assert.Nil(t, json.Unmarshal(body, &data))
	assert.Nil(t, data.Data)
	assert.Len(t, data.Tables, 3)
	assert.Contains(t, data.Tables, "abecip_sbpe")
}

// tests the data endpoint's request validation
func TestGetDatasetDataValidation(t *testing.T) {
	assert.Nil(t, testCache.Save(bredtest.AbecipCollection(), "abecip",
		dataset.FormatBinary, cache.TierFresh))

	_, code := get(t, apiPrefix+"datasets/abecip/data?table=bogus")
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	_, code = get(t, apiPrefix+"datasets/abecip/data?source=carrier-pigeon")
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	_, code = get(t, apiPrefix+"datasets/abecip/data?date_start=01%2F01%2F2024")
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	// an explicit cache request for an uncached dataset is a miss
	_, code = get(t, apiPrefix+"datasets/rppi/data?source=cache")
	assert.Equal(t, http.StatusNotFound, code)
}

// tests listing cached files and reporting their freshness
func TestCacheListingAndStatus(t *testing.T) {
	assert.Nil(t, testCache.Save(bredtest.AbecipCollection(), "abecip",
		dataset.FormatBinary, cache.TierFresh))

	body, code := get(t, apiPrefix+"cache")
	assert.Equal(t, http.StatusOK, code)
	var files []CachedFileResponse
	assert.Nil(t, json.Unmarshal(body, &files))
	assert.NotEmpty(t, files)
	assert.Equal(t, "abecip", files[0].Dataset)

	body, code = get(t, apiPrefix+"cache/status")
	assert.Equal(t, http.StatusOK, code)
	var statuses []CacheStatusResponse
	assert.Nil(t, json.Unmarshal(body, &statuses))
	assert.NotEmpty(t, statuses)
	assert.True(t, statuses[0].AgeKnown)
	assert.False(t, statuses[0].Stale)
}

// tests clearing one dataset's cached files
func TestClearCache(t *testing.T) {
	assert.Nil(t, testCache.Save(bredtest.SampleTable(), "rppi",
		dataset.FormatCSVGz, cache.TierFresh))

	request, err := http.NewRequest(http.MethodDelete, baseUrl+apiPrefix+"cache?datasets=rppi", nil)
	assert.Nil(t, err)
	resp, err := http.DefaultClient.Do(request)
	assert.Nil(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	for _, file := range testCache.List() {
		assert.NotEqual(t, "rppi", file.Dataset, "The cleared dataset still has cached files.")
	}
}

// tests the cache update endpoint (no remote store is configured, so the
// outcome is indeterminate)
func TestUpdateCache(t *testing.T) {
	payload, err := json.Marshal(CacheUpdateRequest{Datasets: []string{"abecip"}})
	assert.Nil(t, err)
	resp, err := http.Post(baseUrl+apiPrefix+"cache/update", "application/json",
		bytes.NewReader(payload))
	assert.Nil(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	assert.Nil(t, err)
	var outcome CacheUpdateResponse
	assert.Nil(t, json.Unmarshal(body, &outcome))
	assert.Equal(t, string(remote.UpdateStatusIndeterminate), outcome.Statuses["abecip"])
	assert.Contains(t, outcome.Errors["abecip"], "no remote store configured")
}

// runs the full service test suite
func TestMain(m *testing.M) {
	setup()
	status := m.Run()
	breakdown()
	os.Exit(status)
}
