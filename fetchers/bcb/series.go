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

// This package implements the "bcb_series" fetch capability: macroeconomic
// time series pulled from the Banco Central do Brasil SGS API.
package bcb

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/bred-data/bred/dataset"
	"github.com/bred-data/bred/fetchers"
	"github.com/bred-data/bred/remote"
)

// the SGS series fetched when a request doesn't name its own: housing credit
// and inflation series relevant to the real estate market
var defaultSeries = map[string]int{
	"ipca":                 433,
	"selic_target":         432,
	"real_estate_credit":   20539,
	"mortgage_rate_market": 25497,
}

const defaultBaseURL = "https://api.bcb.gov.br"

// SGS serves dates as dd/mm/yyyy
const sgsDateLayout = "02/01/2006"

// A SeriesFetcher pulls one or more SGS series and assembles them into a
// flat table with one row per (series, date) observation.
type SeriesFetcher struct {
	baseURL string
	client  http.Client
}

// NewSeriesFetcher creates a fetcher against the public SGS API.
func NewSeriesFetcher() *SeriesFetcher {
	return &SeriesFetcher{
		baseURL: defaultBaseURL,
		client:  remote.SecureHttpClient(1 * time.Minute),
	}
}

// NewSeriesFetcherAt creates a fetcher against an alternate API base URL
// (used by tests).
func NewSeriesFetcherAt(baseURL string) *SeriesFetcher {
	fetcher := NewSeriesFetcher()
	fetcher.baseURL = baseURL
	return fetcher
}

// one observation as SGS serializes it
type observation struct {
	Date  string `json:"data"`
	Value string `json:"valor"`
}

// Fetch pulls every requested series and merges the observations into one
// table with columns (date, series, value). Requests may override the
// series set through Extra["series"] (map of series name to SGS code).
func (f *SeriesFetcher) Fetch(req fetchers.Request) (dataset.Payload, error) {
	series := defaultSeries
	if override, found := req.Extra["series"].(map[string]int); found && len(override) > 0 {
		series = override
	}

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	table := &dataset.Table{
		Columns: []string{"date", "series", "value"},
		Rows:    make([][]string, 0),
	}
	for _, name := range names {
		code := series[name]
		observations, err := f.fetchSeries(code, req.DateStart, req.DateEnd)
		if err != nil {
			return nil, &fetchers.FetchError{
				Capability: "bcb_series",
				Message:    fmt.Sprintf("series '%s' (SGS %d): %s", name, code, err.Error()),
			}
		}
		for _, obs := range observations {
			table.Rows = append(table.Rows, []string{obs.Date, name, obs.Value})
		}
	}
	return table, nil
}

func (f *SeriesFetcher) fetchSeries(code int, start, end time.Time) ([]observation, error) {
	query := url.Values{}
	query.Set("formato", "json")
	if !start.IsZero() {
		query.Set("dataInicial", start.Format(sgsDateLayout))
	}
	if !end.IsZero() {
		query.Set("dataFinal", end.Format(sgsDateLayout))
	}
	endpoint := fmt.Sprintf("%s/dados/serie/bcdata.sgs.%s/dados?%s",
		f.baseURL, strconv.Itoa(code), query.Encode())

	resp, err := f.client.Get(endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SGS returned %d", resp.StatusCode)
	}

	var observations []observation
	if err := json.NewDecoder(resp.Body).Decode(&observations); err != nil {
		return nil, err
	}
	return observations, nil
}
