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

import (
	"context"
)

// this type encodes a JSON object for responding to root queries
type ServiceInfoResponse struct {
	Name          string `json:"name" example:"BRED" doc:"The name of the service API"`
	Version       string `json:"version" example:"1.0.0" doc:"The version string (major.minor.patch)"`
	Uptime        int    `json:"uptime" example:"345600" doc:"The time the service has been up (seconds)"`
	Documentation string `json:"documentation" example:"/docs" doc:"The OpenAPI documentation endpoint"`
}

// a response describing one catalog dataset (GET)
type DatasetResponse struct {
	Name           string   `json:"name" example:"abecip" doc:"the dataset's catalog name"`
	Title          string   `json:"title" example:"ABECIP Housing Credit" doc:"the dataset's English title"`
	TitlePt        string   `json:"title_pt,omitempty" doc:"the dataset's Portuguese title"`
	Source         string   `json:"source,omitempty" example:"ABECIP" doc:"the organization publishing the data"`
	Geography      string   `json:"geography,omitempty" example:"Brazil" doc:"the geographic coverage"`
	Frequency      string   `json:"frequency,omitempty" example:"monthly" doc:"the publication frequency"`
	Tables         []string `json:"tables" doc:"the tables the dataset offers"`
	DefaultTable   string   `json:"default_table,omitempty" doc:"the table served when none is requested"`
	UpdateSchedule string   `json:"update_schedule" example:"monthly" doc:"the expected update cadence"`
	Translated     bool     `json:"translated" doc:"whether column names are translated to English"`
}

// one table's data in a data response
type TableData struct {
	Columns []string   `json:"columns" doc:"the table's column names, in order"`
	Rows    [][]string `json:"rows" doc:"the table's rows"`
}

// a response carrying dataset data (GET); exactly one of Data and Tables is
// set, depending on whether a single table or a whole keyed collection was
// requested
type DatasetDataResponse struct {
	Dataset string               `json:"dataset" example:"abecip" doc:"the dataset's catalog name"`
	Table   string               `json:"table,omitempty" example:"sbpe" doc:"the resolved table, when a single table was served"`
	Data    *TableData           `json:"data,omitempty" doc:"the requested table"`
	Tables  map[string]TableData `json:"tables,omitempty" doc:"every table, keyed by name, when 'all' was requested of a keyed dataset"`
}

// a response describing one cached file (GET)
type CachedFileResponse struct {
	Dataset  string `json:"dataset" example:"abecip" doc:"the dataset the file caches"`
	Format   string `json:"format" example:"csv.gz" doc:"the file's serialization format"`
	Size     int64  `json:"size" doc:"the file's size in bytes"`
	Modified string `json:"modified" doc:"the file's last modification time (RFC 3339)"`
}

// a response describing one cached dataset's freshness (GET)
type CacheStatusResponse struct {
	Dataset       string  `json:"dataset" example:"abecip" doc:"the dataset's catalog name"`
	AgeDays       float64 `json:"age_days,omitempty" doc:"the cached copy's age in days; absent when unknown"`
	AgeKnown      bool    `json:"age_known" doc:"whether the cached copy's age could be determined"`
	Stale         bool    `json:"stale" doc:"whether the cached copy is older than the dataset's update cadence allows"`
	Schedule      string  `json:"schedule" example:"monthly" doc:"the dataset's expected update cadence"`
	ThresholdDays float64 `json:"threshold_days,omitempty" doc:"the staleness threshold applied, in days"`
}

// a request to refresh the cache from the remote snapshot store (POST)
type CacheUpdateRequest struct {
	// datasets to refresh; empty means every active dataset
	Datasets []string `json:"datasets,omitempty" doc:"datasets to refresh (all active datasets when omitted)"`
}

// a response reporting per-dataset refresh outcomes (POST)
type CacheUpdateResponse struct {
	// per-dataset outcome: updated, skipped, failed or indeterminate
	Statuses map[string]string `json:"statuses" doc:"per-dataset refresh outcome"`
	// errors behind failed or indeterminate outcomes
	Errors map[string]string `json:"errors,omitempty" doc:"per-dataset error messages"`
}

// DataService defines the interface for the dataset service.
type DataService interface {
	// Starts the service on the selected port, returning an error that indicates
	// success or failure.
	Start(port int) error
	// Gracefully shuts down the service without interrupting active connections.
	Shutdown(ctx context.Context) error
	// Closes down the service, freeing all resources.
	Close()
}
