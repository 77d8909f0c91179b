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

// This package exposes the dataset catalog, the data itself, and the cache
// maintenance operations over a REST API.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humamux"
	"github.com/gorilla/mux"
	"golang.org/x/net/netutil"

	"github.com/bred-data/bred/cache"
	"github.com/bred-data/bred/config"
	"github.com/bred-data/bred/dataset"
	"github.com/bred-data/bred/registry"
	"github.com/bred-data/bred/sources"
)

// Version numbers
var majorVersion = 0
var minorVersion = 1
var patchVersion = 0

// Version string
var version = fmt.Sprintf("%d.%d.%d", majorVersion, minorVersion, patchVersion)

// date bounds in data requests use this layout
const dateLayout = "2006-01-02"

// This type implements the DataService interface, serving Brazilian real
// estate datasets resolved through the source hub.
type dataService struct {
	// name of the service
	Name string
	// service version identifier
	Version string
	// time which the service was started
	StartTime time.Time
	// port on which the service currently runs
	Port int
	// router for REST endpoints
	Router *mux.Router
	// API wrapper
	API huma.API
	// HTTP server.
	Server *http.Server

	// the hub resolving dataset requests
	hub *sources.Hub
	// cap on simultaneous client connections
	maxConnections int
}

// translates hub errors into HTTP status errors: missing things are 404,
// unusable requests are 422, and exhausted source tiers are 502
func httpError(err error) error {
	var unknownDataset *registry.UnknownDatasetError
	var hiddenDataset *registry.HiddenDatasetError
	var cacheMiss *cache.MissError
	var unknownTable *dataset.UnknownTableError
	var emptySlice *dataset.EmptySliceError
	var unknownSource *sources.UnknownSourceError
	var allTiers *sources.AllTiersFailedError
	switch {
	case errors.As(err, &unknownDataset), errors.As(err, &hiddenDataset),
		errors.As(err, &cacheMiss):
		return huma.Error404NotFound(err.Error())
	case errors.As(err, &unknownTable), errors.As(err, &emptySlice),
		errors.As(err, &unknownSource):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.As(err, &allTiers):
		return huma.Error502BadGateway(err.Error())
	}
	return err
}

type ServiceInfoOutput struct {
	Body ServiceInfoResponse `doc:"information about the service itself"`
}

// handler method for root
func (service *dataService) getRoot(ctx context.Context,
	input *struct{}) (*ServiceInfoOutput, error) {

	slog.Info("Querying root endpoint...")
	return &ServiceInfoOutput{
		Body: ServiceInfoResponse{
			Name:          service.Name,
			Version:       service.Version,
			Uptime:        int(service.uptime()),
			Documentation: "/docs",
		},
	}, nil
}

// builds the catalog view of one dataset
func datasetResponse(desc registry.Descriptor) DatasetResponse {
	return DatasetResponse{
		Name:           desc.Name,
		Title:          desc.Title,
		TitlePt:        desc.TitlePT,
		Source:         desc.Source,
		Geography:      desc.Geography,
		Frequency:      desc.Frequency,
		Tables:         desc.TableNames(),
		DefaultTable:   desc.DefaultTable,
		UpdateSchedule: string(desc.UpdateSchedule),
		Translated:     desc.Translate,
	}
}

type DatasetOutput struct {
	Body DatasetResponse `doc:"Information about the requested dataset"`
}

type DatasetsOutput struct {
	Body []DatasetResponse `doc:"A list of information about available datasets"`
}

// handler method for querying the whole dataset catalog
func (service *dataService) getDatasets(ctx context.Context,
	input *struct{}) (*DatasetsOutput, error) {

	slog.Info("Querying the dataset catalog...")
	output := &DatasetsOutput{
		Body: make([]DatasetResponse, 0),
	}
	for _, desc := range service.hub.Registry().All() { // sorted by name
		output.Body = append(output.Body, datasetResponse(desc))
	}
	return output, nil
}

// handler method for querying a single dataset's catalog entry
func (service *dataService) getDataset(ctx context.Context,
	input *struct {
		Name string `path:"name" example:"abecip" doc:"the dataset's catalog name"`
	}) (*DatasetOutput, error) {

	slog.Info(fmt.Sprintf("Querying dataset %s...", input.Name))
	desc, err := service.hub.Registry().Lookup(input.Name)
	if err != nil {
		return nil, httpError(err)
	}
	return &DatasetOutput{Body: datasetResponse(desc)}, nil
}

type DatasetDataOutput struct {
	Body DatasetDataResponse `doc:"The requested dataset's data"`
}

// builds the wire form of a resolved payload
func dataResponse(name, table string, payload dataset.Payload) (DatasetDataResponse, error) {
	switch data := payload.(type) {
	case *dataset.Table:
		return DatasetDataResponse{
			Dataset: name,
			Table:   table,
			Data:    &TableData{Columns: data.Columns, Rows: data.Rows},
		}, nil
	case dataset.Collection:
		tables := make(map[string]TableData, len(data))
		for key, tbl := range data {
			tables[key] = TableData{Columns: tbl.Columns, Rows: tbl.Rows}
		}
		return DatasetDataResponse{Dataset: name, Tables: tables}, nil
	}
	return DatasetDataResponse{}, fmt.Errorf("dataset '%s' resolved to an unexpected payload shape", name)
}

// handler method for fetching a dataset's data
func (service *dataService) getDatasetData(ctx context.Context,
	input *struct {
		Name      string `path:"name" example:"abecip" doc:"the dataset's catalog name"`
		Table     string `query:"table" example:"sbpe" doc:"the table to return; 'all' returns every table"`
		Source    string `query:"source" example:"cache" doc:"the source tier to use (auto, cache, github, fresh)"`
		DateStart string `query:"date_start" example:"2020-01-01" doc:"the inclusive start of the date range (fresh fetches only)"`
		DateEnd   string `query:"date_end" example:"2024-12-31" doc:"the inclusive end of the date range (fresh fetches only)"`
	}) (*DatasetDataOutput, error) {

	slog.Info(fmt.Sprintf("Fetching data for dataset %s...", input.Name))
	request := sources.Request{
		Name:   input.Name,
		Table:  input.Table,
		Source: sources.Source(input.Source),
	}
	var err error
	if input.DateStart != "" {
		request.DateStart, err = time.Parse(dateLayout, input.DateStart)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(
				fmt.Sprintf("Invalid date_start '%s' (want YYYY-MM-DD)", input.DateStart))
		}
	}
	if input.DateEnd != "" {
		request.DateEnd, err = time.Parse(dateLayout, input.DateEnd)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(
				fmt.Sprintf("Invalid date_end '%s' (want YYYY-MM-DD)", input.DateEnd))
		}
	}

	payload, err := service.hub.GetDataset(request)
	if err != nil {
		return nil, httpError(err)
	}
	body, err := dataResponse(input.Name, input.Table, payload)
	if err != nil {
		return nil, err
	}
	return &DatasetDataOutput{Body: body}, nil
}

type CachedFilesOutput struct {
	Body []CachedFileResponse `doc:"A list of the files currently in the local cache"`
}

// handler method for listing the local cache's contents
func (service *dataService) getCachedFiles(ctx context.Context,
	input *struct{}) (*CachedFilesOutput, error) {

	slog.Info("Listing cached files...")
	output := &CachedFilesOutput{
		Body: make([]CachedFileResponse, 0),
	}
	for _, file := range service.hub.ListCachedFiles() {
		output.Body = append(output.Body, CachedFileResponse{
			Dataset:  file.Dataset,
			Format:   string(file.Format),
			Size:     file.Size,
			Modified: file.Modified.Format(time.RFC3339),
		})
	}
	return output, nil
}

type CacheStatusOutput struct {
	Body []CacheStatusResponse `doc:"Per-dataset freshness of the local cache"`
}

// handler method for reporting cache freshness
func (service *dataService) getCacheStatus(ctx context.Context,
	input *struct{}) (*CacheStatusOutput, error) {

	slog.Info("Checking cache status...")
	output := &CacheStatusOutput{
		Body: make([]CacheStatusResponse, 0),
	}
	for _, status := range service.hub.CheckCacheStatus() {
		response := CacheStatusResponse{
			Dataset:  status.Dataset,
			AgeKnown: status.AgeKnown,
			Stale:    status.Stale,
			Schedule: string(status.Schedule),
		}
		if status.AgeKnown { // NaN has no JSON representation
			response.AgeDays = status.AgeDays
			response.ThresholdDays = status.ThresholdDays
		}
		output.Body = append(output.Body, response)
	}
	return output, nil
}

type CacheUpdateOutput struct {
	Body CacheUpdateResponse `doc:"Per-dataset outcomes of the cache refresh"`
}

// handler method for refreshing the cache from the remote snapshot store
func (service *dataService) updateCache(ctx context.Context,
	input *struct {
		Body CacheUpdateRequest `doc:"The datasets to refresh" contentType:"application/json"`
	}) (*CacheUpdateOutput, error) {

	slog.Info("Updating cache from the remote snapshot store...")
	var names []string // nil means every active dataset
	if len(input.Body.Datasets) > 0 {
		names = input.Body.Datasets
	}
	statuses, failures := service.hub.UpdateCacheFromGitHub(names)

	response := CacheUpdateResponse{
		Statuses: make(map[string]string, len(statuses)),
	}
	for name, status := range statuses {
		response.Statuses[name] = string(status)
	}
	if len(failures) > 0 {
		response.Errors = make(map[string]string, len(failures))
		for name, failure := range failures {
			response.Errors[name] = failure.Error()
		}
	}
	return &CacheUpdateOutput{Body: response}, nil
}

type CacheDeletionOutput struct {
	Status int
}

// handler method for clearing the local cache
func (service *dataService) clearCache(ctx context.Context,
	input *struct {
		Datasets []string `query:"datasets" doc:"datasets whose cached files to remove (the whole cache when omitted)"`
	}) (*CacheDeletionOutput, error) {

	slog.Info("Clearing the local cache...")
	var names []string // nil clears everything
	if len(input.Datasets) > 0 {
		names = input.Datasets
	}
	if err := service.hub.ClearUserCache(names); err != nil {
		return nil, err
	}
	return &CacheDeletionOutput{
		Status: http.StatusNoContent,
	}, nil
}

// returns the uptime for the service in seconds
func (service *dataService) uptime() float64 {
	return time.Since(service.StartTime).Seconds()
}

// constructs a dataset service around the given hub
func NewDataService(hub *sources.Hub, conf config.ServiceConfig) (DataService, error) {
	if hub == nil {
		return nil, fmt.Errorf("No source hub was specified.")
	}
	if len(hub.Registry().Names()) == 0 {
		return nil, fmt.Errorf("The dataset catalog is empty.")
	}

	service := new(dataService)
	service.Name = "BRED"
	service.Version = version
	service.Port = -1
	service.hub = hub
	service.maxConnections = conf.MaxConnections

	// set up routing
	service.Router = mux.NewRouter()
	api := humamux.New(service.Router, huma.DefaultConfig(service.Name, service.Version))
	huma.Get(api, "/", service.getRoot)

	// API v1
	huma.Get(api, "/api/v1/datasets", service.getDatasets)
	huma.Get(api, "/api/v1/datasets/{name}", service.getDataset)
	huma.Get(api, "/api/v1/datasets/{name}/data", service.getDatasetData)
	huma.Get(api, "/api/v1/cache", service.getCachedFiles)
	huma.Get(api, "/api/v1/cache/status", service.getCacheStatus)
	huma.Post(api, "/api/v1/cache/update", service.updateCache)
	huma.Delete(api, "/api/v1/cache", service.clearCache)
	service.API = api

	return service, nil
}

// starts the dataset service
func (service *dataService) Start(port int) error {
	slog.Info(fmt.Sprintf("Starting %s service on port %d...", service.Name, port))
	slog.Info(fmt.Sprintf("(Accepting up to %d connections)", service.maxConnections))

	service.StartTime = time.Now()

	// create a listener that limits the number of incoming connections
	service.Port = port
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return err
	}
	defer listener.Close()
	listener = netutil.LimitListener(listener, service.maxConnections)

	// start the server
	service.Server = &http.Server{
		Handler: service.Router}
	err = service.Server.Serve(listener)

	// we don't report the server closing as an error
	if err != http.ErrServerClosed {
		return err
	}
	return nil
}

// gracefully shuts down the service without interrupting active connections
func (service *dataService) Shutdown(ctx context.Context) error {
	if service.Server != nil {
		return service.Server.Shutdown(ctx)
	}
	return nil
}

// closes down the service abruptly, freeing all resources
func (service *dataService) Close() {
	if service.Server != nil {
		service.Server.Close()
	}
}
