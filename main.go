package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bred-data/bred/cache"
	"github.com/bred-data/bred/config"
	"github.com/bred-data/bred/fetchers"
	"github.com/bred-data/bred/fetchers/bcb"
	"github.com/bred-data/bred/journal"
	"github.com/bred-data/bred/registry"
	"github.com/bred-data/bred/remote"
	"github.com/bred-data/bred/services"
	"github.com/bred-data/bred/sources"
)

// Prints usage info.
func usage() {
	fmt.Fprintf(os.Stderr, "%s: usage:\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "%s <config_file>\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "See README.md for details on config files.\n")
	os.Exit(1)
}

// registers every built-in fetch capability
func registerFetchers() error {
	return fetchers.Register("bcb_series", bcb.NewSeriesFetcher())
}

func main() {

	// The only argument is the configuration filename.
	if len(os.Args) < 2 {
		usage()
	}
	configFile := os.Args[1]

	// Read the configuration file.
	log.Printf("Reading configuration from '%s'...\n", configFile)
	b, err := os.ReadFile(configFile)
	if err != nil {
		log.Panicf("Couldn't read %s: %s\n", configFile, err.Error())
	}
	conf, err := config.Init(b)
	if err != nil {
		log.Panicf("Couldn't initialize the configuration: %s\n", err.Error())
	}

	// Load the dataset catalog and assemble the hub's collaborators.
	reg, err := registry.Load()
	if err != nil {
		log.Panicf("Couldn't load the dataset catalog: %s\n", err.Error())
	}
	activity, err := journal.Open(conf.Cache.Root)
	if err != nil {
		log.Panicf("Couldn't open the activity journal: %s\n", err.Error())
	}
	defer activity.Close()
	mgr, err := cache.NewManager(conf.Cache.Root, reg, activity)
	if err != nil {
		log.Panicf("Couldn't open the local cache: %s\n", err.Error())
	}
	if err = registerFetchers(); err != nil {
		log.Panicf("Couldn't register fetch capabilities: %s\n", err.Error())
	}
	client := remote.NewClient(conf.Remote, reg, mgr)
	hub := sources.New(reg, mgr, client, fetchers.NewGateway(mgr))

	service, err := services.NewDataService(hub, conf.Service)
	if err != nil {
		log.Panicf("Couldn't create the service: %s\n", err.Error())
	}

	// Start the service in a goroutine so it doesn't block.
	go func() {
		err = service.Start(conf.Service.Port)
		if err != nil {
			log.Println(err.Error())
		}
	}()

	// Intercept the SIGINT, SIGHUP, SIGTERM, and SIGQUIT signals, shutting down
	// the service as gracefully as possible if they are encountered.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan,
		syscall.SIGINT,
		syscall.SIGHUP,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	// Block till we receive one of the above signals.
	<-sigChan

	// Create a deadline to wait for.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Wait for connections to close until the deadline elapses.
	service.Shutdown(ctx)
	log.Println("Shutting down")
	os.Exit(0)
}
