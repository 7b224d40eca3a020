package internal

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/lyra-media/lyra/internal/api"
	"github.com/lyra-media/lyra/internal/database"
	"github.com/lyra-media/lyra/internal/event"
	"github.com/lyra-media/lyra/internal/metadata"
	"github.com/lyra-media/lyra/internal/probe"
	"github.com/lyra-media/lyra/internal/scan"
	"github.com/lyra-media/lyra/pkg/logger"
)

var log = logger.Get("Core")

const LYRA_USER_DIR_SUFFIX = "/lyra/"

// Lyra represents the top-level object for the server, and is responsible
// for initialising embedded support services, stores, event
// handling, et cetera...
type lyraImpl struct {
	eventBus        event.EventCoordinator
	activityService *activityService
	config          LyraConfig

	db    database.Manager
	store *storeOrchestrator

	restGateway RestGateway
	scanService ScanService
}

func New(config LyraConfig) *lyraImpl {
	log.Emit(logger.DEBUG, "Bootstrapping Lyra services using config: %#v\n", config)
	lyra := &lyraImpl{
		eventBus: event.New(),
		config:   config,
	}

	lyra.db = database.New()
	lyra.store = newStoreOrchestrator(lyra.db, lyra.eventBus)

	executor := probe.NewExecutor(config.Media.FfprobeBinPath, config.Media.ProbeTimeout())
	cache, err := probe.NewCache(filepath.Join(config.getCacheDir(), "probes"), executor)
	if err != nil {
		panic(fmt.Sprintf("failed to construct probe cache due to error: %s", err.Error()))
	}

	pipeline := metadata.NewPipeline(cache, &metadata.AudioMapper{})

	if serv, err := scan.New(config.Library, pipeline, lyra.store, lyra.eventBus); err == nil {
		lyra.scanService = serv
	} else {
		panic(fmt.Sprintf("failed to construct scan service due to error: %s", err.Error()))
	}

	lyra.restGateway = api.NewRestGateway(&config.RestConfig, lyra.scanService, lyra.store)
	lyra.activityService = newActivityService(lyra.restGateway, lyra.eventBus)

	return lyra
}

// Run will start all of Lyra by bringing up all required services and
// connections, such as the database connection (including pending
// migrations) and the service instances.
//
// This function will not return until Lyra is stopped.
// To stop Lyra, the provided context must be cancelled. Errors from which
// Lyra cannot recover will also cause Lyra to stop.
func (lyra *lyraImpl) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel()
	}

	log.Emit(logger.NEW, "Connecting to database...\n")
	if err := lyra.db.Connect(lyra.config.Database); err != nil {
		return err
	}

	wg := &sync.WaitGroup{}
	lyra.spawnAsyncService(ctx, wg, lyra.scanService, "scan-service", crashHandler)
	lyra.spawnAsyncService(ctx, wg, lyra.activityService, "activity-service", crashHandler)
	lyra.spawnAsyncService(ctx, wg, lyra.restGateway, "rest-gateway", crashHandler)
	log.Emit(logger.SUCCESS, "Lyra services spawned!\n")

	wg.Wait()
	return nil
}

// spawnAsyncService will run the provided function/service as it's own
// go-routine, ensuring that the Lyra service waitgroup is updated correctly
func (lyra *lyraImpl) spawnAsyncService(context context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func(wg *sync.WaitGroup, label string, crash func(string, error)) {
		defer func() {
			if r := recover(); r != nil {
				crash(label, fmt.Errorf("panic %v", r))
			}
		}()

		defer wg.Done()
		if err := service.Run(context); err != nil {
			crash(label, err)
		}
	}(wg, serviceLabel, crashHandler)
}
