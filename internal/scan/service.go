package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lyra-media/lyra/internal/event"
	"github.com/lyra-media/lyra/internal/media"
	"github.com/lyra-media/lyra/pkg/logger"
	"github.com/lyra-media/lyra/pkg/worker"
	"github.com/rjeczalik/notify"
)

var log = logger.Get("ScanServ")

type (
	// Pipeline extracts the metadata for the track provided, mutating the
	// track in place. Satisfied by metadata.Pipeline.
	Pipeline interface {
		Populate(ctx context.Context, track *media.Track) error
	}

	// DataStore is the subset of the data layer this service needs to
	// detect already-imported files and to persist newly scanned tracks.
	DataStore interface {
		GetAllSourcePaths() ([]string, error)
		SaveTrack(track *media.Track) error
	}

	// scanService is responsible for managing the automatic detection
	// and scanning of audio files from the library directory. The
	// detected files should be:
	// - Checked against a blacklist to ensure they should be processed
	// - Run through the metadata pipeline to find out as much information as possible
	// - Added to Lyra's database, along with any related data
	scanService struct {
		*sync.Mutex
		pipeline Pipeline
		store    DataStore
		eventBus event.EventCoordinator

		config           Config
		runCtx           context.Context
		blacklist        []*regexp.Regexp
		items            []*ScanItem
		importHoldTimers map[uuid.UUID]*time.Timer
		workerPool       worker.WorkerPool
	}
)

// supportedExtensions restricts discovery to the file types the prober
// can meaningfully inspect as audio.
var supportedExtensions = map[string]bool{
	".aac":  true,
	".aiff": true,
	".flac": true,
	".m4a":  true,
	".mp3":  true,
	".ogg":  true,
	".opus": true,
	".wav":  true,
	".wma":  true,
}

// New creates a new scan service, using the provided config for
// subsequent calls to 'Run'.
//
// The configs 'LibraryPath' is validated to be an existing directory.
// If the directory is missing it will be created, if the path
// provided points to an existing FILE, an error is returned.
func New(config Config, pipeline Pipeline, store DataStore, eventBus event.EventCoordinator) (*scanService, error) {
	// Ensure config library path is a valid directory, create it
	// if it's missing.
	if info, err := os.Stat(config.LibraryPath); err == nil {
		if !info.IsDir() {
			return nil, fmt.Errorf("library path '%s' is not a directory", config.LibraryPath)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(config.LibraryPath, 0755); err != nil {
			return nil, fmt.Errorf("library path '%s' could not be created: %w", config.LibraryPath, err)
		}
	} else {
		return nil, fmt.Errorf("library path '%s' could not be accessed: %w", config.LibraryPath, err)
	}

	blacklist := make([]*regexp.Regexp, 0, len(config.Blacklist))
	for _, pattern := range config.Blacklist {
		expression, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("blacklist pattern '%s' is not a valid regular expression: %w", pattern, err)
		}

		blacklist = append(blacklist, expression)
	}

	service := &scanService{
		Mutex:            &sync.Mutex{},
		pipeline:         pipeline,
		store:            store,
		eventBus:         eventBus,
		config:           config,
		runCtx:           context.Background(),
		blacklist:        blacklist,
		items:            make([]*ScanItem, 0),
		importHoldTimers: make(map[uuid.UUID]*time.Timer),
		workerPool:       *worker.NewWorkerPool(),
	}

	for i := 0; i < config.ScanParallelism; i++ {
		label := fmt.Sprintf("scan-worker-%d", i)
		worker := worker.NewWorker(label, service.PerformItemScan)

		service.workerPool.PushWorker(worker)
	}

	return service, nil
}

// Run is the main entry point of this service. It's responsible
// for listening to the OS file system and responding to change events,
// as well as regularly polling the file system irrespective of the
// watcher. The services worker pool is started to consume the items
// which discovery queues.
// To kill the service, the calling code should cancel the context
// provided.
func (service *scanService) Run(ctx context.Context) error {
	service.runCtx = ctx

	// The notify library drops events if the channel is unbuffered.
	fsNotifyChannel := make(chan notify.EventInfo, 1)
	if err := notify.Watch(filepath.Join(service.config.LibraryPath, "..."), fsNotifyChannel, notify.Create, notify.Rename, notify.Write); err != nil {
		return fmt.Errorf("failed to watch library path '%s': %w", service.config.LibraryPath, err)
	}
	defer notify.Stop(fsNotifyChannel)

	forceSyncTicker := time.NewTicker(time.Second * time.Duration(service.config.ForceSyncSeconds))
	defer forceSyncTicker.Stop()
	defer service.clearAllImportHoldTimers()

	if err := service.workerPool.Start(); err != nil {
		return fmt.Errorf("failed to start scan worker pool: %w", err)
	}
	defer service.workerPool.Close()

	service.DiscoverNewFiles()

	for {
		select {
		case <-fsNotifyChannel:
			service.DiscoverNewFiles()
		case <-forceSyncTicker.C:
			service.DiscoverNewFiles()
		case <-ctx.Done():
			return nil
		}
	}
}

// PerformItemScan is the worker function for the scan service, which is
// called by the services WorkerPool.
// This function will claim the first Idle item it finds and attempt to
// scan it. If the scan fails with a Trouble, then it will be set on the
// item and it's state set to Troubled.
func (service *scanService) PerformItemScan(w worker.Worker) (bool, error) {
	item := service.claimIdleItem()
	if item == nil {
		return false, nil
	}

	service.eventBus.Dispatch(event.ScanUpdateEvent, item.ID)

	if err := item.scan(service.runCtx, service.eventBus, service.pipeline, service.store); err != nil {
		if trbl, ok := err.(Trouble); ok {
			log.Emit(logger.WARNING, "Scan of item %s failed: %s\n", item, trbl.Error())
			item.Trouble = &trbl
			item.State = Troubled
			service.eventBus.Dispatch(event.ScanUpdateEvent, item.ID)

			return true, nil
		}

		return false, err
	}

	service.completeItemScan(item)
	return true, nil
}

// DiscoverNewFiles will scan the host file system at the path
// configured and check for items that need to be scanned (as
// in no database row for these items already exist, and
// no current item in this service represents this path).
// Any paths found that match with any configured blacklists will
// be ignored.
//
// Note: This function will take ownership of the mutex, and releases it when returning
func (service *scanService) DiscoverNewFiles() {
	service.Lock()
	defer service.Unlock()

	sourcePaths, err := service.store.GetAllSourcePaths()
	if err != nil {
		log.Emit(logger.ERROR, "Failed to fetch already imported source paths: %s\n", err.Error())
		return
	}

	sourcePathsLookup := make(map[string]bool, len(sourcePaths))
	for _, path := range sourcePaths {
		sourcePathsLookup[path] = true
	}
	for _, item := range service.items {
		sourcePathsLookup[item.Path] = true
	}

	newItems, err := walkLibrary(service.config.LibraryPath, sourcePathsLookup, service.blacklist)
	if err != nil {
		log.Emit(logger.ERROR, "Library polling failed: %s\n", err.Error())
		return
	}

	minModtimeAge := service.config.RequiredModTimeAgeDuration()
	dirty := false
	for itemPath, itemInfo := range newItems {
		itemID := uuid.New()
		timeDiff := time.Since(itemInfo.ModTime())

		itemState := ImportHold
		if timeDiff > minModtimeAge {
			dirty = true
			itemState = Idle
		}

		scanItem := &ScanItem{
			ID:    itemID,
			Path:  itemPath,
			State: itemState,
		}

		service.items = append(service.items, scanItem)
		if itemState == ImportHold {
			service.scheduleImportHoldTimer(itemID, minModtimeAge-timeDiff)
		}
	}

	if dirty {
		service.wakeupWorkerPool()
	}
}

// RemoveScan looks for an item with the ID provided in the services
// state, and removes it if it's found.
// This method *fails* if the item is currently 'Scanning' as interrupting
// the scan is not possible.
// This method does not error if the itemID does not exist.
//
// Note: This function takes ownership of the mutex and releases it on return
func (service *scanService) RemoveScan(itemID uuid.UUID) error {
	service.Lock()
	defer service.Unlock()

	return service.removeScan(itemID)
}

// removeScan implements the removal of an item from the services state,
// cancelling any import hold timer which may still reference it. The
// caller must hold the services mutex.
func (service *scanService) removeScan(itemID uuid.UUID) error {
	for k, v := range service.items {
		if v.ID == itemID {
			if v.State == Scanning {
				return fmt.Errorf("cannot remove scan %v as a worker is currently processing it", itemID)
			}

			service.clearImportHoldTimer(itemID)
			service.items = append(service.items[:k], service.items[k+1:]...)
			break
		}
	}

	return nil
}

// GetScan accepts the ID of a scan item and attempts to find it
// in the services queue. If it cannot be found, nil is returned.
func (service *scanService) GetScan(itemID uuid.UUID) *ScanItem {
	for _, item := range service.items {
		if item.ID == itemID {
			return item
		}
	}

	return nil
}

// GetAllScans returns the array containing all the ScanItems
// being processed by this service.
func (service *scanService) GetAllScans() []*ScanItem {
	return service.items
}

// ResolveTroubledScan accepts the ID of a Troubled scan item, and attempts
// to resolve its trouble using the method and context provided. A successful
// resolution either returns the item to the queue for another attempt, or
// discards it entirely.
//
// Note: This function takes ownership of the mutex and releases it on return
func (service *scanService) ResolveTroubledScan(itemID uuid.UUID, method ResolutionType, context map[string]string) error {
	service.Lock()
	defer service.Unlock()

	item := service.GetScan(itemID)
	if item == nil {
		return ErrScanNotFound
	} else if item.State != Troubled || item.Trouble == nil {
		return ErrNoTrouble
	}

	resolution, err := item.Trouble.GenerateResolution(method, context)
	if err != nil {
		return err
	}

	switch resolution := resolution.(type) {
	case AbortResolution:
		return service.removeScan(itemID)
	case RetryResolution:
		service.requeueScan(item)
	case RemapPathResolution:
		item.Path = resolution.Path
		service.requeueScan(item)
	default:
		return ErrResolutionIncompatible
	}

	return nil
}

// requeueScan returns a troubled item to the Idle state, discarding its
// trouble and partially populated track so the retry starts from scratch.
func (service *scanService) requeueScan(item *ScanItem) {
	item.Trouble = nil
	item.Track = nil
	item.State = Idle

	service.eventBus.Dispatch(event.ScanUpdateEvent, item.ID)
	service.wakeupWorkerPool()
}

// completeItemScan marks the item provided as Complete and removes it
// from the services queue, announcing the completion on the event bus.
//
// Note: This function takes ownership of the mutex and releases it on return
func (service *scanService) completeItemScan(item *ScanItem) {
	service.Lock()
	defer service.Unlock()

	item.State = Complete
	for k, v := range service.items {
		if v.ID == item.ID {
			service.items = append(service.items[:k], service.items[k+1:]...)
			break
		}
	}

	service.eventBus.Dispatch(event.ScanCompleteEvent, item.ID)
}

// evaluateItemHold accepts the ID of an item that is on ImportHold,
// and checks it's modtime to see if the item can be moved on to
// the 'Idle' state.
// If the item with the ID provided no longer exists, the method is a NO-OP.
// If the item exists, but it's source file no longer exists, the item is removed
// from the services state.
// If the item exists and it's source still does not meet modtime requirements,
// then a new timer will be scheduled to re-evaluate the item hold.
//
// Note: this function takes ownership of the mutex, and releases it when returning
func (service *scanService) evaluateItemHold(id uuid.UUID) {
	service.Lock()
	defer service.Unlock()

	item := service.GetScan(id)
	if item == nil || item.State != ImportHold {
		return
	}

	timeDiff, err := item.modtimeDiff()
	if err != nil {
		// Item's source file has gone away!
		service.removeScan(id)
		return
	}

	thresholdModTime := service.config.RequiredModTimeAgeDuration()
	if *timeDiff < thresholdModTime {
		service.scheduleImportHoldTimer(id, thresholdModTime-*timeDiff)
		return
	}

	item.State = Idle
	service.wakeupWorkerPool()
}

// scheduleImportHoldTimer will call evaluateItemHold for the item provided
// after the delay duration specified has elapsed. Any existing import hold timer
// for the item specified will be *cancelled* before the new timer is created.
func (service *scanService) scheduleImportHoldTimer(id uuid.UUID, delay time.Duration) {
	service.clearImportHoldTimer(id)
	service.importHoldTimers[id] = time.AfterFunc(delay, func() {
		service.evaluateItemHold(id)
	})
}

// clearImportHoldTimer cancels and deletes the import hold timer associatted
// with the item ID specified.
func (service *scanService) clearImportHoldTimer(id uuid.UUID) {
	if timer, ok := service.importHoldTimers[id]; ok {
		timer.Stop()
		delete(service.importHoldTimers, id)
	}
}

// clearAllImportHoldTimers cancels and deletes the import hold timers for
// all items.
func (service *scanService) clearAllImportHoldTimers() {
	for key, timer := range service.importHoldTimers {
		timer.Stop()
		delete(service.importHoldTimers, key)
	}
}

// claimIdleItem will try and find an Idle item in the scan service,
// and set it's state to 'Scanning' to prevent another
// worker from claiming it once the mutex lock is released.
//
// Note: This function takes ownership of the mutex, and releases it when returning
func (service *scanService) claimIdleItem() *ScanItem {
	service.Lock()
	defer service.Unlock()

	for _, item := range service.items {
		if item.State == Idle {
			item.State = Scanning
			return item
		}
	}

	return nil
}

func (service *scanService) wakeupWorkerPool() {
	service.workerPool.WakeupWorkers()
}

// walkLibrary will walk the file system, starting at the directory provided,
// and construct a map of all the eligible audio files inside (including any
// inside of nested directories). Files whose paths are included in the 'known'
// map, whose extension is not a supported audio format, or whose name matches
// one of the blacklist expressions will NOT be included in the result.
// The key of the returned map is the path, and the value contains the FileInfo
func walkLibrary(rootDirPath string, known map[string]bool, blacklist []*regexp.Regexp) (map[string]fs.FileInfo, error) {
	foundItems := make(map[string]fs.FileInfo, 0)
	err := filepath.WalkDir(rootDirPath, func(path string, dir fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if dir.IsDir() {
			return nil
		}

		if !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		for _, expression := range blacklist {
			if expression.MatchString(dir.Name()) {
				return nil
			}
		}

		fileInfo, err := dir.Info()
		if err != nil {
			return err
		}

		if _, ok := known[path]; !ok {
			foundItems[path] = fileInfo
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk library: %w", err)
	}

	return foundItems, nil
}
