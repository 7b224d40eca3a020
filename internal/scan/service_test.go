// scan_test is responsible for ensuring that audio files from the
// library directory are correctly detected, held until stable, processed
// through the metadata pipeline, and saved to Lyra. The pipeline and
// DB integration is mocked.
package scan_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hbomb79/go-chanassert"
	"github.com/lyra-media/lyra/internal/event"
	"github.com/lyra-media/lyra/internal/media"
	"github.com/lyra-media/lyra/internal/scan"
	mocks "github.com/lyra-media/lyra/internal/scan/mocks"
	"github.com/lyra-media/lyra/pkg/logger"
	"github.com/lyra-media/lyra/tests/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// A default event bus which should be used as a NOOP event bus. DO NOT subscribe to this
// inside of a test as the subscribers are not removed between tests.
var (
	defaultEventBus = event.New()
	errExpected     = errors.New("test: expected error")
)

func init() {
	logger.SetMinLoggingLevel(logger.VERBOSE.Level())
}

type Service interface {
	DiscoverNewFiles()
	GetAllScans() []*scan.ScanItem
	GetScan(itemID uuid.UUID) *scan.ScanItem
	ResolveTroubledScan(itemID uuid.UUID, method scan.ResolutionType, context map[string]string) error
}

func startServiceWithBus(
	t *testing.T,
	config scan.Config,
	pipelineMock *mocks.MockPipeline,
	storeMock *mocks.MockDataStore,
	eventBus event.EventCoordinator,
) Service {
	srv, err := scan.New(config, pipelineMock, storeMock, eventBus)
	assert.Nil(t, err)

	// Start scan service
	wg := sync.WaitGroup{}
	wg.Add(1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer wg.Done()
		assert.Nil(t, srv.Run(ctx))
	}()

	t.Cleanup(func() {
		fmt.Println("Waiting for service to close...")
		cancel()
		wg.Wait()
	})

	return srv
}

// startService starts a scan service instance using the config and mocks
// provided. The service is automatically shutdown when the test completes.
func startService(t *testing.T, config scan.Config, pipelineMock *mocks.MockPipeline, storeMock *mocks.MockDataStore) Service {
	return startServiceWithBus(t, config, pipelineMock, storeMock, defaultEventBus)
}

func Test_TrackImports_CorrectlySaved(t *testing.T) {
	t.Parallel()
	tempDir, files := helpers.TempDirWithEmptyFiles(t, []string{"aurora.flac"})

	cfg := scan.Config{ForceSyncSeconds: 100, LibraryPath: tempDir, ScanParallelism: 1}
	pipelineMock := mocks.NewMockPipeline(t)
	storeMock := mocks.NewMockDataStore(t)

	storeMock.EXPECT().GetAllSourcePaths().Return([]string{}, nil)

	// Allow the scan to populate metadata for this track
	pipelineMock.EXPECT().Populate(mock.Anything, mock.MatchedBy(func(track *media.Track) bool {
		return track.SourcePath == files[0] && track.Kind == media.KindAudio
	})).RunAndReturn(func(_ context.Context, track *media.Track) error {
		track.Title = "Aurora"
		track.Artist = "Foals"
		return nil
	}).Once()

	// match a save call, but with a custom matcher to ignore generated UUIDs
	var savedUUID *uuid.UUID = nil
	storeMock.EXPECT().SaveTrack(mock.MatchedBy(func(given *media.Track) bool {
		savedUUID = &given.ID
		return given.SourcePath == files[0] && given.Title == "Aurora" && given.Artist == "Foals"
	})).Return(nil).Once()

	bus := event.New()
	receivedScanComplete := false
	receivedMediaMessage := false
	bus.RegisterHandlerFunction(event.NewMediaEvent, func(ev event.Event, payload event.Payload) {
		receivedMediaMessage = true
		assert.Equal(t, ev, event.NewMediaEvent)
		assert.Equal(t, payload, *savedUUID, "expected UUID emitted on event bus to match save call")
	})
	bus.RegisterHandlerFunction(event.ScanCompleteEvent, func(_ event.Event, _ event.Payload) {
		receivedScanComplete = true
	})

	srv := startServiceWithBus(t, cfg, pipelineMock, storeMock, bus)

	// Wait for item to leave the queue
	assert.EventuallyWithT(t, func(c *assert.CollectT) {
		assert.NotNil(c, savedUUID)
		assert.True(c, receivedScanComplete, "never received scan completion message on event bus")
		assert.True(c, receivedMediaMessage, "never received new media message on event bus")

		allScans := srv.GetAllScans()
		if len(allScans) > 0 {
			assert.Len(c, allScans, 1)
			item := allScans[0]
			assert.NotNil(c, item)
			assert.NotEqual(c, item.State, scan.ImportHold)
			assert.NotEqual(c, item.State, scan.Idle)
		}
	}, time.Second*2, time.Millisecond*100)
}

func Test_NewFile_IgnoredIfAlreadyImported(t *testing.T) {
	t.Parallel()
	tempDir, files := helpers.TempDirWithEmptyFiles(t, []string{"anynameworks.mp3"})

	cfg := scan.Config{ForceSyncSeconds: 100, LibraryPath: tempDir, RequiredModTimeAgeSeconds: 2, ScanParallelism: 1}
	pipelineMock := mocks.NewMockPipeline(t)
	storeMock := mocks.NewMockDataStore(t)

	storeMock.EXPECT().GetAllSourcePaths().Return([]string{files[0]}, nil)

	srv := startService(t, cfg, pipelineMock, storeMock)
	srv.DiscoverNewFiles()

	// Ensure file is not in queue as it matches an existing import.
	assert.Never(t, func() bool { return len(srv.GetAllScans()) > 0 }, 2*time.Second, 500*time.Millisecond)
}

func Test_NewFile_IgnoredIfUnsupportedExtension(t *testing.T) {
	t.Parallel()
	tempDir, _ := helpers.TempDirWithEmptyFiles(t, []string{"cover.jpg", "notes.txt"})

	cfg := scan.Config{ForceSyncSeconds: 100, LibraryPath: tempDir, ScanParallelism: 1}
	pipelineMock := mocks.NewMockPipeline(t)
	storeMock := mocks.NewMockDataStore(t)

	storeMock.EXPECT().GetAllSourcePaths().Return([]string{}, nil)

	srv := startService(t, cfg, pipelineMock, storeMock)

	// Ensure neither file is queued as they are not supported audio formats.
	assert.Never(t, func() bool { return len(srv.GetAllScans()) > 0 }, 2*time.Second, 500*time.Millisecond)
}

func Test_NewFile_IgnoredIfBlacklisted(t *testing.T) {
	t.Parallel()
	tempDir, _ := helpers.TempDirWithEmptyFiles(t, []string{"sample.flac"})

	cfg := scan.Config{ForceSyncSeconds: 100, LibraryPath: tempDir, Blacklist: []string{"sample"}, ScanParallelism: 1}
	pipelineMock := mocks.NewMockPipeline(t)
	storeMock := mocks.NewMockDataStore(t)

	storeMock.EXPECT().GetAllSourcePaths().Return([]string{}, nil)

	srv := startService(t, cfg, pipelineMock, storeMock)

	// Ensure file is not in queue as its name matches a blacklist pattern.
	assert.Never(t, func() bool { return len(srv.GetAllScans()) > 0 }, 2*time.Second, 500*time.Millisecond)
}

func Test_NewFile_CorrectlyHeld(t *testing.T) {
	t.Parallel()
	// Construct a new scan service with the import delay set to a low value
	// and noop mocks for the dependencies.
	tempDir, _ := helpers.TempDirWithEmptyFiles(t, []string{"anynameworks.flac"})

	cfg := scan.Config{ForceSyncSeconds: 100, LibraryPath: tempDir, RequiredModTimeAgeSeconds: 2, ScanParallelism: 1}
	pipelineMock := mocks.NewMockPipeline(t)
	storeMock := mocks.NewMockDataStore(t)

	pipelineMock.EXPECT().Populate(mock.Anything, mock.Anything).Return(errExpected)
	storeMock.EXPECT().GetAllSourcePaths().Return([]string{}, nil)

	srv := startService(t, cfg, pipelineMock, storeMock)

	// Assert that dummy item is in import hold shortly after service startup
	assert.EventuallyWithT(t, func(c *assert.CollectT) {
		all := srv.GetAllScans()
		assert.Len(c, all, 1)
		assert.Equal(c, scan.ImportHold, all[0].State)
	}, 1*time.Second, 500*time.Millisecond)

	// Assert dummy still import held after forced resync
	srv.DiscoverNewFiles()
	all := srv.GetAllScans()
	assert.Len(t, all, 1)
	assert.Equal(t, scan.ImportHold, all[0].State)

	// Assert dummy item is now unheld and has failed with expected error
	assert.EventuallyWithT(t, func(c *assert.CollectT) {
		all := srv.GetAllScans()
		assert.Len(c, all, 1)

		item := all[0]
		assert.Equal(c, scan.Troubled, item.State)
		assert.NotNil(c, item.Trouble)
		if item.Trouble != nil {
			assert.Equal(c, scan.MetadataFailure, item.Trouble.Type())
			assert.Equal(c, errExpected.Error(), item.Trouble.Error())
		}
	}, 3*time.Second, 500*time.Millisecond)
}

func Test_StoreFailure_MarksScanTroubled(t *testing.T) {
	t.Parallel()
	tempDir, _ := helpers.TempDirWithEmptyFiles(t, []string{"anynameworks.flac"})

	cfg := scan.Config{ForceSyncSeconds: 100, LibraryPath: tempDir, ScanParallelism: 1}
	pipelineMock := mocks.NewMockPipeline(t)
	storeMock := mocks.NewMockDataStore(t)

	storeMock.EXPECT().GetAllSourcePaths().Return([]string{}, nil)
	pipelineMock.EXPECT().Populate(mock.Anything, mock.Anything).Return(nil)
	storeMock.EXPECT().SaveTrack(mock.Anything).Return(errExpected)

	srv := startService(t, cfg, pipelineMock, storeMock)

	assert.EventuallyWithT(t, func(c *assert.CollectT) {
		all := srv.GetAllScans()
		assert.Len(c, all, 1)
		if len(all) != 1 {
			return
		}

		item := all[0]
		assert.Equal(c, scan.Troubled, item.State)
		assert.NotNil(c, item.Track, "expected troubled item to retain its populated track")
		if item.Trouble != nil {
			assert.Equal(c, scan.DatabaseFailure, item.Trouble.Type())
			assert.NotContains(c, item.Trouble.AllowedResolutionTypes(), scan.RemapPath)
		}
	}, 2*time.Second, 100*time.Millisecond)
}

func Test_TroubledScan_CanBeRetried(t *testing.T) {
	t.Parallel()
	tempDir, _ := helpers.TempDirWithEmptyFiles(t, []string{"anynameworks.flac"})

	cfg := scan.Config{ForceSyncSeconds: 100, LibraryPath: tempDir, ScanParallelism: 1}
	pipelineMock := mocks.NewMockPipeline(t)
	storeMock := mocks.NewMockDataStore(t)

	storeMock.EXPECT().GetAllSourcePaths().Return([]string{}, nil)

	// Fail the first populate attempt so the item becomes troubled, then
	// allow the retry to succeed.
	attempts := 0
	pipelineMock.EXPECT().Populate(mock.Anything, mock.Anything).RunAndReturn(func(_ context.Context, track *media.Track) error {
		attempts++
		if attempts == 1 {
			return errExpected
		}

		track.Title = "Recovered"
		return nil
	})

	saved := false
	storeMock.EXPECT().SaveTrack(mock.MatchedBy(func(given *media.Track) bool {
		saved = true
		return given.Title == "Recovered"
	})).Return(nil).Once()

	srv := startService(t, cfg, pipelineMock, storeMock)

	var itemID uuid.UUID
	assert.EventuallyWithT(t, func(c *assert.CollectT) {
		all := srv.GetAllScans()
		assert.Len(c, all, 1)
		if len(all) == 1 {
			itemID = all[0].ID
			assert.Equal(c, scan.Troubled, all[0].State)
		}
	}, 2*time.Second, 100*time.Millisecond)

	assert.Contains(t, srv.GetScan(itemID).Trouble.AllowedResolutionTypes(), scan.Retry)
	assert.Nil(t, srv.ResolveTroubledScan(itemID, scan.Retry, map[string]string{}))

	assert.EventuallyWithT(t, func(c *assert.CollectT) {
		assert.True(c, saved, "expected track to be saved following retry")
		assert.Len(c, srv.GetAllScans(), 0)
	}, 2*time.Second, 100*time.Millisecond)
}

func Test_TroubledScan_PathCanBeRemapped(t *testing.T) {
	t.Parallel()
	tempDir, files := helpers.TempDirWithEmptyFiles(t, []string{"original.flac", "relocated.flac"})

	// The second file stands in for the files location after being moved;
	// marking it as already imported keeps discovery away from it.
	cfg := scan.Config{ForceSyncSeconds: 100, LibraryPath: tempDir, ScanParallelism: 1}
	pipelineMock := mocks.NewMockPipeline(t)
	storeMock := mocks.NewMockDataStore(t)

	storeMock.EXPECT().GetAllSourcePaths().Return([]string{files[1]}, nil)

	pipelineMock.EXPECT().Populate(mock.Anything, mock.Anything).RunAndReturn(func(_ context.Context, track *media.Track) error {
		if track.SourcePath == files[1] {
			return nil
		}

		return errExpected
	})

	saved := false
	storeMock.EXPECT().SaveTrack(mock.MatchedBy(func(given *media.Track) bool {
		saved = true
		return given.SourcePath == files[1]
	})).Return(nil).Once()

	srv := startService(t, cfg, pipelineMock, storeMock)

	var itemID uuid.UUID
	assert.EventuallyWithT(t, func(c *assert.CollectT) {
		all := srv.GetAllScans()
		assert.Len(c, all, 1)
		if len(all) == 1 {
			itemID = all[0].ID
			assert.Equal(c, scan.Troubled, all[0].State)
		}
	}, 2*time.Second, 100*time.Millisecond)

	// A remap without the new path in its context must be rejected.
	assert.ErrorIs(t, srv.ResolveTroubledScan(itemID, scan.RemapPath, map[string]string{}), scan.ErrResolutionContextIncompatible)
	assert.Nil(t, srv.ResolveTroubledScan(itemID, scan.RemapPath, map[string]string{"path": files[1]}))

	assert.EventuallyWithT(t, func(c *assert.CollectT) {
		assert.True(c, saved, "expected track to be saved following path remap")
		assert.Len(c, srv.GetAllScans(), 0)
	}, 2*time.Second, 100*time.Millisecond)
}

func Test_TroubledScan_CanBeAborted(t *testing.T) {
	t.Parallel()
	tempDir, _ := helpers.TempDirWithEmptyFiles(t, []string{"anynameworks.flac"})

	cfg := scan.Config{ForceSyncSeconds: 100, LibraryPath: tempDir, ScanParallelism: 1}
	pipelineMock := mocks.NewMockPipeline(t)
	storeMock := mocks.NewMockDataStore(t)

	storeMock.EXPECT().GetAllSourcePaths().Return([]string{}, nil)
	pipelineMock.EXPECT().Populate(mock.Anything, mock.Anything).Return(errExpected)

	srv := startService(t, cfg, pipelineMock, storeMock)

	var itemID uuid.UUID
	assert.EventuallyWithT(t, func(c *assert.CollectT) {
		all := srv.GetAllScans()
		assert.Len(c, all, 1)
		if len(all) == 1 {
			itemID = all[0].ID
			assert.Equal(c, scan.Troubled, all[0].State)
		}
	}, 2*time.Second, 100*time.Millisecond)

	assert.Nil(t, srv.ResolveTroubledScan(itemID, scan.Abort, nil))
	assert.Len(t, srv.GetAllScans(), 0)
}

func Test_ScanLifecycle_EmitsActivityEvents(t *testing.T) {
	t.Parallel()
	tempDir, _ := helpers.TempDirWithEmptyFiles(t, []string{"anynameworks.flac"})

	cfg := scan.Config{ForceSyncSeconds: 100, LibraryPath: tempDir, ScanParallelism: 1}
	pipelineMock := mocks.NewMockPipeline(t)
	storeMock := mocks.NewMockDataStore(t)

	storeMock.EXPECT().GetAllSourcePaths().Return([]string{}, nil)
	pipelineMock.EXPECT().Populate(mock.Anything, mock.Anything).Return(nil).Once()
	storeMock.EXPECT().SaveTrack(mock.Anything).Return(nil).Once()

	bus := event.New()
	eventChannel := make(chan event.HandlerEvent, 10)
	bus.RegisterHandlerChannel(eventChannel, event.NewMediaEvent, event.ScanCompleteEvent)

	expecter := chanassert.NewChannelExpecter(eventChannel).Expect(
		chanassert.ExactlyNOf(1, matchEvent(event.NewMediaEvent)),
		chanassert.ExactlyNOf(1, matchEvent(event.ScanCompleteEvent)),
	)
	expecter.Listen()

	_ = startServiceWithBus(t, cfg, pipelineMock, storeMock, bus)
	expecter.AssertSatisfied(t, time.Second*2)
}

func Test_PollsFilesystemPeriodically(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()

	cfg := scan.Config{ForceSyncSeconds: 1, LibraryPath: tempDir, RequiredModTimeAgeSeconds: 2, ScanParallelism: 1}
	pipelineMock := mocks.NewMockPipeline(t)
	storeMock := mocks.NewMockDataStore(t)

	calls := 0
	storeMock.EXPECT().GetAllSourcePaths().RunAndReturn(func() ([]string, error) {
		calls++
		return []string{}, nil
	})

	_ = startService(t, cfg, pipelineMock, storeMock)
	time.Sleep(4 * time.Second)
	assert.GreaterOrEqual(t, calls, 3, "Expected at least 3 calls to 'GetAllSourcePaths'")
}

func matchEvent(expected event.Event) chanassert.Matcher[event.HandlerEvent] {
	return chanassert.MatchPredicate(func(ev event.HandlerEvent) bool { return ev.Event == expected })
}
