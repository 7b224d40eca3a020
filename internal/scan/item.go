package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lyra-media/lyra/internal/event"
	"github.com/lyra-media/lyra/internal/media"
	"github.com/lyra-media/lyra/pkg/logger"
)

type (
	ScanItemState int

	// ScanItem represents a file which has been detected inside the
	// library directory and is either waiting to be, or actively being,
	// processed in to the media store.
	ScanItem struct {
		ID      uuid.UUID
		Path    string
		State   ScanItemState
		Trouble *Trouble
		Track   *media.Track
	}
)

const (
	Idle ScanItemState = iota
	ImportHold
	Scanning
	Troubled
	Complete
)

var (
	ErrNoTrouble    = errors.New("scan has no trouble")
	ErrScanNotFound = errors.New("no scan task could be found")
)

// scan extracts the metadata for the items file and saves the resulting
// track to the media store. The track being populated is assigned to the
// item before extraction begins, so a troubled item exposes whichever
// fields were successfully extracted before the failure occurred.
//
// Any error returned from this method is a Trouble, classified based on
// the stage of the scan which raised it.
func (item *ScanItem) scan(ctx context.Context, eventBus event.EventDispatcher, pipeline Pipeline, store DataStore) error {
	log.Emit(logger.NEW, "Beginning scan of item %s\n", item)

	track := media.NewTrack(media.KindAudio, item.Path)
	item.Track = track

	if err := pipeline.Populate(ctx, track); err != nil {
		return Trouble{error: err, tType: MetadataFailure}
	}

	if err := store.SaveTrack(track); err != nil {
		return Trouble{error: err, tType: DatabaseFailure}
	}

	log.Emit(logger.SUCCESS, "Saved newly scanned track %v\n", track)
	eventBus.Dispatch(event.NewMediaEvent, track.ID)

	return nil
}

// modtimeDiff returns the duration that has elapsed since the items
// source file was last modified.
func (item *ScanItem) modtimeDiff() (*time.Duration, error) {
	itemInfo, err := os.Stat(item.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scan item source file: %w", err)
	}

	diff := time.Since(itemInfo.ModTime())
	return &diff, nil
}

func (item *ScanItem) String() string {
	return fmt.Sprintf("ScanItem{ID=%s state=%s}", item.ID, item.State)
}

func (state ScanItemState) String() string {
	switch state {
	case Idle:
		return fmt.Sprintf("IDLE[%d]", state)
	case ImportHold:
		return fmt.Sprintf("IMPORT_HOLD[%d]", state)
	case Scanning:
		return fmt.Sprintf("SCANNING[%d]", state)
	case Troubled:
		return fmt.Sprintf("TROUBLED[%d]", state)
	case Complete:
		return fmt.Sprintf("COMPLETE[%d]", state)
	default:
		return fmt.Sprintf("UNKNOWN[%d]", state)
	}
}
