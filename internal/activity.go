package internal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lyra-media/lyra/internal/event"
	"github.com/lyra-media/lyra/pkg/logger"
)

const (
	debounceDuration time.Duration = time.Second * 2
	maxTimerDuration time.Duration = time.Second * 5

	rapidEventDebounceDuration time.Duration = time.Millisecond * 500
	rapidEventMaxTimerDuration time.Duration = time.Second * 2
)

type (
	broadcastHandler func(uuid.UUID) error

	broadcaster interface {
		BroadcastScanUpdate(uuid.UUID) error
		BroadcastMediaUpdate(uuid.UUID) error
	}

	eventKey struct {
		ev event.Event
		id uuid.UUID
	}

	// activityService connects the event bus to the websocket broadcaster,
	// debouncing bursts of updates for the same resource so clients are not
	// flooded during large library scans. A max timer bounds how long a
	// continuously-updating resource can go without a broadcast.
	activityService struct {
		*sync.Mutex
		broadcaster
		eventBus       event.EventHandler
		debounceTimers map[eventKey]*time.Timer
		maxTimers      map[eventKey]*time.Timer
	}
)

func newActivityService(broadcaster broadcaster, event event.EventHandler) *activityService {
	return &activityService{
		Mutex:          &sync.Mutex{},
		broadcaster:    broadcaster,
		eventBus:       event,
		debounceTimers: make(map[eventKey]*time.Timer),
		maxTimers:      make(map[eventKey]*time.Timer),
	}
}

func (service *activityService) Run(ctx context.Context) error {
	messageChan := make(chan event.HandlerEvent, 100)
	service.eventBus.RegisterHandlerChannel(messageChan,
		event.ScanUpdateEvent, event.ScanCompleteEvent,
		event.NewMediaEvent, event.MediaUpdateEvent, event.DeleteMediaEvent)

	log.Emit(logger.NEW, "Activity service started\n")
	for {
		select {
		case ev := <-messageChan:
			if err := service.handleEvent(ev); err != nil {
				log.Emit(logger.ERROR, "Handling of event %v failed: %v\n", ev, err)
			}
		case <-ctx.Done():
			log.Emit(logger.STOP, "Activity service closed\n")
			return nil
		}
	}
}

func (service *activityService) handleEvent(ev event.HandlerEvent) error {
	resourceID, ok := ev.Payload.(uuid.UUID)
	if !ok {
		return errors.New("illegal payload (expected UUID)")
	}

	resourceKey := eventKey{id: resourceID, ev: ev.Event}

	switch ev.Event {
	case event.ScanUpdateEvent:
		service.scheduleEventBroadcast(resourceKey, service.BroadcastScanUpdate)
	case event.ScanCompleteEvent:
		// Completions are terminal; broadcast them with minimal delay so
		// clients can drop the scan from their activity views promptly.
		service.scheduleRapidEventBroadcast(resourceKey, service.BroadcastScanUpdate)
	case event.NewMediaEvent:
		fallthrough
	case event.MediaUpdateEvent:
		fallthrough
	case event.DeleteMediaEvent:
		service.scheduleEventBroadcast(resourceKey, service.BroadcastMediaUpdate)
	default:
		return errors.New("unknown event type")
	}

	return nil
}

func (service *activityService) scheduleEventBroadcast(resourceKey eventKey, handler broadcastHandler) {
	service._scheduleEventBroadcast(resourceKey, handler, debounceDuration, maxTimerDuration)
}

func (service *activityService) scheduleRapidEventBroadcast(resourceKey eventKey, handler broadcastHandler) {
	service._scheduleEventBroadcast(resourceKey, handler, rapidEventDebounceDuration, rapidEventMaxTimerDuration)
}

func (service *activityService) _scheduleEventBroadcast(resourceKey eventKey, handler broadcastHandler, debounceTime time.Duration, maxTime time.Duration) {
	service.Lock()
	defer service.Unlock()

	broadcaster := func() { service.broadcast(resourceKey, handler) }

	// Cancel and re-set a debounce timer
	if t, ok := service.debounceTimers[resourceKey]; ok {
		t.Stop()
	}
	service.debounceTimers[resourceKey] = time.AfterFunc(debounceTime, broadcaster)

	// Set a max timer if not already set
	if _, ok := service.maxTimers[resourceKey]; !ok {
		service.maxTimers[resourceKey] = time.AfterFunc(maxTime, broadcaster)
	}
}

func (service *activityService) broadcast(resourceKey eventKey, handler broadcastHandler) {
	service.Lock()
	defer service.Unlock()

	if t, ok := service.debounceTimers[resourceKey]; ok {
		t.Stop()
		delete(service.debounceTimers, resourceKey)
	}

	if t, ok := service.maxTimers[resourceKey]; ok {
		t.Stop()
		delete(service.maxTimers, resourceKey)
	}

	if err := handler(resourceKey.id); err != nil {
		log.Emit(logger.ERROR, "Broadcast for resource %v failed: %v\n", resourceKey.id, err)
	}
}
