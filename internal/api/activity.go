package api

import (
	"errors"

	"github.com/google/uuid"
	"github.com/lyra-media/lyra/internal/api/scans"
	"github.com/lyra-media/lyra/internal/api/tracks"
	"github.com/lyra-media/lyra/internal/http/websocket"
	"github.com/lyra-media/lyra/internal/media"
)

const (
	TITLE_SCAN_UPDATE  = "SCAN_UPDATE"
	TITLE_MEDIA_UPDATE = "MEDIA_UPDATE"
)

type (
	// ScanUpdate is broadcast when a scan changes state. A nil Scan
	// indicates the scan has finished and left the queue, and clients
	// should drop it from any activity views.
	ScanUpdate struct {
		ScanId uuid.UUID      `json:"scan_id"`
		Scan   *scans.ScanDto `json:"scan"`
	}

	// MediaUpdate is broadcast when a track is saved, edited or removed.
	// A nil Track indicates the track no longer exists.
	MediaUpdate struct {
		MediaId uuid.UUID        `json:"media_id"`
		Track   *tracks.TrackDto `json:"track"`
	}

	broadcaster struct {
		socketHub   *websocket.SocketHub
		scanService scans.ScanService
		trackStore  tracks.Store
	}
)

func newBroadcaster(
	socketHub *websocket.SocketHub,
	scanService scans.ScanService,
	trackStore tracks.Store,
) *broadcaster {
	return &broadcaster{socketHub, scanService, trackStore}
}

func (hub *broadcaster) BroadcastScanUpdate(id uuid.UUID) error {
	var dto *scans.ScanDto
	if item := hub.scanService.GetScan(id); item != nil {
		dto = scans.NewDto(item)
	}

	hub.broadcast(TITLE_SCAN_UPDATE, ScanUpdate{ScanId: id, Scan: dto})
	return nil
}

func (hub *broadcaster) BroadcastMediaUpdate(id uuid.UUID) error {
	track, err := hub.trackStore.GetTrack(id)
	if err != nil {
		if errors.Is(err, media.ErrTrackNotFound) {
			hub.broadcast(TITLE_MEDIA_UPDATE, MediaUpdate{MediaId: id, Track: nil})
			return nil
		}

		return err
	}

	hub.broadcast(TITLE_MEDIA_UPDATE, MediaUpdate{MediaId: id, Track: tracks.NewTrackDto(track)})
	return nil
}

func (hub *broadcaster) broadcast(title string, update any) {
	hub.socketHub.Send(&websocket.SocketMessage{
		Title: title,
		Body:  map[string]interface{}{"arguments": update},
		Type:  websocket.Update,
	})
}
