package internal

import (
	"context"

	"github.com/google/uuid"
	"github.com/lyra-media/lyra/internal/scan"
)

type (
	RunnableService interface {
		Run(context.Context) error
	}

	RestGateway interface {
		RunnableService
		BroadcastScanUpdate(scanID uuid.UUID) error
		BroadcastMediaUpdate(mediaID uuid.UUID) error
	}

	ScanService interface {
		RunnableService
		RemoveScan(scanID uuid.UUID) error
		GetScan(scanID uuid.UUID) *scan.ScanItem
		GetAllScans() []*scan.ScanItem
		DiscoverNewFiles()
		ResolveTroubledScan(itemID uuid.UUID, method scan.ResolutionType, context map[string]string) error
	}
)
