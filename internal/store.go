package internal

import (
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lyra-media/lyra/internal/database"
	"github.com/lyra-media/lyra/internal/event"
	"github.com/lyra-media/lyra/internal/media"
)

type (
	// storeOrchestrator is responsible for managing all of Lyra's resources,
	// especially highly-relational data. You can think of all
	// the data stores below this layer being 'dumb', and this store
	// linking them together and providing the database instance
	//
	// If consumers need to be able to access data stores directly, they're
	// welcome to do so - however caution should be taken as stores have no
	// obligation to take care of relational data (which is the orchestrator's job)
	storeOrchestrator struct {
		db         database.Manager
		eventBus   event.EventDispatcher
		mediaStore *media.Store
	}
)

func newStoreOrchestrator(db database.Manager, eventBus event.EventDispatcher) *storeOrchestrator {
	if db.GetSqlxDb() != nil {
		panic("cannot construct lyra data store with an already connected database")
	}

	return &storeOrchestrator{
		db:         db,
		eventBus:   eventBus,
		mediaStore: media.NewStore(),
	}
}

func (store *storeOrchestrator) GetTrack(trackID uuid.UUID) (*media.Track, error) {
	return store.mediaStore.GetTrack(store.db.GetSqlxDb(), trackID)
}

func (store *storeOrchestrator) ListTracks() ([]*media.Track, error) {
	return store.mediaStore.ListTracks(store.db.GetSqlxDb())
}

func (store *storeOrchestrator) SearchTracks(title string) ([]*media.Track, error) {
	return store.mediaStore.SearchByTitle(store.db.GetSqlxDb(), title)
}

func (store *storeOrchestrator) GetAllSourcePaths() ([]string, error) {
	return store.mediaStore.GetAllSourcePaths(store.db.GetSqlxDb())
}

// SaveTrack transactionally saves the given track, along with its genre,
// studio and people associations.
func (store *storeOrchestrator) SaveTrack(track *media.Track) error {
	return store.db.WrapTx(func(tx *sqlx.Tx) error {
		return store.mediaStore.SaveTrack(tx, track)
	})
}

// UpdateTrack applies the non-nil fields of the update to the track with
// the given ID inside a single transaction. The track is re-read once the
// transaction commits so the caller sees the row as the database holds it.
func (store *storeOrchestrator) UpdateTrack(trackID uuid.UUID, update media.TrackUpdate) (*media.Track, error) {
	if err := store.db.WrapTx(func(tx *sqlx.Tx) error {
		track, err := store.mediaStore.GetTrack(tx, trackID)
		if err != nil {
			return err
		}

		track.ApplyUpdate(update)
		return store.mediaStore.SaveTrack(tx, track)
	}); err != nil {
		return nil, err
	}

	store.eventBus.Dispatch(event.MediaUpdateEvent, trackID)
	return store.GetTrack(trackID)
}

func (store *storeOrchestrator) DeleteTrack(trackID uuid.UUID) error {
	if err := store.mediaStore.DeleteTrack(store.db.GetSqlxDb(), trackID); err != nil {
		return err
	}

	store.eventBus.Dispatch(event.DeleteMediaEvent, trackID)
	return nil
}

func (store *storeOrchestrator) ListGenres() ([]*media.Genre, error) {
	return store.mediaStore.ListGenres(store.db.GetSqlxDb())
}

func (store *storeOrchestrator) ListStudios() ([]*media.Studio, error) {
	return store.mediaStore.ListStudios(store.db.GetSqlxDb())
}
