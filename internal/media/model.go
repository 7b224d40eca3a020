package media

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lyra-media/lyra/internal/database"
)

type (
	// Kind discriminates the type of content a library file holds. Only
	// audio is fully supported today, however the metadata pipeline
	// dispatches on this kind so additional types can slot in later.
	Kind string

	PersonRole string

	// trackBase contains the scalar columns of the track table. It is
	// embedded by both the internal DB model and the public Track type.
	trackBase struct {
		ID             uuid.UUID     `db:"id"`
		Kind           Kind          `db:"kind"`
		SourcePath     string        `db:"source_path"`
		Title          string        `db:"title"`
		Album          string        `db:"album"`
		Artist         string        `db:"artist"`
		AlbumArtist    string        `db:"album_artist"`
		TrackIndex     int           `db:"track_index"`
		DiscIndex      int           `db:"disc_index"`
		Language       string        `db:"language"`
		ProductionYear int           `db:"production_year"`
		PremiereDate   *time.Time    `db:"premiere_date"`
		Channels       int           `db:"channels"`
		SampleRate     int           `db:"sample_rate"`
		Bitrate        int           `db:"bit_rate"`
		Runtime        time.Duration `db:"runtime"`
		CreatedAt      time.Time     `db:"created_at"`
		UpdatedAt      time.Time     `db:"updated_at"`
	}

	// trackModel is a combination of the track table columns with a JSON
	// representation of the coalesced association rows which are joined in
	// to the query. We use a separate struct as part of the public API of
	// this store to hide the use of the JsonColumn container to prevent
	// against breakages if we change this in the future.
	trackModel struct {
		trackBase
		People  database.JsonColumn[[]Person] `db:"people"`
		Genres  database.JsonColumn[[]string] `db:"genres"`
		Studios database.JsonColumn[[]string] `db:"studios"`
	}

	// Track is the external/public API for a library track. The metadata
	// pipeline populates these fields in-memory before a save ever occurs,
	// so a Track is not guaranteed to exist in the database.
	Track struct {
		trackBase
		People  []Person
		Genres  []string
		Studios []string
	}

	// TrackUpdate holds the user-editable fields of a track. A nil field
	// leaves the existing value untouched, which allows partial updates
	// from the API layer.
	TrackUpdate struct {
		Title          *string
		Album          *string
		Artist         *string
		AlbumArtist    *string
		TrackIndex     *int
		DiscIndex      *int
		Language       *string
		ProductionYear *int
		Genres         *[]string
		Studios        *[]string
	}

	Person struct {
		Name string     `db:"name" json:"name"`
		Role PersonRole `db:"role" json:"role"`
	}

	Genre struct {
		Id    int    `db:"id"`
		Label string `db:"label"`
	}

	Studio struct {
		Id    int    `db:"id"`
		Label string `db:"label"`
	}
)

const (
	KindAudio Kind = "audio"

	PersonRoleComposer PersonRole = "Composer"
)

// NewTrack constructs an unsaved Track for the file at the given path.
// The remaining fields are expected to be populated by the metadata
// pipeline before the track is saved.
func NewTrack(kind Kind, sourcePath string) *Track {
	return &Track{
		trackBase: trackBase{
			ID:         uuid.New(),
			Kind:       kind,
			SourcePath: sourcePath,
		},
		People:  make([]Person, 0),
		Genres:  make([]string, 0),
		Studios: make([]string, 0),
	}
}

// ApplyUpdate copies the non-nil fields of the update on to the track.
func (track *Track) ApplyUpdate(update TrackUpdate) {
	if update.Title != nil {
		track.Title = *update.Title
	}
	if update.Album != nil {
		track.Album = *update.Album
	}
	if update.Artist != nil {
		track.Artist = *update.Artist
	}
	if update.AlbumArtist != nil {
		track.AlbumArtist = *update.AlbumArtist
	}
	if update.TrackIndex != nil {
		track.TrackIndex = *update.TrackIndex
	}
	if update.DiscIndex != nil {
		track.DiscIndex = *update.DiscIndex
	}
	if update.Language != nil {
		track.Language = *update.Language
	}
	if update.ProductionYear != nil {
		track.ProductionYear = *update.ProductionYear
	}
	if update.Genres != nil {
		track.Genres = *update.Genres
	}
	if update.Studios != nil {
		track.Studios = *update.Studios
	}
}

func (track *Track) String() string {
	return fmt.Sprintf("Track{ID=%s kind=%s path=%s}", track.ID, track.Kind, track.SourcePath)
}

func trackModelToTrack(model *trackModel) *Track {
	track := &Track{
		trackBase: model.trackBase,
		People:    make([]Person, 0),
		Genres:    make([]string, 0),
		Studios:   make([]string, 0),
	}

	if people := model.People.Get(); people != nil {
		track.People = *people
	}
	if genres := model.Genres.Get(); genres != nil {
		track.Genres = *genres
	}
	if studios := model.Studios.Get(); studios != nil {
		track.Studios = *studios
	}

	return track
}
