package tracks

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/lyra-media/lyra/internal/api/util"
	"github.com/lyra-media/lyra/internal/media"
)

type (
	Store interface {
		GetTrack(trackID uuid.UUID) (*media.Track, error)
		ListTracks() ([]*media.Track, error)
		SearchTracks(title string) ([]*media.Track, error)
		UpdateTrack(trackID uuid.UUID, update media.TrackUpdate) (*media.Track, error)
		DeleteTrack(trackID uuid.UUID) error

		ListGenres() ([]*media.Genre, error)
		ListStudios() ([]*media.Studio, error)
	}

	// UpdateRequest describes the user-editable fields of a track. Fields
	// left out of the request body remain untouched, allowing clients to
	// submit partial corrections to the scanned metadata.
	UpdateRequest struct {
		Title          *string  `json:"title" validate:"omitempty,min=1"`
		Album          *string  `json:"album"`
		Artist         *string  `json:"artist"`
		AlbumArtist    *string  `json:"album_artist"`
		TrackIndex     *int     `json:"track_index" validate:"omitempty,min=0"`
		DiscIndex      *int     `json:"disc_index" validate:"omitempty,min=0"`
		Language       *string  `json:"language"`
		ProductionYear *int     `json:"production_year" validate:"omitempty,min=0"`
		Genres         []string `json:"genres"`
		Studios        []string `json:"studios"`
	}

	// TrackDto is the response representation of a library track used by
	// the list, get and search endpoints.
	TrackDto struct {
		Id             uuid.UUID      `json:"id"`
		SourcePath     string         `json:"source_path"`
		Title          string         `json:"title"`
		Album          string         `json:"album"`
		Artist         string         `json:"artist"`
		AlbumArtist    string         `json:"album_artist"`
		TrackIndex     int            `json:"track_index"`
		DiscIndex      int            `json:"disc_index"`
		Language       string         `json:"language"`
		ProductionYear int            `json:"production_year"`
		PremiereDate   *time.Time     `json:"premiere_date"`
		Channels       int            `json:"channels"`
		SampleRate     int            `json:"sample_rate"`
		Bitrate        int            `json:"bit_rate"`
		RuntimeSeconds float64        `json:"runtime_seconds"`
		People         []media.Person `json:"people"`
		Genres         []string       `json:"genres"`
		Studios        []string       `json:"studios"`
		CreatedAt      time.Time      `json:"created_at"`
		UpdatedAt      time.Time      `json:"updated_at"`
	}

	LabelDto struct {
		Id    int    `json:"id"`
		Label string `json:"label"`
	}

	Controller struct {
		store    Store
		validate *validator.Validate
	}
)

func New(validate *validator.Validate, store Store) *Controller {
	return &Controller{store: store, validate: validate}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.list)
	eg.GET("/genres/", controller.listGenres)
	eg.GET("/studios/", controller.listStudios)
	eg.GET("/:id/", controller.get)
	eg.PATCH("/:id/", controller.update)
	eg.DELETE("/:id/", controller.delete)
}

// list returns all the library tracks represented as DTOs. An optional
// 'title' query parameter switches the endpoint to a fuzzy title search,
// with the results ordered by how closely they match.
func (controller *Controller) list(ec echo.Context) error {
	title := ec.QueryParam("title")

	var (
		tracks []*media.Track
		err    error
	)
	if title != "" {
		tracks, err = controller.store.SearchTracks(title)
	} else {
		tracks, err = controller.store.ListTracks()
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Error occurred while listing tracks: %v", err))
	}

	return ec.JSON(http.StatusOK, util.ApplyConversion(tracks, NewTrackDto))
}

// get uses the 'id' path param from the context and retrieves the track
// from the underlying store. If found, a DTO representing the track is
// returned.
func (controller *Controller) get(ec echo.Context) error {
	wrap := wrapErrorGenerator("failed to fetch track")
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Track ID is not a valid UUID")
	}

	track, err := controller.store.GetTrack(id)
	if err != nil {
		return wrap(err)
	}

	return ec.JSON(http.StatusOK, NewTrackDto(track))
}

// update applies the user-editable fields from the request body to the
// track matching the 'id' path param, returning a DTO of the track as it
// exists after the update.
func (controller *Controller) update(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Track ID is not a valid UUID")
	}

	var updateRequest UpdateRequest
	if err := ec.Bind(&updateRequest); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid body: %s", err.Error()))
	}

	if err := controller.validate.Struct(updateRequest); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid body: %s", err.Error()))
	}

	var genresToUpdate *[]string = nil
	if updateRequest.Genres != nil {
		genresToUpdate = &updateRequest.Genres
	}
	var studiosToUpdate *[]string = nil
	if updateRequest.Studios != nil {
		studiosToUpdate = &updateRequest.Studios
	}

	track, err := controller.store.UpdateTrack(id, media.TrackUpdate{
		Title:          updateRequest.Title,
		Album:          updateRequest.Album,
		Artist:         updateRequest.Artist,
		AlbumArtist:    updateRequest.AlbumArtist,
		TrackIndex:     updateRequest.TrackIndex,
		DiscIndex:      updateRequest.DiscIndex,
		Language:       updateRequest.Language,
		ProductionYear: updateRequest.ProductionYear,
		Genres:         genresToUpdate,
		Studios:        studiosToUpdate,
	})
	if err != nil {
		return wrapErrorGenerator("failed to update track")(err)
	}

	return ec.JSON(http.StatusOK, NewTrackDto(track))
}

// delete uses the 'id' path param from the context and removes the
// matching track, and its associations, from the underlying store.
func (controller *Controller) delete(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Track ID is not a valid UUID")
	}

	if err := controller.store.DeleteTrack(id); err != nil {
		return wrapErrorGenerator("failed to delete track")(err)
	}

	return ec.NoContent(http.StatusOK)
}

func (controller *Controller) listGenres(ec echo.Context) error {
	genres, err := controller.store.ListGenres()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Error occurred while listing genres: %v", err))
	}

	return ec.JSON(http.StatusOK, util.ApplyConversion(genres, genreToDto))
}

func (controller *Controller) listStudios(ec echo.Context) error {
	studios, err := controller.store.ListStudios()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Error occurred while listing studios: %v", err))
	}

	return ec.JSON(http.StatusOK, util.ApplyConversion(studios, studioToDto))
}

// NewTrackDto creates a TrackDto from the Track model.
func NewTrackDto(track *media.Track) *TrackDto {
	return &TrackDto{
		Id:             track.ID,
		SourcePath:     track.SourcePath,
		Title:          track.Title,
		Album:          track.Album,
		Artist:         track.Artist,
		AlbumArtist:    track.AlbumArtist,
		TrackIndex:     track.TrackIndex,
		DiscIndex:      track.DiscIndex,
		Language:       track.Language,
		ProductionYear: track.ProductionYear,
		PremiereDate:   track.PremiereDate,
		Channels:       track.Channels,
		SampleRate:     track.SampleRate,
		Bitrate:        track.Bitrate,
		RuntimeSeconds: track.Runtime.Seconds(),
		People:         track.People,
		Genres:         track.Genres,
		Studios:        track.Studios,
		CreatedAt:      track.CreatedAt,
		UpdatedAt:      track.UpdatedAt,
	}
}

func genreToDto(genre *media.Genre) LabelDto {
	return LabelDto{Id: genre.Id, Label: genre.Label}
}

func studioToDto(studio *media.Studio) LabelDto {
	return LabelDto{Id: studio.Id, Label: studio.Label}
}

func wrapErrorGenerator(message string) func(err error) error {
	return func(err error) error {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, media.ErrTrackNotFound) {
			return echo.ErrNotFound
		}
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s: %v", message, err))
	}
}
