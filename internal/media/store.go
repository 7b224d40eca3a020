package media

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/lyra-media/lyra/internal/database"
)

var ErrTrackNotFound = errors.New("track not found")

type Store struct{}

func NewStore() *Store {
	return &Store{}
}

// SaveTrack transactionally upserts the track row and the relational rows
// for its people, genres and studios. Existing rows to update are found
// using the source path, as this is expected to be a stable identifier
// for library content.
//
// NOTE: the ID of the track may be UPDATED to match existing DB entry (if any)
func (store *Store) SaveTrack(tx *sqlx.Tx, track *Track) error {
	trackID := track.ID
	if err := store.saveTrackRow(tx, track); err != nil {
		track.ID = trackID
		return err
	}

	people, err := store.SavePeople(tx, track.People)
	if err != nil {
		return err
	}
	if err := store.savePersonAssociations(tx, track.ID, people); err != nil {
		return err
	}

	genres, err := store.SaveGenres(tx, track.Genres)
	if err != nil {
		return err
	}
	if err := store.saveGenreAssociations(tx, track.ID, genres); err != nil {
		return err
	}

	studios, err := store.SaveStudios(tx, track.Studios)
	if err != nil {
		return err
	}
	if err := store.saveStudioAssociations(tx, track.ID, studios); err != nil {
		return err
	}

	return nil
}

// saveTrackRow upserts only the scalar track row. If a row already exists
// for the tracks source path then its ID is adopted before the upsert so
// the existing row is updated in place.
func (store *Store) saveTrackRow(tx *sqlx.Tx, track *Track) error {
	var existingID uuid.UUID
	err := tx.Get(&existingID, `SELECT id FROM track WHERE source_path=$1`, track.SourcePath)
	if err == nil {
		track.ID = existingID
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to find existing track with source path %s: %w", track.SourcePath, err)
	}

	_, err = tx.Exec(`
		INSERT INTO track(id, kind, source_path, title, album, artist, album_artist,
			track_index, disc_index, language, production_year, premiere_date,
			channels, sample_rate, bit_rate, runtime, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, current_timestamp, current_timestamp)
		ON CONFLICT(id) DO UPDATE SET
			title=EXCLUDED.title, album=EXCLUDED.album, artist=EXCLUDED.artist,
			album_artist=EXCLUDED.album_artist, track_index=EXCLUDED.track_index,
			disc_index=EXCLUDED.disc_index, language=EXCLUDED.language,
			production_year=EXCLUDED.production_year, premiere_date=EXCLUDED.premiere_date,
			channels=EXCLUDED.channels, sample_rate=EXCLUDED.sample_rate,
			bit_rate=EXCLUDED.bit_rate, runtime=EXCLUDED.runtime,
			updated_at=current_timestamp
	`, track.ID, track.Kind, track.SourcePath, track.Title, track.Album, track.Artist,
		track.AlbumArtist, track.TrackIndex, track.DiscIndex, track.Language,
		track.ProductionYear, track.PremiereDate, track.Channels, track.SampleRate,
		track.Bitrate, track.Runtime)
	if err != nil {
		return fmt.Errorf("failed to upsert track row: %w", err)
	}

	return nil
}

// SavePeople saves the given people to the database, ignoring any that
// already exist (determined based on name and role conflicts). The rows
// referenced by the provided people are returned, regardless of whether
// they were already present in the database.
func (store *Store) SavePeople(tx *sqlx.Tx, people []Person) ([]personRow, error) {
	rows := make([]personRow, 0, len(people))
	for _, person := range people {
		var id uuid.UUID
		if err := tx.Get(&id, `
			INSERT INTO person(id, name, role) VALUES ($1, $2, $3)
			ON CONFLICT(name, role) DO UPDATE SET name=EXCLUDED.name
			RETURNING id
		`, uuid.New(), person.Name, person.Role); err != nil {
			return nil, fmt.Errorf("failed to upsert person %s (%s): %w", person.Name, person.Role, err)
		}

		rows = append(rows, personRow{ID: id, Name: person.Name, Role: person.Role})
	}

	return rows, nil
}

// SaveGenres saves the given genre labels to the database, ignoring any which
// already exist in the database (determined based on label conflicts).
// This function will return back all the genres referenced by the labels provided,
// regardless of whether the genres were already present in the database.
func (store *Store) SaveGenres(tx *sqlx.Tx, labels []string) ([]*Genre, error) {
	if len(labels) == 0 {
		return []*Genre{}, nil
	}

	genres := make([]*Genre, len(labels))
	for k, label := range labels {
		genres[k] = &Genre{Label: label}
	}

	if _, err := tx.NamedExec(
		`INSERT INTO genre(label) VALUES (:label) ON CONFLICT(label) DO NOTHING`,
		genres,
	); err != nil {
		return nil, fmt.Errorf("failed to insert bulk genres: %w", err)
	}

	query, args, err := sqlx.Named(`SELECT * FROM genre WHERE label = any(:label)`, genres)
	if err != nil {
		return nil, fmt.Errorf("failed to construct named query: %w", err)
	}

	var results []*Genre
	if err := tx.Select(&results, tx.Rebind(query), pq.Array(args)); err != nil {
		return nil, fmt.Errorf("failed to select saved genres: %w [query %s and args %#v]", err, query, args)
	}

	return results, nil
}

// SaveStudios saves the given studio labels to the database, ignoring any
// which already exist in the database (determined based on label conflicts).
// All the studios referenced by the labels provided are returned.
func (store *Store) SaveStudios(tx *sqlx.Tx, labels []string) ([]*Studio, error) {
	if len(labels) == 0 {
		return []*Studio{}, nil
	}

	studios := make([]*Studio, len(labels))
	for k, label := range labels {
		studios[k] = &Studio{Label: label}
	}

	if _, err := tx.NamedExec(
		`INSERT INTO studio(label) VALUES (:label) ON CONFLICT(label) DO NOTHING`,
		studios,
	); err != nil {
		return nil, fmt.Errorf("failed to insert bulk studios: %w", err)
	}

	query, args, err := sqlx.Named(`SELECT * FROM studio WHERE label = any(:label)`, studios)
	if err != nil {
		return nil, fmt.Errorf("failed to construct named query: %w", err)
	}

	var results []*Studio
	if err := tx.Select(&results, tx.Rebind(query), pq.Array(args)); err != nil {
		return nil, fmt.Errorf("failed to select saved studios: %w [query %s and args %#v]", err, query, args)
	}

	return results, nil
}

// savePersonAssociations replaces the person associations for the given
// track with the rows provided.
//
// NB: This query will FAIL if any of the given people do not have a row in the person table
func (store *Store) savePersonAssociations(db database.Queryable, trackID uuid.UUID, people []personRow) error {
	if err := database.InExec(db, `DELETE FROM track_people tp WHERE tp.track_id=$1`, trackID); err != nil {
		return err
	}
	if len(people) == 0 {
		return nil
	}

	type personAssoc struct {
		ID       uuid.UUID `db:"id"`
		TrackID  uuid.UUID `db:"track_id"`
		PersonID uuid.UUID `db:"person_id"`
	}
	personAssocs := make([]personAssoc, len(people))
	for k, v := range people {
		personAssocs[k] = personAssoc{uuid.New(), trackID, v.ID}
	}

	_, err := db.NamedExec(`
		INSERT INTO track_people(id, track_id, person_id)
		VALUES(:id, :track_id, :person_id)
		ON CONFLICT(track_id, person_id) DO NOTHING
	`, personAssocs)

	return err
}

// saveGenreAssociations replaces the genre associations for the given
// track with the rows provided.
//
// NB: This query will FAIL if any of the given genres do not have a row in the genre table
func (store *Store) saveGenreAssociations(db database.Queryable, trackID uuid.UUID, genres []*Genre) error {
	if err := database.InExec(db, `DELETE FROM track_genres tg WHERE tg.track_id=$1`, trackID); err != nil {
		return err
	}
	if len(genres) == 0 {
		return nil
	}

	type genreAssoc struct {
		ID      uuid.UUID `db:"id"`
		TrackID uuid.UUID `db:"track_id"`
		GenreID int       `db:"genre_id"`
	}
	genreAssocs := make([]genreAssoc, len(genres))
	for k, v := range genres {
		genreAssocs[k] = genreAssoc{uuid.New(), trackID, v.Id}
	}

	_, err := db.NamedExec(`
		INSERT INTO track_genres(id, track_id, genre_id)
		VALUES(:id, :track_id, :genre_id)
		ON CONFLICT(track_id, genre_id) DO NOTHING
	`, genreAssocs)

	return err
}

// saveStudioAssociations replaces the studio associations for the given
// track with the rows provided.
//
// NB: This query will FAIL if any of the given studios do not have a row in the studio table
func (store *Store) saveStudioAssociations(db database.Queryable, trackID uuid.UUID, studios []*Studio) error {
	if err := database.InExec(db, `DELETE FROM track_studios ts WHERE ts.track_id=$1`, trackID); err != nil {
		return err
	}
	if len(studios) == 0 {
		return nil
	}

	type studioAssoc struct {
		ID       uuid.UUID `db:"id"`
		TrackID  uuid.UUID `db:"track_id"`
		StudioID int       `db:"studio_id"`
	}
	studioAssocs := make([]studioAssoc, len(studios))
	for k, v := range studios {
		studioAssocs[k] = studioAssoc{uuid.New(), trackID, v.Id}
	}

	_, err := db.NamedExec(`
		INSERT INTO track_studios(id, track_id, studio_id)
		VALUES(:id, :track_id, :studio_id)
		ON CONFLICT(track_id, studio_id) DO NOTHING
	`, studioAssocs)

	return err
}

// GetTrack searches for an existing track with the PK ID provided.
func (store *Store) GetTrack(db database.Queryable, id uuid.UUID) (*Track, error) {
	query, args, err := selectTrackBuilder().Where("track.id=?", id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct select track query: %w", err)
	}

	var model trackModel
	if err := db.Get(&model, db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTrackNotFound
		}
		return nil, err
	}

	return trackModelToTrack(&model), nil
}

func (store *Store) ListTracks(db database.Queryable) ([]*Track, error) {
	query, _, err := selectTrackBuilder().ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct list tracks query: %w", err)
	}

	var models []trackModel
	if err := db.Select(&models, query); err != nil {
		return nil, err
	}

	output := make([]*Track, len(models))
	for k, v := range models {
		output[k] = trackModelToTrack(&v)
	}

	return output, nil
}

// DeleteTrack removes the track row with the given ID. The association
// rows cascade at the schema level.
func (store *Store) DeleteTrack(db database.Queryable, id uuid.UUID) error {
	result, err := db.Exec(`DELETE FROM track WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete track %s: %w", id, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrTrackNotFound
	}

	return nil
}

// GetAllSourcePaths returns all the source paths related to media that
// is currently known to Lyra by polling the database.
func (store *Store) GetAllSourcePaths(db database.Queryable) ([]string, error) {
	paths := make([]string, 0)
	if err := db.Select(&paths, `SELECT source_path FROM track`); err != nil {
		return nil, err
	}

	return paths, nil
}

func (store *Store) ListGenres(db database.Queryable) ([]*Genre, error) {
	var results []*Genre
	if err := db.Select(&results, `SELECT * FROM genre`); err != nil {
		return nil, err
	}

	return results, nil
}

func (store *Store) ListStudios(db database.Queryable) ([]*Studio, error) {
	var results []*Studio
	if err := db.Select(&results, `SELECT * FROM studio`); err != nil {
		return nil, err
	}

	return results, nil
}

// personRow mirrors a row of the person table. People are exposed on the
// Track model as name/role pairs only; the row ID is an implementation
// detail of the association tables.
type personRow struct {
	ID   uuid.UUID  `db:"id"`
	Name string     `db:"name"`
	Role PersonRole `db:"role"`
}

func selectTrackBuilder() squirrel.SelectBuilder {
	return squirrel.
		Select(
			"track.*",
			"COALESCE(JSONB_AGG(DISTINCT JSONB_BUILD_OBJECT('name', person.name, 'role', person.role)) FILTER (WHERE person.id IS NOT NULL), '[]') AS people",
			"COALESCE(JSONB_AGG(DISTINCT genre.label) FILTER (WHERE genre.id IS NOT NULL), '[]') AS genres",
			"COALESCE(JSONB_AGG(DISTINCT studio.label) FILTER (WHERE studio.id IS NOT NULL), '[]') AS studios",
		).
		From("track").
		LeftJoin("track_people ON track_people.track_id = track.id").
		LeftJoin("person ON person.id = track_people.person_id").
		LeftJoin("track_genres ON track_genres.track_id = track.id").
		LeftJoin("genre ON genre.id = track_genres.genre_id").
		LeftJoin("track_studios ON track_studios.track_id = track.id").
		LeftJoin("studio ON studio.id = track_studios.studio_id").
		GroupBy("track.id")
}

