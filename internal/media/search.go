package media

import (
	"fmt"
	"sort"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/lyra-media/lyra/internal/database"
)

// SearchByTitle returns library tracks ranked by the similarity of their
// title to the query provided. Candidate rows are selected using a simple
// containment match, and the results are then ordered with a
// case-insensitive similarity metric so the closest matches surface first.
func (store *Store) SearchByTitle(db database.Queryable, title string) ([]*Track, error) {
	query, args, err := selectTrackBuilder().
		Where("track.title ILIKE ?", "%"+title+"%").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct search tracks query: %w", err)
	}

	var models []trackModel
	if err := db.Select(&models, db.Rebind(query), args...); err != nil {
		return nil, err
	}

	tracks := make([]*Track, len(models))
	for k, v := range models {
		tracks[k] = trackModelToTrack(&v)
	}

	RankTracksByTitle(tracks, title)
	return tracks, nil
}

// RankTracksByTitle stably sorts the given tracks in place so that the
// track whose title most closely resembles the query comes first.
func RankTracksByTitle(tracks []*Track, title string) {
	metric := &metrics.Hamming{CaseSensitive: false}
	similarity := make(map[*Track]float64, len(tracks))
	for _, track := range tracks {
		similarity[track] = strutil.Similarity(track.Title, title, metric)
	}

	sort.SliceStable(tracks, func(i, j int) bool { return similarity[tracks[i]] > similarity[tracks[j]] })
}
