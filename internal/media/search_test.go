package media_test

import (
	"testing"

	"github.com/lyra-media/lyra/internal/media"
	"github.com/stretchr/testify/assert"
)

func trackWithTitle(title string) *media.Track {
	track := media.NewTrack(media.KindAudio, "/library/"+title+".flac")
	track.Title = title
	return track
}

func titlesOf(tracks []*media.Track) []string {
	titles := make([]string, len(tracks))
	for k, v := range tracks {
		titles[k] = v.Title
	}

	return titles
}

func Test_RankTracksByTitle_ClosestMatchFirst(t *testing.T) {
	tracks := []*media.Track{
		trackWithTitle("Moonlight Sonata (Live)"),
		trackWithTitle("Moonlight Sonata"),
		trackWithTitle("Sunlight Cantata"),
	}

	media.RankTracksByTitle(tracks, "Moonlight Sonata")
	assert.Equal(t, "Moonlight Sonata", tracks[0].Title)
}

func Test_RankTracksByTitle_IgnoresCase(t *testing.T) {
	tracks := []*media.Track{
		trackWithTitle("nocturne op 9"),
		trackWithTitle("NOCTURNE OP 9"),
		trackWithTitle("Prelude Op 28"),
	}

	media.RankTracksByTitle(tracks, "Nocturne Op 9")
	assert.Equal(t,
		[]string{"nocturne op 9", "NOCTURNE OP 9", "Prelude Op 28"},
		titlesOf(tracks),
		"equally similar titles should retain their original relative order")
}

func Test_RankTracksByTitle_EmptyInputUntouched(t *testing.T) {
	tracks := []*media.Track{}
	media.RankTracksByTitle(tracks, "anything")
	assert.Empty(t, tracks)
}
