package metadata

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lyra-media/lyra/internal/media"
	"github.com/lyra-media/lyra/internal/probe"
)

var (
	// albumArtistTagKeys are the spellings under which an album artist may
	// be tagged, consulted in order.
	albumArtistTagKeys = []string{"albumartist", "album artist", "album_artist"}

	// premiereDateTagKeys are the spellings under which a retail date may
	// be tagged, consulted in order. The first value which parses wins.
	premiereDateTagKeys = []string{"retaildate", "retail date", "retail_date"}

	// studioTagKeys are consulted in this fixed order, each contributing
	// its segments to the track's studio list.
	studioTagKeys = []string{"organization", "ensemble", "publisher"}

	premiereDateLayouts = []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"}
)

// AudioMapper applies the audio field rules to a normalized probe result.
// Technical stream fields parse strictly (a present but malformed value
// aborts the mapping), whereas tag-derived fields are lenient and leave
// the track untouched when a value is absent or unparseable.
type AudioMapper struct{}

func (mapper *AudioMapper) Kind() media.Kind { return media.KindAudio }

// Map populates the track from the first audio stream and the format tag
// table. A result holding no audio stream is malformed. Assignments made
// before a strict parse failure remain in place.
func (mapper *AudioMapper) Map(result *probe.ProbeResult, track *media.Track) error {
	stream := result.FirstStreamOfType(probe.CodecTypeAudio)
	if stream == nil {
		return &probe.MalformedResultError{Path: track.SourcePath, Reason: "no audio stream present"}
	}

	track.Channels = stream.Channels

	if stream.SampleRate != "" {
		sampleRate, err := strconv.Atoi(stream.SampleRate)
		if err != nil {
			return fmt.Errorf("failed to parse sample rate of %s: %w", track.SourcePath, err)
		}

		track.SampleRate = sampleRate
	}

	var formatBitrate, formatDuration string
	var tags map[string]string
	if result.Format != nil {
		formatBitrate = result.Format.BitRate
		formatDuration = result.Format.Duration
		tags = result.Format.Tags
	}

	bitrate := stream.BitRate
	if bitrate == "" {
		bitrate = formatBitrate
	}
	if bitrate != "" {
		parsed, err := strconv.Atoi(bitrate)
		if err != nil {
			return fmt.Errorf("failed to parse bit rate of %s: %w", track.SourcePath, err)
		}

		track.Bitrate = parsed
	}

	duration := stream.Duration
	if duration == "" {
		duration = formatDuration
	}
	if duration != "" {
		seconds, err := strconv.ParseFloat(duration, 64)
		if err != nil {
			return fmt.Errorf("failed to parse duration of %s: %w", track.SourcePath, err)
		}

		track.Runtime = time.Duration(seconds * float64(time.Second))
	}

	mapper.applyTags(tags, track)

	return nil
}

func (mapper *AudioMapper) applyTags(tags map[string]string, track *media.Track) {
	if title := tags["title"]; title != "" {
		track.Title = title
	}

	if composer := tags["composer"]; composer != "" {
		track.People = append(track.People, media.Person{Name: composer, Role: media.PersonRoleComposer})
	}

	if album, ok := tags["album"]; ok {
		track.Album = album
	}

	if artist, ok := tags["artist"]; ok {
		track.Artist = artist
	}

	for _, key := range albumArtistTagKeys {
		if albumArtist, ok := tags[key]; ok {
			track.AlbumArtist = albumArtist
			break
		}
	}

	if index, ok := parseOptionalInt(tags["track"]); ok {
		track.TrackIndex = index
	}

	// A disc tag may encode the index over a total (e.g. "2/5"); only the
	// leading segment is of interest.
	if index, ok := parseOptionalInt(firstSegment(tags["disc"])); ok {
		track.DiscIndex = index
	}

	if language, ok := tags["language"]; ok {
		track.Language = language
	}

	if year, ok := parseOptionalInt(tags["date"]); ok {
		track.ProductionYear = year
	}

	for _, key := range premiereDateTagKeys {
		if premiere, ok := parseOptionalDate(tags[key]); ok {
			track.PremiereDate = &premiere
			break
		}
	}

	track.Genres = append(track.Genres, splitTagList(tags["genre"])...)

	for _, key := range studioTagKeys {
		track.Studios = append(track.Studios, splitTagList(tags[key])...)
	}
}

// parseOptionalInt leniently interprets a tag value, reporting false
// rather than an error when the value is missing or not an integer.
func parseOptionalInt(value string) (int, bool) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, false
	}

	return parsed, true
}

func parseOptionalDate(value string) (time.Time, bool) {
	for _, layout := range premiereDateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}

	return time.Time{}, false
}

func firstSegment(value string) string {
	return strings.Split(value, "/")[0]
}

// splitTagList splits a multi-valued tag on '/', trimming whitespace and
// dropping empty segments.
func splitTagList(value string) []string {
	if value == "" {
		return nil
	}

	segments := strings.Split(value, "/")
	values := make([]string, 0, len(segments))
	for _, segment := range segments {
		if trimmed := strings.TrimSpace(segment); trimmed != "" {
			values = append(values, trimmed)
		}
	}

	return values
}
