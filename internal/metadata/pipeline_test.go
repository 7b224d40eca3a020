package metadata_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lyra-media/lyra/internal/media"
	"github.com/lyra-media/lyra/internal/metadata"
	"github.com/lyra-media/lyra/internal/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	result *probe.ProbeResult
	err    error
}

func (resolver *stubResolver) Resolve(_ context.Context, _ string, _ time.Time) (*probe.ProbeResult, error) {
	return resolver.result, resolver.err
}

// captureMapper records the result it was dispatched so tests can inspect
// what normalization produced.
type captureMapper struct {
	kind media.Kind
	seen *probe.ProbeResult
	err  error
}

func (mapper *captureMapper) Kind() media.Kind { return mapper.kind }
func (mapper *captureMapper) Map(result *probe.ProbeResult, _ *media.Track) error {
	mapper.seen = result
	return mapper.err
}

func tempTrackFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "song.flac")
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0644))

	return path
}

func Test_Populate_NormalizesTagsBeforeDispatch(t *testing.T) {
	resolver := &stubResolver{result: &probe.ProbeResult{
		Streams: []probe.ProbeStream{{
			CodecType: probe.CodecTypeAudio,
			Tags:      map[string]string{"ENCODER": "Lavf"},
		}},
		Format: &probe.ProbeFormat{Tags: map[string]string{"TITLE": "Aurora", "Artist": "Nightfall"}},
	}}
	mapper := &captureMapper{kind: media.KindAudio}
	pipeline := metadata.NewPipeline(resolver, mapper)

	track := media.NewTrack(media.KindAudio, tempTrackFile(t))
	require.NoError(t, pipeline.Populate(context.Background(), track))

	require.NotNil(t, mapper.seen)
	assert.Equal(t, map[string]string{"title": "Aurora", "artist": "Nightfall"}, mapper.seen.Format.Tags)
	assert.Equal(t, map[string]string{"encoder": "Lavf"}, mapper.seen.Streams[0].Tags)
}

func Test_Populate_CaseCollidingKeysResolveDeterministically(t *testing.T) {
	resolver := &stubResolver{result: &probe.ProbeResult{
		Format: &probe.ProbeFormat{Tags: map[string]string{"TITLE": "A", "Title": "B"}},
	}}
	mapper := &captureMapper{kind: media.KindAudio}
	pipeline := metadata.NewPipeline(resolver, mapper)

	track := media.NewTrack(media.KindAudio, tempTrackFile(t))
	require.NoError(t, pipeline.Populate(context.Background(), track))

	// Keys fold in sorted order, so the all-caps spelling is kept.
	assert.Equal(t, map[string]string{"title": "A"}, mapper.seen.Format.Tags)
}

func Test_Populate_NilResultLeavesTrackUntouched(t *testing.T) {
	pipeline := metadata.NewPipeline(&stubResolver{result: nil}, &metadata.AudioMapper{})

	track := media.NewTrack(media.KindAudio, tempTrackFile(t))
	require.NoError(t, pipeline.Populate(context.Background(), track))

	assert.Empty(t, track.Title)
	assert.Zero(t, track.Channels)
	assert.Empty(t, track.Genres)
}

func Test_Populate_ResolverErrorPropagates(t *testing.T) {
	expectedErr := &probe.ExecutionError{Path: "/library/song.flac", Err: errors.New("exit status 1")}
	pipeline := metadata.NewPipeline(&stubResolver{err: expectedErr}, &metadata.AudioMapper{})

	track := media.NewTrack(media.KindAudio, tempTrackFile(t))
	err := pipeline.Populate(context.Background(), track)
	assert.ErrorIs(t, err, expectedErr)
}

func Test_Populate_MissingSourceFileIsAnIOError(t *testing.T) {
	pipeline := metadata.NewPipeline(&stubResolver{}, &metadata.AudioMapper{})

	track := media.NewTrack(media.KindAudio, filepath.Join(t.TempDir(), "gone.flac"))
	err := pipeline.Populate(context.Background(), track)

	var ioErr *probe.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, track.SourcePath, ioErr.Path)
}

func Test_Populate_UnknownKindErrors(t *testing.T) {
	pipeline := metadata.NewPipeline(&stubResolver{result: &probe.ProbeResult{}}, &metadata.AudioMapper{})

	track := media.NewTrack(media.Kind("image"), tempTrackFile(t))
	err := pipeline.Populate(context.Background(), track)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image")
}

func Test_Populate_MapperFailureKeepsPartialAssignments(t *testing.T) {
	resolver := &stubResolver{result: &probe.ProbeResult{
		Streams: []probe.ProbeStream{{CodecType: probe.CodecTypeAudio, Channels: 6, SampleRate: "not a rate"}},
	}}
	pipeline := metadata.NewPipeline(resolver, &metadata.AudioMapper{})

	track := media.NewTrack(media.KindAudio, tempTrackFile(t))
	err := pipeline.Populate(context.Background(), track)

	require.Error(t, err)
	assert.Equal(t, 6, track.Channels, "assignments made before the failure survive")
	assert.Zero(t, track.SampleRate)
}

func Test_NewPipeline_DuplicateKindPanics(t *testing.T) {
	assert.Panics(t, func() {
		metadata.NewPipeline(&stubResolver{}, &metadata.AudioMapper{}, &metadata.AudioMapper{})
	})
}
