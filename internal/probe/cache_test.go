package probe_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lyra-media/lyra/internal/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProbeOutput = `{
	"streams": [
		{"index": 0, "codec_name": "flac", "codec_type": "audio", "channels": 2,
		 "sample_rate": "44100", "bit_rate": "1411000", "duration": "182.5",
		 "tags": {"TITLE": "Aurora"}}
	],
	"format": {"filename": "aurora.flac", "format_name": "flac", "bit_rate": "1411000",
		 "duration": "182.5", "tags": {"ARTIST": "Nightfall"}}
}`

// countingProber satisfies probe.Prober with canned output, recording how
// many times it was consulted.
type countingProber struct {
	output []byte
	err    error
	calls  int
}

func (prober *countingProber) Probe(_ context.Context, _ string) ([]byte, error) {
	prober.calls++
	if prober.err != nil {
		return nil, prober.err
	}

	return prober.output, nil
}

func Test_NewCache_CreatesShardDirectories(t *testing.T) {
	root := filepath.Join(t.TempDir(), "probe-cache")

	_, err := probe.NewCache(root, &countingProber{})
	require.NoError(t, err)

	for _, shard := range "0123456789abcdef" {
		require.DirExists(t, filepath.Join(root, string(shard)))
	}

	// Constructing over an existing cache directory must not fail.
	_, err = probe.NewCache(root, &countingProber{})
	require.NoError(t, err)
}

func Test_Resolve_PersistsProberOutputAndReusesIt(t *testing.T) {
	prober := &countingProber{output: []byte(sampleProbeOutput)}
	cache, err := probe.NewCache(t.TempDir(), prober)
	require.NoError(t, err)

	modtime := time.Now()
	result, err := cache.Resolve(context.Background(), "/library/aurora.flac", modtime)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, prober.calls)

	stream := result.FirstStreamOfType(probe.CodecTypeAudio)
	require.NotNil(t, stream)
	assert.Equal(t, 2, stream.Channels)
	assert.Equal(t, "44100", stream.SampleRate)
	require.NotNil(t, result.Format)
	assert.Equal(t, "Nightfall", result.Format.Tags["ARTIST"])

	artifactPath := cache.ArtifactPath("/library/aurora.flac", modtime)
	raw, err := os.ReadFile(artifactPath)
	require.NoError(t, err)
	assert.Equal(t, sampleProbeOutput, string(raw), "artifact should hold the raw prober output")

	// A second resolve for the same path and modtime is served from disk.
	_, err = cache.Resolve(context.Background(), "/library/aurora.flac", modtime)
	require.NoError(t, err)
	assert.Equal(t, 1, prober.calls)
}

func Test_Resolve_DistinguishesModificationTimes(t *testing.T) {
	prober := &countingProber{output: []byte(sampleProbeOutput)}
	cache, err := probe.NewCache(t.TempDir(), prober)
	require.NoError(t, err)

	original := time.Now()
	modified := original.Add(time.Second)

	_, err = cache.Resolve(context.Background(), "/library/aurora.flac", original)
	require.NoError(t, err)
	_, err = cache.Resolve(context.Background(), "/library/aurora.flac", modified)
	require.NoError(t, err)

	assert.Equal(t, 2, prober.calls, "a changed modtime should miss the cache")
	assert.NotEqual(t,
		cache.ArtifactPath("/library/aurora.flac", original),
		cache.ArtifactPath("/library/aurora.flac", modified),
	)
}

func Test_Resolve_ArtifactsAreSharded(t *testing.T) {
	root := filepath.Join(t.TempDir(), "probe-cache")
	cache, err := probe.NewCache(root, &countingProber{output: []byte(sampleProbeOutput)})
	require.NoError(t, err)

	artifactPath := cache.ArtifactPath("/library/aurora.flac", time.Now())
	shard := filepath.Base(filepath.Dir(artifactPath))
	assert.Len(t, shard, 1)
	assert.Contains(t, "0123456789abcdef", shard)
	assert.Equal(t, root, filepath.Dir(filepath.Dir(artifactPath)))
}

func Test_Resolve_ProberFailurePersistsNothing(t *testing.T) {
	expectedErr := &probe.ExecutionError{Path: "/library/aurora.flac", Err: errors.New("exit status 1")}
	prober := &countingProber{err: expectedErr}
	cache, err := probe.NewCache(t.TempDir(), prober)
	require.NoError(t, err)

	modtime := time.Now()
	_, err = cache.Resolve(context.Background(), "/library/aurora.flac", modtime)
	assert.ErrorIs(t, err, expectedErr)
	assert.NoFileExists(t, cache.ArtifactPath("/library/aurora.flac", modtime))

	// With nothing persisted, every resolve consults the prober again.
	_, _ = cache.Resolve(context.Background(), "/library/aurora.flac", modtime)
	assert.Equal(t, 2, prober.calls)
}

func Test_Resolve_RemovesUndecodableArtifact(t *testing.T) {
	prober := &countingProber{output: []byte(sampleProbeOutput)}
	cache, err := probe.NewCache(t.TempDir(), prober)
	require.NoError(t, err)

	modtime := time.Now()
	artifactPath := cache.ArtifactPath("/library/aurora.flac", modtime)
	require.NoError(t, os.WriteFile(artifactPath, []byte("{not json"), 0644))

	_, err = cache.Resolve(context.Background(), "/library/aurora.flac", modtime)
	var ioErr *probe.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.NoFileExists(t, artifactPath)

	// The corrupt artifact is gone, so the next resolve re-probes the file.
	result, err := cache.Resolve(context.Background(), "/library/aurora.flac", modtime)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, prober.calls)
	assert.FileExists(t, artifactPath)
}
