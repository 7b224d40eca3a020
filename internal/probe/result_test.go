package probe_test

import (
	"testing"

	"github.com/lyra-media/lyra/internal/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_DecodeProbeResult_NullDocumentDecodesToNil(t *testing.T) {
	result, err := probe.DecodeProbeResult([]byte("null"))
	require.NoError(t, err)
	assert.Nil(t, result)
}

func Test_DecodeProbeResult_InvalidDocumentErrors(t *testing.T) {
	_, err := probe.DecodeProbeResult([]byte("{not json"))
	assert.Error(t, err)
}

func Test_DecodeProbeResult_KeepsNumericStringsVerbatim(t *testing.T) {
	result, err := probe.DecodeProbeResult([]byte(sampleProbeOutput))
	require.NoError(t, err)
	require.NotNil(t, result)

	require.Len(t, result.Streams, 1)
	stream := result.Streams[0]
	assert.Equal(t, "flac", stream.CodecName)
	assert.Equal(t, probe.CodecTypeAudio, stream.CodecType)
	assert.Equal(t, 2, stream.Channels)
	assert.Equal(t, "44100", stream.SampleRate)
	assert.Equal(t, "1411000", stream.BitRate)
	assert.Equal(t, "182.5", stream.Duration)
	assert.Equal(t, "Aurora", stream.Tags["TITLE"])

	require.NotNil(t, result.Format)
	assert.Equal(t, "flac", result.Format.FormatName)
	assert.Equal(t, "182.5", result.Format.Duration)
}

func Test_FirstStreamOfType(t *testing.T) {
	result := &probe.ProbeResult{Streams: []probe.ProbeStream{
		{Index: 0, CodecType: probe.CodecTypeVideo},
		{Index: 1, CodecType: probe.CodecTypeAudio, Channels: 6},
		{Index: 2, CodecType: probe.CodecTypeAudio, Channels: 2},
	}}

	stream := result.FirstStreamOfType(probe.CodecTypeAudio)
	require.NotNil(t, stream)
	assert.Equal(t, 1, stream.Index, "should return the first matching stream")
	assert.Nil(t, result.FirstStreamOfType("subtitle"))
}
