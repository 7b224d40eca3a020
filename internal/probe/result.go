// Package probe owns execution of the external ffprobe binary and the
// on-disk cache of its raw output. Decoded results are consumed by the
// metadata pipeline, which maps them on to library media.
package probe

import (
	"encoding/json"
	"fmt"
)

const (
	CodecTypeAudio = "audio"
	CodecTypeVideo = "video"
)

type (
	// ProbeResult is the decoded JSON document emitted by ffprobe when
	// asked for both format and stream information.
	ProbeResult struct {
		Streams []ProbeStream `json:"streams"`
		Format  *ProbeFormat  `json:"format"`
	}

	// ProbeStream describes a single stream of the probed container.
	// ffprobe encodes most numeric fields as JSON strings; they are kept
	// as strings here and interpreted by the consumer, as which fields
	// must parse (and how strictly) depends on the media kind.
	ProbeStream struct {
		Index         int               `json:"index"`
		CodecName     string            `json:"codec_name"`
		CodecType     string            `json:"codec_type"`
		Channels      int               `json:"channels"`
		ChannelLayout string            `json:"channel_layout"`
		SampleRate    string            `json:"sample_rate"`
		BitRate       string            `json:"bit_rate"`
		Duration      string            `json:"duration"`
		Tags          map[string]string `json:"tags"`
	}

	// ProbeFormat describes the probed container itself. Duration and
	// bit rate here act as fallbacks when the relevant stream does not
	// carry its own values.
	ProbeFormat struct {
		Filename   string            `json:"filename"`
		FormatName string            `json:"format_name"`
		BitRate    string            `json:"bit_rate"`
		Duration   string            `json:"duration"`
		Tags       map[string]string `json:"tags"`
	}
)

// FirstStreamOfType returns the first stream whose codec type matches, or
// nil if the result contains no such stream.
func (result *ProbeResult) FirstStreamOfType(codecType string) *ProbeStream {
	for i := range result.Streams {
		if result.Streams[i].CodecType == codecType {
			return &result.Streams[i]
		}
	}

	return nil
}

// DecodeProbeResult decodes raw prober output. A literal JSON null
// document decodes to a nil result with no error; consumers are expected
// to treat a nil result as containing no extractable information.
func DecodeProbeResult(raw []byte) (*ProbeResult, error) {
	var result *ProbeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}

	return result, nil
}

type (
	// ExecutionError indicates the external prober could not be started,
	// or exited abnormally, for the file at Path.
	ExecutionError struct {
		Path string
		Err  error
	}

	// IOError indicates a failure to read, write or decode the cached
	// probe output for the file at Path.
	IOError struct {
		Path string
		Err  error
	}

	// MalformedResultError indicates the prober output decoded correctly
	// but does not contain the information required to describe the file
	// (e.g. an audio file whose probe result holds no audio stream).
	MalformedResultError struct {
		Path   string
		Reason string
	}
)

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("probe execution for '%s' failed: %s", e.Path, e.Err.Error())
}
func (e *ExecutionError) Unwrap() error { return e.Err }

func (e *IOError) Error() string {
	return fmt.Sprintf("probe result IO for '%s' failed: %s", e.Path, e.Err.Error())
}
func (e *IOError) Unwrap() error { return e.Err }

func (e *MalformedResultError) Error() string {
	return fmt.Sprintf("probe result for '%s' is malformed: %s", e.Path, e.Reason)
}
