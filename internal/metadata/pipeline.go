// Package metadata turns raw probe results into populated media items. A
// pipeline resolves probe output through the probe cache, normalizes the
// tag tables it carries, and dispatches to a mapper registered for the
// item's media kind.
package metadata

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/lyra-media/lyra/internal/media"
	"github.com/lyra-media/lyra/internal/probe"
	"github.com/lyra-media/lyra/pkg/logger"
)

var log = logger.Get("Metadata")

type (
	// Mapper applies the field rules for a single media kind, mutating the
	// provided track in place.
	Mapper interface {
		Kind() media.Kind
		Map(result *probe.ProbeResult, track *media.Track) error
	}

	// ProbeResolver provides decoded probe output for a file. Satisfied by
	// probe.Cache.
	ProbeResolver interface {
		Resolve(ctx context.Context, path string, modtime time.Time) (*probe.ProbeResult, error)
	}

	// Pipeline owns the probe resolver and the kind-keyed mapper table.
	Pipeline struct {
		resolver ProbeResolver
		mappers  map[media.Kind]Mapper
	}
)

// NewPipeline constructs a pipeline dispatching to the given mappers.
// Registering two mappers for the same media kind is a programmer error
// and panics.
func NewPipeline(resolver ProbeResolver, mappers ...Mapper) *Pipeline {
	table := make(map[media.Kind]Mapper, len(mappers))
	for _, mapper := range mappers {
		if _, exists := table[mapper.Kind()]; exists {
			panic(fmt.Sprintf("duplicate metadata mapper registered for media kind '%s'", mapper.Kind()))
		}

		table[mapper.Kind()] = mapper
	}

	return &Pipeline{resolver: resolver, mappers: table}
}

// Populate resolves probe information for the track's source file and maps
// it on to the track. A nil probe result (the tool emitted an empty
// document) leaves the track untouched and is not an error. Mapper errors
// propagate unchanged; fields the mapper assigned before failing remain
// assigned.
func (pipeline *Pipeline) Populate(ctx context.Context, track *media.Track) error {
	info, err := os.Stat(track.SourcePath)
	if err != nil {
		return &probe.IOError{Path: track.SourcePath, Err: err}
	}

	result, err := pipeline.resolver.Resolve(ctx, track.SourcePath, info.ModTime())
	if err != nil {
		return err
	}

	if result == nil {
		log.Emit(logger.WARNING, "Probe result for %s holds no information, leaving track unpopulated\n", track)
		return nil
	}

	normalizeResultTags(result)

	mapper, ok := pipeline.mappers[track.Kind]
	if !ok {
		return fmt.Errorf("no metadata mapper registered for media kind '%s'", track.Kind)
	}

	return mapper.Map(result, track)
}

// normalizeResultTags rebuilds every tag table of the result with
// lowercased keys. This runs exactly once, before mapper dispatch, so
// mappers perform plain map lookups and never case-fold themselves.
func normalizeResultTags(result *probe.ProbeResult) {
	if result.Format != nil {
		result.Format.Tags = lowercaseTagKeys(result.Format.Tags)
	}

	for i := range result.Streams {
		result.Streams[i].Tags = lowercaseTagKeys(result.Streams[i].Tags)
	}
}

// lowercaseTagKeys visits keys in sorted order so a case-only key
// collision resolves deterministically (first visited key wins) rather
// than depending on map iteration order.
func lowercaseTagKeys(tags map[string]string) map[string]string {
	if tags == nil {
		return nil
	}

	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	normalized := make(map[string]string, len(tags))
	for _, key := range keys {
		folded := strings.ToLower(key)
		if _, exists := normalized[folded]; !exists {
			normalized[folded] = tags[key]
		}
	}

	return normalized
}
