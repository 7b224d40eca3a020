package probe

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lyra-media/lyra/pkg/logger"
)

const artifactExtension = ".json"

// shardNames holds the sixteen hex characters the cache shards over. Every
// shard directory is created when the cache is constructed, so concurrent
// resolvers never race to create one.
const shardNames = "0123456789abcdef"

// Prober produces raw probe output for a media file. Satisfied by Executor.
type Prober interface {
	Probe(ctx context.Context, path string) ([]byte, error)
}

// Cache stores raw prober output on disk, sharded over sixteen directories
// by the first character of the artifact key. A file is keyed by its path
// and last modification time, so a file modified on disk naturally misses
// the cache and is re-probed.
type Cache struct {
	rootDir string
	prober  Prober
}

// NewCache constructs a probe cache rooted at the given directory, eagerly
// creating the root and all shard directories. Construction is idempotent
// over an existing cache directory.
func NewCache(rootDir string, prober Prober) (*Cache, error) {
	for _, shard := range shardNames {
		if err := os.MkdirAll(filepath.Join(rootDir, string(shard)), 0755); err != nil {
			return nil, fmt.Errorf("failed to create probe cache shard '%c': %w", shard, err)
		}
	}

	return &Cache{rootDir: rootDir, prober: prober}, nil
}

// Resolve returns the decoded probe result for the file at the given path,
// reading the cached artifact if one exists and running the prober (then
// persisting its raw output) if not. A cached artifact which fails to
// decode is removed so a later resolve re-probes the file.
func (cache *Cache) Resolve(ctx context.Context, path string, modtime time.Time) (*ProbeResult, error) {
	artifactPath := cache.ArtifactPath(path, modtime)

	raw, err := os.ReadFile(artifactPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Emit(logger.DEBUG, "No artifact for %s, running prober\n", path)
		raw, err = cache.prober.Probe(ctx, path)
		if err != nil {
			return nil, err
		}

		if err := os.WriteFile(artifactPath, raw, 0644); err != nil {
			return nil, &IOError{Path: path, Err: err}
		}
	} else if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}

	result, err := DecodeProbeResult(raw)
	if err != nil {
		log.Emit(logger.WARNING, "Removing undecodable probe artifact %s: %v\n", artifactPath, err)
		os.Remove(artifactPath)

		return nil, &IOError{Path: path, Err: err}
	}

	return result, nil
}

// ArtifactPath returns the path the artifact for the given file is (or
// would be) stored at.
func (cache *Cache) ArtifactPath(path string, modtime time.Time) string {
	key := cacheKey(path, modtime)

	return filepath.Join(cache.rootDir, key[0:1], key+artifactExtension)
}

func cacheKey(path string, modtime time.Time) string {
	hash := sha1.New()
	io.WriteString(hash, path)
	io.WriteString(hash, strconv.FormatInt(modtime.UnixNano(), 10))

	return hex.EncodeToString(hash.Sum(nil))
}
