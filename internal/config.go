package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/lyra-media/lyra/internal/api"
	"github.com/lyra-media/lyra/internal/database"
	"github.com/lyra-media/lyra/internal/scan"
	"github.com/mitchellh/go-homedir"
)

// LyraConfig is the struct used to contain the
// various user config supplied by file, or
// manually inside the code.
type LyraConfig struct {
	Library      scan.Config             `yaml:"library" env-required:"true"`
	Media        MediaConfig             `yaml:"media"`
	Database     database.DatabaseConfig `yaml:"database" env-required:"true"`
	RestConfig   api.RestConfig          `yaml:"api"`
	CacheDirPath string                  `yaml:"cache_dir" env:"CACHE_DIR"`
}

// MediaConfig is a subset of the configuration that focuses on the
// probing of media files found in the library.
type MediaConfig struct {
	FfprobeBinPath      string `yaml:"ffprobe_binary" env:"FFPROBE_BINARY" env-default:"/usr/bin/ffprobe"`
	ProbeTimeoutSeconds int    `yaml:"probe_timeout_seconds" env:"PROBE_TIMEOUT_SECONDS" env-default:"15"`
}

func (config *MediaConfig) ProbeTimeout() time.Duration {
	return time.Duration(config.ProbeTimeoutSeconds) * time.Second
}

// Loads a configuration file formatted in YAML in to a
// LyraConfig struct ready to be passed to Lyra
func (config *LyraConfig) LoadFromFile(configPath string) error {
	err := cleanenv.ReadConfig(configPath, config)
	if err != nil {
		return fmt.Errorf("failed to load configuration - %v", err.Error())
	}

	return config.expandUserPaths()
}

// expandUserPaths expands a leading tilde in the path-like config values,
// as these commonly appear in hand-written config files.
func (config *LyraConfig) expandUserPaths() error {
	paths := []*string{&config.Library.LibraryPath, &config.Media.FfprobeBinPath, &config.CacheDirPath}
	for _, path := range paths {
		expanded, err := homedir.Expand(*path)
		if err != nil {
			return fmt.Errorf("failed to expand configured path '%s' - %v", *path, err.Error())
		}

		*path = expanded
	}

	return nil
}

// getCacheDir will return the directory path used for storing cache information. It will first look to
// in the config for a value, but if none is found, a default value will be returned. If the default
// cannot be derived due to an error, a panic will occur.
func (config *LyraConfig) getCacheDir() string {
	if config.CacheDirPath != "" {
		return filepath.Join(config.CacheDirPath, LYRA_USER_DIR_SUFFIX)
	}

	// Derive default
	dir, err := os.UserCacheDir()
	if err != nil {
		panic(fmt.Sprintf("FAILURE to derive user cache dir %s", err))
	}

	return filepath.Join(dir, LYRA_USER_DIR_SUFFIX)
}
