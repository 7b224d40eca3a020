package scan

import "time"

// Config contains the options which control how the library scanning
// service monitors the file system and processes the files it finds.
type Config struct {
	// The scan service watches the library directory for change events,
	// however a 'force' sync is performed on this interval to protect
	// against the watcher missing events.
	ForceSyncSeconds int `yaml:"force_sync_seconds" env:"LIBRARY_FORCE_SYNC_SECONDS" env-default:"3600"`

	// The path to the directory which the service will monitor
	// for new audio files. Created on startup if missing.
	LibraryPath string `yaml:"path" env:"LIBRARY_PATH" env-required:"true"`

	// An array of regular expressions used to RESTRICT the files processed
	// by this service. If any of the expressions match the name of a
	// discovered file, the file is ignored.
	Blacklist []string `yaml:"blacklist" env:"LIBRARY_BLACKLIST"`

	// A freshly detected file may still be receiving writes (an in-progress
	// download or copy). As there is no reliable way to detect when the
	// writes have finished, the service holds new files until their modtime
	// is at least this far in the past.
	RequiredModTimeAgeSeconds int `yaml:"modtime_threshold_seconds" env:"LIBRARY_MODTIME_THRESHOLD_SECONDS" env-default:"120"`

	// Controls the size of the worker pool which processes discovered
	// files. Each worker may spawn an external prober process, so this
	// should be kept in proportion to the cores available on the host.
	ScanParallelism int `yaml:"parallelism" env:"LIBRARY_SCAN_PARALLELISM" env-default:"2"`
}

func (config *Config) RequiredModTimeAgeDuration() time.Duration {
	return time.Second * time.Duration(config.RequiredModTimeAgeSeconds)
}
