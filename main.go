package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/lyra-media/lyra/internal"
	"github.com/lyra-media/lyra/pkg/logger"
)

var log = logger.Get("Main")

// main is the entry point to the program; the users Lyra configuration
// is loaded from their config directory (or the path provided via the
// command line), and then control is handed over to the Lyra runtime.
func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to the YAML configuration file")
	logLevel := flag.String("log-level", "info", "minimum log level to emit (verbose, debug, info, warning, error)")
	flag.Parse()

	if err := applyLogLevel(*logLevel); err != nil {
		log.Emit(logger.FATAL, "%s\n", err.Error())
		os.Exit(1)
	}

	config := internal.LyraConfig{}
	if err := config.LoadFromFile(*configPath); err != nil {
		log.Emit(logger.FATAL, "Failed to load configuration from '%s': %s\n", *configPath, err.Error())
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := internal.New(config).Run(ctx); err != nil {
		log.Emit(logger.FATAL, "Lyra exited with error: %s\n", err.Error())
		os.Exit(1)
	}

	log.Emit(logger.STOP, "Lyra shutdown complete\n")
}

func applyLogLevel(level string) error {
	levels := map[string]logger.LogLevel{
		"verbose": logger.LevelVerbose,
		"debug":   logger.LevelDebug,
		"info":    logger.LevelInfo,
		"warning": logger.LevelWarning,
		"error":   logger.LevelError,
	}

	parsed, ok := levels[strings.ToLower(level)]
	if !ok {
		return fmt.Errorf("log level '%s' is not recognized", level)
	}

	logger.SetMinLoggingLevel(parsed)
	return nil
}

// defaultConfigPath derives the expected location of the Lyra config file
// inside the users config directory.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}

	return filepath.Join(dir, "lyra", "config.yaml")
}
