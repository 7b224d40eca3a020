package probe

import (
	"context"
	"os/exec"
	"time"

	"github.com/lyra-media/lyra/pkg/logger"
)

var log = logger.Get("Probe")

// DefaultBinary is consulted via the PATH when no explicit prober binary
// path is configured.
const DefaultBinary = "ffprobe"

var probeArgs = []string{"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams"}

// Executor runs the external prober binary against media files, returning
// its raw JSON output. The raw bytes are what the cache persists; decoding
// is left to the consumer so that cached and fresh output follow the same
// code path.
type Executor struct {
	binPath string
	timeout time.Duration
}

func NewExecutor(binPath string, timeout time.Duration) *Executor {
	if binPath == "" {
		binPath = DefaultBinary
	}

	return &Executor{binPath: binPath, timeout: timeout}
}

// Probe runs the prober against the file at the given path and returns its
// raw output. The command is bound to the provided context, additionally
// limited by the executor timeout; a command which cannot be started, is
// cancelled, or exits abnormally is reported as an ExecutionError.
func (executor *Executor) Probe(ctx context.Context, path string) ([]byte, error) {
	probeCtx, cancel := context.WithTimeout(ctx, executor.timeout)
	defer cancel()

	args := append(append([]string{}, probeArgs...), path)

	log.Emit(logger.DEBUG, "Probing file %v\n", path)
	output, err := exec.CommandContext(probeCtx, executor.binPath, args...).Output()
	if err != nil {
		return nil, &ExecutionError{Path: path, Err: err}
	}

	return output, nil
}
