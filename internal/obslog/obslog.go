// Package obslog sets up the run's debug-level log file, tagged with a
// per-invocation run ID so concurrent invocations sharing a working
// directory don't interleave indistinguishably.
package obslog

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LogFileName is the fixed name of the debug log written to the working
// directory, per the external-interfaces contract.
const LogFileName = "example.log"

// New opens LogFileName in the working directory and returns a
// zerolog.Logger writing debug-level JSON lines to it, along with the
// run ID it was tagged with and a closer the caller must defer.
func New() (zerolog.Logger, string, io.Closer, error) {
	f, err := os.OpenFile(LogFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Logger{}, "", nil, err
	}
	runID := uuid.NewString()
	logger := zerolog.New(f).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Str("run_id", runID).
		Logger()
	return logger, runID, f, nil
}
