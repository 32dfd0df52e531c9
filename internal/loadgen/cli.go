package loadgen

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/flip7/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging initializes the global logger to write to stdout and a log
// file. If logFile is empty, a timestamped filename is generated. The
// returned closer releases the file.
func SetupLogging(logFile, format string) (io.Closer, error) {
	if logFile == "" {
		logFile = "loadgen_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithFormat(format), logger.WithWriter(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file, nil
}

// ShowHelp prints usage information for the load generator.
func ShowHelp() {
	os.Stdout.WriteString(`Flip 7 Load Generator
=====================

Submits generated rounds to a running score keeper, then fetches them back
and checks every recorded score against the local engine.

Usage:
  go run ./cmd/loadgen [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -rounds int
        Number of rounds to generate and submit (default 10000)
  -players int
        Number of players the rounds are spread over (default 8)
  -mode string
        ORIGINAL, VENGEANCE or COMBO (default: mix all modes)
  -duplicates int
        Rounds re-sent with the same submission_id (default 100)
  -workers int
        Number of concurrent submitters (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -settle duration
        How long to wait for rounds to be scored (default 30s)
  -sample int
        Rounds fetched back and checked, 0 for all (default 500)
  -seed uint
        Seed for hand generation (default: current time)
  -output string
        Write generated rounds to this JSON file
  -log string
        Log file for run output (default: loadgen_TIMESTAMP.log)
  -log-format string
        text, json or console (default "console")
  -verbose
        Log submission progress
  -help
        Show this help message

Examples:
  # Mixed modes with default settings
  go run ./cmd/loadgen

  # Vengeance only, more pressure
  go run ./cmd/loadgen -mode vengeance -rounds 50000 -workers 32
`)
}
