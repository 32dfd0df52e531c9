// Command loadgen drives a running score keeper with generated rounds.
package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/flip7/internal/loadgen"
	"github.com/okian/flip7/pkg/logger"
)

// Default configuration constants.
const (
	defaultRounds      = 10000
	defaultPlayers     = 8
	defaultDuplicates  = 100
	defaultSample      = 500
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultSettle      = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		rounds     = flag.Int("rounds", defaultRounds, "Number of rounds to generate and submit")
		players    = flag.Int("players", defaultPlayers, "Number of players the rounds are spread over")
		mode       = flag.String("mode", "", "ORIGINAL, VENGEANCE or COMBO (default: mix all modes)")
		duplicates = flag.Int("duplicates", defaultDuplicates, "Rounds re-sent with the same submission_id")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle     = flag.Duration("settle", defaultSettle, "How long to wait for rounds to be scored")
		sample     = flag.Int("sample", defaultSample, "Rounds fetched back and checked, 0 for all")
		seed       = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Seed for hand generation")
		outputFile = flag.String("output", "", "Write generated rounds to this JSON file")
		logFile    = flag.String("log", "", "Log file for run output (default: loadgen_TIMESTAMP.log)")
		logFormat  = flag.String("log-format", logger.FormatConsole, "text, json or console")
		verbose    = flag.Bool("verbose", false, "Log submission progress")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadgen.ShowHelp()
		return
	}

	closer, err := loadgen.SetupLogging(*logFile, *logFormat)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &loadgen.Config{
		BaseURL:    *baseURL,
		Rounds:     *rounds,
		Players:    *players,
		Mode:       *mode,
		Duplicates: *duplicates,
		Workers:    *workers,
		Timeout:    *timeout,
		Settle:     *settle,
		Sample:     *sample,
		Seed:       *seed,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		LogFormat:  *logFormat,
		Verbose:    *verbose,
	}

	if _, err := loadgen.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "load run failed", logger.Error(err))
		closer.Close()
		os.Exit(1) //nolint:gocritic // closer released above
	}
}
