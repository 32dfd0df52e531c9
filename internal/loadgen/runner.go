package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/flip7/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// ErrNoRounds is returned when there is nothing to submit or save.
var ErrNoRounds = errors.New("no rounds")

// Run executes a complete load run and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting flip7 load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("rounds", cfg.Rounds),
		logger.Int("players", cfg.Players),
		logger.String("mode", cfg.Mode),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Duration("settle", cfg.Settle),
		logger.Bool("verbose", cfg.Verbose))

	if cfg.Rounds <= 0 {
		return stats, fmt.Errorf("%w: rounds must be positive", ErrNoRounds)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	client := newHTTPClient(cfg.Timeout)

	if err := checkServiceHealth(ctx, cfg, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	rounds, err := generateRounds(ctx, cfg, stats)
	if err != nil {
		return stats, fmt.Errorf("round generation failed: %w", err)
	}

	accepted := submitRounds(ctx, cfg, client, rounds, stats)

	if err := verifyRounds(ctx, cfg, client, accepted, stats); err != nil {
		return stats, fmt.Errorf("score verification failed: %w", err)
	}

	if len(accepted) > 0 {
		if err := verifyLedger(ctx, cfg, client, accepted[0].PlayerID, stats); err != nil {
			return stats, fmt.Errorf("ledger verification failed: %w", err)
		}
	}

	if cfg.OutputFile != "" {
		if err := saveRoundsToFile(ctx, cfg.OutputFile, rounds); err != nil {
			logger.Get().Warn(ctx, "failed to save rounds to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	logger.Get().Info(ctx, "load run completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, cfg *Config, client *HTTPClient) error {
	logger.Get().Info(ctx, "checking service health")

	resp, err := client.Get(ctx, cfg.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(ctx, "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveRoundsToFile writes the generated rounds as a JSON array.
func saveRoundsToFile(ctx context.Context, filename string, rounds []Round) error {
	if len(rounds) == 0 {
		return ErrNoRounds
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(ctx, "failed to close file", logger.Error(err))
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rounds); err != nil {
		return fmt.Errorf("failed to write rounds: %w", err)
	}

	logger.Get().Info(ctx, "rounds saved to file", logger.String("filename", filename))
	return nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var acceptRate, roundsPerSecond float64

	if stats.RoundsSubmitted > 0 {
		acceptRate = float64(stats.RoundsAccepted) / float64(stats.RoundsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		roundsPerSecond = float64(stats.RoundsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("roundsGenerated", stats.RoundsGenerated),
		logger.Int("roundsSubmitted", stats.RoundsSubmitted),
		logger.Int("roundsAccepted", stats.RoundsAccepted),
		logger.Int("roundsDuplicate", stats.RoundsDuplicate),
		logger.Int("roundsRejected", stats.RoundsRejected),
		logger.Int("roundsFailed", stats.RoundsFailed),
		logger.Int("roundsVerified", stats.RoundsVerified),
		logger.Int("roundsMissing", stats.RoundsMissing),
		logger.Int("ledgerEntries", stats.LedgerEntries),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("roundsPerSecond", roundsPerSecond))
}
