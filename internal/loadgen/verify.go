package loadgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/flip7/internal/domain/scoring"
	"github.com/okian/flip7/pkg/logger"
)

// ErrScoreMismatch is returned when the service recorded a score that
// differs from the local engine.
var ErrScoreMismatch = errors.New("recorded score does not match local calculation")

// verifyRounds fetches the sampled rounds back, waiting up to cfg.Settle for
// the workers to score them, and compares each result with Calculate.
func verifyRounds(ctx context.Context, cfg *Config, client *HTTPClient, rounds []Round, stats *Stats) error {
	sample := rounds
	if cfg.Sample > 0 && cfg.Sample < len(rounds) {
		sample = rounds[:cfg.Sample]
	}
	logger.Get().Info(ctx, "verifying scored rounds", logger.Int("sample", len(sample)))

	deadline := time.Now().Add(cfg.Settle)
	var mismatched []string

	for _, r := range sample {
		got, ok, err := waitForRound(ctx, client, cfg.BaseURL, r.SubmissionID, deadline)
		if err != nil {
			return err
		}
		if !ok {
			stats.RoundsMissing++
			continue
		}
		stats.RoundsVerified++

		mode, err := scoring.ParseMode(r.Mode)
		if err != nil {
			return err
		}
		want := scoring.Calculate(mode, r.Hand())
		if got.Result.Total != want.Total || got.Result.IsFlip7 != want.IsFlip7 ||
			got.Result.BonusDisplay != want.BonusDisplay || got.Result.Breakdown != want.Breakdown {
			stats.Mismatches++
			mismatched = append(mismatched, r.SubmissionID)
			logger.Get().Warn(ctx, "score mismatch",
				logger.String("submission_id", r.SubmissionID),
				logger.String("mode", r.Mode),
				logger.Int("want", want.Total),
				logger.Int("got", got.Result.Total))
		}
	}

	if stats.RoundsMissing > 0 {
		logger.Get().Warn(ctx, "rounds not scored before settle timeout",
			logger.Int("missing", stats.RoundsMissing),
			logger.Duration("settle", cfg.Settle))
	}
	if len(mismatched) > 0 {
		return fmt.Errorf("%w: %d of %d rounds (first %s)",
			ErrScoreMismatch, len(mismatched), stats.RoundsVerified, mismatched[0])
	}
	logger.Get().Info(ctx, "scores verified", logger.Int("verified", stats.RoundsVerified))
	return nil
}

// waitForRound polls GET /submissions/{id} until it is found or deadline
// passes.
func waitForRound(ctx context.Context, client *HTTPClient, baseURL, id string, deadline time.Time) (ScoredRound, bool, error) {
	endpoint := baseURL + "/submissions/" + url.PathEscape(id)
	for {
		var got ScoredRound
		status, err := client.getJSON(ctx, endpoint, &got)
		if err != nil {
			return ScoredRound{}, false, err
		}
		switch status {
		case http.StatusOK:
			return got, true, nil
		case http.StatusNotFound:
		default:
			return ScoredRound{}, false, fmt.Errorf("fetch %s: unexpected status %d", id, status)
		}

		if time.Now().After(deadline) {
			return ScoredRound{}, false, nil
		}
		select {
		case <-ctx.Done():
			return ScoredRound{}, false, ctx.Err()
		case <-time.After(PollInterval):
		}
	}
}

// verifyLedger checks that a player's history comes back newest first and
// only holds that player's rounds.
func verifyLedger(ctx context.Context, cfg *Config, client *HTTPClient, playerID string, stats *Stats) error {
	q := url.Values{}
	q.Set("player", playerID)
	q.Set("limit", strconv.Itoa(ledgerLimit))

	var entries []ScoredRound
	status, err := client.getJSON(ctx, cfg.BaseURL+"/submissions?"+q.Encode(), &entries)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("list submissions for %s: unexpected status %d", playerID, status)
	}
	stats.LedgerEntries = len(entries)

	for i, e := range entries {
		if e.PlayerID != playerID {
			return fmt.Errorf("ledger for %s holds round %s of %s", playerID, e.SubmissionID, e.PlayerID)
		}
		if i > 0 && e.ScoredAt.After(entries[i-1].ScoredAt) {
			return fmt.Errorf("ledger for %s not newest first at entry %d", playerID, i)
		}
	}

	shown := min(maxSampleShow, len(entries))
	for _, e := range entries[:shown] {
		logger.Get().Info(ctx, "ledger entry",
			logger.String("player", playerID),
			logger.String("mode", e.Mode.String()),
			logger.Int("total", e.Result.Total),
			logger.String("bonus", e.Result.BonusDisplay),
			logger.Bool("flip7", e.Result.IsFlip7))
	}
	return nil
}
