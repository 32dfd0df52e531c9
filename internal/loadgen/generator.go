package loadgen

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/okian/flip7/internal/domain/scoring"
	"github.com/okian/flip7/pkg/logger"
)

var allModes = []scoring.Mode{scoring.Original, scoring.Vengeance, scoring.Combo}

// generateRounds deals cfg.Rounds hands spread over cfg.Players players.
// Every hand could have been dealt from its mode's deck.
func generateRounds(ctx context.Context, cfg *Config, stats *Stats) ([]Round, error) {
	logger.Get().Info(ctx, "generating rounds",
		logger.Int("rounds", cfg.Rounds),
		logger.Int("players", cfg.Players))

	modes := allModes
	if cfg.Mode != "" {
		m, err := scoring.ParseMode(cfg.Mode)
		if err != nil {
			return nil, err
		}
		modes = []scoring.Mode{m}
	}

	players := make([]string, max(cfg.Players, 1))
	for i := range players {
		players[i] = "player-" + uuid.New().String()
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // load data, not secrets
	rounds := make([]Round, cfg.Rounds)
	for i := range rounds {
		if i%1024 == 0 && ctx.Err() != nil {
			return nil, fmt.Errorf("context cancelled during round generation: %w", ctx.Err())
		}
		mode := modes[rng.IntN(len(modes))]
		hand := dealHand(rng, scoring.RulesFor(mode))
		rounds[i] = Round{
			SubmissionID: uuid.New().String(),
			PlayerID:     players[i%len(players)],
			Mode:         mode.String(),
			Numbers:      hand.Numbers,
			Modifiers:    hand.Modifiers,
			Doubled:      hand.Doubled,
			Halved:       hand.Halved,
			TS:           time.Now().UTC().Format(time.RFC3339),
		}
	}

	stats.RoundsGenerated = len(rounds)
	logger.Get().Info(ctx, "generated rounds successfully", logger.Int("count", len(rounds)))
	return rounds, nil
}

// dealHand draws number cards from a shuffled copy of the deck, so per-value
// copy limits hold, and picks each modifier and toggle at random.
func dealHand(rng *rand.Rand, rules scoring.Rules) scoring.Hand {
	var deck []int
	for _, v := range rules.NumberCards {
		for range rules.Copies(v) {
			deck = append(deck, v)
		}
	}
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	n := rng.IntN(min(maxDrawn, len(deck)) + 1)
	hand := scoring.Hand{Numbers: append([]int{}, deck[:n]...)}

	for _, m := range rules.ModifierCards {
		if rng.IntN(modifierOdds) == 0 {
			hand.Modifiers = append(hand.Modifiers, m)
		}
	}
	if hand.Modifiers == nil {
		hand.Modifiers = []int{}
	}
	hand.Doubled = rules.AllowDouble && rng.IntN(toggleOdds) == 0
	hand.Halved = rules.AllowHalve && rng.IntN(toggleOdds) == 0
	return hand
}
