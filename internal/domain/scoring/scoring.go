// Package scoring computes Flip 7 round scores from a selected hand.
//
// Calculate is the whole rule engine: it is pure, never fails and performs
// no range validation. Catalog checks live in Validate and are applied only
// by callers that collect hands from users.
package scoring

import (
	"context"
	"fmt"
	"strconv"
)

// Hand is the round input for one player.
type Hand struct {
	// Numbers is a multiset; duplicates count toward the sum but only once
	// toward the distinct count.
	Numbers []int `json:"numbers"`
	// Modifiers are flat signed cards added after the multiplier/divisor.
	Modifiers []int `json:"modifiers"`
	Doubled   bool  `json:"doubled"`
	Halved    bool  `json:"halved"`
}

// Result is the scored round.
type Result struct {
	Total        int    `json:"total"`
	BonusDisplay string `json:"bonus_display"`
	IsFlip7      bool   `json:"is_flip7"`
	Breakdown    string `json:"breakdown"`

	// Diagnostics, not used for control flow.
	Sum           int  `json:"sum"`
	DistinctCount int  `json:"distinct_count"`
	ModifierSum   int  `json:"modifier_sum"`
	Wiped         bool `json:"wiped"`
}

// Calculate scores hand under mode.
func Calculate(mode Mode, hand Hand) Result {
	rules := RulesFor(mode)

	sum := 0
	hasZero := false
	distinct := make(map[int]struct{}, len(hand.Numbers))
	for _, n := range hand.Numbers {
		sum += n
		distinct[n] = struct{}{}
		if n == ZeroCard {
			hasZero = true
		}
	}
	isFlip7 := len(distinct) >= FlipThreshold

	score := sum
	wiped := false
	if rules.ZeroWipe && hasZero && !isFlip7 {
		score = 0
		wiped = true
	}

	// Multiplier always precedes divisor.
	if hand.Doubled {
		score *= 2
	}
	if hand.Halved {
		score = floorDiv(score, 2)
	}

	modSum := 0
	for _, m := range hand.Modifiers {
		modSum += m
	}
	score += modSum

	if score < 0 {
		score = 0
	}
	if isFlip7 {
		score += FlipBonus
	}

	return Result{
		Total:         score,
		BonusDisplay:  BonusDisplay(modSum),
		IsFlip7:       isFlip7,
		Breakdown:     "Sum: " + strconv.Itoa(sum),
		Sum:           sum,
		DistinctCount: len(distinct),
		ModifierSum:   modSum,
		Wiped:         wiped,
	}
}

// BonusDisplay renders a modifier sum: "+4", "-6", or "" for zero.
func BonusDisplay(modSum int) string {
	switch {
	case modSum > 0:
		return "+" + strconv.Itoa(modSum)
	case modSum < 0:
		return strconv.Itoa(modSum)
	default:
		return ""
	}
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Input is a hand tagged with the variant it is scored under.
type Input struct {
	Mode Mode
	Hand Hand
}

// Scorer computes a round score from an input.
type Scorer interface {
	// Score computes a result, honoring ctx for cancellation.
	Score(ctx context.Context, in Input) (Result, error)
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithStrictHands makes Score reject hands that could not be dealt from the
// mode's deck.
func WithStrictHands(strict bool) Option {
	return func(e *Engine) {
		e.strict = strict
	}
}

// Engine implements Scorer on top of Calculate.
type Engine struct {
	strict bool
}

// NewEngine creates an engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Strict reports whether catalog validation is enabled.
func (e *Engine) Strict() bool { return e.strict }

// Score computes the result for in.
func (e *Engine) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}
	if e.strict {
		if err := Validate(in.Mode, in.Hand); err != nil {
			return Result{}, err
		}
	}
	return Calculate(in.Mode, in.Hand), nil
}
