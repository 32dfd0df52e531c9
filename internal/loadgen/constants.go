package loadgen

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Submission retry constants.
const (
	maxRetries     = 3
	retryBackoff   = 50 * time.Millisecond
	reportInterval = time.Second
)

// Verification constants.
const (
	PollInterval         = 100 * time.Millisecond
	PercentageMultiplier = 100
	ledgerLimit          = 100
)

// Hand generation constants.
const (
	maxDrawn      = 9 // upper bound on number cards in one hand
	modifierOdds  = 4 // each modifier is held with probability 1/modifierOdds
	toggleOdds    = 5
	maxSampleShow = 5
)
