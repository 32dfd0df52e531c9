// Package loadgen drives a running score keeper with generated rounds and
// checks the scores it records.
package loadgen

import (
	"time"

	"github.com/okian/flip7/internal/domain/scoring"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Rounds     int           // Number of rounds to generate
	Players    int           // Number of distinct players the rounds are spread over
	Mode       string        // Fixed mode tag; empty mixes all modes
	Duplicates int           // Rounds re-sent with the same submission_id
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // How long to wait for rounds to be scored
	Sample     int           // Rounds fetched back and checked; 0 checks all
	Seed       uint64        // Seed for hand generation
	OutputFile string        // Output file for generated rounds
	LogFile    string        // Log file for run output
	LogFormat  string        // text, json or console
	Verbose    bool          // Log progress while submitting
}

// Round is the POST /submissions body.
type Round struct {
	SubmissionID string `json:"submission_id"`
	PlayerID     string `json:"player_id"`
	Mode         string `json:"mode"`
	Numbers      []int  `json:"numbers"`
	Modifiers    []int  `json:"modifiers"`
	Doubled      bool   `json:"doubled"`
	Halved       bool   `json:"halved"`
	TS           string `json:"ts"`
}

// Hand returns the round's cards as the engine sees them.
func (r Round) Hand() scoring.Hand {
	return scoring.Hand{
		Numbers:   r.Numbers,
		Modifiers: r.Modifiers,
		Doubled:   r.Doubled,
		Halved:    r.Halved,
	}
}

// AckResponse is the body returned by POST /submissions.
type AckResponse struct {
	Status       string `json:"status"`
	SubmissionID string `json:"submission_id"`
	Duplicate    bool   `json:"duplicate"`
}

// ScoredRound is the body returned by GET /submissions/{id}.
type ScoredRound struct {
	SubmissionID string         `json:"submission_id"`
	PlayerID     string         `json:"player_id"`
	Mode         scoring.Mode   `json:"mode"`
	Result       scoring.Result `json:"result"`
	ScoredAt     time.Time      `json:"scored_at"`
}

// Stats holds run statistics.
type Stats struct {
	RoundsGenerated int
	RoundsSubmitted int
	RoundsAccepted  int
	RoundsDuplicate int
	RoundsRejected  int
	RoundsFailed    int
	RoundsVerified  int
	RoundsMissing   int
	Mismatches      int
	LedgerEntries   int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
