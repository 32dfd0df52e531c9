// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/flip7/internal/domain/scoring"
)

// Submission is one player's hand handed in for scoring.
type Submission struct {
	ID          string       // unique id for idempotency
	PlayerID    string       // player the hand belongs to
	Mode        scoring.Mode // rule variant in play
	Hand        scoring.Hand // selected cards and toggles
	SubmittedAt time.Time    // when the client submitted the hand
}

// Input returns the scoring input for the submission.
func (s Submission) Input() scoring.Input {
	return scoring.Input{Mode: s.Mode, Hand: s.Hand}
}

// Scored attaches a result to the submission.
func (s Submission) Scored(res scoring.Result, at time.Time) ScoredSubmission {
	return ScoredSubmission{Submission: s, Result: res, ScoredAt: at}
}

// ScoredSubmission is a submission with its computed round score.
type ScoredSubmission struct {
	Submission
	Result   scoring.Result
	ScoredAt time.Time
}
