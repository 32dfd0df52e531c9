// Package repository defines the submission ledger interface and errors.
package repository

import (
	"context"

	"github.com/okian/flip7/internal/domain/model"
)

// Store persists scored submissions. It is a ledger of individual rounds and
// never aggregates totals across rounds.
type Store interface {
	// Save records a scored submission. Returns ErrAlreadyExists when the
	// ID is already stored.
	Save(ctx context.Context, s model.ScoredSubmission) error

	// Get returns a stored submission by ID or ErrNotFound.
	Get(ctx context.Context, id string) (model.ScoredSubmission, error)

	// ListByPlayer returns up to limit submissions for a player, newest first.
	// Returns ErrInvalidLimit when limit is not positive.
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]model.ScoredSubmission, error)

	// Count returns the number of stored submissions.
	Count(ctx context.Context) (int, error)

	Close() error
}
