package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okian/flip7/internal/domain/model"
	"github.com/okian/flip7/pkg/metrics"
)

// MemoryStore is an in-process Store. Contents are lost on restart.
type MemoryStore struct {
	mu              sync.RWMutex
	byID            map[string]model.ScoredSubmission
	byPlayer        map[string][]string
	closed          bool
	initialCapacity int
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{}
	for _, opt := range opts {
		opt(s)
	}
	s.byID = make(map[string]model.ScoredSubmission, s.initialCapacity)
	s.byPlayer = make(map[string][]string)
	return s
}

// Save records a scored submission.
func (s *MemoryStore) Save(ctx context.Context, sub model.ScoredSubmission) error { //nolint:gocritic // hugeParam: value semantics
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("save", float64(time.Since(start).Microseconds())/1000) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(sub.ID) == "" {
		metrics.RecordStoreError("save")
		return fmt.Errorf("%w: id is required", ErrInvalidSubmission)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if _, ok := s.byID[sub.ID]; ok {
		metrics.RecordStoreError("save")
		return ErrAlreadyExists
	}
	s.byID[sub.ID] = clone(sub)
	s.byPlayer[sub.PlayerID] = append(s.byPlayer[sub.PlayerID], sub.ID)
	metrics.UpdateStoreRecords(len(s.byID))
	return nil
}

// Get returns a stored submission by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (model.ScoredSubmission, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("get", float64(time.Since(start).Microseconds())/1000) }()

	if err := ctx.Err(); err != nil {
		return model.ScoredSubmission{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return model.ScoredSubmission{}, ErrClosed
	}
	sub, ok := s.byID[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.ScoredSubmission{}, ErrNotFound
	}
	return clone(sub), nil
}

// ListByPlayer returns the newest submissions for a player first.
func (s *MemoryStore) ListByPlayer(ctx context.Context, playerID string, limit int) ([]model.ScoredSubmission, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("list", float64(time.Since(start).Microseconds())/1000) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	ids := s.byPlayer[playerID]
	out := make([]model.ScoredSubmission, 0, len(ids))
	for _, id := range ids {
		out = append(out, clone(s.byID[id]))
	}
	closed := s.closed
	s.mu.RUnlock()

	if closed {
		return nil, ErrClosed
	}
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of stored submissions.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

// Close drops the contents. Further calls return ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.byID = map[string]model.ScoredSubmission{}
	s.byPlayer = map[string][]string{}
	return nil
}

// sortNewestFirst orders by ScoredAt desc, then ID asc.
func sortNewestFirst(subs []model.ScoredSubmission) {
	slices.SortStableFunc(subs, func(a, b model.ScoredSubmission) int {
		if c := b.ScoredAt.Compare(a.ScoredAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func clone(s model.ScoredSubmission) model.ScoredSubmission { //nolint:gocritic // hugeParam: returns a copy
	s.Hand.Numbers = slices.Clone(s.Hand.Numbers)
	s.Hand.Modifiers = slices.Clone(s.Hand.Modifiers)
	return s
}

var _ Store = (*MemoryStore)(nil)
