// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	submissionqueue "github.com/okian/flip7/internal/adapters/mq/queue"
	workerpool "github.com/okian/flip7/internal/adapters/mq/worker"
	"github.com/okian/flip7/internal/adapters/repository"
	"github.com/okian/flip7/internal/adapters/repository/sqlite"
	"github.com/okian/flip7/internal/domain/dedupe"
	"github.com/okian/flip7/internal/domain/model"
	"github.com/okian/flip7/internal/domain/scoring"
	"github.com/okian/flip7/pkg/logger"
	"github.com/okian/flip7/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

// ErrNotStarted is returned by read operations before Start.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for the score keeper.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	ownsStore  bool
	deduper    dedupe.Deduper
	queue      *submissionqueue.InMemoryQueue
	engine     *scoring.Engine
	workerPool *workerpool.Pool

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	dbPath      string
	strict      bool

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the submission queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache. Zero keeps every ID.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects the submission ledger. The caller keeps ownership and
// closes it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDBPath makes Start open a SQLite ledger at path. Ignored when a store
// is injected with WithStore.
func WithDBPath(path string) Option {
	return func(s *Service) {
		s.dbPath = strings.TrimSpace(path)
	}
}

// WithStrictHands rejects hands that could not be dealt from the mode's deck.
func WithStrictHands(strict bool) Option {
	return func(s *Service) {
		s.strict = strict
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   10_000,
		dedupeSize:  100_000,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = scoring.NewEngine(scoring.WithStrictHands(s.strict))
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting score keeper service...")

	if s.store == nil {
		if s.dbPath != "" {
			store, err := sqlite.Open(s.dbPath)
			if err != nil {
				return fmt.Errorf("open submission store: %w", err)
			}
			s.store = store
			s.logger.Info(ctx, "using sqlite store", logger.String("path", s.dbPath))
		} else {
			s.store = repository.NewMemoryStore(repository.WithInitialCapacity(s.queueSize))
			s.logger.Info(ctx, "using in-memory store")
		}
		s.ownsStore = true
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = submissionqueue.NewInMemoryQueue(submissionqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.queue, s.engine, s.store)
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "score keeper service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("strictHands", s.strict),
	)
	return nil
}

// Stop closes intake, lets the workers drain queued submissions and closes
// the store when the service opened it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping score keeper service...")

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			s.logger.Error(ctx, "error closing store", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(ctx, "score keeper service stopped")
}

// Calculate scores a hand synchronously.
func (s *Service) Calculate(ctx context.Context, mode scoring.Mode, hand scoring.Hand) (scoring.Result, error) {
	start := time.Now()
	res, err := s.engine.Score(ctx, scoring.Input{Mode: mode, Hand: hand})
	if err != nil {
		metrics.RecordValidationFailure(failureReason(err))
		return scoring.Result{}, err
	}
	metrics.RecordCalculationLatency(float64(time.Since(start).Microseconds()) / 1000)
	metrics.RecordCalculation(mode.String(), res.Total, res.IsFlip7, res.Wiped)
	return res, nil
}

// CheckHand reports why a hand cannot be accepted. Unknown modes are always
// rejected; deck rules only apply in strict mode.
func (s *Service) CheckHand(mode scoring.Mode, hand scoring.Hand) error {
	if !mode.Valid() {
		metrics.RecordValidationFailure("unknown_mode")
		return fmt.Errorf("%w: %d", scoring.ErrUnknownMode, int(mode))
	}
	if !s.strict {
		return nil
	}
	if err := scoring.Validate(mode, hand); err != nil {
		metrics.RecordValidationFailure(failureReason(err))
		return err
	}
	return nil
}

// Modes lists the rule table of every mode.
func (s *Service) Modes() []scoring.Rules {
	return scoring.AllRules()
}

// SeenAndRecord atomically checks if a submission ID was seen and records it
// if not. IDs already in the ledger count as seen, so replays after a restart
// or an eviction from the in-memory set are still duplicates.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	d := s.dedupe()
	if d == nil {
		return false
	}
	seen := d.SeenAndRecord(ctx, id)
	if !seen && s.inLedger(ctx, id) {
		seen = true
	}
	if seen {
		metrics.RecordSubmissionDuplicate()
	}
	return seen
}

// inLedger reports whether id was already scored. Lookup errors other than
// ErrNotFound are logged and treated as unseen; the worker still refuses to
// store the same ID twice.
func (s *Service) inLedger(ctx context.Context, id string) bool {
	store, err := s.ledger()
	if err != nil {
		return false
	}
	_, err = store.Get(ctx, id)
	switch {
	case err == nil:
		return true
	case errors.Is(err, repository.ErrNotFound):
		return false
	default:
		s.logger.Warn(ctx, "ledger lookup failed", logger.String("submission_id", id), logger.Error(err))
		return false
	}
}

// Unrecord removes a submission ID from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	if d := s.dedupe(); d != nil {
		d.Unrecord(ctx, id)
	}
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	d := s.dedupe()
	if d == nil {
		return 0
	}
	return d.Size()
}

// Enqueue hands a submission to the workers. Returns false on backpressure
// or when the service is not running.
func (s *Service) Enqueue(ctx context.Context, sub model.Submission) bool { //nolint:gocritic // hugeParam: queued by value
	s.mu.RLock()
	q := s.queue
	started := s.started
	s.mu.RUnlock()

	if !started {
		return false
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}
	if !q.Enqueue(ctx, sub) {
		s.logger.Debug(ctx, "submission rejected by queue", logger.String("submission_id", sub.ID))
		return false
	}
	metrics.RecordSubmissionAccepted()
	return true
}

// Submission returns one scored submission by ID.
func (s *Service) Submission(ctx context.Context, id string) (model.ScoredSubmission, error) {
	store, err := s.ledger()
	if err != nil {
		return model.ScoredSubmission{}, err
	}
	return store.Get(ctx, id)
}

// Submissions returns a player's most recent scored submissions.
func (s *Service) Submissions(ctx context.Context, playerID string, limit int) ([]model.ScoredSubmission, error) {
	store, err := s.ledger()
	if err != nil {
		return nil, err
	}
	return store.ListByPlayer(ctx, playerID, limit)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"strictHands": s.strict,
	}

	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["queueCapacity"] = s.queue.Capacity()
		stats["seenSubmissions"] = s.deduper.Size()
		stats["scored"] = s.workerPool.Processed()
		stats["failed"] = s.workerPool.Failed()
		if n, err := s.store.Count(ctx); err == nil {
			stats["storedSubmissions"] = n
			metrics.UpdateStoreRecords(n)
		}
		metrics.UpdateWorkerCount(s.workerPool.Size())
	}
	return stats
}

func (s *Service) dedupe() dedupe.Deduper {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deduper
}

func (s *Service) ledger() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started || s.store == nil {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, scoring.ErrUnknownMode):
		return "unknown_mode"
	case errors.Is(err, scoring.ErrCardNotInDeck):
		return "card_not_in_deck"
	case errors.Is(err, scoring.ErrTooManyCopies):
		return "too_many_copies"
	case errors.Is(err, scoring.ErrModifierNotInDeck):
		return "modifier_not_in_deck"
	case errors.Is(err, scoring.ErrDuplicateModifiers):
		return "duplicate_modifiers"
	case errors.Is(err, scoring.ErrToggleUnavailable):
		return "toggle_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "context_cancelled"
	default:
		return "other"
	}
}
