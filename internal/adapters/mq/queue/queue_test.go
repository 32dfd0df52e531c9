package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/flip7/internal/domain/model"
	"github.com/okian/flip7/internal/domain/scoring"
)

func submission(id string) model.Submission {
	return model.Submission{
		ID:       id,
		PlayerID: "ana",
		Mode:     scoring.Original,
		Hand:     scoring.Hand{Numbers: []int{12, 5}},
	}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if c := q.Capacity(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}

	if !q.Enqueue(ctx, submission("hand-1")) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.ID != "hand-1" {
		t.Errorf("expected hand-1, got %v", got.ID)
	}
	if got.Hand.Numbers[0] != 12 {
		t.Errorf("hand not carried through: %+v", got.Hand)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, submission("hand-1")) || !q.Enqueue(ctx, submission("hand-2")) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, submission("hand-3")) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_DefaultCapacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(0))
	if q.Capacity() != defaultQueueCapacity {
		t.Errorf("expected default capacity, got %d", q.Capacity())
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, submission("hand-1")) {
		t.Error("expected enqueue to fail with cancelled context")
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	const producers = 10
	const perProducer = 100

	var prod sync.WaitGroup
	for i := 0; i < producers; i++ {
		prod.Add(1)
		go func(id int) {
			defer prod.Done()
			for j := 0; j < perProducer; j++ {
				for !q.Enqueue(ctx, submission(fmt.Sprintf("hand-%d-%d", id, j))) {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}

	var mu sync.Mutex
	seen := make(map[string]bool)
	var cons sync.WaitGroup
	for i := 0; i < 4; i++ {
		cons.Add(1)
		go func() {
			defer cons.Done()
			for s := range q.Dequeue(ctx) {
				mu.Lock()
				seen[s.ID] = true
				mu.Unlock()
			}
		}()
	}

	prod.Wait()
	_ = q.Close()
	cons.Wait()

	if len(seen) != producers*perProducer {
		t.Errorf("expected %d distinct submissions, got %d", producers*perProducer, len(seen))
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, submission("hand-1")) || !q.Enqueue(ctx, submission("hand-2")) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, submission("hand-3")) {
		t.Error("expected enqueue to fail after closing")
	}

	// queued items drain before the channel reports closed
	var drained []string
	for s := range q.Dequeue(ctx) {
		drained = append(drained, s.ID)
	}
	if len(drained) != 2 || drained[0] != "hand-1" || drained[1] != "hand-2" {
		t.Errorf("unexpected drain order: %v", drained)
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}
