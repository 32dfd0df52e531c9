package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/okian/flip7/internal/adapters/repository"
	"github.com/okian/flip7/internal/domain/model"
	"github.com/okian/flip7/internal/domain/scoring"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open("  "); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestSaveGetRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	submitted := time.Date(2026, time.April, 11, 19, 30, 0, 0, time.UTC)
	sub := model.Submission{
		ID:          "round-1",
		PlayerID:    "ana",
		Mode:        scoring.Combo,
		Hand:        scoring.Hand{Numbers: []int{13, 13, 0, 5}, Modifiers: []int{4, -2}, Doubled: true, Halved: true},
		SubmittedAt: submitted,
	}
	in := sub.Scored(scoring.Calculate(sub.Mode, sub.Hand), submitted.Add(time.Second))
	if err := store.Save(context.Background(), in); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Get(context.Background(), "round-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Mode != scoring.Combo {
		t.Fatalf("mode = %v, want COMBO", got.Mode)
	}
	if len(got.Hand.Numbers) != 4 || got.Hand.Numbers[0] != 13 {
		t.Fatalf("numbers = %v", got.Hand.Numbers)
	}
	if len(got.Hand.Modifiers) != 2 || got.Hand.Modifiers[1] != -2 {
		t.Fatalf("modifiers = %v", got.Hand.Modifiers)
	}
	if !got.Hand.Doubled || !got.Hand.Halved {
		t.Fatalf("toggles lost: %+v", got.Hand)
	}
	if got.Result != in.Result {
		t.Fatalf("result = %+v, want %+v", got.Result, in.Result)
	}
	if !got.SubmittedAt.Equal(submitted) || !got.ScoredAt.Equal(in.ScoredAt) {
		t.Fatalf("timestamps = %v / %v", got.SubmittedAt, got.ScoredAt)
	}
}

func TestSaveReturnsAlreadyExistsOnDuplicate(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	in := scoredAt("round-1", "ana", time.Unix(100, 0))
	if err := store.Save(context.Background(), in); err != nil {
		t.Fatalf("save: %v", err)
	}
	err := store.Save(context.Background(), in)
	if !errors.Is(err, repository.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestConcurrentSavesAllPersist(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	const writers, perWriter = 16, 100
	base := time.Date(2026, time.April, 11, 20, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWriter {
				id := fmt.Sprintf("w%02d-%03d", w, i)
				if err := store.Save(context.Background(), scoredAt(id, "ana", base.Add(time.Duration(i)*time.Millisecond))); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent save: %v", err)
	}
	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != writers*perWriter {
		t.Fatalf("count = %d, want %d", n, writers*perWriter)
	}
}

func TestOpenAppliesPragmas(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	var mode string
	if err := store.sqlDB.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("journal_mode = %q, want wal", mode)
	}
	var timeout int
	if err := store.sqlDB.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Fatalf("busy_timeout = %d, want 5000", timeout)
	}
}

func TestGetReturnsNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListByPlayerNewestFirst(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	for _, in := range []model.ScoredSubmission{
		scoredAt("a", "ana", time.Unix(100, 0)),
		scoredAt("b", "ana", time.Unix(300, 0)),
		scoredAt("c", "ana", time.Unix(200, 0)),
		scoredAt("d", "bo", time.Unix(400, 0)),
	} {
		if err := store.Save(ctx, in); err != nil {
			t.Fatalf("save %s: %v", in.ID, err)
		}
	}

	got, err := store.ListByPlayer(ctx, "ana", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Fatalf("unexpected order: %+v", ids(got))
	}

	if _, err := store.ListByPlayer(ctx, "ana", 0); !errors.Is(err, repository.ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 4 {
		t.Fatalf("count = %d, want 4", n)
	}
}

func TestReopenKeepsDataAndSkipsAppliedMigrations(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ledger.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Save(context.Background(), scoredAt("keep", "ana", time.Unix(50, 0))); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	if _, err := second.Get(context.Background(), "keep"); err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
}

func TestApplyMigrationsSkipsEmptyUpSection(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	fsys := fstest.MapFS{
		"0002_noop.sql": {Data: []byte("-- +migrate Up\n\n-- +migrate Down\nDROP TABLE x;\n")},
		"README.md":     {Data: []byte("ignored")},
	}
	if err := applyMigrations(context.Background(), store.sqlDB, fsys); err != nil {
		t.Fatalf("apply: %v", err)
	}
}

func TestExtractUp(t *testing.T) {
	t.Parallel()

	if got := extractUp("CREATE TABLE t (x);"); got != "CREATE TABLE t (x);" {
		t.Fatalf("no markers: %q", got)
	}
	if got := extractUp("-- +migrate Up\nA\n-- +migrate Down\nB"); got != "\nA\n" {
		t.Fatalf("with markers: %q", got)
	}
}

func scoredAt(id, player string, at time.Time) model.ScoredSubmission {
	sub := model.Submission{ID: id, PlayerID: player, Mode: scoring.Original, Hand: scoring.Hand{Numbers: []int{7}}}
	return sub.Scored(scoring.Calculate(sub.Mode, sub.Hand), at)
}

func ids(subs []model.ScoredSubmission) []string {
	out := make([]string, len(subs))
	for i, s := range subs {
		out[i] = s.ID
	}
	return out
}

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "flip7.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
