package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/flip7/pkg/logger"
)

// HTTPClient wraps http.Client with context-aware helpers.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// getJSON fetches url into v and returns the status code. v is only filled
// on 200.
func (c *HTTPClient) getJSON(ctx context.Context, url string, v any) (int, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s: %w", url, err)
	}
	return resp.StatusCode, nil
}

type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeDuplicate
	outcomeRejected
	outcomeFailed
)

// submitRounds posts rounds with cfg.Workers concurrent submitters, then
// re-posts the first cfg.Duplicates rounds. It returns the rounds the
// service accepted.
func submitRounds(ctx context.Context, cfg *Config, client *HTTPClient, rounds []Round, stats *Stats) []Round {
	dups := min(cfg.Duplicates, len(rounds))
	total := len(rounds) + dups
	logger.Get().Info(ctx, "submitting rounds",
		logger.Int("rounds", len(rounds)),
		logger.Int("duplicates", dups),
		logger.Int("workers", cfg.Workers))

	url := cfg.BaseURL + "/submissions"

	var (
		submitted, accepted, duplicate, rejected, failed atomic.Int64
		lastReport                                       atomic.Int64
		mu                                               sync.Mutex
		kept                                             = make([]Round, 0, len(rounds))
	)

	type job struct {
		round  Round
		replay bool
	}
	jobs := make(chan job, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					return
				}
				res := submitSingleRound(ctx, client, url, j.round)
				n := submitted.Add(1)
				switch res {
				case outcomeAccepted:
					accepted.Add(1)
					if !j.replay {
						mu.Lock()
						kept = append(kept, j.round)
						mu.Unlock()
					}
				case outcomeDuplicate:
					duplicate.Add(1)
				case outcomeRejected:
					rejected.Add(1)
				case outcomeFailed:
					failed.Add(1)
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if cfg.Verbose && now-last >= int64(reportInterval) && lastReport.CompareAndSwap(last, now) {
					logger.Get().Info(ctx, "progress",
						logger.Int("submitted", int(n)),
						logger.Int("total", total),
						logger.Int("accepted", int(accepted.Load())),
						logger.Int("duplicate", int(duplicate.Load())),
						logger.Int("failed", int(failed.Load())))
				}
			}
		}()
	}

	send := func(j job) bool {
		select {
		case <-ctx.Done():
			return false
		case jobs <- j:
			return true
		}
	}
	for _, r := range rounds {
		if !send(job{round: r}) {
			break
		}
	}
	close(jobs)
	wg.Wait()

	// Replays go out after the originals have been acknowledged so the
	// service sees them as duplicates.
	for _, r := range rounds[:dups] {
		if ctx.Err() != nil {
			break
		}
		switch submitSingleRound(ctx, client, url, r) {
		case outcomeAccepted:
			accepted.Add(1)
		case outcomeDuplicate:
			duplicate.Add(1)
		case outcomeRejected:
			rejected.Add(1)
		case outcomeFailed:
			failed.Add(1)
		}
		submitted.Add(1)
	}

	stats.RoundsSubmitted = int(submitted.Load())
	stats.RoundsAccepted = int(accepted.Load())
	stats.RoundsDuplicate = int(duplicate.Load())
	stats.RoundsRejected = int(rejected.Load())
	stats.RoundsFailed = int(failed.Load())

	logger.Get().Info(ctx, "round submission completed",
		logger.Int("accepted", stats.RoundsAccepted),
		logger.Int("duplicate", stats.RoundsDuplicate),
		logger.Int("rejected", stats.RoundsRejected),
		logger.Int("failed", stats.RoundsFailed))
	return kept
}

// submitSingleRound posts one round, backing off and retrying while the
// service reports a full queue.
func submitSingleRound(ctx context.Context, client *HTTPClient, url string, round Round) outcome {
	backoff := retryBackoff
	for attempt := 0; ; attempt++ {
		resp, err := client.Post(ctx, url, round)
		if err != nil {
			return outcomeFailed
		}
		var ack AckResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&ack)
		_ = resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusAccepted:
			return outcomeAccepted
		case http.StatusOK:
			if decodeErr == nil && !ack.Duplicate {
				return outcomeAccepted
			}
			return outcomeDuplicate
		case http.StatusTooManyRequests:
			if attempt >= maxRetries {
				return outcomeRejected
			}
			select {
			case <-ctx.Done():
				return outcomeFailed
			case <-time.After(backoff):
			}
			backoff *= 2
		default:
			return outcomeFailed
		}
	}
}
