package testassessments

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

	"github.com/okian/readiness/pkg/logger"
)

// HTTPClient wraps http.Client with a timeout and context-aware helpers.
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

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

type submitResult int

const (
	resultAccepted submitResult = iota
	resultDuplicate
	resultRejected
	resultFailed
)

// submitAll posts submissions concurrently. Submissions rejected by
// backpressure are counted, not retried.
func submitAll(ctx context.Context, cfg *Config, subs []Submission, stats *Stats) []Submission {
	logger.Get().Info(ctx, "submitting assessments",
		logger.Int("count", len(subs)),
		logger.Int("workers", cfg.Workers),
	)

	client := newHTTPClient(cfg.Timeout)
	url := cfg.BaseURL + "/v1/assessments"

	var (
		submitted, accepted, duplicate, rejected, failed atomic.Int64

		mu   sync.Mutex
		kept []Submission
	)

	jobs := make(chan Submission, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range jobs {
				if ctx.Err() != nil {
					return
				}
				res := submitOne(ctx, client, url, sub)
				n := submitted.Add(1)
				switch res {
				case resultAccepted:
					accepted.Add(1)
					mu.Lock()
					kept = append(kept, sub)
					mu.Unlock()
				case resultDuplicate:
					duplicate.Add(1)
				case resultRejected:
					rejected.Add(1)
				case resultFailed:
					failed.Add(1)
				}
				if cfg.Verbose && n%1000 == 0 {
					logger.Get().Info(ctx, "progress",
						logger.Int("submitted", int(n)),
						logger.Int("total", len(subs)),
					)
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, sub := range subs {
			select {
			case <-ctx.Done():
				return
			case jobs <- sub:
			}
		}
	}()
	wg.Wait()

	stats.Submitted = int(submitted.Load())
	stats.Accepted = int(accepted.Load())
	stats.Duplicate = int(duplicate.Load())
	stats.Rejected = int(rejected.Load())
	stats.Failed = int(failed.Load())

	logger.Get().Info(ctx, "submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
	)
	return kept
}

func submitOne(ctx context.Context, client *HTTPClient, url string, sub Submission) submitResult { //nolint:gocritic // hugeParam: copied per worker
	resp, err := client.Post(ctx, url, sub)
	if err != nil {
		return resultFailed
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return resultFailed
	}

	var ack AckResponse
	_ = json.Unmarshal(body, &ack)
	switch resp.StatusCode {
	case http.StatusAccepted:
		return resultAccepted
	case http.StatusOK:
		if ack.Duplicate {
			return resultDuplicate
		}
		return resultAccepted
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return resultRejected
	default:
		return resultFailed
	}
}
