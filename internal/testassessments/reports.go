package testassessments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/okian/readiness/internal/adapters/repository"
	"github.com/okian/readiness/pkg/logger"
)

// errPending means the athlete has no stored report yet.
var errPending = errors.New("report not available yet")

// awaitReports polls until every athlete has a report or the wait times out.
// Athletes still missing at the deadline are counted, not treated as errors.
func awaitReports(ctx context.Context, cfg *Config, athleteIDs []string, stats *Stats) map[string]repository.Record {
	logger.Get().Info(ctx, "waiting for reports",
		logger.Int("athletes", len(athleteIDs)),
		logger.Duration("timeout", cfg.WaitTimeout),
	)

	client := newHTTPClient(cfg.Timeout)
	deadline := time.Now().Add(cfg.WaitTimeout)
	pending := athleteIDs
	got := make(map[string]repository.Record, len(athleteIDs))

	for len(pending) > 0 && time.Now().Before(deadline) && ctx.Err() == nil {
		found := fetchReports(ctx, cfg, client, pending)
		next := pending[:0:0]
		for _, id := range pending {
			if r, ok := found[id]; ok {
				got[id] = r
				continue
			}
			next = append(next, id)
		}
		pending = next
		if len(pending) == 0 {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(cfg.PollInterval):
		}
	}

	stats.ReportsFetched = len(got)
	stats.ReportsMissing = len(pending)
	logger.Get().Info(ctx, "reports collected",
		logger.Int("fetched", stats.ReportsFetched),
		logger.Int("missing", stats.ReportsMissing),
	)
	return got
}

// fetchReports requests the latest report of each athlete concurrently.
func fetchReports(ctx context.Context, cfg *Config, client *HTTPClient, athleteIDs []string) map[string]repository.Record {
	var (
		mu  sync.Mutex
		out = make(map[string]repository.Record, len(athleteIDs))
		wg  sync.WaitGroup
	)
	ids := make(chan string, cfg.Workers*WorkerChannelMultiplier)
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range ids {
				r, err := fetchReport(ctx, client, cfg.BaseURL, id)
				if err != nil {
					if cfg.Verbose && !errors.Is(err, errPending) {
						logger.Get().Warn(ctx, "failed to fetch report",
							logger.String("athleteID", id),
							logger.Error(err),
						)
					}
					continue
				}
				mu.Lock()
				out[id] = r
				mu.Unlock()
			}
		}()
	}
	for _, id := range athleteIDs {
		ids <- id
	}
	close(ids)
	wg.Wait()
	return out
}

func fetchReport(ctx context.Context, client *HTTPClient, baseURL, athleteID string) (repository.Record, error) {
	resp, err := client.Get(ctx, baseURL+"/v1/athletes/"+url.PathEscape(athleteID)+"/report")
	if err != nil {
		return repository.Record{}, err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return repository.Record{}, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return repository.Record{}, errPending
	default:
		return repository.Record{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var r repository.Record
	if err := json.Unmarshal(body, &r); err != nil {
		return repository.Record{}, fmt.Errorf("decoding report: %w", err)
	}
	return r, nil
}
