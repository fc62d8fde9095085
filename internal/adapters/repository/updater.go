package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/readiness/pkg/metrics"
)

// sizeUpdater publishes store size gauges on a ticker until stopped.
type sizeUpdater struct {
	wg       sync.WaitGroup
	stopChan chan struct{}
	once     sync.Once
}

func (u *sizeUpdater) start(ctx context.Context, interval time.Duration, count func(context.Context) (Counts, error)) {
	u.stopChan = make(chan struct{})
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-u.stopChan:
				return
			case <-ticker.C:
				c, err := count(ctx)
				if err != nil {
					metrics.RecordError("repository", "count")
					continue
				}
				metrics.UpdateStoreSize(c.Records, c.Athletes)
			}
		}
	}()
}

func (u *sizeUpdater) stop() {
	u.once.Do(func() { close(u.stopChan) })
	u.wg.Wait()
}
