package config

import (
	"context"
	"fmt"
	"sync"

	"github.com/knadh/koanf/providers/file"
)

// Watcher reloads a YAML config file when it changes.
type Watcher struct {
	provider *file.File
	done     chan struct{}
	once     sync.Once
	stopErr  error
}

// Watch starts watching path. Every change is fully reloaded (file then env)
// and validated; onChange receives either the new Config or the error. The
// watch ends when ctx is done or Stop is called.
func Watch(ctx context.Context, path string, onChange func(*Config, error)) (*Watcher, error) {
	if path == "" {
		return nil, ErrNoConfigFile
	}
	w := &Watcher{provider: file.Provider(path), done: make(chan struct{})}
	err := w.provider.Watch(func(_ interface{}, err error) {
		if err != nil {
			onChange(nil, fmt.Errorf("%w: watch %s: %w", ErrLoadConfig, path, err))
			return
		}
		onChange(LoadFile(ctx, path))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: watch %s: %w", ErrLoadConfig, path, err)
	}

	go func() {
		select {
		case <-ctx.Done():
			_ = w.Stop()
		case <-w.done:
		}
	}()
	return w, nil
}

// Stop ends the watch. It is safe to call more than once.
func (w *Watcher) Stop() error {
	w.once.Do(func() {
		close(w.done)
		w.stopErr = w.provider.Unwatch()
	})
	return w.stopErr
}
