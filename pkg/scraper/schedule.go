package scraper

import (
	"context"
	"sync"
	"time"
)

// Handle controls a task scheduled with Every
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Every runs fn immediately and then once per interval until fn returns
// true or the handle is cancelled. Runs never overlap. The context passed to
// fn is cancelled when the handle is.
func Every(interval time.Duration, fn func(ctx context.Context) bool) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		defer cancel()

		if fn(ctx) || ctx.Err() != nil {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				if fn(ctx) {
					return
				}
			}
		}
	}()

	return h
}

// Cancel stops future runs. It does not wait for a run in progress.
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.once.Do(h.cancel)
}

// Done is closed once the schedule has stopped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
