// Package poller provides a cancellable fixed-interval polling loop
// with at-most-one-in-flight semantics: the poll function runs
// synchronously inside the loop, so a tick that fires while a poll is
// still running is shed rather than queued.
package poller

import (
	"context"
	"sync"
	"time"

	"pairtalk/pkg/logger"

	"go.uber.org/zap"
)

// Func is one poll. Errors are logged and retried on the next tick;
// they never stop the loop.
type Func func(ctx context.Context) error

type Loop struct {
	name     string
	interval time.Duration
	fn       Func
	log      *logger.Logger
}

func New(name string, interval time.Duration, log *logger.Logger, fn Func) *Loop {
	return &Loop{
		name:     name,
		interval: interval,
		fn:       fn,
		log:      log,
	}
}

// Run polls until ctx is cancelled. The first poll happens immediately
// so a freshly opened view is not blind for one interval.
func (l *Loop) Run(ctx context.Context) {
	l.poll(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.poll(ctx)
		}
	}
}

func (l *Loop) poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := l.fn(ctx); err != nil {
		// Best-effort refresh: log and wait for the next tick. The
		// absolute cursor means a missed poll loses nothing.
		l.log.Warn("poll failed", zap.String("loop", l.name), zap.Error(err))
	}
}

// Start runs the loop in a goroutine and returns a stop function that
// cancels it and waits for the in-flight poll to finish.
func (l *Loop) Start(ctx context.Context) (stop func()) {
	loopCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.Run(loopCtx)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
}
