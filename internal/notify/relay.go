package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Source hands out unpublished events. Implementations call publish with a batch and
// mark the batch published only when publish returns nil.
type Source interface {
	ProcessUnpublished(ctx context.Context, limit int, publish func(ctx context.Context, events []Event) error) (int, error)
}

// Relay moves rows from the event log to a Notifier on a fixed interval.
type Relay struct {
	source    Source
	notifier  Notifier
	logger    zerolog.Logger
	interval  time.Duration
	batchSize int
}

func NewRelay(source Source, notifier Notifier, logger zerolog.Logger, interval time.Duration, batchSize int) *Relay {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Relay{
		source:    source,
		notifier:  notifier,
		logger:    logger.With().Str("component", "event-relay").Logger(),
		interval:  interval,
		batchSize: batchSize,
	}
}

// Start runs the relay in its own goroutine. The returned stop cancels it and
// blocks until the in-flight batch has returned, so the notifier can be closed after.
func (r *Relay) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// Run blocks until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	r.drain(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("event relay stopped")
			return
		case <-ticker.C:
			r.drain(ctx)
		}
	}
}

func (r *Relay) drain(ctx context.Context) {
	start := time.Now()
	total := 0
	for {
		n, err := r.RunOnce(ctx)
		if err != nil {
			if ctx.Err() == nil {
				r.logger.Error().Err(err).Msg("event relay batch failed")
			}
			return
		}
		total += n
		if n < r.batchSize {
			break
		}
	}
	if total > 0 {
		r.logger.Debug().Int("published", total).Dur("took", time.Since(start)).Msg("event relay run complete")
	}
}

// RunOnce publishes at most one batch and returns its size.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	return r.source.ProcessUnpublished(runCtx, r.batchSize, r.notifier.Publish)
}
