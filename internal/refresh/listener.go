// Package refresh keeps cached query results coherent with the warehouse by
// consuming table refresh notifications.
package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchReader reads up to batchSize raw notifications from the source.
type BatchReader interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawMessage, error)
}

// Invalidator drops cached results that read a table, for one plant or for
// all plants when plant is empty.
type Invalidator interface {
	Invalidate(ctx context.Context, table, plant string) int
}

// Listener runs the consume-invalidate-commit loop.
type Listener struct {
	reader      BatchReader
	invalidator Invalidator
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int
	running     atomic.Bool
}

// New creates a Listener.
func New(r BatchReader, inv Invalidator, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Listener {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Listener{
		reader:      r,
		invalidator: inv,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness reports an error once the listener has stopped.
func (l *Listener) CheckReadiness(_ context.Context) error {
	if !l.running.Load() {
		return errors.New("refresh listener is not running")
	}
	return nil
}

// Run consumes notifications until the context is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info("refresh listener started", "batch_size", l.batchSize)
	l.running.Store(true)
	l.metrics.RefreshListenerActive.Set(1)
	defer func() {
		l.running.Store(false)
		l.metrics.RefreshListenerActive.Set(0)
	}()

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("refresh listener stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !l.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one consume-invalidate-commit cycle. Returns false if the
// listener should stop.
func (l *Listener) processBatch(ctx context.Context, backoff *time.Duration) bool {
	batch, err := l.reader.ExtractBatch(ctx, l.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		l.logger.Error("read refresh batch failed", "error", err)
		return l.backoffOrStop(ctx, backoff)
	}
	if len(batch) == 0 {
		return ctx.Err() == nil
	}
	*backoff = initialBackoff
	l.metrics.RefreshEventsConsumed.Add(float64(len(batch)))

	// Coalesce duplicate notifications so each table and plant is
	// invalidated once per batch.
	seen := make(map[string]bool, len(batch))
	for _, raw := range batch {
		event, err := Decode(raw.Value)
		if err != nil {
			l.logger.Warn("invalid refresh event, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			l.metrics.RefreshEventsInvalid.Inc()
			continue
		}
		key := event.Table + "|" + event.Plant
		if seen[key] {
			continue
		}
		seen[key] = true
		n := l.invalidator.Invalidate(ctx, event.Table, event.Plant)
		l.logger.Info("cache invalidated",
			"table", event.Table,
			"plant", event.Plant,
			"entries", n,
			"refreshed_at", event.RefreshedAt,
		)
	}

	for _, raw := range batch {
		l.commitOffset(ctx, raw)
	}
	return true
}

// Decode parses and validates a refresh notification.
func Decode(data []byte) (domain.RefreshEvent, error) {
	var event domain.RefreshEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.RefreshEvent{}, fmt.Errorf("decode refresh event: %w", err)
	}
	event.Table = strings.ToLower(strings.TrimSpace(event.Table))
	event.Plant = strings.ToUpper(strings.TrimSpace(event.Plant))
	if err := event.Validate(); err != nil {
		return domain.RefreshEvent{}, err
	}
	return event, nil
}

// backoffOrStop sleeps with the current backoff and advances it. Returns
// false if the listener should stop.
func (l *Listener) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (l *Listener) commitOffset(ctx context.Context, raw domain.RawMessage) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		l.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
