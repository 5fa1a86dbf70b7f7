package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/V4T54L/string-analyzer/internal/adapter/metrics"
	"github.com/V4T54L/string-analyzer/internal/domain"
)

const (
	defaultBatchSize    = 500
	defaultRetryCount   = 3
	defaultRetryBackoff = 1 * time.Second
)

// SyncRecordsUseCase mirrors record events from the event stream into a
// durable sink such as PostgreSQL.
type SyncRecordsUseCase struct {
	events       domain.EventRepository
	sink         domain.RecordSink
	logger       *slog.Logger
	metrics      *metrics.Metrics
	group        string
	consumer     string
	batchSize    int
	retryCount   int
	retryBackoff time.Duration
}

// NewSyncRecordsUseCase creates a new use case for mirroring records.
// Non-positive batch sizes, retry counts and backoffs fall back to defaults.
func NewSyncRecordsUseCase(events domain.EventRepository, sink domain.RecordSink, logger *slog.Logger, group, consumer string, batchSize, retryCount int, retryBackoff time.Duration, m *metrics.Metrics) *SyncRecordsUseCase {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if retryCount <= 0 {
		retryCount = defaultRetryCount
	}
	if retryBackoff <= 0 {
		retryBackoff = defaultRetryBackoff
	}
	return &SyncRecordsUseCase{
		events:       events,
		sink:         sink,
		logger:       logger.With("component", "sync_records"),
		metrics:      m,
		group:        group,
		consumer:     consumer,
		batchSize:    batchSize,
		retryCount:   retryCount,
		retryBackoff: retryBackoff,
	}
}

// ProcessBatch reads a batch of events, applies it to the sink and
// acknowledges it. A batch the sink keeps rejecting is moved to the DLQ and
// then acknowledged so the group can make progress.
func (uc *SyncRecordsUseCase) ProcessBatch(ctx context.Context) (int, error) {
	// 1. Read a batch of events from the stream
	events, err := uc.events.ReadEventBatch(ctx, uc.group, uc.consumer, uc.batchSize)
	if err != nil {
		uc.logger.Error("failed to read event batch from stream", "error", err)
		return 0, err
	}

	if len(events) == 0 {
		return 0, nil
	}

	uc.logger.Debug("read batch of events from stream", "count", len(events))

	// 2. Apply the batch to the sink with retries
	if err := uc.applyWithRetry(ctx, events); err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		uc.logger.Error("failed to apply event batch after retries, moving to DLQ", "error", err, "count", len(events))
		if dlqErr := uc.events.MoveToDLQ(ctx, events); dlqErr != nil {
			// Leave the messages pending so they are delivered again.
			uc.logger.Error("failed to move events to DLQ", "error", dlqErr)
			return 0, dlqErr
		}
		uc.count("dlq", len(events))
		if ackErr := uc.ack(ctx, events); ackErr != nil {
			return 0, ackErr
		}
		return 0, err
	}

	// 3. Acknowledge the messages in the stream
	if err := uc.ack(ctx, events); err != nil {
		// The sink upserts by id, so redelivery is harmless.
		return 0, err
	}

	uc.count("ok", len(events))
	uc.logger.Info("successfully mirrored event batch", "count", len(events))
	return len(events), nil
}

func (uc *SyncRecordsUseCase) ack(ctx context.Context, events []domain.RecordEvent) error {
	messageIDs := make([]string, len(events))
	for i, event := range events {
		messageIDs[i] = event.StreamMessageID
	}
	if err := uc.events.AcknowledgeEvents(ctx, uc.group, messageIDs...); err != nil {
		uc.logger.Error("failed to acknowledge events in stream", "error", err)
		return err
	}
	return nil
}

func (uc *SyncRecordsUseCase) applyWithRetry(ctx context.Context, events []domain.RecordEvent) error {
	var lastErr error
	for i := 0; i < uc.retryCount; i++ {
		err := uc.sink.ApplyEvents(ctx, events)
		if err == nil {
			return nil
		}
		lastErr = err
		uc.logger.Warn("failed to apply batch to sink, retrying...", "attempt", i+1, "error", err)
		select {
		case <-time.After(uc.retryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func (uc *SyncRecordsUseCase) count(status string, n int) {
	if uc.metrics != nil {
		uc.metrics.EventsSynced.WithLabelValues(status).Add(float64(n))
	}
}
