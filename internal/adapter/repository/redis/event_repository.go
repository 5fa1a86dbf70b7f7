package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/string-analyzer/internal/adapter/metrics"
	"github.com/V4T54L/string-analyzer/internal/domain"
)

const (
	payloadField   = "payload"
	publishTimeout = 5 * time.Second
)

// ErrStreamUnavailable is returned when Redis is down and no WAL is configured.
var ErrStreamUnavailable = errors.New("record event stream is unavailable")

// EventRepository implements domain.EventRepository on a Redis Stream. When
// Redis is unreachable, published events go to the WAL and are replayed once
// the health check sees Redis again.
type EventRepository struct {
	client       *redis.Client
	logger       *slog.Logger
	wal          domain.WALRepository
	metrics      *metrics.Metrics
	streamKey    string
	dlqStreamKey string
	isAvailable  atomic.Bool
}

// NewEventRepository creates a Redis-backed EventRepository.
// The WAL and metrics are optional; pass nil when not needed (e.g., for consumers).
func NewEventRepository(client *redis.Client, logger *slog.Logger, streamKey, dlqStreamKey string, wal domain.WALRepository, m *metrics.Metrics) *EventRepository {
	repo := &EventRepository{
		client:       client,
		logger:       logger.With("component", "redis_event_repository"),
		wal:          wal,
		metrics:      m,
		streamKey:    streamKey,
		dlqStreamKey: dlqStreamKey,
	}
	repo.setAvailable(true)
	return repo
}

// EnsureGroup creates the consumer group (and the stream) if missing.
func (r *EventRepository) EnsureGroup(ctx context.Context, group string) error {
	err := r.client.XGroupCreateMkStream(ctx, r.streamKey, group, "0").Err()
	if err != nil && !isBusyGroupError(err) {
		return fmt.Errorf("failed to create consumer group %s: %w", group, err)
	}
	return nil
}

// IsAvailable reports whether the last interaction with Redis succeeded.
func (r *EventRepository) IsAvailable() bool {
	return r.isAvailable.Load()
}

// StartHealthCheck pings Redis every interval until ctx is done. On recovery
// it replays the WAL into the stream.
func (r *EventRepository) StartHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("Starting Redis health check", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stopping Redis health check")
			return
		case <-ticker.C:
			r.CheckHealth(ctx)
		}
	}
}

// CheckHealth performs a single health probe.
func (r *EventRepository) CheckHealth(ctx context.Context) {
	if err := r.client.Ping(ctx).Err(); err != nil {
		if r.isAvailable.CompareAndSwap(true, false) {
			r.logger.Error("Redis connection lost", "error", err)
			r.reportWAL(true)
		}
		return
	}

	if !r.isAvailable.Load() {
		r.logger.Info("Redis connection recovered")
		if err := r.ReplayWAL(ctx); err != nil {
			r.logger.Error("Failed to replay WAL after Redis recovery", "error", err)
			return
		}
		r.setAvailable(true)
		// Publishers that saw the stream as down may have written to the WAL
		// while it was being drained.
		if err := r.ReplayWAL(ctx); err != nil {
			r.logger.Error("Failed to replay WAL after Redis recovery", "error", err)
		}
	}
}

// ReplayWAL re-publishes buffered events to the stream and empties the WAL.
// Events written to the WAL during the replay are kept for the next one.
func (r *EventRepository) ReplayWAL(ctx context.Context) error {
	if r.wal == nil {
		return nil
	}
	err := r.wal.Drain(ctx, func(event domain.RecordEvent) error {
		return r.addToStream(ctx, r.streamKey, event, nil)
	})
	if err != nil {
		return fmt.Errorf("WAL replay failed: %w", err)
	}
	return nil
}

// Publish appends event to the stream, falling back to the WAL when Redis is
// unavailable. Cancellation of ctx does not abort the publish; it is bounded
// by publishTimeout instead.
func (r *EventRepository) Publish(ctx context.Context, event domain.RecordEvent) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if !r.isAvailable.Load() {
		return r.writeToWAL(ctx, event, nil)
	}

	err := r.addToStream(ctx, r.streamKey, event, nil)
	if err == nil {
		r.count("stream")
		return nil
	}
	if !isNetworkError(err) {
		return err
	}
	if r.isAvailable.CompareAndSwap(true, false) {
		r.logger.Error("Redis connection lost during publish", "error", err)
		r.reportWAL(true)
	}
	return r.writeToWAL(ctx, event, err)
}

func (r *EventRepository) writeToWAL(ctx context.Context, event domain.RecordEvent, cause error) error {
	if r.wal == nil {
		r.count("dropped")
		return errors.Join(ErrStreamUnavailable, cause)
	}
	r.logger.Warn("Redis is unavailable, writing event to WAL", "record_id", event.Record.ID, "type", event.Type)
	if err := r.wal.Write(ctx, event); err != nil {
		r.count("dropped")
		return fmt.Errorf("failed to write event to WAL: %w", err)
	}
	r.count("wal")
	return nil
}

func (r *EventRepository) addToStream(ctx context.Context, stream string, event domain.RecordEvent, extra map[string]any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal record event: %w", err)
	}

	values := map[string]any{payloadField: payload}
	for k, v := range extra {
		values[k] = v
	}
	if err := r.client.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: values}).Err(); err != nil {
		return fmt.Errorf("failed to XADD to redis stream %s: %w", stream, err)
	}
	return nil
}

// ReadEventBatch reads up to count events for consumer in group. Messages
// delivered to consumer earlier but never acknowledged come first; only when
// none are left are new messages read.
func (r *EventRepository) ReadEventBatch(ctx context.Context, group, consumer string, count int) ([]domain.RecordEvent, error) {
	msgs, err := r.readGroup(ctx, group, consumer, "0", count, -1)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		msgs, err = r.readGroup(ctx, group, consumer, ">", count, 2*time.Second)
		if err != nil {
			return nil, err
		}
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	events := make([]domain.RecordEvent, 0, len(msgs))
	for _, msg := range msgs {
		event, err := decodeMessage(msg)
		if err != nil {
			r.logger.Warn("Skipping undecodable stream message", "message_id", msg.ID, "error", err)
			// Ack it so it does not stay pending forever.
			if ackErr := r.AcknowledgeEvents(ctx, group, msg.ID); ackErr != nil {
				r.logger.Error("Failed to ack undecodable message", "message_id", msg.ID, "error", ackErr)
			}
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// readGroup runs XREADGROUP from id. "0" reads the consumer's pending entries,
// ">" reads new ones. A negative block does not block at all.
func (r *EventRepository) readGroup(ctx context.Context, group, consumer, id string, count int, block time.Duration) ([]redis.XMessage, error) {
	args := &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{r.streamKey, id},
		Count:    int64(count),
		Block:    block,
	}
	streams, err := r.client.XReadGroup(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to XREADGROUP from redis: %w", err)
	}
	if len(streams) == 0 {
		return nil, nil
	}
	return streams[0].Messages, nil
}

// AcknowledgeEvents acknowledges processed messages for group.
func (r *EventRepository) AcknowledgeEvents(ctx context.Context, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := r.client.XAck(ctx, r.streamKey, group, messageIDs...).Err(); err != nil {
		return fmt.Errorf("failed to XACK messages in redis: %w", err)
	}
	return nil
}

// MoveToDLQ copies events to the dead-letter stream.
func (r *EventRepository) MoveToDLQ(ctx context.Context, events []domain.RecordEvent) error {
	if len(events) == 0 {
		return nil
	}

	failedAt := time.Now().UTC().Format(time.RFC3339)
	for _, event := range events {
		extra := map[string]any{
			"original_stream": r.streamKey,
			"original_msg_id": event.StreamMessageID,
			"failed_at":       failedAt,
		}
		if err := r.addToStream(ctx, r.dlqStreamKey, event, extra); err != nil {
			return fmt.Errorf("failed to move event to DLQ: %w", err)
		}
	}
	r.logger.Warn("Moved events to DLQ", "count", len(events), "stream", r.dlqStreamKey)
	return nil
}

func decodeMessage(msg redis.XMessage) (domain.RecordEvent, error) {
	var event domain.RecordEvent
	payload, ok := msg.Values[payloadField].(string)
	if !ok {
		return event, fmt.Errorf("message has no %q field", payloadField)
	}
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal record event: %w", err)
	}
	event.StreamMessageID = msg.ID
	return event, nil
}

func (r *EventRepository) setAvailable(v bool) {
	r.isAvailable.Store(v)
	r.reportWAL(!v)
}

func (r *EventRepository) reportWAL(active bool) {
	if r.metrics == nil {
		return
	}
	if active {
		r.metrics.WALActive.Set(1)
	} else {
		r.metrics.WALActive.Set(0)
	}
}

func (r *EventRepository) count(destination string) {
	if r.metrics != nil {
		r.metrics.EventsPublished.WithLabelValues(destination).Inc()
	}
}

func isBusyGroupError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, redis.ErrClosed) ||
		errors.Is(err, context.DeadlineExceeded)
}
