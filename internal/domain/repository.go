package domain

import "context"

// SnapshotRepository persists the whole record collection.
// Implementations are best-effort: callers log failures and carry on.
type SnapshotRepository interface {
	// Save replaces the stored snapshot with records.
	Save(ctx context.Context, records []AnalyzedRecord) error

	// Load returns the last saved snapshot. A missing snapshot is not an error
	// and yields no records.
	Load(ctx context.Context) ([]AnalyzedRecord, error)
}

// EventPublisher receives record events after successful mutations.
type EventPublisher interface {
	Publish(ctx context.Context, event RecordEvent) error
}

// EventRepository is the durable record event stream consumed by mirrors.
type EventRepository interface {
	EventPublisher

	// ReadEventBatch reads a batch of events for a consumer in a group.
	ReadEventBatch(ctx context.Context, group, consumer string, count int) ([]RecordEvent, error)

	// AcknowledgeEvents marks events as processed for the group.
	AcknowledgeEvents(ctx context.Context, group string, messageIDs ...string) error

	// MoveToDLQ parks events that could not be processed.
	MoveToDLQ(ctx context.Context, events []RecordEvent) error
}

// RecordSink mirrors record events into an external store.
type RecordSink interface {
	// ApplyEvents applies a batch of events in order. Applying the same batch
	// twice must leave the sink in the same state.
	ApplyEvents(ctx context.Context, events []RecordEvent) error
}

// WALRepository defines the interface for the Write-Ahead Log failover mechanism.
type WALRepository interface {
	// Write appends a record event to the local WAL file.
	Write(ctx context.Context, event RecordEvent) error

	// Drain sends every buffered event to handler, oldest first, then empties
	// the WAL as one step. The handler re-publishes the event (e.g., to Redis).
	// On a handler error the WAL is left untouched.
	Drain(ctx context.Context, handler func(event RecordEvent) error) error
}

// StreamAdminRepository exposes read-only inspection of the event stream.
type StreamAdminRepository interface {
	GetGroupInfo(ctx context.Context, stream string) ([]ConsumerGroupInfo, error)
	GetPendingSummary(ctx context.Context, stream, group string) (*PendingMessageSummary, error)
	StreamLength(ctx context.Context, stream string) (int64, error)
}
