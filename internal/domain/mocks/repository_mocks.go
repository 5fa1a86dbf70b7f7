package mocks

import (
	"context"
	"sync"

	"github.com/V4T54L/string-analyzer/internal/domain"
)

// MockSnapshotRepository is a mock implementation of domain.SnapshotRepository for testing.
type MockSnapshotRepository struct {
	mu         sync.Mutex
	Saved      [][]domain.AnalyzedRecord
	LoadResult []domain.AnalyzedRecord
	SaveErr    error
	LoadErr    error
}

func (m *MockSnapshotRepository) Save(ctx context.Context, records []domain.AnalyzedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saved = append(m.Saved, append([]domain.AnalyzedRecord(nil), records...))
	return nil
}

func (m *MockSnapshotRepository) Load(ctx context.Context) ([]domain.AnalyzedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.LoadResult, nil
}

// LastSaved returns the most recent snapshot, or nil.
func (m *MockSnapshotRepository) LastSaved() []domain.AnalyzedRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Saved) == 0 {
		return nil
	}
	return m.Saved[len(m.Saved)-1]
}

// MockEventRepository is a mock implementation of domain.EventRepository for testing.
type MockEventRepository struct {
	mu              sync.Mutex
	PublishedEvents []domain.RecordEvent
	AckedMessageIDs []string
	DLQEvents       []domain.RecordEvent
	ReadBatchResult []domain.RecordEvent
	PublishErr      error
	ReadErr         error
	AckErr          error
	DLQErr          error
}

func (m *MockEventRepository) Publish(ctx context.Context, event domain.RecordEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.PublishedEvents = append(m.PublishedEvents, event)
	return nil
}

func (m *MockEventRepository) ReadEventBatch(ctx context.Context, group, consumer string, count int) ([]domain.RecordEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	return m.ReadBatchResult, nil
}

func (m *MockEventRepository) AcknowledgeEvents(ctx context.Context, group string, messageIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AckErr != nil {
		return m.AckErr
	}
	m.AckedMessageIDs = append(m.AckedMessageIDs, messageIDs...)
	return nil
}

func (m *MockEventRepository) MoveToDLQ(ctx context.Context, events []domain.RecordEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DLQErr != nil {
		return m.DLQErr
	}
	m.DLQEvents = append(m.DLQEvents, events...)
	return nil
}

// Published returns a copy of the published events.
func (m *MockEventRepository) Published() []domain.RecordEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.RecordEvent(nil), m.PublishedEvents...)
}

// MockRecordSink is a mock implementation of domain.RecordSink for testing.
type MockRecordSink struct {
	mu            sync.Mutex
	AppliedEvents []domain.RecordEvent
	ApplyErr      error
	Calls         int
}

func (m *MockRecordSink) ApplyEvents(ctx context.Context, events []domain.RecordEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.ApplyErr != nil {
		return m.ApplyErr
	}
	m.AppliedEvents = append(m.AppliedEvents, events...)
	return nil
}

// MockWALRepository is a mock implementation of domain.WALRepository for testing.
type MockWALRepository struct {
	mu          sync.Mutex
	Events      []domain.RecordEvent
	WriteErr    error
	ReplayErr   error
	Truncations int
}

func (m *MockWALRepository) Write(ctx context.Context, event domain.RecordEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockWALRepository) Drain(ctx context.Context, handler func(event domain.RecordEvent) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReplayErr != nil {
		return m.ReplayErr
	}
	for _, e := range m.Events {
		if err := handler(e); err != nil {
			return err
		}
	}
	m.Events = nil
	m.Truncations++
	return nil
}

// MockStreamAdminRepository is a mock implementation of domain.StreamAdminRepository for testing.
type MockStreamAdminRepository struct {
	Groups    []domain.ConsumerGroupInfo
	Pending   *domain.PendingMessageSummary
	Length    int64
	GroupsErr error
	LengthErr error
}

func (m *MockStreamAdminRepository) GetGroupInfo(ctx context.Context, stream string) ([]domain.ConsumerGroupInfo, error) {
	return m.Groups, m.GroupsErr
}

func (m *MockStreamAdminRepository) GetPendingSummary(ctx context.Context, stream, group string) (*domain.PendingMessageSummary, error) {
	if m.Pending == nil {
		return &domain.PendingMessageSummary{}, nil
	}
	return m.Pending, nil
}

func (m *MockStreamAdminRepository) StreamLength(ctx context.Context, stream string) (int64, error) {
	return m.Length, m.LengthErr
}
