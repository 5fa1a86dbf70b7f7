package memory

import (
	"slices"
	"sync"
	"time"

	"github.com/V4T54L/string-analyzer/internal/analyzer"
	"github.com/V4T54L/string-analyzer/internal/domain"
)

// RecordStore is an in-memory collection of analyzed records holding at most
// one record per distinct value. Mutations are exclusive; enumeration takes a
// shared lock and returns a consistent copy.
type RecordStore struct {
	mu      sync.RWMutex
	byValue map[string]domain.AnalyzedRecord
	order   []string // values in insertion order
}

// NewRecordStore creates an empty RecordStore.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		byValue: make(map[string]domain.AnalyzedRecord),
	}
}

// InsertIfAbsent analyzes and stores value unless an identical value is
// already present. It returns the stored record and whether it was created by
// this call. Of two concurrent inserts of the same value exactly one reports
// created=true.
func (s *RecordStore) InsertIfAbsent(value string, now time.Time) (domain.AnalyzedRecord, bool) {
	// 1. Fast path with a read lock
	s.mu.RLock()
	existing, found := s.byValue[value]
	s.mu.RUnlock()
	if found {
		return existing, false
	}

	// 2. Analyze outside the lock; only the winner's result is stored
	props := analyzer.Analyze(value)
	rec := domain.AnalyzedRecord{
		ID:         props.ContentHash,
		Value:      value,
		Properties: props,
		CreatedAt:  now.UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check in case another goroutine inserted while we were analyzing
	if existing, found := s.byValue[value]; found {
		return existing, false
	}

	s.byValue[value] = rec
	s.order = append(s.order, value)
	return rec, true
}

// FindByValue returns the record whose value equals value exactly.
func (s *RecordStore) FindByValue(value string) (domain.AnalyzedRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byValue[value]
	return rec, ok
}

// RemoveByValue deletes and returns the record whose value equals value.
func (s *RecordStore) RemoveByValue(value string) (domain.AnalyzedRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byValue[value]
	if !ok {
		return domain.AnalyzedRecord{}, false
	}
	delete(s.byValue, value)
	if i := slices.Index(s.order, value); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	return rec, true
}

// Enumerate returns every record in insertion order.
func (s *RecordStore) Enumerate() []domain.AnalyzedRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.AnalyzedRecord, 0, len(s.order))
	for _, v := range s.order {
		out = append(out, s.byValue[v])
	}
	return out
}

// Len returns the number of stored records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byValue)
}

// Restore replaces the contents of the store with records, ordered by
// creation time. Stored properties are kept as they are. Later duplicates of
// a value are dropped. It returns the number of records kept.
func (s *RecordStore) Restore(records []domain.AnalyzedRecord) int {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b domain.AnalyzedRecord) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	byValue := make(map[string]domain.AnalyzedRecord, len(sorted))
	order := make([]string, 0, len(sorted))
	for _, rec := range sorted {
		if _, dup := byValue[rec.Value]; dup {
			continue
		}
		byValue[rec.Value] = rec
		order = append(order, rec.Value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byValue = byValue
	s.order = order
	return len(order)
}
