package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/V4T54L/string-analyzer/internal/adapter/metrics"
	"github.com/V4T54L/string-analyzer/internal/domain"
	"github.com/V4T54L/string-analyzer/internal/filter"
	"github.com/V4T54L/string-analyzer/internal/nlquery"
)

// RecordStore is the collection the service owns for its whole lifetime.
type RecordStore interface {
	InsertIfAbsent(value string, now time.Time) (domain.AnalyzedRecord, bool)
	FindByValue(value string) (domain.AnalyzedRecord, bool)
	RemoveByValue(value string) (domain.AnalyzedRecord, bool)
	Enumerate() []domain.AnalyzedRecord
	Restore(records []domain.AnalyzedRecord) int
	Len() int
}

// Interpretation echoes how a natural-language query was understood.
type Interpretation struct {
	Original      string           `json:"original"`
	ParsedFilters domain.FilterSet `json:"parsed_filters"`
}

// StringService implements the create, lookup, delete and filtered listing
// operations on top of a RecordStore. After every successful mutation it
// writes a snapshot and publishes a record event; both are best-effort.
type StringService struct {
	store       RecordStore
	interpreter *nlquery.Interpreter
	snapshots   domain.SnapshotRepository
	publishers  []domain.EventPublisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time

	// persistMu orders snapshot writes so a stale snapshot never replaces a newer one.
	persistMu sync.Mutex
}

// Option configures a StringService.
type Option func(*StringService)

// WithSnapshots enables write-through snapshot persistence.
func WithSnapshots(repo domain.SnapshotRepository) Option {
	return func(s *StringService) { s.snapshots = repo }
}

// WithPublishers registers event publishers notified after each mutation.
func WithPublishers(pubs ...domain.EventPublisher) Option {
	return func(s *StringService) { s.publishers = append(s.publishers, pubs...) }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *StringService) { s.metrics = m }
}

// WithClock overrides the time source used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *StringService) { s.now = now }
}

// NewStringService creates a StringService. The interpreter may be nil, in
// which case the default phrase catalog is used.
func NewStringService(store RecordStore, interpreter *nlquery.Interpreter, logger *slog.Logger, opts ...Option) *StringService {
	if interpreter == nil {
		interpreter = nlquery.New()
	}
	s := &StringService{
		store:       store,
		interpreter: interpreter,
		logger:      logger.With("component", "string_service"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads the last snapshot into the store. Any failure leaves the store
// empty and is only logged.
func (s *StringService) Restore(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	records, err := s.snapshots.Load(ctx)
	if err != nil {
		s.logger.Error("failed to load snapshot, starting empty", "error", err)
		s.store.Restore(nil)
		s.observeStoreSize()
		return
	}
	kept := s.store.Restore(records)
	s.observeStoreSize()
	s.logger.Info("restored records from snapshot", "records", kept)
}

// Create analyzes and stores value. It returns ErrRecordExists when the exact
// value is already stored.
func (s *StringService) Create(ctx context.Context, value string) (domain.AnalyzedRecord, error) {
	rec, created := s.store.InsertIfAbsent(value, s.now())
	if !created {
		s.observe("create", "conflict")
		return domain.AnalyzedRecord{}, fmt.Errorf("%w: id %s", domain.ErrRecordExists, rec.ID)
	}

	s.observe("create", "ok")
	s.afterMutation(ctx, domain.RecordCreated, rec)
	return rec, nil
}

// Get returns the record whose value equals value exactly.
func (s *StringService) Get(ctx context.Context, value string) (domain.AnalyzedRecord, error) {
	rec, ok := s.store.FindByValue(value)
	if !ok {
		s.observe("get", "not_found")
		return domain.AnalyzedRecord{}, domain.ErrNotFound
	}
	s.observe("get", "ok")
	return rec, nil
}

// Delete removes and returns the record whose value equals value exactly.
func (s *StringService) Delete(ctx context.Context, value string) (domain.AnalyzedRecord, error) {
	rec, ok := s.store.RemoveByValue(value)
	if !ok {
		s.observe("delete", "not_found")
		return domain.AnalyzedRecord{}, domain.ErrNotFound
	}

	s.observe("delete", "ok")
	s.afterMutation(ctx, domain.RecordDeleted, rec)
	return rec, nil
}

// List returns the records matching fs. The filter set is validated first.
func (s *StringService) List(ctx context.Context, fs domain.FilterSet) ([]domain.AnalyzedRecord, error) {
	if err := fs.Validate(); err != nil {
		s.observe("list", "invalid")
		return nil, err
	}
	s.observe("list", "ok")
	return filter.Apply(fs, s.store.Enumerate()), nil
}

// ListByNaturalLanguage interprets query and returns the matching records.
// It returns ErrUnparsed when no phrase was recognized and ErrFilterConflict
// when the recognized phrases contradict each other.
func (s *StringService) ListByNaturalLanguage(ctx context.Context, query string) (Interpretation, []domain.AnalyzedRecord, error) {
	interp := Interpretation{Original: query}

	res, err := s.interpreter.Interpret(query)
	if err != nil {
		s.observeQuery("unparsed")
		return interp, nil, err
	}
	interp.ParsedFilters = res.Filters
	s.logger.Debug("interpreted query", "query", query, "rules", res.Matched)

	if err := res.Filters.Validate(); err != nil {
		s.observeQuery("conflict")
		if errors.Is(err, domain.ErrFilterConflict) {
			return interp, nil, err
		}
		return interp, nil, fmt.Errorf("%w: %v", domain.ErrFilterConflict, err)
	}

	s.observeQuery("parsed")
	return interp, filter.Apply(res.Filters, s.store.Enumerate()), nil
}

// Count returns the number of stored records.
func (s *StringService) Count() int {
	return s.store.Len()
}

func (s *StringService) afterMutation(ctx context.Context, typ domain.RecordEventType, rec domain.AnalyzedRecord) {
	s.observeStoreSize()
	s.persist(ctx)

	// The mutation is already applied; the caller going away must not drop its event.
	ctx = context.WithoutCancel(ctx)
	event := domain.RecordEvent{Type: typ, Record: rec, OccurredAt: s.now().UTC()}
	for _, pub := range s.publishers {
		if err := pub.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish record event", "error", err, "type", typ, "record_id", rec.ID)
		}
	}
}

func (s *StringService) persist(ctx context.Context) {
	if s.snapshots == nil {
		return
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	// Enumerate under persistMu: every later save sees at least this state.
	records := s.store.Enumerate()
	if err := s.snapshots.Save(context.WithoutCancel(ctx), records); err != nil {
		s.logger.Error("failed to write snapshot", "error", err, "records", len(records))
		s.observeSnapshot("error")
		return
	}
	s.observeSnapshot("ok")
}

func (s *StringService) observe(operation, outcome string) {
	if s.metrics != nil {
		s.metrics.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	}
}

func (s *StringService) observeQuery(outcome string) {
	if s.metrics != nil {
		s.metrics.QueryResultsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *StringService) observeSnapshot(status string) {
	if s.metrics != nil {
		s.metrics.SnapshotWrites.WithLabelValues(status).Inc()
	}
}

func (s *StringService) observeStoreSize() {
	if s.metrics != nil {
		s.metrics.RecordsStored.Set(float64(s.store.Len()))
	}
}
