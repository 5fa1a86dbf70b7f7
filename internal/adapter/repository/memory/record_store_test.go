package memory

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/string-analyzer/internal/analyzer"
	"github.com/V4T54L/string-analyzer/internal/domain"
)

func TestRecordStore_InsertIfAbsent(t *testing.T) {
	s := NewRecordStore()
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	rec, created := s.InsertIfAbsent("Madam", now)
	require.True(t, created)
	assert.Equal(t, analyzer.Hash("Madam"), rec.ID)
	assert.Equal(t, rec.ID, rec.Properties.ContentHash)
	assert.Equal(t, "Madam", rec.Value)
	assert.True(t, rec.Properties.IsPalindrome)
	assert.Equal(t, now, rec.CreatedAt)

	again, created := s.InsertIfAbsent("Madam", now.Add(time.Hour))
	assert.False(t, created)
	assert.Equal(t, rec, again, "existing record must be returned unchanged")
	assert.Equal(t, 1, s.Len())

	// Values are compared exactly, not case-folded or trimmed.
	_, created = s.InsertIfAbsent("madam", now)
	assert.True(t, created)
	_, created = s.InsertIfAbsent(" Madam", now)
	assert.True(t, created)
	assert.Equal(t, 3, s.Len())
}

func TestRecordStore_ConcurrentIdenticalInserts(t *testing.T) {
	s := NewRecordStore()

	const workers = 64
	var wg sync.WaitGroup
	var createdCount atomic.Int32
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, created := s.InsertIfAbsent("race", time.Now()); created {
				createdCount.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), createdCount.Load())
	assert.Equal(t, 1, s.Len())
}

func TestRecordStore_FindAndRemove(t *testing.T) {
	s := NewRecordStore()
	s.InsertIfAbsent("hello", time.Now())

	rec, ok := s.FindByValue("hello")
	require.True(t, ok)
	assert.Equal(t, "hello", rec.Value)

	_, ok = s.FindByValue("Hello")
	assert.False(t, ok)

	removed, ok := s.RemoveByValue("hello")
	require.True(t, ok)
	assert.Equal(t, rec, removed)

	_, ok = s.RemoveByValue("hello")
	assert.False(t, ok, "second removal must miss")

	_, ok = s.FindByValue("hello")
	assert.False(t, ok)
	assert.Empty(t, s.Enumerate())
}

func TestRecordStore_EnumerateKeepsInsertionOrder(t *testing.T) {
	s := NewRecordStore()
	for _, v := range []string{"c", "a", "b", "d"} {
		s.InsertIfAbsent(v, time.Now())
	}
	s.RemoveByValue("a")

	var got []string
	for _, rec := range s.Enumerate() {
		got = append(got, rec.Value)
	}
	assert.Equal(t, []string{"c", "b", "d"}, got)
}

func TestRecordStore_EnumerateDuringWrites(t *testing.T) {
	s := NewRecordStore()
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.InsertIfAbsent(fmt.Sprintf("value-%d", i), time.Now())
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			for _, rec := range s.Enumerate() {
				if rec.ID == "" || rec.Properties.ContentHash != rec.ID {
					t.Errorf("observed incomplete record %+v", rec)
					return
				}
			}
		}
	}()
	wg.Wait()

	assert.Equal(t, 200, s.Len())
}

func TestRecordStore_Restore(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(v string, offset time.Duration) domain.AnalyzedRecord {
		props := analyzer.Analyze(v)
		return domain.AnalyzedRecord{ID: props.ContentHash, Value: v, Properties: props, CreatedAt: base.Add(offset)}
	}

	s := NewRecordStore()
	s.InsertIfAbsent("stale", time.Now())

	kept := s.Restore([]domain.AnalyzedRecord{
		mk("second", 2*time.Minute),
		mk("first", time.Minute),
		mk("first", 3*time.Minute),
	})
	assert.Equal(t, 2, kept)

	var got []string
	for _, rec := range s.Enumerate() {
		got = append(got, rec.Value)
	}
	assert.Equal(t, []string{"first", "second"}, got)

	rec, ok := s.FindByValue("first")
	require.True(t, ok)
	assert.Equal(t, base.Add(time.Minute), rec.CreatedAt)

	_, ok = s.FindByValue("stale")
	assert.False(t, ok)
}
