package wal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/V4T54L/string-analyzer/internal/domain"
)

const (
	segmentPrefix = "events-"
	segmentSuffix = ".jsonl"
	filePerm      = 0644
)

// ErrWALFull is returned when a write would exceed the configured disk budget.
var ErrWALFull = errors.New("WAL max total size exceeded")

// WALRepository buffers record events on local disk while the event stream is
// unreachable. Events are appended as JSON lines to size-bounded segment files
// and replayed oldest first.
type WALRepository struct {
	dir            string
	maxSegmentSize int64
	maxTotalSize   int64
	logger         *slog.Logger

	mu          sync.Mutex
	segment     *os.File
	segmentSize int64
	closedSize  int64 // bytes held by segments other than the open one
	pending     int   // events written since the last truncate
	seq         int   // disambiguates segments created in the same nanosecond
}

// NewWALRepository opens (or creates) a WAL in dir.
func NewWALRepository(dir string, maxSegmentSize, maxTotalSize int64, logger *slog.Logger) (*WALRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory %s: %w", dir, err)
	}

	w := &WALRepository{
		dir:            dir,
		maxSegmentSize: maxSegmentSize,
		maxTotalSize:   maxTotalSize,
		logger:         logger.With("component", "wal_repository"),
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.resume(); err != nil {
		return nil, err
	}
	return w, nil
}

// Write appends event to the open segment, rotating when the segment is full.
func (w *WALRepository) Write(ctx context.Context, event domain.RecordEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal record event for WAL: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closedSize+w.segmentSize+int64(len(line)) > w.maxTotalSize {
		return fmt.Errorf("%w (%d bytes used, limit %d)", ErrWALFull, w.closedSize+w.segmentSize, w.maxTotalSize)
	}
	if w.segment == nil {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	n, err := w.segment.Write(line)
	w.segmentSize += int64(n)
	if err != nil {
		return fmt.Errorf("failed to append to WAL segment: %w", err)
	}
	w.pending++

	if w.segmentSize >= w.maxSegmentSize {
		if err := w.rotate(); err != nil {
			w.logger.Error("Failed to rotate WAL segment", "error", err)
		}
	}
	return nil
}

// Replay calls handler for every buffered event, oldest first. Lines that
// cannot be decoded are skipped. Replay stops at the first handler error.
func (w *WALRepository) Replay(ctx context.Context, handler func(event domain.RecordEvent) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.replay(ctx, handler)
}

// Drain replays every buffered event and then truncates, holding the lock
// throughout so no write can land between the two. Writes issued meanwhile
// wait and go to the fresh segment. Nothing is truncated if replay fails.
func (w *WALRepository) Drain(ctx context.Context, handler func(event domain.RecordEvent) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.replay(ctx, handler); err != nil {
		return err
	}
	return w.truncate()
}

// Truncate deletes every segment and starts a fresh, empty one.
func (w *WALRepository) Truncate(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.truncate()
}

func (w *WALRepository) replay(ctx context.Context, handler func(event domain.RecordEvent) error) error {
	if err := w.closeSegment(); err != nil {
		w.logger.Warn("Failed to close WAL segment before replay", "error", err)
	}

	segments, err := w.segments()
	if err != nil {
		return err
	}
	w.logger.Info("Replaying WAL", "segment_count", len(segments), "pending_events", w.pending)

	replayed := 0
	for _, path := range segments {
		n, err := replaySegment(ctx, path, handler, w.logger)
		replayed += n
		if err != nil {
			return err
		}
	}

	w.logger.Info("WAL replay completed", "events", replayed)
	return nil
}

func (w *WALRepository) truncate() error {
	if err := w.closeSegment(); err != nil {
		w.logger.Warn("Failed to close WAL segment before truncate", "error", err)
	}

	segments, err := w.segments()
	if err != nil {
		return err
	}
	for _, path := range segments {
		if err := os.Remove(path); err != nil {
			w.logger.Error("Failed to remove WAL segment", "path", path, "error", err)
		}
	}

	w.closedSize = 0
	w.pending = 0
	w.logger.Info("WAL truncated", "removed_segments", len(segments))
	return w.rotate()
}

// Pending returns the number of events written since the WAL was last
// truncated by this process.
func (w *WALRepository) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending
}

// Close closes the open segment.
func (w *WALRepository) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeSegment()
}

func replaySegment(ctx context.Context, path string, handler func(domain.RecordEvent) error, logger *slog.Logger) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open segment %s for replay: %w", path, err)
	}
	defer f.Close()

	// bufio.Reader instead of Scanner: a single event may exceed the scanner's token limit.
	reader := bufio.NewReader(f)
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		line, readErr := reader.ReadBytes('\n')
		if len(strings.TrimSpace(string(line))) > 0 {
			var event domain.RecordEvent
			if err := json.Unmarshal(line, &event); err != nil {
				logger.Warn("Failed to decode WAL event, skipping", "path", path, "error", err)
			} else {
				if err := handler(event); err != nil {
					return count, fmt.Errorf("replay handler failed: %w", err)
				}
				count++
			}
		}
		if readErr == io.EOF {
			return count, nil
		}
		if readErr != nil {
			return count, fmt.Errorf("failed to read segment %s: %w", path, readErr)
		}
	}
}

// resume reopens the newest segment and accounts for the space used on disk.
func (w *WALRepository) resume() error {
	segments, err := w.segments()
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return w.rotate()
	}

	for _, path := range segments {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to stat segment %s: %w", path, err)
		}
		w.closedSize += info.Size()
		if info.Size() > 0 {
			w.pending += countLines(path)
		}
	}

	latest := segments[len(segments)-1]
	info, err := os.Stat(latest)
	if err != nil {
		return fmt.Errorf("failed to stat segment %s: %w", latest, err)
	}
	if info.Size() >= w.maxSegmentSize {
		return w.rotate()
	}

	f, err := os.OpenFile(latest, os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to open segment %s: %w", latest, err)
	}
	w.segment = f
	w.segmentSize = info.Size()
	w.closedSize -= info.Size()
	w.logger.Info("Resumed WAL segment", "path", latest, "size", w.segmentSize, "pending_events", w.pending)
	return nil
}

func (w *WALRepository) rotate() error {
	if err := w.closeSegment(); err != nil {
		w.logger.Error("Failed to close WAL segment before rotating", "error", err)
	}

	w.seq++
	name := fmt.Sprintf("%s%020d-%06d%s", segmentPrefix, time.Now().UnixNano(), w.seq%1000000, segmentSuffix)
	path := filepath.Join(w.dir, name)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to create WAL segment %s: %w", path, err)
	}

	w.segment = f
	w.segmentSize = 0
	w.logger.Debug("Opened new WAL segment", "path", path)
	return nil
}

func (w *WALRepository) closeSegment() error {
	if w.segment == nil {
		return nil
	}
	syncErr := w.segment.Sync()
	closeErr := w.segment.Close()
	w.closedSize += w.segmentSize
	w.segment = nil
	w.segmentSize = 0
	return errors.Join(syncErr, closeErr)
}

func (w *WALRepository) segments() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAL directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), segmentPrefix) && strings.HasSuffix(e.Name(), segmentSuffix) {
			paths = append(paths, filepath.Join(w.dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func countLines(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	return strings.Count(string(data), "\n")
}
