package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/V4T54L/string-analyzer/internal/domain"
)

const (
	filePerm = 0644
	dirPerm  = 0755
)

// FileRepository stores the record collection as a single JSON document keyed
// by record id. Every Save rewrites the whole file through a temporary file
// and a rename, so readers never see a partial snapshot.
type FileRepository struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

// NewFileRepository creates a FileRepository writing to path. The parent
// directory is created if needed.
func NewFileRepository(path string, logger *slog.Logger) (*FileRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory for %s: %w", path, err)
	}
	return &FileRepository{
		path:   path,
		logger: logger.With("component", "snapshot_repository"),
	}, nil
}

// Save replaces the snapshot with records.
func (r *FileRepository) Save(ctx context.Context, records []domain.AnalyzedRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := make(map[string]domain.AnalyzedRecord, len(records))
	for _, rec := range records {
		doc[rec.ID] = rec
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary snapshot file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Chmod(tmpPath, filePerm); err != nil {
		return fmt.Errorf("failed to set snapshot permissions: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		return fmt.Errorf("failed to replace snapshot %s: %w", r.path, err)
	}

	r.logger.Debug("Snapshot written", "path", r.path, "records", len(records))
	return nil
}

// Load reads the snapshot. A missing file yields no records and no error.
// Records are returned sorted by creation time.
func (r *FileRepository) Load(ctx context.Context) ([]domain.AnalyzedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	data, err := os.ReadFile(r.path)
	r.mu.Unlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Info("No snapshot found, starting empty", "path", r.path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot %s: %w", r.path, err)
	}

	var doc map[string]domain.AnalyzedRecord
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", r.path, err)
	}

	records := make([]domain.AnalyzedRecord, 0, len(doc))
	for id, rec := range doc {
		if rec.ID == "" {
			rec.ID = id
		}
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}
