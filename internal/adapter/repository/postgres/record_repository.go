package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/V4T54L/string-analyzer/internal/domain"
)

const (
	recordsTableName = "analyzed_strings"
	stagingTableName = "analyzed_strings_import"
)

const schema = `
CREATE TABLE IF NOT EXISTS analyzed_strings (
	id                  TEXT PRIMARY KEY,
	value               TEXT NOT NULL,
	length              INTEGER NOT NULL,
	is_palindrome       BOOLEAN NOT NULL,
	unique_characters   INTEGER NOT NULL,
	word_count          INTEGER NOT NULL,
	character_frequency JSONB NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS analyzed_strings_length_idx ON analyzed_strings (length);
CREATE INDEX IF NOT EXISTS analyzed_strings_word_count_idx ON analyzed_strings (word_count);
`

// RecordRepository mirrors record events into PostgreSQL. It implements domain.RecordSink.
type RecordRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRecordRepository creates a new PostgreSQL record repository.
func NewRecordRepository(db *sql.DB, logger *slog.Logger) *RecordRepository {
	return &RecordRepository{db: db, logger: logger.With("component", "postgres_record_repository")}
}

// EnsureSchema creates the mirror table and its indexes if they do not exist.
func (r *RecordRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create %s schema: %w", recordsTableName, err)
	}
	return nil
}

// ApplyEvents folds the batch into its final state per record id and applies
// it in one transaction: surviving records are bulk loaded with COPY into a
// temporary table and upserted, removed ids are deleted. Replaying a batch is
// idempotent.
func (r *RecordRepository) ApplyEvents(ctx context.Context, events []domain.RecordEvent) error {
	upserts, deletes := Compact(events)
	if len(upserts) == 0 && len(deletes) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback() // Rollback is a no-op if Commit() is called

	if len(deletes) > 0 {
		if _, err := txn.ExecContext(ctx, `DELETE FROM `+recordsTableName+` WHERE id = ANY($1)`, pq.Array(deletes)); err != nil {
			return fmt.Errorf("failed to delete records: %w", err)
		}
	}

	if len(upserts) > 0 {
		if err := r.upsert(ctx, txn, upserts); err != nil {
			return err
		}
	}

	if err := txn.Commit(); err != nil {
		return err
	}
	r.logger.Debug("Applied record events", "upserts", len(upserts), "deletes", len(deletes))
	return nil
}

func (r *RecordRepository) upsert(ctx context.Context, txn *sql.Tx, records []domain.AnalyzedRecord) error {
	_, err := txn.ExecContext(ctx, `CREATE TEMP TABLE `+stagingTableName+` (LIKE `+recordsTableName+` INCLUDING DEFAULTS) ON COMMIT DROP;`)
	if err != nil {
		return fmt.Errorf("failed to create staging table: %w", err)
	}

	stmt, err := txn.PrepareContext(ctx, pq.CopyIn(stagingTableName,
		"id", "value", "length", "is_palindrome", "unique_characters", "word_count", "character_frequency", "created_at"))
	if err != nil {
		return fmt.Errorf("failed to prepare COPY: %w", err)
	}

	for _, rec := range records {
		freq, err := json.Marshal(rec.Properties.CharacterFrequency)
		if err != nil {
			_ = stmt.Close()
			return fmt.Errorf("failed to marshal character frequency for %s: %w", rec.ID, err)
		}
		p := rec.Properties
		if _, err := stmt.ExecContext(ctx, rec.ID, rec.Value, p.Length, p.IsPalindrome, p.UniqueCharacters, p.WordCount, string(freq), rec.CreatedAt); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("failed to COPY record %s: %w", rec.ID, err)
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("failed to flush COPY: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return err
	}

	// A re-created value gets a new created_at, so conflicts take the incoming row.
	_, err = txn.ExecContext(ctx, `
		INSERT INTO `+recordsTableName+` (id, value, length, is_palindrome, unique_characters, word_count, character_frequency, created_at)
		SELECT id, value, length, is_palindrome, unique_characters, word_count, character_frequency, created_at FROM `+stagingTableName+`
		ON CONFLICT (id) DO UPDATE SET
			value = EXCLUDED.value,
			length = EXCLUDED.length,
			is_palindrome = EXCLUDED.is_palindrome,
			unique_characters = EXCLUDED.unique_characters,
			word_count = EXCLUDED.word_count,
			character_frequency = EXCLUDED.character_frequency,
			created_at = EXCLUDED.created_at;
	`)
	if err != nil {
		return fmt.Errorf("failed to upsert records: %w", err)
	}
	return nil
}

// Compact reduces an ordered batch of events to the final state per record id:
// records whose last event is a creation are returned in upserts, the rest in
// deletes. Both slices keep the order in which ids first appear.
func Compact(events []domain.RecordEvent) (upserts []domain.AnalyzedRecord, deletes []string) {
	last := make(map[string]domain.RecordEvent, len(events))
	var order []string
	for _, e := range events {
		id := e.Record.ID
		if _, seen := last[id]; !seen {
			order = append(order, id)
		}
		last[id] = e
	}

	for _, id := range order {
		e := last[id]
		switch e.Type {
		case domain.RecordCreated:
			upserts = append(upserts, e.Record)
		case domain.RecordDeleted:
			deletes = append(deletes, id)
		}
	}
	return upserts, deletes
}
