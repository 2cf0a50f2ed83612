package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"antpi/internal/model"
)

// RecordRepository implements repository.RecordRepository for SQLite. It is
// used as a write-through index next to the file-based records.
type RecordRepository struct {
	db *DB
}

// NewRecordRepository creates a new SQLite record repository.
func NewRecordRepository(db *DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Get retrieves the labels stored for filename.
func (r *RecordRepository) Get(filename string) ([]model.Label, bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var raw string
	err := r.db.Conn().QueryRow(`SELECT labels FROM records WHERE filename = ?`, filename).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get record: %w", err)
	}

	var labels []model.Label
	if err := json.Unmarshal([]byte(raw), &labels); err != nil || labels == nil {
		return nil, false, nil
	}
	return labels, true, nil
}

// Put inserts or replaces the record for filename.
func (r *RecordRepository) Put(filename string, labels []model.Label) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return upsert(r.db.Conn(), filename, labels)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsert(conn execer, filename string, labels []model.Label) error {
	if labels == nil {
		labels = []model.Label{}
	}
	raw, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("failed to encode labels: %w", err)
	}

	_, err = conn.Exec(`
		INSERT INTO records (filename, labels, label_count, tp_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			labels = excluded.labels,
			label_count = excluded.label_count,
			tp_count = excluded.tp_count,
			updated_at = excluded.updated_at
	`, filename, string(raw), len(labels), len(model.TruePositives(labels)), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

// Delete removes the record for filename.
func (r *RecordRepository) Delete(filename string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	result, err := r.db.Conn().Exec(`DELETE FROM records WHERE filename = ?`, filename)
	if err != nil {
		return false, fmt.Errorf("failed to delete record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count deleted rows: %w", err)
	}
	return n > 0, nil
}

// Labeled lists the filenames whose record holds at least one label.
func (r *RecordRepository) Labeled() (map[string]bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT filename FROM records WHERE label_count > 0`)
	if err != nil {
		return nil, fmt.Errorf("failed to query labeled records: %w", err)
	}
	defer rows.Close()

	labeled := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan filename: %w", err)
		}
		labeled[name] = true
	}
	return labeled, rows.Err()
}

// Count returns the number of indexed records.
func (r *RecordRepository) Count() (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// Rebuild replaces the whole index with records in a single transaction.
func (r *RecordRepository) Rebuild(records map[string][]model.Label) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM records`); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}
	for name, labels := range records {
		if err := upsert(tx, name, labels); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
