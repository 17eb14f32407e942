// Package storage persists searchable-string embeddings so restarts can skip re-embedding.
package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// EmbeddingStore stores one embedding row per searchable string, keyed by the
// string's vector index row position. The stored set is replaced wholesale on
// rebuild; there is no incremental update.
type EmbeddingStore struct {
	db *sql.DB
}

// NewEmbeddingStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewEmbeddingStore(dbPath string) (*EmbeddingStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS embeddings (
		row_position INTEGER PRIMARY KEY,
		text TEXT NOT NULL,
		vector BLOB NOT NULL
	);
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &EmbeddingStore{db: db}, nil
}

// ReplaceAll atomically replaces every stored embedding. texts and vectors
// must be parallel slices in row order.
func (s *EmbeddingStore) ReplaceAll(ctx context.Context, texts []string, vectors [][]float32) error {
	if len(texts) != len(vectors) {
		return fmt.Errorf("texts and vectors length mismatch: %d vs %d", len(texts), len(vectors))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM embeddings"); err != nil {
		return fmt.Errorf("failed to clear embeddings: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO embeddings (row_position, text, vector) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	dimensions := 0
	for row, vec := range vectors {
		if _, err := stmt.ExecContext(ctx, row, texts[row], serializeVector(vec)); err != nil {
			return fmt.Errorf("failed to insert embedding %d: %w", row, err)
		}
		dimensions = len(vec)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO meta (key, value) VALUES ('dimensions', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		dimensions); err != nil {
		return fmt.Errorf("failed to store dimensions: %w", err)
	}

	return tx.Commit()
}

// LoadAll returns all stored texts and vectors in row order.
func (s *EmbeddingStore) LoadAll(ctx context.Context) ([]string, [][]float32, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT text, vector FROM embeddings ORDER BY row_position")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var texts []string
	var vectors [][]float32
	for rows.Next() {
		var text string
		var blob []byte
		if err := rows.Scan(&text, &blob); err != nil {
			return nil, nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		texts = append(texts, text)
		vectors = append(vectors, deserializeVector(blob))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate embeddings: %w", err)
	}
	return texts, vectors, nil
}

// Count returns the number of stored embeddings.
func (s *EmbeddingStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return n, nil
}

// Dimensions returns the stored vector dimension, or 0 when nothing is stored.
func (s *EmbeddingStore) Dimensions(ctx context.Context) (int, error) {
	var d int
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'dimensions'").Scan(&d)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read dimensions: %w", err)
	}
	return d, nil
}

// Close closes the underlying database.
func (s *EmbeddingStore) Close() error {
	return s.db.Close()
}

// serializeVector encodes a vector as little-endian float32 bytes.
func serializeVector(vec []float32) []byte {
	out := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(out[i*4:(i+1)*4], math.Float32bits(v))
	}
	return out
}

// deserializeVector decodes little-endian float32 bytes into a vector.
func deserializeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return out
}
