package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// State keys written alongside a snapshot.
const (
	StateKeyEmbeddingModel = "embedding_model"
	StateKeyEmbeddingDim   = "embedding_dim"
	StateKeyTokenizer      = "tokenizer"
	StateKeyChunkSize      = "chunk_size"
	StateKeyChunkOverlap   = "chunk_overlap"
	StateKeyBuiltAt        = "built_at"
	StateKeyCorpusDir      = "corpus_dir"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no index snapshot saved")

// Snapshot is a chunked corpus with the embeddings computed for it.
// Embeddings is parallel to Documents, or nil when semantic indexing was
// unavailable at build time.
type Snapshot struct {
	Documents  []*Document
	Embeddings [][]float32
	State      map[string]string
}

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS documents (
	position INTEGER PRIMARY KEY,
	id       TEXT NOT NULL,
	content  TEXT NOT NULL,
	source   TEXT NOT NULL,
	metadata TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS embeddings (
	position INTEGER PRIMARY KEY REFERENCES documents(position),
	vector   BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// SnapshotStore persists one Snapshot in a SQLite file. Save replaces the
// previous snapshot in a single transaction, so readers see either the old
// corpus or the new one.
type SnapshotStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// OpenSnapshotStore opens or creates the database at path. An empty path
// opens an in-memory database.
func OpenSnapshotStore(path string) (*SnapshotStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create directory for %s: %w", path, err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(snapshotSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SnapshotStore{db: db, path: path}, nil
}

// Path returns the database file path ("" for in-memory).
func (s *SnapshotStore) Path() string { return s.path }

// Save replaces the stored snapshot with snap.
func (s *SnapshotStore) Save(ctx context.Context, snap *Snapshot) error {
	if snap.Embeddings != nil && len(snap.Embeddings) != len(snap.Documents) {
		return fmt.Errorf("embeddings/documents length mismatch: %d vs %d", len(snap.Embeddings), len(snap.Documents))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{"DELETE FROM embeddings", "DELETE FROM documents", "DELETE FROM state"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear snapshot: %w", err)
		}
	}

	docStmt, err := tx.PrepareContext(ctx, `INSERT INTO documents (position, id, content, source, metadata) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare documents insert: %w", err)
	}
	defer docStmt.Close()

	for pos, doc := range snap.Documents {
		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", doc.ID, err)
		}
		if _, err := docStmt.ExecContext(ctx, pos, doc.ID, doc.Content, doc.Source, string(meta)); err != nil {
			return fmt.Errorf("insert document %s: %w", doc.ID, err)
		}
	}

	if snap.Embeddings != nil {
		vecStmt, err := tx.PrepareContext(ctx, `INSERT INTO embeddings (position, vector) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare embeddings insert: %w", err)
		}
		defer vecStmt.Close()
		for pos, vec := range snap.Embeddings {
			if _, err := vecStmt.ExecContext(ctx, pos, encodeVector(vec)); err != nil {
				return fmt.Errorf("insert embedding %d: %w", pos, err)
			}
		}
	}

	for k, v := range snap.State {
		if _, err := tx.ExecContext(ctx, `INSERT INTO state (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("insert state %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Load reads the stored snapshot. It returns ErrNoSnapshot when the store is empty.
func (s *SnapshotStore) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, content, source, metadata FROM documents ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	snap := &Snapshot{State: map[string]string{}}
	for rows.Next() {
		var doc Document
		var meta string
		if err := rows.Scan(&doc.ID, &doc.Content, &doc.Source, &meta); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", doc.ID, err)
		}
		normalizeMetadata(doc.Metadata)
		snap.Documents = append(snap.Documents, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	if len(snap.Documents) == 0 {
		return nil, ErrNoSnapshot
	}

	vecRows, err := s.db.QueryContext(ctx, `SELECT position, vector FROM embeddings ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer vecRows.Close()

	var vectors [][]float32
	for vecRows.Next() {
		var pos int
		var blob []byte
		if err := vecRows.Scan(&pos, &blob); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		if pos != len(vectors) {
			return nil, fmt.Errorf("embedding for position %d missing", len(vectors))
		}
		vectors = append(vectors, decodeVector(blob))
	}
	if err := vecRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	if len(vectors) > 0 {
		if len(vectors) != len(snap.Documents) {
			return nil, fmt.Errorf("snapshot has %d embeddings for %d documents", len(vectors), len(snap.Documents))
		}
		snap.Embeddings = vectors
	}

	stateRows, err := s.db.QueryContext(ctx, `SELECT key, value FROM state`)
	if err != nil {
		return nil, fmt.Errorf("query state: %w", err)
	}
	defer stateRows.Close()
	for stateRows.Next() {
		var k, v string
		if err := stateRows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		snap.State[k] = v
	}
	return snap, stateRows.Err()
}

// GetState reads one state value; ok is false when the key is unset.
func (s *SnapshotStore) GetState(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get state %s: %w", key, err)
	}
	return v, true, nil
}

func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// normalizeMetadata turns JSON numbers that hold integers back into ints, so
// chunk_index round-trips with the type the chunker wrote.
func normalizeMetadata(m map[string]any) {
	for k, v := range m {
		if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			m[k] = int(f)
		}
	}
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
