package cachestorage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rohmanhakim/asset-interceptor/pkg/fileutil"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStorage is a persistent Storage backed by a single SQLite file.
// Partitions survive restarts, which is what makes version-named partitions
// and activation-time reconciliation meaningful across deployments.
//
// Stored bodies are zstd-compressed; digests are computed over the
// uncompressed body.
type SQLiteStorage struct {
	sqlDB   *sql.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// OpenSQLite opens (creating if needed) the SQLite store at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStorage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &StorageError{Message: "storage path is required", Cause: ErrCauseOpenFailure}
	}
	cleanPath := filepath.Clean(path)
	if err := fileutil.EnsureParentDir(cleanPath); err != nil {
		return nil, &StorageError{Message: err.Error(), Cause: ErrCauseOpenFailure}
	}

	dsn := "file:" + cleanPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &StorageError{Message: fmt.Sprintf("open sqlite db: %v", err), Cause: ErrCauseOpenFailure}
	}
	// one writer at a time; SQLite serializes writes anyway
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, &StorageError{Message: fmt.Sprintf("ping sqlite db: %v", err), Cause: ErrCauseOpenFailure}
	}
	if _, err := sqlDB.Exec(schemaSQL); err != nil {
		_ = sqlDB.Close()
		return nil, &StorageError{Message: fmt.Sprintf("apply schema: %v", err), Cause: ErrCauseOpenFailure}
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = sqlDB.Close()
		return nil, &StorageError{Message: fmt.Sprintf("create zstd encoder: %v", err), Cause: ErrCauseOpenFailure}
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		_ = encoder.Close()
		_ = sqlDB.Close()
		return nil, &StorageError{Message: fmt.Sprintf("create zstd decoder: %v", err), Cause: ErrCauseOpenFailure}
	}

	return &SQLiteStorage{
		sqlDB:   sqlDB,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// Close releases the SQLite connection.
func (s *SQLiteStorage) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	s.decoder.Close()
	_ = s.encoder.Close()
	return s.sqlDB.Close()
}

func (s *SQLiteStorage) Open(ctx context.Context, name string) (Partition, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &StorageError{Message: "partition name is required", Cause: ErrCauseInvalidRequest}
	}
	// opening an existing partition is read-only; only a missing one is inserted
	id, err := s.partitionID(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.sqlDB.ExecContext(ctx,
			"INSERT OR IGNORE INTO partitions (name, created_at) VALUES (?, ?)",
			name, time.Now().UTC().UnixMilli(),
		); err != nil {
			return nil, &StorageError{Message: err.Error(), Cause: ErrCauseWriteFailure, Partition: name}
		}
		id, err = s.partitionID(ctx, name)
	}
	if err != nil {
		return nil, &StorageError{Message: err.Error(), Cause: ErrCauseReadFailure, Partition: name}
	}
	return &sqlitePartition{store: s, id: id, name: name}, nil
}

func (s *SQLiteStorage) partitionID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.sqlDB.QueryRowContext(ctx, "SELECT id FROM partitions WHERE name = ?", name).Scan(&id)
	return id, err
}

func (s *SQLiteStorage) Has(ctx context.Context, name string) (bool, error) {
	_, err := s.partitionID(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &StorageError{Message: err.Error(), Cause: ErrCauseReadFailure, Partition: name}
	}
	return true, nil
}

func (s *SQLiteStorage) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT name FROM partitions ORDER BY id")
	if err != nil {
		return nil, &StorageError{Message: err.Error(), Cause: ErrCauseReadFailure}
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &StorageError{Message: err.Error(), Cause: ErrCauseReadFailure}
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Message: err.Error(), Cause: ErrCauseReadFailure}
	}
	return names, nil
}

func (s *SQLiteStorage) Delete(ctx context.Context, name string) (bool, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return false, &StorageError{Message: err.Error(), Cause: ErrCauseDeleteFailure, Partition: name}
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM partitions WHERE name = ?", name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &StorageError{Message: err.Error(), Cause: ErrCauseDeleteFailure, Partition: name}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE partition_id = ?", id); err != nil {
		return false, &StorageError{Message: err.Error(), Cause: ErrCauseDeleteFailure, Partition: name}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM partitions WHERE id = ?", id); err != nil {
		return false, &StorageError{Message: err.Error(), Cause: ErrCauseDeleteFailure, Partition: name}
	}
	if err := tx.Commit(); err != nil {
		return false, &StorageError{Message: err.Error(), Cause: ErrCauseDeleteFailure, Partition: name}
	}
	return true, nil
}

type sqlitePartition struct {
	store *SQLiteStorage
	id    int64
	name  string
}

func (p *sqlitePartition) Name() string {
	return p.name
}

func (p *sqlitePartition) Match(ctx context.Context, key RequestKey) (Response, bool, error) {
	var (
		status     int
		headerJSON string
		body       []byte
		digest     string
		storedAt   int64
	)
	err := p.store.sqlDB.QueryRowContext(ctx,
		`SELECT status, header, body, digest, stored_at FROM entries
		 WHERE partition_id = ? AND method = ? AND url = ?`,
		p.id, key.Method, key.URL,
	).Scan(&status, &headerJSON, &body, &digest, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Response{}, false, nil
	}
	if err != nil {
		return Response{}, false, &StorageError{Message: err.Error(), Cause: ErrCauseReadFailure, Partition: p.name}
	}

	header := http.Header{}
	if err := json.Unmarshal([]byte(headerJSON), &header); err != nil {
		return Response{}, false, &StorageError{
			Message:   fmt.Sprintf("decode header of %s: %v", key, err),
			Cause:     ErrCauseCorruptEntry,
			Partition: p.name,
		}
	}
	if header == nil {
		header = http.Header{}
	}
	decoded, err := p.store.decoder.DecodeAll(body, nil)
	if err != nil {
		return Response{}, false, &StorageError{
			Message:   fmt.Sprintf("decompress body of %s: %v", key, err),
			Cause:     ErrCauseCorruptEntry,
			Partition: p.name,
		}
	}
	if decoded == nil {
		decoded = []byte{}
	}

	return Response{
		Status:   status,
		Header:   header,
		Body:     decoded,
		Digest:   digest,
		StoredAt: time.UnixMilli(storedAt).UTC(),
	}, true, nil
}

func (p *sqlitePartition) Put(ctx context.Context, key RequestKey, resp Response) error {
	return p.PutAll(ctx, []Entry{{Key: key, Response: resp}})
}

func (p *sqlitePartition) PutAll(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := p.store.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseWriteFailure, Partition: p.name}
	}
	defer func() { _ = tx.Rollback() }()

	var seq int64
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) FROM entries WHERE partition_id = ?", p.id,
	).Scan(&seq); err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseReadFailure, Partition: p.name}
	}

	for _, e := range entries {
		headerJSON, err := json.Marshal(e.Response.Header)
		if err != nil {
			return &StorageError{Message: err.Error(), Cause: ErrCauseWriteFailure, Partition: p.name}
		}
		compressed := p.store.encoder.EncodeAll(e.Response.Body, nil)
		storedAt := e.Response.StoredAt
		if storedAt.IsZero() {
			storedAt = time.Now()
		}
		seq++

		// an existing entry keeps its original position
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entries (partition_id, seq, method, url, status, header, body, body_size, digest, stored_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (partition_id, method, url) DO UPDATE SET
			   status = excluded.status,
			   header = excluded.header,
			   body = excluded.body,
			   body_size = excluded.body_size,
			   digest = excluded.digest,
			   stored_at = excluded.stored_at`,
			p.id, seq, e.Key.Method, e.Key.URL, e.Response.Status, string(headerJSON),
			compressed, len(e.Response.Body), e.Response.Digest, storedAt.UTC().UnixMilli(),
		); err != nil {
			return &StorageError{
				Message:   fmt.Sprintf("store %s: %v", e.Key, err),
				Cause:     ErrCauseWriteFailure,
				Partition: p.name,
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Message: err.Error(), Cause: ErrCauseWriteFailure, Partition: p.name}
	}
	return nil
}

func (p *sqlitePartition) Keys(ctx context.Context) ([]RequestKey, error) {
	rows, err := p.store.sqlDB.QueryContext(ctx,
		"SELECT method, url FROM entries WHERE partition_id = ? ORDER BY seq", p.id)
	if err != nil {
		return nil, &StorageError{Message: err.Error(), Cause: ErrCauseReadFailure, Partition: p.name}
	}
	defer rows.Close()

	var keys []RequestKey
	for rows.Next() {
		var k RequestKey
		if err := rows.Scan(&k.Method, &k.URL); err != nil {
			return nil, &StorageError{Message: err.Error(), Cause: ErrCauseReadFailure, Partition: p.name}
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Message: err.Error(), Cause: ErrCauseReadFailure, Partition: p.name}
	}
	return keys, nil
}
