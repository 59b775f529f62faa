// Package dtsnapshot persists the doc table (C4) to a SQLite sidecar,
// giving it durability beyond whatever the host key/value store provides
// (spec.md §1 scopes "durability beyond what the host provides" as a
// non-goal for the core engine itself, but SPEC_FULL.md §3 gives the
// doc-table snapshot a concrete, test-exercised home so the pack's
// SQLite drivers have somewhere to live).
//
// Grounded on the teacher's internal/store/sqlite_bm25.go: WAL mode,
// pragma tuning, schema-version bootstrap, same transactional bulk-write
// pattern. Write access is additionally serialized across processes with
// github.com/gofrs/flock, the same cross-process locking idiom as the
// teacher's internal/embed/lock.go (there guarding a concurrent model
// download; here guarding a concurrent snapshot write).
package dtsnapshot

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/ftengine/ftengine/internal/doctable"
)

// Store persists doctable.Table snapshots to a SQLite file.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open opens (creating if necessary) a snapshot store at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("dtsnapshot: path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("dtsnapshot: create directory: %w", err)
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("dtsnapshot: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("dtsnapshot: set pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, path: path, lock: flock.New(path + ".lock")}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);
	CREATE TABLE IF NOT EXISTS doc_snapshot (
		doc_id      INTEGER PRIMARY KEY,
		key         BLOB NOT NULL,
		score       REAL NOT NULL,
		flags       INTEGER NOT NULL,
		doc_len     INTEGER NOT NULL,
		max_freq    INTEGER NOT NULL,
		payload     BLOB,
		sort_vector BLOB,
		byte_offsets BLOB,
		expires_at  INTEGER
	);
	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes a full snapshot of table, replacing any prior contents.
// The write is serialized across processes via an exclusive file lock,
// and against other writers in this process via a single transaction.
func (s *Store) Save(ctx context.Context, table *doctable.Table) error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("dtsnapshot: acquire write lock: %w", err)
	}
	defer s.lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dtsnapshot: begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM doc_snapshot"); err != nil {
		tx.Rollback()
		return fmt.Errorf("dtsnapshot: clear previous snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO doc_snapshot
			(doc_id, key, score, flags, doc_len, max_freq, payload, sort_vector, byte_offsets, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("dtsnapshot: prepare insert: %w", err)
	}
	defer stmt.Close()

	var rowErr error
	table.ForEach(func(rec doctable.SnapshotRecord) {
		if rowErr != nil {
			return
		}
		var sortVecBlob []byte
		if len(rec.SortVector) > 0 {
			sortVecBlob, rowErr = encodeGob(rec.SortVector)
			if rowErr != nil {
				return
			}
		}
		var expiresAt any
		if rec.Expiration != nil {
			expiresAt = rec.Expiration.Unix()
		}

		_, rowErr = stmt.ExecContext(ctx,
			rec.ID, rec.Key, rec.Score, uint32(rec.Flags), rec.Len, rec.MaxFreq,
			nullableBlob(rec.Payload), nullableBlob(sortVecBlob), nullableBlob(rec.ByteOffsets), expiresAt,
		)
	})
	if rowErr != nil {
		tx.Rollback()
		return fmt.Errorf("dtsnapshot: write record: %w", rowErr)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("dtsnapshot: commit: %w", err)
	}
	return nil
}

// Load repopulates table from the most recent snapshot, preserving
// doc-ids via doctable.Table.Restore.
func (s *Store) Load(ctx context.Context, table *doctable.Table) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, key, score, flags, doc_len, max_freq, payload, sort_vector, byte_offsets, expires_at
		FROM doc_snapshot ORDER BY doc_id ASC
	`)
	if err != nil {
		return fmt.Errorf("dtsnapshot: query snapshot: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id                                  uint64
			key, payload, sortVecBlob, byteOffs []byte
			score                               float32
			flags                               uint32
			docLen, maxFreq                     uint32
			expiresAt                           sql.NullInt64
		)
		if err := rows.Scan(&id, &key, &score, &flags, &docLen, &maxFreq, &payload, &sortVecBlob, &byteOffs, &expiresAt); err != nil {
			return fmt.Errorf("dtsnapshot: scan row: %w", err)
		}

		rec := doctable.SnapshotRecord{
			Key:         key,
			ID:          id,
			Score:       score,
			Flags:       doctable.Flags(flags),
			Len:         docLen,
			MaxFreq:     maxFreq,
			Payload:     payload,
			ByteOffsets: byteOffs,
		}
		if len(sortVecBlob) > 0 {
			var sv []doctable.SortValue
			if err := decodeGob(sortVecBlob, &sv); err != nil {
				return fmt.Errorf("dtsnapshot: decode sort vector for doc %d: %w", id, err)
			}
			rec.SortVector = sv
		}
		if expiresAt.Valid {
			t := time.Unix(expiresAt.Int64, 0)
			rec.Expiration = &t
		}
		table.Restore(rec)
	}
	return rows.Err()
}

func nullableBlob(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
