// Package sqlite provides a SQLite-backed persistent store that mirrors the
// in-memory semantics and snapshots the full state after every successful
// transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"gardencore/internal/infra/persistence/memory"
	"gardencore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// Store persists the in-memory state to a single SQLite table as JSON blobs.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed persistent store.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = "gardencore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	mem := memory.NewStore(engine)
	s := &Store{Store: mem, db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

const (
	bucketPlants   = "plants"
	bucketPlots    = "plots"
	bucketTreasury = "treasury"
	bucketPool     = "pool"
	bucketEvents   = "events"
	bucketCursor   = "cursor"
)

var sqliteBuckets = []string{bucketPlants, bucketPlots, bucketTreasury, bucketPool, bucketEvents, bucketCursor}

// cursorState stores the sequence counters outside the entity buckets.
type cursorState struct {
	NextPlantID uint64 `json:"next_plant_id"`
	EventSeq    uint64 `json:"event_seq"`
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	type raw struct {
		bucket  string
		payload []byte
	}
	var raws []raw
	for rows.Next() {
		var r raw
		if err := rows.Scan(&r.bucket, &r.payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		raws = append(raws, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if len(raws) == 0 {
		return nil
	}
	snapshot := memory.Snapshot{}
	for _, r := range raws {
		switch r.bucket {
		case bucketPlants:
			if err := json.Unmarshal(r.payload, &snapshot.Plants); err != nil {
				return fmt.Errorf("decode plants: %w", err)
			}
		case bucketPlots:
			if err := json.Unmarshal(r.payload, &snapshot.Plots); err != nil {
				return fmt.Errorf("decode plots: %w", err)
			}
		case bucketTreasury:
			if err := json.Unmarshal(r.payload, &snapshot.Treasury); err != nil {
				return fmt.Errorf("decode treasury: %w", err)
			}
		case bucketPool:
			if err := json.Unmarshal(r.payload, &snapshot.Pool); err != nil {
				return fmt.Errorf("decode pool: %w", err)
			}
		case bucketEvents:
			if err := json.Unmarshal(r.payload, &snapshot.Events); err != nil {
				return fmt.Errorf("decode events: %w", err)
			}
		case bucketCursor:
			var cursor cursorState
			if err := json.Unmarshal(r.payload, &cursor); err != nil {
				return fmt.Errorf("decode cursor: %w", err)
			}
			snapshot.NextPlantID = cursor.NextPlantID
			snapshot.EventSeq = cursor.EventSeq
		}
	}
	s.ImportState(snapshot)
	return nil
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range sqliteBuckets {
		var data []byte
		switch bucket {
		case bucketPlants:
			data, err = json.Marshal(snapshot.Plants)
		case bucketPlots:
			data, err = json.Marshal(snapshot.Plots)
		case bucketTreasury:
			data, err = json.Marshal(snapshot.Treasury)
		case bucketPool:
			data, err = json.Marshal(snapshot.Pool)
		case bucketEvents:
			data, err = json.Marshal(snapshot.Events)
		case bucketCursor:
			data, err = json.Marshal(cursorState{NextPlantID: snapshot.NextPlantID, EventSeq: snapshot.EventSeq})
		}
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err = tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	return nil
}

// RunInTransaction applies the provided function within a transaction, then
// snapshots state to SQLite if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if err := s.persist(); err != nil {
		return res, fmt.Errorf("persist sqlite snapshot: %w", err)
	}
	return res, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the sqlite file backing the store.
func (s *Store) Path() string { return s.path }
