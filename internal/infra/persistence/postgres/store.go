// Package postgres provides a PostgreSQL-backed persistent store following the
// same snapshotting strategy as the sqlite driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"gardencore/internal/infra/persistence/memory"
	"gardencore/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

// Store persists the in-memory state to a single PostgreSQL table as JSON blobs.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore connects using the provided DSN and hydrates any previously
// persisted snapshot.
func NewStore(dsn string, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BYTEA NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	mem := memory.NewStore(engine)
	s := &Store{Store: mem, db: db}
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

var postgresBuckets = []string{bucketPlants, bucketPlots, bucketTreasury, bucketPool, bucketEvents, bucketCursor}

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
	payloads := map[string][]byte{}
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		payloads[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if len(payloads) == 0 {
		return nil
	}
	snapshot := memory.Snapshot{}
	if data, ok := payloads[bucketPlants]; ok {
		if err := json.Unmarshal(data, &snapshot.Plants); err != nil {
			return fmt.Errorf("decode plants: %w", err)
		}
	}
	if data, ok := payloads[bucketPlots]; ok {
		if err := json.Unmarshal(data, &snapshot.Plots); err != nil {
			return fmt.Errorf("decode plots: %w", err)
		}
	}
	if data, ok := payloads[bucketTreasury]; ok {
		if err := json.Unmarshal(data, &snapshot.Treasury); err != nil {
			return fmt.Errorf("decode treasury: %w", err)
		}
	}
	if data, ok := payloads[bucketPool]; ok {
		if err := json.Unmarshal(data, &snapshot.Pool); err != nil {
			return fmt.Errorf("decode pool: %w", err)
		}
	}
	if data, ok := payloads[bucketEvents]; ok {
		if err := json.Unmarshal(data, &snapshot.Events); err != nil {
			return fmt.Errorf("decode events: %w", err)
		}
	}
	if data, ok := payloads[bucketCursor]; ok {
		var cursor cursorState
		if err := json.Unmarshal(data, &cursor); err != nil {
			return fmt.Errorf("decode cursor: %w", err)
		}
		snapshot.NextPlantID = cursor.NextPlantID
		snapshot.EventSeq = cursor.EventSeq
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
	for _, bucket := range postgresBuckets {
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
		if _, err = tx.Exec(`INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT (bucket) DO UPDATE SET payload = EXCLUDED.payload`, bucket, data); err != nil {
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
// snapshots state to PostgreSQL if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if err := s.persist(); err != nil {
		return res, fmt.Errorf("persist postgres snapshot: %w", err)
	}
	return res, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
