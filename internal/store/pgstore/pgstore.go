// Package pgstore implements store.Store on PostgreSQL.
//
// Each dataset is one table of jsonb documents tagged with their partition.
// Tables are created on first use. Filters and sort keys address document
// fields, so jsonb ordering applies: numbers compare numerically and
// RFC 3339 UTC timestamps compare lexicographically, which matches time
// order.
package pgstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/option-data/internal/config"
	"github.com/rickgao/option-data/internal/model"
	"github.com/rickgao/option-data/internal/store"
)

// Store is a PostgreSQL-backed store.Store.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	mu     sync.Mutex
	tables map[model.Dataset]bool
}

var _ store.Store = (*Store)(nil)

// Connect opens a pool from cfg.
func Connect(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (*Store, error) {
	pool, err := connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := New(pool, logger)
	s.logger.Info("connected to postgres", "host", cfg.Host, "database", cfg.Name)
	return s, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		pool:   pool,
		logger: logger,
		tables: make(map[model.Dataset]bool),
	}
}

// ensureTable creates the dataset table once per process.
func (s *Store) ensureTable(ctx context.Context, d model.Dataset) (string, error) {
	table, err := tableName(d)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tables[d] {
		return table, nil
	}
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(createTableSQL, table)); err != nil {
		return "", fmt.Errorf("create table %s: %w", d, err)
	}
	s.tables[d] = true
	return table, nil
}

// Latest implements store.Store.
func (s *Store) Latest(ctx context.Context, c store.Collection, sortKey []string, filter []store.Cond, out any) (bool, error) {
	if len(sortKey) == 0 {
		return false, fmt.Errorf("latest %s: empty sort key", c)
	}
	docs, err := s.query(ctx, c, store.LatestQuery(sortKey, filter))
	if err != nil {
		return false, fmt.Errorf("latest %s: %w", c, err)
	}
	if len(docs) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(docs[0], out); err != nil {
		return false, fmt.Errorf("latest %s: decode: %w", c, err)
	}
	return true, nil
}

// Find implements store.Store.
func (s *Store) Find(ctx context.Context, c store.Collection, q store.Query, out any) error {
	docs, err := s.query(ctx, c, q)
	if err != nil {
		return fmt.Errorf("find %s: %w", c, err)
	}
	if err := json.Unmarshal(jsonArray(docs), out); err != nil {
		return fmt.Errorf("find %s: decode: %w", c, err)
	}
	return nil
}

func (s *Store) query(ctx context.Context, c store.Collection, q store.Query) ([][]byte, error) {
	if _, err := s.ensureTable(ctx, c.Dataset); err != nil {
		return nil, err
	}
	sql, args, err := buildSelect(c.Dataset, c.Partition, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	docs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func jsonArray(docs [][]byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, d := range docs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(d)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

// InsertMany implements store.Store. The batch runs in one transaction;
// rows rejected by a unique index are counted as conflicts.
func (s *Store) InsertMany(ctx context.Context, c store.Collection, docs []any) (int, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}
	table, err := s.ensureTable(ctx, c.Dataset)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	sql := fmt.Sprintf(insertSQL, table)
	batch := &pgx.Batch{}
	for i, d := range docs {
		raw, err := json.Marshal(d)
		if err != nil {
			return 0, fmt.Errorf("insert %s: document %d: %w", c, i, err)
		}
		batch.Queue(sql, c.Partition, string(raw))
	}

	conflicts := 0
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		defer results.Close()

		for range docs {
			ct, err := results.Exec()
			if err != nil {
				return err
			}
			if ct.RowsAffected() == 0 {
				conflicts++
			}
		}
		return results.Close()
	})
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", c, err)
	}

	s.logger.Debug("inserted documents",
		"collection", c.String(),
		"count", len(docs)-conflicts,
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
	return len(docs) - conflicts, nil
}

// AtomicInserts implements store.Store. Each batch is one transaction.
func (s *Store) AtomicInserts() bool { return true }

// EnsureIndex implements store.Store.
func (s *Store) EnsureIndex(ctx context.Context, c store.Collection, idx store.Index) error {
	if _, err := s.ensureTable(ctx, c.Dataset); err != nil {
		return err
	}
	sql, err := buildIndex(c.Dataset, idx)
	if err != nil {
		return fmt.Errorf("ensure index on %s: %w", c, err)
	}
	if _, err := s.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("ensure index %s on %s: %w", idx.Name(), c, err)
	}
	return nil
}

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close implements store.Store.
func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}
