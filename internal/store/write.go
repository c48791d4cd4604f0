package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/denorm/internal/access"
	"github.com/roach88/denorm/internal/ir"
)

// WriteStats counts the outcome of a PutStore call.
type WriteStats struct {
	Written   int `json:"written"`
	Unchanged int `json:"unchanged"`
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Put stores entity under partition and id.
// Returns written=false when the stored row already has the same content;
// its seq is left untouched.
func (s *Store) Put(ctx context.Context, partition, id string, entity ir.IRValue) (written bool, err error) {
	written, err = s.put(ctx, s.db, partition, id, entity)
	if err != nil {
		return false, fmt.Errorf("put %s/%s: %w", partition, id, err)
	}
	return written, nil
}

// PutStore writes every entity of an in-memory entity store
// (partition -> id -> entity) in a single transaction.
// Partitions and ids are written in canonical order.
func (s *Store) PutStore(ctx context.Context, store ir.IRValue) (WriteStats, error) {
	var stats WriteStats
	if !access.IsStructured(store) {
		return stats, fmt.Errorf("put store: expected a map of partitions, got %T", store)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("put store: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	acc := access.For(store)
	for _, partition := range acc.Fields(store) {
		entities, _ := acc.Get(store, partition)
		if !access.IsStructured(entities) {
			return WriteStats{}, fmt.Errorf("put store: partition %q: expected a map of entities, got %T", partition, entities)
		}
		pacc := access.For(entities)
		for _, id := range pacc.Fields(entities) {
			entity, _ := pacc.Get(entities, id)
			written, err := s.put(ctx, tx, partition, id, entity)
			if err != nil {
				return WriteStats{}, fmt.Errorf("put store: %s/%s: %w", partition, id, err)
			}
			if written {
				stats.Written++
			} else {
				stats.Unchanged++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return WriteStats{}, fmt.Errorf("put store: commit: %w", err)
	}
	return stats, nil
}

func (s *Store) put(ctx context.Context, ex execer, partition, id string, entity ir.IRValue) (bool, error) {
	hash, err := ir.EntityHash(partition, id, entity)
	if err != nil {
		return false, err
	}

	var existing string
	err = ex.QueryRowContext(ctx, `
		SELECT hash FROM entities WHERE partition = ? AND id = ?
	`, partition, id).Scan(&existing)
	switch {
	case err == nil && existing == hash:
		return false, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("read hash: %w", err)
	}

	body, err := marshalEntity(entity)
	if err != nil {
		return false, err
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO entities (partition, id, body, hash, seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(partition, id) DO UPDATE SET
			body = excluded.body,
			hash = excluded.hash,
			seq = excluded.seq
	`, partition, id, body, hash, s.clock.Next())
	if err != nil {
		return false, fmt.Errorf("upsert: %w", err)
	}
	return true, nil
}

// Delete removes one entity. Returns false if it did not exist.
func (s *Store) Delete(ctx context.Context, partition, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM entities WHERE partition = ? AND id = ?
	`, partition, id)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", partition, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", partition, id, err)
	}

	s.mu.Lock()
	delete(s.loaded, rowKey{partition: partition, id: id})
	s.mu.Unlock()

	return n > 0, nil
}
