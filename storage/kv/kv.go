// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package kv is the embedded key-value layer the Engine and typed stores
// persist to. Spec.md names RocksDB explicitly but scopes the binding out
// of the core (§1); this repo binds the teacher's own direct dependency on
// cockroachdb/pebble instead — the only embedded LSM store in the example
// pack — exercising the same "single write batch per commit" discipline
// §5 requires of a RocksDB binding.
package kv

import (
	"errors"

	"github.com/cockroachdb/pebble"
)

// DB wraps a single pebble instance, one per shard.
type DB struct {
	pebble *pebble.DB
}

// Open opens (or creates) the database at dir.
func Open(dir string) (*DB, error) {
	p, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &DB{pebble: p}, nil
}

// Close closes the underlying pebble instance.
func (d *DB) Close() error {
	return d.pebble.Close()
}

// Get reads a single key directly from the committed database, bypassing
// any in-flight batch.
func (d *DB) Get(key []byte) ([]byte, error) {
	v, closer, err := d.pebble.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	out := make([]byte, len(v))
	copy(out, v)
	_ = closer.Close()
	return out, nil
}

// ErrNotFound is returned by Get and GetFromDBOrBatch when a key is absent.
var ErrNotFound = pebble.ErrNotFound

// NewIter returns an iterator over [lower, upper).
func (d *DB) NewIter(lower, upper []byte) (*pebble.Iterator, error) {
	return d.pebble.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
}

// Batch is the transaction batch every committed chunk is written through
// exactly once (spec.md §5: "RocksDB is accessed through a single
// RocksDbTransactionBatch per committed chunk").
type Batch struct {
	db    *DB
	batch *pebble.Batch
	// writes shadows pending mutations so proposal-time reads can observe
	// them before the batch is committed to the database (get_from_db_or_txn).
	writes  map[string][]byte
	deletes map[string]bool
}

// NewBatch opens a fresh write batch against db.
func (d *DB) NewBatch() *Batch {
	return &Batch{
		db:      d,
		batch:   d.pebble.NewBatch(),
		writes:  make(map[string][]byte),
		deletes: make(map[string]bool),
	}
}

// Put stages a write in the batch.
func (b *Batch) Put(key, value []byte) error {
	delete(b.deletes, string(key))
	cp := make([]byte, len(value))
	copy(cp, value)
	b.writes[string(key)] = cp
	return b.batch.Set(key, value, nil)
}

// Delete stages a delete in the batch.
func (b *Batch) Delete(key []byte) error {
	delete(b.writes, string(key))
	b.deletes[string(key)] = true
	return b.batch.Delete(key, nil)
}

// GetFromDBOrBatch consults the uncommitted batch first, then the
// underlying database — the read path proposal-time validation must use so
// a transaction observes its own prior writes within the same chunk.
func (b *Batch) GetFromDBOrBatch(key []byte) ([]byte, error) {
	ks := string(key)
	if b.deletes[ks] {
		return nil, ErrNotFound
	}
	if v, ok := b.writes[ks]; ok {
		return v, nil
	}
	return b.db.Get(key)
}

// Commit flushes the batch to the database in a single write.
func (b *Batch) Commit() error {
	return b.batch.Commit(pebble.Sync)
}
