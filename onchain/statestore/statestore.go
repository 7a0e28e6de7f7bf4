// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package statestore implements onchain.LocalStateStore over storage/kv, so
// a restarted subscriber resumes from the last block it processed rather
// than re-scanning from genesis (spec.md §4.5 step 1). Grounded on the same
// direct pebble binding engine/shard and the typed stores use.
package statestore

import (
	"encoding/binary"

	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/types"
)

// Store persists one uint64 block cursor per chain ID.
type Store struct {
	db *kv.DB
}

// New constructs a Store over an already-open database.
func New(db *kv.DB) *Store {
	return &Store{db: db}
}

func key(chain types.ChainID) []byte {
	var k [9]byte
	k[0] = 0xFE // reserved postfix, outside the typed-store RootPrefix space
	binary.BigEndian.PutUint64(k[1:], uint64(chain))
	return k[:]
}

// GetLatestBlock returns the last persisted block number for chain, or 0 if
// none has been recorded yet.
func (s *Store) GetLatestBlock(chain types.ChainID) (uint64, error) {
	v, err := s.db.Get(key(chain))
	if err == kv.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(v), nil
}

// SetLatestBlock persists block as the new cursor for chain.
func (s *Store) SetLatestBlock(chain types.ChainID, block uint64) error {
	b := s.db.NewBatch()
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], block)
	if err := b.Put(key(chain), v[:]); err != nil {
		return err
	}
	return b.Commit()
}
