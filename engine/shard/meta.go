// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package shard

import (
	"encoding/binary"
	"errors"

	"github.com/farcasterxyz/hubd/errs"
	"github.com/farcasterxyz/hubd/storage/kv"
)

// shardMetaPrefix keys the single (root hash, confirmed height) record a
// shard persists alongside every committed chunk, so Engine.New can rebuild
// its trie from durable storage after a restart instead of starting from
// an empty one whose root would diverge from every peer's (spec.md §4.4,
// §5). Disjoint from every other reserved prefix byte in this package
// (rentPrefix=200, onChainMarkerPrefix=201, fnameMarkerPrefix=202) and from
// trie's own node-storage prefix (210) and store.RootPrefix* (1, 2).
const shardMetaPrefix = 211

func shardMetaKey() []byte {
	return []byte{shardMetaPrefix}
}

// encodeShardMeta packs root ∥ confirmedHeight_be64.
func encodeShardMeta(root [32]byte, confirmedHeight uint64) []byte {
	buf := make([]byte, 32+8)
	copy(buf, root[:])
	binary.BigEndian.PutUint64(buf[32:], confirmedHeight)
	return buf
}

func decodeShardMeta(data []byte) (root [32]byte, confirmedHeight uint64, err error) {
	if len(data) != 32+8 {
		return root, 0, errs.New(errs.KindStorage, "shard: truncated meta record")
	}
	copy(root[:], data[:32])
	confirmedHeight = binary.BigEndian.Uint64(data[32:])
	return root, confirmedHeight, nil
}

// loadShardMeta reads the persisted (root, confirmedHeight) pair. ok is
// false on a fresh/genesis shard database that has never committed a
// chunk.
func loadShardMeta(db *kv.DB) (root [32]byte, confirmedHeight uint64, ok bool, err error) {
	data, err := db.Get(shardMetaKey())
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return root, 0, false, nil
		}
		return root, 0, false, errs.Wrap(errs.KindStorage, "read shard meta", err)
	}
	root, confirmedHeight, err = decodeShardMeta(data)
	if err != nil {
		return root, 0, false, err
	}
	return root, confirmedHeight, true, nil
}
