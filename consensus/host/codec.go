// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package host

import (
	"encoding/binary"
	"fmt"

	"github.com/farcasterxyz/hubd/crypto/hashing"
	"github.com/farcasterxyz/hubd/store"
	"github.com/farcasterxyz/hubd/types"
)

func blake3Sum(b []byte) [32]byte { return hashing.Hash32(b) }

func putU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func putU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func getU32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, fmt.Errorf("host: truncated u32")
	}
	return binary.BigEndian.Uint32(b[:4]), b[4:], nil
}

func getU64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, fmt.Errorf("host: truncated u64")
	}
	return binary.BigEndian.Uint64(b[:8]), b[8:], nil
}

// encodeShardChunk produces the canonical on-wire form of a ShardChunk for
// gossip's decided-value topic and sync's GetDecidedValue responses. Not a
// protobuf encoding (the generic proto wire format lives at the gRPC/gossip
// codec boundary, spec.md §6) — this is the internal sync/archival
// encoding the Host itself round-trips.
func encodeShardChunk(c *types.ShardChunk) ([]byte, error) {
	var buf []byte
	buf = putU32(buf, uint32(c.Header.Height.ShardIndex))
	buf = putU64(buf, c.Header.Height.BlockNumber)
	buf = putU64(buf, uint64(c.Header.Timestamp))
	buf = append(buf, c.Header.ShardRoot[:]...)
	buf = append(buf, c.Header.ParentHash[:]...)

	buf = putU32(buf, uint32(len(c.Transactions)))
	for _, tx := range c.Transactions {
		fb := tx.Fid.Bytes()
		buf = append(buf, fb[:]...)
		buf = append(buf, tx.AccountRoot[:]...)
		buf = putU32(buf, uint32(len(tx.UserMessages)))
		for _, msg := range tx.UserMessages {
			enc, err := store.Encode(msg)
			if err != nil {
				return nil, err
			}
			buf = putU32(buf, uint32(len(enc)))
			buf = append(buf, enc...)
		}
	}
	return buf, nil
}

// DecodeShardChunk exposes decodeShardChunk to callers outside this
// package (the read-validator path decodes gossip's decided-value payload
// the same way ProcessSyncedValue does internally).
func DecodeShardChunk(b []byte) (*types.ShardChunk, error) {
	return decodeShardChunk(b)
}

// decodeShardChunk parses encodeShardChunk's output, recomputing the chunk
// hash the same way GetValue does (blake3 of the header).
func decodeShardChunk(b []byte) (*types.ShardChunk, error) {
	var shardIdx uint32
	var err error
	shardIdx, b, err = getU32(b)
	if err != nil {
		return nil, err
	}
	var blockNumber, ts uint64
	blockNumber, b, err = getU64(b)
	if err != nil {
		return nil, err
	}
	ts, b, err = getU64(b)
	if err != nil {
		return nil, err
	}
	if len(b) < 64 {
		return nil, fmt.Errorf("host: truncated chunk roots")
	}
	var shardRoot, parentHash [32]byte
	copy(shardRoot[:], b[:32])
	copy(parentHash[:], b[32:64])
	b = b[64:]

	hdr := types.ShardHeader{
		Height:     types.Height{ShardIndex: types.ShardIndex(shardIdx), BlockNumber: blockNumber},
		Timestamp:  int64(ts),
		ShardRoot:  shardRoot,
		ParentHash: parentHash,
	}

	var n uint32
	n, b, err = getU32(b)
	if err != nil {
		return nil, err
	}
	txs := make([]*types.Transaction, 0, n)
	for i := uint32(0); i < n; i++ {
		if len(b) < 4+32 {
			return nil, fmt.Errorf("host: truncated transaction header")
		}
		fid := types.FidFromBytes(b[:4])
		b = b[4:]
		var accountRoot [32]byte
		copy(accountRoot[:], b[:32])
		b = b[32:]

		var mcount uint32
		mcount, b, err = getU32(b)
		if err != nil {
			return nil, err
		}
		msgs := make([]*types.Message, 0, mcount)
		for j := uint32(0); j < mcount; j++ {
			var mlen uint32
			mlen, b, err = getU32(b)
			if err != nil {
				return nil, err
			}
			if uint32(len(b)) < mlen {
				return nil, fmt.Errorf("host: truncated message")
			}
			msg, derr := store.Decode(b[:mlen])
			if derr != nil {
				return nil, derr
			}
			msgs = append(msgs, msg)
			b = b[mlen:]
		}
		txs = append(txs, &types.Transaction{Fid: fid, UserMessages: msgs, AccountRoot: accountRoot})
	}

	chunk := &types.ShardChunk{Header: hdr, Transactions: txs}
	chunk.Hash = hashChunkHeader(hdr)
	return chunk, nil
}
