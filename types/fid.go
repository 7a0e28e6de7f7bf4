// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package types defines the wire data model shared by every component: user
// identifiers, heights, messages, on-chain events, and the shard/block
// envelope types that the Engine and Trie operate on.
package types

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Fid is a user identifier. It is logically a uint64 but is persisted as a
// big-endian uint32 (see FidMax); every caller-facing constructor validates
// the range so downstream code never has to re-check it.
type Fid uint64

// FidMax is the largest representable Fid: on-disk fids are big-endian
// 32-bit for compactness.
const FidMax = math.MaxUint32

// NewFid validates and constructs a Fid from a uint64.
func NewFid(v uint64) (Fid, error) {
	if v > FidMax {
		return 0, fmt.Errorf("fid %d exceeds max %d", v, FidMax)
	}
	return Fid(v), nil
}

// Bytes returns the big-endian 4-byte on-disk encoding of the fid.
func (f Fid) Bytes() [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(f))
	return b
}

// FidFromBytes decodes the big-endian 4-byte on-disk encoding.
func FidFromBytes(b []byte) Fid {
	return Fid(binary.BigEndian.Uint32(b))
}

func (f Fid) String() string {
	return fmt.Sprintf("fid:%d", uint64(f))
}

// ShardIndex identifies a shard; shard 0 is the block shard.
type ShardIndex uint32

// IsBlockShard reports whether this is the witness shard (shard 0).
func (s ShardIndex) IsBlockShard() bool { return s == 0 }

func (s ShardIndex) String() string { return fmt.Sprintf("%d", uint32(s)) }

// ShardForFid deterministically assigns fid to one of numShards user
// shards (1..numShards); shard 0 is reserved for the block shard and is
// never returned here. Every replica and every RPC front-end must agree on
// this assignment, so it lives alongside the rest of the shared data model
// rather than in any one component.
func ShardForFid(fid Fid, numShards uint32) ShardIndex {
	if numShards == 0 {
		return 1
	}
	return ShardIndex(1 + uint32(fid)%numShards)
}

// Height is a shard-scoped block number: (shard_index, block_number).
type Height struct {
	ShardIndex  ShardIndex
	BlockNumber uint64
}

func (h Height) String() string {
	return fmt.Sprintf("(shard=%d,block=%d)", h.ShardIndex, h.BlockNumber)
}

// Next returns the height immediately following h on the same shard.
func (h Height) Next() Height {
	return Height{ShardIndex: h.ShardIndex, BlockNumber: h.BlockNumber + 1}
}

// Less orders heights first by shard, then by block number.
func (h Height) Less(o Height) bool {
	if h.ShardIndex != o.ShardIndex {
		return h.ShardIndex < o.ShardIndex
	}
	return h.BlockNumber < o.BlockNumber
}

// FarcasterEpoch is the Unix timestamp of the Farcaster epoch (2021-01-01
// UTC); MessageData timestamps are seconds relative to it, and fit in a
// u32 until year ~2157.
const FarcasterEpoch int64 = 1609459200

// FarcasterTimestamp converts a Unix timestamp to a Farcaster timestamp.
func FarcasterTimestamp(unixSeconds int64) uint32 {
	return uint32(unixSeconds - FarcasterEpoch)
}

// UnixSeconds converts a Farcaster timestamp back to Unix seconds.
func UnixSeconds(ts uint32) int64 {
	return FarcasterEpoch + int64(ts)
}
