// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hashing wraps blake3, the content-addressing hash used for
// message hashes (20 bytes) and block/chunk/trie-node hashes (32 bytes).
// Grounded on the teacher's go.mod indirect dependency on zeebo/blake3,
// promoted here to a direct dependency since it is exactly the hash
// function spec.md §3 and §9 require.
package hashing

import (
	"github.com/zeebo/blake3"
)

// Hash20 returns the first 20 bytes of the blake3 digest of data, used for
// Message.Hash.
func Hash20(data []byte) [20]byte {
	full := blake3.Sum256(data)
	var out [20]byte
	copy(out[:], full[:20])
	return out
}

// Hash32 returns the full 32-byte blake3 digest, used for block, chunk, and
// trie-node hashes.
func Hash32(data []byte) [32]byte {
	return blake3.Sum256(data)
}

// Hasher accumulates multiple byte slices before producing a digest,
// avoiding an intermediate concatenation allocation — used by the trie when
// hashing a node's children.
type Hasher struct {
	h *blake3.Hasher
}

// NewHasher returns a fresh incremental hasher.
func NewHasher() *Hasher {
	return &Hasher{h: blake3.New()}
}

// Write appends data to the digest.
func (h *Hasher) Write(data []byte) {
	_, _ = h.h.Write(data)
}

// Sum32 finalizes the digest to 32 bytes without resetting the hasher.
func (h *Hasher) Sum32() [32]byte {
	var out [32]byte
	sum := h.h.Sum(nil)
	copy(out[:], sum)
	return out
}
