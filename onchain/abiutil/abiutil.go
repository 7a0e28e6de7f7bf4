// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package abiutil is a minimal, dependency-light Solidity ABI word reader
// shared by the chain-specific decoders (onchain/optimism, onchain/base).
// Registry events only ever carry addresses, uint256/uint32/uint8, and a
// handful of dynamic bytes fields, so a full accounts/abi.Arguments
// unpacker is unnecessary; this package reads the fixed 32-byte-word
// layout the ABI spec guarantees directly.
package abiutil

import (
	"encoding/binary"
	"fmt"
	"math/big"

	gethcommon "github.com/ethereum/go-ethereum/common"
)

// Word reads the i-th 32-byte ABI word from data.
func Word(data []byte, i int) ([]byte, error) {
	start := i * 32
	if start+32 > len(data) {
		return nil, fmt.Errorf("abiutil: truncated abi data at word %d", i)
	}
	return data[start : start+32], nil
}

// Address reads an address encoded as the low 20 bytes of word i.
func Address(data []byte, i int) (addr [20]byte, err error) {
	w, err := Word(data, i)
	if err != nil {
		return addr, err
	}
	copy(addr[:], w[12:32])
	return addr, nil
}

// Uint64 reads the low 8 bytes of word i — sufficient for every numeric
// field these events carry (fid, units, tier, forDays, timestamps all fit
// in 64 bits).
func Uint64(data []byte, i int) (uint64, error) {
	w, err := Word(data, i)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(w[24:32]), nil
}

// Uint32 reads the low 4 bytes of word i (enum-like fields: keyType,
// metadataType, tier).
func Uint32(data []byte, i int) (uint32, error) {
	w, err := Word(data, i)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(w[28:32]), nil
}

// DynamicBytes resolves a dynamic `bytes` ABI field whose head word at
// wordIndex holds a byte offset into data, per the standard ABI tail
// encoding (offset, then length-prefixed payload at that offset).
func DynamicBytes(data []byte, wordIndex int) ([]byte, error) {
	offW, err := Word(data, wordIndex)
	if err != nil {
		return nil, err
	}
	off := new(big.Int).SetBytes(offW).Int64()
	if off < 0 || int(off)+32 > len(data) {
		return nil, fmt.Errorf("abiutil: dynamic bytes offset out of range")
	}
	lenW := data[off : off+32]
	length := new(big.Int).SetBytes(lenW).Int64()
	start := off + 32
	if length < 0 || int(start+length) > len(data) {
		return nil, fmt.Errorf("abiutil: dynamic bytes length out of range")
	}
	return data[start : start+length], nil
}

// TopicUint64 reads an indexed uint256 topic's low 8 bytes.
func TopicUint64(t gethcommon.Hash) uint64 {
	return binary.BigEndian.Uint64(t[24:32])
}

// TopicAddress reads an indexed address topic.
func TopicAddress(t gethcommon.Hash) (addr [20]byte) {
	copy(addr[:], t[12:32])
	return addr
}
