// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"github.com/farcasterxyz/hubd/types"
)

// RootPrefix distinguishes top-level key namespaces in the shard database.
type RootPrefix byte

const (
	RootPrefixUser   RootPrefix = 1
	RootPrefixGlobal RootPrefix = 2
)

// GlobalKey returns the fid-independent key prefix used by conflict
// indices that must resolve across every fid rather than within one —
// today, only the UsernameProof by-name index (spec.md §3: two fids can
// compete for the same name).
func GlobalKey(indexPrefix byte) []byte {
	return []byte{byte(RootPrefixGlobal), indexPrefix}
}

// UserKey returns the fid-scoped key prefix every per-user key is built on:
// RootPrefix::User ∥ fid_be32.
func UserKey(fid types.Fid) []byte {
	fb := fid.Bytes()
	return append([]byte{byte(RootPrefixUser)}, fb[:]...)
}

// PrimaryKey returns RootPrefix::User ∥ fid_be32 ∥ postfix ∥ ts_hash, the
// time-ordered primary key every stored message lives under.
func PrimaryKey(fid types.Fid, postfix byte, tsHash [24]byte) []byte {
	k := UserKey(fid)
	k = append(k, postfix)
	k = append(k, tsHash[:]...)
	return k
}

// PrimaryKeyPrefix returns the half-open-range prefix used to page through
// every message in one fid's class: UserKey ∥ postfix.
func PrimaryKeyPrefix(fid types.Fid, postfix byte) []byte {
	return append(UserKey(fid), postfix)
}
