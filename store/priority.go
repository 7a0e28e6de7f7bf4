// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"bytes"

	"github.com/farcasterxyz/hubd/types"
)

// typePriority ranks a message's add/remove role for the CRDT tie-break:
// Remove outranks Add at equal timestamp. Compact-state messages share the
// add rank (they behave as an add for priority purposes).
func typePriority(def StoreDef, msg *types.Message) int {
	if def.IsRemoveType(msg) {
		return 1
	}
	return 0
}

// comparePriority implements spec.md §3's merge priority: higher timestamp
// wins; if equal, Remove beats Add; if same type and timestamp,
// lexicographically greater hash wins. Returns >0 if a outranks b, <0 if b
// outranks a, 0 if they are a Duplicate (identical priority — which, given
// hash is part of the tie-break, only happens for the same message hash).
func comparePriority(def StoreDef, a, b *types.Message) int {
	if a.Data.Timestamp != b.Data.Timestamp {
		if a.Data.Timestamp > b.Data.Timestamp {
			return 1
		}
		return -1
	}
	pa, pb := typePriority(def, a), typePriority(def, b)
	if pa != pb {
		return pa - pb
	}
	return bytes.Compare(a.Hash[:], b.Hash[:])
}
