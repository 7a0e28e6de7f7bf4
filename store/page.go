// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"bytes"

	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/types"
)

// IncrementPrefix returns the smallest byte string strictly greater than
// every string with the given prefix — the half-open range's upper bound
// (spec.md §4.3: "prefix + increment(prefix) as a half-open range").
// A prefix of all 0xff bytes has no successor and returns nil (unbounded).
func IncrementPrefix(prefix []byte) []byte {
	up := make([]byte, len(prefix))
	copy(up, prefix)
	for i := len(up) - 1; i >= 0; i-- {
		if up[i] < 0xff {
			up[i]++
			return up[:i+1]
		}
	}
	return nil
}

// Page iterates messages whose primary key starts with prefix, in
// ascending key order, returning up to pageSize decoded messages plus a
// token to resume from. An empty token starts from the beginning of the
// prefix; passing the returned nextToken back resumes exactly where the
// previous page left off, so chaining pages yields the complete ordered
// set exactly once (spec.md §4.3, §8 "Paging").
func Page(db *kv.DB, prefix []byte, pageSize int, pageToken []byte) (msgs []*types.Message, nextToken []byte, err error) {
	if pageSize < 1 {
		pageSize = 1
	}
	lower := prefix
	if len(pageToken) > 0 {
		lower = append(append([]byte{}, pageToken...), 0x00)
	}
	upper := IncrementPrefix(prefix)

	it, err := db.NewIter(lower, upper)
	if err != nil {
		return nil, nil, err
	}
	defer it.Close()

	var lastKey []byte
	for it.First(); it.Valid() && len(msgs) < pageSize; it.Next() {
		if !bytes.HasPrefix(it.Key(), prefix) {
			continue
		}
		msg, derr := Decode(it.Value())
		if derr != nil {
			return nil, nil, derr
		}
		msgs = append(msgs, msg)
		lastKey = append([]byte{}, it.Key()...)
	}
	if err := it.Error(); err != nil {
		return nil, nil, err
	}

	// Peek one more key to decide whether a next page actually exists;
	// otherwise the final page's token would wrongly imply more data.
	if lastKey != nil {
		peek, perr := db.NewIter(append(append([]byte{}, lastKey...), 0x00), upper)
		if perr != nil {
			return nil, nil, perr
		}
		hasMore := peek.First() && peek.Valid() && bytes.HasPrefix(peek.Key(), prefix)
		_ = peek.Close()
		if hasMore {
			nextToken = lastKey
		}
	}
	return msgs, nextToken, nil
}
