// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package shard

import (
	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/types"
)

const onChainMarkerPrefix byte = 201
const fnameMarkerPrefix byte = 202

func onChainMarkerKey(e *types.OnChainEvent) []byte {
	k := e.IdempotenceKey()
	return append([]byte{onChainMarkerPrefix}, k[:]...)
}

func fnameMarkerKey(t *types.FnameTransfer) []byte {
	var idb [8]byte
	for i := 0; i < 8; i++ {
		idb[7-i] = byte(t.ID >> (8 * i))
	}
	return append([]byte{fnameMarkerPrefix}, idb[:]...)
}

// applyOnChainEvent idempotently applies a single on-chain event: Rent
// events additively update the fid's RentRecord, every event type writes a
// replay-dedup marker keyed by (chain_id, block_hash, log_index). Returns
// applied=false if the marker already exists (duplicate replay).
func applyOnChainEvent(b *kv.Batch, ev *types.OnChainEvent) (bool, []byte, error) {
	mk := onChainMarkerKey(ev)
	if _, err := b.GetFromDBOrBatch(mk); err == nil {
		return false, nil, nil
	} else if err != kv.ErrNotFound {
		return false, nil, err
	}

	if rent, ok := ev.Body.(types.StorageRent); ok {
		if err := ApplyRent(b, ev.Fid, rent.Units, rent.Expiry); err != nil {
			return false, nil, err
		}
	}

	if err := b.Put(mk, []byte{1}); err != nil {
		return false, nil, err
	}
	return true, mk, nil
}

// applyFnameTransfer idempotently applies an off-chain fname registry
// transfer, keyed by its transfer ID.
func applyFnameTransfer(b *kv.Batch, t *types.FnameTransfer) (bool, []byte, error) {
	mk := fnameMarkerKey(t)
	if _, err := b.GetFromDBOrBatch(mk); err == nil {
		return false, nil, nil
	} else if err != kv.ErrNotFound {
		return false, nil, err
	}
	if err := b.Put(mk, []byte(t.Username)); err != nil {
		return false, nil, err
	}
	return true, mk, nil
}
