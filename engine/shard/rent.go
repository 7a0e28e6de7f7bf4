// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package shard

import (
	"encoding/binary"

	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/types"
)

const rentPrefix byte = 200

// unitCapacity is the per-class capacity a single rented storage unit
// grants, on top of a class's built-in legacy limit
// (StoreDef.GetPruneSizeLimit()). SPEC_FULL.md §9 resolves the
// legacy-vs-rented open question as additive: effective cap = legacy +
// rented_units * unitCapacity.
const unitCapacity = 200

// RentRecord is a fid's current storage rent: how many units it has
// purchased (additive across every Rent event, never reset) and when that
// rent expires.
type RentRecord struct {
	Units     uint32
	ExpiresAt uint64 // unix seconds
}

func rentKey(fid types.Fid) []byte {
	fb := fid.Bytes()
	return append([]byte{rentPrefix}, fb[:]...)
}

func encodeRentRecord(r RentRecord) []byte {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint32(buf[:4], r.Units)
	binary.BigEndian.PutUint64(buf[4:], r.ExpiresAt)
	return buf
}

func decodeRentRecord(b []byte) RentRecord {
	if len(b) < 12 {
		return RentRecord{}
	}
	return RentRecord{
		Units:     binary.BigEndian.Uint32(b[:4]),
		ExpiresAt: binary.BigEndian.Uint64(b[4:]),
	}
}

// GetRent reads fid's current rent record, consulting the batch before the
// database (get_from_db_or_txn).
func GetRent(b *kv.Batch, fid types.Fid) (RentRecord, error) {
	raw, err := b.GetFromDBOrBatch(rentKey(fid))
	if err != nil {
		if err == kv.ErrNotFound {
			return RentRecord{}, nil
		}
		return RentRecord{}, err
	}
	return decodeRentRecord(raw), nil
}

// ApplyRent additively records a new Rent on-chain event: units purchased
// accumulate, and expiry is extended to the later of the current and new
// expiries (a renewal before expiry should never shorten it).
func ApplyRent(b *kv.Batch, fid types.Fid, units uint32, expiresAt uint64) error {
	cur, err := GetRent(b, fid)
	if err != nil {
		return err
	}
	cur.Units += units
	if expiresAt > cur.ExpiresAt {
		cur.ExpiresAt = expiresAt
	}
	return b.Put(rentKey(fid), encodeRentRecord(cur))
}

// EffectiveCap returns the total message cap for one class given a fid's
// current rent.
func EffectiveCap(legacyLimit int, rent RentRecord) int {
	return legacyLimit + int(rent.Units)*unitCapacity
}

// RentExpired reports whether rent has lapsed as of blockTimestamp. A fid
// that has never rented (ExpiresAt == 0) is never considered expired — it
// simply has no rented units, only its legacy cap.
func RentExpired(rent RentRecord, blockTimestamp uint64) bool {
	return rent.ExpiresAt != 0 && blockTimestamp > rent.ExpiresAt
}
