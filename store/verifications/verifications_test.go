// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package verifications_test

import (
	"bytes"
	"testing"

	"github.com/farcasterxyz/hubd/errs"
	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/store"
	"github.com/farcasterxyz/hubd/store/verifications"
	"github.com/farcasterxyz/hubd/types"
)

func openDB(t *testing.T) *kv.DB {
	t.Helper()
	db, err := kv.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func verifyAdd(fid types.Fid, ts uint32, hash byte, addr []byte) *types.Message {
	return &types.Message{
		Data: &types.MessageData{
			Fid:       fid,
			Type:      types.MessageTypeVerificationAddAddress,
			Timestamp: ts,
			Network:   types.NetworkMainnet,
			Body:      types.VerificationAddAddress{Address: addr, Protocol: types.VerificationProtocolEthereum},
		},
		Hash: [20]byte{hash},
	}
}

func verifyRemove(fid types.Fid, ts uint32, hash byte, addr []byte) *types.Message {
	return &types.Message{
		Data: &types.MessageData{
			Fid:       fid,
			Type:      types.MessageTypeVerificationRemove,
			Timestamp: ts,
			Network:   types.NetworkMainnet,
			Body:      types.VerificationRemove{Address: addr},
		},
		Hash: [20]byte{hash},
	}
}

func TestVerificationAddThenRemove(t *testing.T) {
	db := openDB(t)
	b := db.NewBatch()
	s := store.New(verifications.Def{})
	handler := store.NewEventHandler(1, 1)

	addr := bytes.Repeat([]byte{0x11}, 20)

	add := verifyAdd(1, 1000, 0xAA, addr)
	if err := s.Merge(db, b, add, handler); err != nil {
		t.Fatalf("merge add: %v", err)
	}

	remove := verifyRemove(1, 1001, 0xBB, addr)
	if err := s.Merge(db, b, remove, handler); err != nil {
		t.Fatalf("merge remove: %v", err)
	}

	events := handler.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if len(events[1].Conflicts) != 1 || events[1].Conflicts[0].Hash != add.Hash {
		t.Fatalf("expected remove's conflicts to include the add")
	}
}

func TestVerificationDistinctAddressesCoexist(t *testing.T) {
	db := openDB(t)
	b := db.NewBatch()
	s := store.New(verifications.Def{})
	handler := store.NewEventHandler(1, 1)

	a1 := verifyAdd(1, 1000, 0xAA, bytes.Repeat([]byte{0x11}, 20))
	if err := s.Merge(db, b, a1, handler); err != nil {
		t.Fatal(err)
	}
	a2 := verifyAdd(1, 1001, 0xBB, bytes.Repeat([]byte{0x22}, 20))
	if err := s.Merge(db, b, a2, handler); err != nil {
		t.Fatalf("a second address should not conflict with the first: %v", err)
	}

	if len(handler.Events()[1].Conflicts) != 0 {
		t.Fatalf("expected no conflict between distinct verified addresses")
	}
}

func TestDuplicateVerification(t *testing.T) {
	db := openDB(t)
	b := db.NewBatch()
	s := store.New(verifications.Def{})
	handler := store.NewEventHandler(1, 1)

	addr := bytes.Repeat([]byte{0x11}, 20)
	add := verifyAdd(1, 1000, 0xAA, addr)
	if err := s.Merge(db, b, add, handler); err != nil {
		t.Fatal(err)
	}

	if err := s.Merge(db, b, add, handler); !errs.Is(err, errs.KindDuplicate) {
		t.Fatalf("expected Kind=Duplicate re-merging the identical verification, got %v", err)
	}
}
