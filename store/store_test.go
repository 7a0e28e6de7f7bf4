// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store_test

import (
	"testing"

	"github.com/farcasterxyz/hubd/errs"
	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/store"
	"github.com/farcasterxyz/hubd/store/casts"
	"github.com/farcasterxyz/hubd/store/usernameproof"
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

func castAdd(fid types.Fid, ts uint32, hash byte) *types.Message {
	return &types.Message{
		Data: &types.MessageData{
			Fid:       fid,
			Type:      types.MessageTypeCastAdd,
			Timestamp: ts,
			Network:   types.NetworkMainnet,
			Body:      types.CastAdd{Text: "hello"},
		},
		Hash: [20]byte{hash},
	}
}

func castRemove(fid types.Fid, ts uint32, hash byte, targetHash [20]byte) *types.Message {
	return &types.Message{
		Data: &types.MessageData{
			Fid:       fid,
			Type:      types.MessageTypeCastRemove,
			Timestamp: ts,
			Network:   types.NetworkMainnet,
			Body:      types.CastRemove{TargetHash: targetHash},
		},
		Hash: [20]byte{hash},
	}
}

// TestCastAddThenRemove is spec.md §8 scenario 1.
func TestCastAddThenRemove(t *testing.T) {
	db := openDB(t)
	b := db.NewBatch()
	s := store.New(casts.Def{})
	handler := store.NewEventHandler(1, 1)

	add := castAdd(1234, 1000, 0xAA)
	if err := s.Merge(db, b, add, handler); err != nil {
		t.Fatalf("merge add: %v", err)
	}

	remove := castRemove(1234, 1001, 0xBB, add.Hash)
	if err := s.Merge(db, b, remove, handler); err != nil {
		t.Fatalf("merge remove: %v", err)
	}

	events := handler.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != store.HubEventTypeMergeMessage || events[0].Message != add {
		t.Fatalf("expected first event to be merge(add)")
	}
	if events[1].Type != store.HubEventTypeMergeMessage || events[1].Message != remove {
		t.Fatalf("expected second event to be merge(remove)")
	}
	if len(events[1].Conflicts) != 1 || events[1].Conflicts[0].Hash != add.Hash {
		t.Fatalf("expected remove's conflicts to include the add")
	}

	// The conflict key (the add's hash) must now resolve to the remove
	// tombstone, not the original add — the add's primary key is gone.
	probe := castRemove(1234, 2000, 0xCC, add.Hash)
	conflicts, err := casts.Def{}.GetMergeConflicts(db, b, probe, types.TsHash(2000, [20]byte{0xCC}))
	if err != nil {
		t.Fatal(err)
	}
	if len(conflicts) != 1 || conflicts[0].Hash != remove.Hash {
		t.Fatalf("expected the remove to be the sole owner of the conflict key, got %+v", conflicts)
	}
}

func usernameProof(fid types.Fid, ts uint32, hash byte, name string) *types.Message {
	return &types.Message{
		Data: &types.MessageData{
			Fid:       fid,
			Type:      types.MessageTypeUsernameProof,
			Timestamp: ts,
			Network:   types.NetworkMainnet,
			Body:      types.UsernameProof{Type: types.UsernameProofTypeFname, Name: []byte(name), Fid: fid},
		},
		Hash: [20]byte{hash},
	}
}

// TestDuplicateUsernameProof is spec.md §8 scenario 2.
func TestDuplicateUsernameProof(t *testing.T) {
	db := openDB(t)
	b := db.NewBatch()
	s := store.New(usernameproof.Def{})
	handler := store.NewEventHandler(1, 1)

	proof := usernameProof(1, 10, 0x01, "alice")
	if err := s.Merge(db, b, proof, handler); err != nil {
		t.Fatalf("first merge: %v", err)
	}

	err := s.Merge(db, b, proof, handler)
	if err == nil {
		t.Fatal("expected second merge of the identical proof to fail")
	}
	if !errs.Is(err, errs.KindDuplicate) {
		t.Fatalf("expected Kind=Duplicate, got %v", err)
	}

	owner, err := usernameproof.Def{}.GetMergeConflicts(db, b, usernameProof(1, 10, 0x01, "alice"), types.TsHash(10, [20]byte{0x01}))
	if err != nil {
		t.Fatal(err)
	}
	if len(owner) != 1 {
		t.Fatalf("expected exactly one by-name entry, got %d", len(owner))
	}
}

// TestUsernameProofConflictAcrossFids is spec.md §8 scenario 3: the
// by-name index must resolve across every fid, not scope to one.
func TestUsernameProofConflictAcrossFids(t *testing.T) {
	db := openDB(t)
	b := db.NewBatch()
	s := store.New(usernameproof.Def{})
	handler := store.NewEventHandler(1, 1)

	first := usernameProof(1, 10, 0x01, "alice")
	if err := s.Merge(db, b, first, handler); err != nil {
		t.Fatal(err)
	}

	second := usernameProof(2, 20, 0x02, "alice")
	if err := s.Merge(db, b, second, handler); err != nil {
		t.Fatalf("second proof should outrank and replace the first: %v", err)
	}

	owner, err := usernameproof.Def{}.GetMergeConflicts(db, b, usernameProof(999, 999, 0xFF, "alice"), types.TsHash(999, [20]byte{0xFF}))
	if err != nil {
		t.Fatal(err)
	}
	if len(owner) != 1 || owner[0].Data.Fid != 2 {
		t.Fatalf("expected \"alice\" to resolve to fid=2, got %+v", owner)
	}
}
