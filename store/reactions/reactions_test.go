// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reactions_test

import (
	"testing"

	"github.com/farcasterxyz/hubd/errs"
	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/store"
	"github.com/farcasterxyz/hubd/store/reactions"
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

func reactionAdd(fid types.Fid, ts uint32, hash byte, target types.Fid, targetHash [20]byte) *types.Message {
	return &types.Message{
		Data: &types.MessageData{
			Fid:       fid,
			Type:      types.MessageTypeReactionAdd,
			Timestamp: ts,
			Network:   types.NetworkMainnet,
			Body:      types.ReactionAdd{Type: types.ReactionTypeLike, TargetFid: &target, TargetHash: &targetHash},
		},
		Hash: [20]byte{hash},
	}
}

func reactionRemove(fid types.Fid, ts uint32, hash byte, target types.Fid, targetHash [20]byte) *types.Message {
	return &types.Message{
		Data: &types.MessageData{
			Fid:       fid,
			Type:      types.MessageTypeReactionRemove,
			Timestamp: ts,
			Network:   types.NetworkMainnet,
			Body:      types.ReactionRemove{Type: types.ReactionTypeLike, TargetFid: &target, TargetHash: &targetHash},
		},
		Hash: [20]byte{hash},
	}
}

// TestReactionAddThenRemove mirrors spec.md §8 scenario 1 for the
// (target, type) conflict key instead of the cast's own hash.
func TestReactionAddThenRemove(t *testing.T) {
	db := openDB(t)
	b := db.NewBatch()
	s := store.New(reactions.Def{})
	handler := store.NewEventHandler(1, 1)

	target := types.Fid(99)
	targetHash := [20]byte{0xEE}

	add := reactionAdd(1, 1000, 0xAA, target, targetHash)
	if err := s.Merge(db, b, add, handler); err != nil {
		t.Fatalf("merge add: %v", err)
	}

	remove := reactionRemove(1, 1001, 0xBB, target, targetHash)
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

// TestReactionLikeAndRecastDoNotConflict verifies the conflict key includes
// ReactionType: a like and a recast of the same target coexist.
func TestReactionLikeAndRecastDoNotConflict(t *testing.T) {
	db := openDB(t)
	b := db.NewBatch()
	s := store.New(reactions.Def{})
	handler := store.NewEventHandler(1, 1)

	target := types.Fid(99)
	targetHash := [20]byte{0xEE}

	like := reactionAdd(1, 1000, 0xAA, target, targetHash)
	if err := s.Merge(db, b, like, handler); err != nil {
		t.Fatalf("merge like: %v", err)
	}

	recast := &types.Message{
		Data: &types.MessageData{
			Fid:       1,
			Type:      types.MessageTypeReactionAdd,
			Timestamp: 1001,
			Network:   types.NetworkMainnet,
			Body:      types.ReactionAdd{Type: types.ReactionTypeRecast, TargetFid: &target, TargetHash: &targetHash},
		},
		Hash: [20]byte{0xCC},
	}
	if err := s.Merge(db, b, recast, handler); err != nil {
		t.Fatalf("recast of same target should not conflict with the like: %v", err)
	}

	events := handler.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 independent merges, got %d events", len(events))
	}
	if len(events[1].Conflicts) != 0 {
		t.Fatalf("expected no conflicts between a like and a recast of the same target")
	}
}

// TestDuplicateReaction confirms an identical re-merge is a Duplicate, not a
// Conflict (spec.md §7).
func TestDuplicateReaction(t *testing.T) {
	db := openDB(t)
	b := db.NewBatch()
	s := store.New(reactions.Def{})
	handler := store.NewEventHandler(1, 1)

	target := types.Fid(99)
	targetHash := [20]byte{0xEE}

	add := reactionAdd(1, 1000, 0xAA, target, targetHash)
	if err := s.Merge(db, b, add, handler); err != nil {
		t.Fatal(err)
	}

	err := s.Merge(db, b, add, handler)
	if !errs.Is(err, errs.KindDuplicate) {
		t.Fatalf("expected Kind=Duplicate re-merging the identical reaction, got %v", err)
	}
}
