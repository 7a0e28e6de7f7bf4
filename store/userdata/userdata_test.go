// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package userdata_test

import (
	"testing"

	"github.com/farcasterxyz/hubd/errs"
	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/store"
	"github.com/farcasterxyz/hubd/store/userdata"
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

func userDataAdd(fid types.Fid, ts uint32, hash byte, udType types.UserDataType, value string) *types.Message {
	return &types.Message{
		Data: &types.MessageData{
			Fid:       fid,
			Type:      types.MessageTypeUserDataAdd,
			Timestamp: ts,
			Network:   types.NetworkMainnet,
			Body:      types.UserDataAdd{Type: udType, Value: value},
		},
		Hash: [20]byte{hash},
	}
}

// TestUserDataLaterAddReplacesEarlier: UserData has no remove type, so a
// later add for the same UserDataType simply outranks and replaces the one
// it conflicts with.
func TestUserDataLaterAddReplacesEarlier(t *testing.T) {
	db := openDB(t)
	b := db.NewBatch()
	s := store.New(userdata.Def{})
	handler := store.NewEventHandler(1, 1)

	first := userDataAdd(1, 1000, 0xAA, types.UserDataTypeBio, "hello")
	if err := s.Merge(db, b, first, handler); err != nil {
		t.Fatalf("merge first: %v", err)
	}

	second := userDataAdd(1, 1001, 0xBB, types.UserDataTypeBio, "goodbye")
	if err := s.Merge(db, b, second, handler); err != nil {
		t.Fatalf("merge second: %v", err)
	}

	events := handler.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 merge events, got %d", len(events))
	}
	if len(events[1].Conflicts) != 1 || events[1].Conflicts[0].Hash != first.Hash {
		t.Fatalf("expected the second add's conflicts to include the first")
	}

	got, err := userdata.Get(db, 1, types.UserDataTypeBio)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Hash != second.Hash {
		t.Fatalf("expected Get to resolve to the later add, got %+v", got)
	}
}

// TestUserDataDistinctTypesCoexist: different UserDataType fields on the
// same fid never conflict with each other.
func TestUserDataDistinctTypesCoexist(t *testing.T) {
	db := openDB(t)
	b := db.NewBatch()
	s := store.New(userdata.Def{})
	handler := store.NewEventHandler(1, 1)

	bio := userDataAdd(1, 1000, 0xAA, types.UserDataTypeBio, "hello")
	if err := s.Merge(db, b, bio, handler); err != nil {
		t.Fatal(err)
	}
	pfp := userDataAdd(1, 1001, 0xBB, types.UserDataTypePfp, "https://example.com/pfp.png")
	if err := s.Merge(db, b, pfp, handler); err != nil {
		t.Fatalf("a different UserDataType should not conflict: %v", err)
	}

	if len(handler.Events()[1].Conflicts) != 0 {
		t.Fatalf("expected no conflict between distinct UserDataTypes")
	}

	gotBio, err := userdata.Get(db, 1, types.UserDataTypeBio)
	if err != nil {
		t.Fatal(err)
	}
	gotPfp, err := userdata.Get(db, 1, types.UserDataTypePfp)
	if err != nil {
		t.Fatal(err)
	}
	if gotBio == nil || gotBio.Hash != bio.Hash {
		t.Fatalf("expected bio to still resolve independently")
	}
	if gotPfp == nil || gotPfp.Hash != pfp.Hash {
		t.Fatalf("expected pfp to resolve independently")
	}
}

func TestDuplicateUserData(t *testing.T) {
	db := openDB(t)
	b := db.NewBatch()
	s := store.New(userdata.Def{})
	handler := store.NewEventHandler(1, 1)

	msg := userDataAdd(1, 1000, 0xAA, types.UserDataTypeBio, "hello")
	if err := s.Merge(db, b, msg, handler); err != nil {
		t.Fatal(err)
	}
	if err := s.Merge(db, b, msg, handler); !errs.Is(err, errs.KindDuplicate) {
		t.Fatalf("expected Kind=Duplicate re-merging the identical UserDataAdd, got %v", err)
	}
}
