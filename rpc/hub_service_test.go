// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc_test

import (
	"context"
	"testing"

	"github.com/farcasterxyz/hubd/mempool"
	"github.com/farcasterxyz/hubd/rpc"
	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/store"
	"github.com/farcasterxyz/hubd/store/casts"
	"github.com/farcasterxyz/hubd/types"
)

type allowAll struct{}

func (allowAll) Validate(*types.Message) error { return nil }

func newHubServer(t *testing.T) (*rpc.HubServer, types.Fid) {
	t.Helper()
	db, err := kv.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	const fid = types.Fid(100)
	idx := types.ShardForFid(fid, 1)
	return &rpc.HubServer{
		NumShards: 1,
		Shards: map[types.ShardIndex]*rpc.ShardResources{
			idx: {DB: db, Mempool: mempool.New(16, allowAll{})},
		},
	}, fid
}

func TestSubmitMessageAdmitsToOwningShardMempool(t *testing.T) {
	s, fid := newHubServer(t)
	msg := &types.Message{
		Data: &types.MessageData{
			Fid:       fid,
			Type:      types.MessageTypeCastAdd,
			Timestamp: 1000,
			Network:   types.NetworkMainnet,
			Body:      types.CastAdd{Text: "hi"},
		},
		Hash: [20]byte{9, 9, 9},
	}
	resp, err := s.SubmitMessage(context.Background(), &rpc.SubmitMessageRequest{Message: msg})
	if err != nil {
		t.Fatalf("SubmitMessage: %v", err)
	}
	if resp.Message.Hash != msg.Hash {
		t.Fatalf("unexpected echoed message")
	}
	idx := types.ShardForFid(fid, 1)
	if s.Shards[idx].Mempool.Len() != 1 {
		t.Fatalf("want 1 entry in mempool, got %d", s.Shards[idx].Mempool.Len())
	}
}

func TestGetCastNotFound(t *testing.T) {
	s, fid := newHubServer(t)
	_, err := s.GetCast(context.Background(), &rpc.GetCastRequest{Fid: fid, Hash: [20]byte{1}})
	if err == nil {
		t.Fatal("want not-found error")
	}
}

func TestGetCastAfterMerge(t *testing.T) {
	s, fid := newHubServer(t)
	idx := types.ShardForFid(fid, 1)
	db := s.Shards[idx].DB

	st := store.New(casts.Def{})
	handler := store.NewEventHandler(idx, 1)
	b := db.NewBatch()
	msg := &types.Message{
		Data: &types.MessageData{
			Fid:       fid,
			Type:      types.MessageTypeCastAdd,
			Timestamp: 2000,
			Network:   types.NetworkMainnet,
			Body:      types.CastAdd{Text: "hi"},
		},
		Hash: [20]byte{7},
	}
	if err := st.Merge(db, b, msg, handler); err != nil {
		t.Fatal(err)
	}
	if err := b.Commit(); err != nil {
		t.Fatal(err)
	}

	resp, err := s.GetCast(context.Background(), &rpc.GetCastRequest{Fid: fid, Hash: msg.Hash})
	if err != nil {
		t.Fatalf("GetCast: %v", err)
	}
	if resp.Message.Hash != msg.Hash {
		t.Fatalf("got wrong message back")
	}
}
