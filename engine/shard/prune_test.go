// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package shard

import (
	"testing"
	"time"

	"github.com/farcasterxyz/hubd/mempool"
	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/types"
)

func openPruneTestDB(t *testing.T) *kv.DB {
	t.Helper()
	db, err := kv.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func usernameProofAdd(fid types.Fid, ts uint32, hash byte, name string) *types.Message {
	return &types.Message{
		Data: &types.MessageData{
			Fid:       fid,
			Type:      types.MessageTypeUsernameProof,
			Timestamp: ts,
			Network:   types.NetworkMainnet,
			Body: types.UsernameProof{
				Type: types.UsernameProofTypeFname,
				Name: []byte(name),
			},
		},
		Hash: [20]byte{hash},
	}
}

// TestSweepPrunesMultipleOverCapMessagesInOneCommit is the fix for the
// sweepClass prune loop that could never converge once more than one
// message had to be pruned in a single sweep: classMessages reads straight
// from the committed database and cannot observe this same sweep's own
// staged deletes, so re-querying it inside the loop kept re-selecting the
// same still-on-disk "oldest" message forever. UsernameProof's prune cap
// (1) lets a handful of distinctly-named, non-conflicting proofs for one
// fid exceed the cap by more than one in a single chunk.
func TestSweepPrunesMultipleOverCapMessagesInOneCommit(t *testing.T) {
	db := openPruneTestDB(t)
	e, err := New(1, db)
	if err != nil {
		t.Fatal(err)
	}
	mp := mempool.New(10, nil)

	names := []string{"alice", "bob", "carol", "dave"}
	for i, name := range names {
		msg := usernameProofAdd(1, uint32(1000+i), byte(i+1), name)
		if err := mp.AddMessage(msg, mempool.SourceLocal); err != nil {
			t.Fatal(err)
		}
	}

	change, err := e.Propose(mp, 5000, 10)
	if err != nil {
		t.Fatal(err)
	}

	chunk := &types.ShardChunk{
		Header: types.ShardHeader{
			Height:    types.Height{ShardIndex: 1, BlockNumber: e.ConfirmedHeight() + 1},
			Timestamp: change.Timestamp,
			ShardRoot: change.NewStateRoot,
		},
		Transactions: change.Transactions,
	}

	done := make(chan error, 1)
	go func() {
		_, err := e.CommitShardChunk(chunk)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("CommitShardChunk did not return — sweepClass prune loop appears to hang")
	}

	s, ok := e.registry.For(types.MessageTypeUsernameProof)
	if !ok {
		t.Fatal("expected a registered usernameproof store")
	}
	msgs, err := e.classMessages(1, s.Def().Postfix())
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected prune to drain down to the cap of 1, got %d messages left", len(msgs))
	}
}
