// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc_test

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/farcasterxyz/hubd/mempool"
	"github.com/farcasterxyz/hubd/rpc"
	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/types"
)

// dialBufconn starts a real grpc.Server (rpc.NewServer) over an in-memory
// listener and returns a rpc.Client dialed against it, exercising the
// hand-written ServiceDesc/Codec pair end to end rather than calling the
// handler methods directly.
func dialBufconn(t *testing.T, srv *grpc.Server) *rpc.Client {
	t.Helper()
	lis := bufconn.Listen(1 << 16)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	dialer := grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
	client, err := rpc.Dial("bufconn", dialer)
	if err != nil {
		t.Fatalf("rpc.Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClientSubmitMessageRoundTrip(t *testing.T) {
	db, err := kv.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	const fid = types.Fid(7)
	idx := types.ShardForFid(fid, 1)
	hub := &rpc.HubServer{
		NumShards: 1,
		Shards: map[types.ShardIndex]*rpc.ShardResources{
			idx: {DB: db, Mempool: mempool.New(16, allowAll{})},
		},
	}
	srv := rpc.NewServer(hub, &rpc.AdminServer{}, rpc.Credentials{})
	client := dialBufconn(t, srv)

	msg := &types.Message{
		Data: &types.MessageData{
			Fid:       fid,
			Type:      types.MessageTypeCastAdd,
			Timestamp: 1000,
			Network:   types.NetworkMainnet,
			Body:      types.CastAdd{Text: "hi"},
		},
		Hash: [20]byte{1, 2, 3},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := client.SubmitMessage(ctx, msg)
	if err != nil {
		t.Fatalf("SubmitMessage: %v", err)
	}
	if resp.Message.Hash != msg.Hash {
		t.Fatalf("unexpected echoed message")
	}
	if hub.Shards[idx].Mempool.Len() != 1 {
		t.Fatalf("want 1 mempool entry, got %d", hub.Shards[idx].Mempool.Len())
	}
}

func TestClientAdminRequiresCredentials(t *testing.T) {
	creds := rpc.Credentials{Username: "admin", Password: "secret"}

	noAuthClient := dialBufconn(t, rpc.NewServer(&rpc.HubServer{NumShards: 1}, &rpc.AdminServer{}, creds))
	authClient := dialBufconn(t, rpc.NewServer(&rpc.HubServer{NumShards: 1}, &rpc.AdminServer{}, creds)).WithCredentials(creds)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := noAuthClient.SubmitOnChainEvent(ctx, &types.OnChainEvent{Fid: 1})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("want Unauthenticated without credentials, got %v", err)
	}

	_, err = authClient.SubmitOnChainEvent(ctx, &types.OnChainEvent{Fid: 1})
	if status.Code(err) == codes.Unauthenticated {
		t.Fatalf("want non-auth error with valid credentials, got %v", err)
	}
}
