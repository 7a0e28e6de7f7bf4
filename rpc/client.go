// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"encoding/base64"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/farcasterxyz/hubd/types"
)

// DialOption is re-exported so callers building a Client never need to
// import google.golang.org/grpc directly just to pass dial options.
type DialOption = grpc.DialOption

// callOpt forces every invocation through the json codec registered in
// codec.go instead of grpc-go's default proto codec.
var callOpt = grpc.CallContentSubtype(codecName)

// Client is a thin hand-written stub for HubService and AdminService —
// the counterpart to the hand-written grpc.ServiceDesc in hub_service.go
// and admin_service.go (see codec.go for why no protoc-generated stub
// exists). cmd/spammer and cmd/submit dial through this rather than
// building raw grpc.ClientConn.Invoke calls inline.
type Client struct {
	conn  *grpc.ClientConn
	creds Credentials
}

// Dial connects to a hubd node's RPC address. opts are appended after the
// insecure transport credentials this repo uses throughout (spec.md §6
// names no TLS surface).
func Dial(target string, opts ...DialOption) (*Client, error) {
	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// WithCredentials attaches HTTP-Basic credentials to every AdminService
// call this client makes (HubService never requires them).
func (c *Client) WithCredentials(creds Credentials) *Client {
	c.creds = creds
	return c
}

// Close releases the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) adminContext(ctx context.Context) context.Context {
	if !c.creds.required() {
		return ctx
	}
	token := base64.StdEncoding.EncodeToString([]byte(c.creds.Username + ":" + c.creds.Password))
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Basic "+token)
}

// SubmitMessage submits a signed user Message via HubService.
func (c *Client) SubmitMessage(ctx context.Context, msg *types.Message) (*SubmitMessageResponse, error) {
	resp := new(SubmitMessageResponse)
	req := &SubmitMessageRequest{Message: msg}
	if err := c.conn.Invoke(ctx, "/farcasterxyz.hubd.HubService/SubmitMessage", req, resp, callOpt); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetCast reads back a CastAdd by (fid, hash).
func (c *Client) GetCast(ctx context.Context, fid types.Fid, hash [20]byte) (*GetCastResponse, error) {
	resp := new(GetCastResponse)
	req := &GetCastRequest{Fid: fid, Hash: hash}
	if err := c.conn.Invoke(ctx, "/farcasterxyz.hubd.HubService/GetCast", req, resp, callOpt); err != nil {
		return nil, err
	}
	return resp, nil
}

// SubmitOnChainEvent submits a synthetic on-chain event via AdminService,
// used by testnet tooling that never runs a live chain watcher.
func (c *Client) SubmitOnChainEvent(ctx context.Context, event *types.OnChainEvent) (*SubmitOnChainEventResponse, error) {
	resp := new(SubmitOnChainEventResponse)
	req := &SubmitOnChainEventRequest{Event: event}
	if err := c.conn.Invoke(c.adminContext(ctx), "/farcasterxyz.hubd.AdminService/SubmitOnChainEvent", req, resp, callOpt); err != nil {
		return nil, err
	}
	return resp, nil
}
