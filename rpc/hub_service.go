// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/farcasterxyz/hubd/errs"
	"github.com/farcasterxyz/hubd/mempool"
	"github.com/farcasterxyz/hubd/storage/kv"
	"github.com/farcasterxyz/hubd/store/casts"
	"github.com/farcasterxyz/hubd/store/userdata"
	"github.com/farcasterxyz/hubd/types"
)

// ShardResources is the per-shard state HubService reads from and admits
// into: one database and one mempool per user shard (shard 0 carries no
// user messages, so it never appears here).
type ShardResources struct {
	DB      *kv.DB
	Mempool *mempool.Mempool
}

// HubServer implements the HubService methods spec.md §6 names for
// submission and point reads. Routing from fid to shard uses
// types.ShardForFid so every front-end agrees on shard placement.
type HubServer struct {
	NumShards uint32
	Shards    map[types.ShardIndex]*ShardResources
}

func (s *HubServer) shardFor(fid types.Fid) (*ShardResources, error) {
	idx := types.ShardForFid(fid, s.NumShards)
	r, ok := s.Shards[idx]
	if !ok {
		return nil, status.Error(errs.KindStorage.GRPCCode(), "shard not hosted by this node")
	}
	return r, nil
}

// SubmitMessageRequest/Response carry a single signed Message, admitted to
// the owning shard's mempool with Source=RPC (spec.md §4.6).
type SubmitMessageRequest struct {
	Message *types.Message
}

type SubmitMessageResponse struct {
	Message *types.Message
}

func (s *HubServer) SubmitMessage(ctx context.Context, req *SubmitMessageRequest) (*SubmitMessageResponse, error) {
	if req == nil || req.Message == nil || req.Message.Data == nil {
		return nil, status.Error(errs.KindValidation.GRPCCode(), "missing message")
	}
	r, err := s.shardFor(req.Message.Data.Fid)
	if err != nil {
		return nil, err
	}
	if err := r.Mempool.AddMessage(req.Message, mempool.SourceRPC); err != nil {
		return nil, grpcError(err)
	}
	return &SubmitMessageResponse{Message: req.Message}, nil
}

// GetCastRequest/Response resolve one CastAdd by (fid, hash).
type GetCastRequest struct {
	Fid  types.Fid
	Hash [20]byte
}

type GetCastResponse struct {
	Message *types.Message
}

func (s *HubServer) GetCast(ctx context.Context, req *GetCastRequest) (*GetCastResponse, error) {
	if req == nil {
		return nil, status.Error(errs.KindValidation.GRPCCode(), "missing request")
	}
	r, err := s.shardFor(req.Fid)
	if err != nil {
		return nil, err
	}
	msg, err := casts.Get(r.DB, req.Fid, req.Hash)
	if err != nil {
		return nil, grpcError(err)
	}
	if msg == nil {
		return nil, status.Error(errs.KindNotFound.GRPCCode(), "cast not found")
	}
	return &GetCastResponse{Message: msg}, nil
}

// GetUserDataByFidRequest/Response resolve fid's currently-stored value
// for one UserDataType.
type GetUserDataByFidRequest struct {
	Fid  types.Fid
	Type types.UserDataType
}

type GetUserDataByFidResponse struct {
	Message *types.Message
}

func (s *HubServer) GetUserDataByFid(ctx context.Context, req *GetUserDataByFidRequest) (*GetUserDataByFidResponse, error) {
	if req == nil {
		return nil, status.Error(errs.KindValidation.GRPCCode(), "missing request")
	}
	r, err := s.shardFor(req.Fid)
	if err != nil {
		return nil, err
	}
	msg, err := userdata.Get(r.DB, req.Fid, req.Type)
	if err != nil {
		return nil, grpcError(err)
	}
	if msg == nil {
		return nil, status.Error(errs.KindNotFound.GRPCCode(), "user data not found")
	}
	return &GetUserDataByFidResponse{Message: msg}, nil
}

func grpcError(err error) error {
	if e, ok := err.(*errs.Error); ok {
		return status.Error(e.Kind.GRPCCode(), e.Error())
	}
	return status.Error(errs.KindStorage.GRPCCode(), err.Error())
}

// hubServiceDesc is the hand-written grpc.ServiceDesc standing in for a
// protoc-gen-go-grpc _grpc.pb.go file (see codec.go for why none is
// generated). Each Handler unmarshals via the registered json Codec,
// exactly the role a generated unmarshaler would play.
var hubServiceDesc = grpc.ServiceDesc{
	ServiceName: "farcasterxyz.hubd.HubService",
	HandlerType: (*HubServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitMessage", Handler: hubSubmitMessageHandler},
		{MethodName: "GetCast", Handler: hubGetCastHandler},
		{MethodName: "GetUserDataByFid", Handler: hubGetUserDataByFidHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hub_service.proto",
}

func hubSubmitMessageHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(SubmitMessageRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	s := srv.(*HubServer)
	if interceptor == nil {
		return s.SubmitMessage(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/farcasterxyz.hubd.HubService/SubmitMessage"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return s.SubmitMessage(ctx, req.(*SubmitMessageRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func hubGetCastHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(GetCastRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	s := srv.(*HubServer)
	if interceptor == nil {
		return s.GetCast(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/farcasterxyz.hubd.HubService/GetCast"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return s.GetCast(ctx, req.(*GetCastRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func hubGetUserDataByFidHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(GetUserDataByFidRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	s := srv.(*HubServer)
	if interceptor == nil {
		return s.GetUserDataByFid(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/farcasterxyz.hubd.HubService/GetUserDataByFid"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return s.GetUserDataByFid(ctx, req.(*GetUserDataByFidRequest))
	}
	return interceptor(ctx, req, info, handler)
}
