// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/farcasterxyz/hubd/errs"
	"github.com/farcasterxyz/hubd/onchain"
	"github.com/farcasterxyz/hubd/types"
)

// AdminServer implements the AdminService methods spec.md §4.5/§6 names:
// direct on-chain event submission (used by testnet tooling that does not
// run a live watcher) and the two retry shapes the Subscriber exposes.
// Requires Basic auth (spec.md §6) — wire UnaryAuthInterceptor with
// non-empty Credentials when registering this service.
type AdminServer struct {
	// Sink is where a directly-submitted OnChainEvent is enqueued, keyed
	// by the shard the event's fid belongs to.
	NumShards uint32
	Sinks     map[types.ShardIndex]onchain.Sink
	// Subscribers is one per chain, used to service RetryFid/RetryBlockRange.
	Subscribers map[types.ChainID]*onchain.Subscriber
}

type SubmitOnChainEventRequest struct {
	Event *types.OnChainEvent
}

type SubmitOnChainEventResponse struct {
	Event *types.OnChainEvent
}

func (s *AdminServer) SubmitOnChainEvent(ctx context.Context, req *SubmitOnChainEventRequest) (*SubmitOnChainEventResponse, error) {
	if req == nil || req.Event == nil {
		return nil, status.Error(errs.KindValidation.GRPCCode(), "missing event")
	}
	idx := types.ShardForFid(req.Event.Fid, s.NumShards)
	sink, ok := s.Sinks[idx]
	if !ok {
		return nil, status.Error(errs.KindStorage.GRPCCode(), "shard not hosted by this node")
	}
	vm := &types.ValidatorMessage{OnChainEvent: req.Event}
	if err := sink.AddValidatorMessage(vm); err != nil {
		return nil, grpcError(err)
	}
	return &SubmitOnChainEventResponse{Event: req.Event}, nil
}

type RetryOnChainEventsFidRequest struct {
	ChainID types.ChainID
	Fid     types.Fid
}

type RetryOnChainEventsResponse struct{}

func (s *AdminServer) RetryOnChainEventsFid(ctx context.Context, req *RetryOnChainEventsFidRequest) (*RetryOnChainEventsResponse, error) {
	if req == nil {
		return nil, status.Error(errs.KindValidation.GRPCCode(), "missing request")
	}
	sub, ok := s.Subscribers[req.ChainID]
	if !ok {
		return nil, status.Error(errs.KindNotFound.GRPCCode(), "unknown chain")
	}
	// The query starts at block zero and names no contracts, so RetryFid
	// scopes it to the subscriber's contract addresses. The flat-word ABI
	// decoder this subscriber uses (onchain/abiutil) does no fid-level
	// topic filtering, so events for every fid in that range are enqueued.
	if err := sub.RetryFid(ctx, req.Fid, func(types.Fid) ethereum.FilterQuery {
		return ethereum.FilterQuery{FromBlock: big.NewInt(0)}
	}); err != nil {
		return nil, grpcError(err)
	}
	return &RetryOnChainEventsResponse{}, nil
}

type RetryOnChainEventsBlockRangeRequest struct {
	ChainID types.ChainID
	From    uint64
	To      uint64
}

func (s *AdminServer) RetryOnChainEventsBlockRange(ctx context.Context, req *RetryOnChainEventsBlockRangeRequest) (*RetryOnChainEventsResponse, error) {
	if req == nil {
		return nil, status.Error(errs.KindValidation.GRPCCode(), "missing request")
	}
	sub, ok := s.Subscribers[req.ChainID]
	if !ok {
		return nil, status.Error(errs.KindNotFound.GRPCCode(), "unknown chain")
	}
	if err := sub.RetryBlockRange(ctx, req.From, req.To); err != nil {
		return nil, grpcError(err)
	}
	return &RetryOnChainEventsResponse{}, nil
}

var adminServiceDesc = grpc.ServiceDesc{
	ServiceName: "farcasterxyz.hubd.AdminService",
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitOnChainEvent", Handler: adminSubmitOnChainEventHandler},
		{MethodName: "RetryOnChainEventsFid", Handler: adminRetryFidHandler},
		{MethodName: "RetryOnChainEventsBlockRange", Handler: adminRetryBlockRangeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "admin_service.proto",
}

func adminSubmitOnChainEventHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(SubmitOnChainEventRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	s := srv.(*AdminServer)
	if interceptor == nil {
		return s.SubmitOnChainEvent(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/farcasterxyz.hubd.AdminService/SubmitOnChainEvent"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return s.SubmitOnChainEvent(ctx, req.(*SubmitOnChainEventRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func adminRetryFidHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(RetryOnChainEventsFidRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	s := srv.(*AdminServer)
	if interceptor == nil {
		return s.RetryOnChainEventsFid(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/farcasterxyz.hubd.AdminService/RetryOnChainEventsFid"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return s.RetryOnChainEventsFid(ctx, req.(*RetryOnChainEventsFidRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func adminRetryBlockRangeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(RetryOnChainEventsBlockRangeRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	s := srv.(*AdminServer)
	if interceptor == nil {
		return s.RetryOnChainEventsBlockRange(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/farcasterxyz.hubd.AdminService/RetryOnChainEventsBlockRange"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return s.RetryOnChainEventsBlockRange(ctx, req.(*RetryOnChainEventsBlockRangeRequest))
	}
	return interceptor(ctx, req, info, handler)
}
