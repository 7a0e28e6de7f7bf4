// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"sync/atomic"

	"github.com/farcasterxyz/hubd/types"
)

// HubEventType distinguishes the three lifecycle events a store emits.
type HubEventType uint8

const (
	HubEventTypeMergeMessage HubEventType = iota + 1
	HubEventTypePruneMessage
	HubEventTypeRevokeMessage
)

// HubEvent is emitted every time a store admits, prunes, or revokes a
// message; event ids are monotonically increasing within a single
// (shard, height) scope.
type HubEvent struct {
	ID        uint64
	Type      HubEventType
	Fid       types.Fid
	Message   *types.Message
	Conflicts []*types.Message
}

// EventHandler assigns monotonically increasing event ids scoped to a
// (shard, height) pair and collects the resulting HubEvents in emission
// order, ready for the Engine to flush atomically with the trie mutation
// (spec.md §4.2, §5).
type EventHandler struct {
	shard  types.ShardIndex
	height uint64
	next   uint64
	events []HubEvent
}

// NewEventHandler starts a fresh handler scoped to one (shard, height).
func NewEventHandler(shard types.ShardIndex, height uint64) *EventHandler {
	return &EventHandler{shard: shard, height: height}
}

// Emit assigns the next event id and records the event.
func (h *EventHandler) Emit(evtType HubEventType, fid types.Fid, msg *types.Message, conflicts []*types.Message) HubEvent {
	id := atomic.AddUint64(&h.next, 1)
	evt := HubEvent{ID: id, Type: evtType, Fid: fid, Message: msg, Conflicts: conflicts}
	h.events = append(h.events, evt)
	return evt
}

// Events returns all events emitted so far, in emission order.
func (h *EventHandler) Events() []HubEvent {
	return h.events
}
