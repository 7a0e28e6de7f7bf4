// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package mempool implements the bounded, request-coalescing queue that
// sits between message sources (clients, gossip, the on-chain subscriber)
// and the Shard Engine. Grounded on the teacher's networking/sender
// request-coalescing shape and utils/wrappers error-aggregation helper,
// reused here for admission-validation error collection across a batch.
package mempool

import (
	"sync"

	"github.com/farcasterxyz/hubd/errs"
	"github.com/farcasterxyz/hubd/types"
	"github.com/farcasterxyz/hubd/utils/wrappers"
)

// Source identifies where an admitted message originated. It is recorded
// on each Entry; the Engine does not read it.
type Source uint8

const (
	SourceLocal Source = iota
	SourceGossip
	SourceRPC
	SourceSync
)

// Validator performs syntactic validation and signature verification on an
// incoming user message before it is admitted to the queue.
type Validator interface {
	Validate(msg *types.Message) error
}

// Entry is one admitted item: either a user Message or a validator-origin
// ValidatorMessage (on-chain event or fname transfer), never both.
type Entry struct {
	Message   *types.Message
	Validator *types.ValidatorMessage
	Source    Source
}

func (e *Entry) fid() types.Fid {
	if e.Message != nil {
		return e.Message.Data.Fid
	}
	if e.Validator.OnChainEvent != nil {
		return e.Validator.OnChainEvent.Fid
	}
	return e.Validator.FnameTransfer.To
}

// Mempool is a single-shard, bounded FIFO queue with hash-based
// de-duplication. It is owned by exactly one actor (per spec.md §5's
// actor-per-component model); all methods assume single-threaded access
// except AddMessage, which is the multi-producer/single-consumer boundary
// and is safe to call concurrently.
type Mempool struct {
	capacity  int
	validator Validator

	mu      sync.Mutex
	queue   []*Entry
	seenMsg map[[20]byte]struct{}
	seenVM  map[[40]byte]struct{}
}

// New constructs a Mempool with the given bounded capacity.
func New(capacity int, validator Validator) *Mempool {
	return &Mempool{
		capacity:  capacity,
		validator: validator,
		seenMsg:   make(map[[20]byte]struct{}),
		seenVM:    make(map[[40]byte]struct{}),
	}
}

// AddMessage admits a client/gossip/RPC message, running syntactic and
// signature validation and dropping exact duplicates (same hash). Returns a
// Kind=Validation error on rejection, or Kind=Unavailable if the queue is
// full.
func (m *Mempool) AddMessage(msg *types.Message, source Source) error {
	if m.validator != nil {
		if err := m.validator.Validate(msg); err != nil {
			return errs.Wrap(errs.KindValidation, "mempool admission", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seenMsg[msg.Hash]; ok {
		return errs.New(errs.KindDuplicate, "message already in mempool")
	}
	if len(m.queue) >= m.capacity {
		return errs.New(errs.KindUnavailable, "mempool full")
	}
	m.seenMsg[msg.Hash] = struct{}{}
	m.queue = append(m.queue, &Entry{Message: msg, Source: source})
	return nil
}

// AddValidatorMessage admits an on-chain event or fname transfer, usually
// from the Subscriber. De-duplicated on the on-chain event's idempotence
// key; fname transfers are not de-duplicated here (the Engine's
// ValidateStateChange replay is the source of truth for those).
func (m *Mempool) AddValidatorMessage(vm *types.ValidatorMessage, source Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vm.OnChainEvent != nil {
		key := vm.OnChainEvent.IdempotenceKey()
		if _, ok := m.seenVM[key]; ok {
			return errs.New(errs.KindDuplicate, "on-chain event already in mempool")
		}
		if len(m.queue) >= m.capacity {
			return errs.New(errs.KindUnavailable, "mempool full")
		}
		m.seenVM[key] = struct{}{}
		m.queue = append(m.queue, &Entry{Validator: vm, Source: source})
		return nil
	}

	if len(m.queue) >= m.capacity {
		return errs.New(errs.KindUnavailable, "mempool full")
	}
	m.queue = append(m.queue, &Entry{Validator: vm, Source: source})
	return nil
}

// RequestMessages pulls up to count entries in FIFO admission order for the
// Engine to bind into transactions during propose. Entries are removed from
// the queue; a failed merge does not return them (spec.md §4.2: "roll back
// any message whose merge fails" operates on the Engine's transaction
// batch, not the mempool).
func (m *Mempool) RequestMessages(count int) []*Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	if count > len(m.queue) {
		count = len(m.queue)
	}
	out := m.queue[:count]
	m.queue = m.queue[count:]
	for _, e := range out {
		if e.Message != nil {
			delete(m.seenMsg, e.Message.Hash)
		} else if e.Validator.OnChainEvent != nil {
			delete(m.seenVM, e.Validator.OnChainEvent.IdempotenceKey())
		}
	}
	return out
}

// Len reports the current queue depth.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// ValidateBatch runs Validator over every message in msgs, collecting every
// failure via wrappers.Errs rather than stopping at the first one — used by
// the RPC admission path when a client submits several messages at once.
func (m *Mempool) ValidateBatch(msgs []*types.Message) error {
	var errd wrappers.Errs
	for _, msg := range msgs {
		if m.validator != nil {
			errd.Add(m.validator.Validate(msg))
		}
	}
	if errd.Errored() {
		return errs.Wrap(errs.KindValidation, "batch admission", errd.Err())
	}
	return nil
}
