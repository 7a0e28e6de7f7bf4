// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package onchain implements the on-chain event subscriber: a pair of EVM
// log watchers (Optimism registries, Base tier registry) that
// deterministically translate registry events into validator messages with
// replay/retry semantics (spec.md §4.5). Grounded on the teacher's
// networking/router per-contract dispatch pattern for demuxing log
// streams, and on original_source/src/connectors/onchain_events/mod.rs for
// the historical/live/retry state machine's exact shape (5 retries, 10s
// sleep, per-RPC-call granularity). Uses go-ethereum's ethclient for the
// EVM JSON-RPC client, the only realistic EVM client library in the
// example pack (abster333-go-ethereum, AKJUS-bsc-erigon both depend on
// github.com/ethereum/go-ethereum).
package onchain

import (
	"context"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	gethcommon "github.com/ethereum/go-ethereum/common"
	geth "github.com/ethereum/go-ethereum/core/types"

	"github.com/farcasterxyz/hubd/errs"
	"github.com/farcasterxyz/hubd/mempool"
	"github.com/farcasterxyz/hubd/types"
)

// maxRetries and retryBackoff are the fixed retry budget spec.md §4.5 and
// §5 name: "retry up to 5 times with 10s backoff per operation".
const (
	maxRetries   = 5
	retryBackoff = 10 * time.Second
)

// historicalWindow is the block-range size historical backfill iterates
// in (spec.md §4.5: "run historical sync in 1,000-block windows").
const historicalWindow = 1000

// Client is the subset of ethclient.Client the subscriber needs; an
// interface so tests substitute a mock RPC without a live node.
type Client interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]geth.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- geth.Log) (Subscription, error)
	HeaderByHash(ctx context.Context, hash gethcommon.Hash) (*geth.Header, error)
}

// Subscription mirrors ethereum.Subscription's two methods this package
// actually uses.
type Subscription interface {
	Unsubscribe()
	Err() <-chan error
}

// Decoder turns a single decoded EVM log into an OnChainEvent; each chain
// package (optimism, base) supplies one that knows its own contract
// addresses and event signatures.
type Decoder interface {
	// ContractAddresses returns every address this subscriber should
	// filter logs against.
	ContractAddresses() []gethcommon.Address
	// Decode maps a raw log to the corresponding OnChainEvent body
	// (spec.md §3); returns ok=false for logs whose topic this decoder
	// doesn't recognize (e.g. an unrelated event on a shared contract).
	Decode(log geth.Log, blockTimestamp uint64) (ev *types.OnChainEvent, ok bool, err error)
	// StartBlockNumber is the configured historical-sync floor.
	StartBlockNumber() uint64
	ChainID() types.ChainID
}

// LocalStateStore persists the last block number processed per chain, so
// a restarted subscriber resumes rather than re-scanning from genesis
// (spec.md §4.5 step 1).
type LocalStateStore interface {
	GetLatestBlock(chain types.ChainID) (uint64, error)
	SetLatestBlock(chain types.ChainID, block uint64) error
}

// Sink is where decoded events are enqueued — normally the shard mempool
// wrapped as a ValidatorMessage (spec.md §4.5: "enqueue as ValidatorMessage
// to the mempool").
type Sink interface {
	AddValidatorMessage(vm *types.ValidatorMessage) error
}

// MempoolSink adapts a *mempool.Mempool to Sink, tagging every on-chain
// event with mempool.SourceLocal — on-chain events are admitted directly by
// this node's own subscriber, never relayed from a peer's gossip (spec.md
// §4.5, §5).
type MempoolSink struct {
	Mempool *mempool.Mempool
}

func (m MempoolSink) AddValidatorMessage(vm *types.ValidatorMessage) error {
	return m.Mempool.AddValidatorMessage(vm, mempool.SourceLocal)
}

// Subscriber runs one chain's historical-then-live event ingestion loop.
type Subscriber struct {
	client  Client
	decoder Decoder
	state   LocalStateStore
	sink    Sink
	clock   func() time.Time
	sleep   func(time.Duration)
}

// New constructs a Subscriber for one chain.
func New(client Client, decoder Decoder, state LocalStateStore, sink Sink) *Subscriber {
	return &Subscriber{
		client:  client,
		decoder: decoder,
		state:   state,
		sink:    sink,
		clock:   time.Now,
		sleep:   time.Sleep,
	}
}

// Run executes the full lifecycle spec.md §4.5 describes: historical
// backfill in 1,000-block windows, then live tail with resubscribe-on-
// termination. It blocks until ctx is canceled.
func (s *Subscriber) Run(ctx context.Context) error {
	latest, err := s.state.GetLatestBlock(s.decoder.ChainID())
	if err != nil {
		return errs.Wrap(errs.KindStorage, "read latest block", err)
	}

	start := s.decoder.StartBlockNumber()
	from := latest
	if from < start {
		from = start
	}

	if err := s.historicalSync(ctx, from); err != nil {
		return err
	}

	for {
		err := s.liveSync(ctx)
		if ctx.Err() != nil {
			return nil
		}
		// Live-stream termination: sleep 10s and subscribe again. The new
		// subscription sets no start block; blocks that passed while no
		// subscription was open are not backfilled.
		s.sleep(retryBackoff)
		if err != nil {
			continue
		}
	}
}

// historicalSync walks [from, latestChainBlock] in historicalWindow-sized
// windows, decoding and enqueueing every matching log, persisting progress
// after each window (spec.md §4.5 step 2).
func (s *Subscriber) historicalSync(ctx context.Context, from uint64) error {
	latestChain, err := withRetry(s, ctx, func() (uint64, error) {
		return s.client.BlockNumber(ctx)
	})
	if err != nil {
		return err
	}

	for window := from; window <= latestChain; window += historicalWindow {
		end := window + historicalWindow - 1
		if end > latestChain {
			end = latestChain
		}

		logs, err := withRetry(s, ctx, func() ([]geth.Log, error) {
			return s.client.FilterLogs(ctx, ethereum.FilterQuery{
				FromBlock: blockNumberBig(window),
				ToBlock:   blockNumberBig(end),
				Addresses: s.decoder.ContractAddresses(),
			})
		})
		if err != nil {
			return err
		}

		if err := s.decodeAndEnqueue(ctx, logs); err != nil {
			return err
		}

		if err := s.state.SetLatestBlock(s.decoder.ChainID(), end); err != nil {
			return errs.Wrap(errs.KindStorage, "persist historical progress", err)
		}
	}
	return nil
}

// liveSync subscribes to log notifications for the decoder's contracts and
// decodes each log as it arrives (spec.md §4.5 step 3). The query sets no
// FromBlock, so logs between the last historical block and the start of
// the subscription are not fetched.
func (s *Subscriber) liveSync(ctx context.Context) error {
	ch := make(chan geth.Log, 256)
	sub, err := withRetry(s, ctx, func() (Subscription, error) {
		return s.client.SubscribeFilterLogs(ctx, ethereum.FilterQuery{Addresses: s.decoder.ContractAddresses()}, ch)
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			return err
		case log := <-ch:
			if err := s.decodeAndEnqueue(ctx, []geth.Log{log}); err != nil {
				return err
			}
			if err := s.state.SetLatestBlock(s.decoder.ChainID(), log.BlockNumber); err != nil {
				return errs.Wrap(errs.KindStorage, "persist live progress", err)
			}
		}
	}
}

func (s *Subscriber) decodeAndEnqueue(ctx context.Context, logs []geth.Log) error {
	for _, l := range logs {
		ts, err := s.blockTimestamp(ctx, l.BlockHash)
		if err != nil {
			return err
		}
		ev, ok, err := s.decoder.Decode(l, ts)
		if err != nil {
			return errs.Wrap(errs.KindValidation, "decode on-chain log", err)
		}
		if !ok {
			continue
		}
		if err := s.sink.AddValidatorMessage(&types.ValidatorMessage{OnChainEvent: ev}); err != nil {
			return errs.Wrap(errs.KindStorage, "enqueue on-chain event", err)
		}
	}
	return nil
}

// blockTimestamp fetches block_timestamp via get_block_by_hash, with its
// own retry loop (spec.md §4.5).
func (s *Subscriber) blockTimestamp(ctx context.Context, hash gethcommon.Hash) (uint64, error) {
	hdr, err := withRetry(s, ctx, func() (*geth.Header, error) {
		return s.client.HeaderByHash(ctx, hash)
	})
	if err != nil {
		return 0, err
	}
	return hdr.Time, nil
}

// RetryFid runs the single log query logFilter builds for fid and enqueues
// every event it decodes. A query that names no contracts is scoped to the
// decoder's contract addresses. Decoded events are not filtered by fid.
func (s *Subscriber) RetryFid(ctx context.Context, fid types.Fid, logFilter func(types.Fid) ethereum.FilterQuery) error {
	q := logFilter(fid)
	if len(q.Addresses) == 0 {
		q.Addresses = s.decoder.ContractAddresses()
	}
	logs, err := withRetry(s, ctx, func() ([]geth.Log, error) {
		return s.client.FilterLogs(ctx, q)
	})
	if err != nil {
		return err
	}
	return s.decodeAndEnqueue(ctx, logs)
}

// RetryBlockRange refetches logs for an explicit [from, to] range.
func (s *Subscriber) RetryBlockRange(ctx context.Context, from, to uint64) error {
	logs, err := withRetry(s, ctx, func() ([]geth.Log, error) {
		return s.client.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: blockNumberBig(from),
			ToBlock:   blockNumberBig(to),
			Addresses: s.decoder.ContractAddresses(),
		})
	})
	if err != nil {
		return err
	}
	return s.decodeAndEnqueue(ctx, logs)
}

// withRetry runs op up to maxRetries times with retryBackoff between
// attempts, per spec.md §5: "RPC operations on external chains carry a
// retry budget (5 × 10s)". After exhausting the budget the error bubbles
// up: Run restarts live sync after such an error, while an error during
// historical sync is returned from Run.
func withRetry[T any](s *Subscriber, ctx context.Context, op func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		v, err := op()
		if err == nil {
			return v, nil
		}
		lastErr = err
		s.sleep(retryBackoff)
	}
	return zero, errs.Wrap(errs.KindNetwork, "on-chain RPC exhausted retry budget", lastErr)
}

func blockNumberBig(n uint64) *big.Int { return new(big.Int).SetUint64(n) }
