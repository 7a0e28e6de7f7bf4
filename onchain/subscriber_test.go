// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package onchain

import (
	"context"
	"errors"
	"testing"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	gethcommon "github.com/ethereum/go-ethereum/common"
	geth "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/farcasterxyz/hubd/types"
)

type fakeClient struct {
	blockNumber    uint64
	logsByRange    map[[2]uint64][]geth.Log
	filterLogsErrs int
	filterCalls    int
}

func (f *fakeClient) BlockNumber(ctx context.Context) (uint64, error) { return f.blockNumber, nil }

func (f *fakeClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]geth.Log, error) {
	f.filterCalls++
	if f.filterLogsErrs > 0 {
		f.filterLogsErrs--
		return nil, errors.New("rpc unavailable")
	}
	key := [2]uint64{q.FromBlock.Uint64(), q.ToBlock.Uint64()}
	return f.logsByRange[key], nil
}

func (f *fakeClient) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- geth.Log) (Subscription, error) {
	return fakeSubscription{errCh: make(chan error)}, nil
}

func (f *fakeClient) HeaderByHash(ctx context.Context, hash gethcommon.Hash) (*geth.Header, error) {
	return &geth.Header{Time: 1_700_000_000}, nil
}

type fakeSubscription struct{ errCh chan error }

func (fakeSubscription) Unsubscribe()         {}
func (f fakeSubscription) Err() <-chan error { return f.errCh }

type fakeDecoder struct {
	addrs []gethcommon.Address
	start uint64
	chain types.ChainID
}

func (d fakeDecoder) ContractAddresses() []gethcommon.Address { return d.addrs }
func (d fakeDecoder) StartBlockNumber() uint64                { return d.start }
func (d fakeDecoder) ChainID() types.ChainID                  { return d.chain }
func (d fakeDecoder) Decode(log geth.Log, ts uint64) (*types.OnChainEvent, bool, error) {
	return &types.OnChainEvent{Fid: types.Fid(1), ChainID: d.chain, BlockNumber: log.BlockNumber}, true, nil
}

type fakeState struct{ latest map[types.ChainID]uint64 }

func (s *fakeState) GetLatestBlock(chain types.ChainID) (uint64, error) { return s.latest[chain], nil }
func (s *fakeState) SetLatestBlock(chain types.ChainID, block uint64) error {
	s.latest[chain] = block
	return nil
}

type fakeSink struct{ msgs []*types.ValidatorMessage }

func (s *fakeSink) AddValidatorMessage(vm *types.ValidatorMessage) error {
	s.msgs = append(s.msgs, vm)
	return nil
}

func TestHistoricalSyncWalksWindowsAndPersistsProgress(t *testing.T) {
	client := &fakeClient{
		blockNumber: 2500,
		logsByRange: map[[2]uint64][]geth.Log{
			{0, 999}:    {{BlockNumber: 500}},
			{1000, 1999}: {{BlockNumber: 1500}},
			{2000, 2500}: nil,
		},
	}
	decoder := fakeDecoder{chain: types.ChainIDOptimism}
	state := &fakeState{latest: map[types.ChainID]uint64{}}
	sink := &fakeSink{}

	s := New(client, decoder, state, sink)
	s.sleep = func(time.Duration) {}

	require.NoError(t, s.historicalSync(context.Background(), 0))
	require.Len(t, sink.msgs, 2)
	require.Equal(t, uint64(2500), state.latest[types.ChainIDOptimism])
}

func TestWithRetryExhaustsBudgetAndWrapsError(t *testing.T) {
	client := &fakeClient{filterLogsErrs: 10}
	decoder := fakeDecoder{chain: types.ChainIDBase}
	s := New(client, decoder, &fakeState{latest: map[types.ChainID]uint64{}}, &fakeSink{})

	var slept int
	s.sleep = func(time.Duration) { slept++ }

	_, err := withRetry(s, context.Background(), func() (uint64, error) {
		return client.BlockNumber(context.Background())
	})
	require.NoError(t, err) // BlockNumber never errors in the fake

	_, err = withRetry(s, context.Background(), func() ([]geth.Log, error) {
		return client.FilterLogs(context.Background(), ethereum.FilterQuery{FromBlock: blockNumberBig(0), ToBlock: blockNumberBig(0)})
	})
	require.Error(t, err)
	require.Equal(t, maxRetries, slept)
	require.Equal(t, maxRetries, client.filterCalls)
}

func TestRetryBlockRangeDecodesAndEnqueues(t *testing.T) {
	client := &fakeClient{
		logsByRange: map[[2]uint64][]geth.Log{{10, 20}: {{BlockNumber: 15}}},
	}
	decoder := fakeDecoder{chain: types.ChainIDOptimism}
	sink := &fakeSink{}
	s := New(client, decoder, &fakeState{latest: map[types.ChainID]uint64{}}, sink)
	s.sleep = func(time.Duration) {}

	require.NoError(t, s.RetryBlockRange(context.Background(), 10, 20))
	require.Len(t, sink.msgs, 1)
}
