// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package onchain

import (
	"context"

	ethereum "github.com/ethereum/go-ethereum"
	gethcommon "github.com/ethereum/go-ethereum/common"
	geth "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ethClient adapts *ethclient.Client to this package's Client interface.
// SubscribeFilterLogs returns ethereum.Subscription, which already
// satisfies Subscription's two methods.
type ethClient struct {
	c *ethclient.Client
}

// Dial connects to an EVM JSON-RPC endpoint (spec.md §6: l1_rpc_url /
// base_onchain_events.rpc_url).
func Dial(ctx context.Context, rawurl string) (Client, error) {
	c, err := ethclient.DialContext(ctx, rawurl)
	if err != nil {
		return nil, err
	}
	return ethClient{c: c}, nil
}

func (e ethClient) BlockNumber(ctx context.Context) (uint64, error) {
	return e.c.BlockNumber(ctx)
}

func (e ethClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]geth.Log, error) {
	return e.c.FilterLogs(ctx, q)
}

func (e ethClient) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- geth.Log) (Subscription, error) {
	return e.c.SubscribeFilterLogs(ctx, q, ch)
}

func (e ethClient) HeaderByHash(ctx context.Context, hash gethcommon.Hash) (*geth.Header, error) {
	return e.c.HeaderByHash(ctx, hash)
}
