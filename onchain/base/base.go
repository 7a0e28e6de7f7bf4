// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package base decodes the Base-mainnet TierRegistry contract into
// TierPurchase events (spec.md §4.5). Grounded on
// original_source/src/connectors/onchain_events/mod.rs's TierRegistry
// handling, the only contract watched on this chain.
package base

import (
	"fmt"

	gethcommon "github.com/ethereum/go-ethereum/common"
	geth "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/farcasterxyz/hubd/onchain"
	"github.com/farcasterxyz/hubd/onchain/abiutil"
	"github.com/farcasterxyz/hubd/types"
)

// TierRegistryAddress is the production contract address
// (original_source Contract::tier_registry). An override is accepted at
// construction for testnets (original_source's override_tier_registry_address).
var TierRegistryAddress = gethcommon.HexToAddress("0x00000000fc84484d585C3cF48d213424DFDE43FD")

var sigPurchasedTier = crypto.Keccak256Hash([]byte("PurchasedTier(uint256,uint256,uint256,address)"))

// Decoder implements onchain.Decoder for the Base TierRegistry.
type Decoder struct {
	ChainIDValue    types.ChainID
	StartBlock      uint64
	ContractAddress gethcommon.Address
}

// New constructs the Base decoder. addressOverride, if non-zero, replaces
// the production TierRegistry address (e.g. for a testnet deployment).
func New(startBlock uint64, addressOverride gethcommon.Address) *Decoder {
	addr := TierRegistryAddress
	if addressOverride != (gethcommon.Address{}) {
		addr = addressOverride
	}
	return &Decoder{ChainIDValue: types.ChainIDBase, StartBlock: startBlock, ContractAddress: addr}
}

func (d *Decoder) ContractAddresses() []gethcommon.Address { return []gethcommon.Address{d.ContractAddress} }
func (d *Decoder) StartBlockNumber() uint64                { return d.StartBlock }
func (d *Decoder) ChainID() types.ChainID                  { return d.ChainIDValue }

// Decode handles PurchasedTier(uint256 indexed fid, uint256 tier, uint256
// forDays, address payer).
func (d *Decoder) Decode(log geth.Log, blockTimestamp uint64) (*types.OnChainEvent, bool, error) {
	if len(log.Topics) == 0 || log.Topics[0] != sigPurchasedTier {
		return nil, false, nil
	}
	if len(log.Topics) < 2 {
		return nil, false, fmt.Errorf("base: PurchasedTier missing indexed fid topic")
	}
	fid := abiutil.TopicUint64(log.Topics[1])
	tier, err := abiutil.Uint64(log.Data, 0)
	if err != nil {
		return nil, false, err
	}
	forDays, err := abiutil.Uint64(log.Data, 1)
	if err != nil {
		return nil, false, err
	}
	payer, err := abiutil.Address(log.Data, 2)
	if err != nil {
		return nil, false, err
	}

	ev := &types.OnChainEvent{
		Fid:            types.Fid(fid),
		ChainID:        d.ChainIDValue,
		BlockNumber:    log.BlockNumber,
		BlockHash:      log.BlockHash,
		TxHash:         log.TxHash,
		LogIndex:       uint32(log.Index),
		TxIndex:        uint32(log.TxIndex),
		BlockTimestamp: blockTimestamp,
		Type:           types.OnChainEventTypeTierPurchase,
		Body: types.TierPurchase{
			TierType: uint8(tier),
			ForDays:  uint32(forDays),
			Payer:    payer,
		},
	}
	return ev, true, nil
}

var _ onchain.Decoder = (*Decoder)(nil)
