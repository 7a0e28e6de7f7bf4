// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package base

import (
	"encoding/binary"
	"testing"

	gethcommon "github.com/ethereum/go-ethereum/common"
	geth "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/farcasterxyz/hubd/types"
)

func topicFromUint64(v uint64) gethcommon.Hash {
	var h gethcommon.Hash
	binary.BigEndian.PutUint64(h[24:32], v)
	return h
}

func wordFromUint64(v uint64) []byte {
	w := make([]byte, 32)
	binary.BigEndian.PutUint64(w[24:32], v)
	return w
}

func wordFromAddress(a gethcommon.Address) []byte {
	w := make([]byte, 32)
	copy(w[12:32], a[:])
	return w
}

func TestDecodePurchasedTier(t *testing.T) {
	d := New(0, gethcommon.Address{})
	payer := gethcommon.HexToAddress("0x4444444444444444444444444444444444444444")

	var data []byte
	data = append(data, wordFromUint64(2)...)  // tier
	data = append(data, wordFromUint64(30)...) // forDays
	data = append(data, wordFromAddress(payer)...)

	log := geth.Log{
		Address: TierRegistryAddress,
		Topics:  []gethcommon.Hash{sigPurchasedTier, topicFromUint64(99)},
		Data:    data,
	}

	ev, ok, err := d.Decode(log, 1_700_000_000)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.Fid(99), ev.Fid)
	require.Equal(t, types.OnChainEventTypeTierPurchase, ev.Type)
	body, ok := ev.Body.(types.TierPurchase)
	require.True(t, ok)
	require.Equal(t, uint8(2), body.TierType)
	require.Equal(t, uint32(30), body.ForDays)
	require.Equal(t, payer, gethcommon.Address(body.Payer))
}

func TestDecodeUnknownTopicIsSkipped(t *testing.T) {
	d := New(0, gethcommon.Address{})
	var unknownSig gethcommon.Hash
	unknownSig[0] = 0xAB

	log := geth.Log{Address: TierRegistryAddress, Topics: []gethcommon.Hash{unknownSig}}
	ev, ok, err := d.Decode(log, 0)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, ev)
}

func TestDecodeMissingFidTopicErrors(t *testing.T) {
	d := New(0, gethcommon.Address{})
	log := geth.Log{Address: TierRegistryAddress, Topics: []gethcommon.Hash{sigPurchasedTier}}
	_, _, err := d.Decode(log, 0)
	require.Error(t, err)
}

func TestNewWithAddressOverride(t *testing.T) {
	override := gethcommon.HexToAddress("0x5555555555555555555555555555555555555555")
	d := New(42, override)
	require.Equal(t, []gethcommon.Address{override}, d.ContractAddresses())
	require.Equal(t, uint64(42), d.StartBlockNumber())
	require.Equal(t, types.ChainIDBase, d.ChainID())
}

func TestNewWithoutOverrideUsesProductionAddress(t *testing.T) {
	d := New(0, gethcommon.Address{})
	require.Equal(t, []gethcommon.Address{TierRegistryAddress}, d.ContractAddresses())
}
