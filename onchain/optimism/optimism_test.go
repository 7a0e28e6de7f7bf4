// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package optimism

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

func topicFromAddress(a gethcommon.Address) gethcommon.Hash {
	var h gethcommon.Hash
	copy(h[12:32], a[:])
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

func TestDecodeRent(t *testing.T) {
	d := New(0)
	payer := gethcommon.HexToAddress("0x1111111111111111111111111111111111111111")

	data := wordFromUint64(200) // units

	log := geth.Log{
		Address: StorageRegistryAddress,
		Topics:  []gethcommon.Hash{sigRent, topicFromAddress(payer), topicFromUint64(42)},
		Data:    data,
	}

	ev, ok, err := d.Decode(log, 1_700_000_000)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.Fid(42), ev.Fid)
	require.Equal(t, types.OnChainEventTypeStorageRent, ev.Type)
	rent, ok := ev.Body.(types.StorageRent)
	require.True(t, ok)
	require.Equal(t, payer, gethcommon.Address(rent.Payer))
	require.Equal(t, uint32(200), rent.Units)
	require.Equal(t, uint64(1_700_000_000)+types.StorageRentExpirySeconds, rent.Expiry)
}

func TestDecodeRegister(t *testing.T) {
	d := New(0)
	to := gethcommon.HexToAddress("0x2222222222222222222222222222222222222222")
	recovery := gethcommon.HexToAddress("0x3333333333333333333333333333333333333333")

	log := geth.Log{
		Address: IDRegistryAddress,
		Topics:  []gethcommon.Hash{sigRegister, topicFromAddress(to), topicFromUint64(7)},
		Data:    wordFromAddress(recovery),
	}

	ev, ok, err := d.Decode(log, 1000)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.Fid(7), ev.Fid)
	body, ok := ev.Body.(types.IDRegister)
	require.True(t, ok)
	require.Equal(t, types.IDRegisterEventTypeRegister, body.EventType)
	require.Equal(t, to, gethcommon.Address(body.To))
	require.Equal(t, recovery, gethcommon.Address(body.Recovery))
}

func TestDecodeUnknownTopicIsSkipped(t *testing.T) {
	d := New(0)
	var unknownSig gethcommon.Hash
	unknownSig[0] = 0xAB

	log := geth.Log{Address: StorageRegistryAddress, Topics: []gethcommon.Hash{unknownSig}}
	ev, ok, err := d.Decode(log, 0)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, ev)
}

func TestContractAddressesCoversAllThreeRegistries(t *testing.T) {
	d := New(12345)
	addrs := d.ContractAddresses()
	require.ElementsMatch(t, []gethcommon.Address{StorageRegistryAddress, KeyRegistryAddress, IDRegistryAddress}, addrs)
	require.Equal(t, uint64(12345), d.StartBlockNumber())
	require.Equal(t, types.ChainIDOptimism, d.ChainID())
}
