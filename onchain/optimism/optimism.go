// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package optimism decodes the three Optimism-mainnet registry contracts
// spec.md §4.5 names (StorageRegistry, IdRegistry, KeyRegistry) into
// OnChainEvent bodies. Event signatures, contract addresses, and the
// indexed/non-indexed field layout are grounded on
// original_source/src/connectors/onchain_events/mod.rs, which decodes the
// same three contracts against the same ABIs.
package optimism

import (
	"fmt"

	gethcommon "github.com/ethereum/go-ethereum/common"
	geth "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/farcasterxyz/hubd/onchain"
	"github.com/farcasterxyz/hubd/onchain/abiutil"
	"github.com/farcasterxyz/hubd/types"
)

// Contract addresses on Optimism mainnet, unchanged across deployments
// (original_source Contract::storage_registry/key_registry/id_registry).
var (
	StorageRegistryAddress = gethcommon.HexToAddress("0x00000000fcCe7f938e7aE6D3c335bD6a1a7c593d")
	KeyRegistryAddress     = gethcommon.HexToAddress("0x00000000Fc1237824fb747aBDE0FF18990E59b7e")
	IDRegistryAddress      = gethcommon.HexToAddress("0x00000000Fc6c5F01Fc30151999387Bb99A9f489b")
)

var (
	sigRent                  = crypto.Keccak256Hash([]byte("Rent(address,uint256,uint256)"))
	sigRegister              = crypto.Keccak256Hash([]byte("Register(address,uint256,address)"))
	sigTransfer              = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	sigChangeRecoveryAddress = crypto.Keccak256Hash([]byte("ChangeRecoveryAddress(uint256,address)"))
	sigKeyAdd                = crypto.Keccak256Hash([]byte("Add(uint256,uint32,bytes,bytes,uint8,bytes)"))
	sigKeyRemove             = crypto.Keccak256Hash([]byte("Remove(uint256,bytes,bytes)"))
	sigKeyAdminReset         = crypto.Keccak256Hash([]byte("AdminReset(uint256,bytes,bytes)"))
	sigKeyMigrated           = crypto.Keccak256Hash([]byte("Migrated(uint256)"))
)

// Decoder implements onchain.Decoder for the three Optimism registries.
type Decoder struct {
	ChainIDValue types.ChainID
	StartBlock   uint64
}

// New constructs the Optimism decoder with the production registry
// addresses.
func New(startBlock uint64) *Decoder {
	return &Decoder{ChainIDValue: types.ChainIDOptimism, StartBlock: startBlock}
}

func (d *Decoder) ContractAddresses() []gethcommon.Address {
	return []gethcommon.Address{StorageRegistryAddress, KeyRegistryAddress, IDRegistryAddress}
}

func (d *Decoder) StartBlockNumber() uint64 { return d.StartBlock }
func (d *Decoder) ChainID() types.ChainID   { return d.ChainIDValue }

// Decode demultiplexes on the log's signature topic, matching
// original_source's process_log match arms one-for-one.
func (d *Decoder) Decode(log geth.Log, blockTimestamp uint64) (*types.OnChainEvent, bool, error) {
	if len(log.Topics) == 0 {
		return nil, false, nil
	}
	base := types.OnChainEvent{
		ChainID:        d.ChainIDValue,
		BlockNumber:    log.BlockNumber,
		BlockHash:      log.BlockHash,
		TxHash:         log.TxHash,
		LogIndex:       uint32(log.Index),
		TxIndex:        uint32(log.TxIndex),
		BlockTimestamp: blockTimestamp,
	}

	switch log.Topics[0] {
	case sigRent:
		// Rent(address indexed payer, uint256 indexed fid, uint256 units)
		if len(log.Topics) < 3 {
			return nil, false, fmt.Errorf("optimism: Rent missing indexed topics")
		}
		payer := abiutil.TopicAddress(log.Topics[1])
		fid := abiutil.TopicUint64(log.Topics[2])
		units, err := abiutil.Uint64(log.Data, 0)
		if err != nil {
			return nil, false, err
		}
		base.Fid = types.Fid(fid)
		base.Type = types.OnChainEventTypeStorageRent
		base.Body = types.StorageRent{
			Payer:  payer,
			Units:  uint32(units),
			Expiry: blockTimestamp + types.StorageRentExpirySeconds,
		}
		return &base, true, nil

	case sigRegister:
		// Register(address indexed to, uint256 indexed id, address recovery)
		if len(log.Topics) < 3 {
			return nil, false, fmt.Errorf("optimism: Register missing indexed topics")
		}
		to := abiutil.TopicAddress(log.Topics[1])
		fid := abiutil.TopicUint64(log.Topics[2])
		recovery, err := abiutil.Address(log.Data, 0)
		if err != nil {
			return nil, false, err
		}
		base.Fid = types.Fid(fid)
		base.Type = types.OnChainEventTypeIDRegister
		base.Body = types.IDRegister{EventType: types.IDRegisterEventTypeRegister, To: to, Recovery: recovery}
		return &base, true, nil

	case sigTransfer:
		// Transfer(address indexed from, address indexed to, uint256 indexed id)
		if len(log.Topics) < 4 {
			return nil, false, fmt.Errorf("optimism: Transfer missing indexed topics")
		}
		from := abiutil.TopicAddress(log.Topics[1])
		to := abiutil.TopicAddress(log.Topics[2])
		fid := abiutil.TopicUint64(log.Topics[3])
		base.Fid = types.Fid(fid)
		base.Type = types.OnChainEventTypeIDRegister
		base.Body = types.IDRegister{EventType: types.IDRegisterEventTypeTransfer, From: from, To: to}
		return &base, true, nil

	case sigChangeRecoveryAddress:
		// ChangeRecoveryAddress(uint256 indexed id, address recovery)
		if len(log.Topics) < 2 {
			return nil, false, fmt.Errorf("optimism: ChangeRecoveryAddress missing indexed topic")
		}
		fid := abiutil.TopicUint64(log.Topics[1])
		recovery, err := abiutil.Address(log.Data, 0)
		if err != nil {
			return nil, false, err
		}
		base.Fid = types.Fid(fid)
		base.Type = types.OnChainEventTypeIDRegister
		base.Body = types.IDRegister{EventType: types.IDRegisterEventTypeChangeRecovery, Recovery: recovery}
		return &base, true, nil

	case sigKeyAdd:
		// Add(uint256 indexed fid, uint32 keyType, bytes indexed key, bytes keyBytes, uint8 metadataType, bytes metadata)
		if len(log.Topics) < 2 {
			return nil, false, fmt.Errorf("optimism: Add missing indexed fid topic")
		}
		fid := abiutil.TopicUint64(log.Topics[1])
		keyType, err := abiutil.Uint32(log.Data, 0)
		if err != nil {
			return nil, false, err
		}
		keyBytes, err := abiutil.DynamicBytes(log.Data, 1)
		if err != nil {
			return nil, false, err
		}
		metadataType, err := abiutil.Uint32(log.Data, 2)
		if err != nil {
			return nil, false, err
		}
		metadata, err := abiutil.DynamicBytes(log.Data, 3)
		if err != nil {
			return nil, false, err
		}
		base.Fid = types.Fid(fid)
		base.Type = types.OnChainEventTypeSigner
		base.Body = types.Signer{
			Key:          keyDigest(keyBytes),
			KeyType:      keyType,
			EventType:    types.SignerEventTypeAdd,
			Metadata:     metadata,
			MetadataType: uint8(metadataType),
		}
		return &base, true, nil

	case sigKeyRemove:
		// Remove(uint256 indexed fid, bytes indexed key, bytes keyBytes)
		if len(log.Topics) < 2 {
			return nil, false, fmt.Errorf("optimism: Remove missing indexed fid topic")
		}
		fid := abiutil.TopicUint64(log.Topics[1])
		keyBytes, err := abiutil.DynamicBytes(log.Data, 0)
		if err != nil {
			return nil, false, err
		}
		base.Fid = types.Fid(fid)
		base.Type = types.OnChainEventTypeSigner
		base.Body = types.Signer{Key: keyDigest(keyBytes), EventType: types.SignerEventTypeRemove}
		return &base, true, nil

	case sigKeyAdminReset:
		// AdminReset(uint256 indexed fid, bytes indexed key, bytes keyBytes)
		if len(log.Topics) < 2 {
			return nil, false, fmt.Errorf("optimism: AdminReset missing indexed fid topic")
		}
		fid := abiutil.TopicUint64(log.Topics[1])
		keyBytes, err := abiutil.DynamicBytes(log.Data, 0)
		if err != nil {
			return nil, false, err
		}
		base.Fid = types.Fid(fid)
		base.Type = types.OnChainEventTypeSigner
		base.Body = types.Signer{Key: keyDigest(keyBytes), EventType: types.SignerEventTypeAdminReset}
		return &base, true, nil

	case sigKeyMigrated:
		// Migrated(uint256 keysMigratedAt)
		migratedAt, err := abiutil.Uint64(log.Data, 0)
		if err != nil {
			return nil, false, err
		}
		base.Fid = 0
		base.Type = types.OnChainEventTypeSignerMigrated
		base.Body = types.SignerMigrated{MigratedAt: migratedAt}
		return &base, true, nil
	}

	return nil, false, nil
}

// keyDigest truncates a signer key to the fixed 32-byte storage shape;
// Ed25519 keys are already 32 bytes so this is a straight copy in the
// common case.
func keyDigest(b []byte) (out [32]byte) {
	copy(out[:], b)
	return out
}

var _ onchain.Decoder = (*Decoder)(nil)
