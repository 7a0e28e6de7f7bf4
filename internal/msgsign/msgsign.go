// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package msgsign builds and signs a minimal CastAdd message the same way
// every user message is built, shared by cmd/submit and cmd/spammer so
// neither CLI tool reimplements the canonical-encode/hash/sign sequence
// the rest of the repo uses for admission.
package msgsign

import (
	"crypto/ed25519"
	"time"

	"github.com/farcasterxyz/hubd/crypto/hashing"
	"github.com/farcasterxyz/hubd/types"
)

// CastAdd constructs and signs a CastAdd message for fid, targeting
// network, signed by key.
func CastAdd(fid types.Fid, text string, network types.Network, key ed25519.PrivateKey) (*types.Message, error) {
	data := &types.MessageData{
		Fid:       fid,
		Type:      types.MessageTypeCastAdd,
		Timestamp: types.FarcasterTimestamp(time.Now().Unix()),
		Network:   network,
		Body:      types.CastAdd{Text: text},
	}
	dataBytes, err := types.EncodeMessageData(data)
	if err != nil {
		return nil, err
	}
	hash := hashing.Hash20(dataBytes)
	sig := ed25519.Sign(key, hash[:])

	msg := &types.Message{
		Data:            data,
		DataBytes:       dataBytes,
		Hash:            hash,
		HashScheme:      types.HashSchemeBlake3,
		SignatureScheme: types.SignatureSchemeEd25519,
	}
	copy(msg.Signature[:], sig)
	copy(msg.Signer[:], key.Public().(ed25519.PublicKey))
	return msg, nil
}
