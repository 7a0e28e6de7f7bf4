// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package admission implements mempool.Validator: the syntactic and
// signature checks spec.md §5 names for message admission ("admission:
// syntactic validation and signature check"). Grounded on the teacher's
// network admission checks wired through crypto/verify and crypto/hashing.
package admission

import (
	"github.com/farcasterxyz/hubd/crypto/hashing"
	"github.com/farcasterxyz/hubd/crypto/verify"
	"github.com/farcasterxyz/hubd/errs"
	"github.com/farcasterxyz/hubd/types"
)

// MessageValidator checks a Message's hash, signature, and network before
// it is admitted to the mempool. It implements mempool.Validator.
type MessageValidator struct {
	Network types.Network
}

// New constructs a MessageValidator scoped to one Farcaster network,
// rejecting messages signed for any other (spec.md §3 "preventing
// cross-network replay").
func New(network types.Network) *MessageValidator {
	return &MessageValidator{Network: network}
}

// Validate checks, in order: the message carries a body, its network
// matches, its declared hash matches blake3_20(canonical(data)), and its
// Ed25519 signature verifies under signer over that hash.
func (v *MessageValidator) Validate(msg *types.Message) error {
	if msg == nil || msg.Data == nil {
		return errs.New(errs.KindValidation, "message has no data")
	}
	if msg.Data.Network != v.Network {
		return errs.New(errs.KindValidation, "message targets the wrong network")
	}
	if msg.HashScheme != types.HashSchemeBlake3 {
		return errs.New(errs.KindValidation, "unsupported hash scheme")
	}
	if msg.SignatureScheme != types.SignatureSchemeEd25519 {
		return errs.New(errs.KindValidation, "unsupported signature scheme")
	}

	canonical, err := msg.CanonicalBytes()
	if err != nil {
		return errs.Wrap(errs.KindValidation, "canonical encoding", err)
	}
	if hashing.Hash20(canonical) != msg.Hash {
		return errs.New(errs.KindValidation, "hash does not match canonical data")
	}
	if !verify.Ed25519(msg.Signer, msg.Hash, msg.Signature) {
		return errs.New(errs.KindValidation, "signature does not verify")
	}
	return nil
}
