// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package verify checks the two signature schemes spec.md names: Ed25519
// over a message hash for every user message, and secp256k1 recovery for
// Ethereum verification claims. Grounded on the teacher go.mod's direct
// dependencies filippo.io/edwards25519 and decred/dcrd/dcrec/secp256k1/v4.
package verify

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Ed25519 verifies that signature is a valid Ed25519 signature by signer
// over hash.
func Ed25519(signer [32]byte, hash [20]byte, signature [64]byte) bool {
	return ed25519.Verify(ed25519.PublicKey(signer[:]), hash[:], signature[:])
}

// VerificationClaim is the payload an Ethereum VerificationAddAddress
// claim signs — fid, address, block hash and network. Its signer is
// recovered over EthereumVerificationDigest of these fields rather than
// over a bare message hash.
type VerificationClaim struct {
	Fid       uint64
	Address   [20]byte
	BlockHash [32]byte
	Network   uint8
}

// EthereumVerificationDigest computes the digest a verification claim is
// signed over: sha256(fid_be64 ∥ address ∥ block hash ∥ network). It is
// neither an EIP-712 typed-data hash nor an EIP-191 prefixed personal-sign
// digest.
func EthereumVerificationDigest(c VerificationClaim) [32]byte {
	buf := make([]byte, 0, 8+20+32+1)
	for i := 7; i >= 0; i-- {
		buf = append(buf, byte(c.Fid>>(8*uint(i))))
	}
	buf = append(buf, c.Address[:]...)
	buf = append(buf, c.BlockHash[:]...)
	buf = append(buf, c.Network)
	return sha256.Sum256(buf)
}

// RecoverEthereumAddress recovers the 20-byte Ethereum address that
// produced signature over digest, returning an error if the signature is
// malformed or does not recover.
func RecoverEthereumAddress(digest [32]byte, signature []byte) ([20]byte, error) {
	var out [20]byte
	if len(signature) != 65 {
		return out, fmt.Errorf("verify: expected 65-byte recoverable signature, got %d", len(signature))
	}
	// Ethereum signatures are r(32) || s(32) || v(1) with v in {27,28} or
	// {0,1}; dcrd expects the recovery id in a leading byte.
	v := signature[64]
	if v >= 27 {
		v -= 27
	}
	sig := make([]byte, 65)
	sig[0] = v + 27
	copy(sig[1:33], signature[0:32])
	copy(sig[33:65], signature[32:64])

	pub, _, err := ecdsa.RecoverCompact(sig, digest[:])
	if err != nil {
		return out, fmt.Errorf("verify: recover failed: %w", err)
	}
	addr := ethereumAddress(pub)
	copy(out[:], addr[:])
	return out, nil
}

// ethereumAddress derives the 20-byte Ethereum address from an uncompressed
// secp256k1 public key: keccak256(pubkey.X || pubkey.Y)[12:].
func ethereumAddress(pub *secp256k1.PublicKey) [20]byte {
	uncompressed := pub.SerializeUncompressed() // 0x04 || X(32) || Y(32)
	h := ethcrypto.Keccak256(uncompressed[1:])
	var out [20]byte
	copy(out[:], h[12:])
	return out
}

var errInvalidAddress = errors.New("verify: invalid address length")

// ValidateAddressLength checks the 20-byte Ethereum address invariant
// spec.md §7 names explicitly as a Validation error source.
func ValidateAddressLength(addr []byte) error {
	if len(addr) != 20 {
		return errInvalidAddress
	}
	return nil
}
