// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package verify

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

func TestEd25519RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	var signer [32]byte
	copy(signer[:], pub)

	hash := [20]byte{1, 2, 3}
	sig := ed25519.Sign(priv, hash[:])
	var signature [64]byte
	copy(signature[:], sig)

	if !Ed25519(signer, hash, signature) {
		t.Fatal("expected valid signature to verify")
	}

	signature[0] ^= 0xff
	if Ed25519(signer, hash, signature) {
		t.Fatal("expected tampered signature to fail verification")
	}
}

func TestRecoverEthereumAddress(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}

	claim := VerificationClaim{
		Fid:       1234,
		Address:   [20]byte{0xAA},
		BlockHash: [32]byte{0xBB},
		Network:   1,
	}
	digest := EthereumVerificationDigest(claim)

	sig := ecdsa.SignCompact(priv, digest[:], false)
	// SignCompact returns recovery-id-prefixed (v, r, s); RecoverEthereumAddress
	// expects r||s||v, so rotate the recovery byte to the tail.
	rsv := append(append([]byte{}, sig[1:]...), sig[0]-27)

	addr, err := RecoverEthereumAddress(digest, rsv)
	if err != nil {
		t.Fatal(err)
	}

	want := ethereumAddress(priv.PubKey())
	if addr != want {
		t.Fatalf("recovered address mismatch: got=%x want=%x", addr, want)
	}
}

func TestRecoverEthereumAddressRejectsShortSignature(t *testing.T) {
	var digest [32]byte
	if _, err := RecoverEthereumAddress(digest, make([]byte, 64)); err == nil {
		t.Fatal("expected error for a non-65-byte signature")
	}
}

func TestValidateAddressLength(t *testing.T) {
	if err := ValidateAddressLength(make([]byte, 20)); err != nil {
		t.Fatalf("expected 20-byte address to validate, got %v", err)
	}
	if err := ValidateAddressLength(make([]byte, 19)); err == nil {
		t.Fatal("expected short address to be rejected")
	}
	if err := ValidateAddressLength(make([]byte, 32)); err == nil {
		t.Fatal("expected long address to be rejected")
	}
}
