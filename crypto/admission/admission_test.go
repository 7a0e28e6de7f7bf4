// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admission

import (
	"crypto/ed25519"
	"testing"

	"github.com/farcasterxyz/hubd/crypto/hashing"
	"github.com/farcasterxyz/hubd/types"
)

func signedMessage(t *testing.T, network types.Network) (*types.Message, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	data := &types.MessageData{
		Fid:       1,
		Type:      types.MessageTypeCastAdd,
		Timestamp: 1000,
		Network:   network,
		Body:      types.CastAdd{Text: "hello"},
	}
	canonical, err := types.EncodeMessageData(data)
	if err != nil {
		t.Fatal(err)
	}
	hash := hashing.Hash20(canonical)
	sig := ed25519.Sign(priv, hash[:])

	msg := &types.Message{
		Data:            data,
		Hash:            hash,
		HashScheme:      types.HashSchemeBlake3,
		SignatureScheme: types.SignatureSchemeEd25519,
	}
	copy(msg.Signature[:], sig)
	copy(msg.Signer[:], pub)
	return msg, priv
}

func TestValidateAcceptsCorrectlySignedMessage(t *testing.T) {
	v := New(types.NetworkMainnet)
	msg, _ := signedMessage(t, types.NetworkMainnet)
	if err := v.Validate(msg); err != nil {
		t.Fatalf("expected valid message to pass, got %v", err)
	}
}

func TestValidateRejectsWrongNetwork(t *testing.T) {
	v := New(types.NetworkMainnet)
	msg, _ := signedMessage(t, types.NetworkTestnet)
	if err := v.Validate(msg); err == nil {
		t.Fatal("expected cross-network message to be rejected")
	}
}

func TestValidateRejectsTamperedHash(t *testing.T) {
	v := New(types.NetworkMainnet)
	msg, _ := signedMessage(t, types.NetworkMainnet)
	msg.Hash[0] ^= 0xFF
	if err := v.Validate(msg); err == nil {
		t.Fatal("expected a hash mismatch to be rejected")
	}
}

func TestValidateRejectsBadSignature(t *testing.T) {
	v := New(types.NetworkMainnet)
	msg, _ := signedMessage(t, types.NetworkMainnet)
	msg.Signature[0] ^= 0xFF
	if err := v.Validate(msg); err == nil {
		t.Fatal("expected a corrupted signature to be rejected")
	}
}

func TestValidateRejectsMissingData(t *testing.T) {
	v := New(types.NetworkMainnet)
	if err := v.Validate(&types.Message{}); err == nil {
		t.Fatal("expected a message with no data to be rejected")
	}
}
