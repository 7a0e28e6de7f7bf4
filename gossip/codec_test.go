// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gossip

import (
	"testing"

	"github.com/farcasterxyz/hubd/types"
)

func TestBinaryCodecRoundTripsProposalPartWithChunk(t *testing.T) {
	c := BinaryCodec{}
	msg := &types.Message{
		Data: &types.MessageData{
			Fid:       1,
			Type:      types.MessageTypeCastAdd,
			Timestamp: 1000,
			Network:   types.NetworkMainnet,
			Body:      types.CastAdd{Text: "hello"},
		},
		Hash: [20]byte{0xAA},
	}
	part := &ProposalPart{
		StreamId: NewStreamId(7, 0),
		Proposal: &types.FullProposal{
			Height:   types.Height{ShardIndex: 1, BlockNumber: 7},
			Round:    0,
			Proposer: [32]byte{1},
			ProposedChunk: &types.ShardChunk{
				Header: types.ShardHeader{
					Height:    types.Height{ShardIndex: 1, BlockNumber: 7},
					Timestamp: 500,
					ShardRoot: [32]byte{2},
				},
				Hash: [32]byte{3},
				Transactions: []*types.Transaction{
					{Fid: 1, UserMessages: []*types.Message{msg}, AccountRoot: [32]byte{4}},
				},
			},
		},
	}

	encoded, err := c.EncodeProposalPart(part)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := c.DecodeProposalPart(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.StreamId != part.StreamId {
		t.Fatal("stream id mismatch")
	}
	if decoded.Proposal.Height != part.Proposal.Height {
		t.Fatal("height mismatch")
	}
	if decoded.Proposal.ProposedChunk.Hash != part.Proposal.ProposedChunk.Hash {
		t.Fatal("chunk hash mismatch")
	}
	if len(decoded.Proposal.ProposedChunk.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(decoded.Proposal.ProposedChunk.Transactions))
	}
	gotMsg := decoded.Proposal.ProposedChunk.Transactions[0].UserMessages[0]
	if gotMsg.Hash != msg.Hash {
		t.Fatal("round-tripped message hash mismatch")
	}
}

func TestBinaryCodecRoundTripsProposalPartWithoutChunk(t *testing.T) {
	c := BinaryCodec{}
	part := &ProposalPart{
		StreamId: NewStreamId(1, 0),
		Proposal: &types.FullProposal{
			Height:   types.Height{ShardIndex: 0, BlockNumber: 1},
			Round:    2,
			Proposer: [32]byte{9},
		},
	}
	encoded, err := c.EncodeProposalPart(part)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := c.DecodeProposalPart(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Proposal.ProposedChunk != nil {
		t.Fatal("expected no chunk to round-trip as nil")
	}
	if decoded.Proposal.Round != 2 {
		t.Fatal("round mismatch")
	}
}

func TestBinaryCodecRoundTripsDecidedValueWithCommits(t *testing.T) {
	c := BinaryCodec{}
	dv := &DecidedValue{
		Height: types.Height{ShardIndex: 1, BlockNumber: 9},
		Commits: &types.Commits{
			Height: types.Height{ShardIndex: 1, BlockNumber: 9},
			Round:  1,
			Value:  types.ShardHash{5},
			Signatures: []types.Signature{
				{Signer: [32]byte{1}, Signature: [64]byte{2}},
				{Signer: [32]byte{3}, Signature: [64]byte{4}},
			},
		},
		Value: []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}
	encoded, err := c.EncodeDecidedValue(dv)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := c.DecodeDecidedValue(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Height != dv.Height {
		t.Fatal("height mismatch")
	}
	if decoded.Commits == nil || decoded.Commits.Value != dv.Commits.Value {
		t.Fatal("commits value mismatch")
	}
	if len(decoded.Commits.Signatures) != 2 {
		t.Fatalf("expected 2 signatures, got %d", len(decoded.Commits.Signatures))
	}
	if string(decoded.Value) != string(dv.Value) {
		t.Fatal("value payload mismatch")
	}
}

func TestBinaryCodecRoundTripsDecidedValueWithoutCommits(t *testing.T) {
	c := BinaryCodec{}
	dv := &DecidedValue{Height: types.Height{ShardIndex: 2, BlockNumber: 3}, Value: []byte{1, 2, 3}}
	encoded, err := c.EncodeDecidedValue(dv)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := c.DecodeDecidedValue(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Commits != nil {
		t.Fatal("expected nil commits to round-trip as nil")
	}
}
