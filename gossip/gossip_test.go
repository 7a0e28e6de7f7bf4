// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gossip

import (
	"context"
	"errors"
	"testing"

	"github.com/farcasterxyz/hubd/types"
)

// fakeCodec round-trips ProposalPart/DecidedValue by tagging the payload
// with a one-byte marker, avoiding a dependency on the real BinaryCodec
// wire format for these unit tests.
type fakeCodec struct {
	lastProposalPart *ProposalPart
	lastDecided      *DecidedValue
}

func (c *fakeCodec) EncodeProposalPart(p *ProposalPart) ([]byte, error) {
	return []byte{0xAA}, nil
}

func (c *fakeCodec) DecodeProposalPart(b []byte) (*ProposalPart, error) {
	if len(b) != 1 || b[0] != 0xAA {
		return nil, errors.New("bad payload")
	}
	return c.lastProposalPart, nil
}

func (c *fakeCodec) EncodeDecidedValue(d *DecidedValue) ([]byte, error) {
	return []byte{0xBB}, nil
}

func (c *fakeCodec) DecodeDecidedValue(b []byte) (*DecidedValue, error) {
	if len(b) != 1 || b[0] != 0xBB {
		return nil, errors.New("bad payload")
	}
	return c.lastDecided, nil
}

type recordingHandler struct {
	proposalParts []*ProposalPart
	decidedValues []*DecidedValue
}

func (h *recordingHandler) OnProposalPart(from NodeID, part *ProposalPart) {
	h.proposalParts = append(h.proposalParts, part)
}
func (h *recordingHandler) OnDecidedValue(from NodeID, value *DecidedValue) {
	h.decidedValues = append(h.decidedValues, value)
}
func (h *recordingHandler) OnStatus(from NodeID, status *StatusMessage) {}

func TestStreamIdBigEndianLayout(t *testing.T) {
	id := NewStreamId(0x0102030405060708, 0x0a0b0c0d0e0f1011)
	want := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, 0x11}
	if id != StreamId(want) {
		t.Fatalf("unexpected StreamId layout: %x", id)
	}
}

func TestDispatchProposalPartRoutesToHandler(t *testing.T) {
	codec := &fakeCodec{lastProposalPart: &ProposalPart{StreamId: NewStreamId(1, 0)}}
	a := New(1, NodeID{1}, nil, codec)
	h := &recordingHandler{}
	a.SetHandler(h)

	envelope := append([]byte{byte(TopicProposalPart)}, 0xAA)
	if err := a.Dispatch(NodeID{2}, envelope); err != nil {
		t.Fatal(err)
	}
	if len(h.proposalParts) != 1 {
		t.Fatalf("expected 1 dispatched proposal part, got %d", len(h.proposalParts))
	}
}

func TestDispatchDecidedValueRoutesToHandler(t *testing.T) {
	codec := &fakeCodec{lastDecided: &DecidedValue{Height: types.Height{BlockNumber: 5}}}
	a := New(1, NodeID{1}, nil, codec)
	h := &recordingHandler{}
	a.SetHandler(h)

	envelope := append([]byte{byte(TopicDecidedValue)}, 0xBB)
	if err := a.Dispatch(NodeID{2}, envelope); err != nil {
		t.Fatal(err)
	}
	if len(h.decidedValues) != 1 {
		t.Fatalf("expected 1 dispatched decided value, got %d", len(h.decidedValues))
	}
}

func TestDispatchWithoutHandlerIsNoop(t *testing.T) {
	a := New(1, NodeID{1}, nil, &fakeCodec{})
	if err := a.Dispatch(NodeID{2}, []byte{byte(TopicStatus)}); err != nil {
		t.Fatal(err)
	}
}

func TestDispatchEmptyEnvelopeIsNoop(t *testing.T) {
	a := New(1, NodeID{1}, nil, &fakeCodec{})
	if err := a.Dispatch(NodeID{2}, nil); err != nil {
		t.Fatal(err)
	}
}

func TestPublishProposalPartWithNilSenderDoesNotError(t *testing.T) {
	a := New(1, NodeID{1}, nil, &fakeCodec{})
	part := &ProposalPart{StreamId: NewStreamId(1, 0)}
	if err := a.PublishProposalPart(context.Background(), []NodeID{{9}}, part); err != nil {
		t.Fatal(err)
	}
}
