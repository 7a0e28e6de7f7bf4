// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gossip

import (
	"encoding/binary"
	"fmt"

	"github.com/farcasterxyz/hubd/store"
	"github.com/farcasterxyz/hubd/types"
)

func putU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func putU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func getU32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, fmt.Errorf("gossip: truncated u32")
	}
	return binary.BigEndian.Uint32(b[:4]), b[4:], nil
}

func getU64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, fmt.Errorf("gossip: truncated u64")
	}
	return binary.BigEndian.Uint64(b[:8]), b[8:], nil
}

// BinaryCodec is the on-wire codec the gossip Adapter uses to encode and
// decode ProposalPart and DecidedValue envelopes (spec.md §6: "length-
// prefixed" wire payloads). Grounded on consensus/host/codec.go's own
// hand-rolled big-endian layout rather than a generated protobuf codec: no
// .proto schema exists anywhere in the example pack to generate from, and
// this module's only other wire encoder (store/encode.go, also reused here
// for embedded messages) follows the identical hand-rolled approach.
type BinaryCodec struct{}

func (BinaryCodec) EncodeProposalPart(p *ProposalPart) ([]byte, error) {
	var buf []byte
	buf = append(buf, p.StreamId[:]...)

	proposal := p.Proposal
	buf = putU32(buf, uint32(proposal.Height.ShardIndex))
	buf = putU64(buf, proposal.Height.BlockNumber)
	buf = putU64(buf, proposal.Round)
	buf = append(buf, proposal.Proposer[:]...)

	if proposal.ProposedChunk == nil {
		buf = append(buf, 0)
		return buf, nil
	}
	buf = append(buf, 1)

	chunk := proposal.ProposedChunk
	buf = append(buf, chunk.Hash[:]...)
	buf = append(buf, chunk.Header.ShardRoot[:]...)
	buf = append(buf, chunk.Header.ParentHash[:]...)
	buf = putU64(buf, uint64(chunk.Header.Timestamp))

	buf = putU32(buf, uint32(len(chunk.Transactions)))
	for _, tx := range chunk.Transactions {
		fb := tx.Fid.Bytes()
		buf = append(buf, fb[:]...)
		buf = append(buf, tx.AccountRoot[:]...)
		buf = putU32(buf, uint32(len(tx.UserMessages)))
		for _, msg := range tx.UserMessages {
			enc, err := store.Encode(msg)
			if err != nil {
				return nil, err
			}
			buf = putU32(buf, uint32(len(enc)))
			buf = append(buf, enc...)
		}
	}
	return buf, nil
}

func (BinaryCodec) DecodeProposalPart(b []byte) (*ProposalPart, error) {
	if len(b) < 16 {
		return nil, fmt.Errorf("gossip: truncated proposal part stream id")
	}
	var streamID StreamId
	copy(streamID[:], b[:16])
	b = b[16:]

	shardIdx, b, err := getU32(b)
	if err != nil {
		return nil, err
	}
	blockNumber, b, err := getU64(b)
	if err != nil {
		return nil, err
	}
	round, b, err := getU64(b)
	if err != nil {
		return nil, err
	}
	if len(b) < 33 {
		return nil, fmt.Errorf("gossip: truncated proposer/chunk-flag")
	}
	var proposer [32]byte
	copy(proposer[:], b[:32])
	b = b[32:]
	hasChunk := b[0] == 1
	b = b[1:]

	proposal := &types.FullProposal{
		Height:   types.Height{ShardIndex: types.ShardIndex(shardIdx), BlockNumber: blockNumber},
		Round:    round,
		Proposer: proposer,
	}
	if !hasChunk {
		return &ProposalPart{StreamId: streamID, Proposal: proposal}, nil
	}

	if len(b) < 96 {
		return nil, fmt.Errorf("gossip: truncated chunk roots")
	}
	var hash, shardRoot, parentHash [32]byte
	copy(hash[:], b[:32])
	copy(shardRoot[:], b[32:64])
	copy(parentHash[:], b[64:96])
	b = b[96:]

	ts, b, err := getU64(b)
	if err != nil {
		return nil, err
	}

	n, b, err := getU32(b)
	if err != nil {
		return nil, err
	}
	txs := make([]*types.Transaction, 0, n)
	for i := uint32(0); i < n; i++ {
		if len(b) < 4+32 {
			return nil, fmt.Errorf("gossip: truncated transaction header")
		}
		fid := types.FidFromBytes(b[:4])
		b = b[4:]
		var accountRoot [32]byte
		copy(accountRoot[:], b[:32])
		b = b[32:]

		var mcount uint32
		mcount, b, err = getU32(b)
		if err != nil {
			return nil, err
		}
		msgs := make([]*types.Message, 0, mcount)
		for j := uint32(0); j < mcount; j++ {
			var mlen uint32
			mlen, b, err = getU32(b)
			if err != nil {
				return nil, err
			}
			if uint32(len(b)) < mlen {
				return nil, fmt.Errorf("gossip: truncated message")
			}
			msg, derr := store.Decode(b[:mlen])
			if derr != nil {
				return nil, derr
			}
			msgs = append(msgs, msg)
			b = b[mlen:]
		}
		txs = append(txs, &types.Transaction{Fid: fid, UserMessages: msgs, AccountRoot: accountRoot})
	}

	proposal.ProposedChunk = &types.ShardChunk{
		Header: types.ShardHeader{
			Height:     proposal.Height,
			Timestamp:  int64(ts),
			ShardRoot:  shardRoot,
			ParentHash: parentHash,
		},
		Transactions: txs,
		Hash:         hash,
	}
	return &ProposalPart{StreamId: streamID, Proposal: proposal}, nil
}

func (BinaryCodec) EncodeDecidedValue(d *DecidedValue) ([]byte, error) {
	var buf []byte
	buf = putU32(buf, uint32(d.Height.ShardIndex))
	buf = putU64(buf, d.Height.BlockNumber)
	if d.Commits == nil {
		buf = append(buf, 0)
	} else {
		buf = append(buf, 1)
		buf = putU64(buf, d.Commits.Round)
		buf = append(buf, d.Commits.Value[:]...)
		buf = putU32(buf, uint32(len(d.Commits.Signatures)))
		for _, s := range d.Commits.Signatures {
			buf = append(buf, s.Signer[:]...)
			buf = append(buf, s.Signature[:]...)
		}
	}
	buf = putU32(buf, uint32(len(d.Value)))
	buf = append(buf, d.Value...)
	return buf, nil
}

func (BinaryCodec) DecodeDecidedValue(b []byte) (*DecidedValue, error) {
	shardIdx, b, err := getU32(b)
	if err != nil {
		return nil, err
	}
	blockNumber, b, err := getU64(b)
	if err != nil {
		return nil, err
	}
	height := types.Height{ShardIndex: types.ShardIndex(shardIdx), BlockNumber: blockNumber}

	if len(b) < 1 {
		return nil, fmt.Errorf("gossip: truncated commits flag")
	}
	hasCommits := b[0] == 1
	b = b[1:]

	var commits *types.Commits
	if hasCommits {
		round, rest, err := getU64(b)
		if err != nil {
			return nil, err
		}
		b = rest
		if len(b) < 32 {
			return nil, fmt.Errorf("gossip: truncated commits value")
		}
		var value types.ShardHash
		copy(value[:], b[:32])
		b = b[32:]

		n, rest2, err := getU32(b)
		if err != nil {
			return nil, err
		}
		b = rest2
		sigs := make([]types.Signature, 0, n)
		for i := uint32(0); i < n; i++ {
			if len(b) < 96 {
				return nil, fmt.Errorf("gossip: truncated signature")
			}
			var sig types.Signature
			copy(sig.Signer[:], b[:32])
			copy(sig.Signature[:], b[32:96])
			b = b[96:]
			sigs = append(sigs, sig)
		}
		commits = &types.Commits{Height: height, Round: round, Value: value, Signatures: sigs}
	}

	n, b, err := getU32(b)
	if err != nil {
		return nil, err
	}
	if uint32(len(b)) < n {
		return nil, fmt.Errorf("gossip: truncated decided value payload")
	}
	value := append([]byte(nil), b[:n]...)

	return &DecidedValue{Height: height, Commits: commits, Value: value}, nil
}
