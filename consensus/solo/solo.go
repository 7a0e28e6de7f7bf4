// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package solo implements consensus/host.Driver for a single-validator
// deployment (local devnet, testnet-setup's "small" topology): it drives
// one height at a time by immediately calling GetValue and certifying the
// result with its own signature, skipping the vote-exchange a real
// multi-validator BFT library performs. An embedded BFT library
// implementation is a Non-goal of this repository (SPEC_FULL.md §8.1);
// this driver exists only so a one-validator node has something to plug
// into consensus/host.Host — a production deployment with more than one
// validator must supply its own Driver satisfying the same interface.
package solo

import (
	"context"
	"time"

	"github.com/farcasterxyz/hubd/consensus/host"
	"github.com/farcasterxyz/hubd/errs"
	"github.com/farcasterxyz/hubd/logging"
	"github.com/farcasterxyz/hubd/types"
)

// Signer produces a Vote signature for this validator's own identity.
type Signer interface {
	Sign(vote types.Vote) types.Signature
}

// Driver drives a single-validator Host: every height is decided as soon
// as GetValue returns, certified by exactly one signature.
type Driver struct {
	host    *host.Host
	signer  Signer
	timeout time.Duration
	log     *logging.Logger
}

// New constructs a solo Driver around an already-constructed Host. Since
// host.New takes its Driver up front, the caller passes host.New an
// indirection that forwards to this Driver once installed (cmd/hubd's
// driverHolder), then calls the Host's ConsensusReady.
func New(h *host.Host, signer Signer, timeout time.Duration, log *logging.Logger) *Driver {
	if log == nil {
		log = logging.NewNop()
	}
	return &Driver{host: h, signer: signer, timeout: timeout, log: log}
}

// StartHeight implements host.Driver: it proposes a value for height,
// certifies it with one signature, and immediately reports it decided.
func (d *Driver) StartHeight(height types.Height) {
	const round = 0
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	value, err := d.host.GetValue(ctx, height, round, d.timeout)
	if err != nil {
		d.log.Error("solo driver: get value", logging.Err(err), logging.Uint64("height", height.BlockNumber))
		return
	}

	vote := types.Vote{Height: height, Round: round, Value: value.Value}
	cert := host.Certificate{
		Height:  height,
		Round:   round,
		ValueID: value.Value,
		Commits: &types.Commits{
			Height:     height,
			Round:      round,
			Value:      value.Value,
			Signatures: []types.Signature{d.signer.Sign(vote)},
		},
	}

	if err := d.host.Decided(cert); err != nil {
		d.log.Error("solo driver: decided", logging.Err(err), logging.Uint64("height", height.BlockNumber), logging.Any("kind", errs.KindConsensus))
	}
}
