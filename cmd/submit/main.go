// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command submit signs and submits a single CastAdd message to a running
// hubd node over HubService, for manual testing and scripting (spec.md
// §6 lists it alongside testnet-setup and spammer as external CLI
// tooling). Grounded on the teacher's cobra-root cmd layout; transport
// and signing reuse rpc.Client and crypto/hashing exactly as the node
// itself does for admitted messages.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/farcasterxyz/hubd/internal/msgsign"
	"github.com/farcasterxyz/hubd/rpc"
	"github.com/farcasterxyz/hubd/types"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "submit:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		rpcAddress string
		privateKey string
		fid        uint64
		text       string
		network    uint8
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Sign and submit a single CastAdd message to a hubd node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rpcAddress, privateKey, fid, text, types.Network(network))
		},
	}

	cmd.Flags().StringVar(&rpcAddress, "rpc-address", "127.0.0.1:2283", "hubd RPC address")
	cmd.Flags().StringVar(&privateKey, "private-key", "", "hex-encoded ed25519 seed to sign with (required)")
	cmd.Flags().Uint64Var(&fid, "fid", 0, "fid submitting the message (required)")
	cmd.Flags().StringVar(&text, "text", "", "cast text")
	cmd.Flags().Uint8Var(&network, "network", uint8(types.NetworkDevnet), "target network (1=mainnet,2=testnet,3=devnet)")
	_ = cmd.MarkFlagRequired("private-key")
	_ = cmd.MarkFlagRequired("fid")

	return cmd
}

func run(rpcAddress, privateKeyHex string, rawFid uint64, text string, network types.Network) error {
	seed, err := hex.DecodeString(privateKeyHex)
	if err != nil || len(seed) != ed25519.SeedSize {
		return fmt.Errorf("submit: --private-key must be a %d-byte hex ed25519 seed", ed25519.SeedSize)
	}
	key := ed25519.NewKeyFromSeed(seed)

	fid, err := types.NewFid(rawFid)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	msg, err := msgsign.CastAdd(fid, text, network, key)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	client, err := rpc.Dial(rpcAddress)
	if err != nil {
		return fmt.Errorf("submit: dial %s: %w", rpcAddress, err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.SubmitMessage(ctx, msg)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fmt.Printf("submitted hash=%x fid=%d\n", resp.Message.Hash, fid)
	return nil
}
