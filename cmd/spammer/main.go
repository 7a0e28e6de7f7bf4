// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command spammer drives sustained CastAdd submission traffic against a
// running hubd node for load testing (spec.md §6 lists it alongside
// testnet-setup and submit as external CLI tooling). Grounded on the
// teacher's cmd/consensus/benchmark.go worker-pool-plus-ticker shape,
// adapted from simulated consensus rounds to real RPC submissions.
package main

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/farcasterxyz/hubd/internal/msgsign"
	"github.com/farcasterxyz/hubd/rpc"
	"github.com/farcasterxyz/hubd/types"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "spammer:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		rpcAddress  string
		numFids     int
		concurrency int
		duration    time.Duration
		network     uint8
	)

	cmd := &cobra.Command{
		Use:   "spammer",
		Short: "Submit CastAdd messages to a hubd node at sustained concurrency",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rpcAddress, numFids, concurrency, duration, types.Network(network))
		},
	}

	cmd.Flags().StringVar(&rpcAddress, "rpc-address", "127.0.0.1:2283", "hubd RPC address")
	cmd.Flags().IntVar(&numFids, "num-fids", 16, "number of distinct synthetic fids to submit as")
	cmd.Flags().IntVar(&concurrency, "concurrency", 8, "number of concurrent submitting workers")
	cmd.Flags().DurationVar(&duration, "duration", 30*time.Second, "how long to run before stopping")
	cmd.Flags().Uint8Var(&network, "network", uint8(types.NetworkDevnet), "target network (1=mainnet,2=testnet,3=devnet)")

	return cmd
}

// identity is one synthetic submitter: spammer generates its own ed25519
// keys rather than requiring operators to pre-provision them, since a
// load-test fid only needs a key that signs consistently for the
// duration of the run, not one any real user owns.
type identity struct {
	fid types.Fid
	key ed25519.PrivateKey
}

func run(rpcAddress string, numFids, concurrency int, duration time.Duration, network types.Network) error {
	if numFids < 1 || concurrency < 1 {
		return fmt.Errorf("spammer: num-fids and concurrency must be >= 1")
	}

	identities := make([]identity, numFids)
	for i := range identities {
		_, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			return fmt.Errorf("spammer: generate key: %w", err)
		}
		fid, err := types.NewFid(uint64(i + 1))
		if err != nil {
			return fmt.Errorf("spammer: %w", err)
		}
		identities[i] = identity{fid: fid, key: priv}
	}

	client, err := rpc.Dial(rpcAddress)
	if err != nil {
		return fmt.Errorf("spammer: dial %s: %w", rpcAddress, err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var submitted, failed int64
	done := make(chan struct{})
	for w := 0; w < concurrency; w++ {
		go func(worker int) {
			defer func() { done <- struct{}{} }()
			for i := 0; ; i++ {
				select {
				case <-ctx.Done():
					return
				default:
				}
				id := identities[(worker+i)%len(identities)]
				msg, err := msgsign.CastAdd(id.fid, fmt.Sprintf("spam %d/%d", worker, i), network, id.key)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					continue
				}
				callCtx, callCancel := context.WithTimeout(ctx, 5*time.Second)
				_, err = client.SubmitMessage(callCtx, msg)
				callCancel()
				if err != nil {
					atomic.AddInt64(&failed, 1)
					continue
				}
				atomic.AddInt64(&submitted, 1)
			}
		}(w)
	}

	for w := 0; w < concurrency; w++ {
		<-done
	}

	fmt.Printf("submitted=%d failed=%d duration=%s rate=%.1f/s\n",
		submitted, failed, duration, float64(submitted)/duration.Seconds())
	return nil
}
