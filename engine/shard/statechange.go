// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package shard

import "github.com/farcasterxyz/hubd/types"

// StateChange is the result of Propose: the set of transactions the
// proposer assembled and the state root any honest validator replaying
// them must reproduce (spec.md §4.2).
type StateChange struct {
	Transactions []*types.Transaction
	NewStateRoot [32]byte
	Timestamp    int64
}
