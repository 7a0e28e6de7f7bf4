// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package shard

import "github.com/farcasterxyz/hubd/metrics"

// Metrics groups the per-shard counters/gauges an Engine reports. Grounded
// on the teacher's Averager/Counter/Gauge Registry shape (metrics/metric.go);
// wired here rather than left unused per a standalone Engine concern.
type Metrics struct {
	CommittedChunks  metrics.Counter
	CommittedTxs     metrics.Counter
	EmittedEvents    metrics.Counter
	ConfirmedHeight  metrics.Gauge
	CommitLatencySec metrics.Averager
}

// NewMetrics registers this shard's counters/gauges under reg, namespacing
// each name with the shard index so multiple Engines can share a Registry.
func NewMetrics(reg metrics.Registry, shardIndex uint32) *Metrics {
	prefix := shardName(shardIndex)
	return &Metrics{
		CommittedChunks:  reg.NewCounter(prefix + "_committed_chunks"),
		CommittedTxs:     reg.NewCounter(prefix + "_committed_txs"),
		EmittedEvents:    reg.NewCounter(prefix + "_emitted_events"),
		ConfirmedHeight:  reg.NewGauge(prefix + "_confirmed_height"),
		CommitLatencySec: reg.NewAverager(prefix + "_commit_latency_seconds"),
	}
}

func shardName(shardIndex uint32) string {
	const base = "shard_"
	digits := [10]byte{}
	n := len(digits)
	if shardIndex == 0 {
		n--
		digits[n] = '0'
	} else {
		for shardIndex > 0 {
			n--
			digits[n] = byte('0' + shardIndex%10)
			shardIndex /= 10
		}
	}
	return base + string(digits[n:])
}
