// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package httpapi serves the node's HTTP admin/health surface and
// Prometheus metrics endpoint (spec.md §6 http_address; SPEC_FULL.md §6
// domain stack). Grounded on the teacher's core/health.go liveness-check
// shape, generalized from "VM bootstrapped" to "every shard has a
// confirmed height".
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/farcasterxyz/hubd/types"
)

// HeightSource reports a shard's last confirmed height, satisfied by
// engine/shard.Engine.
type HeightSource interface {
	ConfirmedHeight() uint64
}

// Server serves /healthz, /readyz, and /metrics on one net/http.Server.
type Server struct {
	Shards map[types.ShardIndex]HeightSource
}

type healthResponse struct {
	Status string                   `json:"status"`
	Shards map[string]uint64Wrapper `json:"shards"`
}

type uint64Wrapper struct {
	ConfirmedHeight uint64 `json:"confirmed_height"`
}

// Handler builds the http.Handler for this node, mounting health checks
// and the Prometheus scrape endpoint side by side.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Shards: make(map[string]uint64Wrapper, len(s.Shards))}
	for idx, src := range s.Shards {
		resp.Shards[idx.String()] = uint64Wrapper{ConfirmedHeight: src.ConfirmedHeight()}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
