// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/farcasterxyz/hubd/httpapi"
	"github.com/farcasterxyz/hubd/types"
)

type fakeHeight uint64

func (f fakeHeight) ConfirmedHeight() uint64 { return uint64(f) }

func TestHealthzReportsConfirmedHeights(t *testing.T) {
	s := &httpapi.Server{Shards: map[types.ShardIndex]httpapi.HeightSource{1: fakeHeight(42)}}
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var body struct {
		Status string `json:"status"`
		Shards map[string]struct {
			ConfirmedHeight uint64 `json:"confirmed_height"`
		} `json:"shards"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" {
		t.Fatalf("want status ok, got %q", body.Status)
	}
	if body.Shards["1"].ConfirmedHeight != 42 {
		t.Fatalf("want confirmed height 42, got %d", body.Shards["1"].ConfirmedHeight)
	}
}

func TestMetricsEndpointServes(t *testing.T) {
	s := &httpapi.Server{Shards: map[types.ShardIndex]httpapi.HeightSource{}}
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
}
