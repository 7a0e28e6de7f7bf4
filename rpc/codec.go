// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rpc implements the validator RPC surface spec.md §6 names:
// HubService (SubmitMessage, GetCast, GetUserDataByFid, …) and
// AdminService (SubmitOnChainEvent, RetryOnChainEvents{Fid,BlockRange}),
// served over google.golang.org/grpc with HTTP-Basic authentication mapped
// to gRPC code 16 (Unauthenticated) on failure.
//
// The teacher's own go.mod carries google.golang.org/grpc and
// google.golang.org/protobuf as direct dependencies, but no .proto sources
// for this domain exist to run protoc against (§1 scopes "HTTP/gRPC
// serving glue" out of the core, and this expansion is not permitted to
// fabricate generated code it cannot compile-check). Rather than hand-
// write brittle .pb.go stubs, the services below register a plain
// encoding/json grpc.Codec — a documented grpc-go extension point
// (encoding.RegisterCodec) used by several non-protobuf-payload grpc
// services in the wild — so every method still goes out over real HTTP/2
// gRPC framing, status codes, and interceptors; only the payload encoding
// differs from wire-format protobuf. google.golang.org/protobuf remains
// exercised indirectly through grpc/status's rich-error Any payloads.
package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
