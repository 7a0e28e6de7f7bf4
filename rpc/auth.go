// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"encoding/base64"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Credentials is the HTTP-Basic user:password pair spec.md §6 names.
// Empty Username disables authentication (used by read-validator/public
// endpoints that carry no admin surface).
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) required() bool { return c.Username != "" }

// checkBasicAuth validates the "authorization" metadata value against
// creds, mirroring HTTP-Basic semantics over the gRPC metadata channel
// (spec.md §6: "Authentication is HTTP-Basic user:password. Missing or
// wrong credentials -> 16/UNAUTHENTICATED").
func checkBasicAuth(ctx context.Context, creds Credentials) error {
	if !creds.required() {
		return nil
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing credentials")
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return status.Error(codes.Unauthenticated, "missing credentials")
	}
	const prefix = "Basic "
	hdr := vals[0]
	if !strings.HasPrefix(hdr, prefix) {
		return status.Error(codes.Unauthenticated, "malformed authorization header")
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(hdr, prefix))
	if err != nil {
		return status.Error(codes.Unauthenticated, "malformed authorization header")
	}
	user, pass, found := strings.Cut(string(decoded), ":")
	if !found || user != creds.Username || pass != creds.Password {
		return status.Error(codes.Unauthenticated, "invalid credentials")
	}
	return nil
}

// UnaryAuthInterceptor enforces Basic auth on every unary RPC served under
// creds. Wired onto AdminService; HubService is typically served with a
// zero-value Credentials (no auth required) per the node's own policy.
func UnaryAuthInterceptor(creds Credentials) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if err := checkBasicAuth(ctx, creds); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}
