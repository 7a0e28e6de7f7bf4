// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"
)

// NewServer builds the grpc.Server hosting HubService (no auth — read and
// submit traffic from ordinary clients) and AdminService (Basic auth
// required per spec.md §6) on the same listener, matching the teacher's
// single rpc_address convention (config.HubConfig.RPCAddress).
func NewServer(hub *HubServer, admin *AdminServer, adminCreds Credentials) *grpc.Server {
	adminInterceptor := UnaryAuthInterceptor(adminCreds)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(adminOnlyInterceptor(adminInterceptor)))
	srv.RegisterService(&hubServiceDesc, hub)
	srv.RegisterService(&adminServiceDesc, admin)
	return srv
}

// adminOnlyInterceptor applies auth only to AdminService methods, so
// HubService traffic (public submit/read) is never asked for credentials.
func adminOnlyInterceptor(adminAuth grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !strings.Contains(info.FullMethod, "/"+adminServiceDesc.ServiceName+"/") {
			return handler(ctx, req)
		}
		return adminAuth(ctx, req, info, handler)
	}
}
