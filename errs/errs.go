// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package errs defines the error taxonomy shared by every component,
// grounded on the teacher's AppError (core/app_error.go) — generalized from
// a single error code to the nine kinds spec.md §7 names, each mapped to a
// gRPC status code at the RPC boundary (some kinds share a code).
package errs

import (
	"fmt"

	"google.golang.org/grpc/codes"
)

// Kind classifies an error for propagation-policy and RPC-mapping purposes.
type Kind uint8

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindDuplicate
	KindNotFound
	KindStorage
	KindNetwork
	KindConsensus
	KindUnavailable
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindConflict:
		return "Conflict"
	case KindDuplicate:
		return "Duplicate"
	case KindNotFound:
		return "NotFound"
	case KindStorage:
		return "Storage"
	case KindNetwork:
		return "Network"
	case KindConsensus:
		return "Consensus"
	case KindUnavailable:
		return "Unavailable"
	case KindUnauthenticated:
		return "Unauthenticated"
	default:
		return "Unknown"
	}
}

// GRPCCode maps a Kind to its gRPC status code. Conflict and Duplicate
// share AlreadyExists; Storage, Network and Consensus share Internal.
func (k Kind) GRPCCode() codes.Code {
	switch k {
	case KindValidation:
		return codes.InvalidArgument
	case KindConflict, KindDuplicate:
		return codes.AlreadyExists
	case KindNotFound:
		return codes.NotFound
	case KindUnauthenticated:
		return codes.Unauthenticated
	case KindUnavailable:
		return codes.ResourceExhausted
	case KindStorage, KindNetwork, KindConsensus:
		return codes.Internal
	default:
		return codes.Unknown
	}
}

// Error is the taxonomy-tagged error type every component returns.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a Kind-tagged error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap constructs a Kind-tagged error wrapping a lower-level cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if as(err, &e) {
		return e.Kind == kind
	}
	return false
}

func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
