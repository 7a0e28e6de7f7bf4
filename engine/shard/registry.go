// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package shard

import (
	"github.com/farcasterxyz/hubd/store"
	"github.com/farcasterxyz/hubd/store/casts"
	"github.com/farcasterxyz/hubd/store/links"
	"github.com/farcasterxyz/hubd/store/reactions"
	"github.com/farcasterxyz/hubd/store/userdata"
	"github.com/farcasterxyz/hubd/store/usernameproof"
	"github.com/farcasterxyz/hubd/store/verifications"
	"github.com/farcasterxyz/hubd/types"
)

// Registry holds the one Store per message class that together make up a
// shard's complete set of typed stores (spec.md §4.3), indexed by the
// MessageType each Store accepts.
type Registry struct {
	byType  map[types.MessageType]*store.Store
	classes []*store.Store
}

// NewRegistry constructs a Registry with exactly the six message classes
// spec.md §3 enumerates.
func NewRegistry() *Registry {
	defs := []store.StoreDef{
		casts.Def{},
		reactions.Def{},
		links.Def{},
		verifications.Def{},
		userdata.Def{},
		usernameproof.Def{},
	}
	r := &Registry{byType: make(map[types.MessageType]*store.Store, len(defs)*2)}
	for _, def := range defs {
		s := store.New(def)
		r.classes = append(r.classes, s)
		r.byType[def.AddMessageType()] = s
		if rt := def.RemoveMessageType(); rt != types.MessageTypeNone {
			r.byType[rt] = s
		}
	}
	return r
}

// For returns the Store that owns msgType, if any.
func (r *Registry) For(msgType types.MessageType) (*store.Store, bool) {
	s, ok := r.byType[msgType]
	return s, ok
}

// Classes returns every registered Store, used by the prune/rent sweep.
func (r *Registry) Classes() []*store.Store { return r.classes }
