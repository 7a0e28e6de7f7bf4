// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package trie implements the Merkle-Patricia trie: an authenticated set
// over synthetic trie keys with a configurable branching factor (16 or
// 256). The root hash is the shard-state commitment (spec.md §3, §4.4).
//
// Grounded on the teacher's content-addressed ids.ID (32-byte) convention
// and the copy-on-write batch shape of chains/atomic/memory.go, generalized
// from a flat key-value map to a radix trie whose root is a function of
// its contents. Nodes are persisted content-addressed — keyed by their own
// hash, exactly the way the teacher addresses its own ids.ID-keyed state —
// and resolved lazily: a node loaded from storage starts as a "stub"
// (hash known, children unknown) and is filled in from the backing
// storage/kv.DB only when a traversal actually needs to descend through
// it, so Clone()-ing a trie that was Load()-ed from disk never pulls more
// than the touched path into memory.
package trie

import (
	"github.com/farcasterxyz/hubd/errs"
	"github.com/farcasterxyz/hubd/storage/kv"

	"github.com/farcasterxyz/hubd/crypto/hashing"
)

// Branching selects the trie's fan-out. Spec.md allows either; this repo
// uses Branching16 throughout (see DESIGN.md, "Trie branching factor").
type Branching int

const (
	Branching16  Branching = 16
	Branching256 Branching = 256
)

// emptySentinel is the fixed hash of an empty subtree.
var emptySentinel = hashing.Hash32([]byte("trie:empty"))

const valueTagPresent = byte(1)
const valueTagAbsent = byte(0)

// nodeKeyPrefix namespaces persisted trie nodes in the shard database,
// disjoint from store.RootPrefixUser/RootPrefixGlobal (1, 2) and
// engine/shard's rent/on-chain-marker prefixes (200-202).
const nodeKeyPrefix = 210

// nodeKey is the content-addressed storage key a node's encoding is
// written under: every node with the same hash has the same encoding, so
// nodes are deduplicated across heights for free.
func nodeKey(hash [32]byte) []byte {
	k := make([]byte, 0, 1+32)
	k = append(k, nodeKeyPrefix)
	k = append(k, hash[:]...)
	return k
}

type node struct {
	children map[byte]*node // sparse: only non-nil children
	present  bool           // true iff this node is itself a stored key
	hash     [32]byte
	dirty    bool
	// stub is true for a node loaded (or not yet loaded) from storage
	// whose hash is known but whose children/present fields are not —
	// resolve fills them in from storage/kv on first descent.
	stub bool
}

func newEmptyNode() *node {
	return &node{children: make(map[byte]*node), hash: emptySentinel}
}

// clone performs the copy-on-write step: a node that will be mutated by a
// batch is shallow-copied first so any concurrently-held prior root is
// unaffected. Callers must resolve n before cloning it.
func (n *node) clone() *node {
	children := make(map[byte]*node, len(n.children))
	for k, v := range n.children {
		children[k] = v
	}
	return &node{children: children, present: n.present, hash: n.hash, dirty: true}
}

func (n *node) recomputeHash() {
	if n.isEmpty() {
		// Canonical: every empty subtree, root included, collapses to the
		// well-known sentinel rather than whatever the hash function
		// produces over zero children — Load relies on this to recognize
		// an empty trie without a storage round trip, and the round-trip
		// invariant (insert then delete back to empty recovers the
		// original root) depends on it too.
		n.hash = emptySentinel
		return
	}
	h := hashing.NewHasher()
	// Children are visited in a fixed, deterministic (ascending digit)
	// order regardless of map iteration order.
	var bitmap uint32
	for digit := range n.children {
		bitmap |= 1 << uint32(digit)
	}
	var bm [4]byte
	bm[0] = byte(bitmap)
	bm[1] = byte(bitmap >> 8)
	bm[2] = byte(bitmap >> 16)
	bm[3] = byte(bitmap >> 24)
	h.Write(bm[:])
	for digit := byte(0); digit < 255; digit++ {
		if c, ok := n.children[digit]; ok {
			h.Write(c.hash[:])
		}
	}
	if c, ok := n.children[255]; ok {
		h.Write(c.hash[:])
	}
	if n.present {
		h.Write([]byte{valueTagPresent})
	} else {
		h.Write([]byte{valueTagAbsent})
	}
	n.hash = h.Sum32()
}

func (n *node) isEmpty() bool {
	return !n.present && len(n.children) == 0
}

// encodeNode serializes n's own fields (not its children's contents — only
// their hashes) for content-addressed storage.
func encodeNode(n *node) []byte {
	var bitmap uint32
	for digit := range n.children {
		bitmap |= 1 << uint32(digit)
	}
	buf := make([]byte, 0, 1+4+32*len(n.children))
	if n.present {
		buf = append(buf, valueTagPresent)
	} else {
		buf = append(buf, valueTagAbsent)
	}
	buf = append(buf, byte(bitmap), byte(bitmap>>8), byte(bitmap>>16), byte(bitmap>>24))
	for digit := byte(0); ; digit++ {
		if c, ok := n.children[digit]; ok {
			buf = append(buf, c.hash[:]...)
		}
		if digit == 255 {
			break
		}
	}
	return buf
}

// decodeNode parses an encodeNode payload back into a node whose children
// are stubs (hash known, contents not yet loaded).
func decodeNode(data []byte) (*node, error) {
	if len(data) < 5 {
		return nil, errs.New(errs.KindStorage, "trie: truncated node record")
	}
	present := data[0] == valueTagPresent
	bitmap := uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16 | uint32(data[4])<<24
	children := make(map[byte]*node)
	off := 5
	for digit := byte(0); ; digit++ {
		if bitmap&(1<<uint32(digit)) != 0 {
			if off+32 > len(data) {
				return nil, errs.New(errs.KindStorage, "trie: truncated node record")
			}
			var h [32]byte
			copy(h[:], data[off:off+32])
			off += 32
			children[digit] = &node{hash: h, stub: true}
		}
		if digit == 255 {
			break
		}
	}
	return &node{children: children, present: present}, nil
}

// MerkleTrie is a radix trie over byte-slice keys, digit-addressed per
// branching factor. The zero value is not usable; use New or Load.
type MerkleTrie struct {
	branching Branching
	root      *node
	db        *kv.DB // nil for purely in-memory tries (tests, scratch clones)
}

// New constructs an empty trie with the given branching factor, backed by
// db for lazy node resolution (nil is fine for in-memory-only use — a
// freshly constructed trie has no stub nodes to resolve).
func New(db *kv.DB, branching Branching) *MerkleTrie {
	return &MerkleTrie{db: db, branching: branching, root: newEmptyNode()}
}

// Load reconstructs a trie whose root is already known to equal rootHash —
// the root hash and confirmed height a shard persists alongside its last
// committed chunk (spec.md §4.4, §5). The root starts as a stub and is
// filled in lazily from db as traversals descend into it; the well-known
// empty root never needs a storage round trip.
func Load(db *kv.DB, branching Branching, rootHash [32]byte) *MerkleTrie {
	if rootHash == emptySentinel {
		return New(db, branching)
	}
	return &MerkleTrie{db: db, branching: branching, root: &node{hash: rootHash, stub: true}}
}

func (t *MerkleTrie) digits(key []byte) []byte {
	if t.branching == Branching256 {
		return key
	}
	digits := make([]byte, 0, len(key)*2)
	for _, b := range key {
		digits = append(digits, b>>4, b&0x0f)
	}
	return digits
}

// resolve fills in n's children/present fields from storage if n is a
// stub, in place — safe because a node's content is a pure function of its
// hash, so resolving twice (or concurrently) yields identical results.
func (t *MerkleTrie) resolve(n *node) (*node, error) {
	if !n.stub {
		return n, nil
	}
	if n.hash == emptySentinel {
		n.children = make(map[byte]*node)
		n.present = false
		n.stub = false
		return n, nil
	}
	if t.db == nil {
		return nil, errs.New(errs.KindStorage, "trie: stub node with no backing store")
	}
	data, err := t.db.Get(nodeKey(n.hash))
	if err != nil {
		return nil, errs.Wrap(errs.KindStorage, "load trie node", err)
	}
	resolved, err := decodeNode(data)
	if err != nil {
		return nil, err
	}
	n.children = resolved.children
	n.present = resolved.present
	n.stub = false
	return n, nil
}

// Insert adds key to the authenticated set. Idempotent.
func (t *MerkleTrie) Insert(key []byte) error {
	root, err := t.insert(t.root, t.digits(key))
	if err != nil {
		return err
	}
	t.root = root
	return nil
}

func (t *MerkleTrie) insert(n *node, digits []byte) (*node, error) {
	n, err := t.resolve(n)
	if err != nil {
		return nil, err
	}
	n = n.clone()
	if len(digits) == 0 {
		n.present = true
		n.recomputeHash()
		return n, nil
	}
	d := digits[0]
	child, ok := n.children[d]
	if !ok {
		child = newEmptyNode()
	}
	newChild, err := t.insert(child, digits[1:])
	if err != nil {
		return nil, err
	}
	n.children[d] = newChild
	n.recomputeHash()
	return n, nil
}

// Delete removes key from the set, if present. A no-op if key is absent.
func (t *MerkleTrie) Delete(key []byte) error {
	root, _, err := t.deleteKey(t.root, t.digits(key))
	if err != nil {
		return err
	}
	t.root = root
	return nil
}

func (t *MerkleTrie) deleteKey(n *node, digits []byte) (*node, bool, error) {
	n, err := t.resolve(n)
	if err != nil {
		return nil, false, err
	}
	if len(digits) == 0 {
		if !n.present {
			return n, false, nil
		}
		n = n.clone()
		n.present = false
		n.recomputeHash()
		return n, true, nil
	}
	d := digits[0]
	child, ok := n.children[d]
	if !ok {
		return n, false, nil
	}
	newChild, changed, err := t.deleteKey(child, digits[1:])
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return n, false, nil
	}
	n = n.clone()
	if newChild.isEmpty() {
		delete(n.children, d)
	} else {
		n.children[d] = newChild
	}
	n.recomputeHash()
	return n, true, nil
}

// Contains reports whether key is in the authenticated set.
func (t *MerkleTrie) Contains(key []byte) (bool, error) {
	n, err := t.resolve(t.root)
	if err != nil {
		return false, err
	}
	for _, d := range t.digits(key) {
		child, ok := n.children[d]
		if !ok {
			return false, nil
		}
		n, err = t.resolve(child)
		if err != nil {
			return false, err
		}
	}
	return n.present, nil
}

// Root returns the root hash of the whole trie. Always available without
// touching storage, even for an unresolved root stub.
func (t *MerkleTrie) Root() [32]byte {
	return t.root.hash
}

// SubtreeRoot returns the root hash of the subtree rooted at prefix, which
// equals the root of a fresh trie initialized with only the keys under
// that prefix (the trie round-trip invariant, spec.md §8).
func (t *MerkleTrie) SubtreeRoot(prefix []byte) ([32]byte, error) {
	n, err := t.resolve(t.root)
	if err != nil {
		return [32]byte{}, err
	}
	for _, d := range t.digits(prefix) {
		child, ok := n.children[d]
		if !ok {
			return emptySentinel, nil
		}
		n, err = t.resolve(child)
		if err != nil {
			return [32]byte{}, err
		}
	}
	return n.hash, nil
}

// Clone returns a shallow copy-on-write snapshot of the trie sharing
// unmodified structure with t; mutating the clone never affects t. This is
// the "batch materializes only dirty nodes" behavior spec.md §4.4 names.
func (t *MerkleTrie) Clone() *MerkleTrie {
	return &MerkleTrie{branching: t.branching, root: t.root, db: t.db}
}

// Persist writes every node touched since the trie was last persisted
// (every node reachable from the root whose dirty flag is still set) into
// b, content-addressed by its own hash — part of the same kv.Batch a
// shard's chunk commit already writes everything else through (spec.md
// §5). Clean (already-persisted or never-resolved stub) subtrees are
// skipped without being descended into.
func (t *MerkleTrie) Persist(b *kv.Batch) error {
	return persistNode(b, t.root)
}

func persistNode(b *kv.Batch, n *node) error {
	if !n.dirty {
		return nil
	}
	for _, c := range n.children {
		if err := persistNode(b, c); err != nil {
			return err
		}
	}
	if err := b.Put(nodeKey(n.hash), encodeNode(n)); err != nil {
		return errs.Wrap(errs.KindStorage, "persist trie node", err)
	}
	n.dirty = false
	return nil
}
