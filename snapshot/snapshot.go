// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package snapshot uploads and restores RocksDB-equivalent state archives
// via an object-store-shaped interface (spec.md §6); it has no scheduler of
// its own, so nothing in it runs periodically. No example
// repo in the pack touches object storage (no aws-sdk-go-v2/minio/gcs
// import anywhere), so only a local-filesystem Uploader/Downloader is
// wired here; a real S3-compatible implementation plugs in at the same
// interface without touching callers. See DESIGN.md for the dropped-dep
// justification this stdlib-only implementation carries.
package snapshot

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/farcasterxyz/hubd/errs"
)

// Uploader pushes a local snapshot archive to durable storage, keyed by
// shard and height so a restore can find the most recent one at or below
// a target height.
type Uploader interface {
	Upload(ctx context.Context, shard uint32, height uint64, r io.Reader) error
}

// Downloader restores the newest snapshot at or below height for a shard.
type Downloader interface {
	// Latest returns the highest available height <= maxHeight, or ok=false
	// if none exists.
	Latest(ctx context.Context, shard uint32, maxHeight uint64) (height uint64, ok bool, err error)
	Download(ctx context.Context, shard uint32, height uint64, w io.Writer) error
}

// LocalStore implements both Uploader and Downloader against a directory
// tree: <root>/<shard>/<height>.snap.
type LocalStore struct {
	root string
}

// NewLocalStore constructs a LocalStore rooted at dir (spec.md §6
// snapshot.directory).
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{root: dir}
}

func (s *LocalStore) shardDir(shard uint32) string {
	return filepath.Join(s.root, strconv.FormatUint(uint64(shard), 10))
}

func (s *LocalStore) path(shard uint32, height uint64) string {
	return filepath.Join(s.shardDir(shard), strconv.FormatUint(height, 10)+".snap")
}

// Upload writes r to <root>/<shard>/<height>.snap, creating directories as
// needed. Writes to a temp file first and renames into place so a reader
// never observes a partial snapshot.
func (s *LocalStore) Upload(ctx context.Context, shard uint32, height uint64, r io.Reader) error {
	dir := s.shardDir(shard)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.KindStorage, "create snapshot directory", err)
	}

	tmp, err := os.CreateTemp(dir, "upload-*.tmp")
	if err != nil {
		return errs.Wrap(errs.KindStorage, "create temp snapshot file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return errs.Wrap(errs.KindStorage, "write snapshot", err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.KindStorage, "close snapshot file", err)
	}

	if err := os.Rename(tmp.Name(), s.path(shard, height)); err != nil {
		return errs.Wrap(errs.KindStorage, "finalize snapshot", err)
	}
	return nil
}

// Latest lists every available height for shard and returns the highest
// one <= maxHeight.
func (s *LocalStore) Latest(ctx context.Context, shard uint32, maxHeight uint64) (uint64, bool, error) {
	entries, err := os.ReadDir(s.shardDir(shard))
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errs.Wrap(errs.KindStorage, "list snapshots", err)
	}

	var heights []uint64
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".snap") {
			continue
		}
		h, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap"), 10, 64)
		if err != nil {
			continue
		}
		if h <= maxHeight {
			heights = append(heights, h)
		}
	}
	if len(heights) == 0 {
		return 0, false, nil
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] > heights[j] })
	return heights[0], true, nil
}

// Download copies the snapshot at (shard, height) to w.
func (s *LocalStore) Download(ctx context.Context, shard uint32, height uint64, w io.Writer) error {
	f, err := os.Open(s.path(shard, height))
	if err != nil {
		return errs.Wrap(errs.KindNotFound, "open snapshot", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return errs.Wrap(errs.KindStorage, "read snapshot", err)
	}
	return nil
}

var (
	_ Uploader   = (*LocalStore)(nil)
	_ Downloader = (*LocalStore)(nil)
)
