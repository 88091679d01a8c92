// Copyright 2026 Mejora Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Snapshot is an immutable fingerprint of the working tree at one point of
// the run. Two snapshots with equal hashes mean the improve step changed
// nothing.
type Snapshot struct {
	Kind string // "tree-before" or "tree-after"
	Hash string // hex-encoded sha256 over sorted per-file digests
}

const (
	SnapshotTreeBefore = "tree-before"
	SnapshotTreeAfter  = "tree-after"
)

// TreeSnapshot hashes every regular file under dir, skipping VCS and
// engine state dirs, into a single digest.
func TreeSnapshot(kind, dir string) (*Snapshot, error) {
	var entries []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() && (name == ".git" || name == ".mejora") {
			return filepath.SkipDir
		}
		if !d.Type().IsRegular() {
			return nil
		}
		digest, err := hashFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		entries = append(entries, rel+":"+digest)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(entries)

	h := sha256.New()
	for _, e := range entries {
		io.WriteString(h, e)
		io.WriteString(h, "\n")
	}
	return &Snapshot{
		Kind: kind,
		Hash: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
