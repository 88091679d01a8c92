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

// Package watch reruns the improvement pipeline when watched source files
// change. Bursts of events (editor save, git checkout) collapse into one
// run via a debounce window.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mejora-dev/mejora/internal/log"
	"github.com/mejora-dev/mejora/internal/utils"
)

const DefaultDebounce = 2 * time.Second

// Watcher triggers fn after changes to the work dir settle.
type Watcher struct {
	// Dir is the directory watched, recursively one level: the work dir
	// itself plus the parent dirs of each target.
	Dir      string
	Targets  []string
	Debounce time.Duration
}

// relevant filters out events the pipeline itself produces.
func (w *Watcher) relevant(file string) bool {
	rel, err := filepath.Rel(w.Dir, file)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == ".git" || part == ".mejora" {
			return false
		}
	}
	if len(w.Targets) == 0 {
		return true
	}
	for _, target := range w.Targets {
		if filepath.ToSlash(rel) == filepath.ToSlash(target) {
			return true
		}
	}
	return false
}

// fingerprint hashes the current content of the watched files. Runs whose
// writes flow back through fsnotify produce the same fingerprint the run
// left behind, which lets Run tell an external change from its own.
func (w *Watcher) fingerprint() string {
	h := sha256.New()
	if len(w.Targets) > 0 {
		for _, target := range w.Targets {
			io.WriteString(h, target)
			data, err := os.ReadFile(filepath.Join(w.Dir, target))
			if err != nil {
				io.WriteString(h, "\x00absent")
				continue
			}
			h.Write(data)
		}
		return hex.EncodeToString(h.Sum(nil))
	}
	_ = filepath.WalkDir(w.Dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if name == ".git" || name == ".mejora" {
				return filepath.SkipDir
			}
			return nil
		}
		io.WriteString(h, path)
		if data, err := os.ReadFile(path); err == nil {
			h.Write(data)
		}
		return nil
	})
	return hex.EncodeToString(h.Sum(nil))
}

// Run blocks until ctx is cancelled, invoking fn once per settled burst of
// changes. fn runs on the caller's goroutine so runs never overlap.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	changed := make(chan string, 64)
	dirs := map[string]bool{w.Dir: true}
	for _, target := range w.Targets {
		dirs[filepath.Join(w.Dir, filepath.Dir(target))] = true
	}

	var stops []func()
	defer func() {
		for _, stop := range stops {
			stop()
		}
	}()
	for dir := range dirs {
		stop, err := utils.WatchDir(dir, func(op fsnotify.Op, file string) {
			if op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				return
			}
			if !w.relevant(file) {
				return
			}
			select {
			case changed <- file:
			default:
			}
		})
		if err != nil {
			return err
		}
		stops = append(stops, stop)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	lastRun := w.fingerprint()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case file := <-changed:
			log.Debug("watch: %s changed", file)
			if timer == nil {
				timer = time.NewTimer(debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(debounce)
			}
		case <-fire:
			timer, fire = nil, nil
			// Events produced by the previous run's own writes carry no new
			// content; running again would loop the engine on itself.
			if fp := w.fingerprint(); fp == lastRun {
				log.Debug("watch: content unchanged, skipping run")
				continue
			}
			if err := fn(ctx); err != nil {
				log.Error("watch: run failed: %v", err)
			}
		drain:
			for {
				select {
				case <-changed:
				default:
					break drain
				}
			}
			lastRun = w.fingerprint()
		}
	}
}
