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

package utils

import (
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// WatchDir watches dir and invokes cb for every filesystem event until the
// returned stop function is called. Events are delivered on a background
// goroutine; cb must be safe for concurrent use with the caller.
func WatchDir(dir string, cb func(op fsnotify.Op, file string)) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create watcher")
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, errors.Wrapf(err, "watch %s", dir)
	}
	go func() {
		for ev := range watcher.Events {
			cb(ev.Op, ev.Name)
		}
	}()
	return func() { watcher.Close() }, nil
}
