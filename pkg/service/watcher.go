// Copyright 2026 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package service

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/gpiodzero/pkg/util"
)

const (
	// DefaultReloadDebounce is the time the config file must be stable
	// before it is reloaded.
	DefaultReloadDebounce = 1500 * time.Millisecond
)

// Watcher reloads the configuration file when it changes.
type Watcher struct {
	log      zerolog.Logger
	path     string
	debounce time.Duration
	onReload func(Config)
}

// NewWatcher creates a watcher for the configuration file at given path.
// The callback is invoked with every valid new configuration.
func NewWatcher(path string, debounce time.Duration, log zerolog.Logger, onReload func(Config)) *Watcher {
	if debounce <= 0 {
		debounce = DefaultReloadDebounce
	}
	return &Watcher{
		log:      log.With().Str("component", "config-watcher").Str("path", path).Logger(),
		path:     path,
		debounce: debounce,
		onReload: onReload,
	}
}

// Run watches the configuration file until the given context is canceled.
// The directory of the file is watched, so files replaced by editors
// are picked up as well. The watch is restarted after a watcher error
// or when the directory is removed.
func (w *Watcher) Run(ctx context.Context) error {
	if _, err := os.Stat(filepath.Dir(w.path)); err != nil {
		return maskAny(err)
	}
	w.log.Info().Dur("debounce", w.debounce).Msg("Watching configuration")
	return util.UntilCanceled(ctx, w.log, "Configuration watch", w.watch)
}

// watch the configuration file until the context is canceled or
// the watch fails.
func (w *Watcher) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return maskAny(err)
	}
	defer watcher.Close()

	dir := filepath.Clean(filepath.Dir(w.path))
	if err := watcher.Add(dir); err != nil {
		return maskAny(err)
	}
	name := filepath.Clean(w.path)

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher events closed")
			}
			eventName := filepath.Clean(event.Name)
			if eventName == dir && event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				return errors.Errorf("directory %s removed", dir)
			}
			if eventName != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.log.Debug().Str("op", event.Op.String()).Msg("Configuration change detected")
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			}
		case <-timerC:
			timerC = nil
			w.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher errors closed")
			}
			return maskAny(err)
		}
	}
}

// reload loads the configuration and passes it to the callback.
// Invalid configurations are logged and ignored.
func (w *Watcher) reload() {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		configLoadsTotal.WithLabelValues("invalid").Inc()
		w.log.Warn().Err(err).Msg("Ignoring invalid configuration")
		return
	}
	w.log.Info().Msg("Configuration changed")
	w.onReload(cfg)
}
