// Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied. See the License for the
// specific language governing permissions and limitations
// under the License.

package config

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/HEnquist/pycamilladsp/pkg/core"
)

const defaultWatchInterval = 5 * time.Second

// RouteStore receives reloaded routes.
type RouteStore interface {
	ReplaceAll(routes []*core.Route)
}

// Watcher polls the config file and swaps in its routes when the file
// changes. Other sections need a restart to take effect.
type Watcher struct {
	path     string
	routes   RouteStore
	interval time.Duration
	logger   *slog.Logger
	lastMod  time.Time
}

func NewWatcher(path string, routes RouteStore, logger *slog.Logger) *Watcher {
	w := &Watcher{
		path:     path,
		routes:   routes,
		interval: defaultWatchInterval,
		logger:   logger,
	}
	if info, err := os.Stat(path); err == nil {
		w.lastMod = info.ModTime()
	}
	return w
}

func (w *Watcher) Watch(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check reloads the routes if the file changed since the last check and
// reports whether it did.
func (w *Watcher) check() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		w.logger.Warn("config stat failed", "path", w.path, "error", err)
		return false
	}
	if !info.ModTime().After(w.lastMod) {
		return false
	}
	w.lastMod = info.ModTime()

	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error("config reload failed, keeping current routes", "path", w.path, "error", err)
		return false
	}

	routes := cfg.RouteList()
	w.routes.ReplaceAll(routes)
	w.logger.Info("routes reloaded", "count", len(routes))
	return true
}
