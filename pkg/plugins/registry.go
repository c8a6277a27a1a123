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

package plugins

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/HEnquist/pycamilladsp/pkg/core"
)

// EndpointAttacher opens the bridge session of a broker endpoint.
type EndpointAttacher interface {
	AttachEndpoint(ctx context.Context, ep core.Endpoint) (*core.Session, error)
}

// RouteLookup reports whether a source has a route.
type RouteLookup interface {
	Lookup(source string) (*core.Route, bool)
}

// Registry holds the configured entrypoints and broker endpoints. Plugin
// names are route sources, so a name may only be used once across both
// kinds.
type Registry struct {
	mu          sync.RWMutex
	entrypoints map[string]core.Entrypoint
	endpoints   map[string]core.Endpoint
	healthy     map[string]bool
	logger      *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		entrypoints: make(map[string]core.Entrypoint),
		endpoints:   make(map[string]core.Endpoint),
		healthy:     make(map[string]bool),
		logger:      logger,
	}
}

func (r *Registry) RegisterEntrypoint(e core.Entrypoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkNameLocked(e.Name()); err != nil {
		return err
	}
	r.entrypoints[e.Name()] = e
	r.logger.Info("registered entrypoint", "name", e.Name(), "type", e.Type())
	return nil
}

func (r *Registry) RegisterEndpoint(e core.Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkNameLocked(e.Name()); err != nil {
		return err
	}
	r.endpoints[e.Name()] = e
	r.logger.Info("registered endpoint", "name", e.Name(), "type", e.Type())
	return nil
}

func (r *Registry) checkNameLocked(name string) error {
	_, isEntry := r.entrypoints[name]
	_, isEndpoint := r.endpoints[name]
	if isEntry || isEndpoint {
		return fmt.Errorf("%w: %s", core.ErrDuplicateName, name)
	}
	return nil
}

func (r *Registry) Entrypoints() map[string]core.Entrypoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := make(map[string]core.Entrypoint, len(r.entrypoints))
	for k, v := range r.entrypoints {
		cp[k] = v
	}
	return cp
}

func (r *Registry) Endpoints() map[string]core.Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := make(map[string]core.Endpoint, len(r.endpoints))
	for k, v := range r.endpoints {
		cp[k] = v
	}
	return cp
}

// ConnectEndpoints connects all endpoints concurrently and returns how many
// succeeded. Endpoints that fail stay registered but are not attached.
func (r *Registry) ConnectEndpoints(ctx context.Context) int {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		connected int
	)
	for name, ep := range r.Endpoints() {
		wg.Add(1)
		go func(name string, ep core.Endpoint) {
			defer wg.Done()
			err := ep.Connect(ctx)
			if err != nil {
				r.logger.Error("endpoint connect failed", "name", name, "type", ep.Type(), "error", err)
			}

			r.mu.Lock()
			r.healthy[name] = err == nil
			r.mu.Unlock()

			if err == nil {
				mu.Lock()
				connected++
				mu.Unlock()
			}
		}(name, ep)
	}
	wg.Wait()
	return connected
}

func (r *Registry) IsEndpointHealthy(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.healthy[name]
}

// Unhealthy returns the sorted names of endpoints whose last connect
// attempt failed or that were never connected.
func (r *Registry) Unhealthy() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for name := range r.endpoints {
		if !r.healthy[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// AttachEndpoints opens a session for every healthy endpoint that has a
// route and returns how many were attached.
func (r *Registry) AttachEndpoints(ctx context.Context, attacher EndpointAttacher, routes RouteLookup) int {
	attached := 0
	for name, ep := range r.Endpoints() {
		if !r.IsEndpointHealthy(name) {
			continue
		}
		if _, ok := routes.Lookup(name); !ok {
			r.logger.Warn("endpoint has no route, not attaching", "name", name)
			continue
		}
		if _, err := attacher.AttachEndpoint(ctx, ep); err != nil {
			r.logger.Error("endpoint attach failed", "name", name, "error", err)
			continue
		}
		attached++
	}
	return attached
}

// StartEntrypoints serves every entrypoint in its own goroutine. A listener
// that fails, e.g. on a port already in use, is logged and left stopped.
func (r *Registry) StartEntrypoints(ctx context.Context, manager core.SessionManager) {
	for name, ep := range r.Entrypoints() {
		go func(name string, ep core.Entrypoint) {
			if err := ep.Start(ctx, manager); err != nil {
				r.logger.Error("entrypoint failed", "name", name, "type", ep.Type(), "error", err)
			}
		}(name, ep)
	}
}

// StopAll stops the entrypoints first so no new commands arrive, then
// disconnects the endpoints.
func (r *Registry) StopAll(ctx context.Context) {
	for name, ep := range r.Entrypoints() {
		r.logger.Info("stopping entrypoint", "name", name)
		if err := ep.Stop(ctx); err != nil {
			r.logger.Warn("entrypoint stop failed", "name", name, "error", err)
		}
	}
	for name, ep := range r.Endpoints() {
		r.logger.Info("stopping endpoint", "name", name)
		if err := ep.Disconnect(ctx); err != nil {
			r.logger.Warn("endpoint disconnect failed", "name", name, "error", err)
		}
	}
}
