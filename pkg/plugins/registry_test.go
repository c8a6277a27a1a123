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
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/HEnquist/pycamilladsp/pkg/core"
)

type stubEndpoint struct {
	name       string
	connectErr error

	mu           sync.Mutex
	disconnected bool
}

func (s *stubEndpoint) Name() string                           { return s.name }
func (s *stubEndpoint) Type() string                           { return "stub" }
func (s *stubEndpoint) Connect(ctx context.Context) error      { return s.connectErr }
func (s *stubEndpoint) Send(context.Context, core.Event) error { return nil }
func (s *stubEndpoint) StopConsumer(string) error              { return nil }

func (s *stubEndpoint) StartConsumer(ctx context.Context, _ *core.Session, _ chan<- core.BrokerMessage) error {
	<-ctx.Done()
	return nil
}

func (s *stubEndpoint) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	s.disconnected = true
	s.mu.Unlock()
	return nil
}

type stubEntrypoint struct {
	name    string
	started chan struct{}
	stopped bool
}

func (s *stubEntrypoint) Name() string { return s.name }
func (s *stubEntrypoint) Type() string { return "stub" }

func (s *stubEntrypoint) Start(ctx context.Context, _ core.SessionManager) error {
	close(s.started)
	<-ctx.Done()
	return nil
}

func (s *stubEntrypoint) Stop(ctx context.Context) error {
	s.stopped = true
	return nil
}

type recordingAttacher struct {
	attached []string
	err      error
}

func (r *recordingAttacher) AttachEndpoint(_ context.Context, ep core.Endpoint) (*core.Session, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.attached = append(r.attached, ep.Name())
	return &core.Session{ID: "s-" + ep.Name()}, nil
}

type routeSet map[string]bool

func (r routeSet) Lookup(source string) (*core.Route, bool) {
	if !r[source] {
		return nil, false
	}
	return &core.Route{Source: source}, true
}

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestConnectEndpointsTracksHealth(t *testing.T) {
	reg := newTestRegistry()
	reg.RegisterEndpoint(&stubEndpoint{name: "kafka"})
	reg.RegisterEndpoint(&stubEndpoint{name: "amqp", connectErr: errors.New("refused")})

	if n := reg.ConnectEndpoints(context.Background()); n != 1 {
		t.Fatalf("expected 1 connected endpoint, got %d", n)
	}
	if !reg.IsEndpointHealthy("kafka") {
		t.Fatal("kafka should be healthy")
	}
	if reg.IsEndpointHealthy("amqp") {
		t.Fatal("amqp should not be healthy")
	}
	if got := reg.Unhealthy(); len(got) != 1 || got[0] != "amqp" {
		t.Fatalf("unexpected unhealthy endpoints: %v", got)
	}
}

func TestRegisterRejectsDuplicateNames(t *testing.T) {
	reg := newTestRegistry()
	if err := reg.RegisterEndpoint(&stubEndpoint{name: "events"}); err != nil {
		t.Fatalf("register endpoint: %v", err)
	}
	err := reg.RegisterEntrypoint(&stubEntrypoint{name: "events"})
	if !errors.Is(err, core.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	err = reg.RegisterEndpoint(&stubEndpoint{name: "events"})
	if !errors.Is(err, core.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if len(reg.Entrypoints()) != 0 || len(reg.Endpoints()) != 1 {
		t.Fatal("duplicate registration changed the registry")
	}
}

func TestAttachEndpointsSkipsUnhealthyAndUnrouted(t *testing.T) {
	reg := newTestRegistry()
	reg.RegisterEndpoint(&stubEndpoint{name: "kafka"})
	reg.RegisterEndpoint(&stubEndpoint{name: "redis"})
	reg.RegisterEndpoint(&stubEndpoint{name: "amqp", connectErr: errors.New("refused")})
	reg.ConnectEndpoints(context.Background())

	attacher := &recordingAttacher{}
	n := reg.AttachEndpoints(context.Background(), attacher, routeSet{"kafka": true, "amqp": true})
	if n != 1 {
		t.Fatalf("expected 1 attached endpoint, got %d", n)
	}
	if len(attacher.attached) != 1 || attacher.attached[0] != "kafka" {
		t.Fatalf("unexpected attached endpoints: %v", attacher.attached)
	}
}

func TestAttachEndpointsCountsFailures(t *testing.T) {
	reg := newTestRegistry()
	reg.RegisterEndpoint(&stubEndpoint{name: "kafka"})
	reg.ConnectEndpoints(context.Background())

	n := reg.AttachEndpoints(context.Background(), &recordingAttacher{err: core.ErrNoRoute}, routeSet{"kafka": true})
	if n != 0 {
		t.Fatalf("expected no attached endpoints, got %d", n)
	}
}

func TestStartAndStopAll(t *testing.T) {
	reg := newTestRegistry()
	entry := &stubEntrypoint{name: "ws", started: make(chan struct{})}
	ep := &stubEndpoint{name: "kafka"}
	reg.RegisterEntrypoint(entry)
	reg.RegisterEndpoint(ep)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reg.StartEntrypoints(ctx, nil)
	<-entry.started

	reg.StopAll(context.Background())
	if !entry.stopped {
		t.Fatal("entrypoint not stopped")
	}
	ep.mu.Lock()
	defer ep.mu.Unlock()
	if !ep.disconnected {
		t.Fatal("endpoint not disconnected")
	}
}

func TestRegistryCopies(t *testing.T) {
	reg := newTestRegistry()
	reg.RegisterEndpoint(&stubEndpoint{name: "kafka"})

	eps := reg.Endpoints()
	delete(eps, "kafka")
	if len(reg.Endpoints()) != 1 {
		t.Fatal("Endpoints must return a copy")
	}
}
