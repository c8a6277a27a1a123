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

package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/HEnquist/pycamilladsp/internal/control"
	"github.com/HEnquist/pycamilladsp/internal/routing"
	"github.com/HEnquist/pycamilladsp/pkg/camilladsp"
	"github.com/HEnquist/pycamilladsp/pkg/core"
)

type fakeExecutor struct {
	mu       sync.Mutex
	payloads []string
	err      error
}

func (f *fakeExecutor) Execute(ctx context.Context, payload []byte) control.Reply {
	f.mu.Lock()
	f.payloads = append(f.payloads, string(payload))
	err := f.err
	f.mu.Unlock()

	name, _, perr := camilladsp.ParseCommand(payload)
	if perr != nil {
		name = control.InvalidCommand
	}
	var value any
	if err == nil {
		value = 1.5
	}
	out, _ := camilladsp.EncodeReply(name, value, err)
	return control.Reply{Command: name, Payload: out, Err: err}
}

func (f *fakeExecutor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

type mockEndpoint struct {
	name    string
	sendErr error
	inbox   chan core.BrokerMessage

	mu        sync.Mutex
	sent      []core.Event
	consumers map[string]bool
}

func newMockEndpoint(name string) *mockEndpoint {
	return &mockEndpoint{
		name:      name,
		inbox:     make(chan core.BrokerMessage, 4),
		consumers: make(map[string]bool),
	}
}

func (m *mockEndpoint) Name() string { return m.name }
func (m *mockEndpoint) Type() string { return "mock" }

func (m *mockEndpoint) StartConsumer(ctx context.Context, session *core.Session, ch chan<- core.BrokerMessage) error {
	m.mu.Lock()
	m.consumers[session.ID] = true
	m.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-m.inbox:
			ch <- msg
		}
	}
}

func (m *mockEndpoint) StopConsumer(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.consumers, sessionID)
	return nil
}

func (m *mockEndpoint) Send(ctx context.Context, evt core.Event) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.mu.Lock()
	m.sent = append(m.sent, evt)
	m.mu.Unlock()
	return nil
}

func (m *mockEndpoint) Connect(ctx context.Context) error    { return nil }
func (m *mockEndpoint) Disconnect(ctx context.Context) error { return nil }

func (m *mockEndpoint) sentEvents() []core.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Event(nil), m.sent...)
}

func (m *mockEndpoint) consumerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.consumers)
}

func newTestManager(routes ...*core.Route) (*Manager, *fakeExecutor) {
	table := routing.NewTable()
	for _, r := range routes {
		table.Add(r)
	}
	exec := &fakeExecutor{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewManager(table, exec, logger, nil), exec
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func receive(t *testing.T, ch <-chan core.Event) core.Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return core.Event{}
	}
}

func TestCreateSession(t *testing.T) {
	m, _ := newTestManager(&core.Route{Source: "ws", ChannelSize: 4})

	sess, err := m.CreateSession(context.Background(), "ws", "client-1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected a session ID")
	}
	if sess.ClientID != "client-1" || sess.EntrypointName != "ws" {
		t.Fatalf("unexpected session identity: %+v", sess)
	}
	if cap(sess.Downstream) != 4 || cap(sess.Upstream) != 4 {
		t.Fatalf("expected channel size 4, got %d/%d", cap(sess.Downstream), cap(sess.Upstream))
	}
	if m.ActiveCount() != 1 {
		t.Fatalf("expected 1 active session, got %d", m.ActiveCount())
	}
}

func TestCreateSessionDefaultChannelSize(t *testing.T) {
	m, _ := newTestManager(&core.Route{Source: "ws"})

	sess, err := m.CreateSession(context.Background(), "ws", "c")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if cap(sess.Downstream) != 1 {
		t.Fatalf("expected channel size 1, got %d", cap(sess.Downstream))
	}
}

func TestCreateSessionNoRoute(t *testing.T) {
	m, _ := newTestManager()

	_, err := m.CreateSession(context.Background(), "ws", "c")
	if !errors.Is(err, core.ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("expected no sessions, got %d", m.ActiveCount())
	}
}

func TestSessionOutlivesCreatingContext(t *testing.T) {
	m, _ := newTestManager(&core.Route{Source: "ws"})

	ctx, cancel := context.WithCancel(context.Background())
	sess, err := m.CreateSession(ctx, "ws", "c")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	cancel()

	select {
	case <-sess.Done:
		t.Fatal("session ended with the creating context")
	case <-time.After(20 * time.Millisecond):
	}

	if err := m.DestroySession(sess.ID); err != nil {
		t.Fatalf("DestroySession: %v", err)
	}
	select {
	case <-sess.Done:
	case <-time.After(time.Second):
		t.Fatal("session not done after destroy")
	}
}

func TestCommandReply(t *testing.T) {
	m, exec := newTestManager(&core.Route{Source: "ws", ChannelSize: 2})
	sess, err := m.CreateSession(context.Background(), "ws", "client-1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	cmd := core.NewEvent(core.EventTypeCommand, "client-1", "client-1", []byte(`"GetVolume"`))
	sess.Upstream <- cmd

	reply := receive(t, sess.Downstream)
	if reply.Type != core.EventTypeReply {
		t.Fatalf("expected reply event, got %s", reply.Type)
	}
	if reply.SourceID != ReplySource || reply.ClientID != "client-1" {
		t.Fatalf("unexpected reply identity: %+v", reply)
	}
	if reply.Metadata[core.MetaRequestID] != cmd.ID {
		t.Fatalf("expected request_id %s, got %s", cmd.ID, reply.Metadata[core.MetaRequestID])
	}
	if reply.Metadata[core.MetaCommand] != "GetVolume" {
		t.Fatalf("unexpected command: %s", reply.Metadata[core.MetaCommand])
	}
	if reply.Metadata[core.MetaStatus] != core.StatusOK {
		t.Fatalf("unexpected status: %s", reply.Metadata[core.MetaStatus])
	}
	if string(reply.Payload) != `{"GetVolume":{"result":"Ok","value":1.5}}` {
		t.Fatalf("unexpected payload: %s", reply.Payload)
	}
	if exec.count() != 1 {
		t.Fatalf("expected 1 execution, got %d", exec.count())
	}
}

func TestCommandErrorStatus(t *testing.T) {
	m, exec := newTestManager(&core.Route{Source: "ws"})
	exec.err = &camilladsp.CamillaError{Command: "Reload", Message: "no config"}
	sess, _ := m.CreateSession(context.Background(), "ws", "c")

	sess.Upstream <- core.NewEvent(core.EventTypeCommand, "c", "c", []byte(`"Reload"`))

	reply := receive(t, sess.Downstream)
	if reply.Metadata[core.MetaStatus] != core.StatusError {
		t.Fatalf("expected error status, got %s", reply.Metadata[core.MetaStatus])
	}
}

func TestCommandDeniedForDownstreamRoute(t *testing.T) {
	m, exec := newTestManager(&core.Route{Source: "sse", Direction: core.DirectionDownstream})
	sess, _ := m.CreateSession(context.Background(), "sse", "c")

	sess.Upstream <- core.NewEvent(core.EventTypeCommand, "c", "c", []byte(`{"SetVolume":-10}`))

	reply := receive(t, sess.Downstream)
	if reply.Metadata[core.MetaStatus] != core.StatusDenied {
		t.Fatalf("expected denied status, got %s", reply.Metadata[core.MetaStatus])
	}
	if reply.Metadata[core.MetaCommand] != "SetVolume" {
		t.Fatalf("unexpected command: %s", reply.Metadata[core.MetaCommand])
	}
	_, err := camilladsp.DecodeReply("SetVolume", reply.Payload)
	if !camilladsp.IsCamillaError(err) {
		t.Fatalf("expected an error reply, got %v", err)
	}
	if exec.count() != 0 {
		t.Fatal("denied command reached the executor")
	}
}

func TestBroadcastRespectsDirection(t *testing.T) {
	m, _ := newTestManager(
		&core.Route{Source: "ws", ChannelSize: 2},
		&core.Route{Source: "sse", Direction: core.DirectionDownstream, ChannelSize: 2},
		&core.Route{Source: "http_post", Direction: core.DirectionUpstream, ChannelSize: 2},
	)
	ws, _ := m.CreateSession(context.Background(), "ws", "a")
	sse, _ := m.CreateSession(context.Background(), "sse", "b")
	post, _ := m.CreateSession(context.Background(), "http_post", "c")

	evt := core.NewEvent(core.EventTypeTelemetry, ReplySource, "", []byte(`{}`))
	if n := m.Broadcast(evt); n != 2 {
		t.Fatalf("expected 2 deliveries, got %d", n)
	}
	if got := receive(t, ws.Downstream); got.ID != evt.ID {
		t.Fatal("ws session missed telemetry")
	}
	if got := receive(t, sse.Downstream); got.ID != evt.ID {
		t.Fatal("sse session missed telemetry")
	}
	select {
	case <-post.Downstream:
		t.Fatal("upstream-only session received telemetry")
	default:
	}
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	m, _ := newTestManager(&core.Route{Source: "ws", ChannelSize: 1})
	m.CreateSession(context.Background(), "ws", "a")

	evt := core.NewEvent(core.EventTypeTelemetry, ReplySource, "", nil)
	if n := m.Broadcast(evt); n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}
	if n := m.Broadcast(evt); n != 0 {
		t.Fatalf("expected the full session to be skipped, got %d", n)
	}
}

func TestDestroySession(t *testing.T) {
	m, _ := newTestManager(&core.Route{Source: "ws"})
	sess, _ := m.CreateSession(context.Background(), "ws", "c")

	if err := m.DestroySession(sess.ID); err != nil {
		t.Fatalf("DestroySession: %v", err)
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("expected 0 sessions, got %d", m.ActiveCount())
	}
	if err := m.DestroySession(sess.ID); !errors.Is(err, core.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestDestroyAll(t *testing.T) {
	m, _ := newTestManager(&core.Route{Source: "ws"})
	for _, id := range []string{"a", "b", "c"} {
		if _, err := m.CreateSession(context.Background(), "ws", id); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
	}
	m.DestroyAll()
	if m.ActiveCount() != 0 {
		t.Fatalf("expected 0 sessions, got %d", m.ActiveCount())
	}
}

func TestAttachEndpointRepliesAndAcks(t *testing.T) {
	m, exec := newTestManager(&core.Route{Source: "kafka", DeliveryGuarantee: core.DeliveryAtLeastOnce, ChannelSize: 4})
	ep := newMockEndpoint("kafka")

	sess, err := m.AttachEndpoint(context.Background(), ep)
	if err != nil {
		t.Fatalf("AttachEndpoint: %v", err)
	}
	defer m.DestroySession(sess.ID)

	var acked sync.WaitGroup
	acked.Add(1)
	ackCalls := 0
	cmd := core.NewEvent(core.EventTypeCommand, "kafka", "kafka", []byte(`"GetVolume"`))
	ep.inbox <- core.BrokerMessage{
		Event: cmd,
		Ack:   func() error { ackCalls++; acked.Done(); return nil },
		Nack:  func() error { t.Error("unexpected nack"); return nil },
	}
	acked.Wait()

	if exec.count() != 1 {
		t.Fatalf("expected 1 execution, got %d", exec.count())
	}
	sent := ep.sentEvents()
	if len(sent) != 1 || sent[0].Type != core.EventTypeReply {
		t.Fatalf("expected one reply to be published, got %+v", sent)
	}
	if sent[0].Metadata[core.MetaRequestID] != cmd.ID {
		t.Fatalf("reply not correlated: %s", sent[0].Metadata[core.MetaRequestID])
	}
	if ackCalls != 1 {
		t.Fatalf("expected 1 ack, got %d", ackCalls)
	}
}

func TestAttachEndpointNacksOnPublishFailure(t *testing.T) {
	m, _ := newTestManager(&core.Route{Source: "amqp"})
	ep := newMockEndpoint("amqp")
	ep.sendErr = errors.New("broker down")

	sess, err := m.AttachEndpoint(context.Background(), ep)
	if err != nil {
		t.Fatalf("AttachEndpoint: %v", err)
	}
	defer m.DestroySession(sess.ID)

	nacked := make(chan struct{})
	ep.inbox <- core.BrokerMessage{
		Event: core.NewEvent(core.EventTypeCommand, "amqp", "amqp", []byte(`"GetState"`)),
		Ack:   func() error { t.Error("unexpected ack"); return nil },
		Nack:  func() error { close(nacked); return nil },
	}
	select {
	case <-nacked:
	case <-time.After(2 * time.Second):
		t.Fatal("message was not nacked")
	}
}

func TestAttachEndpointAtMostOnceAcksFirst(t *testing.T) {
	m, _ := newTestManager(&core.Route{Source: "mqtt", DeliveryGuarantee: core.DeliveryAtMostOnce})
	ep := newMockEndpoint("mqtt")
	ep.sendErr = errors.New("broker down")

	sess, err := m.AttachEndpoint(context.Background(), ep)
	if err != nil {
		t.Fatalf("AttachEndpoint: %v", err)
	}
	defer m.DestroySession(sess.ID)

	acked := make(chan struct{})
	ep.inbox <- core.BrokerMessage{
		Event: core.NewEvent(core.EventTypeCommand, "mqtt", "mqtt", []byte(`"GetState"`)),
		Ack:   func() error { close(acked); return nil },
		Nack:  func() error { t.Error("unexpected nack"); return nil },
	}
	select {
	case <-acked:
	case <-time.After(2 * time.Second):
		t.Fatal("message was not acked")
	}
}

func TestAttachEndpointPublishesTelemetry(t *testing.T) {
	m, _ := newTestManager(&core.Route{Source: "redis", Direction: core.DirectionDownstream, ChannelSize: 2})
	ep := newMockEndpoint("redis")

	sess, err := m.AttachEndpoint(context.Background(), ep)
	if err != nil {
		t.Fatalf("AttachEndpoint: %v", err)
	}

	evt := core.NewEvent(core.EventTypeTelemetry, ReplySource, "", []byte(`{"state":"Running"}`))
	if n := m.Broadcast(evt); n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}
	waitFor(t, "telemetry publish", func() bool { return len(ep.sentEvents()) == 1 })

	waitFor(t, "consumer start", func() bool { return ep.consumerCount() == 1 })
	if err := m.DestroySession(sess.ID); err != nil {
		t.Fatalf("DestroySession: %v", err)
	}
	if ep.consumerCount() != 0 {
		t.Fatal("consumer not stopped on destroy")
	}
}

func TestAttachEndpointNoRoute(t *testing.T) {
	m, _ := newTestManager()
	if _, err := m.AttachEndpoint(context.Background(), newMockEndpoint("kafka")); !errors.Is(err, core.ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
}
