//go:build integration

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

package redis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/HEnquist/pycamilladsp/pkg/core"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func newConnected(t *testing.T, addr string) *Endpoint {
	t.Helper()
	ep := New("redis", Options{
		Addr:         addr,
		SnapshotKey:  "camilladsp:status",
		SnapshotTTL:  time.Minute,
		ChannelIn:    "camilladsp.commands",
		ChannelOut:   "camilladsp.telemetry",
		ChannelReply: "camilladsp.replies",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := ep.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = ep.Disconnect(context.Background()) })
	return ep
}

func TestSendStoresSnapshotAndPublishes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	addr := startRedis(t)
	ep := newConnected(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	sub := rdb.Subscribe(ctx, "camilladsp.telemetry", "camilladsp.replies")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	// Wait for both channel confirmations.
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	telemetry := core.NewEvent(core.EventTypeTelemetry, "camilladsp", "", []byte(`{"state":"RUNNING"}`))
	if err := ep.Send(ctx, telemetry); err != nil {
		t.Fatalf("send telemetry: %v", err)
	}
	reply := core.NewEvent(core.EventTypeReply, "camilladsp", "", []byte(`{"GetVolume":{"result":"Ok","value":-6}}`))
	if err := ep.Send(ctx, reply); err != nil {
		t.Fatalf("send reply: %v", err)
	}

	got, err := rdb.Get(ctx, "camilladsp:status").Result()
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if got != `{"state":"RUNNING"}` {
		t.Fatalf("unexpected snapshot %s", got)
	}
	if ttl := rdb.TTL(ctx, "camilladsp:status").Val(); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected snapshot ttl %v", ttl)
	}

	want := map[string]string{
		"camilladsp.telemetry": `{"state":"RUNNING"}`,
		"camilladsp.replies":   `{"GetVolume":{"result":"Ok","value":-6}}`,
	}
	for range want {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		if want[msg.Channel] != msg.Payload {
			t.Fatalf("unexpected payload on %s: %s", msg.Channel, msg.Payload)
		}
	}
}

func TestConsumerDeliversCommands(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	addr := startRedis(t)
	ep := newConnected(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sess := &core.Session{ID: "s1", ClientID: "redis"}
	ch := make(chan core.BrokerMessage, 1)
	done := make(chan error, 1)
	go func() { done <- ep.StartConsumer(ctx, sess, ch) }()

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	// Publish until the consumer has subscribed.
	var msg core.BrokerMessage
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
recv:
	for {
		select {
		case msg = <-ch:
			break recv
		case <-ticker.C:
			rdb.Publish(ctx, "camilladsp.commands", `{"SetVolume":-10}`)
		case <-ctx.Done():
			t.Fatal("no command delivered")
		}
	}

	if msg.Event.Type != core.EventTypeCommand {
		t.Fatalf("expected a command event, got %s", msg.Event.Type)
	}
	if string(msg.Event.Payload) != `{"SetVolume":-10}` {
		t.Fatalf("unexpected payload %s", msg.Event.Payload)
	}
	if msg.Event.Metadata["redis_channel"] != "camilladsp.commands" {
		t.Fatalf("unexpected metadata %v", msg.Event.Metadata)
	}

	if err := ep.StopConsumer(sess.ID); err != nil {
		t.Fatalf("stop consumer: %v", err)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("consumer returned %v", err)
	}
}
