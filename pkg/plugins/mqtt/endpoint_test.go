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

package mqtt

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/HEnquist/pycamilladsp/pkg/core"
)

type fakeMessage struct {
	topic   string
	payload []byte
	acked   atomic.Bool
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              { m.acked.Store(true) }

func newTestEndpoint() *Endpoint {
	return New("mqtt", "tcp://localhost:1883", "", "dsp/commands", "dsp/telemetry", "", 1,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDefaultClientID(t *testing.T) {
	if ep := newTestEndpoint(); ep.clientID != "camillabridge-mqtt" {
		t.Fatalf("unexpected client id %q", ep.clientID)
	}
}

func TestPublishOptions(t *testing.T) {
	ep := newTestEndpoint()

	topic, qos, retained := ep.publishOptions(core.NewEvent(core.EventTypeTelemetry, "camilladsp", "", nil))
	if topic != "dsp/telemetry" || qos != 0 || !retained {
		t.Fatalf("telemetry: topic=%s qos=%d retained=%v", topic, qos, retained)
	}

	topic, qos, retained = ep.publishOptions(core.NewEvent(core.EventTypeReply, "camilladsp", "mqtt", nil))
	if topic != "dsp/telemetry" || qos != 1 || retained {
		t.Fatalf("reply: topic=%s qos=%d retained=%v", topic, qos, retained)
	}
}

func TestConsumerMapsMessages(t *testing.T) {
	ep := newTestEndpoint()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := make(chan core.BrokerMessage, 1)
	go ep.StartConsumer(ctx, &core.Session{ID: "s1", ClientID: "mqtt"}, ch)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := ep.consumers.Load("s1"); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("consumer not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	in := &fakeMessage{topic: "dsp/commands", payload: []byte(`{"SetMute":true}`)}
	ep.onMessage(nil, in)

	select {
	case msg := <-ch:
		if msg.Event.Type != core.EventTypeCommand || msg.Event.ClientID != "mqtt" {
			t.Fatalf("unexpected event: %+v", msg.Event)
		}
		if string(msg.Event.Payload) != `{"SetMute":true}` || msg.Event.Metadata["mqtt_topic"] != "dsp/commands" {
			t.Fatalf("unexpected event: %+v", msg.Event)
		}
		if err := msg.Ack(); err != nil {
			t.Fatalf("ack: %v", err)
		}
		if !in.acked.Load() {
			t.Fatal("message not acked")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("command not delivered")
	}
}
