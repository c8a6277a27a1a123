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

package jms

import (
	"io"
	"log/slog"
	"testing"

	"github.com/Azure/go-amqp"

	"github.com/HEnquist/pycamilladsp/pkg/core"
)

func newTestEndpoint() *Endpoint {
	return New("jms", "amqp://localhost:5672", "dsp.commands", "dsp.telemetry", "dsp.replies",
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCommandEventFromMessage(t *testing.T) {
	ep := newTestEndpoint()
	msg := &amqp.Message{
		Data: [][]byte{[]byte(`{"SetUpdateInterval":100}`)},
		ApplicationProperties: map[string]any{
			"origin":   "scheduler",
			"priority": int32(4),
		},
		Properties: &amqp.MessageProperties{CorrelationID: "req-9"},
	}

	evt := ep.commandEvent("jms", msg)
	if evt.ID != "req-9" || evt.Type != core.EventTypeCommand {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if string(evt.Payload) != `{"SetUpdateInterval":100}` {
		t.Fatalf("unexpected payload %s", evt.Payload)
	}
	if evt.Metadata["origin"] != "scheduler" || evt.Metadata["jms_queue"] != "dsp.commands" {
		t.Fatalf("unexpected metadata %v", evt.Metadata)
	}
	if _, ok := evt.Metadata["priority"]; ok {
		t.Fatal("non-string properties should not become metadata")
	}
}

func TestCommandEventWithoutProperties(t *testing.T) {
	ep := newTestEndpoint()
	evt := ep.commandEvent("jms", &amqp.Message{Data: [][]byte{[]byte(`"Reload"`)}})
	if evt.ID == "" || string(evt.Payload) != `"Reload"` {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if _, ok := evt.Metadata[core.MetaRequestID]; ok {
		t.Fatal("unexpected request id")
	}
}

func TestMessageCarriesHeaders(t *testing.T) {
	ep := newTestEndpoint()
	reply := core.NewEvent(core.EventTypeReply, "camilladsp", "jms", []byte(`{}`))
	reply.Metadata[core.MetaRequestID] = "req-9"
	reply.Metadata[core.MetaCommand] = "SetUpdateInterval"

	msg := ep.message(reply)
	if msg.Properties.MessageID != reply.ID || msg.Properties.CorrelationID != "req-9" {
		t.Fatalf("unexpected properties %+v", msg.Properties)
	}
	if msg.ApplicationProperties["event_type"] != "reply" || msg.ApplicationProperties[core.MetaCommand] != "SetUpdateInterval" {
		t.Fatalf("unexpected application properties %v", msg.ApplicationProperties)
	}
	if string(msg.GetData()) != `{}` {
		t.Fatalf("unexpected body %s", msg.GetData())
	}

	telemetry := ep.message(core.NewEvent(core.EventTypeTelemetry, "camilladsp", "", nil))
	if telemetry.Properties.CorrelationID != nil {
		t.Fatal("telemetry should carry no correlation id")
	}
}
