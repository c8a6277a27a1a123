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

package solace

import (
	"io"
	"log/slog"
	"testing"

	"solace.dev/go/messaging/pkg/solace/message"

	"github.com/HEnquist/pycamilladsp/pkg/core"
)

type fakeInbound struct {
	payload       []byte
	destination   string
	correlationID string
}

func (m fakeInbound) GetPayloadAsBytes() ([]byte, bool) { return m.payload, m.payload != nil }
func (m fakeInbound) GetDestinationName() string        { return m.destination }
func (m fakeInbound) GetCorrelationID() (string, bool) {
	return m.correlationID, m.correlationID != ""
}

var _ inbound = message.InboundMessage(nil)

func newTestEndpoint() *Endpoint {
	return New("solace", "tcp://localhost:55555", "default", "admin", "admin",
		"dsp/commands", "dsp/telemetry", "dsp/replies", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCommandEventFromInbound(t *testing.T) {
	ep := newTestEndpoint()
	evt := ep.commandEvent("solace", fakeInbound{
		payload:       []byte(`{"SetFaderMute":[1,true]}`),
		destination:   "dsp/commands",
		correlationID: "req-5",
	})

	if evt.ID != "req-5" || evt.Type != core.EventTypeCommand || evt.ClientID != "solace" {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if string(evt.Payload) != `{"SetFaderMute":[1,true]}` || evt.Metadata["solace_topic"] != "dsp/commands" {
		t.Fatalf("unexpected event: %+v", evt)
	}

	evt = ep.commandEvent("solace", fakeInbound{payload: []byte(`"Stop"`), destination: "dsp/commands"})
	if evt.ID == "" || evt.ID == "req-5" {
		t.Fatalf("expected a generated id, got %q", evt.ID)
	}
}

func TestOutbound(t *testing.T) {
	ep := newTestEndpoint()

	reply := core.NewEvent(core.EventTypeReply, "camilladsp", "solace", nil)
	reply.Metadata[core.MetaRequestID] = "req-5"
	topic, headers, correlationID := ep.outbound(reply)
	if topic != "dsp/replies" || correlationID != "req-5" {
		t.Fatalf("unexpected reply routing: topic=%s correlation=%s", topic, correlationID)
	}
	if headers["event_type"] != "reply" || headers["event_id"] != reply.ID {
		t.Fatalf("unexpected headers %v", headers)
	}

	topic, _, correlationID = ep.outbound(core.NewEvent(core.EventTypeTelemetry, "camilladsp", "", nil))
	if topic != "dsp/telemetry" || correlationID != "" {
		t.Fatalf("unexpected telemetry routing: topic=%s correlation=%s", topic, correlationID)
	}
}
