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

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/HEnquist/pycamilladsp/pkg/core"
)

func TestPacketLoggerCommand(t *testing.T) {
	var buf bytes.Buffer
	p := NewPacketLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	evt := core.NewEvent(core.EventTypeReply, "camilladsp", "client-1", []byte(`{}`))
	evt.Metadata[core.MetaCommand] = "SetVolume"
	evt.Metadata[core.MetaStatus] = core.StatusOK
	p.Log(evt, &core.Route{Source: "ws-in", Direction: core.DirectionBoth}, "downstream")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected one json record: %v", err)
	}
	if rec["command"] != "SetVolume" || rec["status"] != "ok" || rec["route_source"] != "ws-in" {
		t.Fatalf("unexpected record %v", rec)
	}
	if rec["event_type"] != "reply" {
		t.Fatalf("expected reply event type, got %v", rec["event_type"])
	}
}

func TestPacketLoggerTelemetryIsDebug(t *testing.T) {
	var buf bytes.Buffer
	p := NewPacketLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	p.Log(core.NewEvent(core.EventTypeTelemetry, "camilladsp", "", []byte(`{}`)), nil, "downstream")
	if buf.Len() != 0 {
		t.Fatalf("telemetry should not be logged at info: %s", buf.String())
	}
}
