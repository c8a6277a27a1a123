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

// Package broker holds the conventions shared by the message broker
// endpoints: where each event is published and which headers it carries.
package broker

import (
	"github.com/HEnquist/pycamilladsp/pkg/core"
)

// Headers set on every published message.
const (
	HeaderEventType = "event_type"
	HeaderEventID   = "event_id"
)

// Targets names the destinations an endpoint publishes to. Replies go to
// the telemetry destination unless a separate one is configured.
type Targets struct {
	Telemetry string
	Replies   string
}

func NewTargets(out, reply string) Targets {
	if reply == "" {
		reply = out
	}
	return Targets{Telemetry: out, Replies: reply}
}

// For returns the destination of evt, or "" when it should not be published.
func (t Targets) For(evt core.Event) string {
	if evt.Type == core.EventTypeReply {
		return t.Replies
	}
	return t.Telemetry
}

// Headers flattens the event type, ID and metadata into message headers.
func Headers(evt core.Event) map[string]string {
	h := make(map[string]string, len(evt.Metadata)+2)
	for k, v := range evt.Metadata {
		if v != "" {
			h[k] = v
		}
	}
	h[HeaderEventType] = evt.Type.String()
	h[HeaderEventID] = evt.ID
	return h
}

// CommandEvent wraps a consumed message body as a command event. A
// request_id header set by the producer is kept so replies can be matched.
func CommandEvent(endpoint, clientID string, payload []byte, headers map[string]string) core.Event {
	evt := core.NewEvent(core.EventTypeCommand, endpoint, clientID, payload)
	if id := headers[core.MetaRequestID]; id != "" {
		evt.ID = id
	}
	for k, v := range headers {
		if k != core.MetaRequestID {
			evt.Metadata[k] = v
		}
	}
	return evt
}
