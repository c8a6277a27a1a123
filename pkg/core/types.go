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

package core

import "time"

// DeliveryGuarantee controls when a command consumed from a broker is
// acknowledged.
type DeliveryGuarantee int

const (
	DeliveryAuto DeliveryGuarantee = iota
	DeliveryNone
	DeliveryAtMostOnce
	DeliveryAtLeastOnce
)

type EventType int

const (
	EventTypeTelemetry EventType = iota
	EventTypeCommand
	EventTypeReply
	EventTypeConnect
	EventTypeDisconnect
)

var eventTypeNames = [...]string{"telemetry", "command", "reply", "connect", "disconnect"}

func (t EventType) String() string {
	if int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}
	return "unknown"
}

// Direction says which way events may flow for a route source. Downstream
// carries telemetry from CamillaDSP to clients, upstream carries commands
// from clients to CamillaDSP.
type Direction int

const (
	DirectionBoth Direction = iota
	DirectionDownstream
	DirectionUpstream
)

func (d Direction) String() string {
	switch d {
	case DirectionDownstream:
		return "downstream"
	case DirectionUpstream:
		return "upstream"
	default:
		return "both"
	}
}

func (d Direction) AllowsDownstream() bool { return d != DirectionUpstream }
func (d Direction) AllowsUpstream() bool   { return d != DirectionDownstream }

// Metadata keys set on events.
const (
	MetaCommand   = "command"
	MetaRequestID = "request_id"
	MetaStatus    = "status"
	MetaInstance  = "instance"
)

// Values of MetaStatus on reply events.
const (
	StatusOK     = "ok"
	StatusError  = "error"
	StatusDenied = "denied"
)

type Event struct {
	ID        string            `json:"id"`
	SourceID  string            `json:"source_id"`
	ClientID  string            `json:"client_id"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
}

func (e Event) IsLifecycle() bool {
	return e.Type == EventTypeConnect || e.Type == EventTypeDisconnect
}

// BrokerMessage is a command consumed from a broker endpoint.
type BrokerMessage struct {
	Event Event
	Ack   func() error
	Nack  func() error
}

// Route grants a source (an entrypoint or endpoint name) access to the
// CamillaDSP instance.
type Route struct {
	Source            string            `yaml:"source"`
	Direction         Direction         `yaml:"direction"`
	DeliveryGuarantee DeliveryGuarantee `yaml:"delivery_guarantee"`
	ChannelSize       int               `yaml:"channel_size"`
}
