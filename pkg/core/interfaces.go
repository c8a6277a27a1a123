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

import "context"

// Entrypoint serves clients that connect to the bridge.
type Entrypoint interface {
	Name() string
	Type() string
	Start(ctx context.Context, manager SessionManager) error
	Stop(ctx context.Context) error
}

// Endpoint is a message broker the bridge publishes telemetry to and
// consumes commands from.
type Endpoint interface {
	Name() string
	Type() string
	StartConsumer(ctx context.Context, session *Session, ch chan<- BrokerMessage) error
	StopConsumer(sessionID string) error
	Send(ctx context.Context, evt Event) error
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

type SessionManager interface {
	CreateSession(ctx context.Context, entrypointName string, clientID string) (*Session, error)
	DestroySession(sessionID string) error
}

// StatusSource exposes the latest telemetry snapshot as JSON.
type StatusSource interface {
	Latest() ([]byte, bool)
}

// Session is one client (or attached endpoint) of the bridge. Downstream
// receives telemetry and command replies, Upstream takes commands. Done is
// closed once the session is destroyed.
type Session struct {
	ID             string
	ClientID       string
	EntrypointName string
	Route          *Route
	Downstream     chan Event
	Upstream       chan Event
	Done           <-chan struct{}
	Cancel         context.CancelFunc
}
