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
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/HEnquist/pycamilladsp/internal/control"
	"github.com/HEnquist/pycamilladsp/internal/logging"
	"github.com/HEnquist/pycamilladsp/internal/routing"
	"github.com/HEnquist/pycamilladsp/pkg/camilladsp"
	"github.com/HEnquist/pycamilladsp/pkg/core"
)

// ReplySource is the SourceID of reply events.
const ReplySource = "camilladsp"

// CommandExecutor runs one raw CamillaDSP command.
type CommandExecutor interface {
	Execute(ctx context.Context, payload []byte) control.Reply
}

type activeSession struct {
	session  *core.Session
	cancel   context.CancelFunc
	endpoint core.Endpoint
}

// Manager owns the sessions of entrypoint clients and attached broker
// endpoints. Telemetry is fanned out to every session whose route allows
// downstream traffic, commands are relayed for routes allowing upstream.
type Manager struct {
	sessions  sync.Map
	routes    *routing.Table
	exec      CommandExecutor
	logger    *slog.Logger
	packetLog *logging.PacketLogger
}

func NewManager(
	routes *routing.Table,
	exec CommandExecutor,
	logger *slog.Logger,
	packetLog *logging.PacketLogger,
) *Manager {
	return &Manager{
		routes:    routes,
		exec:      exec,
		logger:    logger,
		packetLog: packetLog,
	}
}

// CreateSession opens a session for a client of the named entrypoint. The
// session outlives ctx and ends on DestroySession.
func (m *Manager) CreateSession(
	ctx context.Context,
	entrypointName string,
	clientID string,
) (*core.Session, error) {
	sess, sessionCtx, err := m.newSession(ctx, entrypointName, clientID, nil)
	if err != nil {
		return nil, err
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("upstream relay panic recovered", "session_id", sess.ID, "error", r)
			}
		}()
		for {
			select {
			case <-sessionCtx.Done():
				return
			case evt := <-sess.Upstream:
				m.logPacket(evt, sess, "upstream")
				reply := m.handleCommand(sessionCtx, entrypointName, evt)
				select {
				case sess.Downstream <- reply:
				case <-sessionCtx.Done():
					return
				}
			}
		}
	}()

	m.logger.Info("session created",
		"session_id", sess.ID,
		"client_id", clientID,
		"entrypoint", entrypointName,
		"direction", sess.Route.Direction.String(),
		"channel_size", cap(sess.Downstream),
	)
	return sess, nil
}

// AttachEndpoint connects a broker endpoint to the bridge: commands it
// consumes are executed and answered through Send, and telemetry is
// published to it.
func (m *Manager) AttachEndpoint(ctx context.Context, ep core.Endpoint) (*core.Session, error) {
	sess, sessionCtx, err := m.newSession(ctx, ep.Name(), ep.Name(), ep)
	if err != nil {
		return nil, err
	}
	messages := make(chan core.BrokerMessage, cap(sess.Downstream))

	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("consumer panic recovered", "session_id", sess.ID, "error", r)
			}
		}()
		if err := ep.StartConsumer(sessionCtx, sess, messages); err != nil {
			if sessionCtx.Err() == nil {
				m.logger.Error("consumer error", "session_id", sess.ID, "endpoint", ep.Name(), "error", err)
			}
		}
	}()

	go func() {
		for {
			select {
			case <-sessionCtx.Done():
				return
			case msg := <-messages:
				m.relayBrokerCommand(sessionCtx, ep, sess, msg)
			}
		}
	}()

	go func() {
		for {
			select {
			case <-sessionCtx.Done():
				return
			case evt := <-sess.Downstream:
				if err := ep.Send(sessionCtx, evt); err != nil && sessionCtx.Err() == nil {
					m.logger.Warn("telemetry publish failed", "endpoint", ep.Name(), "error", err)
					continue
				}
				m.logPacket(evt, sess, "downstream")
			}
		}
	}()

	m.logger.Info("endpoint attached",
		"session_id", sess.ID,
		"endpoint", ep.Name(),
		"type", ep.Type(),
		"direction", sess.Route.Direction.String(),
	)
	return sess, nil
}

func (m *Manager) newSession(
	ctx context.Context,
	source string,
	clientID string,
	ep core.Endpoint,
) (*core.Session, context.Context, error) {
	route, ok := m.routes.Lookup(source)
	if !ok {
		return nil, nil, fmt.Errorf("%w: source=%s", core.ErrNoRoute, source)
	}

	channelSize := route.ChannelSize
	if channelSize <= 0 {
		channelSize = 1
	}

	sessionCtx, sessionCancel := context.WithCancel(context.WithoutCancel(ctx))
	sess := &core.Session{
		ID:             uuid.New().String(),
		ClientID:       clientID,
		EntrypointName: source,
		Route:          route,
		Downstream:     make(chan core.Event, channelSize),
		Upstream:       make(chan core.Event, channelSize),
		Done:           sessionCtx.Done(),
		Cancel:         sessionCancel,
	}

	m.sessions.Store(sess.ID, &activeSession{
		session:  sess,
		cancel:   sessionCancel,
		endpoint: ep,
	})
	return sess, sessionCtx, nil
}

func (m *Manager) relayBrokerCommand(ctx context.Context, ep core.Endpoint, sess *core.Session, msg core.BrokerMessage) {
	guarantee := sess.Route.DeliveryGuarantee
	if route, ok := m.routes.Lookup(sess.EntrypointName); ok {
		guarantee = route.DeliveryGuarantee
	}
	ackAfterReply := guarantee == core.DeliveryAuto || guarantee == core.DeliveryAtLeastOnce

	if guarantee == core.DeliveryAtMostOnce {
		m.settle(msg.Ack, "ack", ep)
	}

	m.logPacket(msg.Event, sess, "upstream")
	reply := m.handleCommand(ctx, sess.EntrypointName, msg.Event)

	if err := ep.Send(ctx, reply); err != nil {
		if ctx.Err() == nil {
			m.logger.Error("reply publish failed", "endpoint", ep.Name(), "request_id", msg.Event.ID, "error", err)
		}
		if ackAfterReply {
			m.settle(msg.Nack, "nack", ep)
		}
		return
	}
	m.logPacket(reply, sess, "downstream")
	if ackAfterReply {
		m.settle(msg.Ack, "ack", ep)
	}
}

func (m *Manager) settle(fn func() error, what string, ep core.Endpoint) {
	if fn == nil {
		return
	}
	if err := fn(); err != nil {
		m.logger.Warn(what+" failed", "endpoint", ep.Name(), "error", err)
	}
}

// handleCommand executes the command carried by evt if the source may send
// commands and wraps the outcome in a reply event.
func (m *Manager) handleCommand(ctx context.Context, source string, evt core.Event) core.Event {
	var r control.Reply
	status := core.StatusOK

	if !m.routes.AllowsUpstream(source) {
		name, _, err := camilladsp.ParseCommand(evt.Payload)
		if err != nil {
			name = control.InvalidCommand
		}
		payload, _ := camilladsp.EncodeReply(name, nil, fmt.Errorf("%w: %s", core.ErrUpstreamDenied, source))
		r = control.Reply{Command: name, Payload: payload}
		status = core.StatusDenied
	} else {
		r = m.exec.Execute(ctx, evt.Payload)
		if r.Err != nil {
			status = core.StatusError
		}
	}

	reply := core.NewEvent(core.EventTypeReply, ReplySource, evt.ClientID, r.Payload)
	reply.Metadata[core.MetaRequestID] = evt.ID
	reply.Metadata[core.MetaCommand] = r.Command
	reply.Metadata[core.MetaStatus] = status
	return reply
}

// Broadcast offers evt to every session allowed to receive telemetry and
// returns how many took it. Sessions whose channel is full miss the event.
func (m *Manager) Broadcast(evt core.Event) int {
	delivered := 0
	m.sessions.Range(func(_, val any) bool {
		as := val.(*activeSession)
		sess := as.session
		if !m.routes.AllowsDownstream(sess.EntrypointName) {
			return true
		}
		select {
		case sess.Downstream <- evt:
			delivered++
		default:
			m.logger.Debug("downstream channel full, dropping event",
				"session_id", sess.ID,
				"client_id", sess.ClientID,
			)
		}
		return true
	})
	return delivered
}

func (m *Manager) DestroySession(sessionID string) error {
	val, ok := m.sessions.LoadAndDelete(sessionID)
	if !ok {
		return fmt.Errorf("%w: id=%s", core.ErrSessionNotFound, sessionID)
	}

	as := val.(*activeSession)
	as.cancel()

	if as.endpoint != nil {
		if err := as.endpoint.StopConsumer(sessionID); err != nil {
			m.logger.Warn("stop consumer error", "session_id", sessionID, "error", err)
		}
	}

	m.logger.Info("session destroyed",
		"session_id", sessionID,
		"client_id", as.session.ClientID,
	)
	return nil
}

func (m *Manager) DestroyAll() {
	m.sessions.Range(func(key, _ any) bool {
		_ = m.DestroySession(key.(string))
		return true
	})
}

func (m *Manager) ActiveCount() int {
	count := 0
	m.sessions.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

func (m *Manager) logPacket(evt core.Event, sess *core.Session, direction string) {
	if m.packetLog != nil {
		m.packetLog.Log(evt, sess.Route, direction)
	}
}
