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
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"solace.dev/go/messaging"
	"solace.dev/go/messaging/pkg/solace"
	"solace.dev/go/messaging/pkg/solace/config"
	"solace.dev/go/messaging/pkg/solace/message"
	"solace.dev/go/messaging/pkg/solace/resource"

	"github.com/HEnquist/pycamilladsp/pkg/core"
	"github.com/HEnquist/pycamilladsp/pkg/plugins/broker"
)

const terminateGrace = 5 * time.Second

// Endpoint uses Solace direct messaging. Direct messages are not
// acknowledged, so every delivery guarantee behaves as at-most-once.
type Endpoint struct {
	name      string
	host      string
	vpn       string
	username  string
	password  string
	topicIn   string
	targets   broker.Targets
	service   solace.MessagingService
	publisher solace.DirectMessagePublisher
	pubMu     sync.Mutex
	logger    *slog.Logger
	consumers sync.Map
}

func New(name, host, vpn, username, password, topicIn, topicOut, topicReply string, logger *slog.Logger) *Endpoint {
	return &Endpoint{
		name:     name,
		host:     host,
		vpn:      vpn,
		username: username,
		password: password,
		topicIn:  topicIn,
		targets:  broker.NewTargets(topicOut, topicReply),
		logger:   logger,
	}
}

func (e *Endpoint) Name() string { return e.name }
func (e *Endpoint) Type() string { return "solace" }

func (e *Endpoint) Connect(ctx context.Context) error {
	var err error
	e.service, err = messaging.NewMessagingServiceBuilder().
		FromConfigurationProvider(config.ServicePropertyMap{
			config.TransportLayerPropertyHost:                e.host,
			config.ServicePropertyVPNName:                    e.vpn,
			config.AuthenticationPropertySchemeBasicUserName: e.username,
			config.AuthenticationPropertySchemeBasicPassword: e.password,
		}).Build()
	if err != nil {
		return fmt.Errorf("solace build: %w", err)
	}
	if err = e.service.Connect(); err != nil {
		return fmt.Errorf("solace connect: %w", err)
	}

	if e.targets.Telemetry != "" || e.targets.Replies != "" {
		e.publisher, err = e.service.CreateDirectMessagePublisherBuilder().Build()
		if err != nil {
			return fmt.Errorf("solace publisher build: %w", err)
		}
		if err = e.publisher.Start(); err != nil {
			return fmt.Errorf("solace publisher start: %w", err)
		}
	}

	e.logger.Info("solace endpoint connected", "name", e.name, "host", e.host, "vpn", e.vpn)
	return nil
}

func (e *Endpoint) Disconnect(ctx context.Context) error {
	e.consumers.Range(func(key, val any) bool {
		_ = val.(solace.DirectMessageReceiver).Terminate(terminateGrace)
		e.consumers.Delete(key)
		return true
	})
	if e.publisher != nil {
		_ = e.publisher.Terminate(terminateGrace)
	}
	if e.service != nil {
		return e.service.Disconnect()
	}
	return nil
}

func (e *Endpoint) StartConsumer(
	ctx context.Context,
	session *core.Session,
	ch chan<- core.BrokerMessage,
) error {
	if e.topicIn == "" {
		<-ctx.Done()
		return nil
	}

	receiver, err := e.service.CreateDirectMessageReceiverBuilder().
		WithSubscriptions(resource.TopicSubscriptionOf(e.topicIn)).
		Build()
	if err != nil {
		return fmt.Errorf("solace receiver build: %w", err)
	}
	if err = receiver.Start(); err != nil {
		return fmt.Errorf("solace receiver start: %w", err)
	}

	e.consumers.Store(session.ID, receiver)
	defer func() {
		if _, ok := e.consumers.LoadAndDelete(session.ID); ok {
			_ = receiver.Terminate(terminateGrace)
		}
	}()

	err = receiver.ReceiveAsync(func(inMsg message.InboundMessage) {
		brokerMsg := core.BrokerMessage{
			Event: e.commandEvent(session.ClientID, inMsg),
			Ack:   func() error { return nil },
			Nack:  func() error { return nil },
		}

		select {
		case ch <- brokerMsg:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("solace receive: %w", err)
	}

	<-ctx.Done()
	return nil
}

func (e *Endpoint) StopConsumer(sessionID string) error {
	val, ok := e.consumers.LoadAndDelete(sessionID)
	if !ok {
		return nil
	}
	return val.(solace.DirectMessageReceiver).Terminate(terminateGrace)
}

func (e *Endpoint) Send(ctx context.Context, evt core.Event) error {
	topic, headers, correlationID := e.outbound(evt)
	if topic == "" || e.publisher == nil {
		return nil
	}

	builder := e.service.MessageBuilder().WithApplicationMessageID(evt.ID)
	for k, v := range headers {
		builder = builder.WithProperty(config.MessageProperty(k), v)
	}
	if correlationID != "" {
		builder = builder.WithCorrelationID(correlationID)
	}
	msg, err := builder.BuildWithByteArrayPayload(evt.Payload)
	if err != nil {
		return fmt.Errorf("solace message build: %w", err)
	}

	e.pubMu.Lock()
	defer e.pubMu.Unlock()
	return e.publisher.Publish(msg, resource.TopicOf(topic))
}

// inbound is the part of message.InboundMessage a command is built from.
type inbound interface {
	GetPayloadAsBytes() ([]byte, bool)
	GetDestinationName() string
	GetCorrelationID() (string, bool)
}

func (e *Endpoint) commandEvent(clientID string, msg inbound) core.Event {
	payload, _ := msg.GetPayloadAsBytes()
	headers := map[string]string{"solace_topic": msg.GetDestinationName()}
	if id, ok := msg.GetCorrelationID(); ok && id != "" {
		headers[core.MetaRequestID] = id
	}
	return broker.CommandEvent(e.name, clientID, payload, headers)
}

func (e *Endpoint) outbound(evt core.Event) (topic string, headers map[string]string, correlationID string) {
	return e.targets.For(evt), broker.Headers(evt), evt.Metadata[core.MetaRequestID]
}
