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

package mqtt5

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"

	"github.com/HEnquist/pycamilladsp/pkg/core"
	"github.com/HEnquist/pycamilladsp/pkg/plugins/broker"
)

// Endpoint talks MQTT v5. Replies carry the command's correlation data and
// go to the command's response topic when one was given.
type Endpoint struct {
	name      string
	brokerURL string
	topicIn   string
	targets   broker.Targets
	cm        *autopaho.ConnectionManager
	logger    *slog.Logger
	consumers sync.Map

	mu            sync.Mutex
	responseTopic map[string]string
}

func New(name, brokerURL, topicIn, topicOut, topicReply string, logger *slog.Logger) *Endpoint {
	return &Endpoint{
		name:          name,
		brokerURL:     brokerURL,
		topicIn:       topicIn,
		targets:       broker.NewTargets(topicOut, topicReply),
		logger:        logger,
		responseTopic: make(map[string]string),
	}
}

func (e *Endpoint) Name() string { return e.name }
func (e *Endpoint) Type() string { return "mqtt5" }

func (e *Endpoint) Connect(ctx context.Context) error {
	serverURL, err := url.Parse(e.brokerURL)
	if err != nil {
		return fmt.Errorf("mqtt5 invalid URL: %w", err)
	}

	cfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{serverURL},
		KeepAlive:                     30,
		CleanStartOnInitialConnection: true,
		SessionExpiryInterval:         60,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, connAck *paho.Connack) {
			e.logger.Info("mqtt5 connection up", "name", e.name)
			// Subscriptions do not survive a clean start, renew them.
			if e.topicIn != "" {
				if _, err := cm.Subscribe(context.Background(), &paho.Subscribe{
					Subscriptions: []paho.SubscribeOptions{{Topic: e.topicIn, QoS: 1}},
				}); err != nil {
					e.logger.Error("mqtt5 subscribe failed", "name", e.name, "topic", e.topicIn, "error", err)
				}
			}
		},
		OnConnectError: func(err error) {
			e.logger.Warn("mqtt5 connect error", "name", e.name, "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: "camillabridge-" + e.name + "-" + uuid.New().String()[:8],
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				e.onPublish,
			},
		},
	}

	e.cm, err = autopaho.NewConnection(ctx, cfg)
	if err != nil {
		return fmt.Errorf("mqtt5 connection: %w", err)
	}

	if err := e.cm.AwaitConnection(ctx); err != nil {
		return fmt.Errorf("mqtt5 await connection: %w", err)
	}

	e.logger.Info("mqtt5 endpoint connected", "name", e.name, "broker", e.brokerURL)
	return nil
}

func (e *Endpoint) Disconnect(ctx context.Context) error {
	if e.cm != nil {
		return e.cm.Disconnect(ctx)
	}
	return nil
}

func (e *Endpoint) onPublish(pr paho.PublishReceived) (bool, error) {
	pub := pr.Packet
	if pub == nil || pub.Topic != e.topicIn {
		return false, nil
	}
	e.consumers.Range(func(_, val any) bool {
		select {
		case val.(chan *paho.Publish) <- pub:
		default:
			e.logger.Warn("mqtt5 consumer busy, dropping command", "name", e.name)
		}
		return true
	})
	return true, nil
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

	mqttCh := make(chan *paho.Publish, cap(session.Upstream)+1)
	e.consumers.Store(session.ID, mqttCh)
	defer e.consumers.Delete(session.ID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case pub := <-mqttCh:
			evt := e.commandEvent(session.ClientID, pub)

			// The broker has already been acknowledged by the client.
			brokerMsg := core.BrokerMessage{
				Event: evt,
				Ack:   func() error { return nil },
				Nack:  func() error { return nil },
			}

			select {
			case ch <- brokerMsg:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (e *Endpoint) StopConsumer(sessionID string) error {
	e.consumers.Delete(sessionID)
	return nil
}

func (e *Endpoint) Send(ctx context.Context, evt core.Event) error {
	if e.cm == nil {
		return nil
	}
	pub, ok := e.publish(evt)
	if !ok {
		return nil
	}
	_, err := e.cm.Publish(ctx, pub)
	return err
}

// commandEvent maps user properties to metadata and correlation data to the
// request ID, and remembers the response topic for the reply.
func (e *Endpoint) commandEvent(clientID string, pub *paho.Publish) core.Event {
	headers := map[string]string{"mqtt_topic": pub.Topic}
	if props := pub.Properties; props != nil {
		for _, up := range props.User {
			headers[up.Key] = up.Value
		}
		if len(props.CorrelationData) > 0 {
			headers[core.MetaRequestID] = string(props.CorrelationData)
		}
	}
	evt := broker.CommandEvent(e.name, clientID, pub.Payload, headers)
	if pub.Properties != nil && pub.Properties.ResponseTopic != "" {
		e.mu.Lock()
		e.responseTopic[evt.ID] = pub.Properties.ResponseTopic
		e.mu.Unlock()
	}
	return evt
}

func (e *Endpoint) publish(evt core.Event) (*paho.Publish, bool) {
	topic := e.targets.For(evt)
	if evt.Type == core.EventTypeReply {
		e.mu.Lock()
		if rt, ok := e.responseTopic[evt.Metadata[core.MetaRequestID]]; ok {
			topic = rt
			delete(e.responseTopic, evt.Metadata[core.MetaRequestID])
		}
		e.mu.Unlock()
	}
	if topic == "" {
		return nil, false
	}

	props := &paho.PublishProperties{ContentType: "application/json"}
	for k, v := range broker.Headers(evt) {
		props.User.Add(k, v)
	}
	if id := evt.Metadata[core.MetaRequestID]; id != "" {
		props.CorrelationData = []byte(id)
	}

	qos := byte(1)
	if evt.Type == core.EventTypeTelemetry {
		qos = 0
	}
	return &paho.Publish{
		Topic:      topic,
		QoS:        qos,
		Payload:    evt.Payload,
		Properties: props,
	}, true
}
