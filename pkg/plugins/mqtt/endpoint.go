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
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/HEnquist/pycamilladsp/pkg/core"
	"github.com/HEnquist/pycamilladsp/pkg/plugins/broker"
)

const publishTimeout = 5 * time.Second

// Endpoint talks MQTT 3.1.1. The protocol has no message properties, so
// payloads are published as is.
type Endpoint struct {
	name      string
	brokerURL string
	clientID  string
	topicIn   string
	targets   broker.Targets
	qos       byte
	client    mqtt.Client
	logger    *slog.Logger
	consumers sync.Map
}

func New(name, brokerURL, clientID, topicIn, topicOut, topicReply string, qos byte, logger *slog.Logger) *Endpoint {
	if clientID == "" {
		clientID = "camillabridge-" + name
	}
	return &Endpoint{
		name:      name,
		brokerURL: brokerURL,
		clientID:  clientID,
		topicIn:   topicIn,
		targets:   broker.NewTargets(topicOut, topicReply),
		qos:       qos,
		logger:    logger,
	}
}

func (e *Endpoint) Name() string { return e.name }
func (e *Endpoint) Type() string { return "mqtt" }

func (e *Endpoint) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(e.brokerURL).
		SetClientID(e.clientID).
		SetCleanSession(false).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetOnConnectHandler(func(client mqtt.Client) {
			e.logger.Info("mqtt connected", "name", e.name, "broker", e.brokerURL)
			// Subscribe again on every connect.
			if e.topicIn != "" {
				token := client.Subscribe(e.topicIn, e.qos, e.onMessage)
				go func() {
					if token.WaitTimeout(publishTimeout) && token.Error() != nil {
						e.logger.Error("mqtt subscribe failed", "name", e.name, "topic", e.topicIn, "error", token.Error())
					}
				}()
			}
		}).
		SetConnectionLostHandler(func(client mqtt.Client, err error) {
			e.logger.Warn("mqtt connection lost", "name", e.name, "error", err)
		})

	e.client = mqtt.NewClient(opts)

	token := e.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	e.logger.Info("mqtt endpoint connected", "name", e.name, "topic_in", e.topicIn, "topic_out", e.targets.Telemetry)
	return nil
}

func (e *Endpoint) Disconnect(ctx context.Context) error {
	e.consumers.Range(func(key, _ any) bool {
		e.consumers.Delete(key)
		return true
	})
	if e.client != nil && e.client.IsConnected() {
		e.client.Disconnect(250)
	}
	return nil
}

func (e *Endpoint) onMessage(_ mqtt.Client, msg mqtt.Message) {
	e.consumers.Range(func(_, val any) bool {
		select {
		case val.(chan mqtt.Message) <- msg:
		default:
			e.logger.Warn("mqtt consumer busy, dropping command", "name", e.name, "topic", msg.Topic())
		}
		return true
	})
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

	msgCh := make(chan mqtt.Message, cap(session.Upstream)+1)
	e.consumers.Store(session.ID, msgCh)
	defer e.consumers.Delete(session.ID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-msgCh:
			m := msg
			brokerMsg := core.BrokerMessage{
				Event: broker.CommandEvent(e.name, session.ClientID, m.Payload(),
					map[string]string{"mqtt_topic": m.Topic()}),
				Ack: func() error {
					m.Ack()
					return nil
				},
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
	topic, qos, retained := e.publishOptions(evt)
	if topic == "" || e.client == nil {
		return nil
	}

	token := e.client.Publish(topic, qos, retained, evt.Payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("mqtt publish to %s timed out", topic)
	}
	return token.Error()
}

func (e *Endpoint) publishOptions(evt core.Event) (topic string, qos byte, retained bool) {
	topic = e.targets.For(evt)
	if evt.Type == core.EventTypeTelemetry {
		// New subscribers get the last snapshot straight away.
		return topic, 0, true
	}
	return topic, e.qos, false
}
