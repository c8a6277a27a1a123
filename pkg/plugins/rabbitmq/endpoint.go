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

package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/HEnquist/pycamilladsp/pkg/core"
	"github.com/HEnquist/pycamilladsp/pkg/plugins/broker"
)

// Endpoint consumes commands from queue_in and publishes telemetry to
// queue_out through the default exchange.
type Endpoint struct {
	name      string
	url       string
	queueIn   string
	targets   broker.Targets
	conn      *amqp.Connection
	pubMu     sync.Mutex
	pubCh     *amqp.Channel
	logger    *slog.Logger
	consumers sync.Map
}

func New(name, url, queueIn, queueOut, queueReply string, logger *slog.Logger) *Endpoint {
	return &Endpoint{
		name:    name,
		url:     url,
		queueIn: queueIn,
		targets: broker.NewTargets(queueOut, queueReply),
		logger:  logger,
	}
}

func (e *Endpoint) Name() string { return e.name }
func (e *Endpoint) Type() string { return "rabbitmq" }

func (e *Endpoint) Connect(ctx context.Context) error {
	var err error
	e.conn, err = amqp.Dial(e.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	e.pubCh, err = e.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq publish channel: %w", err)
	}

	for _, q := range []string{e.queueIn, e.targets.Telemetry, e.targets.Replies} {
		if q != "" {
			if _, err := e.pubCh.QueueDeclare(q, true, false, false, false, nil); err != nil {
				return fmt.Errorf("rabbitmq queue declare %s: %w", q, err)
			}
		}
	}

	e.logger.Info("rabbitmq endpoint connected",
		"name", e.name,
		"queue_in", e.queueIn,
		"queue_out", e.targets.Telemetry,
		"queue_reply", e.targets.Replies,
	)
	return nil
}

func (e *Endpoint) Disconnect(ctx context.Context) error {
	e.consumers.Range(func(key, val any) bool {
		_ = val.(*amqp.Channel).Close()
		e.consumers.Delete(key)
		return true
	})
	if e.pubCh != nil {
		_ = e.pubCh.Close()
	}
	if e.conn != nil {
		return e.conn.Close()
	}
	return nil
}

func (e *Endpoint) StartConsumer(
	ctx context.Context,
	session *core.Session,
	ch chan<- core.BrokerMessage,
) error {
	if e.queueIn == "" {
		<-ctx.Done()
		return nil
	}

	consumerCh, err := e.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq consumer channel: %w", err)
	}

	if err := consumerCh.Qos(1, 0, false); err != nil {
		_ = consumerCh.Close()
		return fmt.Errorf("rabbitmq qos: %w", err)
	}

	consumerTag := fmt.Sprintf("camillabridge-%s-%s", e.name, session.ID)
	deliveries, err := consumerCh.Consume(
		e.queueIn,
		consumerTag,
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = consumerCh.Close()
		return fmt.Errorf("rabbitmq consume: %w", err)
	}

	e.consumers.Store(session.ID, consumerCh)
	defer func() {
		if _, ok := e.consumers.LoadAndDelete(session.ID); ok {
			_ = consumerCh.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			delivery := d
			headers := map[string]string{"rabbitmq_routing_key": delivery.RoutingKey}
			for k, v := range delivery.Headers {
				if s, ok := v.(string); ok {
					headers[k] = s
				}
			}
			if delivery.CorrelationId != "" {
				headers[core.MetaRequestID] = delivery.CorrelationId
			}
			brokerMsg := core.BrokerMessage{
				Event: broker.CommandEvent(e.name, session.ClientID, delivery.Body, headers),
				Ack:   func() error { return delivery.Ack(false) },
				Nack:  func() error { return delivery.Nack(false, true) },
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
	val, ok := e.consumers.LoadAndDelete(sessionID)
	if !ok {
		return nil
	}
	return val.(*amqp.Channel).Close()
}

func (e *Endpoint) Send(ctx context.Context, evt core.Event) error {
	queue := e.targets.For(evt)
	if queue == "" || e.pubCh == nil {
		return nil
	}

	headers := amqp.Table{}
	for k, v := range broker.Headers(evt) {
		headers[k] = v
	}

	// amqp channels are not safe for concurrent publishing.
	e.pubMu.Lock()
	defer e.pubMu.Unlock()
	return e.pubCh.PublishWithContext(ctx,
		"",
		queue,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			Body:          evt.Payload,
			MessageId:     evt.ID,
			CorrelationId: evt.Metadata[core.MetaRequestID],
			Timestamp:     evt.Timestamp,
			Headers:       headers,
		},
	)
}
