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

package jms

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Azure/go-amqp"

	"github.com/HEnquist/pycamilladsp/pkg/core"
	"github.com/HEnquist/pycamilladsp/pkg/plugins/broker"
)

// Endpoint talks AMQP 1.0 to JMS brokers such as ActiveMQ Artemis.
type Endpoint struct {
	name      string
	url       string
	queueIn   string
	targets   broker.Targets
	conn      *amqp.Conn
	sendSess  *amqp.Session
	senders   map[string]*amqp.Sender
	sendMu    sync.Mutex
	logger    *slog.Logger
	consumers sync.Map
}

type consumer struct {
	receiver *amqp.Receiver
	session  *amqp.Session
}

func New(name, url, queueIn, queueOut, queueReply string, logger *slog.Logger) *Endpoint {
	return &Endpoint{
		name:    name,
		url:     url,
		queueIn: queueIn,
		targets: broker.NewTargets(queueOut, queueReply),
		senders: make(map[string]*amqp.Sender),
		logger:  logger,
	}
}

func (e *Endpoint) Name() string { return e.name }
func (e *Endpoint) Type() string { return "jms" }

func (e *Endpoint) Connect(ctx context.Context) error {
	var err error
	e.conn, err = amqp.Dial(ctx, e.url, nil)
	if err != nil {
		return fmt.Errorf("jms dial: %w", err)
	}

	e.sendSess, err = e.conn.NewSession(ctx, nil)
	if err != nil {
		return fmt.Errorf("jms send session: %w", err)
	}
	for _, queue := range []string{e.targets.Telemetry, e.targets.Replies} {
		if queue == "" {
			continue
		}
		if _, err := e.sender(ctx, queue); err != nil {
			return err
		}
	}

	e.logger.Info("jms endpoint connected", "name", e.name, "queue_in", e.queueIn, "queue_out", e.targets.Telemetry)
	return nil
}

func (e *Endpoint) sender(ctx context.Context, queue string) (*amqp.Sender, error) {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()
	if s, ok := e.senders[queue]; ok {
		return s, nil
	}
	s, err := e.sendSess.NewSender(ctx, queue, nil)
	if err != nil {
		return nil, fmt.Errorf("jms sender %s: %w", queue, err)
	}
	e.senders[queue] = s
	return s, nil
}

func (e *Endpoint) Disconnect(ctx context.Context) error {
	e.consumers.Range(func(key, val any) bool {
		c := val.(consumer)
		_ = c.receiver.Close(ctx)
		_ = c.session.Close(ctx)
		e.consumers.Delete(key)
		return true
	})
	e.sendMu.Lock()
	for queue, s := range e.senders {
		_ = s.Close(ctx)
		delete(e.senders, queue)
	}
	e.sendMu.Unlock()
	if e.sendSess != nil {
		_ = e.sendSess.Close(ctx)
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

	recvSess, err := e.conn.NewSession(ctx, nil)
	if err != nil {
		return fmt.Errorf("jms consumer session: %w", err)
	}

	receiver, err := recvSess.NewReceiver(ctx, e.queueIn, &amqp.ReceiverOptions{
		Credit: 1,
	})
	if err != nil {
		_ = recvSess.Close(ctx)
		return fmt.Errorf("jms receiver: %w", err)
	}

	e.consumers.Store(session.ID, consumer{receiver: receiver, session: recvSess})
	defer func() {
		if _, ok := e.consumers.LoadAndDelete(session.ID); ok {
			_ = receiver.Close(context.Background())
			_ = recvSess.Close(context.Background())
		}
	}()

	for {
		msg, err := receiver.Receive(ctx, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("jms receive: %w", err)
		}

		amqpMsg := msg
		brokerMsg := core.BrokerMessage{
			Event: e.commandEvent(session.ClientID, msg),
			Ack:   func() error { return receiver.AcceptMessage(ctx, amqpMsg) },
			Nack:  func() error { return receiver.ReleaseMessage(ctx, amqpMsg) },
		}

		select {
		case ch <- brokerMsg:
		case <-ctx.Done():
			return nil
		}
	}
}

func (e *Endpoint) StopConsumer(sessionID string) error {
	val, ok := e.consumers.LoadAndDelete(sessionID)
	if !ok {
		return nil
	}
	c := val.(consumer)
	_ = c.receiver.Close(context.Background())
	return c.session.Close(context.Background())
}

func (e *Endpoint) Send(ctx context.Context, evt core.Event) error {
	queue := e.targets.For(evt)
	if queue == "" || e.sendSess == nil {
		return nil
	}
	s, err := e.sender(ctx, queue)
	if err != nil {
		return err
	}

	return s.Send(ctx, e.message(evt), nil)
}

func (e *Endpoint) commandEvent(clientID string, msg *amqp.Message) core.Event {
	headers := map[string]string{"jms_queue": e.queueIn}
	for k, v := range msg.ApplicationProperties {
		if s, ok := v.(string); ok {
			headers[k] = s
		}
	}
	if msg.Properties != nil && msg.Properties.CorrelationID != nil {
		headers[core.MetaRequestID] = fmt.Sprint(msg.Properties.CorrelationID)
	}
	return broker.CommandEvent(e.name, clientID, msg.GetData(), headers)
}

// message carries event headers as application properties, the way JMS
// clients read them.
func (e *Endpoint) message(evt core.Event) *amqp.Message {
	props := make(map[string]any)
	for k, v := range broker.Headers(evt) {
		props[k] = v
	}
	msg := &amqp.Message{
		Data:                  [][]byte{evt.Payload},
		ApplicationProperties: props,
		Properties: &amqp.MessageProperties{
			MessageID: evt.ID,
		},
	}
	if id := evt.Metadata[core.MetaRequestID]; id != "" {
		msg.Properties.CorrelationID = id
	}
	return msg
}
