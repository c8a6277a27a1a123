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

package kafka

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/HEnquist/pycamilladsp/pkg/core"
	"github.com/HEnquist/pycamilladsp/pkg/plugins/broker"
)

// Endpoint publishes telemetry and replies to Kafka topics and consumes
// commands from topic_in.
type Endpoint struct {
	name      string
	brokers   []string
	topicIn   string
	targets   broker.Targets
	groupID   string
	writer    *kafka.Writer
	logger    *slog.Logger
	consumers sync.Map
}

func New(name string, brokers []string, topicIn, topicOut, topicReply, groupID string, logger *slog.Logger) *Endpoint {
	return &Endpoint{
		name:    name,
		brokers: brokers,
		topicIn: topicIn,
		targets: broker.NewTargets(topicOut, topicReply),
		groupID: groupID,
		logger:  logger,
	}
}

func (e *Endpoint) Name() string { return e.name }
func (e *Endpoint) Type() string { return "kafka" }

func (e *Endpoint) Connect(ctx context.Context) error {
	if e.targets.Telemetry != "" || e.targets.Replies != "" {
		// Topic is set per message.
		e.writer = &kafka.Writer{
			Addr:         kafka.TCP(e.brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
		}
	}
	e.logger.Info("kafka endpoint connected",
		"name", e.name,
		"brokers", strings.Join(e.brokers, ","),
		"topic_in", e.topicIn,
		"topic_out", e.targets.Telemetry,
		"topic_reply", e.targets.Replies,
	)
	return nil
}

func (e *Endpoint) Disconnect(ctx context.Context) error {
	e.consumers.Range(func(key, val any) bool {
		_ = val.(*kafka.Reader).Close()
		e.consumers.Delete(key)
		return true
	})
	if e.writer != nil {
		return e.writer.Close()
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

	groupID := e.groupID
	if groupID == "" {
		groupID = "camillabridge-" + e.name
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  e.brokers,
		Topic:    e.topicIn,
		GroupID:  groupID,
		MaxWait:  500 * time.Millisecond,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	e.consumers.Store(session.ID, reader)
	defer func() {
		if _, ok := e.consumers.LoadAndDelete(session.ID); ok {
			_ = reader.Close()
		}
	}()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			e.logger.Error("kafka fetch error", "session_id", session.ID, "error", err)
			return err
		}

		brokerMsg := core.BrokerMessage{
			Event: e.commandEvent(session.ClientID, msg),
			Ack: func() error {
				return reader.CommitMessages(ctx, msg)
			},
			// Uncommitted offsets are redelivered after a rebalance.
			Nack: func() error { return nil },
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
	return val.(*kafka.Reader).Close()
}

func (e *Endpoint) Send(ctx context.Context, evt core.Event) error {
	if e.writer == nil {
		return nil
	}
	msg, ok := e.message(evt)
	if !ok {
		return nil
	}
	return e.writer.WriteMessages(ctx, msg)
}

func (e *Endpoint) commandEvent(clientID string, msg kafka.Message) core.Event {
	headers := make(map[string]string, len(msg.Headers)+2)
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	headers["kafka_key"] = string(msg.Key)
	headers["kafka_topic"] = msg.Topic
	return broker.CommandEvent(e.name, clientID, msg.Value, headers)
}

// message builds the record for evt. Telemetry is keyed by instance and
// replies by request ID.
func (e *Endpoint) message(evt core.Event) (kafka.Message, bool) {
	topic := e.targets.For(evt)
	if topic == "" {
		return kafka.Message{}, false
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(evt.Metadata[core.MetaInstance]),
		Value: evt.Payload,
		Time:  evt.Timestamp,
	}
	if evt.Type == core.EventTypeReply {
		msg.Key = []byte(evt.Metadata[core.MetaRequestID])
	}
	for k, v := range broker.Headers(evt) {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return msg, true
}
