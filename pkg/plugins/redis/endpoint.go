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

package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HEnquist/pycamilladsp/pkg/core"
	"github.com/HEnquist/pycamilladsp/pkg/plugins/broker"
)

const DefaultSnapshotTTL = 30 * time.Second

// Endpoint keeps the latest telemetry snapshot under a key and publishes
// every snapshot on a pub/sub channel. Commands arrive on channel_in.
type Endpoint struct {
	name        string
	opts        *redis.Options
	snapshotKey string
	ttl         time.Duration
	channelIn   string
	targets     broker.Targets
	client      *redis.Client
	logger      *slog.Logger
	consumers   sync.Map
}

type Options struct {
	Addr         string
	Password     string
	DB           int
	SnapshotKey  string
	SnapshotTTL  time.Duration
	ChannelIn    string
	ChannelOut   string
	ChannelReply string
}

func New(name string, o Options, logger *slog.Logger) *Endpoint {
	if o.SnapshotTTL <= 0 {
		o.SnapshotTTL = DefaultSnapshotTTL
	}
	return &Endpoint{
		name: name,
		opts: &redis.Options{
			Addr:     o.Addr,
			Password: o.Password,
			DB:       o.DB,
		},
		snapshotKey: o.SnapshotKey,
		ttl:         o.SnapshotTTL,
		channelIn:   o.ChannelIn,
		targets:     broker.NewTargets(o.ChannelOut, o.ChannelReply),
		logger:      logger,
	}
}

func (e *Endpoint) Name() string { return e.name }
func (e *Endpoint) Type() string { return "redis" }

func (e *Endpoint) Connect(ctx context.Context) error {
	e.client = redis.NewClient(e.opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := e.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}

	e.logger.Info("redis endpoint connected",
		"name", e.name,
		"addr", e.opts.Addr,
		"snapshot_key", e.snapshotKey,
		"channel_in", e.channelIn,
		"channel_out", e.targets.Telemetry,
	)
	return nil
}

func (e *Endpoint) Disconnect(ctx context.Context) error {
	e.consumers.Range(func(key, val any) bool {
		_ = val.(*redis.PubSub).Close()
		e.consumers.Delete(key)
		return true
	})
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

func (e *Endpoint) StartConsumer(
	ctx context.Context,
	session *core.Session,
	ch chan<- core.BrokerMessage,
) error {
	if e.channelIn == "" {
		<-ctx.Done()
		return nil
	}

	pubsub := e.client.Subscribe(ctx, e.channelIn)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("redis subscribe %s: %w", e.channelIn, err)
	}

	e.consumers.Store(session.ID, pubsub)
	defer func() {
		if _, ok := e.consumers.LoadAndDelete(session.ID); ok {
			_ = pubsub.Close()
		}
	}()

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			// Pub/sub has no redelivery, there is nothing to settle.
			brokerMsg := core.BrokerMessage{
				Event: broker.CommandEvent(e.name, session.ClientID, []byte(msg.Payload),
					map[string]string{"redis_channel": msg.Channel}),
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
	return val.(*redis.PubSub).Close()
}

func (e *Endpoint) Send(ctx context.Context, evt core.Event) error {
	if e.client == nil {
		return nil
	}

	pipe := e.client.Pipeline()
	if evt.Type == core.EventTypeTelemetry && e.snapshotKey != "" {
		pipe.Set(ctx, e.snapshotKey, evt.Payload, e.ttl)
	}
	if channel := e.targets.For(evt); channel != "" {
		pipe.Publish(ctx, channel, evt.Payload)
	}
	if pipe.Len() == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}
