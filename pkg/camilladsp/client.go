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

package camilladsp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const defaultDialTimeout = 5 * time.Second

// Client is the entry point for talking to one CamillaDSP instance. The
// command groups are ready to use once Connect has succeeded.
type Client struct {
	host      string
	port      int
	transport Transport
	logger    *slog.Logger

	mu      sync.RWMutex
	version *Version

	General  *General
	Status   *Status
	Config   *Config
	Volume   *Volume
	Mute     *Mute
	Levels   *Levels
	Rate     *RateMonitor
	Settings *Settings
	Versions *Versions
}

type clientOptions struct {
	logger      *slog.Logger
	transport   Transport
	dialTimeout time.Duration
}

// Option customizes a Client.
type Option func(*clientOptions)

// WithLogger sets the logger used for debug output. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = logger }
}

// WithTransport replaces the websocket transport.
func WithTransport(t Transport) Option {
	return func(o *clientOptions) { o.transport = t }
}

// WithDialTimeout bounds the websocket handshake.
func WithDialTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.dialTimeout = d }
}

// NewClient creates a client for the CamillaDSP websocket server at
// host:port. No connection is made until Connect is called.
func NewClient(host string, port int, opts ...Option) *Client {
	o := clientOptions{dialTimeout: defaultDialTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	logger := o.logger.With("component", "camilladsp", "host", host, "port", port)
	if o.transport == nil {
		o.transport = newWSTransport(host, port, o.dialTimeout, logger)
	}

	c := &Client{
		host:      host,
		port:      port,
		transport: o.transport,
		logger:    logger,
	}
	group := commandGroup{client: c}
	c.General = &General{group}
	c.Status = &Status{group}
	c.Config = &Config{group}
	c.Volume = &Volume{group}
	c.Mute = &Mute{group}
	c.Levels = &Levels{group}
	c.Rate = &RateMonitor{group}
	c.Settings = &Settings{group}
	c.Versions = &Versions{group}
	return c
}

// Addr returns the host:port the client was created for.
func (c *Client) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// Connect opens the websocket and reads the CamillaDSP version. On any
// failure the client is left disconnected and may be connected again.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.transport.Connect(ctx); err != nil {
		return err
	}

	var raw string
	if err := c.queryValue(ctx, cmdGetVersion, nil, &raw); err != nil {
		_ = c.transport.Close()
		return fmt.Errorf("read version: %w", err)
	}
	v := ParseVersion(raw)

	c.mu.Lock()
	c.version = &v
	c.mu.Unlock()

	c.logger.Debug("connected to camilladsp", "version", v.String())
	return nil
}

// Disconnect closes the connection. It is safe to call more than once.
func (c *Client) Disconnect() error {
	return c.transport.Close()
}

// IsConnected reports whether the connection is currently open.
func (c *Client) IsConnected() bool {
	return c.transport.Connected()
}

// Query sends a single command and decodes the reply value into out. Pass a
// nil arg for commands without parameters and a nil out when the reply value
// is not needed. If the command succeeds without a value, out is untouched.
func (c *Client) Query(ctx context.Context, command string, arg any, out any) error {
	value, err := c.exchange(ctx, command, arg)
	if err != nil {
		return err
	}
	if out == nil || value == nil {
		return nil
	}
	return decodeValue(command, value, out)
}

// queryValue is Query for getters: a reply without a value is invalid.
func (c *Client) queryValue(ctx context.Context, command string, arg any, out any) error {
	value, err := c.exchange(ctx, command, arg)
	if err != nil {
		return err
	}
	if value == nil {
		return fmt.Errorf("%w: %s returned no value", ErrInvalidResponse, command)
	}
	return decodeValue(command, value, out)
}

func (c *Client) exchange(ctx context.Context, command string, arg any) (json.RawMessage, error) {
	msg, err := EncodeCommand(command, arg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", command, err)
	}

	raw, err := c.transport.RoundTrip(ctx, msg)
	if err != nil {
		c.logger.Debug("query failed", "command", command, "error", err)
		return nil, err
	}
	return DecodeReply(command, raw)
}

func decodeValue(command string, value json.RawMessage, out any) error {
	if err := json.Unmarshal(value, out); err != nil {
		return fmt.Errorf("%w: decode %s value: %v", ErrInvalidResponse, command, err)
	}
	return nil
}

func (c *Client) cachedVersion() (Version, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.version == nil {
		return Version{}, false
	}
	return *c.version, true
}

type commandGroup struct {
	client *Client
}

func (g commandGroup) query(ctx context.Context, command string, arg any, out any) error {
	return g.client.Query(ctx, command, arg, out)
}

// value runs a getter whose reply must carry a value.
func (g commandGroup) value(ctx context.Context, command string, arg any, out any) error {
	return g.client.queryValue(ctx, command, arg, out)
}
