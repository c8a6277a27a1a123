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
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Transport carries raw protocol messages to and from CamillaDSP. RoundTrip
// must not return until the reply to msg has been read, so that every
// command gets exactly one reply before the next one is sent.
type Transport interface {
	Connect(ctx context.Context) error
	Close() error
	Connected() bool
	RoundTrip(ctx context.Context, msg []byte) ([]byte, error)
}

type wsTransport struct {
	url       string
	dialer    *websocket.Dialer
	logger    *slog.Logger
	mu        sync.Mutex
	conn      *websocket.Conn
	connected atomic.Bool
}

func newWSTransport(host string, port int, dialTimeout time.Duration, logger *slog.Logger) *wsTransport {
	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(host, strconv.Itoa(port))}
	return &wsTransport{
		url: u.String(),
		dialer: &websocket.Dialer{
			HandshakeTimeout: dialTimeout,
		},
		logger: logger,
	}
}

func (t *wsTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		t.dropLocked()
	}

	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnectionRefused, t.url, err)
	}
	t.conn = conn
	t.connected.Store(true)
	t.logger.Debug("websocket connected", "url", t.url)
	return nil
}

func (t *wsTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	deadline := time.Now().Add(time.Second)
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	t.dropLocked()
	t.logger.Debug("websocket closed", "url", t.url)
	return nil
}

func (t *wsTransport) Connected() bool {
	return t.connected.Load()
}

func (t *wsTransport) RoundTrip(ctx context.Context, msg []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn := t.conn
	deadline, _ := ctx.Deadline()
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)

	// A cancelled call leaves an unread reply on the socket, so the
	// connection is dropped rather than reused.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetWriteDeadline(time.Now())
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.dropLocked()
		return nil, fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}

	_, reply, err := conn.ReadMessage()
	if err != nil {
		t.dropLocked()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrConnectionLost, ctxErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	return reply, nil
}

func (t *wsTransport) dropLocked() {
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
	t.connected.Store(false)
}
