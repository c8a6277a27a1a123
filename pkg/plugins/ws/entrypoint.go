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

package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/HEnquist/pycamilladsp/internal/logging"
	"github.com/HEnquist/pycamilladsp/pkg/core"
)

const writeTimeout = 5 * time.Second

// Entrypoint serves websocket clients. Every text message a client sends is
// relayed as a CamillaDSP command, and the client receives the reply as well
// as every telemetry snapshot.
type Entrypoint struct {
	name      string
	port      int
	upgrader  websocket.Upgrader
	manager   core.SessionManager
	server    *http.Server
	logger    *slog.Logger
	packetLog *logging.PacketLogger
	sessions  sync.Map
}

func New(name string, port int, logger *slog.Logger, packetLog *logging.PacketLogger) *Entrypoint {
	return &Entrypoint{
		name: name,
		port: port,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:    logger,
		packetLog: packetLog,
	}
}

func (e *Entrypoint) Name() string { return e.name }
func (e *Entrypoint) Type() string { return "websocket" }

// Handler returns the HTTP handler serving the websocket upgrade.
func (e *Entrypoint) Handler(manager core.SessionManager) http.Handler {
	e.manager = manager
	mux := http.NewServeMux()
	mux.HandleFunc("/", e.handleConnection)
	return mux
}

func (e *Entrypoint) Start(ctx context.Context, manager core.SessionManager) error {
	e.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", e.port),
		Handler: e.Handler(manager),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.server.Shutdown(shutdownCtx)
	}()

	e.logger.Info("websocket entrypoint starting", "name", e.name, "port", e.port)
	if err := e.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (e *Entrypoint) Stop(ctx context.Context) error {
	e.sessions.Range(func(_, val any) bool {
		sess := val.(*core.Session)
		_ = e.manager.DestroySession(sess.ID)
		return true
	})
	if e.server != nil {
		return e.server.Shutdown(ctx)
	}
	return nil
}

func (e *Entrypoint) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.logger.Error("ws upgrade failed", "error", err)
		return
	}

	clientID := core.GenerateClientID(r)

	sess, err := e.manager.CreateSession(r.Context(), e.name, clientID)
	if err != nil {
		e.logger.Error("session creation failed", "client_id", clientID, "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "no route"),
			time.Now().Add(writeTimeout))
		_ = conn.Close()
		return
	}

	e.sessions.Store(sess.ID, sess)

	defer func() {
		_ = conn.Close()
		e.sessions.Delete(sess.ID)
		_ = e.manager.DestroySession(sess.ID)
		e.logger.Info("ws client disconnected", "client_id", clientID, "session_id", sess.ID)
	}()

	e.logger.Info("ws client connected", "client_id", clientID, "session_id", sess.ID)

	go e.downstreamLoop(conn, sess)
	e.upstreamLoop(conn, sess)
}

func (e *Entrypoint) downstreamLoop(conn *websocket.Conn, sess *core.Session) {
	for {
		select {
		case <-sess.Done:
			return
		case evt := <-sess.Downstream:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, evt.Payload); err != nil {
				e.logger.Error("ws write failed", "client_id", sess.ClientID, "error", err)
				_ = conn.Close()
				return
			}
			if e.packetLog != nil && sess.Route != nil {
				e.packetLog.Log(evt, sess.Route, "downstream")
			}
		}
	}
}

func (e *Entrypoint) upstreamLoop(conn *websocket.Conn, sess *core.Session) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				e.logger.Error("ws read error", "client_id", sess.ClientID, "error", err)
			}
			return
		}

		evt := core.NewEvent(core.EventTypeCommand, e.name, sess.ClientID, payload)

		select {
		case sess.Upstream <- evt:
		case <-sess.Done:
			return
		}
	}
}
