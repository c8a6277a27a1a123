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

package httppost

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/HEnquist/pycamilladsp/internal/logging"
	"github.com/HEnquist/pycamilladsp/pkg/core"
)

const defaultReplyTimeout = 10 * time.Second

// Entrypoint takes one CamillaDSP command per POST request and answers with
// the command's reply.
type Entrypoint struct {
	name         string
	port         int
	manager      core.SessionManager
	server       *http.Server
	logger       *slog.Logger
	packetLog    *logging.PacketLogger
	maxBody      int64
	replyTimeout time.Duration
}

func New(name string, port int, logger *slog.Logger, packetLog *logging.PacketLogger) *Entrypoint {
	return &Entrypoint{
		name:         name,
		port:         port,
		logger:       logger,
		packetLog:    packetLog,
		maxBody:      1 << 20,
		replyTimeout: defaultReplyTimeout,
	}
}

func (e *Entrypoint) Name() string { return e.name }
func (e *Entrypoint) Type() string { return "http_post" }

func (e *Entrypoint) Handler(manager core.SessionManager) http.Handler {
	e.manager = manager
	mux := http.NewServeMux()
	mux.HandleFunc("/", e.handlePost)
	return mux
}

func (e *Entrypoint) Start(ctx context.Context, manager core.SessionManager) error {
	e.server = &http.Server{Addr: fmt.Sprintf(":%d", e.port), Handler: e.Handler(manager)}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.server.Shutdown(shutdownCtx)
	}()

	e.logger.Info("http_post entrypoint starting", "name", e.name, "port", e.port)
	if err := e.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (e *Entrypoint) Stop(ctx context.Context) error {
	if e.server != nil {
		return e.server.Shutdown(ctx)
	}
	return nil
}

func (e *Entrypoint) handlePost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, e.maxBody))
	if err != nil || len(body) == 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	clientID := core.GenerateClientID(r)

	sess, err := e.manager.CreateSession(r.Context(), e.name, clientID)
	if err != nil {
		e.logger.Error("http_post session failed", "error", err)
		http.Error(w, "session creation failed", http.StatusServiceUnavailable)
		return
	}
	defer func() { _ = e.manager.DestroySession(sess.ID) }()

	evt := core.NewEvent(core.EventTypeCommand, e.name, clientID, body)

	ctx, cancel := context.WithTimeout(r.Context(), e.replyTimeout)
	defer cancel()

	select {
	case sess.Upstream <- evt:
	case <-ctx.Done():
		http.Error(w, "timeout", http.StatusGatewayTimeout)
		return
	}

	for {
		select {
		case reply := <-sess.Downstream:
			// The session may also be fed telemetry, only the reply counts.
			if reply.Type != core.EventTypeReply || reply.Metadata[core.MetaRequestID] != evt.ID {
				continue
			}
			if e.packetLog != nil && sess.Route != nil {
				e.packetLog.Log(reply, sess.Route, "downstream")
			}
			status := http.StatusOK
			if reply.Metadata[core.MetaStatus] == core.StatusDenied {
				status = http.StatusForbidden
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write(reply.Payload)
			return
		case <-ctx.Done():
			http.Error(w, "timeout waiting for reply", http.StatusGatewayTimeout)
			return
		}
	}
}
