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

package httpget

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/HEnquist/pycamilladsp/internal/logging"
	"github.com/HEnquist/pycamilladsp/pkg/core"
)

const defaultPollTimeout = 30 * time.Second

// Entrypoint serves the latest telemetry snapshot on GET /status and a
// long-poll subscription for clients that cannot hold a stream open.
type Entrypoint struct {
	name        string
	port        int
	status      core.StatusSource
	manager     core.SessionManager
	server      *http.Server
	logger      *slog.Logger
	packetLog   *logging.PacketLogger
	sessions    sync.Map
	pollTimeout time.Duration
}

func New(name string, port int, status core.StatusSource, logger *slog.Logger, packetLog *logging.PacketLogger) *Entrypoint {
	return &Entrypoint{
		name:        name,
		port:        port,
		status:      status,
		logger:      logger,
		packetLog:   packetLog,
		pollTimeout: defaultPollTimeout,
	}
}

func (e *Entrypoint) Name() string { return e.name }
func (e *Entrypoint) Type() string { return "http_get" }

func (e *Entrypoint) Handler(manager core.SessionManager) http.Handler {
	e.manager = manager
	mux := http.NewServeMux()
	mux.HandleFunc("/status", e.handleStatus)
	mux.HandleFunc("/subscribe", e.handleSubscribe)
	mux.HandleFunc("/poll", e.handlePoll)
	mux.HandleFunc("/unsubscribe", e.handleUnsubscribe)
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

	e.logger.Info("http_get entrypoint starting", "name", e.name, "port", e.port)
	if err := e.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (e *Entrypoint) Stop(ctx context.Context) error {
	e.sessions.Range(func(key, val any) bool {
		sess := val.(*core.Session)
		e.sessions.Delete(key)
		_ = e.manager.DestroySession(sess.ID)
		return true
	})
	if e.server != nil {
		return e.server.Shutdown(ctx)
	}
	return nil
}

func (e *Entrypoint) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET required", http.StatusMethodNotAllowed)
		return
	}
	snapshot, ok := e.status.Latest()
	if !ok {
		http.Error(w, "no telemetry yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(snapshot)
}

func (e *Entrypoint) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	clientID := r.Header.Get(core.ClientIDHeader)
	if clientID == "" {
		http.Error(w, core.ClientIDHeader+" header required", http.StatusBadRequest)
		return
	}

	if _, exists := e.sessions.Load(clientID); exists {
		http.Error(w, "already subscribed", http.StatusConflict)
		return
	}

	sess, err := e.manager.CreateSession(r.Context(), e.name, clientID)
	if err != nil {
		e.logger.Error("http_get subscribe failed", "error", err)
		http.Error(w, "subscription failed", http.StatusServiceUnavailable)
		return
	}

	if _, loaded := e.sessions.LoadOrStore(clientID, sess); loaded {
		_ = e.manager.DestroySession(sess.ID)
		http.Error(w, "already subscribed", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": sess.ID, "client_id": clientID})
}

func (e *Entrypoint) handlePoll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET required", http.StatusMethodNotAllowed)
		return
	}

	clientID := r.Header.Get(core.ClientIDHeader)
	val, ok := e.sessions.Load(clientID)
	if !ok {
		http.Error(w, "not subscribed, call /subscribe first", http.StatusNotFound)
		return
	}

	sess := val.(*core.Session)

	ctx, cancel := context.WithTimeout(r.Context(), e.pollTimeout)
	defer cancel()

	select {
	case evt := <-sess.Downstream:
		if e.packetLog != nil && sess.Route != nil {
			e.packetLog.Log(evt, sess.Route, "downstream")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(evt.Payload)
	case <-sess.Done:
		http.Error(w, "session closed", http.StatusGone)
	case <-ctx.Done():
		w.WriteHeader(http.StatusNoContent)
	}
}

func (e *Entrypoint) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "DELETE required", http.StatusMethodNotAllowed)
		return
	}

	clientID := r.Header.Get(core.ClientIDHeader)
	val, ok := e.sessions.LoadAndDelete(clientID)
	if !ok {
		http.Error(w, "not subscribed", http.StatusNotFound)
		return
	}

	sess := val.(*core.Session)
	_ = e.manager.DestroySession(sess.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
