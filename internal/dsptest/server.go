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

// Package dsptest runs an in-process websocket server that answers
// CamillaDSP commands, for use in tests.
package dsptest

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/HEnquist/pycamilladsp/pkg/camilladsp"
)

// DefaultVersion is what GetVersion answers unless overridden.
const DefaultVersion = "3.0.1"

// Handler answers one command. A returned error becomes an Error result.
type Handler func(arg json.RawMessage) (any, error)

// RawReply is sent to the client verbatim instead of being wrapped in a
// reply envelope.
type RawReply string

// Server is a fake CamillaDSP websocket endpoint.
type Server struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	handlers map[string]Handler
	received []string
	conns    map[*websocket.Conn]struct{}
}

// NewServer starts a server and registers its shutdown with t.Cleanup.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		handlers: make(map[string]Handler),
		conns:    make(map[*websocket.Conn]struct{}),
	}
	s.Reply("GetVersion", DefaultVersion)
	s.srv = httptest.NewServer(http.HandlerFunc(s.serveWS))
	t.Cleanup(s.Close)
	return s
}

// Handle registers h for command.
func (s *Server) Handle(command string, h Handler) {
	s.mu.Lock()
	s.handlers[command] = h
	s.mu.Unlock()
}

// Reply makes command succeed with value. A nil value gives an Ok reply
// without a value.
func (s *Server) Reply(command string, value any) {
	s.Handle(command, func(json.RawMessage) (any, error) { return value, nil })
}

// Fail makes command answer with an Error result carrying message.
func (s *Server) Fail(command, message string) {
	s.Handle(command, func(json.RawMessage) (any, error) {
		return nil, &camilladsp.CamillaError{Command: command, Message: message}
	})
}

// Raw makes command answer with the given text as is.
func (s *Server) Raw(command, reply string) {
	s.Handle(command, func(json.RawMessage) (any, error) { return RawReply(reply), nil })
}

// Received returns the raw messages read so far, oldest first.
func (s *Server) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

// Last returns the most recently received message.
func (s *Server) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.received) == 0 {
		return ""
	}
	return s.received[len(s.received)-1]
}

// Host returns the listening host.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.srv.Listener.Addr().String())
	return host
}

// Port returns the listening port.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.srv.Listener.Addr().String())
	p, _ := strconv.Atoi(port)
	return p
}

// DropConnections closes every open client connection without a close
// handshake.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
		delete(s.conns, conn)
	}
}

// Close drops all clients and stops the server.
func (s *Server) Close() {
	s.DropConnections()
	s.srv.Close()
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		reply := s.answer(msg)
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			return
		}
	}
}

func (s *Server) answer(msg []byte) []byte {
	s.mu.Lock()
	s.received = append(s.received, string(msg))
	s.mu.Unlock()

	name, arg, err := camilladsp.ParseCommand(msg)
	if err != nil {
		reply, _ := camilladsp.EncodeReply("Invalid", nil, err)
		return reply
	}

	s.mu.Lock()
	h, ok := s.handlers[name]
	s.mu.Unlock()
	if !ok {
		reply, _ := camilladsp.EncodeReply("Invalid", nil, &camilladsp.CamillaError{Message: "unknown command " + name})
		return reply
	}

	value, cmdErr := h(arg)
	if raw, ok := value.(RawReply); ok {
		return []byte(raw)
	}
	reply, err := camilladsp.EncodeReply(name, value, cmdErr)
	if err != nil {
		reply, _ = camilladsp.EncodeReply(name, nil, err)
	}
	return reply
}
