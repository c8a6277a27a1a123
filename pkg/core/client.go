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

package core

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ClientIDHeader lets a client choose its own identity.
const ClientIDHeader = "X-Camilla-Client-ID"

// GenerateClientID derives a stable client identity from the request, so a
// reconnecting client keeps the same ID.
func GenerateClientID(r *http.Request) string {
	if clientID := r.Header.Get(ClientIDHeader); clientID != "" {
		return clientID
	}

	remoteAddr := r.RemoteAddr
	if remoteAddr == "" {
		return uuid.New().String()
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	if strings.Contains(host, ":") {
		if ip := net.ParseIP(host); ip != nil {
			host = ip.String()
		}
	}

	hash := sha256.Sum256([]byte(host))
	return hex.EncodeToString(hash[:])[:12]
}

// NewEvent builds an event stamped with a fresh ID and the current time.
func NewEvent(typ EventType, sourceID, clientID string, payload []byte) Event {
	return Event{
		ID:        uuid.New().String(),
		SourceID:  sourceID,
		ClientID:  clientID,
		Payload:   payload,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UTC(),
		Type:      typ,
	}
}
