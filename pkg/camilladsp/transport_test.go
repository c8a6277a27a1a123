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
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransportDialsDirectly(t *testing.T) {
	t.Setenv("HTTP_PROXY", "http://proxy.invalid:3128")
	t.Setenv("HTTPS_PROXY", "http://proxy.invalid:3128")

	tr := newWSTransport("192.168.1.20", 1234, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Nil(t, tr.dialer.Proxy)
	assert.Equal(t, time.Second, tr.dialer.HandshakeTimeout)
	assert.Equal(t, "ws://192.168.1.20:1234", tr.url)
}

func TestTransportURLBracketsIPv6(t *testing.T) {
	tr := newWSTransport("::1", 1234, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, "ws://[::1]:1234", tr.url)
}
