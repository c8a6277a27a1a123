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

package camilladsp_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HEnquist/pycamilladsp/internal/dsptest"
	"github.com/HEnquist/pycamilladsp/pkg/camilladsp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClient(srv *dsptest.Server) *camilladsp.Client {
	return camilladsp.NewClient(srv.Host(), srv.Port(), camilladsp.WithLogger(discardLogger()))
}

func newConnectedClient(t *testing.T) (*dsptest.Server, *camilladsp.Client) {
	t.Helper()
	srv := dsptest.NewServer(t)
	c := newClient(srv)
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Disconnect() })
	return srv, c
}

func TestConnectLifecycle(t *testing.T) {
	srv := dsptest.NewServer(t)
	c := newClient(srv)
	ctx := context.Background()

	assert.False(t, c.IsConnected())
	_, ok := c.Versions.CamillaDSP()
	assert.False(t, ok)

	require.NoError(t, c.Connect(ctx))
	assert.True(t, c.IsConnected())
	assert.Equal(t, []string{`"GetVersion"`}, srv.Received())

	v, ok := c.Versions.CamillaDSP()
	require.True(t, ok)
	assert.Equal(t, camilladsp.Version{Major: "3", Minor: "0", Patch: "1"}, v)

	require.NoError(t, c.Disconnect())
	assert.False(t, c.IsConnected())
	assert.NoError(t, c.Disconnect())

	// The cached version survives a disconnect.
	_, ok = c.Versions.CamillaDSP()
	assert.True(t, ok)
}

func TestConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	c := camilladsp.NewClient("127.0.0.1", port, camilladsp.WithLogger(discardLogger()))
	err = c.Connect(context.Background())
	assert.ErrorIs(t, err, camilladsp.ErrConnectionRefused)
	assert.False(t, c.IsConnected())
}

func TestConnectFailsWhenVersionIsRejected(t *testing.T) {
	srv := dsptest.NewServer(t)
	srv.Fail("GetVersion", "not now")
	c := newClient(srv)

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, camilladsp.IsCamillaError(err))
	assert.False(t, c.IsConnected())
}

func TestQueryWithoutConnection(t *testing.T) {
	c := camilladsp.NewClient("127.0.0.1", 1234, camilladsp.WithLogger(discardLogger()))
	_, err := c.Volume.Main(context.Background())
	assert.ErrorIs(t, err, camilladsp.ErrNotConnected)
	assert.ErrorIs(t, err, camilladsp.ErrIO)
}

func TestConnectionLostAndReconnect(t *testing.T) {
	srv, c := newConnectedClient(t)
	srv.Reply("GetVolume", -12.0)
	ctx := context.Background()

	srv.DropConnections()
	_, err := c.Volume.Main(ctx)
	assert.ErrorIs(t, err, camilladsp.ErrConnectionLost)
	assert.ErrorIs(t, err, camilladsp.ErrIO)
	assert.False(t, c.IsConnected())

	_, err = c.Volume.Main(ctx)
	assert.ErrorIs(t, err, camilladsp.ErrNotConnected)

	require.NoError(t, c.Connect(ctx))
	vol, err := c.Volume.Main(ctx)
	require.NoError(t, err)
	assert.Equal(t, -12.0, vol)
}

func TestInvalidResponse(t *testing.T) {
	srv, c := newConnectedClient(t)
	ctx := context.Background()

	srv.Raw("GetVolume", `{"GetMute":{"result":"Ok","value":true}}`)
	_, err := c.Volume.Main(ctx)
	assert.ErrorIs(t, err, camilladsp.ErrInvalidResponse)

	srv.Raw("GetVolume", `not json`)
	_, err = c.Volume.Main(ctx)
	assert.ErrorIs(t, err, camilladsp.ErrInvalidResponse)

	srv.Reply("GetVolume", "loud")
	_, err = c.Volume.Main(ctx)
	assert.ErrorIs(t, err, camilladsp.ErrInvalidResponse)

	assert.True(t, c.IsConnected())
}

func TestCancelledQueryDropsConnection(t *testing.T) {
	srv, c := newConnectedClient(t)
	block := make(chan struct{})
	defer close(block)
	srv.Handle("GetState", func(json.RawMessage) (any, error) {
		<-block
		return "Running", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := c.General.State(ctx)
	assert.ErrorIs(t, err, camilladsp.ErrConnectionLost)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, c.IsConnected())
}

func TestConcurrentQueriesAreSerialized(t *testing.T) {
	srv, c := newConnectedClient(t)
	srv.Reply("GetVolume", -3.0)
	srv.Reply("GetMute", true)

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				var err error
				if (i+j)%2 == 0 {
					_, err = c.Volume.Main(context.Background())
				} else {
					_, err = c.Mute.Main(context.Background())
				}
				if err != nil {
					errs <- err
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
	assert.Len(t, srv.Received(), 101)
}

func TestQueryRaw(t *testing.T) {
	srv, c := newConnectedClient(t)
	srv.Reply("GetClippedSamples", 7)

	var clipped int
	require.NoError(t, c.Query(context.Background(), "GetClippedSamples", nil, &clipped))
	assert.Equal(t, 7, clipped)
	assert.Equal(t, "127.0.0.1", srv.Host())
	assert.Contains(t, c.Addr(), "127.0.0.1:")
}
