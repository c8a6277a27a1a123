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

package control

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HEnquist/pycamilladsp/pkg/camilladsp"
)

type call struct {
	command string
	arg     any
}

type fakeQuerier struct {
	calls  []call
	values map[string]string
	errs   map[string]error
}

func (f *fakeQuerier) Query(ctx context.Context, command string, arg any, out any) error {
	f.calls = append(f.calls, call{command, arg})
	if err := f.errs[command]; err != nil {
		return err
	}
	if v, ok := f.values[command]; ok {
		return json.Unmarshal([]byte(v), out)
	}
	return nil
}

func newTestExecutor(q Querier, opts Options) *Executor {
	return NewExecutor(q, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExecuteRelaysCommand(t *testing.T) {
	q := &fakeQuerier{values: map[string]string{"GetVolume": `-12.5`}}
	e := newTestExecutor(q, Options{})

	r := e.Execute(context.Background(), []byte(`"GetVolume"`))
	require.NoError(t, r.Err)
	assert.Equal(t, "GetVolume", r.Command)
	assert.JSONEq(t, `{"GetVolume":{"result":"Ok","value":-12.5}}`, string(r.Payload))
	require.Len(t, q.calls, 1)
	assert.Nil(t, q.calls[0].arg)
}

func TestExecutePassesArgument(t *testing.T) {
	q := &fakeQuerier{}
	e := newTestExecutor(q, Options{})

	r := e.Execute(context.Background(), []byte(`{"SetFaderVolume":[1,-3]}`))
	require.NoError(t, r.Err)
	assert.JSONEq(t, `{"SetFaderVolume":{"result":"Ok"}}`, string(r.Payload))

	arg, ok := q.calls[0].arg.(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, `[1,-3]`, string(arg))
}

func TestExecuteMapsErrors(t *testing.T) {
	q := &fakeQuerier{errs: map[string]error{
		"SetConfig": &camilladsp.CamillaError{Command: "SetConfig", Message: "bad yaml"},
		"GetState":  camilladsp.ErrNotConnected,
	}}
	e := newTestExecutor(q, Options{})

	r := e.Execute(context.Background(), []byte(`{"SetConfig":"x"}`))
	assert.True(t, camilladsp.IsCamillaError(r.Err))
	assert.JSONEq(t, `{"SetConfig":{"result":"Error","value":"bad yaml"}}`, string(r.Payload))

	r = e.Execute(context.Background(), []byte(`"GetState"`))
	assert.ErrorIs(t, r.Err, camilladsp.ErrNotConnected)
	assert.Contains(t, string(r.Payload), `"result":"Error"`)
}

func TestExecuteRejectsMalformedPayload(t *testing.T) {
	q := &fakeQuerier{}
	e := newTestExecutor(q, Options{})

	r := e.Execute(context.Background(), []byte(`[1,2]`))
	assert.ErrorIs(t, r.Err, camilladsp.ErrMalformedCommand)
	assert.Equal(t, InvalidCommand, r.Command)
	assert.Empty(t, q.calls)
}

func TestExecuteDenyList(t *testing.T) {
	q := &fakeQuerier{}
	e := newTestExecutor(q, Options{Deny: []string{"Exit"}})

	r := e.Execute(context.Background(), []byte(`"Exit"`))
	assert.True(t, errors.Is(r.Err, ErrCommandDenied))
	assert.Empty(t, q.calls)
}

func TestExecuteRateLimit(t *testing.T) {
	q := &fakeQuerier{}
	e := newTestExecutor(q, Options{Rate: 0.001, Burst: 2})

	for i := 0; i < 2; i++ {
		require.NoError(t, e.Execute(context.Background(), []byte(`"GetState"`)).Err)
	}
	r := e.Execute(context.Background(), []byte(`"GetState"`))
	assert.ErrorIs(t, r.Err, ErrRateLimited)
	assert.Len(t, q.calls, 2)
}

type deadlineQuerier struct{ deadline time.Time }

func (d *deadlineQuerier) Query(ctx context.Context, _ string, _ any, _ any) error {
	d.deadline, _ = ctx.Deadline()
	return nil
}

func TestExecuteAppliesTimeout(t *testing.T) {
	q := &deadlineQuerier{}
	e := newTestExecutor(q, Options{Timeout: time.Second})

	require.NoError(t, e.Execute(context.Background(), []byte(`"Reload"`)).Err)
	assert.WithinDuration(t, time.Now().Add(time.Second), q.deadline, 500*time.Millisecond)
}
