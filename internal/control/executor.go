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

// Package control relays raw CamillaDSP commands received by the bridge to
// the controlled instance and builds the wire replies.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/HEnquist/pycamilladsp/pkg/camilladsp"
)

// InvalidCommand is the reply key used when a payload is not a command.
const InvalidCommand = "Invalid"

var (
	ErrCommandDenied = errors.New("command not allowed by bridge")
	ErrRateLimited   = errors.New("command rate exceeded")
)

// Querier is satisfied by *camilladsp.Client.
type Querier interface {
	Query(ctx context.Context, command string, arg any, out any) error
}

type Options struct {
	Deny    []string
	Timeout time.Duration
	// Rate limits commands per second across all clients. Zero disables
	// limiting.
	Rate  float64
	Burst int
}

// Reply is the outcome of one relayed command. Payload is always a valid
// CamillaDSP reply, Err is set when the command did not succeed.
type Reply struct {
	Command string
	Payload []byte
	Err     error
}

type Executor struct {
	dsp     Querier
	deny    map[string]bool
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewExecutor(dsp Querier, opts Options, logger *slog.Logger) *Executor {
	e := &Executor{
		dsp:     dsp,
		deny:    make(map[string]bool, len(opts.Deny)),
		timeout: opts.Timeout,
		logger:  logger,
	}
	for _, name := range opts.Deny {
		e.deny[name] = true
	}
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}
	return e
}

// Execute runs the command in payload and returns the reply to send back.
func (e *Executor) Execute(ctx context.Context, payload []byte) Reply {
	name, arg, err := camilladsp.ParseCommand(payload)
	if err != nil {
		return e.reply(InvalidCommand, nil, err)
	}
	if e.deny[name] {
		return e.reply(name, nil, fmt.Errorf("%w: %s", ErrCommandDenied, name))
	}
	if e.limiter != nil && !e.limiter.Allow() {
		return e.reply(name, nil, ErrRateLimited)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var cmdArg any
	if len(arg) > 0 {
		cmdArg = arg
	}
	var value json.RawMessage
	if err := e.dsp.Query(ctx, name, cmdArg, &value); err != nil {
		if !camilladsp.IsCamillaError(err) {
			e.logger.Warn("command relay failed", "command", name, "error", err)
		}
		return e.reply(name, nil, err)
	}

	var out any
	if len(value) > 0 {
		out = value
	}
	return e.reply(name, out, nil)
}

func (e *Executor) reply(name string, value any, cmdErr error) Reply {
	payload, err := camilladsp.EncodeReply(name, value, cmdErr)
	if err != nil {
		payload, _ = camilladsp.EncodeReply(name, nil, err)
		cmdErr = err
	}
	return Reply{Command: name, Payload: payload, Err: cmdErr}
}
