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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/HEnquist/pycamilladsp/pkg/camilladsp"
)

const (
	envHostVar = "CAMILLA_HOST"
	envPortVar = "CAMILLA_PORT"

	defaultHost    = "127.0.0.1"
	defaultPort    = 1234
	defaultTimeout = 5 * time.Second
)

type globalOptions struct {
	host    string
	port    int
	json    bool
	timeout time.Duration
}

type commandContext struct {
	opts *globalOptions
}

func newCommandContext(opts *globalOptions) *commandContext {
	return &commandContext{opts: opts}
}

func (c *commandContext) jsonOutput() bool {
	return c.opts.json
}

// withClient connects to CamillaDSP for the duration of fn.
func (c *commandContext) withClient(cmd *cobra.Command, fn func(context.Context, *camilladsp.Client) error) error {
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	client := camilladsp.NewClient(c.opts.host, c.opts.port,
		camilladsp.WithLogger(logger),
		camilladsp.WithDialTimeout(c.opts.timeout),
	)

	ctx := cmd.Context()
	connectCtx, cancel := context.WithTimeout(ctx, c.opts.timeout)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		return fmt.Errorf("connect to camilladsp at %s: %w", client.Addr(), err)
	}
	defer client.Disconnect()

	return fn(ctx, client)
}

// call runs one request against the client, bounded by the command timeout.
func (c *commandContext) call(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, c.opts.timeout)
	defer cancel()
	return fn(callCtx)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envPort() int {
	if p, err := strconv.Atoi(envOr(envPortVar, "")); err == nil && p > 0 {
		return p
	}
	return defaultPort
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
