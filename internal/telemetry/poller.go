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

// Package telemetry polls a CamillaDSP instance and fans the readings out to
// the bridge's clients.
package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/HEnquist/pycamilladsp/pkg/camilladsp"
	"github.com/HEnquist/pycamilladsp/pkg/core"
)

// SourceID is set on every telemetry event.
const SourceID = "camilladsp"

// Snapshot is one poll of the instance. When Connected is false only
// Instance, Timestamp, Error and Version are meaningful.
type Snapshot struct {
	Instance       string                     `json:"instance"`
	Timestamp      time.Time                  `json:"timestamp"`
	Connected      bool                       `json:"connected"`
	State          camilladsp.ProcessingState `json:"state"`
	CaptureRate    int                        `json:"capture_rate"`
	CaptureRateRaw int                        `json:"capture_rate_raw"`
	RateAdjust     float64                    `json:"rate_adjust"`
	BufferLevel    int                        `json:"buffer_level"`
	ClippedSamples int                        `json:"clipped_samples"`
	ProcessingLoad float64                    `json:"processing_load"`
	Levels         *camilladsp.SignalLevels   `json:"levels,omitempty"`
	Faders         []camilladsp.FaderState    `json:"faders,omitempty"`
	Version        string                     `json:"version,omitempty"`
	Error          string                     `json:"error,omitempty"`
}

// Sink receives telemetry events.
type Sink interface {
	Broadcast(evt core.Event) int
}

type Options struct {
	Instance       string
	Interval       time.Duration
	ReconnectDelay time.Duration
	// Timeout bounds one complete poll.
	Timeout time.Duration
}

type Poller struct {
	client *camilladsp.Client
	sink   Sink
	opts   Options
	logger *slog.Logger

	lastAttempt time.Time
	lastState   camilladsp.ProcessingState
	down        bool

	mu     sync.RWMutex
	latest []byte
}

func NewPoller(client *camilladsp.Client, sink Sink, opts Options, logger *slog.Logger) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = opts.Interval
	}
	return &Poller{
		client: client,
		sink:   sink,
		opts:   opts,
		logger: logger,
	}
}

// Run polls on every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	p.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick takes one snapshot, stores it and broadcasts it.
func (p *Poller) Tick(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	snap := p.Poll(pollCtx)
	cancel()

	payload, err := json.Marshal(snap)
	if err != nil {
		p.logger.Error("failed to encode snapshot", "error", err)
		return
	}

	p.mu.Lock()
	p.latest = payload
	p.mu.Unlock()

	evt := core.NewEvent(core.EventTypeTelemetry, SourceID, "", payload)
	evt.Metadata[core.MetaInstance] = p.opts.Instance
	delivered := p.sink.Broadcast(evt)
	p.logger.Debug("telemetry broadcast", "connected", snap.Connected, "state", snap.State.String(), "delivered", delivered)
}

// Latest returns the JSON of the most recent snapshot.
func (p *Poller) Latest() ([]byte, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.latest != nil
}

// Poll reads the current state of the instance, connecting first if needed.
// A transport failure drops the connection, and the reconnect waits for
// ReconnectDelay to pass.
func (p *Poller) Poll(ctx context.Context) Snapshot {
	snap := Snapshot{
		Instance:  p.opts.Instance,
		Timestamp: time.Now().UTC(),
	}

	if !p.client.IsConnected() {
		if !p.lastAttempt.IsZero() && time.Since(p.lastAttempt) < p.opts.ReconnectDelay {
			snap.Error = camilladsp.ErrNotConnected.Error()
			return snap
		}
		p.lastAttempt = time.Now()
		if err := p.client.Connect(ctx); err != nil {
			if !p.down {
				p.logger.Warn("camilladsp unreachable", "addr", p.client.Addr(), "error", err)
				p.down = true
			}
			snap.Error = err.Error()
			return snap
		}
		v, _ := p.client.Versions.CamillaDSP()
		p.logger.Info("connected to camilladsp", "addr", p.client.Addr(), "version", v.String())
	}
	p.down = false
	snap.Connected = true
	if v, ok := p.client.Versions.CamillaDSP(); ok {
		snap.Version = v.String()
	}

	// Command errors are reported in the snapshot, anything else means the
	// connection can no longer be trusted.
	var lost error
	check := func(err error) bool {
		if err == nil {
			return true
		}
		if camilladsp.IsCamillaError(err) {
			if snap.Error == "" {
				snap.Error = err.Error()
			}
			return false
		}
		lost = err
		return false
	}

	state, err := p.client.General.State(ctx)
	if check(err) {
		snap.State = state
		if state != p.lastState {
			p.logger.Info("processing state changed", "from", p.lastState.String(), "to", state.String())
			p.lastState = state
		}
	}
	if lost == nil {
		if raw, err := p.client.Rate.CaptureRaw(ctx); check(err) {
			snap.CaptureRateRaw = raw
			snap.CaptureRate, _ = camilladsp.MatchStandardRate(raw)
		}
	}
	if lost == nil {
		if v, err := p.client.Status.RateAdjust(ctx); check(err) {
			snap.RateAdjust = v
		}
	}
	if lost == nil {
		if v, err := p.client.Status.BufferLevel(ctx); check(err) {
			snap.BufferLevel = v
		}
	}
	if lost == nil {
		if v, err := p.client.Status.ClippedSamples(ctx); check(err) {
			snap.ClippedSamples = v
		}
	}
	if lost == nil {
		if v, err := p.client.Status.ProcessingLoad(ctx); check(err) {
			snap.ProcessingLoad = v
		}
	}
	if lost == nil {
		if v, err := p.client.Levels.Levels(ctx); check(err) {
			snap.Levels = &v
		}
	}
	if lost == nil {
		if v, err := p.client.Volume.All(ctx); check(err) {
			snap.Faders = v
		}
	}

	if lost != nil {
		p.logger.Warn("telemetry poll failed, dropping connection", "error", lost)
		_ = p.client.Disconnect()
		p.lastAttempt = time.Now()
		p.lastState = camilladsp.StateUnknown
		return Snapshot{
			Instance:  snap.Instance,
			Timestamp: snap.Timestamp,
			Version:   snap.Version,
			Error:     lost.Error(),
		}
	}
	return snap
}
