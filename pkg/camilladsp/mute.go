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
	"context"
	"encoding/json"
	"fmt"
)

// Mute controls the mute state of the faders.
type Mute struct {
	commandGroup
}

// Main reports whether the main fader is muted.
func (m *Mute) Main(ctx context.Context) (bool, error) {
	var muted bool
	err := m.value(ctx, cmdGetMute, nil, &muted)
	return muted, err
}

// SetMain mutes or unmutes the main fader.
func (m *Mute) SetMain(ctx context.Context, muted bool) error {
	return m.query(ctx, cmdSetMute, muted, nil)
}

// Fader reports whether a fader is muted.
func (m *Mute) Fader(ctx context.Context, fader Fader) (bool, error) {
	return m.faderMute(ctx, cmdGetFaderMute, int(fader))
}

// SetFader mutes or unmutes a fader.
func (m *Mute) SetFader(ctx context.Context, fader Fader, muted bool) error {
	return m.query(ctx, cmdSetFaderMute, []any{int(fader), muted}, nil)
}

// ToggleFader flips the mute state of a fader and returns the new state.
func (m *Mute) ToggleFader(ctx context.Context, fader Fader) (bool, error) {
	return m.faderMute(ctx, cmdToggleFaderMute, int(fader))
}

func (m *Mute) faderMute(ctx context.Context, command string, arg any) (bool, error) {
	var pair []json.RawMessage
	if err := m.value(ctx, command, arg, &pair); err != nil {
		return false, err
	}
	var muted bool
	if len(pair) != 2 || json.Unmarshal(pair[1], &muted) != nil {
		return false, fmt.Errorf("%w: %s: expected [fader, mute]", ErrInvalidResponse, command)
	}
	return muted, nil
}
