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
	"fmt"
)

// Volume limits applied by AdjustFader when no explicit limit is given.
const (
	DefaultMinVolume = -150.0
	DefaultMaxVolume = 50.0
)

// Volume controls the faders. Volumes are in dB.
type Volume struct {
	commandGroup
}

// All returns the volume and mute state of every fader, main first.
func (v *Volume) All(ctx context.Context) ([]FaderState, error) {
	var faders []FaderState
	if err := v.value(ctx, cmdGetFaders, nil, &faders); err != nil {
		return nil, err
	}
	return faders, nil
}

// Main returns the main volume.
func (v *Volume) Main(ctx context.Context) (float64, error) {
	var n number
	if err := v.value(ctx, cmdGetVolume, nil, &n); err != nil {
		return 0, err
	}
	return float64(n), nil
}

// SetMain sets the main volume.
func (v *Volume) SetMain(ctx context.Context, db float64) error {
	return v.query(ctx, cmdSetVolume, db, nil)
}

// Fader returns the volume of a fader.
func (v *Volume) Fader(ctx context.Context, fader Fader) (float64, error) {
	return v.faderValue(ctx, cmdGetFaderVolume, int(fader))
}

// SetFader sets the volume of a fader.
func (v *Volume) SetFader(ctx context.Context, fader Fader, db float64) error {
	return v.query(ctx, cmdSetFaderVolume, []any{int(fader), db}, nil)
}

// SetFaderExternal sets the volume of a fader that is controlled
// externally. The new value is applied without ramping.
func (v *Volume) SetFaderExternal(ctx context.Context, fader Fader, db float64) error {
	return v.query(ctx, cmdSetFaderExternalVolume, []any{int(fader), db}, nil)
}

type adjustOptions struct {
	min, max *float64
}

// AdjustOption limits the result of AdjustFader.
type AdjustOption func(*adjustOptions)

// WithMinLimit clamps the adjusted volume at db from below.
func WithMinLimit(db float64) AdjustOption {
	return func(o *adjustOptions) { o.min = &db }
}

// WithMaxLimit clamps the adjusted volume at db from above.
func WithMaxLimit(db float64) AdjustOption {
	return func(o *adjustOptions) { o.max = &db }
}

// AdjustFader changes the volume of a fader by delta dB and returns the new
// volume. The result is kept within -150 to +50 dB, a range that can be
// narrowed with WithMinLimit and WithMaxLimit.
func (v *Volume) AdjustFader(ctx context.Context, fader Fader, delta float64, opts ...AdjustOption) (float64, error) {
	return v.faderValue(ctx, cmdAdjustFaderVolume, adjustArg(fader, delta, opts...))
}

func adjustArg(fader Fader, delta float64, opts ...AdjustOption) []any {
	var o adjustOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.min == nil && o.max == nil {
		return []any{int(fader), delta}
	}
	lo, hi := DefaultMinVolume, DefaultMaxVolume
	if o.min != nil {
		lo = *o.min
	}
	if o.max != nil {
		hi = *o.max
	}
	return []any{int(fader), []float64{delta, lo, hi}}
}

// faderValue decodes the [fader, value] pair replied by the fader commands.
func (v *Volume) faderValue(ctx context.Context, command string, arg any) (float64, error) {
	var pair []number
	if err := v.value(ctx, command, arg, &pair); err != nil {
		return 0, err
	}
	if len(pair) != 2 {
		return 0, fmt.Errorf("%w: %s: expected [fader, volume], got %d values", ErrInvalidResponse, command, len(pair))
	}
	return float64(pair[1]), nil
}
