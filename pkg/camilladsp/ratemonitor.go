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

import "context"

// RateMonitor reads the measured capture sample rate.
type RateMonitor struct {
	commandGroup
}

// CaptureRaw returns the measured capture rate in Hz.
func (r *RateMonitor) CaptureRaw(ctx context.Context) (int, error) {
	var n number
	if err := r.value(ctx, cmdGetCaptureRate, nil, &n); err != nil {
		return 0, err
	}
	return int(n), nil
}

// Capture returns the standard rate nearest to the measured capture rate.
// ok is false when the measurement is not within 4% of any standard rate.
func (r *RateMonitor) Capture(ctx context.Context) (rate int, ok bool, err error) {
	raw, err := r.CaptureRaw(ctx)
	if err != nil {
		return 0, false, err
	}
	rate, ok = MatchStandardRate(raw)
	return rate, ok, nil
}
