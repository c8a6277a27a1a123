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

// Status reads the processing statistics.
type Status struct {
	commandGroup
}

// RateAdjust returns the current value of the rate adjust factor.
func (s *Status) RateAdjust(ctx context.Context) (float64, error) {
	return s.number(ctx, cmdGetRateAdjust)
}

// BufferLevel returns the number of frames in the playback buffer.
func (s *Status) BufferLevel(ctx context.Context) (int, error) {
	n, err := s.number(ctx, cmdGetBufferLevel)
	return int(n), err
}

// ClippedSamples returns the number of clipped samples since the config was
// loaded.
func (s *Status) ClippedSamples(ctx context.Context) (int, error) {
	n, err := s.number(ctx, cmdGetClippedSamples)
	return int(n), err
}

// ProcessingLoad returns the load of the processing thread in percent.
func (s *Status) ProcessingLoad(ctx context.Context) (float64, error) {
	return s.number(ctx, cmdGetProcessingLoad)
}

func (s *Status) number(ctx context.Context, command string) (float64, error) {
	var n number
	if err := s.value(ctx, command, nil, &n); err != nil {
		return 0, err
	}
	return float64(n), nil
}
