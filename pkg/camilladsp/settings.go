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
	"time"
)

// Settings holds the websocket server settings.
type Settings struct {
	commandGroup
}

// UpdateInterval returns the interval at which CamillaDSP refreshes its
// levels and capture rate measurements.
func (s *Settings) UpdateInterval(ctx context.Context) (time.Duration, error) {
	var ms number
	if err := s.value(ctx, cmdGetUpdateInterval, nil, &ms); err != nil {
		return 0, err
	}
	return time.Duration(float64(ms) * float64(time.Millisecond)), nil
}

// SetUpdateInterval changes the update interval. It is sent with
// millisecond resolution.
func (s *Settings) SetUpdateInterval(ctx context.Context, d time.Duration) error {
	return s.query(ctx, cmdSetUpdateInterval, d.Milliseconds(), nil)
}
