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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNearestStandardRate(t *testing.T) {
	tests := []struct {
		raw  int
		want int
	}{
		{44100, 44100},
		{44150, 44100},
		{47000, 48000},
		{0, 8000},
		{-5, 8000},
		{1_000_000, 768000},
		{46050, 44100}, // equidistant between 44100 and 48000
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NearestStandardRate(tt.raw), "raw %d", tt.raw)
	}
}

func TestNearestStandardRateIsDeterministic(t *testing.T) {
	for raw := 0; raw < 800000; raw += 997 {
		first := NearestStandardRate(raw)
		assert.Equal(t, first, NearestStandardRate(raw))
		assert.Contains(t, StandardRates, first)
	}
}

func TestMatchStandardRate(t *testing.T) {
	tests := []struct {
		raw    int
		want   int
		wantOK bool
	}{
		{44100, 44100, true},
		{88250, 88200, true},
		{45800, 44100, true},
		{46500, 48000, true},
		{62000, 0, false},
		{7600, 0, false},
		{800000, 0, false},
		{0, 0, false},
	}
	for _, tt := range tests {
		got, ok := MatchStandardRate(tt.raw)
		assert.Equal(t, tt.wantOK, ok, "raw %d", tt.raw)
		assert.Equal(t, tt.want, got, "raw %d", tt.raw)
	}
}
