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

// StandardRates lists the common sample rates in ascending order.
var StandardRates = []int{
	8000,
	11025,
	16000,
	22050,
	32000,
	44100,
	48000,
	88200,
	96000,
	176400,
	192000,
	352800,
	384000,
	705600,
	768000,
}

const rateTolerance = 0.04

// NearestStandardRate returns the standard rate closest to raw. Ties go to
// the lower rate.
func NearestStandardRate(raw int) int {
	nearest := StandardRates[0]
	best := absDiff(raw, nearest)
	for _, rate := range StandardRates[1:] {
		if d := absDiff(raw, rate); d < best {
			nearest, best = rate, d
		}
	}
	return nearest
}

// MatchStandardRate returns the nearest standard rate when raw is within 4%
// of it.
func MatchStandardRate(raw int) (int, bool) {
	lowest := float64(StandardRates[0])
	highest := float64(StandardRates[len(StandardRates)-1])
	r := float64(raw)
	if r <= (1-rateTolerance)*lowest || r >= (1+rateTolerance)*highest {
		return 0, false
	}
	nearest := NearestStandardRate(raw)
	ratio := r / float64(nearest)
	if ratio <= 1-rateTolerance || ratio >= 1+rateTolerance {
		return 0, false
	}
	return nearest, true
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
