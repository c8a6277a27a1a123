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
	"errors"
	"fmt"
)

var (
	ErrConnectionRefused = errors.New("camilladsp: connection refused")
	ErrIO                = errors.New("camilladsp: i/o error")

	ErrNotConnected    = fmt.Errorf("%w: not connected to CamillaDSP", ErrIO)
	ErrConnectionLost  = fmt.Errorf("%w: lost connection to CamillaDSP", ErrIO)
	ErrInvalidResponse = fmt.Errorf("%w: invalid response received", ErrIO)

	ErrMalformedCommand = errors.New("camilladsp: malformed command")
)

// CamillaError is returned when CamillaDSP answers a command with an error
// result. Message carries the text reported by CamillaDSP.
type CamillaError struct {
	Command string
	Message string
}

func (e *CamillaError) Error() string {
	if e.Command == "" {
		return "camilladsp: " + e.Message
	}
	return fmt.Sprintf("camilladsp: %s: %s", e.Command, e.Message)
}

// IsCamillaError reports whether err is, or wraps, a *CamillaError.
func IsCamillaError(err error) bool {
	var ce *CamillaError
	return errors.As(err, &ce)
}
