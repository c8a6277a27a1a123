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
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ProcessingState is the processing state reported by GetState.
type ProcessingState int

const (
	StateUnknown ProcessingState = iota
	// StateRunning means audio is being processed.
	StateRunning
	// StatePaused means processing is paused.
	StatePaused
	// StateInactive means CamillaDSP is waiting for a new config.
	StateInactive
	// StateStarting means the pipeline is being set up.
	StateStarting
	// StateStalled means the capture device isn't providing any data.
	StateStalled
)

var stateNames = map[ProcessingState]string{
	StateUnknown:  "Unknown",
	StateRunning:  "Running",
	StatePaused:   "Paused",
	StateInactive: "Inactive",
	StateStarting: "Starting",
	StateStalled:  "Stalled",
}

func (s ProcessingState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return stateNames[StateUnknown]
}

// MarshalText encodes the state by name.
func (s ProcessingState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseProcessingState maps a wire value to a state. Unrecognized values
// map to StateUnknown.
func ParseProcessingState(value string) ProcessingState {
	for state, name := range stateNames {
		if state != StateUnknown && name == value {
			return state
		}
	}
	return StateUnknown
}

// StopReasonKind tells why processing stopped.
type StopReasonKind int

const (
	StopNone StopReasonKind = iota
	StopDone
	StopCaptureError
	StopPlaybackError
	StopCaptureFormatChange
	StopPlaybackFormatChange
)

var stopReasonNames = map[StopReasonKind]string{
	StopNone:                 "None",
	StopDone:                 "Done",
	StopCaptureError:         "CaptureError",
	StopPlaybackError:        "PlaybackError",
	StopCaptureFormatChange:  "CaptureFormatChange",
	StopPlaybackFormatChange: "PlaybackFormatChange",
}

func (k StopReasonKind) String() string {
	if name, ok := stopReasonNames[k]; ok {
		return name
	}
	return fmt.Sprintf("StopReasonKind(%d)", int(k))
}

// StopReason is the decoded reply of GetStopReason. Message is set for the
// error kinds, Rate for the format change kinds, where 0 means the new
// sample rate is unknown.
type StopReason struct {
	Kind    StopReasonKind `json:"kind"`
	Message string         `json:"message,omitempty"`
	Rate    int            `json:"rate,omitempty"`
}

func (r StopReason) String() string {
	switch {
	case r.Message != "":
		return fmt.Sprintf("%s: %s", r.Kind, r.Message)
	case r.Kind == StopCaptureFormatChange || r.Kind == StopPlaybackFormatChange:
		return fmt.Sprintf("%s: %d", r.Kind, r.Rate)
	default:
		return r.Kind.String()
	}
}

// UnmarshalJSON accepts both the bare form ("Done") and the form carrying
// data ({"CaptureError": "msg"} or {"CaptureFormatChange": 44100}).
func (r *StopReason) UnmarshalJSON(b []byte) error {
	var name string
	var data json.RawMessage

	if b = bytes.TrimSpace(b); len(b) > 0 && b[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(b, &obj); err != nil {
			return fmt.Errorf("decode stop reason: %w", err)
		}
		if len(obj) != 1 {
			return fmt.Errorf("invalid value for StopReason: %s", b)
		}
		for k, v := range obj {
			name, data = k, v
		}
	} else if err := json.Unmarshal(b, &name); err != nil {
		return fmt.Errorf("decode stop reason: %w", err)
	}

	kind, ok := parseStopReasonKind(name)
	if !ok {
		return fmt.Errorf("invalid value for StopReason: %s", b)
	}
	*r = StopReason{Kind: kind}
	if len(data) == 0 {
		return nil
	}

	switch kind {
	case StopCaptureError, StopPlaybackError:
		r.Message = valueText(data)
	case StopCaptureFormatChange, StopPlaybackFormatChange:
		var rate number
		if err := json.Unmarshal(data, &rate); err != nil {
			return fmt.Errorf("decode stop reason rate: %w", err)
		}
		r.Rate = int(rate)
	}
	return nil
}

func parseStopReasonKind(name string) (StopReasonKind, bool) {
	for kind, n := range stopReasonNames {
		if n == name {
			return kind, true
		}
	}
	return StopNone, false
}

// Fader selects one of the volume controls. Main is 0, the auxiliary
// faders are 1 to 4.
type Fader int

const (
	FaderMain Fader = iota
	FaderAux1
	FaderAux2
	FaderAux3
	FaderAux4
)

func (f Fader) String() string {
	if f == FaderMain {
		return "Main"
	}
	return "Aux" + strconv.Itoa(int(f))
}

// FaderState is one entry of the GetFaders reply.
type FaderState struct {
	Volume float64 `json:"volume"`
	Mute   bool    `json:"mute"`
}

// Device is an audio device as listed by the device queries. For some
// backends Name and Description are identical.
type Device struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UnmarshalJSON decodes the [name, description] pair sent on the wire.
func (d *Device) UnmarshalJSON(b []byte) error {
	var pair []string
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("decode device: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("decode device: expected 2 names, got %d", len(pair))
	}
	d.Name, d.Description = pair[0], pair[1]
	return nil
}

// SignalLevels holds per-channel levels in dB, full scale being 0 dB.
type SignalLevels struct {
	PlaybackRMS  []float64 `json:"playback_rms"`
	PlaybackPeak []float64 `json:"playback_peak"`
	CaptureRMS   []float64 `json:"capture_rms"`
	CapturePeak  []float64 `json:"capture_peak"`
}

// PeakLevels holds per-channel peak levels since processing started.
type PeakLevels struct {
	Playback []float64 `json:"playback"`
	Capture  []float64 `json:"capture"`
}

// Version is a (major, minor, patch) triple. Components are kept as strings
// since CamillaDSP pre-releases may carry suffixes.
type Version struct {
	Major string `json:"major"`
	Minor string `json:"minor"`
	Patch string `json:"patch"`
}

func (v Version) String() string {
	return v.Major + "." + v.Minor + "." + v.Patch
}

// ParseVersion splits a dotted version string. Missing components are left
// empty and anything after the third component is ignored.
func ParseVersion(s string) Version {
	parts := strings.SplitN(s, ".", 4)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return Version{Major: parts[0], Minor: parts[1], Patch: parts[2]}
}

// Document is a CamillaDSP configuration in its generic parsed form.
type Document map[string]any

// number decodes a JSON number or a numeric string.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	*n = number(f)
	return nil
}
