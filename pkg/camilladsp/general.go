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

// General holds the basic commands: processing state, stop and reload,
// device listing and the state file.
type General struct {
	commandGroup
}

// State returns the current processing state. An unrecognized state name
// yields StateUnknown.
func (g *General) State(ctx context.Context) (ProcessingState, error) {
	var name string
	if err := g.value(ctx, cmdGetState, nil, &name); err != nil {
		return StateUnknown, err
	}
	return ParseProcessingState(name), nil
}

// StopReason returns the reason processing last stopped.
func (g *General) StopReason(ctx context.Context) (StopReason, error) {
	var reason StopReason
	if err := g.value(ctx, cmdGetStopReason, nil, &reason); err != nil {
		return StopReason{}, err
	}
	return reason, nil
}

// Stop stops processing and waits for a new config.
func (g *General) Stop(ctx context.Context) error {
	return g.query(ctx, cmdStop, nil, nil)
}

// Exit asks CamillaDSP to stop processing and exit.
func (g *General) Exit(ctx context.Context) error {
	return g.query(ctx, cmdExit, nil, nil)
}

// Reload reloads the current config file.
func (g *General) Reload(ctx context.Context) error {
	return g.query(ctx, cmdReload, nil, nil)
}

// SupportedDeviceTypes lists the playback and capture backends the running
// CamillaDSP was built with.
func (g *General) SupportedDeviceTypes(ctx context.Context) (playback, capture []string, err error) {
	var pair [2][]string
	if err := g.value(ctx, cmdGetSupportedDeviceTypes, nil, &pair); err != nil {
		return nil, nil, err
	}
	return pair[0], pair[1], nil
}

// StateFilePath returns the path of the state file, or "" when none is used.
func (g *General) StateFilePath(ctx context.Context) (string, error) {
	var path string
	err := g.query(ctx, cmdGetStateFilePath, nil, &path)
	return path, err
}

// StateFileUpdated reports whether all changes have been written to the
// state file.
func (g *General) StateFileUpdated(ctx context.Context) (bool, error) {
	var updated bool
	err := g.value(ctx, cmdGetStateFileUpdated, nil, &updated)
	return updated, err
}

// ListPlaybackDevices lists the playback devices of the given backend, for
// example "Alsa" or "CoreAudio".
func (g *General) ListPlaybackDevices(ctx context.Context, backend string) ([]Device, error) {
	return g.devices(ctx, cmdGetAvailablePlaybackDevices, backend)
}

// ListCaptureDevices lists the capture devices of the given backend.
func (g *General) ListCaptureDevices(ctx context.Context, backend string) ([]Device, error) {
	return g.devices(ctx, cmdGetAvailableCaptureDevices, backend)
}

func (g *General) devices(ctx context.Context, command, backend string) ([]Device, error) {
	var devs []Device
	if err := g.value(ctx, command, backend, &devs); err != nil {
		return nil, err
	}
	return devs, nil
}
