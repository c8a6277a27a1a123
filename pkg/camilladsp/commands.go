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

// Wire names of the CamillaDSP websocket commands.
const (
	cmdGetVersion                  = "GetVersion"
	cmdGetState                    = "GetState"
	cmdGetStopReason               = "GetStopReason"
	cmdStop                        = "Stop"
	cmdExit                        = "Exit"
	cmdReload                      = "Reload"
	cmdGetSupportedDeviceTypes     = "GetSupportedDeviceTypes"
	cmdGetStateFilePath            = "GetStateFilePath"
	cmdGetStateFileUpdated         = "GetStateFileUpdated"
	cmdGetAvailablePlaybackDevices = "GetAvailablePlaybackDevices"
	cmdGetAvailableCaptureDevices  = "GetAvailableCaptureDevices"

	cmdGetRateAdjust     = "GetRateAdjust"
	cmdGetBufferLevel    = "GetBufferLevel"
	cmdGetClippedSamples = "GetClippedSamples"
	cmdGetProcessingLoad = "GetProcessingLoad"
	cmdGetCaptureRate    = "GetCaptureRate"
	cmdGetUpdateInterval = "GetUpdateInterval"
	cmdSetUpdateInterval = "SetUpdateInterval"

	cmdGetConfigFilePath    = "GetConfigFilePath"
	cmdSetConfigFilePath    = "SetConfigFilePath"
	cmdGetConfig            = "GetConfig"
	cmdSetConfig            = "SetConfig"
	cmdGetConfigJSON        = "GetConfigJson"
	cmdSetConfigJSON        = "SetConfigJson"
	cmdGetPreviousConfig    = "GetPreviousConfig"
	cmdReadConfig           = "ReadConfig"
	cmdReadConfigFile       = "ReadConfigFile"
	cmdValidateConfig       = "ValidateConfig"
	cmdGetConfigTitle       = "GetConfigTitle"
	cmdGetConfigDescription = "GetConfigDescription"

	cmdGetFaders              = "GetFaders"
	cmdGetVolume              = "GetVolume"
	cmdSetVolume              = "SetVolume"
	cmdGetFaderVolume         = "GetFaderVolume"
	cmdSetFaderVolume         = "SetFaderVolume"
	cmdSetFaderExternalVolume = "SetFaderExternalVolume"
	cmdAdjustFaderVolume      = "AdjustFaderVolume"
	cmdGetMute                = "GetMute"
	cmdSetMute                = "SetMute"
	cmdGetFaderMute           = "GetFaderMute"
	cmdSetFaderMute           = "SetFaderMute"
	cmdToggleFaderMute        = "ToggleFaderMute"

	cmdGetSignalRange                 = "GetSignalRange"
	cmdGetCaptureSignalRms            = "GetCaptureSignalRms"
	cmdGetPlaybackSignalRms           = "GetPlaybackSignalRms"
	cmdGetCaptureSignalPeak           = "GetCaptureSignalPeak"
	cmdGetPlaybackSignalPeak          = "GetPlaybackSignalPeak"
	cmdGetPlaybackSignalPeakSince     = "GetPlaybackSignalPeakSince"
	cmdGetPlaybackSignalRmsSince      = "GetPlaybackSignalRmsSince"
	cmdGetCaptureSignalPeakSince      = "GetCaptureSignalPeakSince"
	cmdGetCaptureSignalRmsSince       = "GetCaptureSignalRmsSince"
	cmdGetPlaybackSignalPeakSinceLast = "GetPlaybackSignalPeakSinceLast"
	cmdGetPlaybackSignalRmsSinceLast  = "GetPlaybackSignalRmsSinceLast"
	cmdGetCaptureSignalPeakSinceLast  = "GetCaptureSignalPeakSinceLast"
	cmdGetCaptureSignalRmsSinceLast   = "GetCaptureSignalRmsSinceLast"
	cmdGetSignalLevels                = "GetSignalLevels"
	cmdGetSignalLevelsSince           = "GetSignalLevelsSince"
	cmdGetSignalLevelsSinceLast       = "GetSignalLevelsSinceLast"
	cmdGetSignalPeaksSinceStart       = "GetSignalPeaksSinceStart"
	cmdResetSignalPeaksSinceStart     = "ResetSignalPeaksSinceStart"
)
