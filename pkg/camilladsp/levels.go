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
	"math"
	"time"
)

// SilenceDecibel is reported by RangeDecibel when the signal range is zero.
const SilenceDecibel = -1000.0

// Levels reads signal levels. All levels are in dB with full scale at 0 dB
// and one value per channel.
type Levels struct {
	commandGroup
}

// Range returns the peak-to-peak range of the last processed chunk, where
// 2.0 is full scale.
func (l *Levels) Range(ctx context.Context) (float64, error) {
	var n number
	if err := l.value(ctx, cmdGetSignalRange, nil, &n); err != nil {
		return 0, err
	}
	return float64(n), nil
}

// RangeDecibel returns the signal range of the last chunk in dB.
func (l *Levels) RangeDecibel(ctx context.Context) (float64, error) {
	r, err := l.Range(ctx)
	if err != nil {
		return 0, err
	}
	return RangeToDecibel(r), nil
}

// RangeToDecibel converts a peak-to-peak range to dB relative to full scale.
func RangeToDecibel(r float64) float64 {
	if r <= 0 {
		return SilenceDecibel
	}
	return 20 * math.Log10(r/2)
}

// CaptureRMS returns the capture RMS levels of the last chunk.
func (l *Levels) CaptureRMS(ctx context.Context) ([]float64, error) {
	return l.channels(ctx, cmdGetCaptureSignalRms, nil)
}

// PlaybackRMS returns the playback RMS levels of the last chunk.
func (l *Levels) PlaybackRMS(ctx context.Context) ([]float64, error) {
	return l.channels(ctx, cmdGetPlaybackSignalRms, nil)
}

// CapturePeak returns the capture peak levels of the last chunk.
func (l *Levels) CapturePeak(ctx context.Context) ([]float64, error) {
	return l.channels(ctx, cmdGetCaptureSignalPeak, nil)
}

// PlaybackPeak returns the playback peak levels of the last chunk.
func (l *Levels) PlaybackPeak(ctx context.Context) ([]float64, error) {
	return l.channels(ctx, cmdGetPlaybackSignalPeak, nil)
}

// PlaybackPeakSince returns the playback peak levels over the last interval.
func (l *Levels) PlaybackPeakSince(ctx context.Context, interval time.Duration) ([]float64, error) {
	return l.channels(ctx, cmdGetPlaybackSignalPeakSince, interval.Seconds())
}

// PlaybackRMSSince returns the playback RMS levels over the last interval.
func (l *Levels) PlaybackRMSSince(ctx context.Context, interval time.Duration) ([]float64, error) {
	return l.channels(ctx, cmdGetPlaybackSignalRmsSince, interval.Seconds())
}

// CapturePeakSince returns the capture peak levels over the last interval.
func (l *Levels) CapturePeakSince(ctx context.Context, interval time.Duration) ([]float64, error) {
	return l.channels(ctx, cmdGetCaptureSignalPeakSince, interval.Seconds())
}

// CaptureRMSSince returns the capture RMS levels over the last interval.
func (l *Levels) CaptureRMSSince(ctx context.Context, interval time.Duration) ([]float64, error) {
	return l.channels(ctx, cmdGetCaptureSignalRmsSince, interval.Seconds())
}

// The SinceLast variants cover the time since the previous SinceLast read
// made over the same connection.

func (l *Levels) PlaybackPeakSinceLast(ctx context.Context) ([]float64, error) {
	return l.channels(ctx, cmdGetPlaybackSignalPeakSinceLast, nil)
}

func (l *Levels) PlaybackRMSSinceLast(ctx context.Context) ([]float64, error) {
	return l.channels(ctx, cmdGetPlaybackSignalRmsSinceLast, nil)
}

func (l *Levels) CapturePeakSinceLast(ctx context.Context) ([]float64, error) {
	return l.channels(ctx, cmdGetCaptureSignalPeakSinceLast, nil)
}

func (l *Levels) CaptureRMSSinceLast(ctx context.Context) ([]float64, error) {
	return l.channels(ctx, cmdGetCaptureSignalRmsSinceLast, nil)
}

// Levels returns all levels of the last chunk.
func (l *Levels) Levels(ctx context.Context) (SignalLevels, error) {
	return l.signalLevels(ctx, cmdGetSignalLevels, nil)
}

// LevelsSince returns all levels over the last interval.
func (l *Levels) LevelsSince(ctx context.Context, interval time.Duration) (SignalLevels, error) {
	return l.signalLevels(ctx, cmdGetSignalLevelsSince, interval.Seconds())
}

// LevelsSinceLast returns all levels since the previous SinceLast read.
func (l *Levels) LevelsSinceLast(ctx context.Context) (SignalLevels, error) {
	return l.signalLevels(ctx, cmdGetSignalLevelsSinceLast, nil)
}

// PeaksSinceStart returns the peak levels since processing started.
func (l *Levels) PeaksSinceStart(ctx context.Context) (PeakLevels, error) {
	var peaks PeakLevels
	err := l.value(ctx, cmdGetSignalPeaksSinceStart, nil, &peaks)
	return peaks, err
}

// ResetPeaksSinceStart clears the peaks returned by PeaksSinceStart.
func (l *Levels) ResetPeaksSinceStart(ctx context.Context) error {
	return l.query(ctx, cmdResetSignalPeaksSinceStart, nil, nil)
}

func (l *Levels) channels(ctx context.Context, command string, arg any) ([]float64, error) {
	var values []float64
	if err := l.value(ctx, command, arg, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func (l *Levels) signalLevels(ctx context.Context, command string, arg any) (SignalLevels, error) {
	var levels SignalLevels
	err := l.value(ctx, command, arg, &levels)
	return levels, err
}
