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

package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/HEnquist/pycamilladsp/pkg/camilladsp"
)

func newVersionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the CamillaDSP and library versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(_ context.Context, client *camilladsp.Client) error {
				dsp, _ := client.Versions.CamillaDSP()
				lib := client.Versions.Library()
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]string{
						"camilladsp": dsp.String(),
						"library":    lib.String(),
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "CamillaDSP %s\n", dsp)
				fmt.Fprintf(out, "Library    %s\n", lib)
				return nil
			})
		},
	}
}

func newStateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the processing state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *camilladsp.Client) error {
				var state camilladsp.ProcessingState
				err := ctx.call(c, func(c context.Context) (err error) {
					state, err = client.General.State(c)
					return err
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"state": state})
				}
				fmt.Fprintln(cmd.OutOrStdout(), state)
				return nil
			})
		},
	}
}

type statusReport struct {
	State          camilladsp.ProcessingState `json:"state"`
	StopReason     string                     `json:"stop_reason"`
	CaptureRate    int                        `json:"capture_rate"`
	CaptureRateRaw int                        `json:"capture_rate_raw"`
	RateAdjust     float64                    `json:"rate_adjust"`
	BufferLevel    int                        `json:"buffer_level"`
	ClippedSamples int                        `json:"clipped_samples"`
	ProcessingLoad float64                    `json:"processing_load"`
	Volume         float64                    `json:"volume"`
	Muted          bool                       `json:"muted"`
	ConfigTitle    string                     `json:"config_title"`
	ConfigPath     string                     `json:"config_path"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show a summary of the processing status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *camilladsp.Client) error {
				var r statusReport
				err := ctx.call(c, func(c context.Context) error {
					return collectStatus(c, client, &r)
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, r)
				}

				rate := strconv.Itoa(r.CaptureRate)
				if r.CaptureRate == 0 {
					rate = "unknown"
				}
				rows := [][]string{
					{"State", r.State.String()},
					{"Stop reason", r.StopReason},
					{"Capture rate", rate},
					{"Measured capture rate", strconv.Itoa(r.CaptureRateRaw)},
					{"Rate adjust", strconv.FormatFloat(r.RateAdjust, 'f', 4, 64)},
					{"Buffer level", strconv.Itoa(r.BufferLevel)},
					{"Clipped samples", strconv.Itoa(r.ClippedSamples)},
					{"Processing load", strconv.FormatFloat(r.ProcessingLoad, 'f', 1, 64) + " %"},
					{"Volume", formatDecibel(r.Volume)},
					{"Muted", yesNo(r.Muted)},
					{"Config title", r.ConfigTitle},
					{"Config path", r.ConfigPath},
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out, []string{"Field", "Value"}, rows, nil))
				return nil
			})
		},
	}
}

func collectStatus(ctx context.Context, client *camilladsp.Client, r *statusReport) error {
	var err error
	if r.State, err = client.General.State(ctx); err != nil {
		return err
	}
	reason, err := client.General.StopReason(ctx)
	if err != nil {
		return err
	}
	r.StopReason = reason.String()
	if r.CaptureRateRaw, err = client.Rate.CaptureRaw(ctx); err != nil {
		return err
	}
	r.CaptureRate, _ = camilladsp.MatchStandardRate(r.CaptureRateRaw)
	if r.RateAdjust, err = client.Status.RateAdjust(ctx); err != nil {
		return err
	}
	if r.BufferLevel, err = client.Status.BufferLevel(ctx); err != nil {
		return err
	}
	if r.ClippedSamples, err = client.Status.ClippedSamples(ctx); err != nil {
		return err
	}
	if r.ProcessingLoad, err = client.Status.ProcessingLoad(ctx); err != nil {
		return err
	}
	if r.Volume, err = client.Volume.Main(ctx); err != nil {
		return err
	}
	if r.Muted, err = client.Mute.Main(ctx); err != nil {
		return err
	}
	if r.ConfigTitle, err = client.Config.Title(ctx); err != nil {
		return err
	}
	r.ConfigPath, err = client.Config.FilePath(ctx)
	return err
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop processing and wait for a new config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.simple(cmd, "Processing stopped", func(c context.Context, client *camilladsp.Client) error {
				return client.General.Stop(c)
			})
		},
	}
}

func newExitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "exit",
		Short: "Stop processing and exit CamillaDSP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.simple(cmd, "CamillaDSP exiting", func(c context.Context, client *camilladsp.Client) error {
				return client.General.Exit(c)
			})
		},
	}
}

func newReloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload the current config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.simple(cmd, "Config reloaded", func(c context.Context, client *camilladsp.Client) error {
				return client.General.Reload(c)
			})
		},
	}
}

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List supported backends and available devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *camilladsp.Client) error {
				var playback, capture []string
				err := ctx.call(c, func(c context.Context) (err error) {
					playback, capture, err = client.General.SupportedDeviceTypes(c)
					return err
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string][]string{"playback": playback, "capture": capture})
				}
				rows := make([][]string, 0, len(playback)+len(capture))
				for _, b := range playback {
					rows = append(rows, []string{"playback", b})
				}
				for _, b := range capture {
					rows = append(rows, []string{"capture", b})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out, []string{"Direction", "Backend"}, rows, nil))
				return nil
			})
		},
	}

	devicesCmd.AddCommand(newDeviceListCommand(ctx, "playback", func(c context.Context, client *camilladsp.Client, backend string) ([]camilladsp.Device, error) {
		return client.General.ListPlaybackDevices(c, backend)
	}))
	devicesCmd.AddCommand(newDeviceListCommand(ctx, "capture", func(c context.Context, client *camilladsp.Client, backend string) ([]camilladsp.Device, error) {
		return client.General.ListCaptureDevices(c, backend)
	}))
	return devicesCmd
}

type deviceLister func(context.Context, *camilladsp.Client, string) ([]camilladsp.Device, error)

func newDeviceListCommand(ctx *commandContext, direction string, list deviceLister) *cobra.Command {
	return &cobra.Command{
		Use:   direction + " <backend>",
		Short: "List available " + direction + " devices for a backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *camilladsp.Client) error {
				var devices []camilladsp.Device
				err := ctx.call(c, func(c context.Context) (err error) {
					devices, err = list(c, client, args[0])
					return err
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, devices)
				}
				rows := make([][]string, 0, len(devices))
				for _, d := range devices {
					rows = append(rows, []string{d.Name, d.Description})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out, []string{"Name", "Description"}, rows, nil))
				return nil
			})
		},
	}
}

// simple runs a command without a reply value and prints done on success.
func (c *commandContext) simple(cmd *cobra.Command, done string, fn func(context.Context, *camilladsp.Client) error) error {
	return c.withClient(cmd, func(ctx context.Context, client *camilladsp.Client) error {
		if err := c.call(ctx, func(ctx context.Context) error { return fn(ctx, client) }); err != nil {
			return err
		}
		if c.jsonOutput() {
			return writeJSON(cmd, map[string]string{"result": "ok"})
		}
		fmt.Fprintln(cmd.OutOrStdout(), done)
		return nil
	})
}

func formatDecibel(db float64) string {
	return strconv.FormatFloat(db, 'f', 1, 64) + " dB"
}
