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
	"time"

	"github.com/spf13/cobra"

	"github.com/HEnquist/pycamilladsp/pkg/camilladsp"
)

func newLevelsCommand(ctx *commandContext) *cobra.Command {
	var since, watch time.Duration

	cmd := &cobra.Command{
		Use:   "levels",
		Short: "Show per-channel RMS and peak levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if since < 0 || watch < 0 {
				return fmt.Errorf("--since and --watch must not be negative")
			}
			return ctx.withClient(cmd, func(c context.Context, client *camilladsp.Client) error {
				read := func() error {
					var levels camilladsp.SignalLevels
					err := ctx.call(c, func(c context.Context) (err error) {
						if since > 0 {
							levels, err = client.Levels.LevelsSince(c, since)
						} else {
							levels, err = client.Levels.Levels(c)
						}
						return err
					})
					if err != nil {
						return err
					}
					return printLevels(cmd, ctx, levels)
				}

				if err := read(); err != nil || watch == 0 {
					return err
				}

				ticker := time.NewTicker(watch)
				defer ticker.Stop()
				for {
					select {
					case <-c.Done():
						return nil
					case <-ticker.C:
						if err := read(); err != nil {
							return err
						}
					}
				}
			})
		},
	}

	cmd.Flags().DurationVar(&since, "since", 0, "Report levels over this period instead of the last update interval")
	cmd.Flags().DurationVar(&watch, "watch", 0, "Keep printing levels at this interval until interrupted")
	return cmd
}

func printLevels(cmd *cobra.Command, ctx *commandContext, levels camilladsp.SignalLevels) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, levels)
	}

	rows := levelRows("capture", levels.CaptureRMS, levels.CapturePeak)
	rows = append(rows, levelRows("playback", levels.PlaybackRMS, levels.PlaybackPeak)...)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(out,
		[]string{"Side", "Channel", "RMS", "Peak"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	))
	return nil
}

func levelRows(side string, rms, peak []float64) [][]string {
	n := max(len(rms), len(peak))
	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		row := []string{side, strconv.Itoa(i), "", ""}
		if i < len(rms) {
			row[2] = formatDecibel(rms[i])
		}
		if i < len(peak) {
			row[3] = formatDecibel(peak[i])
		}
		rows = append(rows, row)
	}
	return rows
}

func newRateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rate",
		Short: "Show the measured capture sample rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *camilladsp.Client) error {
				var raw int
				err := ctx.call(c, func(c context.Context) (err error) {
					raw, err = client.Rate.CaptureRaw(c)
					return err
				})
				if err != nil {
					return err
				}
				rate, ok := camilladsp.MatchStandardRate(raw)
				if ctx.jsonOutput() {
					report := map[string]any{"raw": raw, "rate": nil}
					if ok {
						report["rate"] = rate
					}
					return writeJSON(cmd, report)
				}
				if !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%d Hz measured, not near a standard rate\n", raw)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d Hz (measured %d Hz)\n", rate, raw)
				return nil
			})
		},
	}
}

func newIntervalCommand(ctx *commandContext) *cobra.Command {
	intervalCmd := &cobra.Command{
		Use:   "interval",
		Short: "Read and change the level and rate update interval",
	}

	intervalCmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the update interval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *camilladsp.Client) error {
				var d time.Duration
				err := ctx.call(c, func(c context.Context) (err error) {
					d, err = client.Settings.UpdateInterval(c)
					return err
				})
				if err != nil {
					return err
				}
				return printInterval(cmd, ctx, d)
			})
		},
	})

	intervalCmd.AddCommand(&cobra.Command{
		Use:   "set <interval>",
		Short: "Set the update interval, as a duration (500ms) or in milliseconds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseInterval(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(cmd, func(c context.Context, client *camilladsp.Client) error {
				err := ctx.call(c, func(c context.Context) error {
					return client.Settings.SetUpdateInterval(c, d)
				})
				if err != nil {
					return err
				}
				return printInterval(cmd, ctx, d)
			})
		},
	})

	return intervalCmd
}

func parseInterval(s string) (time.Duration, error) {
	if ms, err := strconv.Atoi(s); err == nil {
		s = strconv.Itoa(ms) + "ms"
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid interval %q", s)
	}
	return d, nil
}

func printInterval(cmd *cobra.Command, ctx *commandContext, d time.Duration) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, map[string]int64{"interval_ms": d.Milliseconds()})
	}
	fmt.Fprintln(cmd.OutOrStdout(), d)
	return nil
}
