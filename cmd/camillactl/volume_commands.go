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
	"strings"

	"github.com/spf13/cobra"

	"github.com/HEnquist/pycamilladsp/pkg/camilladsp"
)

func addFaderFlag(cmd *cobra.Command, fader *int) {
	cmd.Flags().IntVarP(fader, "fader", "f", 0, "Fader, 0 is Main and 1 to 4 are Aux1 to Aux4")
}

func parseFader(n int) (camilladsp.Fader, error) {
	if n < int(camilladsp.FaderMain) || n > int(camilladsp.FaderAux4) {
		return 0, fmt.Errorf("fader must be between %d and %d, got %d", camilladsp.FaderMain, camilladsp.FaderAux4, n)
	}
	return camilladsp.Fader(n), nil
}

func parseDecibel(s string) (float64, error) {
	db, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "dB"), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid volume %q", s)
	}
	return db, nil
}

func newVolumeCommand(ctx *commandContext) *cobra.Command {
	volumeCmd := &cobra.Command{
		Use:   "volume",
		Short: "Read and change fader volumes",
		Long: "Read and change fader volumes.\n\n" +
			"Negative values must follow --, as in: camillactl volume set -- -20",
	}

	volumeCmd.AddCommand(newVolumeGetCommand(ctx))
	volumeCmd.AddCommand(newVolumeSetCommand(ctx))
	volumeCmd.AddCommand(newVolumeAdjustCommand(ctx))

	return volumeCmd
}

func newVolumeGetCommand(ctx *commandContext) *cobra.Command {
	var fader int

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show the volume of one fader, or of all faders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("fader") {
				f, err := parseFader(fader)
				if err != nil {
					return err
				}
				return ctx.withClient(cmd, func(c context.Context, client *camilladsp.Client) error {
					var db float64
					err := ctx.call(c, func(c context.Context) (err error) {
						db, err = client.Volume.Fader(c, f)
						return err
					})
					if err != nil {
						return err
					}
					return printVolume(cmd, ctx, f, db)
				})
			}

			return ctx.withClient(cmd, func(c context.Context, client *camilladsp.Client) error {
				var faders []camilladsp.FaderState
				err := ctx.call(c, func(c context.Context) (err error) {
					faders, err = client.Volume.All(c)
					return err
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, faders)
				}
				rows := make([][]string, 0, len(faders))
				for i, st := range faders {
					rows = append(rows, []string{camilladsp.Fader(i).String(), formatDecibel(st.Volume), yesNo(st.Mute)})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out, []string{"Fader", "Volume", "Muted"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
				return nil
			})
		},
	}

	addFaderFlag(cmd, &fader)
	return cmd
}

func newVolumeSetCommand(ctx *commandContext) *cobra.Command {
	var fader int
	var external bool

	cmd := &cobra.Command{
		Use:   "set <dB>",
		Short: "Set the volume of a fader",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFader(fader)
			if err != nil {
				return err
			}
			db, err := parseDecibel(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(cmd, func(c context.Context, client *camilladsp.Client) error {
				err := ctx.call(c, func(c context.Context) error {
					if external {
						return client.Volume.SetFaderExternal(c, f, db)
					}
					return client.Volume.SetFader(c, f, db)
				})
				if err != nil {
					return err
				}
				return printVolume(cmd, ctx, f, db)
			})
		},
	}

	addFaderFlag(cmd, &fader)
	cmd.Flags().BoolVar(&external, "external", false, "Set the volume without the ramp, for use with external controls")
	return cmd
}

func newVolumeAdjustCommand(ctx *commandContext) *cobra.Command {
	var fader int
	var minDB, maxDB float64

	cmd := &cobra.Command{
		Use:   "adjust <delta-dB>",
		Short: "Change the volume of a fader by a relative amount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFader(fader)
			if err != nil {
				return err
			}
			delta, err := parseDecibel(args[0])
			if err != nil {
				return err
			}
			var opts []camilladsp.AdjustOption
			if cmd.Flags().Changed("min") {
				opts = append(opts, camilladsp.WithMinLimit(minDB))
			}
			if cmd.Flags().Changed("max") {
				opts = append(opts, camilladsp.WithMaxLimit(maxDB))
			}
			return ctx.withClient(cmd, func(c context.Context, client *camilladsp.Client) error {
				var db float64
				err := ctx.call(c, func(c context.Context) (err error) {
					db, err = client.Volume.AdjustFader(c, f, delta, opts...)
					return err
				})
				if err != nil {
					return err
				}
				return printVolume(cmd, ctx, f, db)
			})
		},
	}

	addFaderFlag(cmd, &fader)
	cmd.Flags().Float64Var(&minDB, "min", camilladsp.DefaultMinVolume, "Lowest allowed resulting volume in dB")
	cmd.Flags().Float64Var(&maxDB, "max", camilladsp.DefaultMaxVolume, "Highest allowed resulting volume in dB")
	return cmd
}

func printVolume(cmd *cobra.Command, ctx *commandContext, fader camilladsp.Fader, db float64) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, map[string]any{"fader": int(fader), "volume": db})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", fader, formatDecibel(db))
	return nil
}

func newMuteCommand(ctx *commandContext) *cobra.Command {
	muteCmd := &cobra.Command{
		Use:   "mute",
		Short: "Read and change fader mute states",
	}

	muteCmd.AddCommand(newMuteGetCommand(ctx))
	muteCmd.AddCommand(newMuteSetCommand(ctx))
	muteCmd.AddCommand(newMuteToggleCommand(ctx))

	return muteCmd
}

func newMuteGetCommand(ctx *commandContext) *cobra.Command {
	var fader int

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show whether a fader is muted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFader(fader)
			if err != nil {
				return err
			}
			return ctx.withClient(cmd, func(c context.Context, client *camilladsp.Client) error {
				var muted bool
				err := ctx.call(c, func(c context.Context) (err error) {
					muted, err = client.Mute.Fader(c, f)
					return err
				})
				if err != nil {
					return err
				}
				return printMute(cmd, ctx, f, muted)
			})
		},
	}

	addFaderFlag(cmd, &fader)
	return cmd
}

func newMuteSetCommand(ctx *commandContext) *cobra.Command {
	var fader int

	cmd := &cobra.Command{
		Use:       "set <on|off>",
		Short:     "Mute or unmute a fader",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFader(fader)
			if err != nil {
				return err
			}
			muted, err := parseOnOff(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(cmd, func(c context.Context, client *camilladsp.Client) error {
				err := ctx.call(c, func(c context.Context) error {
					return client.Mute.SetFader(c, f, muted)
				})
				if err != nil {
					return err
				}
				return printMute(cmd, ctx, f, muted)
			})
		},
	}

	addFaderFlag(cmd, &fader)
	return cmd
}

func newMuteToggleCommand(ctx *commandContext) *cobra.Command {
	var fader int

	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Flip the mute state of a fader",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFader(fader)
			if err != nil {
				return err
			}
			return ctx.withClient(cmd, func(c context.Context, client *camilladsp.Client) error {
				var muted bool
				err := ctx.call(c, func(c context.Context) (err error) {
					muted, err = client.Mute.ToggleFader(c, f)
					return err
				})
				if err != nil {
					return err
				}
				return printMute(cmd, ctx, f, muted)
			})
		},
	}

	addFaderFlag(cmd, &fader)
	return cmd
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func printMute(cmd *cobra.Command, ctx *commandContext, fader camilladsp.Fader, muted bool) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, map[string]any{"fader": int(fader), "muted": muted})
	}
	state := "unmuted"
	if muted {
		state = "muted"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", fader, state)
	return nil
}
