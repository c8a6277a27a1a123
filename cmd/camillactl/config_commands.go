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
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HEnquist/pycamilladsp/pkg/camilladsp"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and replace the active config",
	}

	configCmd.AddCommand(newConfigGetCommand(ctx))
	configCmd.AddCommand(newConfigSetCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigPathCommand(ctx))
	configCmd.AddCommand(newConfigTitleCommand(ctx))

	return configCmd
}

func newConfigGetCommand(ctx *commandContext) *cobra.Command {
	var raw, jsonRaw bool

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the active config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if raw && jsonRaw {
				return fmt.Errorf("--raw and --json-raw are mutually exclusive")
			}
			return ctx.withClient(cmd, func(c context.Context, client *camilladsp.Client) error {
				out := cmd.OutOrStdout()
				switch {
				case raw:
					return ctx.call(c, func(c context.Context) error {
						text, err := client.Config.ActiveRaw(c)
						if err != nil {
							return err
						}
						fmt.Fprint(out, ensureNewline(text))
						return nil
					})
				case jsonRaw:
					return ctx.call(c, func(c context.Context) error {
						text, err := client.Config.ActiveJSON(c)
						if err != nil {
							return err
						}
						fmt.Fprint(out, ensureNewline(text))
						return nil
					})
				}

				var doc camilladsp.Document
				err := ctx.call(c, func(c context.Context) (err error) {
					doc, err = client.Config.Active(c)
					return err
				})
				if err != nil {
					return err
				}
				if doc == nil {
					return fmt.Errorf("no active config")
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, doc)
				}
				text, err := camilladsp.DumpDocument(doc)
				if err != nil {
					return err
				}
				fmt.Fprint(out, text)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the config exactly as CamillaDSP sends it")
	cmd.Flags().BoolVar(&jsonRaw, "json-raw", false, "Print the config in CamillaDSP's JSON form")
	return cmd
}

func newConfigSetCommand(ctx *commandContext) *cobra.Command {
	var validate bool

	cmd := &cobra.Command{
		Use:   "set <file>",
		Short: "Upload a YAML config file and make it active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readConfigFile(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(cmd, func(c context.Context, client *camilladsp.Client) error {
				err := ctx.call(c, func(c context.Context) error {
					if validate {
						if _, err := client.Config.Validate(c, doc); err != nil {
							return err
						}
					}
					return client.Config.SetActive(c, doc)
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]string{"result": "ok", "file": args[0]})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied config from %s\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&validate, "validate", true, "Validate the config before applying it")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Let CamillaDSP validate a local YAML config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readConfigFile(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(cmd, func(c context.Context, client *camilladsp.Client) error {
				var validated camilladsp.Document
				err := ctx.call(c, func(c context.Context) (err error) {
					validated, err = client.Config.Validate(c, doc)
					return err
				})
				if err != nil {
					if camilladsp.IsCamillaError(err) {
						return fmt.Errorf("config %s is invalid: %w", args[0], err)
					}
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, validated)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Config %s is valid\n", args[0])
				return nil
			})
		},
	}
}

func newConfigPathCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "path [new-path]",
		Short: "Show or change the config file path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *camilladsp.Client) error {
				if len(args) == 1 {
					err := ctx.call(c, func(c context.Context) error {
						return client.Config.SetFilePath(c, args[0])
					})
					if err != nil {
						return err
					}
					if ctx.jsonOutput() {
						return writeJSON(cmd, map[string]string{"path": args[0]})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Config path set to %s, run reload to apply it\n", args[0])
					return nil
				}

				var path string
				err := ctx.call(c, func(c context.Context) (err error) {
					path, err = client.Config.FilePath(c)
					return err
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]string{"path": path})
				}
				if path == "" {
					path = "(none)"
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
}

func newConfigTitleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "title",
		Short: "Show the title and description of the active config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, client *camilladsp.Client) error {
				var title, description string
				err := ctx.call(c, func(c context.Context) (err error) {
					if title, err = client.Config.Title(c); err != nil {
						return err
					}
					description, err = client.Config.Description(c)
					return err
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]string{"title": title, "description": description})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, title)
				if description != "" {
					fmt.Fprintln(out, description)
				}
				return nil
			})
		},
	}
}

func readConfigFile(path string) (camilladsp.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	doc, err := camilladsp.ParseDocument(string(data))
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("config file %s is empty", path)
	}
	return doc, nil
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
