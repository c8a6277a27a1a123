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
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config reads, replaces and validates the active configuration. Documents
// travel as YAML strings.
type Config struct {
	commandGroup
}

// FilePath returns the path of the current config file, or "" when none is
// set.
func (c *Config) FilePath(ctx context.Context) (string, error) {
	return c.text(ctx, cmdGetConfigFilePath, nil)
}

// SetFilePath sets the config file path. The file is only read on the next
// Reload.
func (c *Config) SetFilePath(ctx context.Context, path string) error {
	return c.query(ctx, cmdSetConfigFilePath, path, nil)
}

// ActiveRaw returns the active config as a YAML string, or "" when there is
// no active config.
func (c *Config) ActiveRaw(ctx context.Context) (string, error) {
	return c.text(ctx, cmdGetConfig, nil)
}

// SetActiveRaw uploads and applies a config given as a YAML string.
func (c *Config) SetActiveRaw(ctx context.Context, config string) error {
	return c.query(ctx, cmdSetConfig, config, nil)
}

// ActiveJSON returns the active config as a JSON string.
func (c *Config) ActiveJSON(ctx context.Context) (string, error) {
	return c.document(ctx, cmdGetConfigJSON, nil)
}

// SetActiveJSON uploads and applies a config given as a JSON string.
func (c *Config) SetActiveJSON(ctx context.Context, config string) error {
	return c.query(ctx, cmdSetConfigJSON, config, nil)
}

// Active returns the parsed active config, or nil when there is none.
func (c *Config) Active(ctx context.Context) (Document, error) {
	raw, err := c.ActiveRaw(ctx)
	if err != nil || raw == "" {
		return nil, err
	}
	return ParseDocument(raw)
}

// Previous returns the previously active config, or nil when there is none.
func (c *Config) Previous(ctx context.Context) (Document, error) {
	raw, err := c.text(ctx, cmdGetPreviousConfig, nil)
	if err != nil || raw == "" {
		return nil, err
	}
	return ParseDocument(raw)
}

// ParseYAML lets CamillaDSP parse a config and fill in defaults.
func (c *Config) ParseYAML(ctx context.Context, config string) (Document, error) {
	raw, err := c.document(ctx, cmdReadConfig, config)
	if err != nil {
		return nil, err
	}
	return ParseDocument(raw)
}

// ReadAndParseFile has CamillaDSP read the named file, which must be
// readable by the CamillaDSP process, and parse it.
func (c *Config) ReadAndParseFile(ctx context.Context, path string) (Document, error) {
	raw, err := c.document(ctx, cmdReadConfigFile, path)
	if err != nil {
		return nil, err
	}
	return ParseDocument(raw)
}

// SetActive uploads and applies a config document.
func (c *Config) SetActive(ctx context.Context, doc Document) error {
	raw, err := DumpDocument(doc)
	if err != nil {
		return err
	}
	return c.SetActiveRaw(ctx, raw)
}

// Validate checks a config document and returns it with defaults filled in.
// A rejected config comes back as a *CamillaError describing the problem.
func (c *Config) Validate(ctx context.Context, doc Document) (Document, error) {
	raw, err := DumpDocument(doc)
	if err != nil {
		return nil, err
	}
	validated, err := c.document(ctx, cmdValidateConfig, raw)
	if err != nil {
		return nil, err
	}
	return ParseDocument(validated)
}

// Title returns the title of the active config, or "" when not set.
func (c *Config) Title(ctx context.Context) (string, error) {
	return c.text(ctx, cmdGetConfigTitle, nil)
}

// Description returns the description of the active config, or "" when not
// set.
func (c *Config) Description(ctx context.Context) (string, error) {
	return c.text(ctx, cmdGetConfigDescription, nil)
}

func (c *Config) text(ctx context.Context, command string, arg any) (string, error) {
	var s string
	if err := c.query(ctx, command, arg, &s); err != nil {
		return "", err
	}
	return s, nil
}

// document is text for commands that always answer with a config.
func (c *Config) document(ctx context.Context, command string, arg any) (string, error) {
	var s string
	if err := c.value(ctx, command, arg, &s); err != nil {
		return "", err
	}
	return s, nil
}

// ParseDocument parses a YAML (or JSON) config string.
func ParseDocument(raw string) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return doc, nil
}

// DumpDocument serializes a config document to YAML.
func DumpDocument(doc Document) (string, error) {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("dump config: %w", err)
	}
	return string(out), nil
}
