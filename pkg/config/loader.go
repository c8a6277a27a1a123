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

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/HEnquist/pycamilladsp/pkg/core"
)

const (
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 1234
	DefaultPollInterval   = time.Second
	DefaultReconnectDelay = 5 * time.Second
	DefaultCommandTimeout = 5 * time.Second
	DefaultChannelSize    = 16
)

type Config struct {
	CamillaDSP  CamillaDSPConfig   `yaml:"camilladsp"`
	Entrypoints []EntrypointConfig `yaml:"entrypoints"`
	Endpoints   []EndpointConfig   `yaml:"endpoints"`
	Routes      []RouteConfig      `yaml:"routes"`
}

// CamillaDSPConfig describes the instance the bridge controls.
type CamillaDSPConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Instance       string        `yaml:"instance"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	CommandRate    float64       `yaml:"command_rate"`
	CommandBurst   int           `yaml:"command_burst"`
	DenyCommands   []string      `yaml:"deny_commands"`
}

type EntrypointConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	Port int    `yaml:"port"`
}

type EndpointConfig struct {
	Name   string            `yaml:"name"`
	Type   string            `yaml:"type"`
	Config map[string]string `yaml:"config"`
}

type RouteConfig struct {
	Source            string `yaml:"source"`
	Direction         string `yaml:"direction"`
	DeliveryGuarantee string `yaml:"delivery_guarantee"`
	ChannelSize       int    `yaml:"channel_size"`
}

// Load reads the YAML file at path, fills in defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	dsp := &c.CamillaDSP
	if dsp.Host == "" {
		dsp.Host = DefaultHost
	}
	if dsp.Port == 0 {
		dsp.Port = DefaultPort
	}
	if dsp.Instance == "" {
		dsp.Instance = fmt.Sprintf("%s:%d", dsp.Host, dsp.Port)
	}
	if dsp.PollInterval == 0 {
		dsp.PollInterval = DefaultPollInterval
	}
	if dsp.ReconnectDelay == 0 {
		dsp.ReconnectDelay = DefaultReconnectDelay
	}
	if dsp.CommandTimeout == 0 {
		dsp.CommandTimeout = DefaultCommandTimeout
	}
	if dsp.CommandRate > 0 && dsp.CommandBurst == 0 {
		dsp.CommandBurst = 1
	}
	for i := range c.Routes {
		if c.Routes[i].ChannelSize <= 0 {
			c.Routes[i].ChannelSize = DefaultChannelSize
		}
	}
}

// Validate reports every problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []error

	if c.CamillaDSP.Port < 1 || c.CamillaDSP.Port > 65535 {
		errs = append(errs, fmt.Errorf("camilladsp.port %d out of range", c.CamillaDSP.Port))
	}
	if c.CamillaDSP.PollInterval < 0 || c.CamillaDSP.ReconnectDelay < 0 || c.CamillaDSP.CommandTimeout < 0 {
		errs = append(errs, errors.New("camilladsp durations must not be negative"))
	}

	names := make(map[string]bool)
	for _, e := range c.Entrypoints {
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("entrypoint of type %q has no name", e.Type))
			continue
		}
		if names[e.Name] {
			errs = append(errs, fmt.Errorf("duplicate name %q", e.Name))
		}
		names[e.Name] = true
	}
	for _, e := range c.Endpoints {
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("endpoint of type %q has no name", e.Type))
			continue
		}
		if names[e.Name] {
			errs = append(errs, fmt.Errorf("duplicate name %q", e.Name))
		}
		names[e.Name] = true
	}

	for _, r := range c.Routes {
		if !names[r.Source] {
			errs = append(errs, fmt.Errorf("route source %q is not a configured entrypoint or endpoint", r.Source))
		}
		if _, err := ParseDirection(r.Direction); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ParseDirection accepts downstream, upstream and both. Empty means both.
func ParseDirection(s string) (core.Direction, error) {
	switch s {
	case "", "both":
		return core.DirectionBoth, nil
	case "downstream":
		return core.DirectionDownstream, nil
	case "upstream":
		return core.DirectionUpstream, nil
	default:
		return core.DirectionBoth, fmt.Errorf("unknown route direction %q", s)
	}
}

func ParseDeliveryGuarantee(s string) core.DeliveryGuarantee {
	switch s {
	case "none":
		return core.DeliveryNone
	case "at_most_once":
		return core.DeliveryAtMostOnce
	case "at_least_once":
		return core.DeliveryAtLeastOnce
	default:
		return core.DeliveryAuto
	}
}

func (rc RouteConfig) ToRoute() *core.Route {
	dir, _ := ParseDirection(rc.Direction)
	return &core.Route{
		Source:            rc.Source,
		Direction:         dir,
		DeliveryGuarantee: ParseDeliveryGuarantee(rc.DeliveryGuarantee),
		ChannelSize:       rc.ChannelSize,
	}
}

// RouteList converts all configured routes.
func (c *Config) RouteList() []*core.Route {
	routes := make([]*core.Route, 0, len(c.Routes))
	for _, rc := range c.Routes {
		routes = append(routes, rc.ToRoute())
	}
	return routes
}
