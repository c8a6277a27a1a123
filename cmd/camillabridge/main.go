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
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/HEnquist/pycamilladsp/internal/control"
	"github.com/HEnquist/pycamilladsp/internal/logging"
	"github.com/HEnquist/pycamilladsp/internal/routing"
	"github.com/HEnquist/pycamilladsp/internal/session"
	"github.com/HEnquist/pycamilladsp/internal/telemetry"
	"github.com/HEnquist/pycamilladsp/pkg/camilladsp"
	"github.com/HEnquist/pycamilladsp/pkg/config"
	"github.com/HEnquist/pycamilladsp/pkg/core"
	"github.com/HEnquist/pycamilladsp/pkg/plugins"
	"github.com/HEnquist/pycamilladsp/pkg/plugins/httpget"
	"github.com/HEnquist/pycamilladsp/pkg/plugins/httppost"
	"github.com/HEnquist/pycamilladsp/pkg/plugins/jms"
	"github.com/HEnquist/pycamilladsp/pkg/plugins/kafka"
	"github.com/HEnquist/pycamilladsp/pkg/plugins/mqtt"
	"github.com/HEnquist/pycamilladsp/pkg/plugins/mqtt5"
	"github.com/HEnquist/pycamilladsp/pkg/plugins/rabbitmq"
	"github.com/HEnquist/pycamilladsp/pkg/plugins/redis"
	"github.com/HEnquist/pycamilladsp/pkg/plugins/solace"
	"github.com/HEnquist/pycamilladsp/pkg/plugins/sse"
	"github.com/HEnquist/pycamilladsp/pkg/plugins/ws"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "/etc/camillabridge/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	dspCfg := cfg.CamillaDSP
	client := camilladsp.NewClient(dspCfg.Host, dspCfg.Port,
		camilladsp.WithLogger(logger.With("component", "client")),
		camilladsp.WithDialTimeout(dspCfg.CommandTimeout),
	)

	packetLog := logging.NewPacketLogger(logger.With("component", "packet"))

	routeTable := routing.NewTable()
	for _, rc := range cfg.Routes {
		routeTable.Add(rc.ToRoute())
	}

	executor := control.NewExecutor(client, control.Options{
		Deny:    dspCfg.DenyCommands,
		Timeout: dspCfg.CommandTimeout,
		Rate:    dspCfg.CommandRate,
		Burst:   dspCfg.CommandBurst,
	}, logger.With("component", "control"))

	mgr := session.NewManager(routeTable, executor, logger.With("component", "session"), packetLog)

	poller := telemetry.NewPoller(client, mgr, telemetry.Options{
		Instance:       dspCfg.Instance,
		Interval:       dspCfg.PollInterval,
		ReconnectDelay: dspCfg.ReconnectDelay,
		Timeout:        dspCfg.CommandTimeout,
	}, logger.With("component", "telemetry"))

	registry := plugins.NewRegistry(logger)
	registerEntrypoints(cfg, registry, poller, logger, packetLog)
	registerEndpoints(cfg, registry, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connected := registry.ConnectEndpoints(ctx)
	attached := registry.AttachEndpoints(ctx, mgr, routeTable)
	logger.Info("endpoints ready",
		"configured", len(cfg.Endpoints),
		"connected", connected,
		"attached", attached,
		"unhealthy", registry.Unhealthy(),
	)

	watcher := config.NewWatcher(configPath, routeTable, logger)
	go watcher.Watch(ctx)

	go poller.Run(ctx)
	registry.StartEntrypoints(ctx, mgr)

	logger.Info("camilla bridge started",
		"config", configPath,
		"camilladsp", client.Addr(),
		"instance", dspCfg.Instance,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down camilla bridge")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	mgr.DestroyAll()
	registry.StopAll(shutdownCtx)
	if err := client.Disconnect(); err != nil {
		logger.Warn("camilladsp disconnect failed", "error", err)
	}

	logger.Info("camilla bridge stopped")
}

func registerEntrypoints(
	cfg *config.Config,
	reg *plugins.Registry,
	status core.StatusSource,
	logger *slog.Logger,
	packetLog *logging.PacketLogger,
) {
	for _, e := range cfg.Entrypoints {
		epLogger := logger.With("component", "entrypoint", "entrypoint", e.Name)
		var ep core.Entrypoint
		switch e.Type {
		case "websocket":
			ep = ws.New(e.Name, e.Port, epLogger, packetLog)
		case "sse":
			ep = sse.New(e.Name, e.Port, epLogger, packetLog)
		case "http_post":
			ep = httppost.New(e.Name, e.Port, epLogger, packetLog)
		case "http_get":
			ep = httpget.New(e.Name, e.Port, status, epLogger, packetLog)
		default:
			logger.Warn("unknown entrypoint type", "name", e.Name, "type", e.Type)
			continue
		}
		if err := reg.RegisterEntrypoint(ep); err != nil {
			logger.Error("entrypoint not registered", "name", e.Name, "error", err)
		}
	}
}

func registerEndpoints(cfg *config.Config, reg *plugins.Registry, logger *slog.Logger) {
	for _, e := range cfg.Endpoints {
		c := e.Config
		epLogger := logger.With("component", "endpoint", "endpoint", e.Name)
		var ep core.Endpoint
		switch e.Type {
		case "kafka":
			brokers := strings.Split(c["brokers"], ",")
			ep = kafka.New(
				e.Name, brokers,
				c["topic_in"], c["topic_out"], c["topic_reply"],
				c["group_id"],
				epLogger,
			)
		case "rabbitmq":
			ep = rabbitmq.New(
				e.Name,
				c["url"],
				c["queue_in"], c["queue_out"], c["queue_reply"],
				epLogger,
			)
		case "mqtt5":
			ep = mqtt5.New(
				e.Name,
				c["broker"],
				c["topic_in"], c["topic_out"], c["topic_reply"],
				epLogger,
			)
		case "mqtt":
			qos, err := strconv.Atoi(c["qos"])
			if err != nil || qos < 0 || qos > 2 {
				qos = 1
			}
			ep = mqtt.New(
				e.Name,
				c["broker"], c["client_id"],
				c["topic_in"], c["topic_out"], c["topic_reply"],
				byte(qos),
				epLogger,
			)
		case "jms":
			ep = jms.New(
				e.Name,
				c["url"],
				c["queue_in"], c["queue_out"], c["queue_reply"],
				epLogger,
			)
		case "solace":
			ep = solace.New(
				e.Name,
				c["host"], c["vpn"], c["username"], c["password"],
				c["topic_in"], c["topic_out"], c["topic_reply"],
				epLogger,
			)
		case "redis":
			db, _ := strconv.Atoi(c["db"])
			ttl, err := time.ParseDuration(c["snapshot_ttl"])
			if err != nil {
				ttl = redis.DefaultSnapshotTTL
			}
			ep = redis.New(e.Name, redis.Options{
				Addr:         c["addr"],
				Password:     c["password"],
				DB:           db,
				SnapshotKey:  c["snapshot_key"],
				SnapshotTTL:  ttl,
				ChannelIn:    c["channel_in"],
				ChannelOut:   c["channel_out"],
				ChannelReply: c["channel_reply"],
			}, epLogger)
		default:
			logger.Warn("unknown endpoint type", "name", e.Name, "type", e.Type)
			continue
		}
		if err := reg.RegisterEndpoint(ep); err != nil {
			logger.Error("endpoint not registered", "name", e.Name, "error", err)
		}
	}
}
