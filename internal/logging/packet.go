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

package logging

import (
	"context"
	"log/slog"

	"github.com/HEnquist/pycamilladsp/pkg/core"
)

// PacketLogger records every event crossing the bridge. Telemetry is logged
// at debug level since it flows on every poll.
type PacketLogger struct {
	logger *slog.Logger
}

func NewPacketLogger(logger *slog.Logger) *PacketLogger {
	return &PacketLogger{logger: logger}
}

func (p *PacketLogger) Log(evt core.Event, route *core.Route, direction string) {
	level := slog.LevelInfo
	if evt.Type == core.EventTypeTelemetry {
		level = slog.LevelDebug
	}
	attrs := []any{
		"event_id", evt.ID,
		"event_type", evt.Type.String(),
		"source_id", evt.SourceID,
		"client_id", evt.ClientID,
		"direction", direction,
		"payload_size", len(evt.Payload),
		"timestamp", evt.Timestamp,
	}
	if route != nil {
		attrs = append(attrs, "route_source", route.Source, "route_direction", route.Direction.String())
	}
	if cmd := evt.Metadata[core.MetaCommand]; cmd != "" {
		attrs = append(attrs, "command", cmd)
	}
	if status := evt.Metadata[core.MetaStatus]; status != "" {
		attrs = append(attrs, "status", status)
	}
	p.logger.Log(context.Background(), level, "packet", attrs...)
}
