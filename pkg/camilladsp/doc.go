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

// Package camilladsp is a client for the websocket control interface of a
// running CamillaDSP process.
//
// A Client owns one persistent connection and exposes the commands of the
// CamillaDSP protocol grouped by topic:
//
//	client := camilladsp.NewClient("127.0.0.1", 1234)
//	if err := client.Connect(ctx); err != nil {
//		return err
//	}
//	defer client.Disconnect()
//
//	vol, err := client.Volume.Main(ctx)
//
// Every call is a single request/response round trip. Failures come in three
// kinds: ErrConnectionRefused when the websocket cannot be opened, a
// *CamillaError when CamillaDSP rejects a command, and errors wrapping ErrIO
// when the connection is missing, drops, or returns something unreadable.
package camilladsp
